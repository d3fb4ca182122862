package reportreader

import (
	"fmt"
	"sync"

	"github.com/bitdrift/crashreport/internal/errorutil"
)

// Cache holds the most recently loaded report, so the report file can be
// removed before the platform's own diagnostics arrive.
type Cache struct {
	mu     sync.Mutex
	report Report
}

// Load reads the report at path and keeps it when anything could be read.
// The previous report is kept when Load fails or finds nothing.
func (c *Cache) Load(path string) (Result, error) {
	report, result, err := ReadReport(path)
	if err != nil || report == nil {
		return result, err
	}
	c.mu.Lock()
	c.report = report
	c.mu.Unlock()
	return result, nil
}

// Report returns the cached report.
func (c *Cache) Report() (Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.report == nil {
		return nil, fmt.Errorf("%w: no crash report has been loaded", errorutil.ErrNoResults)
	}
	return c.report, nil
}

// Enhance runs EnhanceMetricKitReport against the cached report.
func (c *Cache) Enhance(metricKit map[string]any) (map[string]any, bool, error) {
	report, err := c.Report()
	if err != nil {
		return nil, false, err
	}
	return EnhanceMetricKitReport(metricKit, report)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.report = nil
	c.mu.Unlock()
}
