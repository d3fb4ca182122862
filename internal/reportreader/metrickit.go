package reportreader

import (
	"bytes"
	"fmt"

	gojson "github.com/goccy/go-json"

	"github.com/bitdrift/crashreport/internal/errorutil"
)

// DecodeMetricKit parses a MetricKit diagnostic payload. Numbers are kept as
// gojson.Number so 64-bit addresses survive.
func DecodeMetricKit(data []byte) (map[string]any, error) {
	d := gojson.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	var report map[string]any
	if err := d.Decode(&report); err != nil {
		return nil, fmt.Errorf("%w: %v", errorutil.ErrDataIntegrity, err)
	}
	if report == nil {
		return nil, fmt.Errorf("%w: MetricKit report is not an object", errorutil.ErrDataIntegrity)
	}
	return report, nil
}
