// Package reportreader loads crash reports written by the crash handler and
// uses them to enrich platform diagnostic reports.
package reportreader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/bitdrift/crashreport/internal/bonjson"
	"github.com/bitdrift/crashreport/internal/errorutil"
)

// Report is a decoded crash report.
type Report map[string]any

// Result describes how much of a report could be read.
type Result int

const (
	// Failure means the report could not be interpreted.
	Failure Result = iota
	// ReportDoesNotExist means there is no report, or it is empty.
	ReportDoesNotExist
	// PartialSuccess means the report was cut short. What was written
	// before the cut is returned.
	PartialSuccess
	// Success means the whole report was read.
	Success
)

func (r Result) String() string {
	switch r {
	case Failure:
		return "failure"
	case ReportDoesNotExist:
		return "report does not exist"
	case PartialSuccess:
		return "partial success"
	case Success:
		return "success"
	}
	return fmt.Sprintf("result(%d)", int(r))
}

// ReadReport reads and decodes the report at path.
func ReadReport(path string) (Report, Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ReportDoesNotExist, nil
		}
		return nil, Failure, err
	}
	return Parse(data)
}

// Parse decodes a report. An empty input means the handler was armed but no
// crash was written.
func Parse(data []byte) (Report, Result, error) {
	if len(data) == 0 {
		return nil, ReportDoesNotExist, nil
	}

	result := Success
	value, err := bonjson.Decode(data)
	if err != nil {
		var partial *bonjson.PartialError
		if !errors.As(err, &partial) {
			return nil, Failure, fmt.Errorf("%w: %v", errorutil.ErrDataIntegrity, err)
		}
		value = partial.Value
		result = PartialSuccess
	}

	report, ok := value.(map[string]any)
	if !ok {
		return nil, Failure, fmt.Errorf("%w: report is not an object", errorutil.ErrDataIntegrity)
	}
	return Report(report), result, nil
}
