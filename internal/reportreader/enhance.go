package reportreader

import (
	"fmt"
	"math"
	"strconv"

	gojson "github.com/goccy/go-json"

	"github.com/bitdrift/crashreport/internal/errorutil"
)

// NamedThread is a thread from a crash report that has a name and a stack.
// Count is how many threads in the report share the name.
type NamedThread struct {
	Name      string
	CallStack []uint64
	Count     int
}

// matchedMetadataKeys must agree between two reports for them to describe the
// same crash.
var matchedMetadataKeys = []string{"exceptionType", "exceptionCode", "signal", "pid"}

// NamedThreads lists the named threads of report with a non-empty backtrace,
// in report order. Threads sharing a name are merged; the first one's stack
// is kept.
func NamedThreads(report Report) ([]NamedThread, error) {
	threads, ok := report["threads"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: report is missing the threads array", errorutil.ErrDataIntegrity)
	}

	var named []NamedThread
	for _, t := range threads {
		thread, ok := t.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: thread is not an object", errorutil.ErrDataIntegrity)
		}
		name, ok := thread["name"].(string)
		if !ok {
			continue
		}
		stack, err := reportCallStack(thread)
		if err != nil {
			return nil, err
		}
		if len(stack) == 0 {
			continue
		}
		merged := false
		for i := range named {
			if named[i].Name == name {
				named[i].Count++
				merged = true
				break
			}
		}
		if !merged {
			named = append(named, NamedThread{Name: name, CallStack: stack, Count: 1})
		}
	}
	return named, nil
}

// reportCallStack returns the frame addresses of a report thread. A thread
// written without a backtrace has none.
func reportCallStack(thread map[string]any) ([]uint64, error) {
	rawBacktrace, ok := thread["backtrace"]
	if !ok {
		return nil, nil
	}
	backtrace, ok := rawBacktrace.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: backtrace is not an object", errorutil.ErrDataIntegrity)
	}
	contents, ok := backtrace["contents"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: backtrace is missing the contents array", errorutil.ErrDataIntegrity)
	}

	stack := make([]uint64, 0, len(contents))
	for _, f := range contents {
		frame, ok := f.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: frame is not an object", errorutil.ErrDataIntegrity)
		}
		rawAddress, ok := frame["address"]
		if !ok {
			return nil, fmt.Errorf("%w: frame is missing its address", errorutil.ErrDataIntegrity)
		}
		address, err := parseAddress(rawAddress)
		if err != nil {
			return nil, err
		}
		stack = append(stack, address)
	}
	return stack, nil
}

// EnhanceMetricKitReport returns a copy of metricKit where every call stack
// that matches a named thread of report carries that thread's name. It
// reports false when the two reports describe different crashes or report
// has no named threads. metricKit is not modified.
func EnhanceMetricKitReport(metricKit map[string]any, report Report) (map[string]any, bool, error) {
	if !sameCrash(metricKit, report) {
		return nil, false, nil
	}
	named, err := NamedThreads(report)
	if err != nil {
		return nil, false, err
	}
	if len(named) == 0 {
		return nil, false, nil
	}

	enhanced := cloneValue(metricKit).(map[string]any)
	tree, ok := enhanced["callStackTree"].(map[string]any)
	if !ok {
		return nil, false, fmt.Errorf("%w: MetricKit report is missing callStackTree", errorutil.ErrDataIntegrity)
	}
	callStacks, ok := tree["callStacks"].([]any)
	if !ok {
		return nil, false, fmt.Errorf("%w: callStackTree is missing callStacks", errorutil.ErrDataIntegrity)
	}

	used := make(map[string]int, len(named))
	for _, cs := range callStacks {
		callStack, ok := cs.(map[string]any)
		if !ok {
			return nil, false, fmt.Errorf("%w: call stack is not an object", errorutil.ErrDataIntegrity)
		}
		addresses, err := metricKitCallStack(callStack)
		if err != nil {
			return nil, false, err
		}
		if len(addresses) == 0 {
			continue
		}
		if match := findNamedThread(addresses, named, used); match != nil {
			used[match.Name]++
			callStack["name"] = match.Name
		}
	}
	return enhanced, true, nil
}

func sameCrash(metricKit map[string]any, report Report) bool {
	a, okA := metricKit["diagnosticMetaData"].(map[string]any)
	b, okB := report["diagnosticMetaData"].(map[string]any)
	if !okA || !okB {
		return false
	}
	for _, key := range matchedMetadataKeys {
		if !sameValue(a[key], b[key]) {
			return false
		}
	}
	return true
}

// metricKitCallStack flattens the first root frame of a MetricKit call stack
// depth first. MetricKit adds a root frame in-process reporters never see, so
// the last address is dropped.
func metricKitCallStack(callStack map[string]any) ([]uint64, error) {
	roots, ok := callStack["callStackRootFrames"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: call stack is missing callStackRootFrames", errorutil.ErrDataIntegrity)
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("%w: callStackRootFrames is empty", errorutil.ErrDataIntegrity)
	}
	root, ok := roots[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: root frame is not an object", errorutil.ErrDataIntegrity)
	}

	var addresses []uint64
	if err := flattenFrame(root, &addresses); err != nil {
		return nil, err
	}
	if len(addresses) > 0 {
		addresses = addresses[:len(addresses)-1]
	}
	return addresses, nil
}

func flattenFrame(frame map[string]any, addresses *[]uint64) error {
	rawAddress, ok := frame["address"]
	if !ok {
		return fmt.Errorf("%w: MetricKit frame is missing its address", errorutil.ErrDataIntegrity)
	}
	address, err := parseAddress(rawAddress)
	if err != nil {
		return err
	}
	*addresses = append(*addresses, address)

	subFrames, _ := frame["subFrames"].([]any)
	for _, sf := range subFrames {
		if sub, ok := sf.(map[string]any); ok {
			if err := flattenFrame(sub, addresses); err != nil {
				return err
			}
		}
	}
	return nil
}

func findNamedThread(stack []uint64, named []NamedThread, used map[string]int) *NamedThread {
	for i := range named {
		if used[named[i].Name] >= named[i].Count {
			continue
		}
		if equalStacks(stack, named[i].CallStack) {
			return &named[i]
		}
	}
	return nil
}

func equalStacks(a, b []uint64) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// parseAddress accepts the integer forms produced by the report decoder and
// by JSON decoding.
func parseAddress(v any) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("%w: address %d is negative", errorutil.ErrDataIntegrity, n)
		}
		return uint64(n), nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("%w: address %d is negative", errorutil.ErrDataIntegrity, n)
		}
		return uint64(n), nil
	case float64:
		if n < 0 || n != math.Trunc(n) || n >= math.MaxUint64 {
			return 0, fmt.Errorf("%w: address %v is not an unsigned integer", errorutil.ErrDataIntegrity, n)
		}
		return uint64(n), nil
	case gojson.Number:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: address %s: %v", errorutil.ErrDataIntegrity, n, err)
		}
		return u, nil
	}
	return 0, fmt.Errorf("%w: address has type %T", errorutil.ErrDataIntegrity, v)
}

// sameValue compares metadata values across decoders, treating numbers by
// value.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	x, errA := parseNumber(a)
	y, errB := parseNumber(b)
	if errA == nil && errB == nil {
		return x == y
	}
	if errA == nil || errB == nil {
		return false
	}
	switch a.(type) {
	case string, bool:
		return a == b
	}
	return false
}

type number struct {
	negative  bool
	magnitude uint64
}

func parseNumber(v any) (number, error) {
	switch n := v.(type) {
	case int64:
		if n < 0 {
			return number{negative: true, magnitude: uint64(-(n + 1)) + 1}, nil
		}
	case int:
		if n < 0 {
			return number{negative: true, magnitude: uint64(-(int64(n) + 1)) + 1}, nil
		}
	case float64:
		if n < 0 && n == math.Trunc(n) && n > -math.MaxInt64 {
			return number{negative: true, magnitude: uint64(-n)}, nil
		}
	case gojson.Number:
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil && i < 0 {
			return number{negative: true, magnitude: uint64(-(i + 1)) + 1}, nil
		}
	}
	u, err := parseAddress(v)
	return number{magnitude: u}, err
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}
