// Package goruntime provides the crash collaborators for a Go process: a
// monitor built from the runtime's goroutine state and a symbolicator for
// the running executable.
package goruntime

import (
	"runtime"
	"strconv"
	"strings"

	"github.com/bitdrift/crashreport/internal/crashreport"
)

const (
	minDumpSize = 64 << 10
	maxDumpSize = 16 << 20
)

type goroutine struct {
	id    crashreport.ThreadID
	name  string
	state string
}

// Monitor is the goroutine state of the process at the time Capture was
// called. Only the capturing goroutine has a stack; the stacks of other
// goroutines cannot be walked from outside.
type Monitor struct {
	current    crashreport.ThreadID
	pcs        [crashreport.StackOverflowThreshold]uintptr
	cursor     pcCursor
	goroutines []goroutine
}

// Capture records the calling goroutine's stack, skipping skip frames above
// the caller, and lists every goroutine in the process.
func Capture(skip int) *Monitor {
	m := &Monitor{}
	n := runtime.Callers(skip+2, m.pcs[:])
	m.cursor = pcCursor{pcs: m.pcs[:n]}

	m.goroutines = parseGoroutines(stackDump())
	if len(m.goroutines) > 0 {
		// The dump always starts with the calling goroutine.
		m.current = m.goroutines[0].id
	}
	return m
}

func (m *Monitor) ThreadCount() int {
	return len(m.goroutines)
}

func (m *Monitor) ThreadAt(index int) crashreport.ThreadID {
	return m.goroutines[index].id
}

func (m *Monitor) OffendingThread() crashreport.ThreadID {
	return m.current
}

func (m *Monitor) CurrentThread() crashreport.ThreadID {
	return m.current
}

func (m *Monitor) OffendingCursor() crashreport.StackCursor {
	m.cursor.pos = 0
	return &m.cursor
}

func (m *Monitor) NewCursor(thread crashreport.ThreadID, maxFrames int) (crashreport.StackCursor, bool) {
	return nil, false
}

func (m *Monitor) ThreadName(thread crashreport.ThreadID) (string, bool) {
	if g := m.lookup(thread); g != nil {
		return g.name, true
	}
	return "", false
}

// QueueName reports what the goroutine was waiting on.
func (m *Monitor) QueueName(thread crashreport.ThreadID) (string, bool) {
	if g := m.lookup(thread); g != nil && g.state != "" {
		return g.state, true
	}
	return "", false
}

func (m *Monitor) lookup(thread crashreport.ThreadID) *goroutine {
	for i := range m.goroutines {
		if m.goroutines[i].id == thread {
			return &m.goroutines[i]
		}
	}
	return nil
}

type pcCursor struct {
	pcs []uintptr
	pos int
}

func (c *pcCursor) Advance() bool {
	if c.pos >= len(c.pcs) {
		return false
	}
	c.pos++
	return true
}

func (c *pcCursor) Address() uint64 {
	return uint64(c.pcs[c.pos-1])
}

func stackDump() []byte {
	buf := make([]byte, minDumpSize)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) || len(buf) >= maxDumpSize {
			return buf[:n]
		}
		buf = make([]byte, 2*len(buf))
	}
}

// parseGoroutines reads the goroutine headers of a runtime.Stack dump, such
// as "goroutine 7 [chan receive, 2 minutes]:".
func parseGoroutines(dump []byte) []goroutine {
	var goroutines []goroutine
	for _, line := range strings.Split(string(dump), "\n") {
		rest, ok := strings.CutPrefix(line, "goroutine ")
		if !ok {
			continue
		}
		rawID, rest, ok := strings.Cut(rest, " ")
		if !ok {
			continue
		}
		id, err := strconv.ParseUint(rawID, 10, 64)
		if err != nil {
			continue
		}
		// Tracebacks at system level put scheduler details before the state.
		_, rest, ok = strings.Cut(rest, "[")
		if !ok {
			continue
		}
		state, _, ok := strings.Cut(rest, "]")
		if !ok {
			continue
		}
		state, _, _ = strings.Cut(state, ",")
		goroutines = append(goroutines, goroutine{
			id:    crashreport.ThreadID(id),
			name:  "goroutine " + rawID,
			state: strings.TrimSpace(state),
		})
	}
	return goroutines
}
