package reportwriter

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const indentWidth = 4

// PrintWriter renders a report as indented text, one element per line.
type PrintWriter struct {
	out   io.Writer
	depth DepthTracker
	err   error
}

// NewPrintWriter writes to out, or to standard output when out is nil.
func NewPrintWriter(out io.Writer) *PrintWriter {
	if out == nil {
		out = os.Stdout
	}
	return &PrintWriter{out: out}
}

func (w *PrintWriter) AddBoolean(key string, value bool) error {
	return w.line(key, "%t", value)
}

func (w *PrintWriter) AddInteger(key string, value int64) error {
	return w.line(key, "%d", value)
}

func (w *PrintWriter) AddUnsigned(key string, value uint64) error {
	return w.line(key, "%d", value)
}

func (w *PrintWriter) AddFloat(key string, value float64) error {
	return w.line(key, "%f", value)
}

func (w *PrintWriter) AddString(key string, value string) error {
	return w.line(key, "%q", value)
}

func (w *PrintWriter) AddNull(key string) error {
	return w.line(key, "null")
}

func (w *PrintWriter) AddUUID(key string, value *[16]byte) error {
	if value == nil {
		return w.AddNull(key)
	}
	var text [UUIDLength]byte
	FormatUUID(&text, value)
	return w.line(key, "%q", text[:])
}

func (w *PrintWriter) BeginObject(key string) error {
	return w.begin(key, "{", false)
}

func (w *PrintWriter) BeginArray(key string) error {
	return w.begin(key, "[", true)
}

func (w *PrintWriter) EndContainer() error {
	if w.err != nil {
		return w.err
	}
	glyph := "}"
	if w.depth.Leave() {
		glyph = "]"
	}
	return w.write("%s%s\n", w.indent(), glyph)
}

func (w *PrintWriter) begin(key, glyph string, isArray bool) error {
	if w.err == nil && w.depth.Full() {
		w.err = ErrDepthOverflow
	}
	if err := w.line(key, glyph); err != nil {
		return err
	}
	return w.depth.Enter(isArray)
}

func (w *PrintWriter) line(key, format string, args ...any) error {
	if w.err != nil {
		return w.err
	}
	prefix := w.indent()
	if key != NoKey && w.depth.InObject() {
		prefix += key + " = "
	}
	return w.write("%s"+format+"\n", append([]any{prefix}, args...)...)
}

func (w *PrintWriter) indent() string {
	return strings.Repeat(" ", indentWidth*w.depth.Depth())
}

func (w *PrintWriter) write(format string, args ...any) error {
	if _, err := fmt.Fprintf(w.out, format, args...); err != nil {
		w.err = err
	}
	return w.err
}
