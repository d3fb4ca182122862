package reportwriter

import (
	"io"

	"github.com/rs/zerolog/log"

	"github.com/bitdrift/crashreport/internal/bonjson"
)

// BONJSONWriter is the Writer that produces report files. It is meant to be
// allocated once, ahead of a crash, and reused through Begin.
type BONJSONWriter struct {
	enc   bonjson.Encoder
	depth DepthTracker
	err   error
}

// Begin starts a new document written to sink.
func (w *BONJSONWriter) Begin(sink io.Writer) {
	w.enc.Begin(sink)
	w.depth.Reset()
	w.err = nil
}

// End flushes whatever was encoded and returns the first failure of the
// document, if any. An abandoned document is still flushed so readers can
// recover the part that was written.
func (w *BONJSONWriter) End() error {
	err := w.enc.End()
	if w.err != nil {
		return w.err
	}
	return w.fail(err)
}

// Depth returns the number of open containers.
func (w *BONJSONWriter) Depth() int {
	return w.depth.Depth()
}

func (w *BONJSONWriter) AddBoolean(key string, value bool) error {
	if err := w.addKey(key); err != nil {
		return err
	}
	return w.fail(w.enc.AddBoolean(value))
}

func (w *BONJSONWriter) AddInteger(key string, value int64) error {
	if err := w.addKey(key); err != nil {
		return err
	}
	return w.fail(w.enc.AddSigned(value))
}

func (w *BONJSONWriter) AddUnsigned(key string, value uint64) error {
	if err := w.addKey(key); err != nil {
		return err
	}
	return w.fail(w.enc.AddUnsigned(value))
}

func (w *BONJSONWriter) AddFloat(key string, value float64) error {
	if err := w.addKey(key); err != nil {
		return err
	}
	return w.fail(w.enc.AddFloat(value))
}

func (w *BONJSONWriter) AddString(key string, value string) error {
	if err := w.addKey(key); err != nil {
		return err
	}
	return w.fail(w.enc.AddString(value))
}

func (w *BONJSONWriter) AddNull(key string) error {
	if err := w.addKey(key); err != nil {
		return err
	}
	return w.fail(w.enc.AddNull())
}

func (w *BONJSONWriter) AddUUID(key string, value *[16]byte) error {
	if value == nil {
		return w.AddNull(key)
	}
	if err := w.addKey(key); err != nil {
		return err
	}
	var text [UUIDLength]byte
	FormatUUID(&text, value)
	return w.fail(w.enc.AddStringBytes(text[:]))
}

func (w *BONJSONWriter) BeginObject(key string) error {
	return w.begin(key, false)
}

func (w *BONJSONWriter) BeginArray(key string) error {
	return w.begin(key, true)
}

func (w *BONJSONWriter) EndContainer() error {
	if w.err != nil {
		return w.err
	}
	if err := w.fail(w.enc.EndContainer()); err != nil {
		return err
	}
	w.depth.Leave()
	return nil
}

// begin checks capacity before writing anything, so an overflow leaves the
// bytes of the enclosing containers untouched.
func (w *BONJSONWriter) begin(key string, isArray bool) error {
	if w.err != nil {
		return w.err
	}
	if w.depth.Full() {
		return w.fail(ErrDepthOverflow)
	}
	if err := w.addKey(key); err != nil {
		return err
	}
	var err error
	if isArray {
		err = w.enc.BeginArray()
	} else {
		err = w.enc.BeginObject()
	}
	if err != nil {
		return w.fail(err)
	}
	return w.fail(w.depth.Enter(isArray))
}

func (w *BONJSONWriter) addKey(key string) error {
	if w.err != nil {
		return w.err
	}
	if !w.depth.InObject() {
		return nil
	}
	if key == NoKey {
		key = nullKey
	}
	return w.fail(w.enc.AddString(key))
}

// fail records the first error of the document.
func (w *BONJSONWriter) fail(err error) error {
	if err == nil {
		return nil
	}
	if w.err == nil {
		w.err = err
		log.Error().Err(err).Int("depth", w.depth.Depth()).Msg("could not write report element")
	}
	return w.err
}
