package crashreport

import (
	"errors"

	"github.com/google/uuid"

	"github.com/bitdrift/crashreport/internal/reportwriter"
)

type sliceCursor struct {
	frames []uint64
	pos    int
}

func (c *sliceCursor) Advance() bool {
	if c.pos >= len(c.frames) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Address() uint64 {
	return c.frames[c.pos-1]
}

func (c *sliceCursor) reset() {
	c.pos = 0
}

// loopCursor never runs out of frames, like a cyclic stack.
type loopCursor struct{}

func (loopCursor) Advance() bool   { return true }
func (loopCursor) Address() uint64 { return 0xdead }

type fakeThread struct {
	id       ThreadID
	name     string
	queue    string
	cursor   StackCursor
	noCursor bool
}

type fakeMonitor struct {
	threads   []fakeThread
	offending ThreadID
	current   ThreadID
	onName    func()
}

func (m *fakeMonitor) ThreadCount() int            { return len(m.threads) }
func (m *fakeMonitor) ThreadAt(index int) ThreadID { return m.threads[index].id }
func (m *fakeMonitor) OffendingThread() ThreadID   { return m.offending }
func (m *fakeMonitor) CurrentThread() ThreadID     { return m.current }

func (m *fakeMonitor) OffendingCursor() StackCursor {
	if t := m.thread(m.offending); t != nil && !t.noCursor {
		return t.cursor
	}
	return nil
}

func (m *fakeMonitor) NewCursor(thread ThreadID, maxFrames int) (StackCursor, bool) {
	t := m.thread(thread)
	if t == nil || t.noCursor {
		return nil, false
	}
	return t.cursor, true
}

func (m *fakeMonitor) ThreadName(thread ThreadID) (string, bool) {
	if m.onName != nil {
		m.onName()
	}
	t := m.thread(thread)
	if t == nil || t.name == "" {
		return "", false
	}
	return t.name, true
}

func (m *fakeMonitor) QueueName(thread ThreadID) (string, bool) {
	t := m.thread(thread)
	if t == nil || t.queue == "" {
		return "", false
	}
	return t.queue, true
}

func (m *fakeMonitor) thread(id ThreadID) *fakeThread {
	for i := range m.threads {
		if m.threads[i].id == id {
			return &m.threads[i]
		}
	}
	return nil
}

func (m *fakeMonitor) rewind() {
	for _, t := range m.threads {
		if c, ok := t.cursor.(*sliceCursor); ok {
			c.reset()
		}
	}
}

type fakeImage struct {
	path    string
	base    uint64
	size    uint64
	uuid    uuid.UUID
	hasUUID bool
}

// fakeSymbolicator resolves every address inside an image to a symbol 0x10
// bytes below it.
type fakeSymbolicator struct {
	images []fakeImage
}

func (s *fakeSymbolicator) Lookup(address uint64, info *SymbolInfo) bool {
	for _, img := range s.images {
		if address >= img.base && address < img.base+img.size {
			info.BinaryPath = img.path
			info.BinaryBase = img.base
			info.SymbolAddress = address - 0x10
			return true
		}
	}
	return false
}

func (s *fakeSymbolicator) BinaryImage(base uint64, path string, image *BinaryImage) bool {
	for _, img := range s.images {
		if img.base == base && img.path == path && img.hasUUID {
			image.Name = path
			image.Base = base
			image.UUID = img.uuid
			return true
		}
	}
	return false
}

var errInjected = errors.New("injected failure")

// failingWriter fails the call numbered failAt and counts every call it
// receives.
type failingWriter struct {
	reportwriter.Writer
	calls  int
	failAt int
}

func (w *failingWriter) step() error {
	w.calls++
	if w.calls == w.failAt {
		return errInjected
	}
	return nil
}

func (w *failingWriter) AddBoolean(key string, value bool) error {
	if err := w.step(); err != nil {
		return err
	}
	return w.Writer.AddBoolean(key, value)
}

func (w *failingWriter) AddInteger(key string, value int64) error {
	if err := w.step(); err != nil {
		return err
	}
	return w.Writer.AddInteger(key, value)
}

func (w *failingWriter) AddUnsigned(key string, value uint64) error {
	if err := w.step(); err != nil {
		return err
	}
	return w.Writer.AddUnsigned(key, value)
}

func (w *failingWriter) AddFloat(key string, value float64) error {
	if err := w.step(); err != nil {
		return err
	}
	return w.Writer.AddFloat(key, value)
}

func (w *failingWriter) AddString(key string, value string) error {
	if err := w.step(); err != nil {
		return err
	}
	return w.Writer.AddString(key, value)
}

func (w *failingWriter) AddNull(key string) error {
	if err := w.step(); err != nil {
		return err
	}
	return w.Writer.AddNull(key)
}

func (w *failingWriter) AddUUID(key string, value *[16]byte) error {
	if err := w.step(); err != nil {
		return err
	}
	return w.Writer.AddUUID(key, value)
}

func (w *failingWriter) BeginObject(key string) error {
	if err := w.step(); err != nil {
		return err
	}
	return w.Writer.BeginObject(key)
}

func (w *failingWriter) BeginArray(key string) error {
	if err := w.step(); err != nil {
		return err
	}
	return w.Writer.BeginArray(key)
}

func (w *failingWriter) EndContainer() error {
	if err := w.step(); err != nil {
		return err
	}
	return w.Writer.EndContainer()
}
