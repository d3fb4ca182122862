// Package filesink writes report bytes to a freshly created file through a
// caller owned buffer.
package filesink

import (
	"errors"
	"io/fs"
	"os"
)

// ErrNotOpen is returned when writing to a sink that has no open file.
var ErrNotOpen = errors.New("filesink: no open file")

// BufferedWriter buffers writes to a report file. Each report replaces the
// file at its path; there is no seeking or appending. The first write error
// is sticky.
type BufferedWriter struct {
	f   *os.File
	buf []byte
	n   int
	err error
}

// Create opens path with a newly allocated buffer of size bytes.
func Create(path string, size int) (*BufferedWriter, error) {
	w := &BufferedWriter{}
	if err := w.Open(path, make([]byte, size)); err != nil {
		return nil, err
	}
	return w, nil
}

// Open removes any file at path and creates a new one that buffer-sized
// chunks are written to. A writer that is still open is closed first.
func (w *BufferedWriter) Open(path string, buffer []byte) error {
	if w.f != nil {
		_ = w.Close()
	}
	*w = BufferedWriter{buf: buffer}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		w.err = err
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		w.err = err
		return err
	}
	w.f = f
	return nil
}

func (w *BufferedWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	if w.f == nil {
		return 0, ErrNotOpen
	}
	if len(p) > len(w.buf)-w.n {
		if err := w.Flush(); err != nil {
			return 0, err
		}
	}
	if len(p) >= len(w.buf) {
		n, err := w.f.Write(p)
		if err != nil {
			w.err = err
		}
		return n, err
	}
	w.n += copy(w.buf[w.n:], p)
	return len(p), nil
}

// Flush writes buffered bytes to the file.
func (w *BufferedWriter) Flush() error {
	if w.err != nil {
		return w.err
	}
	if w.f == nil {
		return ErrNotOpen
	}
	if w.n == 0 {
		return nil
	}
	_, err := w.f.Write(w.buf[:w.n])
	w.n = 0
	if err != nil {
		w.err = err
	}
	return err
}

// Close flushes and closes the file, returning the first error the writer
// saw.
func (w *BufferedWriter) Close() error {
	if w.f == nil {
		return w.err
	}
	flushErr := w.Flush()
	closeErr := w.f.Close()
	w.f = nil
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		w.err = closeErr
	}
	return closeErr
}
