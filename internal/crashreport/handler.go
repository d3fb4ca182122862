package crashreport

import (
	"errors"
	"io"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/bitdrift/crashreport/internal/filesink"
	"github.com/bitdrift/crashreport/internal/reportwriter"
)

// ErrAlreadyHandling is returned when a crash arrives while another report
// is being written. The second crash is dropped.
var ErrAlreadyHandling = errors.New("crashreport: a crash is already being handled")

const sinkBufferSize = 1024

// Handler writes crash reports to a fixed path. Everything a report needs is
// allocated by NewHandler, ahead of any crash. A Handler is meant to live for
// the whole process.
type Handler struct {
	path     string
	handling atomic.Bool

	buffer  [sinkBufferSize]byte
	sink    filesink.BufferedWriter
	writer  reportwriter.BONJSONWriter
	scratch scratch
}

func NewHandler(path string) *Handler {
	return &Handler{path: path}
}

// Path returns where reports are written.
func (h *Handler) Path() string {
	return h.path
}

// Handle writes the report for s, replacing any report already at the
// handler's path. Only one report is written at a time; a crash that
// arrives during another one gets ErrAlreadyHandling.
func (h *Handler) Handle(s *Snapshot) error {
	if !h.handling.CompareAndSwap(false, true) {
		return ErrAlreadyHandling
	}
	defer h.handling.Store(false)

	if err := h.sink.Open(h.path, h.buffer[:]); err != nil {
		log.Error().Err(err).Str("path", h.path).Msg("could not open crash report")
		return err
	}
	h.writer.Begin(&h.sink)
	err := assemble(&h.writer, s, &h.scratch)
	if endErr := h.writer.End(); err == nil {
		err = endErr
	}
	if closeErr := h.sink.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		log.Error().Err(err).Str("path", h.path).Msg("could not write crash report")
	}
	return err
}

// WriteReport writes the report for s to path. It is the one-off form of
// Handler.Handle for callers that did not arm a handler in advance.
func WriteReport(s *Snapshot, path string) error {
	return NewHandler(path).Handle(s)
}

// WriteDebug renders the report for s as readable text.
func WriteDebug(s *Snapshot, out io.Writer) error {
	return assemble(reportwriter.NewPrintWriter(out), s, &scratch{})
}
