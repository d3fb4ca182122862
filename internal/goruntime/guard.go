package goruntime

import (
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bitdrift/crashreport/internal/crashreport"
)

// Signal numbers recorded for panics, matching the signals the runtime would
// have raised for the same fault.
const (
	SignalAbort        = 6
	SignalSegmentation = 11
)

// Snapshot fills in the current process: pid, time and a fresh Monitor,
// skipping skip frames above the caller. The other fields are copied from
// template, which may be nil.
func Snapshot(template *crashreport.Snapshot, skip int) *crashreport.Snapshot {
	var s crashreport.Snapshot
	if template != nil {
		s = *template
	}
	s.PID = os.Getpid()
	s.CrashedAt = time.Now()
	s.Monitor = Capture(skip + 1)
	return &s
}

// Guard writes a crash report when the goroutine it is deferred in panics,
// then resumes the panic. A nil template reports the process without
// metadata:
//
//	defer goruntime.Guard(handler, &template)
func Guard(h *crashreport.Handler, template *crashreport.Snapshot) {
	r := recover()
	if r == nil {
		return
	}
	// Start at runtime.gopanic so the frames below it are the panicking
	// code.
	s := Snapshot(template, 1)
	s.Exception = exceptionFor(r)
	if err := h.Handle(s); err != nil {
		log.Error().Err(err).Str("path", h.Path()).Msg("could not write panic report")
	}
	panic(r)
}

func exceptionFor(r any) crashreport.Exception {
	exception := crashreport.Exception{Signal: SignalAbort}
	if err, ok := r.(runtime.Error); ok {
		message := err.Error()
		if strings.Contains(message, "invalid memory address") || strings.Contains(message, "nil pointer dereference") {
			exception.Signal = SignalSegmentation
		}
	}
	return exception
}
