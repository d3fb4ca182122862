// Package crashreport turns a crash snapshot into a report document.
package crashreport

import (
	"strings"

	"github.com/bitdrift/crashreport/internal/reportwriter"
)

// StackOverflowThreshold bounds the number of frames written per thread so
// a corrupted or cyclic stack cannot stall the handler.
const StackOverflowThreshold = 150

// Document keys.
const (
	keyDiagnosticMetaData = "diagnosticMetaData"
	keyThreads            = "threads"
	keyBacktrace          = "backtrace"
	keyContents           = "contents"
	keySkipped            = "skipped"
	keyIndex              = "index"
	keyName               = "name"
	keyDispatchQueue      = "dispatchQueue"
	keyCrashed            = "crashed"
	keyCurrentThread      = "currentThread"
	keyAddress            = "address"
	keyBinaryName         = "binaryName"
	keyBinaryOffset       = "offsetIntoBinaryTextSegment"
	keyBinaryUUID         = "binaryUUID"
	keyCrashedAt          = "crashedAt"
	keyPID                = "pid"
	keyExceptionType      = "exceptionType"
	keyExceptionCode      = "exceptionCode"
	keySignal             = "signal"
)

// scratch is the lookup storage an assembly writes into.
type scratch struct {
	symbol SymbolInfo
	image  BinaryImage
}

type assembler struct {
	w  reportwriter.Writer
	s  *Snapshot
	sc *scratch
}

// assemble writes the whole report. Any failure aborts the document.
func assemble(w reportwriter.Writer, s *Snapshot, sc *scratch) error {
	a := assembler{w: w, s: s, sc: sc}
	return a.report()
}

func (a *assembler) report() error {
	if err := a.w.BeginObject(reportwriter.NoKey); err != nil {
		return err
	}
	if err := a.w.BeginObject(keyDiagnosticMetaData); err != nil {
		return err
	}
	if err := a.metadata(); err != nil {
		return err
	}
	if err := a.w.EndContainer(); err != nil {
		return err
	}
	if err := a.w.BeginArray(keyThreads); err != nil {
		return err
	}
	if err := a.threads(); err != nil {
		return err
	}
	if err := a.w.EndContainer(); err != nil {
		return err
	}
	return a.w.EndContainer()
}

func (a *assembler) metadata() error {
	crashedAt := a.s.CrashedAt.Unix()
	if crashedAt < 0 {
		crashedAt = 0
	}
	if err := a.w.AddUnsigned(keyCrashedAt, uint64(crashedAt)); err != nil {
		return err
	}
	if err := a.w.AddUnsigned(keyPID, uint64(a.s.PID)); err != nil {
		return err
	}
	if err := a.w.AddUnsigned(keyExceptionType, a.s.Exception.Type); err != nil {
		return err
	}
	if err := a.w.AddUnsigned(keyExceptionCode, a.s.Exception.Code); err != nil {
		return err
	}
	if err := a.w.AddUnsigned(keySignal, a.s.Exception.Signal); err != nil {
		return err
	}

	m := &a.s.Metadata
	optional := [...]struct {
		key   string
		value string
	}{
		{"appBuildVersion", m.AppBuildVersion},
		{"appVersion", m.AppVersion},
		{"bundleIdentifier", m.BundleIdentifier},
		{"deviceType", m.DeviceType},
		{"machine", m.Machine},
		{"osVersion", m.OSVersion},
		{"osBuild", m.OSBuild},
		{"regionFormat", m.RegionFormat},
	}
	for _, field := range optional {
		if field.value == "" {
			continue
		}
		if err := a.w.AddString(field.key, field.value); err != nil {
			return err
		}
	}
	return nil
}

func (a *assembler) threads() error {
	monitor := a.s.Monitor
	if monitor == nil {
		return nil
	}
	offending := monitor.OffendingThread()
	current := monitor.CurrentThread()
	for i, count := 0, monitor.ThreadCount(); i < count; i++ {
		thread := monitor.ThreadAt(i)
		crashed := thread == offending

		var cursor StackCursor
		var ok bool
		if crashed {
			cursor = monitor.OffendingCursor()
			ok = cursor != nil
		} else {
			cursor, ok = monitor.NewCursor(thread, StackOverflowThreshold)
		}

		if err := a.w.BeginObject(reportwriter.NoKey); err != nil {
			return err
		}
		if ok {
			if err := a.backtrace(cursor); err != nil {
				return err
			}
		}
		if err := a.w.AddInteger(keyIndex, int64(i)); err != nil {
			return err
		}
		if name, ok := monitor.ThreadName(thread); ok {
			if err := a.w.AddString(keyName, name); err != nil {
				return err
			}
		}
		if queue, ok := monitor.QueueName(thread); ok {
			if err := a.w.AddString(keyDispatchQueue, queue); err != nil {
				return err
			}
		}
		if err := a.w.AddBoolean(keyCrashed, crashed); err != nil {
			return err
		}
		if err := a.w.AddBoolean(keyCurrentThread, thread == current); err != nil {
			return err
		}
		if err := a.w.EndContainer(); err != nil {
			return err
		}
	}
	return nil
}

func (a *assembler) backtrace(cursor StackCursor) error {
	if err := a.w.BeginObject(keyBacktrace); err != nil {
		return err
	}
	if err := a.w.BeginArray(keyContents); err != nil {
		return err
	}
	for frames := 0; frames < StackOverflowThreshold && cursor.Advance(); frames++ {
		if err := a.frame(cursor.Address()); err != nil {
			return err
		}
	}
	if err := a.w.EndContainer(); err != nil {
		return err
	}
	// Reserved for truncation accounting.
	if err := a.w.AddUnsigned(keySkipped, 0); err != nil {
		return err
	}
	return a.w.EndContainer()
}

func (a *assembler) frame(address uint64) error {
	if err := a.w.BeginObject(reportwriter.NoKey); err != nil {
		return err
	}
	if err := a.w.AddUnsigned(keyAddress, address); err != nil {
		return err
	}
	if sym := a.s.Symbolicator; sym != nil && sym.Lookup(address, &a.sc.symbol) {
		info := &a.sc.symbol
		if err := a.w.AddString(keyBinaryName, lastPathEntry(info.BinaryPath)); err != nil {
			return err
		}
		if err := a.w.AddUnsigned(keyBinaryOffset, info.SymbolAddress-info.BinaryBase); err != nil {
			return err
		}
		if sym.BinaryImage(info.BinaryBase, info.BinaryPath, &a.sc.image) {
			if err := a.w.AddUUID(keyBinaryUUID, (*[16]byte)(&a.sc.image.UUID)); err != nil {
				return err
			}
		}
	}
	return a.w.EndContainer()
}

func lastPathEntry(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
