package goruntime

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/bitdrift/crashreport/internal/bonjson"
	"github.com/bitdrift/crashreport/internal/crashreport"
)

var sink int

func crashWithNilPointer(h *crashreport.Handler, template *crashreport.Snapshot) {
	defer Guard(h, template)
	var p *int
	sink = *p
}

func TestGuardWritesReportAndRepanics(t *testing.T) {
	symbolicator, err := NewSymbolicator()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "panic.bjn")
	h := crashreport.NewHandler(path)
	template := &crashreport.Snapshot{
		Metadata:     crashreport.Metadata{AppVersion: "1.0.0"},
		Symbolicator: symbolicator,
	}

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		crashWithNilPointer(h, template)
	}()
	if recovered == nil {
		t.Fatal("expected the panic to continue after the report")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected a report to be written: %v", err)
	}
	decoded, err := bonjson.Decode(data)
	if err != nil {
		t.Fatalf("we should be able to decode the report: %v", err)
	}
	doc := decoded.(map[string]any)
	meta := doc["diagnosticMetaData"].(map[string]any)
	if meta["signal"] != int64(SignalSegmentation) {
		t.Fatalf("expected signal %d, got %v", SignalSegmentation, meta["signal"])
	}
	if meta["pid"] != int64(os.Getpid()) {
		t.Fatalf("expected pid %d, got %v", os.Getpid(), meta["pid"])
	}
	if meta["appVersion"] != "1.0.0" {
		t.Fatalf("expected the template metadata, got %v", meta["appVersion"])
	}

	first := doc["threads"].([]any)[0].(map[string]any)
	if first["crashed"] != true || first["currentThread"] != true {
		t.Fatalf("expected the first thread to be the crashed one, got %v", first)
	}
	if name, _ := first["name"].(string); !strings.HasPrefix(name, "goroutine ") {
		t.Fatalf("expected a goroutine name, got %v", first["name"])
	}
	contents := first["backtrace"].(map[string]any)["contents"].([]any)
	if len(contents) == 0 {
		t.Fatal("expected the panicking stack to be written")
	}
	frame := contents[0].(map[string]any)
	if _, ok := frame["binaryName"]; !ok {
		t.Fatalf("expected the first frame to resolve, got %v", frame)
	}
}

func TestGuardWithoutTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panic.bjn")
	h := crashreport.NewHandler(path)

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		crashWithNilPointer(h, nil)
	}()
	if _, ok := recovered.(runtime.Error); !ok {
		t.Fatalf("expected the nil dereference to continue after the report, got %v", recovered)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected a report to be written: %v", err)
	}
	decoded, err := bonjson.Decode(data)
	if err != nil {
		t.Fatalf("we should be able to decode the report: %v", err)
	}
	meta := decoded.(map[string]any)["diagnosticMetaData"].(map[string]any)
	if meta["pid"] != int64(os.Getpid()) {
		t.Fatalf("expected pid %d, got %v", os.Getpid(), meta["pid"])
	}
	if _, ok := meta["appVersion"]; ok {
		t.Fatalf("expected no metadata strings, got %v", meta)
	}
}

func TestGuardWithoutPanic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panic.bjn")
	h := crashreport.NewHandler(path)
	func() {
		defer Guard(h, &crashreport.Snapshot{})
	}()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no report without a panic, got %v", err)
	}
}

func TestExceptionFor(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  uint64
	}{
		{name: "plain value", value: "boom", want: SignalAbort},
		{name: "error", value: errors.New("boom"), want: SignalAbort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exceptionFor(tt.value).Signal; got != tt.want {
				t.Fatalf("expected signal %d, got %d", tt.want, got)
			}
		})
	}
}
