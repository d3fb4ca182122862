package filesink

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteBuffersAndFlushes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.bjn")
	w, err := Create(path, 8)
	if err != nil {
		t.Fatalf("we should be able to create the file: %v", err)
	}
	chunks := [][]byte{
		[]byte("abc"),
		[]byte("defgh"),
		[]byte("i"),
		[]byte("0123456789abcdef"),
		[]byte("xyz"),
	}
	var want []byte
	for _, chunk := range chunks {
		n, err := w.Write(chunk)
		if err != nil {
			t.Fatalf("we should be able to write: %v", err)
		}
		if n != len(chunk) {
			t.Fatalf("expected %d bytes written, got %d", len(chunk), n)
		}
		want = append(want, chunk...)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("we should be able to close: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestOpenReplacesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.bjn")
	if err := os.WriteFile(path, bytes.Repeat([]byte{0xff}, 4096), 0o600); err != nil {
		t.Fatal(err)
	}
	var w BufferedWriter
	if err := w.Open(path, make([]byte, 64)); err != nil {
		t.Fatalf("we should be able to open over a stale file: %v", err)
	}
	if _, err := w.Write([]byte("fresh")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "fresh" {
		t.Fatalf("expected only the new report, got %q", got)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm&0o600 != 0o600 {
		t.Fatalf("expected the file to be readable and writable by its owner, got %v", perm)
	}
}

func TestOpenFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "report.bjn")
	var w BufferedWriter
	if err := w.Open(path, make([]byte, 64)); err == nil {
		t.Fatal("expected an error for a missing directory")
	}
	if _, err := w.Write([]byte("x")); err == nil {
		t.Fatal("expected writes to fail after a failed open")
	}
}

func TestErrorsAreSticky(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.bjn")
	w, err := Create(path, 4)
	if err != nil {
		t.Fatal(err)
	}
	// Pull the file out from under the writer.
	if err := w.f.Close(); err != nil {
		t.Fatal(err)
	}
	_, first := w.Write([]byte("too long for the buffer"))
	if !errors.Is(first, os.ErrClosed) {
		t.Fatalf("expected os.ErrClosed, got %v", first)
	}
	if _, err := w.Write([]byte("a")); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("expected the error to stick, got %v", err)
	}
	if err := w.Flush(); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("expected Flush to report the error, got %v", err)
	}
}

func TestWriteWithoutOpen(t *testing.T) {
	var w BufferedWriter
	if _, err := w.Write([]byte("x")); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing an unopened writer should be a no-op, got %v", err)
	}
}
