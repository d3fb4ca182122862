package reportwriter

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bitdrift/crashreport/internal/testutil"
)

func TestPrintWriter(t *testing.T) {
	var out bytes.Buffer
	w := NewPrintWriter(&out)
	image := [16]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	calls := []func() error{
		func() error { return w.BeginObject(NoKey) },
		func() error { return w.AddString("name", "main") },
		func() error { return w.BeginArray("frames") },
		func() error { return w.AddUnsigned("ignored", 4096) },
		func() error { return w.AddInteger(NoKey, -3) },
		func() error { return w.EndContainer() },
		func() error { return w.AddNull("queue") },
		func() error { return w.AddBoolean("crashed", true) },
		func() error { return w.AddFloat("load", 0.5) },
		func() error { return w.AddUUID("binaryUUID", &image) },
		func() error { return w.EndContainer() },
	}
	for i, call := range calls {
		if err := call(); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}

	want := `{
    name = "main"
    frames = [
        4096
        -3
    ]
    queue = null
    crashed = true
    load = 0.500000
    binaryUUID = "00112233-4455-6677-8899-aabbccddeeff"
}
`
	if diff := testutil.Diff(out.String(), want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestPrintWriterDepthOverflow(t *testing.T) {
	var out bytes.Buffer
	w := NewPrintWriter(&out)
	for i := 0; i < MaxDepth; i++ {
		if err := w.BeginArray(NoKey); err != nil {
			t.Fatalf("we should be able to open level %d: %v", i+1, err)
		}
	}
	before := out.Len()
	if err := w.BeginArray(NoKey); !errors.Is(err, ErrDepthOverflow) {
		t.Fatalf("expected ErrDepthOverflow, got %v", err)
	}
	if out.Len() != before {
		t.Fatal("a refused container should not be printed")
	}
}
