package reportwriter

import (
	"errors"
	"math/rand"
	"testing"
)

func TestDepthTrackerBalancedSequences(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		var d DepthTracker
		var opened []bool
		for step := 0; step < 500; step++ {
			if len(opened) < MaxDepth && (len(opened) == 0 || r.Intn(2) == 0) {
				isArray := r.Intn(2) == 0
				if err := d.Enter(isArray); err != nil {
					t.Fatalf("run %d: unexpected error at depth %d: %v", run, d.Depth(), err)
				}
				opened = append(opened, isArray)
				continue
			}
			want := opened[len(opened)-1]
			opened = opened[:len(opened)-1]
			if got := d.Leave(); got != want {
				t.Fatalf("run %d: leave reported isArray=%v, want %v", run, got, want)
			}
		}
		for len(opened) > 0 {
			want := opened[len(opened)-1]
			opened = opened[:len(opened)-1]
			if got := d.Leave(); got != want {
				t.Fatalf("run %d: leave reported isArray=%v, want %v", run, got, want)
			}
		}
		if d.Depth() != 0 {
			t.Fatalf("run %d: expected depth 0, got %d", run, d.Depth())
		}
	}
}

func TestDepthTrackerOverflow(t *testing.T) {
	var d DepthTracker
	for i := 0; i < MaxDepth; i++ {
		if err := d.Enter(i%2 == 0); err != nil {
			t.Fatalf("we should be able to enter level %d: %v", i+1, err)
		}
	}
	if !d.Full() {
		t.Fatal("expected the tracker to be full")
	}
	if err := d.Enter(true); !errors.Is(err, ErrDepthOverflow) {
		t.Fatalf("expected ErrDepthOverflow, got %v", err)
	}
	if d.Depth() != MaxDepth {
		t.Fatalf("expected depth to stay at %d, got %d", MaxDepth, d.Depth())
	}
	if d.InArray() {
		t.Fatal("a failed enter should not change the current context")
	}
}

func TestDepthTrackerLeaveAtTopLevel(t *testing.T) {
	var d DepthTracker
	if d.Leave() {
		t.Fatal("the top level is not an array")
	}
	if d.Depth() != 0 {
		t.Fatalf("expected depth 0, got %d", d.Depth())
	}
	if d.InObject() {
		t.Fatal("the top level is not an object context")
	}
}
