package crashreport

import (
	"time"

	"github.com/google/uuid"
)

// ThreadID identifies a thread for the lifetime of a crash snapshot.
type ThreadID uint64

// StackCursor walks one thread's call stack, one return address per Advance.
type StackCursor interface {
	Advance() bool
	Address() uint64
}

// Monitor exposes the thread state frozen when the crash was detected.
type Monitor interface {
	ThreadCount() int
	ThreadAt(index int) ThreadID
	OffendingThread() ThreadID
	// CurrentThread is the thread running the crash handler.
	CurrentThread() ThreadID
	// OffendingCursor is the stack captured at the fault. It is reused as
	// is rather than walked again.
	OffendingCursor() StackCursor
	// NewCursor starts a fresh walk of thread, bounded to maxFrames. It
	// reports false when the thread's stack cannot be walked.
	NewCursor(thread ThreadID, maxFrames int) (StackCursor, bool)
	ThreadName(thread ThreadID) (string, bool)
	QueueName(thread ThreadID) (string, bool)
}

// SymbolInfo describes the symbol an address belongs to.
type SymbolInfo struct {
	BinaryPath    string
	BinaryBase    uint64
	SymbolAddress uint64
}

// BinaryImage describes a loaded executable or library.
type BinaryImage struct {
	Name string
	Base uint64
	UUID uuid.UUID
}

// Symbolicator resolves addresses to binaries. Both methods fill the value
// passed in and report whether the lookup succeeded, so callers can keep
// the results in preallocated storage.
type Symbolicator interface {
	Lookup(address uint64, info *SymbolInfo) bool
	BinaryImage(base uint64, path string, image *BinaryImage) bool
}

// Exception classifies the fault.
type Exception struct {
	Type   uint64
	Code   uint64
	Signal uint64
}

// Metadata holds optional device and application fields. Empty fields are
// left out of the report.
type Metadata struct {
	AppBuildVersion  string
	AppVersion       string
	BundleIdentifier string
	DeviceType       string
	Machine          string
	OSVersion        string
	OSBuild          string
	RegionFormat     string
}

// Snapshot is the state of a crashed process. It is built once when the
// crash is detected and not modified while the report is written.
type Snapshot struct {
	PID          int
	CrashedAt    time.Time
	Exception    Exception
	Metadata     Metadata
	Monitor      Monitor
	Symbolicator Symbolicator
}
