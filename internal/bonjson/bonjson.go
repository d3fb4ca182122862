// Package bonjson encodes and decodes the binary document format used for
// crash reports.
//
// The format is a JSON-compatible type-code stream. Every value starts with a
// one byte type code and containers are closed by an end marker.
//
// The Encoder is built to run inside a crash handler: it owns a fixed buffer,
// never allocates once Begin has been called and reports failures through
// package-level sentinel errors.
package bonjson

import "errors"

// MaxDepth bounds container nesting for both encoding and decoding.
const MaxDepth = 200

const (
	smallIntMax      = 100
	typeLongString   = 0x68
	typeFloat32      = 0x6a
	typeFloat64      = 0x6b
	typeNull         = 0x6c
	typeFalse        = 0x6d
	typeTrue         = 0x6e
	typeUnsigned     = 0x70 // 0x70-0x77: 1 through 8 byte payloads
	typeSigned       = 0x78 // 0x78-0x7f: 1 through 8 byte payloads
	typeShortString  = 0x80 // 0x80-0x8f: 0 through 15 byte payloads
	typeArray        = 0x99
	typeObject       = 0x9a
	typeEnd          = 0x9b
	smallNegativeMin = 0x9c // 0x9c-0xff: -100 through -1

	maxShortString = 15
	maxIntBytes    = 8
)

var (
	// ErrCouldNotAddData is returned once the sink refused bytes. The
	// stream is unusable afterwards.
	ErrCouldNotAddData = errors.New("bonjson: could not add data to sink")
	// ErrContainerDepthExceeded is returned when a container would nest
	// deeper than MaxDepth.
	ErrContainerDepthExceeded = errors.New("bonjson: container depth exceeded")
	// ErrNoContainerOpen is returned by EndContainer at the top level.
	ErrNoContainerOpen = errors.New("bonjson: no container is open")
	// ErrExpectedObjectName is returned when a non-string is written where
	// an object member name is required.
	ErrExpectedObjectName = errors.New("bonjson: expected an object member name")
	// ErrExpectedObjectValue is returned when an object is closed right
	// after a member name.
	ErrExpectedObjectValue = errors.New("bonjson: expected an object member value")
	// ErrUnbalancedContainers is returned by End when containers are still
	// open.
	ErrUnbalancedContainers = errors.New("bonjson: containers are still open")
	// ErrNotEncoding is returned when the encoder has no sink.
	ErrNotEncoding = errors.New("bonjson: encoder has not begun")

	// ErrUnexpectedEnd is returned when the input ends inside a value.
	ErrUnexpectedEnd = errors.New("bonjson: unexpected end of document")
	// ErrInvalidData is returned for malformed input.
	ErrInvalidData = errors.New("bonjson: invalid data")
	// ErrTrailingData is returned when bytes follow the top-level value.
	ErrTrailingData = errors.New("bonjson: trailing data after document")
)
