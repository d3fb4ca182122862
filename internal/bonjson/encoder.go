package bonjson

import (
	"encoding/binary"
	"io"
	"math"
	"math/bits"
)

const bufferSize = 256

type container struct {
	isObject      bool
	expectingName bool
}

// Encoder writes BONJSON values to a sink. The zero value is unusable until
// Begin is called. An Encoder is not safe for concurrent use.
type Encoder struct {
	sink  io.Writer
	err   error
	n     int
	depth int
	buf   [bufferSize]byte
	stack [MaxDepth]container
}

// Begin resets the encoder and starts a new document written to sink.
func (e *Encoder) Begin(sink io.Writer) {
	e.sink = sink
	e.err = nil
	e.n = 0
	e.depth = 0
}

// End flushes buffered bytes to the sink. It fails if containers are still
// open or if any earlier operation failed.
func (e *Encoder) End() error {
	if err := e.flush(); err != nil {
		return err
	}
	if e.depth != 0 {
		return ErrUnbalancedContainers
	}
	return nil
}

// Depth returns the number of open containers.
func (e *Encoder) Depth() int {
	return e.depth
}

// AddNull writes a null value.
func (e *Encoder) AddNull() error {
	return e.addByte(typeNull)
}

// AddBoolean writes true or false.
func (e *Encoder) AddBoolean(value bool) error {
	if value {
		return e.addByte(typeTrue)
	}
	return e.addByte(typeFalse)
}

// AddUnsigned writes value using the smallest integer encoding.
func (e *Encoder) AddUnsigned(value uint64) error {
	if value <= smallIntMax {
		return e.addByte(byte(value))
	}
	if err := e.prepare(false); err != nil {
		return err
	}
	width := (bits.Len64(value) + 7) / 8
	if err := e.reserve(1 + maxIntBytes); err != nil {
		return err
	}
	e.buf[e.n] = typeUnsigned + byte(width-1)
	binary.LittleEndian.PutUint64(e.buf[e.n+1:], value)
	e.n += 1 + width
	e.wrote()
	return nil
}

// AddSigned writes value using the smallest integer encoding. Non-negative
// values share the unsigned encodings.
func (e *Encoder) AddSigned(value int64) error {
	if value >= 0 {
		return e.AddUnsigned(uint64(value))
	}
	if value >= -smallIntMax {
		return e.addByte(byte(int8(value)))
	}
	if err := e.prepare(false); err != nil {
		return err
	}
	width := bits.Len64(uint64(^value))/8 + 1
	if err := e.reserve(1 + maxIntBytes); err != nil {
		return err
	}
	e.buf[e.n] = typeSigned + byte(width-1)
	binary.LittleEndian.PutUint64(e.buf[e.n+1:], uint64(value))
	e.n += 1 + width
	e.wrote()
	return nil
}

// AddFloat writes value as a float32 when that is lossless, otherwise as a
// float64.
func (e *Encoder) AddFloat(value float64) error {
	if err := e.prepare(false); err != nil {
		return err
	}
	if err := e.reserve(1 + 8); err != nil {
		return err
	}
	if narrow := float32(value); float64(narrow) == value || math.IsNaN(value) {
		e.buf[e.n] = typeFloat32
		binary.LittleEndian.PutUint32(e.buf[e.n+1:], math.Float32bits(narrow))
		e.n += 1 + 4
	} else {
		e.buf[e.n] = typeFloat64
		binary.LittleEndian.PutUint64(e.buf[e.n+1:], math.Float64bits(value))
		e.n += 1 + 8
	}
	e.wrote()
	return nil
}

// AddString writes a UTF-8 string. In an object context it is also how
// member names are written.
func (e *Encoder) AddString(value string) error {
	if err := e.stringHeader(len(value)); err != nil {
		return err
	}
	for written := 0; written < len(value); {
		if err := e.makeRoom(); err != nil {
			return err
		}
		copied := copy(e.buf[e.n:], value[written:])
		e.n += copied
		written += copied
	}
	e.wrote()
	return nil
}

// AddStringBytes is AddString for a byte slice, letting callers format into
// stack buffers without converting to a string. value does not escape.
func (e *Encoder) AddStringBytes(value []byte) error {
	if err := e.stringHeader(len(value)); err != nil {
		return err
	}
	for written := 0; written < len(value); {
		if err := e.makeRoom(); err != nil {
			return err
		}
		copied := copy(e.buf[e.n:], value[written:])
		e.n += copied
		written += copied
	}
	e.wrote()
	return nil
}

// BeginObject opens an object container.
func (e *Encoder) BeginObject() error {
	return e.begin(typeObject, true)
}

// BeginArray opens an array container.
func (e *Encoder) BeginArray() error {
	return e.begin(typeArray, false)
}

// EndContainer closes the innermost container.
func (e *Encoder) EndContainer() error {
	if e.err != nil {
		return e.err
	}
	if e.sink == nil {
		return ErrNotEncoding
	}
	if e.depth == 0 {
		return ErrNoContainerOpen
	}
	if current := e.stack[e.depth-1]; current.isObject && !current.expectingName {
		return ErrExpectedObjectValue
	}
	if err := e.reserve(1); err != nil {
		return err
	}
	e.buf[e.n] = typeEnd
	e.n++
	e.depth--
	return nil
}

func (e *Encoder) begin(code byte, isObject bool) error {
	if err := e.prepare(false); err != nil {
		return err
	}
	if e.depth >= MaxDepth {
		return ErrContainerDepthExceeded
	}
	if err := e.reserve(1); err != nil {
		return err
	}
	e.buf[e.n] = code
	e.n++
	e.wrote()
	e.stack[e.depth] = container{isObject: isObject, expectingName: true}
	e.depth++
	return nil
}

// stringHeader buffers the type code and length of a string. Short strings
// are guaranteed to fit in the buffer afterwards.
func (e *Encoder) stringHeader(length int) error {
	if err := e.prepare(true); err != nil {
		return err
	}
	if length <= maxShortString {
		if err := e.reserve(1 + length); err != nil {
			return err
		}
		e.buf[e.n] = typeShortString + byte(length)
		e.n++
		return nil
	}
	if err := e.reserve(1 + binary.MaxVarintLen64); err != nil {
		return err
	}
	e.buf[e.n] = typeLongString
	e.n++
	e.n += binary.PutUvarint(e.buf[e.n:], uint64(length)<<1)
	return nil
}

// makeRoom flushes a full buffer.
func (e *Encoder) makeRoom() error {
	if e.n < len(e.buf) {
		return nil
	}
	return e.flush()
}

func (e *Encoder) addByte(code byte) error {
	if err := e.prepare(false); err != nil {
		return err
	}
	if err := e.reserve(1); err != nil {
		return err
	}
	e.buf[e.n] = code
	e.n++
	e.wrote()
	return nil
}

// prepare checks that a value may be written at the current position.
func (e *Encoder) prepare(isString bool) error {
	if e.err != nil {
		return e.err
	}
	if e.sink == nil {
		return ErrNotEncoding
	}
	if e.depth > 0 {
		current := e.stack[e.depth-1]
		if current.isObject && current.expectingName && !isString {
			return ErrExpectedObjectName
		}
	}
	return nil
}

// wrote records that one element was written to the current container.
func (e *Encoder) wrote() {
	if e.depth > 0 && e.stack[e.depth-1].isObject {
		e.stack[e.depth-1].expectingName = !e.stack[e.depth-1].expectingName
	}
}

func (e *Encoder) reserve(size int) error {
	if e.n+size <= len(e.buf) {
		return nil
	}
	return e.flush()
}

func (e *Encoder) flush() error {
	if e.err != nil {
		return e.err
	}
	if e.sink == nil {
		return ErrNotEncoding
	}
	if e.n == 0 {
		return nil
	}
	_, err := e.sink.Write(e.buf[:e.n])
	e.n = 0
	if err != nil {
		e.err = ErrCouldNotAddData
		return e.err
	}
	return nil
}
