package bonjson

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// PartialError is returned by Decode when the document was cut short. Value
// holds everything decoded up to that point, with open containers closed.
type PartialError struct {
	Value any
	Err   error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("partial document: %v", e.Err)
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

// Decode parses a single document. Objects decode to map[string]any, arrays
// to []any, integers to int64 (uint64 above math.MaxInt64), floats to
// float64.
//
// A truncated document returns a *PartialError holding the partial value.
// Any other error means the document could not be interpreted at all.
func Decode(data []byte) (any, error) {
	d := decoder{data: data}
	value, err := d.value()
	if err != nil {
		if errors.Is(err, ErrUnexpectedEnd) && value != nil {
			return nil, &PartialError{Value: value, Err: err}
		}
		return nil, err
	}
	if d.pos != len(d.data) {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingData, len(d.data)-d.pos)
	}
	return value, nil
}

type decoder struct {
	data  []byte
	pos   int
	depth int
}

func (d *decoder) value() (any, error) {
	if d.pos >= len(d.data) {
		return nil, ErrUnexpectedEnd
	}
	code := d.data[d.pos]
	d.pos++

	switch {
	case code <= smallIntMax:
		return int64(code), nil
	case code >= smallNegativeMin:
		return int64(int8(code)), nil
	case code >= typeShortString && code <= typeShortString+maxShortString:
		return d.shortString(int(code - typeShortString))
	case code >= typeUnsigned && code < typeUnsigned+maxIntBytes:
		return d.unsigned(int(code-typeUnsigned) + 1)
	case code >= typeSigned && code < typeSigned+maxIntBytes:
		return d.signed(int(code-typeSigned) + 1)
	}

	switch code {
	case typeNull:
		return nil, nil
	case typeFalse:
		return false, nil
	case typeTrue:
		return true, nil
	case typeFloat32:
		raw, err := d.take(4)
		if err != nil {
			return nil, err
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(raw))), nil
	case typeFloat64:
		raw, err := d.take(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(raw)), nil
	case typeLongString:
		return d.longString()
	case typeArray:
		return d.array()
	case typeObject:
		return d.object()
	case typeEnd:
		return nil, fmt.Errorf("%w: unmatched end of container at offset %d", ErrInvalidData, d.pos-1)
	}
	return nil, fmt.Errorf("%w: unknown type code 0x%02x at offset %d", ErrInvalidData, code, d.pos-1)
}

func (d *decoder) array() (any, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	values := []any{}
	for {
		if d.pos >= len(d.data) {
			return values, ErrUnexpectedEnd
		}
		if d.data[d.pos] == typeEnd {
			d.pos++
			d.depth--
			return values, nil
		}
		value, err := d.value()
		if err != nil {
			if !errors.Is(err, ErrUnexpectedEnd) {
				return nil, err
			}
			if value != nil {
				values = append(values, value)
			}
			return values, err
		}
		values = append(values, value)
	}
}

func (d *decoder) object() (any, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	members := map[string]any{}
	for {
		if d.pos >= len(d.data) {
			return members, ErrUnexpectedEnd
		}
		if d.data[d.pos] == typeEnd {
			d.pos++
			d.depth--
			return members, nil
		}

		offset := d.pos
		rawName, err := d.value()
		if err != nil {
			if !errors.Is(err, ErrUnexpectedEnd) {
				return nil, err
			}
			return members, err
		}
		name, ok := rawName.(string)
		if !ok {
			return nil, fmt.Errorf("%w: object member name at offset %d is not a string", ErrInvalidData, offset)
		}

		if d.pos >= len(d.data) {
			return members, ErrUnexpectedEnd
		}
		if d.data[d.pos] == typeEnd {
			return nil, fmt.Errorf("%w: object member %q has no value", ErrInvalidData, name)
		}
		value, err := d.value()
		if err != nil {
			if !errors.Is(err, ErrUnexpectedEnd) {
				return nil, err
			}
			if value != nil {
				members[name] = value
			}
			return members, err
		}
		members[name] = value
	}
}

func (d *decoder) enter() error {
	if d.depth >= MaxDepth {
		return fmt.Errorf("%w: nesting deeper than %d", ErrInvalidData, MaxDepth)
	}
	d.depth++
	return nil
}

func (d *decoder) take(n int) ([]byte, error) {
	if len(d.data)-d.pos < n {
		d.pos = len(d.data)
		return nil, ErrUnexpectedEnd
	}
	raw := d.data[d.pos : d.pos+n]
	d.pos += n
	return raw, nil
}

func (d *decoder) shortString(length int) (any, error) {
	raw, err := d.take(length)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (d *decoder) longString() (any, error) {
	var chunks []byte
	for {
		header, n := binary.Uvarint(d.data[d.pos:])
		if n == 0 {
			d.pos = len(d.data)
			return nil, ErrUnexpectedEnd
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: string chunk header overflows at offset %d", ErrInvalidData, d.pos)
		}
		d.pos += n
		length := header >> 1
		if length > uint64(len(d.data)-d.pos) {
			d.pos = len(d.data)
			return nil, ErrUnexpectedEnd
		}
		raw, _ := d.take(int(length))
		chunks = append(chunks, raw...)
		if header&1 == 0 {
			return string(chunks), nil
		}
	}
}

func (d *decoder) unsigned(width int) (any, error) {
	raw, err := d.take(width)
	if err != nil {
		return nil, err
	}
	var value uint64
	for i := width - 1; i >= 0; i-- {
		value = value<<8 | uint64(raw[i])
	}
	if value > math.MaxInt64 {
		return value, nil
	}
	return int64(value), nil
}

func (d *decoder) signed(width int) (any, error) {
	raw, err := d.take(width)
	if err != nil {
		return nil, err
	}
	var value uint64
	for i := width - 1; i >= 0; i-- {
		value = value<<8 | uint64(raw[i])
	}
	shift := uint(64 - 8*width)
	return int64(value<<shift) >> shift, nil
}
