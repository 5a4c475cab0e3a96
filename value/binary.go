package value

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrBinary is wrapped by every binary decode failure of this package.
var ErrBinary = errors.New("value: invalid binary encoding")

var (
	errShortKind   = errors.New("value: short buffer for value kind")
	errShortBool   = errors.New("value: short buffer for bool")
	errShortFloat  = errors.New("value: short buffer for f64")
	errShortString = errors.New("value: short buffer for string")
	errBadVarint   = errors.New("value: invalid varint")
	errBadLength   = errors.New("value: composite length exceeds buffer")
	errUnknownKind = errors.New("value: unknown value kind")
	errRange       = errors.New("value: integer out of range")
	errBadBool     = errors.New("value: invalid bool byte")
)

func binErr(cause error) error {
	return errors.Join(ErrBinary, cause)
}

// AppendBinary appends the compact binary encoding of v to buf.
//
// Layout: one kind byte followed by the payload. Signed integers are zigzag
// varints, unsigned integers uvarints, F64 8 little-endian bytes, strings a
// uvarint length and the raw bytes. Arrays and objects carry a uvarint item
// count followed by their items (objects: key string, then value).
func AppendBinary(buf []byte, v Value) ([]byte, error) {
	return appendBinary(buf, v, 0)
}

func appendBinary(buf []byte, v Value, depth int) ([]byte, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	if !v.kind.Valid() {
		return nil, ErrInvalid
	}
	buf = append(buf, byte(v.kind))

	switch v.kind {
	case KindNull:
		// No payload
	case KindBool:
		if v.b {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case KindI32, KindI64:
		buf = binary.AppendVarint(buf, v.i)
	case KindU32, KindU64:
		buf = binary.AppendUvarint(buf, v.u)
	case KindF64:
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v.f))
	case KindString:
		buf = AppendString(buf, v.s)
	case KindArray:
		buf = binary.AppendUvarint(buf, uint64(len(v.a)))
		for _, item := range v.a {
			var err error
			if buf, err = appendBinary(buf, item, depth+1); err != nil {
				return nil, err
			}
		}
	case KindObject:
		buf = binary.AppendUvarint(buf, uint64(len(v.o)))
		for _, m := range v.o {
			buf = AppendString(buf, m.Key)
			var err error
			if buf, err = appendBinary(buf, m.Value, depth+1); err != nil {
				return nil, err
			}
		}
	}
	return buf, nil
}

// AppendString appends a uvarint length-prefixed string.
func AppendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

// ParseString reads a string written by AppendString.
func ParseString(data []byte) (string, []byte, error) {
	n, w := binary.Uvarint(data)
	if w <= 0 {
		return "", nil, binErr(errBadVarint)
	}
	data = data[w:]
	if uint64(len(data)) < n {
		return "", nil, binErr(errShortString)
	}
	return string(data[:n]), data[n:], nil
}

// ParseBinary decodes one Value from data and returns the remaining bytes.
func ParseBinary(data []byte) (Value, []byte, error) {
	return parseBinary(data, 0)
}

func parseBinary(data []byte, depth int) (Value, []byte, error) {
	if depth > MaxDepth {
		return Value{}, nil, binErr(ErrTooDeep)
	}
	if len(data) == 0 {
		return Value{}, nil, binErr(errShortKind)
	}
	kind := Kind(data[0])
	data = data[1:]

	switch kind {
	case KindNull:
		return Null(), data, nil
	case KindBool:
		if len(data) == 0 {
			return Value{}, nil, binErr(errShortBool)
		}
		switch data[0] {
		case 0:
			return Bool(false), data[1:], nil
		case 1:
			return Bool(true), data[1:], nil
		default:
			return Value{}, nil, binErr(errBadBool)
		}
	case KindI32, KindI64:
		i, n := binary.Varint(data)
		if n <= 0 {
			return Value{}, nil, binErr(errBadVarint)
		}
		if kind == KindI32 && (i < math.MinInt32 || i > math.MaxInt32) {
			return Value{}, nil, binErr(errRange)
		}
		return Value{kind: kind, i: i}, data[n:], nil
	case KindU32, KindU64:
		u, n := binary.Uvarint(data)
		if n <= 0 {
			return Value{}, nil, binErr(errBadVarint)
		}
		if kind == KindU32 && u > math.MaxUint32 {
			return Value{}, nil, binErr(errRange)
		}
		return Value{kind: kind, u: u}, data[n:], nil
	case KindF64:
		if len(data) < 8 {
			return Value{}, nil, binErr(errShortFloat)
		}
		f := math.Float64frombits(binary.LittleEndian.Uint64(data))
		return F64(f), data[8:], nil
	case KindString:
		s, rest, err := ParseString(data)
		if err != nil {
			return Value{}, nil, err
		}
		return String(s), rest, nil
	case KindArray:
		count, n := binary.Uvarint(data)
		if n <= 0 {
			return Value{}, nil, binErr(errBadVarint)
		}
		data = data[n:]
		// Every item needs at least its kind byte.
		if count > uint64(len(data)) {
			return Value{}, nil, binErr(errBadLength)
		}
		a := make([]Value, 0, count)
		for range count {
			item, rest, err := parseBinary(data, depth+1)
			if err != nil {
				return Value{}, nil, err
			}
			a = append(a, item)
			data = rest
		}
		return Value{kind: KindArray, a: a}, data, nil
	case KindObject:
		count, n := binary.Uvarint(data)
		if n <= 0 {
			return Value{}, nil, binErr(errBadVarint)
		}
		data = data[n:]
		// Every member needs a key length byte and a kind byte.
		if count > uint64(len(data))/2 {
			return Value{}, nil, binErr(errBadLength)
		}
		b := NewObject()
		for range count {
			key, rest, err := ParseString(data)
			if err != nil {
				return Value{}, nil, err
			}
			if b.Has(key) {
				return Value{}, nil, binErr(ErrDuplicateKey)
			}
			item, rest, err := parseBinary(rest, depth+1)
			if err != nil {
				return Value{}, nil, err
			}
			b.Set(key, item)
			data = rest
		}
		return b.Build(), data, nil
	default:
		return Value{}, nil, binErr(errUnknownKind)
	}
}
