package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// ErrJSON is wrapped by every JSON decode failure of this package.
var ErrJSON = errors.New("value: invalid json")

// MarshalJSON implements json.Marshaler using the typed envelope
// {"t":"<tag>","v":<payload>}. Object members keep their order.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.appendJSON(nil, 0)
}

// UnmarshalJSON implements json.Unmarshaler for the typed envelope.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := parseJSON(data, 0)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalJSON encodes m as a JSON object with sorted keys.
func (m Map) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range m.Keys() {
		if i > 0 {
			buf = append(buf, ',')
		}
		var err error
		if buf, err = appendJSONString(buf, k); err != nil {
			return nil, err
		}
		buf = append(buf, ':')
		if buf, err = m[k].appendJSON(buf, 0); err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
	}
	return append(buf, '}'), nil
}

// UnmarshalJSON decodes a JSON object of typed envelopes. Duplicate keys are
// rejected.
func (m *Map) UnmarshalJSON(data []byte) error {
	out := make(Map)
	err := scanObject(data, func(key string, raw json.RawMessage) error {
		if _, dup := out[key]; dup {
			return fmt.Errorf("%w: duplicate key %q", ErrJSON, key)
		}
		v, err := parseJSON(raw, 0)
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		out[key] = v
		return nil
	})
	if err != nil {
		return err
	}
	*m = out
	return nil
}

func (v Value) appendJSON(buf []byte, depth int) ([]byte, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	if !v.kind.Valid() {
		return nil, ErrInvalid
	}
	buf = append(buf, `{"t":"`...)
	buf = append(buf, v.kind.String()...)
	buf = append(buf, `","v":`...)

	var err error
	switch v.kind {
	case KindNull:
		buf = append(buf, "null"...)
	case KindBool:
		buf = strconv.AppendBool(buf, v.b)
	case KindI32, KindI64:
		buf = strconv.AppendInt(buf, v.i, 10)
	case KindU32, KindU64:
		buf = strconv.AppendUint(buf, v.u, 10)
	case KindF64:
		switch {
		case math.IsNaN(v.f):
			buf = append(buf, `"NaN"`...)
		case math.IsInf(v.f, 1):
			buf = append(buf, `"+Inf"`...)
		case math.IsInf(v.f, -1):
			buf = append(buf, `"-Inf"`...)
		default:
			buf = strconv.AppendFloat(buf, v.f, 'g', -1, 64)
		}
	case KindString:
		buf, err = appendJSONString(buf, v.s)
	case KindArray:
		buf = append(buf, '[')
		for i, item := range v.a {
			if i > 0 {
				buf = append(buf, ',')
			}
			if buf, err = item.appendJSON(buf, depth+1); err != nil {
				return nil, err
			}
		}
		buf = append(buf, ']')
	case KindObject:
		buf = append(buf, '{')
		for i, m := range v.o {
			if i > 0 {
				buf = append(buf, ',')
			}
			if buf, err = appendJSONString(buf, m.Key); err != nil {
				return nil, err
			}
			buf = append(buf, ':')
			if buf, err = m.Value.appendJSON(buf, depth+1); err != nil {
				return nil, err
			}
		}
		buf = append(buf, '}')
	}
	if err != nil {
		return nil, err
	}
	return append(buf, '}'), nil
}

func appendJSONString(buf []byte, s string) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return append(buf, b...), nil
}

type envelope struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v"`
}

func parseJSON(data []byte, depth int) (Value, error) {
	if depth > MaxDepth {
		return Value{}, ErrTooDeep
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var env envelope
	if err := dec.Decode(&env); err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrJSON, err)
	}
	if dec.More() {
		return Value{}, fmt.Errorf("%w: trailing data", ErrJSON)
	}

	kind, ok := KindFromTag(env.T)
	if !ok {
		return Value{}, fmt.Errorf("%w: unknown type tag %q", ErrJSON, env.T)
	}
	if len(env.V) == 0 {
		return Value{}, fmt.Errorf("%w: missing payload for %q", ErrJSON, env.T)
	}
	raw := env.V

	switch kind {
	case KindNull:
		if !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return Value{}, fmt.Errorf("%w: null payload must be null", ErrJSON)
		}
		return Null(), nil
	case KindBool:
		var b bool
		if err := strictUnmarshal(raw, &b); err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case KindI32:
		n, err := parseNumber(raw)
		if err != nil {
			return Value{}, err
		}
		i, err := strconv.ParseInt(n, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("%w: i32 %s: %v", ErrJSON, n, err)
		}
		return I32(int32(i)), nil
	case KindI64:
		n, err := parseNumber(raw)
		if err != nil {
			return Value{}, err
		}
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: i64 %s: %v", ErrJSON, n, err)
		}
		return I64(i), nil
	case KindU32:
		n, err := parseNumber(raw)
		if err != nil {
			return Value{}, err
		}
		u, err := strconv.ParseUint(n, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("%w: u32 %s: %v", ErrJSON, n, err)
		}
		return U32(uint32(u)), nil
	case KindU64:
		n, err := parseNumber(raw)
		if err != nil {
			return Value{}, err
		}
		u, err := strconv.ParseUint(n, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: u64 %s: %v", ErrJSON, n, err)
		}
		return U64(u), nil
	case KindF64:
		return parseFloat(raw)
	case KindString:
		var s string
		if err := strictUnmarshal(raw, &s); err != nil {
			return Value{}, err
		}
		return String(s), nil
	case KindArray:
		var items []json.RawMessage
		if err := strictUnmarshal(raw, &items); err != nil {
			return Value{}, err
		}
		if items == nil {
			return Value{}, fmt.Errorf("%w: array payload must be an array", ErrJSON)
		}
		a := make([]Value, len(items))
		for i, item := range items {
			v, err := parseJSON(item, depth+1)
			if err != nil {
				return Value{}, err
			}
			a[i] = v
		}
		return Value{kind: KindArray, a: a}, nil
	case KindObject:
		b := NewObject()
		err := scanObject(raw, func(key string, item json.RawMessage) error {
			if b.Has(key) {
				return fmt.Errorf("%w: duplicate object key %q", ErrJSON, key)
			}
			v, err := parseJSON(item, depth+1)
			if err != nil {
				return err
			}
			b.Set(key, v)
			return nil
		})
		if err != nil {
			return Value{}, err
		}
		return b.Build(), nil
	}
	return Value{}, fmt.Errorf("%w: unknown type tag %q", ErrJSON, env.T)
}

func strictUnmarshal(raw json.RawMessage, dst any) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return fmt.Errorf("%w: unexpected null payload", ErrJSON)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrJSON, err)
	}
	return nil
}

func parseNumber(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrJSON, err)
	}
	n, ok := tok.(json.Number)
	if !ok {
		return "", fmt.Errorf("%w: expected number, got %v", ErrJSON, tok)
	}
	return n.String(), nil
}

func parseFloat(raw json.RawMessage) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrJSON, err)
	}
	switch t := tok.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: f64 %s: %v", ErrJSON, t, err)
		}
		return F64(f), nil
	case string:
		switch t {
		case "NaN":
			return F64(math.NaN()), nil
		case "+Inf":
			return F64(math.Inf(1)), nil
		case "-Inf":
			return F64(math.Inf(-1)), nil
		}
	}
	return Value{}, fmt.Errorf("%w: invalid f64 payload %s", ErrJSON, raw)
}

// scanObject walks a JSON object in document order.
func scanObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJSON, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: expected object", ErrJSON)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrJSON, err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: expected object key", ErrJSON)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("%w: %v", ErrJSON, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrJSON, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data", ErrJSON)
	}
	return nil
}
