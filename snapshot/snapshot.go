// Package snapshot implements the persisted form of a kvs override mapping:
// a versioned data file (header, payload, optional compression) and the
// accompanying hash file that makes corruption detectable.
//
// Encoding is deterministic: the same mapping and options always produce the
// same bytes, so the hash of a flushed file is reproducible.
package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/hupe1980/kvs/codec"
	"github.com/hupe1980/kvs/value"
)

// EncodeOptions configures Encode. The zero value writes uncompressed JSON
// with codec.Default.
type EncodeOptions struct {
	Format      Format
	Compression Compression
	Codec       codec.Codec
}

func (o EncodeOptions) withDefaults() EncodeOptions {
	if o.Format == 0 {
		o.Format = FormatJSON
	}
	if o.Codec == nil {
		o.Codec = codec.Default
	}
	return o
}

// Encode serializes m into data file bytes.
func Encode(m value.Map, opts EncodeOptions) ([]byte, error) {
	opts = opts.withDefaults()
	if m == nil {
		m = value.Map{}
	}

	for k, v := range m {
		if k == "" {
			return nil, fmt.Errorf("snapshot: encode: %w", ErrEmptyKey)
		}
		if !utf8.ValidString(k) {
			return nil, fmt.Errorf("snapshot: encode key %q: %w", k, value.ErrInvalidUTF8)
		}
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("snapshot: encode key %q: %w", k, err)
		}
	}

	var payload []byte
	var err error
	switch opts.Format {
	case FormatJSON:
		payload, err = opts.Codec.Marshal(m)
	case FormatBinary:
		payload, err = appendBinaryPayload(nil, m)
	default:
		return nil, fmt.Errorf("snapshot: encode: %w: %s", ErrUnknownFormat, opts.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode %s payload: %w", opts.Format, err)
	}

	h := Header{Version: Version, Format: opts.Format, Compression: opts.Compression}
	out := h.append(make([]byte, 0, HeaderSize+len(payload)))
	out, err = compress(out, payload, opts.Compression)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return out, nil
}

// Decode parses data file bytes using codec.Default for JSON payloads.
func Decode(data []byte) (value.Map, error) {
	return DecodeWith(data, nil)
}

// DecodeWith parses data file bytes using c for JSON payloads. A nil codec
// selects codec.Default. Every failure is a *DecodeError.
func DecodeWith(data []byte, c codec.Codec) (value.Map, error) {
	if c == nil {
		c = codec.Default
	}
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}

	payload, err := decompress(data[HeaderSize:], h.Compression)
	if err != nil {
		return nil, decodeErr(h.Compression.String(), err)
	}

	var m value.Map
	switch h.Format {
	case FormatJSON:
		if err := c.Unmarshal(payload, &m); err != nil {
			return nil, decodeErr("json payload", err)
		}
	case FormatBinary:
		if m, err = parseBinaryPayload(payload); err != nil {
			return nil, decodeErr("binary payload", err)
		}
	}

	if m == nil {
		m = make(value.Map)
	}
	for k, v := range m {
		if k == "" {
			return nil, decodeErr("payload", ErrEmptyKey)
		}
		if !utf8.ValidString(k) {
			return nil, decodeErr("payload", fmt.Errorf("key %q: %w", k, value.ErrInvalidUTF8))
		}
		if err := v.Validate(); err != nil {
			return nil, decodeErr("payload", fmt.Errorf("key %q: %w", k, err))
		}
	}
	return m, nil
}

// Binary payload: uvarint entry count, then per entry in key order the key
// as a length-prefixed string and the value in value binary form.
func appendBinaryPayload(buf []byte, m value.Map) ([]byte, error) {
	buf = binary.AppendUvarint(buf, uint64(len(m)))
	for _, k := range m.Keys() {
		buf = value.AppendString(buf, k)
		var err error
		if buf, err = value.AppendBinary(buf, m[k]); err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
	}
	return buf, nil
}

func parseBinaryPayload(data []byte) (value.Map, error) {
	n, w := binary.Uvarint(data)
	if w <= 0 {
		return nil, errors.Join(ErrTruncated, errors.New("invalid entry count"))
	}
	data = data[w:]
	// Every entry needs at least a key length byte and a kind byte.
	if n > uint64(len(data))/2 {
		return nil, fmt.Errorf("%w: %d entries exceed payload size", ErrTruncated, n)
	}

	m := make(value.Map, n)
	for i := uint64(0); i < n; i++ {
		key, rest, err := value.ParseString(data)
		if err != nil {
			return nil, err
		}
		if _, dup := m[key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}
		v, rest, err := value.ParseBinary(rest)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		m[key] = v
		data = rest
	}
	if len(data) != 0 {
		return nil, ErrTrailingData
	}
	return m, nil
}
