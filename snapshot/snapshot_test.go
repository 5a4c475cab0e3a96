package snapshot

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/hupe1980/kvs/codec"
	"github.com/hupe1980/kvs/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMap() value.Map {
	return value.Map{
		"test_number": value.F64(432.1),
		"flag":        value.Bool(true),
		"count":       value.U32(7),
		"neg":         value.I64(-42),
		"nan":         value.F64(math.NaN()),
		"name":        value.String(strings.Repeat("kvs ", 64)),
		"list":        value.Array(value.I32(1), value.Null(), value.String("x")),
		"obj": value.Object(
			value.Member{Key: "z", Value: value.U64(math.MaxUint64)},
			value.Member{Key: "a", Value: value.Array()},
		),
	}
}

func allOptions() map[string]EncodeOptions {
	return map[string]EncodeOptions{
		"zero":        {},
		"json":        {Format: FormatJSON},
		"json-std":    {Format: FormatJSON, Codec: codec.JSON{}},
		"json-lz4":    {Format: FormatJSON, Compression: CompressionLZ4},
		"json-zstd":   {Format: FormatJSON, Compression: CompressionZSTD},
		"binary":      {Format: FormatBinary},
		"binary-lz4":  {Format: FormatBinary, Compression: CompressionLZ4},
		"binary-zstd": {Format: FormatBinary, Compression: CompressionZSTD},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := sampleMap()
	for name, opts := range allOptions() {
		t.Run(name, func(t *testing.T) {
			data, err := Encode(m, opts)
			require.NoError(t, err)

			h, err := ReadHeader(data)
			require.NoError(t, err)
			assert.Equal(t, uint8(Version), h.Version)
			assert.Equal(t, opts.Compression, h.Compression)

			got, err := Decode(data)
			require.NoError(t, err)
			assert.True(t, m.Equal(got))
		})
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	for name, opts := range allOptions() {
		t.Run(name, func(t *testing.T) {
			a, err := Encode(sampleMap(), opts)
			require.NoError(t, err)
			b, err := Encode(sampleMap(), opts)
			require.NoError(t, err)
			assert.Equal(t, a, b)
		})
	}
}

func TestEncodeEmptyMap(t *testing.T) {
	for _, m := range []value.Map{nil, {}} {
		data, err := Encode(m, EncodeOptions{})
		require.NoError(t, err)
		got, err := Decode(data)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestEncodeRejects(t *testing.T) {
	_, err := Encode(value.Map{"": value.Null()}, EncodeOptions{})
	assert.ErrorIs(t, err, ErrEmptyKey)

	_, err = Encode(value.Map{"bad": {}}, EncodeOptions{})
	assert.ErrorIs(t, err, value.ErrInvalid)

	for _, f := range []Format{FormatJSON, FormatBinary} {
		_, err = Encode(value.Map{"k": value.String("\xff\xfe")}, EncodeOptions{Format: f})
		assert.ErrorIs(t, err, value.ErrInvalidUTF8, f.String())
		_, err = Encode(value.Map{"\xff": value.Null()}, EncodeOptions{Format: f})
		assert.ErrorIs(t, err, value.ErrInvalidUTF8, f.String())
	}

	_, err = Encode(value.Map{}, EncodeOptions{Format: 9})
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Encode(value.Map{}, EncodeOptions{Compression: 9})
	assert.ErrorIs(t, err, ErrUnknownCompression)
}

func TestCompressionShrinksRepetitivePayload(t *testing.T) {
	m := value.Map{"long": value.String(strings.Repeat("abcdefgh", 512))}
	raw, err := Encode(m, EncodeOptions{})
	require.NoError(t, err)

	for _, c := range []Compression{CompressionLZ4, CompressionZSTD} {
		data, err := Encode(m, EncodeOptions{Compression: c})
		require.NoError(t, err)
		assert.Less(t, len(data), len(raw), c.String())
	}
}

func TestDecodeRejects(t *testing.T) {
	good, err := Encode(sampleMap(), EncodeOptions{Format: FormatBinary})
	require.NoError(t, err)

	with := func(i int, b byte) []byte {
		out := bytes.Clone(good)
		out[i] = b
		return out
	}

	tests := map[string]struct {
		data []byte
		want error
	}{
		"empty":              {nil, ErrTruncated},
		"short header":       {good[:5], ErrTruncated},
		"bad magic":          {with(0, 'X'), ErrInvalidMagic},
		"bad version":        {with(4, 2), ErrInvalidVersion},
		"bad format":         {with(5, 7), ErrUnknownFormat},
		"bad compression":    {with(6, 7), ErrUnknownCompression},
		"reserved set":       {with(7, 1), ErrReservedBits},
		"trailing data":      {append(bytes.Clone(good), 0), ErrTrailingData},
		"truncated payload":  {good[:len(good)-3], nil},
		"json garbage":       {append(Header{Version: 1, Format: FormatJSON}.append(nil), "{nope"...), nil},
		"json empty key":     {append(Header{Version: 1, Format: FormatJSON}.append(nil), `{"":{"t":"null","v":null}}`...), ErrEmptyKey},
		"json duplicate key": {append(Header{Version: 1, Format: FormatJSON}.append(nil), `{"a":{"t":"null","v":null},"a":{"t":"null","v":null}}`...), nil},
		"lz4 short header":   {append(Header{Version: 1, Format: FormatJSON, Compression: CompressionLZ4}.append(nil), 1, 2), ErrTruncated},
		"binary huge count":  {append(Header{Version: 1, Format: FormatBinary}.append(nil), 0xff, 0xff, 0x03), ErrTruncated},
		"binary duplicate":   {binaryPayload(t, "a", "a"), ErrDuplicateKey},
		"binary utf8 key":    {binaryPayload(t, "\xff"), value.ErrInvalidUTF8},
		"binary utf8 value":  {binaryEntry(t, "k", value.String("\xff\xfe")), value.ErrInvalidUTF8},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDecode)
			var de *DecodeError
			assert.True(t, errors.As(err, &de))
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func binaryEntry(t *testing.T, key string, v value.Value) []byte {
	t.Helper()
	buf := append(Header{Version: 1, Format: FormatBinary}.append(nil), 1)
	buf = value.AppendString(buf, key)
	buf, err := value.AppendBinary(buf, v)
	require.NoError(t, err)
	return buf
}

func binaryPayload(t *testing.T, keys ...string) []byte {
	t.Helper()
	buf := Header{Version: 1, Format: FormatBinary}.append(nil)
	buf = append(buf, byte(len(keys)))
	for _, k := range keys {
		buf = value.AppendString(buf, k)
		var err error
		buf, err = value.AppendBinary(buf, value.Null())
		require.NoError(t, err)
	}
	return buf
}

func TestParseNames(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	f, err = ParseFormat("binary")
	require.NoError(t, err)
	assert.Equal(t, FormatBinary, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)

	c, err := ParseCompression("zstd")
	require.NoError(t, err)
	assert.Equal(t, CompressionZSTD, c)
	_, err = ParseCompression("gzip")
	assert.Error(t, err)

	a, err := ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, SHA256, a)
	_, err = ParseAlgorithm("md5")
	assert.ErrorIs(t, err, ErrUnsupportedHashFormat)
}
