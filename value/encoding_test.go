package value

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleValues() map[string]Value {
	return map[string]Value{
		"null":    Null(),
		"bool":    Bool(true),
		"i32":     I32(math.MinInt32),
		"i64":     I64(math.MaxInt64),
		"u32":     U32(math.MaxUint32),
		"u64":     U64(math.MaxUint64),
		"f64":     F64(432.1),
		"f64_neg": F64(-1e-300),
		"nan":     F64(math.NaN()),
		"inf":     F64(math.Inf(1)),
		"ninf":    F64(math.Inf(-1)),
		"string":  String("héllo \"quoted\" <tag>"),
		"empty":   String(""),
		"array":   Array(I32(1), String("a"), Array()),
		"object": Object(
			Member{"z", Bool(false)},
			Member{"a", Object(Member{"nested", U64(9)})},
		),
	}
}

func TestJSONRoundTrip(t *testing.T) {
	for name, v := range sampleValues() {
		t.Run(name, func(t *testing.T) {
			b, err := json.Marshal(v)
			require.NoError(t, err)

			var got Value
			require.NoError(t, json.Unmarshal(b, &got))
			assert.True(t, Equal(v, got), "%s != %s (%s)", v, got, b)
			assert.Equal(t, v.Kind(), got.Kind())
		})
	}
}

func TestJSONEnvelope(t *testing.T) {
	b, err := json.Marshal(F64(432.1))
	require.NoError(t, err)
	assert.JSONEq(t, `{"t":"f64","v":432.1}`, string(b))

	b, err = json.Marshal(Object(Member{"b", Null()}, Member{"a", I32(1)}))
	require.NoError(t, err)
	assert.Equal(t, `{"t":"obj","v":{"b":{"t":"null","v":null},"a":{"t":"i32","v":1}}}`, string(b))
}

func TestJSONObjectOrderPreserved(t *testing.T) {
	var got Value
	require.NoError(t, json.Unmarshal([]byte(`{"t":"obj","v":{"z":{"t":"i32","v":1},"a":{"t":"i32","v":2}}}`), &got))
	members, ok := got.AsObject()
	require.True(t, ok)
	require.Len(t, members, 2)
	assert.Equal(t, "z", members[0].Key)
	assert.Equal(t, "a", members[1].Key)
}

func TestJSONRejects(t *testing.T) {
	tests := map[string]string{
		"unknown tag":       `{"t":"float","v":1.0}`,
		"missing payload":   `{"t":"i32"}`,
		"i32 overflow":      `{"t":"i32","v":2147483648}`,
		"u32 negative":      `{"t":"u32","v":-1}`,
		"u64 overflow":      `{"t":"u64","v":18446744073709551616}`,
		"i64 fraction":      `{"t":"i64","v":1.5}`,
		"bool as number":    `{"t":"bool","v":1}`,
		"string as number":  `{"t":"str","v":1}`,
		"null payload":      `{"t":"null","v":0}`,
		"f64 bad string":    `{"t":"f64","v":"one"}`,
		"array null":        `{"t":"arr","v":null}`,
		"array item":        `{"t":"arr","v":[1]}`,
		"object duplicate":  `{"t":"obj","v":{"a":{"t":"null","v":null},"a":{"t":"null","v":null}}}`,
		"object not object": `{"t":"obj","v":[]}`,
		"unknown field":     `{"t":"i32","v":1,"x":2}`,
		"not an envelope":   `42`,
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			var got Value
			err := json.Unmarshal([]byte(input), &got)
			require.Error(t, err)
		})
	}
}

func TestMarshalInvalid(t *testing.T) {
	_, err := json.Marshal(Value{})
	assert.Error(t, err)
	_, err = AppendBinary(nil, Array(Value{}))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestMapJSON(t *testing.T) {
	m := Map{"b": I32(1), "a": F64(2.5)}
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"t":"f64","v":2.5},"b":{"t":"i32","v":1}}`, string(b))

	var got Map
	require.NoError(t, json.Unmarshal(b, &got))
	assert.True(t, m.Equal(got))

	err = json.Unmarshal([]byte(`{"a":{"t":"i32","v":1},"a":{"t":"i32","v":2}}`), &got)
	assert.ErrorIs(t, err, ErrJSON)
}

func TestBinaryRoundTrip(t *testing.T) {
	for name, v := range sampleValues() {
		t.Run(name, func(t *testing.T) {
			buf, err := AppendBinary(nil, v)
			require.NoError(t, err)

			got, rest, err := ParseBinary(buf)
			require.NoError(t, err)
			assert.Empty(t, rest)
			assert.True(t, Equal(v, got), "%s != %s", v, got)
		})
	}
}

func TestBinaryRejectsTruncation(t *testing.T) {
	v := Object(
		Member{"a", Array(String("hello"), F64(1.25), I64(-3))},
		Member{"b", U32(12)},
	)
	buf, err := AppendBinary(nil, v)
	require.NoError(t, err)

	for i := 0; i < len(buf); i++ {
		_, _, err := ParseBinary(buf[:i])
		assert.ErrorIs(t, err, ErrBinary, "prefix %d", i)
	}
}

func TestBinaryRejects(t *testing.T) {
	tests := map[string][]byte{
		"unknown kind":   {0xFE},
		"invalid kind":   {byte(KindInvalid)},
		"bad bool":       {byte(KindBool), 2},
		"u32 overflow":   append([]byte{byte(KindU32)}, 0x80, 0x80, 0x80, 0x80, 0x10),
		"array overlong": {byte(KindArray), 5, byte(KindNull)},
		"object dup":     {byte(KindObject), 2, 1, 'a', byte(KindNull), 1, 'a', byte(KindNull)},
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseBinary(input)
			assert.ErrorIs(t, err, ErrBinary)
		})
	}
}
