// Package value provides the closed, typed value model stored by kvs.
//
// # Variants
//
//   - Null: value.Null()
//   - Bool: value.Bool(true)
//   - I32, I64, U32, U64: value.I32(5), value.U64(1 << 40)
//   - F64: value.F64(432.1)
//   - String: value.String("hello")
//   - Array: value.Array(value.I32(1), value.Null())
//   - Object: value.Object(value.Member{Key: "a", Value: value.Bool(true)})
//
// There is no implicit coercion between numeric variants. value.Equal(value.F64(1),
// value.I32(1)) is false, and every accessor reports ok=false on a kind mismatch.
//
// # Wire forms
//
// Values encode to a typed JSON envelope, which is also used for defaults files:
//
//	{"t":"f64","v":432.1}
//	{"t":"arr","v":[{"t":"i32","v":1},{"t":"null","v":null}]}
//
// AppendBinary and ParseBinary provide a compact binary encoding. Both decoders
// reject unknown tags, truncated lengths and duplicate object keys.
package value
