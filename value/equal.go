package value

import "math"

// Equal reports whether a and b are structurally equal.
//
// Comparison is variant-exact: F64(1) never equals I32(1). Arrays compare
// element by element in order. Objects compare key sets and per-key values;
// member order is ignored. F64 uses == except that NaN equals NaN.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindInvalid, KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindI32, KindI64:
		return a.i == b.i
	case KindU32, KindU64:
		return a.u == b.u
	case KindF64:
		if math.IsNaN(a.f) && math.IsNaN(b.f) {
			return true
		}
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindArray:
		if len(a.a) != len(b.a) {
			return false
		}
		for i := range a.a {
			if !Equal(a.a[i], b.a[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.o) != len(b.o) {
			return false
		}
		for _, m := range a.o {
			other, ok := b.field(m.Key)
			if !ok || !Equal(m.Value, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Equal reports whether v equals other. See the package-level Equal.
func (v Value) Equal(other Value) bool { return Equal(v, other) }

func (v Value) field(key string) (Value, bool) {
	for _, m := range v.o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}
