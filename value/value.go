package value

import (
	"errors"
	"sort"
	"unicode/utf8"
)

// Kind identifies the concrete variant stored in a Value.
type Kind uint8

const (
	// KindInvalid is the zero Kind. It is never produced by a constructor.
	KindInvalid Kind = iota
	// KindNull represents a null value.
	KindNull
	// KindBool represents a boolean value.
	KindBool
	// KindI32 represents a signed 32-bit integer.
	KindI32
	// KindI64 represents a signed 64-bit integer.
	KindI64
	// KindU32 represents an unsigned 32-bit integer.
	KindU32
	// KindU64 represents an unsigned 64-bit integer.
	KindU64
	// KindF64 represents a double-precision float.
	KindF64
	// KindString represents a string value.
	KindString
	// KindArray represents an ordered sequence of values.
	KindArray
	// KindObject represents an ordered mapping of string to value.
	KindObject
)

var kindTags = [...]string{
	KindInvalid: "invalid",
	KindNull:    "null",
	KindBool:    "bool",
	KindI32:     "i32",
	KindI64:     "i64",
	KindU32:     "u32",
	KindU64:     "u64",
	KindF64:     "f64",
	KindString:  "str",
	KindArray:   "arr",
	KindObject:  "obj",
}

// String returns the wire tag of the kind (e.g. "f64").
func (k Kind) String() string {
	if int(k) < len(kindTags) {
		return kindTags[k]
	}
	return "invalid"
}

// Valid reports whether k names a concrete variant.
func (k Kind) Valid() bool {
	return k > KindInvalid && k <= KindObject
}

// KindFromTag maps a wire tag back to its Kind.
func KindFromTag(tag string) (Kind, bool) {
	for k := KindNull; k <= KindObject; k++ {
		if kindTags[k] == tag {
			return k, true
		}
	}
	return KindInvalid, false
}

// ErrUnsupportedType is returned by FromAny for Go types without a variant.
var ErrUnsupportedType = errors.New("value: unsupported type")

// Member is a single entry of an object value.
type Member struct {
	Key   string
	Value Value
}

// Value is a closed, tagged value.
//
// The zero Value has KindInvalid. Values are immutable once built; the
// accessors for composite kinds return copies.
type Value struct {
	kind Kind
	b    bool
	i    int64
	u    uint64
	f    float64
	s    string
	a    []Value
	o    []Member
}

// Null returns a null Value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// I32 returns a signed 32-bit integer Value.
func I32(v int32) Value { return Value{kind: KindI32, i: int64(v)} }

// I64 returns a signed 64-bit integer Value.
func I64(v int64) Value { return Value{kind: KindI64, i: v} }

// U32 returns an unsigned 32-bit integer Value.
func U32(v uint32) Value { return Value{kind: KindU32, u: uint64(v)} }

// U64 returns an unsigned 64-bit integer Value.
func U64(v uint64) Value { return Value{kind: KindU64, u: v} }

// F64 returns a double-precision float Value.
func F64(v float64) Value { return Value{kind: KindF64, f: v} }

// String returns a string Value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Array returns an array Value holding a copy of items.
func Array(items ...Value) Value {
	a := make([]Value, len(items))
	for i := range items {
		a[i] = items[i].Clone()
	}
	return Value{kind: KindArray, a: a}
}

// Object returns an object Value. A later member with a key that already
// appeared replaces the earlier value in place.
func Object(members ...Member) Value {
	b := NewObject()
	for _, m := range members {
		b.Set(m.Key, m.Value)
	}
	return b.Build()
}

// ObjectBuilder accumulates members for an object Value.
type ObjectBuilder struct {
	members []Member
	index   map[string]int
}

// NewObject returns an empty ObjectBuilder.
func NewObject() *ObjectBuilder {
	return &ObjectBuilder{index: make(map[string]int)}
}

// Set adds or replaces a member. Replacing keeps the original position.
func (b *ObjectBuilder) Set(key string, v Value) *ObjectBuilder {
	if i, ok := b.index[key]; ok {
		b.members[i].Value = v.Clone()
		return b
	}
	b.index[key] = len(b.members)
	b.members = append(b.members, Member{Key: key, Value: v.Clone()})
	return b
}

// Has reports whether key was already set.
func (b *ObjectBuilder) Has(key string) bool {
	_, ok := b.index[key]
	return ok
}

// Build returns the object Value. The builder may be reused afterwards.
func (b *ObjectBuilder) Build() Value {
	o := make([]Member, len(b.members))
	copy(o, b.members)
	return Value{kind: KindObject, o: o}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v was built by a constructor.
func (v Value) IsValid() bool { return v.kind.Valid() }

// IsNull reports whether v is the null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsI32 returns the integer if Kind is KindI32.
func (v Value) AsI32() (int32, bool) {
	if v.kind != KindI32 {
		return 0, false
	}
	return int32(v.i), true
}

// AsI64 returns the integer if Kind is KindI64.
func (v Value) AsI64() (int64, bool) {
	if v.kind != KindI64 {
		return 0, false
	}
	return v.i, true
}

// AsU32 returns the integer if Kind is KindU32.
func (v Value) AsU32() (uint32, bool) {
	if v.kind != KindU32 {
		return 0, false
	}
	return uint32(v.u), true
}

// AsU64 returns the integer if Kind is KindU64.
func (v Value) AsU64() (uint64, bool) {
	if v.kind != KindU64 {
		return 0, false
	}
	return v.u, true
}

// AsF64 returns the float if Kind is KindF64.
func (v Value) AsF64() (float64, bool) {
	if v.kind != KindF64 {
		return 0, false
	}
	return v.f, true
}

// AsString returns the string if Kind is KindString.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsArray returns a copy of the items if Kind is KindArray.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	out := make([]Value, len(v.a))
	for i := range v.a {
		out[i] = v.a[i].Clone()
	}
	return out, true
}

// AsObject returns a copy of the members, in order, if Kind is KindObject.
func (v Value) AsObject() ([]Member, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	out := make([]Member, len(v.o))
	for i := range v.o {
		out[i] = Member{Key: v.o[i].Key, Value: v.o[i].Value.Clone()}
	}
	return out, true
}

// Len returns the number of items of an array or members of an object.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.a)
	case KindObject:
		return len(v.o)
	default:
		return 0
	}
}

// Field looks up an object member by key.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	for _, m := range v.o {
		if m.Key == key {
			return m.Value.Clone(), true
		}
	}
	return Value{}, false
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		a := make([]Value, len(v.a))
		for i := range v.a {
			a[i] = v.a[i].Clone()
		}
		return Value{kind: KindArray, a: a}
	case KindObject:
		o := make([]Member, len(v.o))
		for i := range v.o {
			o[i] = Member{Key: v.o[i].Key, Value: v.o[i].Value.Clone()}
		}
		return Value{kind: KindObject, o: o}
	default:
		return v
	}
}

// Validate checks that v and everything nested in it are valid variants
// and that every string and object key is valid UTF-8.
func (v Value) Validate() error {
	return v.validate(0)
}

func (v Value) validate(depth int) error {
	if depth > MaxDepth {
		return ErrTooDeep
	}
	switch v.kind {
	case KindInvalid:
		return ErrInvalid
	case KindString:
		if !utf8.ValidString(v.s) {
			return ErrInvalidUTF8
		}
	case KindArray:
		for _, item := range v.a {
			if err := item.validate(depth + 1); err != nil {
				return err
			}
		}
	case KindObject:
		seen := make(map[string]struct{}, len(v.o))
		for _, m := range v.o {
			if _, dup := seen[m.Key]; dup {
				return ErrDuplicateKey
			}
			if !utf8.ValidString(m.Key) {
				return ErrInvalidUTF8
			}
			seen[m.Key] = struct{}{}
			if err := m.Value.validate(depth + 1); err != nil {
				return err
			}
		}
	}
	if !v.kind.Valid() {
		return ErrInvalid
	}
	return nil
}

// MaxDepth bounds the nesting of composite values on decode and validation.
const MaxDepth = 128

var (
	// ErrInvalid is returned for a zero or unknown-kind Value.
	ErrInvalid = errors.New("value: invalid value")
	// ErrTooDeep is returned when composites nest deeper than MaxDepth.
	ErrTooDeep = errors.New("value: nesting too deep")
	// ErrDuplicateKey is returned when an object repeats a key.
	ErrDuplicateKey = errors.New("value: duplicate object key")
	// ErrInvalidUTF8 is returned for strings and object keys that are not
	// valid UTF-8. They would not survive the JSON form unchanged.
	ErrInvalidUTF8 = errors.New("value: invalid UTF-8")
)

// Map is a mapping from key to Value, used for overrides and defaults.
type Map map[string]Value

// Clone returns a deep copy of m. A nil map clones to an empty map.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

// Keys returns the keys of m in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether m and other hold the same keys with Equal values.
func (m Map) Equal(other Map) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		ov, ok := other[k]
		if !ok || !Equal(v, ov) {
			return false
		}
	}
	return true
}
