package value

import (
	"fmt"
	"sort"
)

// FromAny converts a Go value into a typed Value.
//
// Each Go type maps to exactly one variant; there is no narrowing. Plain int
// becomes I64. Map keys are emitted in sorted order.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x.Clone(), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case float64:
		return F64(x), nil
	case int32:
		return I32(x), nil
	case int64:
		return I64(x), nil
	case int:
		return I64(int64(x)), nil
	case uint32:
		return U32(x), nil
	case uint64:
		return U64(x), nil
	case []Value:
		return Array(x...), nil
	case []any:
		arr := make([]Value, len(x))
		for i := range x {
			vv, err := FromAny(x[i])
			if err != nil {
				return Value{}, err
			}
			arr[i] = vv
		}
		return Value{kind: KindArray, a: arr}, nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		members := make([]Member, len(keys))
		for i, k := range keys {
			vv, err := FromAny(x[k])
			if err != nil {
				return Value{}, err
			}
			members[i] = Member{Key: k, Value: vv}
		}
		return Value{kind: KindObject, o: members}, nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

// MapFromAny converts a map[string]any into a Map.
func MapFromAny(m map[string]any) (Map, error) {
	out := make(Map, len(m))
	for k, v := range m {
		vv, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = vv
	}
	return out, nil
}
