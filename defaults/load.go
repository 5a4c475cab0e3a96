package defaults

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/hupe1980/kvs/codec"
	"github.com/hupe1980/kvs/value"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDefaults is wrapped by every defaults parse failure.
var ErrInvalidDefaults = errors.New("defaults: invalid defaults document")

// DecodeJSON parses a typed JSON object ({"key":{"t":"f64","v":1.5}}) into
// a MapProvider. A nil codec selects codec.Default.
func DecodeJSON(c codec.Codec, data []byte) (*MapProvider, error) {
	if c == nil {
		c = codec.Default
	}
	var m value.Map
	if err := c.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefaults, err)
	}
	if err := validateKeys(m); err != nil {
		return nil, err
	}
	return &MapProvider{values: m}, nil
}

// Local YAML tags selecting an exact variant, e.g. `port: !u32 8080`.
const (
	tagI32 = "!i32"
	tagI64 = "!i64"
	tagU32 = "!u32"
	tagU64 = "!u64"
	tagF64 = "!f64"
	tagStr = "!str"
)

// DecodeYAML parses a YAML mapping into a MapProvider.
//
// Untagged scalars resolve by YAML core schema: booleans to Bool, integers to
// I64, floats to F64, null to Null, everything else to String. The local tags
// !i32 !i64 !u32 !u64 !f64 !str force a variant. Sequences become arrays and
// mappings become objects with their document order.
func DecodeYAML(data []byte) (*MapProvider, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefaults, err)
	}

	m := make(value.Map)
	if len(doc.Content) == 0 {
		return &MapProvider{values: m}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalidDefaults)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		if _, dup := m[key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidDefaults, key)
		}
		v, err := fromNode(root.Content[i+1], 0)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %w", ErrInvalidDefaults, key, err)
		}
		m[key] = v
	}
	if err := validateKeys(m); err != nil {
		return nil, err
	}
	return &MapProvider{values: m}, nil
}

func validateKeys(m value.Map) error {
	if _, ok := m[""]; ok {
		return fmt.Errorf("%w: empty key", ErrInvalidDefaults)
	}
	return nil
}

func fromNode(n *yaml.Node, depth int) (value.Value, error) {
	if depth > value.MaxDepth {
		return value.Value{}, value.ErrTooDeep
	}
	switch n.Kind {
	case yaml.AliasNode:
		return fromNode(n.Alias, depth+1)
	case yaml.SequenceNode:
		items := make([]value.Value, len(n.Content))
		for i, c := range n.Content {
			v, err := fromNode(c, depth+1)
			if err != nil {
				return value.Value{}, err
			}
			items[i] = v
		}
		return value.Array(items...), nil
	case yaml.MappingNode:
		b := value.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if b.Has(key) {
				return value.Value{}, fmt.Errorf("duplicate object key %q", key)
			}
			v, err := fromNode(n.Content[i+1], depth+1)
			if err != nil {
				return value.Value{}, err
			}
			b.Set(key, v)
		}
		return b.Build(), nil
	case yaml.ScalarNode:
		return fromScalar(n)
	default:
		return value.Value{}, fmt.Errorf("unsupported yaml node kind %d", n.Kind)
	}
}

func fromScalar(n *yaml.Node) (value.Value, error) {
	s := n.Value
	switch n.Tag {
	case tagI32:
		i, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			return value.Value{}, err
		}
		return value.I32(int32(i)), nil
	case tagI64:
		i, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return value.Value{}, err
		}
		return value.I64(i), nil
	case tagU32:
		u, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return value.Value{}, err
		}
		return value.U32(uint32(u)), nil
	case tagU64:
		u, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return value.Value{}, err
		}
		return value.U64(u), nil
	case tagF64:
		f, err := parseYAMLFloat(s)
		if err != nil {
			return value.Value{}, err
		}
		return value.F64(f), nil
	case tagStr, "!!str", "!!timestamp":
		return value.String(s), nil
	case "!!null":
		return value.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return value.Value{}, err
		}
		return value.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return value.Value{}, err
		}
		return value.I64(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return value.Value{}, err
		}
		return value.F64(f), nil
	default:
		return value.Value{}, fmt.Errorf("unsupported yaml tag %q", n.Tag)
	}
}

func parseYAMLFloat(s string) (float64, error) {
	switch s {
	case ".nan", ".NaN", ".NAN":
		return math.NaN(), nil
	case ".inf", ".Inf", ".INF", "+.inf", "+.Inf", "+.INF":
		return math.Inf(1), nil
	case "-.inf", "-.Inf", "-.INF":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}
