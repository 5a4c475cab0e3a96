package value

import (
	"math"
	"strconv"
	"strings"
)

// String returns the canonical diagnostic form of v, e.g. F64(432.1),
// String("x"), Array([I32(1), Null]) or Object({"a": Bool(true)}).
//
// It is meant for logs and test output, not as a wire format.
func (v Value) String() string {
	var sb strings.Builder
	v.format(&sb)
	return sb.String()
}

func (v Value) format(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("Null")
	case KindBool:
		sb.WriteString("Bool(")
		sb.WriteString(strconv.FormatBool(v.b))
		sb.WriteByte(')')
	case KindI32:
		sb.WriteString("I32(")
		sb.WriteString(strconv.FormatInt(v.i, 10))
		sb.WriteByte(')')
	case KindI64:
		sb.WriteString("I64(")
		sb.WriteString(strconv.FormatInt(v.i, 10))
		sb.WriteByte(')')
	case KindU32:
		sb.WriteString("U32(")
		sb.WriteString(strconv.FormatUint(v.u, 10))
		sb.WriteByte(')')
	case KindU64:
		sb.WriteString("U64(")
		sb.WriteString(strconv.FormatUint(v.u, 10))
		sb.WriteByte(')')
	case KindF64:
		sb.WriteString("F64(")
		sb.WriteString(FormatFloat(v.f))
		sb.WriteByte(')')
	case KindString:
		sb.WriteString("String(")
		sb.WriteString(strconv.Quote(v.s))
		sb.WriteByte(')')
	case KindArray:
		sb.WriteString("Array([")
		for i, item := range v.a {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.format(sb)
		}
		sb.WriteString("])")
	case KindObject:
		sb.WriteString("Object({")
		for i, m := range v.o {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Quote(m.Key))
			sb.WriteString(": ")
			m.Value.format(sb)
		}
		sb.WriteString("})")
	default:
		sb.WriteString("Invalid")
	}
}

// FormatFloat renders f the way diagnostics expect: integral values keep one
// decimal place (123.0), others use the shortest round-trip form (432.1).
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
