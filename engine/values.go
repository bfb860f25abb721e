package engine

import (
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
)

func liftScalar(t wit.Type, v uint64) any {
	switch t.(type) {
	case wit.Bool:
		return uint32(v) != 0
	case wit.U8:
		return uint8(v)
	case wit.S8:
		return int8(v)
	case wit.U16:
		return uint16(v)
	case wit.S16:
		return int16(v)
	case wit.U32:
		return api.DecodeU32(v)
	case wit.S32:
		return api.DecodeI32(v)
	case wit.Char:
		return rune(api.DecodeU32(v))
	case wit.U64:
		return v
	case wit.S64:
		return int64(v)
	case wit.F32:
		return api.DecodeF32(v)
	case wit.F64:
		return api.DecodeF64(v)
	default:
		return v
	}
}

func asUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case Object:
		return uint64(n), true
	case int:
		return uint64(n), true
	case int8:
		return uint64(n), true
	case int16:
		return uint64(n), true
	case int32:
		return uint64(n), true
	case int64:
		return uint64(n), true
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		if i, ok := asUint64(v); ok {
			return float64(int64(i)), true
		}
		return 0, false
	}
}

// AsObject converts a u32 call result into an object handle.
func AsObject(v any) Object {
	n, _ := asUint64(v)
	return Object(uint32(n))
}

// AsBool converts a bool call result; anything else is false.
func AsBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// AsInt64 converts an integer call result.
func AsInt64(v any) int64 {
	n, _ := asUint64(v)
	return int64(n)
}

// AsString converts a string call result.
func AsString(v any) string {
	s, _ := v.(string)
	return s
}
