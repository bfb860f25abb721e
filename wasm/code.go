package wasm

import (
	"encoding/binary"
	"math"
)

// Code accumulates a function body.
type Code []byte

func (c Code) Op(ops ...byte) Code {
	return append(c, ops...)
}

func (c Code) I32Const(v int32) Code {
	return AppendS32(append(c, OpI32Const), v)
}

func (c Code) I64Const(v int64) Code {
	return AppendS64(append(c, OpI64Const), v)
}

func (c Code) F32Const(v float32) Code {
	return binary.LittleEndian.AppendUint32(append(c, OpF32Const), math.Float32bits(v))
}

func (c Code) F64Const(v float64) Code {
	return binary.LittleEndian.AppendUint64(append(c, OpF64Const), math.Float64bits(v))
}

func (c Code) LocalGet(idx uint32) Code {
	return AppendU32(append(c, OpLocalGet), idx)
}

func (c Code) LocalSet(idx uint32) Code {
	return AppendU32(append(c, OpLocalSet), idx)
}

func (c Code) GlobalGet(idx uint32) Code {
	return AppendU32(append(c, OpGlobalGet), idx)
}

func (c Code) GlobalSet(idx uint32) Code {
	return AppendU32(append(c, OpGlobalSet), idx)
}

func (c Code) Call(funcIdx uint32) Code {
	return AppendU32(append(c, OpCall), funcIdx)
}

// I32Load and I32Store use natural alignment and the given offset.
func (c Code) I32Load(offset uint32) Code {
	return AppendU32(append(c, OpI32Load, 2), offset)
}

func (c Code) I32Store(offset uint32) Code {
	return AppendU32(append(c, OpI32Store, 2), offset)
}

func (c Code) End() Code {
	return append(c, OpEnd)
}

// Zero pushes the zero value of t.
func (c Code) Zero(t ValType) Code {
	switch t {
	case ValI64:
		return c.I64Const(0)
	case ValF32:
		return c.F32Const(0)
	case ValF64:
		return c.F64Const(0)
	default:
		return c.I32Const(0)
	}
}
