package wasm

import (
	"encoding/binary"
	"fmt"
)

// FuncType is a core function type.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (ft FuncType) key() string {
	return fmt.Sprint(ft.Params, ft.Results)
}

type importFunc struct {
	module, name string
	typeIdx      uint32
}

type function struct {
	typeIdx uint32
	locals  []ValType
	body    []byte
}

type global struct {
	typ     ValType
	mutable bool
	init    int64
}

type dataSegment struct {
	offset uint32
	data   []byte
}

// Builder assembles a module with function imports, one optional memory,
// integer globals, exports and active data segments.
type Builder struct {
	typeIdx  map[string]uint32
	types    []FuncType
	imports  []importFunc
	funcs    []function
	globals  []global
	exports  []Export
	data     []dataSegment
	memPages uint32
	hasMem   bool
}

// NewBuilder creates an empty module builder.
func NewBuilder() *Builder {
	return &Builder{typeIdx: make(map[string]uint32)}
}

func (b *Builder) typeOf(ft FuncType) uint32 {
	k := ft.key()
	if idx, ok := b.typeIdx[k]; ok {
		return idx
	}
	idx := uint32(len(b.types))
	b.types = append(b.types, ft)
	b.typeIdx[k] = idx
	return idx
}

// ImportFunc declares a function import and returns its function index.
// Imports must be declared before any function is added.
func (b *Builder) ImportFunc(module, name string, ft FuncType) uint32 {
	if len(b.funcs) > 0 {
		panic("wasm: ImportFunc after AddFunc")
	}
	b.imports = append(b.imports, importFunc{module: module, name: name, typeIdx: b.typeOf(ft)})
	return uint32(len(b.imports) - 1)
}

// AddFunc adds a function and returns its function index. body holds the
// instructions including the final end opcode.
func (b *Builder) AddFunc(ft FuncType, locals []ValType, body []byte) uint32 {
	b.funcs = append(b.funcs, function{typeIdx: b.typeOf(ft), locals: locals, body: body})
	return uint32(len(b.imports) + len(b.funcs) - 1)
}

// Memory declares the module memory with the given minimum page count.
func (b *Builder) Memory(minPages uint32) {
	b.memPages = minPages
	b.hasMem = true
}

// AddGlobal adds an integer global and returns its index.
func (b *Builder) AddGlobal(t ValType, mutable bool, init int64) uint32 {
	b.globals = append(b.globals, global{typ: t, mutable: mutable, init: init})
	return uint32(len(b.globals) - 1)
}

// Export exports the item of the given kind and index under name.
func (b *Builder) Export(name string, kind byte, idx uint32) {
	b.exports = append(b.exports, Export{Name: name, Kind: kind, Index: idx})
}

// AddData places data at offset in memory 0.
func (b *Builder) AddData(offset uint32, data []byte) {
	b.data = append(b.data, dataSegment{offset: offset, data: data})
}

// Encode returns the binary module.
func (b *Builder) Encode() []byte {
	out := binary.LittleEndian.AppendUint32(nil, Magic)
	out = binary.LittleEndian.AppendUint32(out, Version)

	if len(b.types) > 0 {
		sec := AppendU32(nil, uint32(len(b.types)))
		for _, ft := range b.types {
			sec = append(sec, FuncTypeByte)
			sec = appendValTypes(sec, ft.Params)
			sec = appendValTypes(sec, ft.Results)
		}
		out = appendSection(out, SectionType, sec)
	}

	if len(b.imports) > 0 {
		sec := AppendU32(nil, uint32(len(b.imports)))
		for _, imp := range b.imports {
			sec = AppendName(sec, imp.module)
			sec = AppendName(sec, imp.name)
			sec = append(sec, KindFunc)
			sec = AppendU32(sec, imp.typeIdx)
		}
		out = appendSection(out, SectionImport, sec)
	}

	if len(b.funcs) > 0 {
		sec := AppendU32(nil, uint32(len(b.funcs)))
		for _, f := range b.funcs {
			sec = AppendU32(sec, f.typeIdx)
		}
		out = appendSection(out, SectionFunction, sec)
	}

	if b.hasMem {
		sec := AppendU32(nil, 1)
		sec = append(sec, 0x00) // limits without maximum
		sec = AppendU32(sec, b.memPages)
		out = appendSection(out, SectionMemory, sec)
	}

	if len(b.globals) > 0 {
		sec := AppendU32(nil, uint32(len(b.globals)))
		for _, g := range b.globals {
			sec = append(sec, byte(g.typ))
			if g.mutable {
				sec = append(sec, 0x01)
			} else {
				sec = append(sec, 0x00)
			}
			if g.typ == ValI64 {
				sec = append(sec, OpI64Const)
				sec = AppendS64(sec, g.init)
			} else {
				sec = append(sec, OpI32Const)
				sec = AppendS32(sec, int32(g.init))
			}
			sec = append(sec, OpEnd)
		}
		out = appendSection(out, SectionGlobal, sec)
	}

	if len(b.exports) > 0 {
		sec := AppendU32(nil, uint32(len(b.exports)))
		for _, e := range b.exports {
			sec = AppendName(sec, e.Name)
			sec = append(sec, e.Kind)
			sec = AppendU32(sec, e.Index)
		}
		out = appendSection(out, SectionExport, sec)
	}

	if len(b.funcs) > 0 {
		sec := AppendU32(nil, uint32(len(b.funcs)))
		for _, f := range b.funcs {
			body := appendLocals(nil, f.locals)
			body = append(body, f.body...)
			sec = AppendU32(sec, uint32(len(body)))
			sec = append(sec, body...)
		}
		out = appendSection(out, SectionCode, sec)
	}

	if len(b.data) > 0 {
		sec := AppendU32(nil, uint32(len(b.data)))
		for _, d := range b.data {
			sec = append(sec, 0x00, OpI32Const) // active, memory 0
			sec = AppendS32(sec, int32(d.offset))
			sec = append(sec, OpEnd)
			sec = AppendU32(sec, uint32(len(d.data)))
			sec = append(sec, d.data...)
		}
		out = appendSection(out, SectionData, sec)
	}

	return out
}

func appendSection(out []byte, id byte, content []byte) []byte {
	out = append(out, id)
	out = AppendU32(out, uint32(len(content)))
	return append(out, content...)
}

func appendValTypes(buf []byte, types []ValType) []byte {
	buf = AppendU32(buf, uint32(len(types)))
	for _, t := range types {
		buf = append(buf, byte(t))
	}
	return buf
}

// appendLocals run-length encodes local declarations.
func appendLocals(buf []byte, locals []ValType) []byte {
	type run struct {
		n uint32
		t ValType
	}
	var runs []run
	for _, t := range locals {
		if len(runs) > 0 && runs[len(runs)-1].t == t {
			runs[len(runs)-1].n++
			continue
		}
		runs = append(runs, run{n: 1, t: t})
	}
	buf = AppendU32(buf, uint32(len(runs)))
	for _, r := range runs {
		buf = AppendU32(buf, r.n)
		buf = append(buf, byte(r.t))
	}
	return buf
}

// AddBumpAllocator adds a cabi_realloc(old_ptr, old_size, align, new_size)
// that hands out 8-byte aligned blocks from base upwards and never reuses
// them. A new size of zero returns 0. It returns the function index.
func (b *Builder) AddBumpAllocator(base uint32) uint32 {
	heap := b.AddGlobal(ValI32, true, int64(base))
	body := Code{}.
		LocalGet(3).Op(OpI32Eqz).Op(OpIf, BlockVoid).I32Const(0).Op(OpReturn).End().
		GlobalGet(heap).
		GlobalGet(heap).LocalGet(3).Op(OpI32Add).I32Const(7).Op(OpI32Add).I32Const(-8).Op(OpI32And).GlobalSet(heap).
		End()
	i32 := ValI32
	return b.AddFunc(FuncType{Params: []ValType{i32, i32, i32, i32}, Results: []ValType{i32}}, nil, body)
}
