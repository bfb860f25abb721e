// Package adaptertest builds adapter modules that satisfy the symbol
// contract, for tests. Every contract method gets a body returning zero
// values unless overridden, and static fields are numbered in declaration
// order within their class.
package adaptertest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/honeycomb/config"
	"github.com/wippyai/honeycomb/engine"
	"github.com/wippyai/honeycomb/internal/registry"
	"github.com/wippyai/honeycomb/symbols"
	"github.com/wippyai/honeycomb/wasm"
)

// Function indices of the host imports every module declares.
const (
	ImportThrow uint32 = iota
	ImportThrowMessage
	ImportLog
)

const (
	dataBase = 1024
	heapBase = 32 * 1024
)

type function struct {
	ft     wasm.FuncType
	locals []wasm.ValType
	body   []byte
}

// Module is a test adapter under construction.
type Module struct {
	b      *wasm.Builder
	bodies map[string][]byte
	funcs  map[string]function
	fields map[string]int64
	omit   map[string]bool
	data   uint32
}

// New starts a module with the honeycomb host imports and one page of
// memory.
func New() *Module {
	b := wasm.NewBuilder()
	i32 := wasm.ValI32
	b.ImportFunc(engine.HostModule, "throw", wasm.FuncType{Params: []wasm.ValType{i32}})
	b.ImportFunc(engine.HostModule, "throw_message", wasm.FuncType{Params: []wasm.ValType{i32, i32, i32, i32}})
	b.ImportFunc(engine.HostModule, "log", wasm.FuncType{Params: []wasm.ValType{i32, i32, i32}})
	b.Memory(1)
	b.Export("memory", wasm.KindMemory, 0)

	return &Module{
		b:      b,
		bodies: make(map[string][]byte),
		funcs:  make(map[string]function),
		fields: make(map[string]int64),
		omit:   make(map[string]bool),
		data:   dataBase,
	}
}

// Override replaces the body of a contract method. body must end with
// the end opcode and match the contract's core type.
func (m *Module) Override(export string, body wasm.Code) *Module {
	m.bodies[export] = body
	return m
}

// Func exports a function with an explicit type. Use it for exports outside
// the contract or to give a contract method the wrong type.
func (m *Module) Func(export string, ft wasm.FuncType, locals []wasm.ValType, body wasm.Code) *Module {
	m.funcs[export] = function{ft: ft, locals: locals, body: body}
	return m
}

// Field sets the value of a contract static field.
func (m *Module) Field(export string, value int64) *Module {
	m.fields[export] = value
	return m
}

// Omit leaves a contract export out. Omitting "Class#" omits every member
// of Class.
func (m *Module) Omit(export string) *Module {
	m.omit[export] = true
	return m
}

// Global adds a mutable global for adapter state.
func (m *Module) Global(t wasm.ValType, init int64) uint32 {
	return m.b.AddGlobal(t, true, init)
}

// Data places s in memory and returns its address and length.
func (m *Module) Data(s string) (ptr, length int32) {
	ptr = int32(m.data)
	m.b.AddData(m.data, []byte(s))
	m.data += uint32(len(s)+7) &^ 7
	if m.data >= heapBase {
		panic("adaptertest: data segment overflows into the heap")
	}
	return ptr, int32(len(s))
}

// ReturnString pushes s as a packed string result.
func (m *Module) ReturnString(s string) wasm.Code {
	if s == "" {
		return wasm.Code{}.I64Const(0)
	}
	ptr, n := m.Data(s)
	return wasm.Code{}.I64Const(int64(n)<<32 | int64(ptr))
}

// Throw raises obj as the pending exception.
func (m *Module) Throw(obj int32) wasm.Code {
	return wasm.Code{}.I32Const(obj).Call(ImportThrow)
}

// ThrowMessage raises an exception with only a class and a message.
func (m *Module) ThrowMessage(class, msg string) wasm.Code {
	cp, cl := m.Data(class)
	mp, ml := m.Data(msg)
	return wasm.Code{}.I32Const(cp).I32Const(cl).I32Const(mp).I32Const(ml).Call(ImportThrowMessage)
}

// Log writes msg through the host log import.
func (m *Module) Log(level int32, msg string) wasm.Code {
	p, n := m.Data(msg)
	return wasm.Code{}.I32Const(level).I32Const(p).I32Const(n).Call(ImportLog)
}

// Bytes encodes the module. The Module must not be used afterwards.
func (m *Module) Bytes() []byte {
	m.b.Export(engine.CabiRealloc, wasm.KindFunc, m.b.AddBumpAllocator(heapBase))

	fieldIndex := make(map[string]int64)
	for _, s := range symbols.Contract() {
		export := s.Export()
		if m.omit[export] || m.omit[s.Class+"#"] {
			continue
		}
		if _, ok := m.funcs[export]; ok {
			continue
		}

		if s.Kind == symbols.KindStaticField {
			value, ok := m.fields[export]
			if !ok {
				value = fieldIndex[s.Class]
			}
			fieldIndex[s.Class]++
			m.b.Export(export, wasm.KindGlobal, m.b.AddGlobal(FieldType(s), false, value))
			continue
		}

		ft := ContractType(s)
		body, ok := m.bodies[export]
		if !ok {
			code := wasm.Code{}
			for _, r := range ft.Results {
				code = code.Zero(r)
			}
			body = code.End()
		}
		m.b.Export(export, wasm.KindFunc, m.b.AddFunc(ft, nil, body))
	}

	names := make([]string, 0, len(m.funcs))
	for name := range m.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := m.funcs[name]
		m.b.Export(name, wasm.KindFunc, m.b.AddFunc(f.ft, f.locals, f.body))
	}
	return m.b.Encode()
}

// ContractType returns the core type a contract method is exported with.
func ContractType(s symbols.Symbol) wasm.FuncType {
	sig, err := engine.ParseSignature(s.Signature)
	if err != nil {
		panic(fmt.Sprintf("adaptertest: %s: %v", s.Export(), err))
	}
	return wasm.FuncType{
		Params:  valTypes(sig.CoreParams(s.Kind == symbols.KindMethod)),
		Results: valTypes(sig.CoreResults()),
	}
}

// FieldType returns the global type a contract static field is exported
// with.
func FieldType(s symbols.Symbol) wasm.ValType {
	sig, err := engine.ParseSignature("func() -> " + s.Signature)
	if err != nil {
		panic(fmt.Sprintf("adaptertest: %s: %v", s.Export(), err))
	}
	return valTypes(sig.CoreResults())[0]
}

func valTypes(ts []api.ValueType) []wasm.ValType {
	out := make([]wasm.ValType, len(ts))
	for i, t := range ts {
		out[i] = wasm.ValType(t)
	}
	return out
}

// FreshRuntime lets t create the process runtime. The claim is forgotten
// when t ends, after cleanups registered later (such as Close) have run.
func FreshRuntime(t testing.TB) {
	t.Helper()
	t.Cleanup(registry.Reset)
}

// Setup writes the adapter and both bootstrap files to a temporary
// directory and returns settings pointing at them. The interpreter is
// always selected; options are appended after it. It calls FreshRuntime.
func Setup(t testing.TB, adapter []byte, options ...string) *config.Settings {
	t.Helper()
	FreshRuntime(t)
	dir := t.TempDir()

	wasmPath := filepath.Join(dir, "adapter.wasm")
	write(t, wasmPath, adapter)

	s := config.DefaultSettings()
	s.Bootstrap.ClasspathFile = filepath.Join(dir, "classpath.conf")
	s.Bootstrap.OptionsFile = filepath.Join(dir, "runtime-options.conf")
	s.Log.Level = "debug"

	write(t, s.Bootstrap.ClasspathFile, []byte(wasmPath+"\n"))
	opts := append([]string{"-Xint"}, options...)
	write(t, s.Bootstrap.OptionsFile, []byte(strings.Join(opts, "\n")+"\n"))
	return s
}

func write(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
