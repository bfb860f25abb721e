package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/honeycomb/config"
	"github.com/wippyai/honeycomb/wasm"
)

var (
	i32 = wasm.ValI32
	i64 = wasm.ValI64
)

func ft(params []wasm.ValType, results ...wasm.ValType) wasm.FuncType {
	return wasm.FuncType{Params: params, Results: results}
}

func types(ts ...wasm.ValType) []wasm.ValType { return ts }

// Data layout of the test adapter.
const (
	logMsgPtr = 16
	helloPtr  = 64
	errClsPtr = 128
	errMsgPtr = 160
	heapBase  = 4096
)

const (
	logMsg = "hello from guest"
	errCls = "demo.Error"
	errMsg = "bad input"
)

// testAdapter builds a module exporting:
//
//	Math#add(a: s32, b: s32) -> s32
//	Math#echo64(v: s64) -> s64
//	Math#next() -> s32          per-instance counter
//	Math#log()                  honeycomb.log(1, "hello from guest")
//	Text#length(s: string) -> u32
//	Text#echo(s: string) -> string
//	Text#hello() -> string
//	Boom#trap()                 unreachable
//	Boom#throw() -> u32         honeycomb.throw(7)
//	Boom#throwMessage()         honeycomb.throw_message("demo.Error", "bad input")
//	Boom#exit()                 proc_exit(3)
//	Box#get(self) -> u32        self + 1
//	Color#RED: u32, Color#BIG: s64
func testAdapter() []byte {
	b := wasm.NewBuilder()
	throw := b.ImportFunc(HostModule, "throw", ft(types(i32)))
	throwMessage := b.ImportFunc(HostModule, "throw_message", ft(types(i32, i32, i32, i32)))
	hostLog := b.ImportFunc(HostModule, "log", ft(types(i32, i32, i32)))
	procExit := b.ImportFunc("wasi_snapshot_preview1", "proc_exit", ft(types(i32)))

	b.Memory(1)
	b.Export("memory", wasm.KindMemory, 0)
	b.AddData(logMsgPtr, []byte(logMsg))
	b.AddData(helloPtr, []byte("hello"))
	b.AddData(errClsPtr, []byte(errCls))
	b.AddData(errMsgPtr, []byte(errMsg))

	b.Export(CabiRealloc, wasm.KindFunc, b.AddBumpAllocator(heapBase))
	counter := b.AddGlobal(i32, true, 0)
	b.Export("Color#RED", wasm.KindGlobal, b.AddGlobal(i32, false, 0xFF0000))
	b.Export("Color#BIG", wasm.KindGlobal, b.AddGlobal(i64, false, 1<<40))

	b.Export("Math#add", wasm.KindFunc, b.AddFunc(ft(types(i32, i32), i32), nil,
		wasm.Code{}.LocalGet(0).LocalGet(1).Op(wasm.OpI32Add).End()))
	b.Export("Math#echo64", wasm.KindFunc, b.AddFunc(ft(types(i64), i64), nil,
		wasm.Code{}.LocalGet(0).End()))
	b.Export("Math#next", wasm.KindFunc, b.AddFunc(ft(nil, i32), nil,
		wasm.Code{}.GlobalGet(counter).I32Const(1).Op(wasm.OpI32Add).GlobalSet(counter).GlobalGet(counter).End()))
	b.Export("Math#log", wasm.KindFunc, b.AddFunc(ft(nil), nil,
		wasm.Code{}.I32Const(1).I32Const(logMsgPtr).I32Const(int32(len(logMsg))).Call(hostLog).End()))

	b.Export("Text#length", wasm.KindFunc, b.AddFunc(ft(types(i32, i32), i32), nil,
		wasm.Code{}.LocalGet(1).End()))
	b.Export("Text#echo", wasm.KindFunc, b.AddFunc(ft(types(i32, i32), i64), nil,
		wasm.Code{}.
			LocalGet(1).Op(wasm.OpI64ExtendU).I64Const(32).Op(wasm.OpI64Shl).
			LocalGet(0).Op(wasm.OpI64ExtendU).Op(wasm.OpI64Or).
			End()))
	b.Export("Text#hello", wasm.KindFunc, b.AddFunc(ft(nil, i64), nil,
		wasm.Code{}.I64Const(int64(5)<<32|helloPtr).End()))

	b.Export("Boom#trap", wasm.KindFunc, b.AddFunc(ft(nil), nil,
		wasm.Code{}.Op(wasm.OpUnreachable).End()))
	b.Export("Boom#throw", wasm.KindFunc, b.AddFunc(ft(nil, i32), nil,
		wasm.Code{}.I32Const(7).Call(throw).I32Const(0).End()))
	b.Export("Boom#throwMessage", wasm.KindFunc, b.AddFunc(ft(nil), nil,
		wasm.Code{}.
			I32Const(errClsPtr).I32Const(int32(len(errCls))).
			I32Const(errMsgPtr).I32Const(int32(len(errMsg))).
			Call(throwMessage).End()))
	b.Export("Boom#exit", wasm.KindFunc, b.AddFunc(ft(nil), nil,
		wasm.Code{}.I32Const(3).Call(procExit).End()))

	b.Export("Box#get", wasm.KindFunc, b.AddFunc(ft(types(i32), i32), nil,
		wasm.Code{}.LocalGet(0).I32Const(1).Op(wasm.OpI32Add).End()))

	return b.Encode()
}

// extraAdapter redefines Math#add as a subtraction and adds Extra#one.
func extraAdapter() []byte {
	b := wasm.NewBuilder()
	b.Export("Math#add", wasm.KindFunc, b.AddFunc(ft(types(i32, i32), i32), nil,
		wasm.Code{}.LocalGet(0).LocalGet(1).Op(wasm.OpI32Sub).End()))
	b.Export("Extra#one", wasm.KindFunc, b.AddFunc(ft(nil, i32), nil,
		wasm.Code{}.I32Const(1).End()))
	return b.Encode()
}

// reactorAdapter exports _initialize, which sets Init#value to 42 or
// raises when fail is set.
func reactorAdapter(fail bool) []byte {
	b := wasm.NewBuilder()
	throwMessage := b.ImportFunc(HostModule, "throw_message", ft(types(i32, i32, i32, i32)))
	b.Memory(1)
	b.AddData(errClsPtr, []byte(errCls))

	value := b.AddGlobal(i32, true, 0)
	body := wasm.Code{}.I32Const(42).GlobalSet(value)
	if fail {
		body = body.I32Const(errClsPtr).I32Const(int32(len(errCls))).I32Const(0).I32Const(0).Call(throwMessage)
	}
	b.Export("_initialize", wasm.KindFunc, b.AddFunc(ft(nil), nil, body.End()))
	b.Export("Init#value", wasm.KindFunc, b.AddFunc(ft(nil, i32), nil, wasm.Code{}.GlobalGet(value).End()))
	return b.Encode()
}

func writeModule(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func classpath(paths ...string) string {
	return config.ClasspathOption + strings.Join(paths, string(os.PathListSeparator))
}

func newVM(t *testing.T, logger *zap.Logger, paths ...string) *VM {
	t.Helper()
	if logger == nil {
		logger = zap.NewNop()
	}
	freshRuntime(t)
	vm, err := CreateVM(context.Background(), []string{classpath(paths...), "-Xint"}, WithLogger(logger))
	if err != nil {
		t.Fatalf("CreateVM: %v", err)
	}
	t.Cleanup(func() { _ = vm.Close(context.Background()) })
	return vm
}

func attach(t *testing.T, vm *VM) *Env {
	t.Helper()
	env, err := vm.Attach(context.Background())
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(func() { _ = vm.Detach(context.Background(), env) })
	return env
}

func observed(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

func staticMethod(t *testing.T, env *Env, class, name, sig string) *StaticMethodID {
	t.Helper()
	c, err := env.FindClass(class)
	if err != nil {
		t.Fatalf("FindClass(%s): %v", class, err)
	}
	defer c.Release()
	m, err := env.GetStaticMethodID(c, name, sig)
	if err != nil {
		t.Fatalf("GetStaticMethodID(%s#%s): %v", class, name, err)
	}
	return m
}
