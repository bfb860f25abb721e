package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/tetratelabs/wazero/sys"

	herrors "github.com/wippyai/honeycomb/errors"
)

func TestEnv_CallStatic(t *testing.T) {
	ctx := context.Background()
	vm := newVM(t, nil, writeModule(t, "adapter.wasm", testAdapter()))
	env := attach(t, vm)

	tests := []struct {
		class, name, sig string
		args             []any
		want             any
	}{
		{"Math", "add", "func(a: s32, b: s32) -> s32", []any{int32(-2), int32(5)}, int32(3)},
		{"Math", "add", "func(a: u32, b: u32) -> u32", []any{uint32(40), uint32(2)}, uint32(42)},
		{"Math", "echo64", "func(v: s64) -> s64", []any{int64(-1 << 40)}, int64(-1 << 40)},
		{"Math", "echo64", "func(v: u64) -> u64", []any{uint64(1 << 63)}, uint64(1 << 63)},
		{"Text", "length", "func(s: string) -> u32", []any{"héllo"}, uint32(6)},
		{"Text", "length", "func(s: string) -> u32", []any{""}, uint32(0)},
		{"Text", "echo", "func(s: string) -> string", []any{"round trip"}, "round trip"},
		{"Text", "hello", "func() -> string", nil, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.class+"#"+tt.name, func(t *testing.T) {
			m := staticMethod(t, env, tt.class, tt.name, tt.sig)
			got, err := env.CallStatic(ctx, m, tt.args...)
			if err != nil {
				t.Fatalf("CallStatic: %v", err)
			}
			if env.ExceptionCheck() {
				t.Fatalf("unexpected exception: %v", env.ExceptionOccurred())
			}
			if got != tt.want {
				t.Errorf("got %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
			if n := env.LocalRefCount(); n != 0 {
				t.Errorf("LocalRefCount = %d after call, want 0", n)
			}
		})
	}
}

func TestEnv_MethodIDAccessors(t *testing.T) {
	vm := newVM(t, nil, writeModule(t, "adapter.wasm", testAdapter()))
	env := attach(t, vm)

	m := staticMethod(t, env, "Math", "add", "func(a: s32, b: s32) -> s32")
	if m.Class() != "Math" || m.Name() != "add" {
		t.Errorf("method = %s#%s", m.Class(), m.Name())
	}
	if m.Signature().ParamNames[1] != "b" {
		t.Errorf("ParamNames = %q", m.Signature().ParamNames)
	}
}

func TestEnv_CallMethod(t *testing.T) {
	vm := newVM(t, nil, writeModule(t, "adapter.wasm", testAdapter()))
	env := attach(t, vm)

	c, err := env.FindClass("Box")
	if err != nil {
		t.Fatalf("FindClass: %v", err)
	}
	defer c.Release()

	m, err := env.GetMethodID(c, "get", "func() -> u32")
	if err != nil {
		t.Fatalf("GetMethodID: %v", err)
	}
	got, err := env.CallMethod(context.Background(), Object(41), m)
	if err != nil {
		t.Fatalf("CallMethod: %v", err)
	}
	if AsObject(got) != 42 {
		t.Errorf("Box#get = %v, want 42", got)
	}

	// the receiver is part of the core signature, so the static view differs
	if _, err := env.GetStaticMethodID(c, "get", "func() -> u32"); !errors.Is(err, &herrors.Error{Phase: herrors.PhaseResolve, Kind: herrors.KindSignatureMismatch}) {
		t.Errorf("static lookup of instance method = %v", err)
	}
}

func TestEnv_Resolution(t *testing.T) {
	vm := newVM(t, nil, writeModule(t, "adapter.wasm", testAdapter()))
	env := attach(t, vm)

	if _, err := env.FindClass("Nope"); !errors.Is(err, &herrors.Error{Phase: herrors.PhaseResolve, Kind: herrors.KindSymbolMissing}) {
		t.Errorf("FindClass(Nope) = %v", err)
	}

	c, err := env.FindClass("Math")
	if err != nil {
		t.Fatalf("FindClass: %v", err)
	}
	defer c.Release()

	tests := []struct {
		name, member, sig string
		kind              herrors.Kind
	}{
		{"missing method", "mul", "func(a: s32, b: s32) -> s32", herrors.KindSymbolMissing},
		{"wrong params", "add", "func(a: s64, b: s32) -> s32", herrors.KindSignatureMismatch},
		{"wrong result", "add", "func(a: s32, b: s32) -> f64", herrors.KindSignatureMismatch},
		{"missing result", "add", "func(a: s32, b: s32)", herrors.KindSignatureMismatch},
		{"unparsable", "add", "add(s32)", herrors.KindInvalidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.GetStaticMethodID(c, tt.member, tt.sig)
			if !errors.Is(err, &herrors.Error{Phase: herrors.PhaseResolve, Kind: tt.kind}) {
				t.Errorf("error = %v, want %s", err, tt.kind)
			}
		})
	}

	_, err = env.GetStaticMethodID(c, "add", "func(a: s64, b: s32) -> s32")
	var he *herrors.Error
	if !errors.As(err, &he) || he.Symbol != "Math#add" || he.Detail != "adapter exports (i32, i32) -> (i32)" {
		t.Errorf("mismatch detail = %+v", he)
	}
}

func TestEnv_StaticFields(t *testing.T) {
	vm := newVM(t, nil, writeModule(t, "adapter.wasm", testAdapter()))
	env := attach(t, vm)

	c, err := env.FindClass("Color")
	if err != nil {
		t.Fatalf("FindClass: %v", err)
	}
	defer c.Release()

	red, err := env.GetStaticFieldID(c, "RED", "u32")
	if err != nil {
		t.Fatalf("GetStaticFieldID(RED): %v", err)
	}
	if red.Class() != "Color" || red.Name() != "RED" {
		t.Errorf("field = %s#%s", red.Class(), red.Name())
	}
	if v, err := env.GetStaticField(red); err != nil || v != uint32(0xFF0000) {
		t.Errorf("RED = %v, %v", v, err)
	}

	big, err := env.GetStaticFieldID(c, "BIG", "s64")
	if err != nil {
		t.Fatalf("GetStaticFieldID(BIG): %v", err)
	}
	if v, err := env.GetStaticField(big); err != nil || v != int64(1<<40) {
		t.Errorf("BIG = %v, %v", v, err)
	}

	if _, err := env.GetStaticFieldID(c, "RED", "s64"); !errors.Is(err, &herrors.Error{Phase: herrors.PhaseResolve, Kind: herrors.KindSignatureMismatch}) {
		t.Errorf("RED as s64 = %v", err)
	}
	if _, err := env.GetStaticFieldID(c, "GREEN", "u32"); !errors.Is(err, &herrors.Error{Phase: herrors.PhaseResolve, Kind: herrors.KindSymbolMissing}) {
		t.Errorf("GREEN = %v", err)
	}
	if _, err := env.GetStaticFieldID(c, "RED", "string"); err == nil {
		t.Error("string field should be rejected")
	}
}

func TestEnv_SharedState(t *testing.T) {
	ctx := context.Background()
	vm := newVM(t, nil, writeModule(t, "adapter.wasm", testAdapter()))
	a := attach(t, vm)
	b := attach(t, vm)

	next := staticMethod(t, a, "Math", "next", "func() -> s32")
	for want := int32(1); want <= 2; want++ {
		if got, _ := a.CallStatic(ctx, next); got != want {
			t.Errorf("env a next = %v, want %d", got, want)
		}
	}
	// adapter state belongs to the VM, not to the attachment
	if got, _ := b.CallStatic(ctx, next); got != int32(3) {
		t.Errorf("env b next = %v, want 3", got)
	}
	if err := vm.Detach(ctx, a); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	c := attach(t, vm)
	if got, _ := c.CallStatic(ctx, next); got != int32(4) {
		t.Errorf("env after detach next = %v, want 4", got)
	}
}

func TestEnv_ConcurrentCalls(t *testing.T) {
	const goroutines, calls = 8, 50
	ctx := context.Background()
	vm := newVM(t, nil, writeModule(t, "adapter.wasm", testAdapter()))

	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env, err := vm.Attach(ctx)
			if err != nil {
				errs <- err
				return
			}
			defer vm.Detach(ctx, env)
			c, err := env.FindClass("Math")
			if err != nil {
				errs <- err
				return
			}
			defer c.Release()
			next, err := env.GetStaticMethodID(c, "next", "func() -> s32")
			if err != nil {
				errs <- err
				return
			}
			text, err := env.FindClass("Text")
			if err != nil {
				errs <- err
				return
			}
			defer text.Release()
			echo, err := env.GetStaticMethodID(text, "echo", "func(s: string) -> string")
			if err != nil {
				errs <- err
				return
			}
			for i := 0; i < calls; i++ {
				if _, err := env.CallStatic(ctx, next); err != nil {
					errs <- err
					return
				}
				if v, err := env.CallStatic(ctx, echo, "abc"); err != nil || v != "abc" {
					errs <- fmt.Errorf("echo = %v, %v", v, err)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	env := attach(t, vm)
	next := staticMethod(t, env, "Math", "next", "func() -> s32")
	if got, _ := env.CallStatic(ctx, next); got != int32(goroutines*calls+1) {
		t.Errorf("next = %v, want %d", got, goroutines*calls+1)
	}
}

func TestEnv_ArgumentErrors(t *testing.T) {
	ctx := context.Background()
	vm := newVM(t, nil, writeModule(t, "adapter.wasm", testAdapter()))
	env := attach(t, vm)

	add := staticMethod(t, env, "Math", "add", "func(a: s32, b: s32) -> s32")
	invalid := &herrors.Error{Phase: herrors.PhaseCall, Kind: herrors.KindInvalidInput}

	if _, err := env.CallStatic(ctx, add, 1); !errors.Is(err, invalid) {
		t.Errorf("arity error = %v", err)
	}
	if _, err := env.CallStatic(ctx, add, "one", 2); !errors.Is(err, invalid) {
		t.Errorf("type error = %v", err)
	}

	length := staticMethod(t, env, "Text", "length", "func(s: string) -> u32")
	if _, err := env.CallStatic(ctx, length, 5); !errors.Is(err, invalid) {
		t.Errorf("string type error = %v", err)
	}
	if env.ExceptionCheck() {
		t.Error("bridge misuse must not raise an exception")
	}
	if n := env.LocalRefCount(); n != 0 {
		t.Errorf("LocalRefCount = %d, want 0", n)
	}
}

func TestEnv_Trap(t *testing.T) {
	ctx := context.Background()
	vm := newVM(t, nil, writeModule(t, "adapter.wasm", testAdapter()))
	env := attach(t, vm)

	trap := staticMethod(t, env, "Boom", "trap", "func()")
	got, err := env.CallStatic(ctx, trap)
	if err != nil || got != nil {
		t.Fatalf("CallStatic = %v, %v; want nil, nil", got, err)
	}
	if !env.ExceptionCheck() {
		t.Fatal("trap should leave an exception pending")
	}
	ex := env.ExceptionOccurred()
	if ex.Class != TrapClass || ex.Message != "unreachable" {
		t.Errorf("exception = %s: %s", ex.Class, ex.Message)
	}
	if len(ex.Frames) == 0 {
		t.Error("trap should carry stack frames")
	}
	if ex.Thrown() {
		t.Error("a trap has no adapter Throwable")
	}
	if ex.Cause == nil {
		t.Error("trap should keep the runtime error as cause")
	}
}

func TestEnv_Throw(t *testing.T) {
	ctx := context.Background()
	vm := newVM(t, nil, writeModule(t, "adapter.wasm", testAdapter()))
	env := attach(t, vm)

	throw := staticMethod(t, env, "Boom", "throw", "func() -> u32")
	got, err := env.CallStatic(ctx, throw)
	if err != nil || got != nil {
		t.Fatalf("CallStatic = %v, %v; want nil, nil", got, err)
	}
	ex := env.ExceptionOccurred()
	if ex == nil || !ex.Thrown() || ex.Object != 7 {
		t.Fatalf("exception = %+v, want thrown object 7", ex)
	}

	// calls are refused until the exception is cleared
	add := staticMethod(t, env, "Math", "add", "func(a: s32, b: s32) -> s32")
	if _, err := env.CallStatic(ctx, add, 1, 1); !errors.Is(err, &herrors.Error{Phase: herrors.PhaseCall, Kind: herrors.KindPendingException}) {
		t.Errorf("call with pending exception = %v", err)
	}
	if env.ExceptionOccurred() != ex {
		t.Error("refused call must not replace the pending exception")
	}

	env.ExceptionClear()
	if env.ExceptionCheck() {
		t.Fatal("ExceptionClear did not clear")
	}
	if got, err := env.CallStatic(ctx, add, 1, 1); err != nil || got != int32(2) {
		t.Errorf("add after clear = %v, %v", got, err)
	}
}

func TestEnv_ThrowMessage(t *testing.T) {
	vm := newVM(t, nil, writeModule(t, "adapter.wasm", testAdapter()))
	env := attach(t, vm)

	m := staticMethod(t, env, "Boom", "throwMessage", "func()")
	if _, err := env.CallStatic(context.Background(), m); err != nil {
		t.Fatalf("CallStatic: %v", err)
	}
	ex := env.ExceptionOccurred()
	if ex == nil {
		t.Fatal("no exception pending")
	}
	if ex.Class != errCls || ex.Message != errMsg {
		t.Errorf("exception = %q", ex.Error())
	}
	if ex.Error() != errCls+": "+errMsg {
		t.Errorf("Error() = %q", ex.Error())
	}
}

func TestEnv_ExitBreaksVM(t *testing.T) {
	ctx := context.Background()
	vm := newVM(t, nil, writeModule(t, "adapter.wasm", testAdapter()))
	env := attach(t, vm)

	exit := staticMethod(t, env, "Boom", "exit", "func()")
	add := staticMethod(t, env, "Math", "add", "func(a: s32, b: s32) -> s32")

	if _, err := env.CallStatic(ctx, exit); err != nil {
		t.Fatalf("CallStatic: %v", err)
	}
	ex := env.ExceptionOccurred()
	if ex == nil || ex.Class != ExitClass {
		t.Fatalf("exception = %v, want %s", ex, ExitClass)
	}
	var exitErr *sys.ExitError
	if !errors.As(ex, &exitErr) || exitErr.ExitCode() != 3 {
		t.Errorf("cause = %v, want exit code 3", ex.Cause)
	}

	env.ExceptionClear()
	unavailable := &herrors.Error{Phase: herrors.PhaseCall, Kind: herrors.KindRuntimeUnavailable}
	if _, err := env.CallStatic(ctx, add, 1, 1); !errors.Is(err, unavailable) {
		t.Errorf("call on exited env = %v", err)
	}

	// the exited instance is shared, so every attachment is affected
	other := attach(t, vm)
	if _, err := other.CallStatic(ctx, add, 1, 1); !errors.Is(err, unavailable) {
		t.Errorf("call on another env = %v", err)
	}
}

func TestEnv_ReadString(t *testing.T) {
	vm := newVM(t, nil, writeModule(t, "adapter.wasm", testAdapter()))
	env := attach(t, vm)

	c, err := env.FindClass("Text")
	if err != nil {
		t.Fatalf("FindClass: %v", err)
	}
	defer c.Release()

	s, err := env.ReadString(c, helloPtr, 5)
	if err != nil || s != "hello" {
		t.Errorf("ReadString = %q, %v", s, err)
	}
	if _, err := env.ReadString(c, 1<<20, 4); err == nil {
		t.Error("out of bounds read should fail")
	}
	if size := env.Memory(c).Size(); size != 65536 {
		t.Errorf("memory size = %d", size)
	}
}
