package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	herrors "github.com/wippyai/honeycomb/errors"
	"github.com/wippyai/honeycomb/wasm"
)

func TestCreateVM_Singleton(t *testing.T) {
	ctx := context.Background()
	path := writeModule(t, "adapter.wasm", testAdapter())

	vm := newVM(t, nil, path)
	if got := CreatedVMs(); len(got) != 1 || got[0] != vm {
		t.Fatalf("CreatedVMs = %v", got)
	}

	alreadyExists := &herrors.Error{Phase: herrors.PhaseBootstrap, Kind: herrors.KindAlreadyExists}
	_, err := CreateVM(ctx, []string{classpath(path), "-Xint"})
	if !errors.Is(err, alreadyExists) {
		t.Fatalf("second CreateVM error = %v, want already exists", err)
	}
	if !herrors.IsFatal(err) {
		t.Error("second creation must be fatal")
	}

	if err := vm.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := vm.Close(ctx); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if got := CreatedVMs(); len(got) != 1 || got[0] != vm || !vm.Closed() {
		t.Fatalf("CreatedVMs after close = %v, want the closed VM", got)
	}

	// closing does not allow another runtime in the same process
	_, err = CreateVM(ctx, []string{classpath(path), "-Xint"})
	if !errors.Is(err, alreadyExists) || !herrors.IsFatal(err) {
		t.Errorf("CreateVM after Close = %v, want fatal already exists", err)
	}
}

func TestCreateVM_Failures(t *testing.T) {
	dir := t.TempDir()
	noClasses := wasm.NewBuilder()
	noClasses.Memory(1)
	noClasses.Export("memory", wasm.KindMemory, 0)

	tests := []struct {
		name string
		path string
	}{
		{"missing entry", filepath.Join(dir, "missing.wasm")},
		{"not a module", writeModule(t, "garbage.wasm", []byte("not wasm at all"))},
		{"no classes", writeModule(t, "empty.wasm", noClasses.Encode())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			freshRuntime(t)
			vm, err := CreateVM(context.Background(), []string{classpath(tt.path), "-Xint"})
			if err == nil {
				_ = vm.Close(context.Background())
				t.Fatal("expected error")
			}
			if !errors.Is(err, &herrors.Error{Phase: herrors.PhaseBootstrap, Kind: herrors.KindCreateFailed}) {
				t.Errorf("error = %v, want create failed", err)
			}
			if !herrors.IsFatal(err) {
				t.Error("creation failure must be fatal")
			}
			if len(CreatedVMs()) != 0 {
				t.Error("failed VM must not be registered")
			}
		})
	}
}

func TestCreateVM_BadOptions(t *testing.T) {
	path := writeModule(t, "adapter.wasm", testAdapter())
	freshRuntime(t)
	_, err := CreateVM(context.Background(), []string{classpath(path), "-Xmx"})
	if !herrors.IsFatal(err) {
		t.Fatalf("error = %v, want fatal", err)
	}
	if len(CreatedVMs()) != 0 {
		t.Error("VM registered despite bad options")
	}
}

func TestCreateVM_IgnoredOptionWarns(t *testing.T) {
	logger, logs := observed(zapcore.WarnLevel)
	path := writeModule(t, "adapter.wasm", testAdapter())

	freshRuntime(t)
	vm, err := CreateVM(context.Background(), []string{classpath(path), "-Xint", "-Xss512k"}, WithLogger(logger))
	if err != nil {
		t.Fatalf("CreateVM: %v", err)
	}
	defer vm.Close(context.Background())

	entries := logs.FilterMessage("ignoring unsupported runtime option").All()
	if len(entries) != 1 {
		t.Fatalf("got %d warnings, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["option"]; got != "-Xss512k" {
		t.Errorf("option field = %v", got)
	}
}

func TestVM_Classes(t *testing.T) {
	vm := newVM(t, nil, writeModule(t, "adapter.wasm", testAdapter()))

	want := []string{"Boom", "Box", "Color", "Math", "Text"}
	got := vm.Classes()
	if len(got) != len(want) {
		t.Fatalf("Classes = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Classes[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if cp := vm.Classpath(); len(cp) != 1 {
		t.Errorf("Classpath = %q", cp)
	}
	if !vm.Options().Interpreter {
		t.Error("Options().Interpreter = false")
	}
}

func TestVM_ClasspathShadowing(t *testing.T) {
	ctx := context.Background()
	first := writeModule(t, "first.wasm", testAdapter())
	second := writeModule(t, "second.wasm", extraAdapter())

	vm := newVM(t, nil, first, second)
	env := attach(t, vm)

	add := staticMethod(t, env, "Math", "add", "func(a: s32, b: s32) -> s32")
	got, err := env.CallStatic(ctx, add, int32(5), int32(3))
	if err != nil || env.ExceptionCheck() {
		t.Fatalf("CallStatic: %v, %v", err, env.ExceptionOccurred())
	}
	if got != int32(8) {
		t.Errorf("Math#add = %v, want 8 from the first entry", got)
	}

	one := staticMethod(t, env, "Extra", "one", "func() -> s32")
	got, err = env.CallStatic(ctx, one)
	if err != nil || got != int32(1) {
		t.Errorf("Extra#one = %v, %v", got, err)
	}
}

func TestCreateVM_RunsInitialize(t *testing.T) {
	ctx := context.Background()
	vm := newVM(t, nil, writeModule(t, "reactor.wasm", reactorAdapter(false)))

	// _initialize ran once at creation; every later attachment sees its state
	for i := 0; i < 2; i++ {
		env, err := vm.Attach(ctx)
		if err != nil {
			t.Fatalf("Attach: %v", err)
		}
		value := staticMethod(t, env, "Init", "value", "func() -> s32")
		got, err := env.CallStatic(ctx, value)
		if err != nil || got != int32(42) {
			t.Errorf("attach %d: Init#value = %v, %v, want 42", i, got, err)
		}
		if err := vm.Detach(ctx, env); err != nil {
			t.Fatalf("Detach: %v", err)
		}
	}
}

func TestCreateVM_InitializeException(t *testing.T) {
	freshRuntime(t)
	path := writeModule(t, "reactor.wasm", reactorAdapter(true))

	vm, err := CreateVM(context.Background(), []string{classpath(path), "-Xint"})
	if err == nil {
		_ = vm.Close(context.Background())
		t.Fatal("CreateVM succeeded despite a failing _initialize")
	}
	if !errors.Is(err, &herrors.Error{Phase: herrors.PhaseBootstrap, Kind: herrors.KindInitializationError}) {
		t.Errorf("error = %v, want initialization error", err)
	}
	if !herrors.IsFatal(err) {
		t.Error("initialization failure must be fatal")
	}
	var ex *Exception
	if !errors.As(err, &ex) || ex.Class != errCls {
		t.Errorf("exception = %v, want %s", ex, errCls)
	}
	if len(CreatedVMs()) != 0 {
		t.Error("failed VM must not be registered")
	}
}

func TestVM_AttachAfterClose(t *testing.T) {
	ctx := context.Background()
	vm := newVM(t, nil, writeModule(t, "adapter.wasm", testAdapter()))
	env := attach(t, vm)

	if err := vm.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !env.Closed() {
		t.Error("Close should detach live envs")
	}
	if _, err := vm.Attach(ctx); err == nil {
		t.Fatal("Attach after Close should fail")
	}
	if _, err := env.FindClass("Math"); !errors.Is(err, &herrors.Error{Phase: herrors.PhaseCall, Kind: herrors.KindInvalidContext}) {
		t.Errorf("FindClass on detached env = %v", err)
	}
}

func TestVM_GlobalRefs(t *testing.T) {
	ctx := context.Background()
	vm := newVM(t, nil, writeModule(t, "adapter.wasm", testAdapter()))
	env := attach(t, vm)

	local, err := env.FindClass("Math")
	if err != nil {
		t.Fatalf("FindClass: %v", err)
	}
	global, err := vm.NewGlobalRef(local)
	if err != nil {
		t.Fatalf("NewGlobalRef: %v", err)
	}
	local.Release()
	local.Release()

	if env.LocalRefCount() != 0 {
		t.Errorf("LocalRefCount = %d, want 0", env.LocalRefCount())
	}
	if vm.GlobalRefCount() != 1 {
		t.Errorf("GlobalRefCount = %d, want 1", vm.GlobalRefCount())
	}
	if global.Kind().String() != "global" || global.Name() != "Math" {
		t.Errorf("global ref = %s %s", global.Kind(), global.Name())
	}

	// a global reference is usable from another Env
	other := attach(t, vm)
	add, err := other.GetStaticMethodID(global, "add", "func(a: s32, b: s32) -> s32")
	if err != nil {
		t.Fatalf("GetStaticMethodID via global ref: %v", err)
	}
	if got, _ := other.CallStatic(ctx, add, 1, 2); got != int32(3) {
		t.Errorf("add = %v", got)
	}

	global.Release()
	if vm.GlobalRefCount() != 0 {
		t.Errorf("GlobalRefCount after release = %d", vm.GlobalRefCount())
	}
	if _, err := vm.NewGlobalRef(global); !errors.Is(err, &herrors.Error{Phase: herrors.PhaseReference, Kind: herrors.KindReleased}) {
		t.Errorf("NewGlobalRef on released = %v", err)
	}
	if _, err := other.GetStaticMethodID(global, "add", "func(a: s32, b: s32) -> s32"); err == nil {
		t.Error("resolution through a released reference should fail")
	}
}

func TestVM_DetachWarnsAboutLeakedLocals(t *testing.T) {
	logger, logs := observed(zapcore.WarnLevel)
	vm := newVM(t, logger, writeModule(t, "adapter.wasm", testAdapter()))

	env, err := vm.Attach(context.Background())
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if _, err := env.FindClass("Math"); err != nil {
		t.Fatalf("FindClass: %v", err)
	}
	if err := vm.Detach(context.Background(), env); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if err := vm.Detach(context.Background(), env); err != nil {
		t.Errorf("second Detach: %v", err)
	}

	entries := logs.FilterMessage("releasing leaked local references on detach").All()
	if len(entries) != 1 {
		t.Fatalf("got %d warnings, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["count"]; got != int64(1) {
		t.Errorf("count = %v, want 1", got)
	}
}

func TestVM_GuestLog(t *testing.T) {
	logger, logs := observed(zapcore.DebugLevel)
	path := writeModule(t, "adapter.wasm", testAdapter())
	vm := newVM(t, logger, path)
	env := attach(t, vm)

	m := staticMethod(t, env, "Math", "log", "func()")
	if _, err := env.CallStatic(context.Background(), m); err != nil {
		t.Fatalf("CallStatic: %v", err)
	}

	entries := logs.FilterMessage(logMsg).All()
	if len(entries) != 1 {
		t.Fatalf("got %d guest log entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Level != zap.InfoLevel {
		t.Errorf("level = %s, want info", e.Level)
	}
	if e.LoggerName != "adapter" {
		t.Errorf("logger = %q, want adapter", e.LoggerName)
	}
	if e.ContextMap()["module"] != path {
		t.Errorf("module field = %v, want %s", e.ContextMap()["module"], path)
	}
}
