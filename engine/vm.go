package engine

import (
	"context"
	"crypto/rand"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"

	"github.com/wippyai/honeycomb/errors"
	"github.com/wippyai/honeycomb/internal/registry"
	"github.com/wippyai/honeycomb/resource"
	"github.com/wippyai/honeycomb/wasm"
)

// CreatedVMs returns the runtime created in this process. A closed VM stays
// listed, since the process cannot create another; check Closed.
func CreatedVMs() []*VM {
	vm, _ := registry.Current().(*VM)
	if vm == nil {
		return nil
	}
	return []*VM{vm}
}

type compiledModule struct {
	compiled wazero.CompiledModule
	path     string
}

// class is the set of exports sharing a Class# prefix in one module.
// A class defined by an earlier classpath entry shadows later ones.
type class struct {
	funcs  map[string]api.FunctionDefinition
	fields map[string]struct{}
	name   string
	module int
}

// VM is the embedded runtime. At most one is created per process, and its
// adapter instances are shared by every attached goroutine. Adapter code is
// single threaded, so guest execution is serialized by exec.
type VM struct {
	runtime   wazero.Runtime
	cache     wazero.CompilationCache
	opts      *Options
	logger    *zap.Logger
	guestLog  *zap.Logger
	stdout    *zapio.Writer
	stderr    *zapio.Writer
	broken    error
	classes   map[string]*class
	envs      map[*Env]struct{}
	globals   *resource.Table
	modules   []compiledModule
	instances []api.Module
	exec      sync.Mutex
	mu        sync.Mutex
	closed    bool
}

// VMOption configures CreateVM.
type VMOption func(*VM)

// WithLogger sets the logger used by the VM and its Envs.
func WithLogger(l *zap.Logger) VMOption {
	return func(vm *VM) {
		if l != nil {
			vm.logger = l
		}
	}
}

// CreateVM creates the process runtime from option strings, instantiates
// every classpath module and runs their _initialize exports. It fails with
// KindAlreadyExists once a VM was created in the process, even after that
// VM was closed. Every failure is fatal.
func CreateVM(ctx context.Context, args []string, opts ...VMOption) (*VM, error) {
	registry.Lock()
	defer registry.Unlock()

	if registry.Claimed() {
		return nil, errors.AlreadyExists("embedded runtime")
	}

	o, err := ParseOptions(args)
	if err != nil {
		return nil, err
	}

	vm := &VM{
		opts:    o,
		logger:  Logger(),
		classes: make(map[string]*class),
		envs:    make(map[*Env]struct{}),
		globals: resource.NewTable(resource.Global),
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.guestLog = vm.logger.Named("adapter")
	level := vm.guestLevel()
	vm.stdout = &zapio.Writer{Log: vm.guestLog.With(zap.String("stream", "stdout")), Level: level}
	vm.stderr = &zapio.Writer{Log: vm.guestLog.With(zap.String("stream", "stderr")), Level: level}

	for _, ignored := range o.Ignored {
		vm.logger.Warn("ignoring unsupported runtime option", zap.String("option", ignored))
	}

	if err := vm.start(ctx); err != nil {
		_ = vm.shutdown(ctx)
		return nil, errors.New(errors.PhaseBootstrap, errors.KindCreateFailed).
			Cause(err).
			Detail("failed to create runtime, check the classpath").
			Fatal().
			Build()
	}

	registry.Claim(vm)
	return vm, nil
}

func (vm *VM) start(ctx context.Context) error {
	var cfg wazero.RuntimeConfig
	if vm.opts.Interpreter {
		cfg = wazero.NewRuntimeConfigInterpreter()
	} else {
		cfg = wazero.NewRuntimeConfig()
	}
	if vm.opts.MemoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(vm.opts.MemoryLimitPages)
	}
	if vm.opts.CacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(vm.opts.CacheDir)
		if err != nil {
			return err
		}
		vm.cache = cache
		cfg = cfg.WithCompilationCache(cache)
	}

	vm.runtime = wazero.NewRuntimeWithConfig(ctx, cfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, vm.runtime); err != nil {
		return err
	}
	if err := vm.instantiateHost(ctx, vm.runtime); err != nil {
		return err
	}

	for _, path := range vm.opts.Classpath {
		if err := vm.load(ctx, path); err != nil {
			return err
		}
	}
	if len(vm.classes) == 0 {
		return errors.New(errors.PhaseBootstrap, errors.KindNotFound).
			Detail("classpath %s defines no classes", strings.Join(vm.opts.Classpath, string(os.PathListSeparator))).
			Build()
	}

	for _, m := range vm.modules {
		inst, err := vm.runtime.InstantiateModule(ctx, m.compiled, vm.moduleConfig())
		if err != nil {
			return errors.Instantiation(m.path, err)
		}
		vm.instances = append(vm.instances, inst)
	}
	return vm.initialize(ctx)
}

// initialize runs _initialize of every reactor module in classpath order.
// _start is never run.
func (vm *VM) initialize(ctx context.Context) error {
	env := newEnv(vm)
	defer func() { _ = env.close(ctx) }()
	callCtx := withEnv(ctx, env)

	vm.exec.Lock()
	defer vm.exec.Unlock()
	for i, inst := range vm.instances {
		init := inst.ExportedFunction("_initialize")
		if init == nil {
			continue
		}
		path := vm.modules[i].path
		if _, err := init.Call(callCtx); err != nil {
			return errors.Wrap(errors.PhaseBootstrap, errors.KindInitializationError, err, "_initialize "+path)
		}
		if ex := env.ExceptionOccurred(); ex != nil {
			return errors.Wrap(errors.PhaseBootstrap, errors.KindInitializationError, ex, "_initialize "+path)
		}
	}
	return nil
}

func (vm *VM) load(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.PhaseBootstrap, errors.KindIO, err, "read classpath entry "+path)
	}
	exports, err := wasm.ReadExports(data)
	if err != nil {
		return errors.Wrap(errors.PhaseBootstrap, errors.KindInvalidData, err, "parse classpath entry "+path)
	}
	compiled, err := vm.runtime.CompileModule(ctx, data)
	if err != nil {
		return errors.Wrap(errors.PhaseBootstrap, errors.KindInvalidData, err, "compile classpath entry "+path)
	}

	idx := len(vm.modules)
	vm.modules = append(vm.modules, compiledModule{compiled: compiled, path: path})

	defs := compiled.ExportedFunctions()
	for _, e := range exports {
		name, member, ok := strings.Cut(e.Name, "#")
		if !ok || name == "" || member == "" {
			continue
		}
		c := vm.classes[name]
		if c == nil {
			c = &class{
				name:   name,
				module: idx,
				funcs:  make(map[string]api.FunctionDefinition),
				fields: make(map[string]struct{}),
			}
			vm.classes[name] = c
		} else if c.module != idx {
			vm.logger.Debug("class shadowed by earlier classpath entry",
				zap.String("class", name), zap.String("entry", path))
			continue
		}
		switch e.Kind {
		case wasm.KindFunc:
			c.funcs[member] = defs[e.Name]
		case wasm.KindGlobal:
			c.fields[member] = struct{}{}
		}
	}
	return nil
}

// Attach creates an execution context for the calling goroutine. The Env
// shares the VM's adapter instances and holds only per-goroutine state:
// function slots, the pending exception and local references.
func (vm *VM) Attach(ctx context.Context) (*Env, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return nil, errors.AttachFailed(errors.NotInitialized(errors.PhaseAttach, "runtime"))
	}
	env := newEnv(vm)
	vm.envs[env] = struct{}{}
	return env, nil
}

func (vm *VM) moduleConfig() wazero.ModuleConfig {
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions().
		WithStdout(vm.stdout).
		WithStderr(vm.stderr).
		WithSysWalltime().
		WithSysNanotime().
		WithRandSource(rand.Reader)

	keys := make([]string, 0, len(vm.opts.Env))
	for k := range vm.opts.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cfg = cfg.WithEnv(k, vm.opts.Env[k])
	}
	return cfg
}

func (vm *VM) guestLevel() zapcore.Level {
	if vm.opts.Verbose {
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}

// Detach closes env. Adapter state stays with the VM. Detaching a closed Env
// is a no-op.
func (vm *VM) Detach(ctx context.Context, env *Env) error {
	if env == nil {
		return nil
	}
	vm.mu.Lock()
	delete(vm.envs, env)
	vm.mu.Unlock()
	return env.close(ctx)
}

// NewGlobalRef promotes a class reference to a global reference that
// outlives the Env it was found in.
func (vm *VM) NewGlobalRef(c *ClassRef) (*ClassRef, error) {
	if !c.Valid() {
		return nil, errors.New(errors.PhaseReference, errors.KindReleased).
			Detail("cannot promote a released reference").
			Build()
	}
	ref, err := vm.globals.Acquire(c.class)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseReference, errors.KindRuntimeUnavailable, err, "new global reference")
	}
	return &ClassRef{ref: ref, class: c.class}, nil
}

// GlobalRefCount returns the number of live global references.
func (vm *VM) GlobalRefCount() int {
	return vm.globals.Len()
}

// Classpath returns the classpath entries in load order.
func (vm *VM) Classpath() []string {
	return append([]string(nil), vm.opts.Classpath...)
}

// Options returns the parsed runtime options.
func (vm *VM) Options() *Options {
	return vm.opts
}

// Classes returns the defined class names, sorted.
func (vm *VM) Classes() []string {
	names := make([]string, 0, len(vm.classes))
	for name := range vm.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// moduleIndex returns the classpath index of an instance, or -1.
func (vm *VM) moduleIndex(mod api.Module) int {
	for i, inst := range vm.instances {
		if inst == mod {
			return i
		}
	}
	return -1
}

// exited marks the VM unusable after an adapter called proc_exit, which
// closes the shared instance.
func (vm *VM) exited(err error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.broken == nil {
		vm.broken = err
	}
}

func (vm *VM) exitErr() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.broken
}

// Closed reports whether Close was called.
func (vm *VM) Closed() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.closed
}

// Close detaches every Env, releases global references and closes the
// runtime. The process cannot create another VM afterwards.
func (vm *VM) Close(ctx context.Context) error {

	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return nil
	}
	vm.closed = true
	envs := make([]*Env, 0, len(vm.envs))
	for env := range vm.envs {
		envs = append(envs, env)
	}
	vm.envs = nil
	vm.mu.Unlock()

	var err error
	for _, env := range envs {
		err = multierr.Append(err, env.close(ctx))
	}
	return multierr.Append(err, vm.shutdown(ctx))
}

func (vm *VM) shutdown(ctx context.Context) error {
	err := vm.globals.Close()
	if vm.runtime != nil {
		err = multierr.Append(err, vm.runtime.Close(ctx))
	}
	err = multierr.Append(err, vm.stdout.Close())
	err = multierr.Append(err, vm.stderr.Close())
	if vm.cache != nil {
		err = multierr.Append(err, vm.cache.Close(ctx))
	}
	return err
}
