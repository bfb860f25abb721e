package engine

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/honeycomb"
	"github.com/wippyai/honeycomb/errors"
	"github.com/wippyai/honeycomb/resource"
)

// Object is an adapter-side object handle. 0 is null.
type Object uint32

// ClassRef is a local or global reference to a class.
type ClassRef struct {
	ref   *resource.Ref
	class *class
}

// Name returns the class name.
func (c *ClassRef) Name() string {
	return c.class.name
}

// Kind reports whether the reference is local or global.
func (c *ClassRef) Kind() resource.Kind {
	return c.ref.Kind()
}

// Valid reports whether the reference has not been released.
func (c *ClassRef) Valid() bool {
	return c != nil && !c.ref.Released()
}

// Release drops the reference. It may be called more than once.
func (c *ClassRef) Release() {
	if c != nil {
		c.ref.Release()
	}
}

type method struct {
	def    api.FunctionDefinition
	sig    *Signature
	class  *class
	name   string
	export string
}

func (m *method) Class() string          { return m.class.name }
func (m *method) Name() string           { return m.name }
func (m *method) Signature() *Signature { return m.sig }

// MethodID identifies an instance method. It stays valid for the VM's life
// and may be used from any Env.
type MethodID struct{ method }

// StaticMethodID identifies a static method.
type StaticMethodID struct{ method }

// StaticFieldID identifies a static field backed by an exported global.
type StaticFieldID struct {
	typ    wit.Type
	class  *class
	name   string
	export string
}

func (f *StaticFieldID) Class() string { return f.class.name }
func (f *StaticFieldID) Name() string  { return f.name }

// Env is the execution context of one attached goroutine. It must only be
// used by the goroutine that attached it. Adapter instances belong to the
// VM; an Env owns its function slots, its pending exception and its local
// references.
type Env struct {
	vm      *VM
	locals  *resource.Table
	slots   map[*method]api.Function
	pending *Exception
	allocs  []*allocator
	closed  bool
}

func newEnv(vm *VM) *Env {
	e := &Env{
		vm:     vm,
		locals: resource.NewTable(resource.Local),
		slots:  make(map[*method]api.Function),
	}
	for _, inst := range vm.instances {
		e.allocs = append(e.allocs, newAllocator(inst))
	}
	return e
}

// VM returns the runtime the Env is attached to.
func (e *Env) VM() *VM {
	return e.vm
}

// Closed reports whether the Env was detached.
func (e *Env) Closed() bool {
	return e.closed
}

func (e *Env) usable() error {
	if e.closed {
		return errors.New(errors.PhaseCall, errors.KindInvalidContext).Detail("env is detached").Build()
	}
	if err := e.vm.exitErr(); err != nil {
		return errors.Wrap(errors.PhaseCall, errors.KindRuntimeUnavailable, err, "adapter module exited")
	}
	return nil
}

// FindClass returns a local reference to the named class.
func (e *Env) FindClass(name string) (*ClassRef, error) {
	if err := e.usable(); err != nil {
		return nil, err
	}
	c, ok := e.vm.classes[name]
	if !ok {
		return nil, errors.SymbolMissing(name, "", "")
	}
	ref, err := e.locals.Acquire(c)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseReference, errors.KindInvalidContext, err, "new local reference")
	}
	return &ClassRef{ref: ref, class: c}, nil
}

// GetMethodID resolves an instance method. The receiver is passed as a
// leading i32 and is not part of sig.
func (e *Env) GetMethodID(c *ClassRef, name, sig string) (*MethodID, error) {
	m, err := e.resolveMethod(c, name, sig, true)
	if err != nil {
		return nil, err
	}
	return &MethodID{*m}, nil
}

// GetStaticMethodID resolves a static method.
func (e *Env) GetStaticMethodID(c *ClassRef, name, sig string) (*StaticMethodID, error) {
	m, err := e.resolveMethod(c, name, sig, false)
	if err != nil {
		return nil, err
	}
	return &StaticMethodID{*m}, nil
}

func (e *Env) resolveMethod(c *ClassRef, name, sigText string, instance bool) (*method, error) {
	if err := e.usable(); err != nil {
		return nil, err
	}
	if !c.Valid() {
		return nil, errors.New(errors.PhaseResolve, errors.KindReleased).Symbol(c.class.name, name).Detail("class reference released").Build()
	}
	def, ok := c.class.funcs[name]
	if !ok {
		return nil, errors.SymbolMissing(c.class.name, name, sigText)
	}
	sig, err := ParseSignature(sigText)
	if err != nil {
		return nil, err
	}
	params, results := sig.CoreParams(instance), sig.CoreResults()
	if !sameTypes(params, def.ParamTypes()) || !sameTypes(results, def.ResultTypes()) {
		return nil, errors.SignatureMismatch(c.class.name, name, sigText, coreTypesString(def.ParamTypes(), def.ResultTypes()))
	}
	return &method{
		def:    def,
		sig:    sig,
		class:  c.class,
		name:   name,
		export: errors.SymbolName(c.class.name, name),
	}, nil
}

// GetStaticFieldID resolves a static field of a scalar WIT type.
func (e *Env) GetStaticFieldID(c *ClassRef, name, typ string) (*StaticFieldID, error) {
	if err := e.usable(); err != nil {
		return nil, err
	}
	if !c.Valid() {
		return nil, errors.New(errors.PhaseResolve, errors.KindReleased).Symbol(c.class.name, name).Detail("class reference released").Build()
	}
	if _, ok := c.class.fields[name]; !ok {
		return nil, errors.SymbolMissing(c.class.name, name, typ)
	}
	t, err := parseScalar(typ)
	if err != nil {
		return nil, invalidSignature(typ, "field "+name, err)
	}
	want, _ := coreTypes(t, false)
	export := errors.SymbolName(c.class.name, name)
	g := e.vm.instances[c.class.module].ExportedGlobal(export)
	if g == nil || len(want) != 1 || g.Type() != want[0] {
		actual := "none"
		if g != nil {
			actual = api.ValueTypeName(g.Type())
		}
		return nil, errors.SignatureMismatch(c.class.name, name, typ, actual)
	}
	return &StaticFieldID{typ: t, class: c.class, name: name, export: export}, nil
}

// GetStaticField reads a static field.
func (e *Env) GetStaticField(f *StaticFieldID) (any, error) {
	if err := e.usable(); err != nil {
		return nil, err
	}
	g := e.vm.instances[f.class.module].ExportedGlobal(f.export)
	if g == nil {
		return nil, errors.SymbolMissing(f.class.name, f.name, TypeName(f.typ))
	}
	return liftScalar(f.typ, g.Get()), nil
}

// CallStatic invokes a static method. If the adapter raises, the exception
// becomes pending and CallStatic returns a nil value and a nil error; use
// ExceptionCheck after every call. Errors report misuse of the bridge.
func (e *Env) CallStatic(ctx context.Context, m *StaticMethodID, args ...any) (any, error) {
	return e.call(ctx, &m.method, 0, false, args)
}

// CallMethod invokes an instance method on obj. Exceptions behave as in
// CallStatic.
func (e *Env) CallMethod(ctx context.Context, obj Object, m *MethodID, args ...any) (any, error) {
	return e.call(ctx, &m.method, obj, true, args)
}

func (e *Env) call(ctx context.Context, m *method, obj Object, instance bool, args []any) (any, error) {
	if err := e.usable(); err != nil {
		return nil, err
	}
	if e.pending != nil {
		return nil, errors.New(errors.PhaseCall, errors.KindPendingException).
			Symbol(m.class.name, m.name).
			Detail("exception pending: %s", e.pending).
			Build()
	}
	if len(args) != len(m.sig.Params) {
		return nil, errors.New(errors.PhaseCall, errors.KindInvalidInput).
			Symbol(m.class.name, m.name).
			Signature(m.sig.Text).
			Detail("got %d arguments", len(args)).
			Build()
	}

	mod := m.class.module
	callCtx := withEnv(ctx, e)

	e.vm.exec.Lock()
	defer e.vm.exec.Unlock()

	// string arguments are local references released when the call returns
	var refs []*resource.Ref
	defer func() {
		for _, r := range refs {
			r.Release()
		}
	}()

	params := m.def.ParamTypes()
	results := m.def.ResultTypes()
	stack := make([]uint64, 0, max(len(params), len(results), 1))
	if instance {
		stack = append(stack, api.EncodeU32(uint32(obj)))
	}
	for i, p := range m.sig.Params {
		var err error
		stack, err = e.lower(callCtx, mod, p, args[i], stack, &refs)
		if err != nil {
			return nil, errors.New(errors.PhaseCall, errors.KindInvalidInput).
				Symbol(m.class.name, m.name).
				Signature(m.sig.Text).
				Cause(err).
				Detail("argument %s", m.sig.ParamNames[i]).
				Build()
		}
	}
	if len(stack) < len(results) {
		stack = stack[:len(results)]
	}

	if err := e.function(m).CallWithStack(callCtx, stack); err != nil {
		e.fail(mod, err)
		return nil, nil
	}
	if e.pending != nil || m.sig.Result == nil {
		return nil, nil
	}
	return e.lift(callCtx, mod, m.sig.Result, stack[0])
}

func (e *Env) function(m *method) api.Function {
	if fn, ok := e.slots[m]; ok {
		return fn
	}
	fn := e.vm.instances[m.class.module].ExportedFunction(m.export)
	e.slots[m] = fn
	return fn
}

func (e *Env) lower(ctx context.Context, mod int, t wit.Type, v any, stack []uint64, refs *[]*resource.Ref) ([]uint64, error) {
	switch t.(type) {
	case wit.Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
		if b {
			return append(stack, 1), nil
		}
		return append(stack, 0), nil
	case wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		n, ok := asUint64(v)
		if !ok {
			return nil, fmt.Errorf("expected %s, got %T", TypeName(t), v)
		}
		return append(stack, api.EncodeU32(uint32(n))), nil
	case wit.U64, wit.S64:
		n, ok := asUint64(v)
		if !ok {
			return nil, fmt.Errorf("expected %s, got %T", TypeName(t), v)
		}
		return append(stack, n), nil
	case wit.F32:
		f, ok := asFloat64(v)
		if !ok {
			return nil, fmt.Errorf("expected f32, got %T", v)
		}
		return append(stack, api.EncodeF32(float32(f))), nil
	case wit.F64:
		f, ok := asFloat64(v)
		if !ok {
			return nil, fmt.Errorf("expected f64, got %T", v)
		}
		return append(stack, api.EncodeF64(f)), nil
	case wit.String:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		if s == "" {
			return append(stack, 0, 0), nil
		}
		mem := e.memory(mod)
		if mem == nil {
			return nil, fmt.Errorf("module exports no memory for string arguments")
		}
		alloc := e.allocs[mod]
		ptr, err := alloc.Alloc(ctx, uint32(len(s)), 1)
		if err != nil {
			return nil, err
		}
		gs := &guestString{ctx: ctx, alloc: alloc, log: e.vm.logger, ptr: ptr, size: uint32(len(s))}
		ref, err := e.locals.Acquire(gs)
		if err != nil {
			gs.Drop()
			return nil, err
		}
		*refs = append(*refs, ref)
		if err := mem.Write(ptr, []byte(s)); err != nil {
			return nil, err
		}
		return append(stack, api.EncodeU32(ptr), api.EncodeU32(uint32(len(s)))), nil
	default:
		return nil, fmt.Errorf("unsupported type %s", TypeName(t))
	}
}

func (e *Env) lift(ctx context.Context, mod int, t wit.Type, v uint64) (any, error) {
	if _, ok := t.(wit.String); !ok {
		return liftScalar(t, v), nil
	}
	ptr, size := uint32(v), uint32(v>>32)
	if size == 0 {
		return "", nil
	}
	mem := e.memory(mod)
	if mem == nil {
		return nil, errors.New(errors.PhaseCall, errors.KindInvalidData).Detail("string result from a module without memory").Build()
	}
	data, err := mem.Read(ptr, size)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCall, errors.KindInvalidData, err, "read string result")
	}
	s := string(data)
	if err := e.allocs[mod].Free(ctx, ptr, size, 1); err != nil {
		e.vm.logger.Warn("failed to free string result", zap.Uint32("ptr", ptr), zap.Error(err))
	}
	return s, nil
}

func (e *Env) memory(mod int) honeycomb.Memory {
	mem := e.vm.instances[mod].Memory()
	if mem == nil {
		return nil
	}
	return &guestMemory{mem: mem}
}

// Memory returns the linear memory of the module defining c, or nil when
// that module exports none.
func (e *Env) Memory(c *ClassRef) honeycomb.Memory {
	return e.memory(c.class.module)
}

// ReadString reads length bytes at ptr from the module defining c.
func (e *Env) ReadString(c *ClassRef, ptr, length uint32) (string, error) {
	mem := e.Memory(c)
	if mem == nil {
		return "", errors.New(errors.PhaseCall, errors.KindNotFound).Symbol(c.Name(), "").Detail("module exports no memory").Build()
	}
	data, err := mem.Read(ptr, length)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (e *Env) raise(ex *Exception) {
	if e.pending == nil {
		e.pending = ex
	}
}

func (e *Env) fail(mod int, err error) {
	var exit *sys.ExitError
	if stderrors.As(err, &exit) {
		e.vm.exited(err)
	}
	if e.pending != nil {
		if e.pending.Cause == nil {
			e.pending.Cause = err
			e.pending.Frames = exceptionFromError(err).Frames
		}
		return
	}
	ex := exceptionFromError(err)
	ex.module = mod
	e.pending = ex
}

// ExceptionCheck reports whether an exception is pending.
func (e *Env) ExceptionCheck() bool {
	return e.pending != nil
}

// ExceptionOccurred returns the pending exception without clearing it.
func (e *Env) ExceptionOccurred() *Exception {
	return e.pending
}

// ExceptionClear discards the pending exception.
func (e *Env) ExceptionClear() {
	e.pending = nil
}

// LocalRefCount returns the number of live local references.
func (e *Env) LocalRefCount() int {
	return e.locals.Len()
}

func (e *Env) close(context.Context) error {
	if e.closed {
		return nil
	}
	e.closed = true

	if n := e.locals.Len(); n > 0 {
		e.vm.logger.Warn("releasing leaked local references on detach", zap.Int("count", n))
	}
	// leaked string arguments are freed in adapter memory
	e.vm.exec.Lock()
	err := e.locals.Close()
	e.vm.exec.Unlock()

	e.allocs = nil
	e.slots = nil
	e.pending = nil
	return err
}
