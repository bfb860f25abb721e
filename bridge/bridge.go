package bridge

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/honeycomb/attach"
	"github.com/wippyai/honeycomb/config"
	"github.com/wippyai/honeycomb/engine"
	"github.com/wippyai/honeycomb/errors"
	"github.com/wippyai/honeycomb/exception"
	"github.com/wippyai/honeycomb/symbols"
)

// Bridge owns the process runtime and everything resolved against it.
type Bridge struct {
	vm         *engine.VM
	cache      *symbols.Cache
	threads    *attach.Manager
	exceptions *exception.Bridge
	policy     *Policy
	logger     *zap.Logger

	shutdown    func()
	stopSignals func()
	done        chan struct{}
	doneOnce    sync.Once
	closeOnce   sync.Once
	closeErr    error
}

type options struct {
	logger   *zap.Logger
	shutdown func()
	policy   *Policy
	signals  bool
}

// Option configures Create.
type Option func(*options)

// WithLogger sets the logger shared by every component of the bridge.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithShutdown registers fn to run once when host shutdown is requested.
func WithShutdown(fn func()) Option {
	return func(o *options) {
		o.shutdown = fn
	}
}

// WithPolicy replaces the fatal error policy.
func WithPolicy(p *Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithoutSignalHandler skips installing the termination signal handler.
func WithoutSignalHandler() Option {
	return func(o *options) {
		o.signals = false
	}
}

// Create bootstraps the process runtime: it reads the classpath and the
// runtime options named by settings, creates the runtime, resolves the
// symbol cache and runs the adapter's initialization entry point, all on
// the calling goroutine, which is detached again before returning.
//
// Create must run once, before any other goroutine calls into the adapter.
// Every error it returns is fatal.
func Create(ctx context.Context, settings *config.Settings, opts ...Option) (*Bridge, error) {
	o := options{signals: true}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings == nil {
		settings = config.DefaultSettings()
	}

	if len(engine.CreatedVMs()) > 0 {
		return nil, errors.AlreadyExists("runtime")
	}

	classpath, err := config.ResolveClasspath(settings.Bootstrap.ClasspathFile)
	if err != nil {
		return nil, err
	}
	args := config.LoadOptions(settings.Bootstrap.OptionsFile, classpath, logger)

	vm, err := engine.CreateVM(ctx, args, engine.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	env, err := vm.Attach(ctx)
	if err != nil {
		return nil, multierr.Append(asFatal(err, errors.KindAttachFailed, "attach bootstrapping goroutine"), vm.Close(ctx))
	}
	if env == nil || env.Closed() {
		err := errors.New(errors.PhaseBootstrap, errors.KindInvalidContext).
			Detail("runtime returned an unusable execution context").Fatal().Build()
		return nil, multierr.Append(err, vm.Close(ctx))
	}

	cache, err := symbols.New(vm, env)
	if err != nil {
		return nil, multierr.Combine(err, vm.Detach(ctx, env), vm.Close(ctx))
	}

	policy := o.policy
	if policy == nil {
		policy = NewPolicy(logger, settings.Bridge.FatalMessage)
	}

	b := &Bridge{
		vm:    vm,
		cache: cache,
		exceptions: exception.New(cache, logger,
			exception.WithFatalMessage(settings.Bridge.FatalMessage)),
		policy:   policy,
		logger:   logger,
		shutdown: o.shutdown,
		done:     make(chan struct{}),
	}
	b.threads = attach.NewManager(vm, logger)

	if err := b.initialize(ctx, env); err != nil {
		return nil, multierr.Combine(err, vm.Detach(ctx, env), b.Close(ctx))
	}

	logger.Info("runtime classpath", zap.String("classpath", strings.TrimPrefix(classpath, config.ClasspathOption)))
	for i, entry := range vm.Classpath() {
		logger.Debug("classpath entry", zap.Int("index", i), zap.String("path", entry))
	}

	if err := vm.Detach(ctx, env); err != nil {
		return nil, multierr.Append(asFatal(err, errors.KindAttachFailed, "detach bootstrapping goroutine"), b.Close(ctx))
	}

	if o.signals {
		b.stopSignals = installSignalHandler(b)
	}
	return b, nil
}

// InitializeAdapter runs the adapter's initialization entry point again on
// the calling goroutine. The entry point is resolved by name on every
// call. An exception raised by the adapter is fatal.
func (b *Bridge) InitializeAdapter(ctx context.Context) error {
	return b.threads.Do(ctx, func(env *engine.Env) error {
		return b.initialize(ctx, env)
	})
}

func (b *Bridge) initialize(ctx context.Context, env *engine.Env) error {
	b.logger.Info("initializing adapter", zap.String("class", symbols.AdapterClass))

	class, err := env.FindClass(symbols.AdapterClass)
	if err != nil {
		return asFatal(err, errors.KindInitializationError, "initialize adapter")
	}
	defer class.Release()

	entry, err := env.GetStaticMethodID(class, symbols.InitializeMethod, symbols.InitializeSignature)
	if err != nil {
		return asFatal(err, errors.KindInitializationError, "initialize adapter")
	}
	if _, err := env.CallStatic(ctx, entry); err != nil {
		return asFatal(err, errors.KindInitializationError, "initialize adapter")
	}
	return b.exceptions.CheckAndHandle(ctx, env, errors.SeverityFatal)
}

// asFatal escalates err to fatal severity, wrapping errors that do not
// come from the bridge.
func asFatal(err error, kind errors.Kind, detail string) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Fatal()
	}
	return errors.Wrap(errors.PhaseBootstrap, kind, err, detail).Fatal()
}

// Invoke runs fn on the calling goroutine's Env with the symbol cache,
// then checks for an uncaught adapter exception. The exception, cleared
// and rendered, takes precedence over fn's error and is recoverable.
func (b *Bridge) Invoke(ctx context.Context, fn func(env *engine.Env, cache *symbols.Cache) error) error {
	return b.threads.Do(ctx, func(env *engine.Env) error {
		err := fn(env, b.cache)
		if xerr := b.exceptions.CheckAndHandle(ctx, env, errors.SeverityRecoverable); xerr != nil {
			return xerr
		}
		return err
	})
}

// Escalate applies the fatal error policy to err. It returns false when
// err is not fatal and the caller keeps handling it.
func (b *Bridge) Escalate(err error) bool {
	return b.policy.Escalate(err)
}

// Done is closed once host shutdown has been requested.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// RequestShutdown asks the host to shut down. Only the first request runs
// the shutdown callback.
func (b *Bridge) RequestShutdown() {
	b.doneOnce.Do(func() {
		b.logger.Info("host shutdown requested")
		close(b.done)
		if b.shutdown != nil {
			b.shutdown()
		}
	})
}

// VM returns the process runtime.
func (b *Bridge) VM() *engine.VM {
	return b.vm
}

// Cache returns the resolved symbol cache.
func (b *Bridge) Cache() *symbols.Cache {
	return b.cache
}

// Threads returns the attachment manager.
func (b *Bridge) Threads() *attach.Manager {
	return b.threads
}

// Exceptions returns the exception bridge.
func (b *Bridge) Exceptions() *exception.Bridge {
	return b.exceptions
}

// Logger returns the bridge logger.
func (b *Bridge) Logger() *zap.Logger {
	return b.logger
}

// Close stops the signal handler, releases the symbol cache and closes the
// runtime. It is safe to call more than once.
func (b *Bridge) Close(ctx context.Context) error {
	b.closeOnce.Do(func() {
		if b.stopSignals != nil {
			b.stopSignals()
		}
		b.cache.Close()
		b.closeErr = b.vm.Close(ctx)
	})
	return b.closeErr
}
