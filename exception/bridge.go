package exception

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/honeycomb/engine"
	"github.com/wippyai/honeycomb/errors"
	"github.com/wippyai/honeycomb/symbols"
)

// Report is the rendered form of an adapter exception.
type Report struct {
	Class   string
	Message string
	Frames  []string
}

// String renders the report as a stack trace.
func (r Report) String() string {
	var b strings.Builder
	b.WriteString(r.Class)
	if r.Message != "" {
		b.WriteString(": ")
		b.WriteString(r.Message)
	}
	for _, f := range r.Frames {
		b.WriteString("\n\tat ")
		b.WriteString(f)
	}
	return b.String()
}

// Bridge turns pending adapter exceptions into log entries and errors.
type Bridge struct {
	throwable    *symbols.Throwable
	logger       *zap.Logger
	fatalMessage string
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithFatalMessage sets the operator-facing message logged for fatal
// exceptions.
func WithFatalMessage(msg string) Option {
	return func(b *Bridge) {
		b.fatalMessage = msg
	}
}

// New creates a bridge. Adapter Throwables are rendered through the
// cache's Throwable group; with a nil cache they are reported by handle.
func New(cache *symbols.Cache, logger *zap.Logger, opts ...Option) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{logger: logger}
	if cache != nil {
		t := cache.Throwable()
		b.throwable = &t
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CheckAndHandle clears and reports the exception pending on env, if any.
// It returns nil when nothing is pending. Otherwise the trace is logged and
// an *errors.Error of kind uncaught_exception is returned with the given
// severity, carrying the Report as its value. Deciding to terminate on a
// fatal error is left to the caller.
func (b *Bridge) CheckAndHandle(ctx context.Context, env *engine.Env, severity errors.Severity) error {
	ex := env.ExceptionOccurred()
	if ex == nil {
		return nil
	}
	env.ExceptionClear()

	report := b.render(ctx, env, ex)
	b.logger.Error("uncaught adapter exception",
		zap.String("class", report.Class),
		zap.String("message", report.Message),
		zap.Strings("frames", report.Frames),
		zap.Stringer("severity", severity))

	err := errors.Uncaught(severity, report, report.String())
	err.Cause = ex
	if severity == errors.SeverityFatal && b.fatalMessage != "" {
		b.logger.Error(b.fatalMessage)
	}
	return err
}

func (b *Bridge) render(ctx context.Context, env *engine.Env, ex *engine.Exception) Report {
	if !ex.Thrown() {
		return Report{Class: ex.Class, Message: ex.Message, Frames: ex.Frames}
	}

	report := Report{Class: fmt.Sprintf("object@%d", ex.Object), Frames: ex.Frames}
	if b.throwable == nil {
		return report
	}
	if s, ok := b.describe(ctx, env, ex.Object, b.throwable.GetClassName); ok && s != "" {
		report.Class = s
	}
	if s, ok := b.describe(ctx, env, ex.Object, b.throwable.GetMessage); ok {
		report.Message = s
	}
	if s, ok := b.describe(ctx, env, ex.Object, b.throwable.GetStackTrace); ok && s != "" {
		report.Frames = frames(s)
	}
	return report
}

// describe calls a Throwable accessor. An exception raised while
// describing is logged and dropped so the original one is still reported.
func (b *Bridge) describe(ctx context.Context, env *engine.Env, obj engine.Object, m *engine.MethodID) (string, bool) {
	v, err := env.CallMethod(ctx, obj, m)
	if err != nil {
		b.logger.Warn("cannot describe adapter exception", zap.String("method", m.Name()), zap.Error(err))
		return "", false
	}
	if nested := env.ExceptionOccurred(); nested != nil {
		env.ExceptionClear()
		b.logger.Warn("exception while describing adapter exception",
			zap.String("method", m.Name()), zap.Error(nested))
		return "", false
	}
	return engine.AsString(v), true
}

func frames(trace string) []string {
	var out []string
	for _, line := range strings.Split(trace, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "at ")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// ReportOf extracts the Report from an error returned by CheckAndHandle.
func ReportOf(err error) (Report, bool) {
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindUncaughtException {
		return Report{}, false
	}
	r, ok := e.Value.(Report)
	return r, ok
}
