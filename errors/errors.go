package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Phase indicates where in the bridge lifecycle the error occurred
type Phase string

const (
	PhaseConfig    Phase = "config"    // bootstrap input files
	PhaseBootstrap Phase = "bootstrap" // runtime creation and adapter initialization
	PhaseResolve   Phase = "resolve"   // class/method/field lookup
	PhaseAttach    Phase = "attach"    // thread attachment
	PhaseCall      Phase = "call"      // calls into the adapter
	PhaseReference Phase = "reference" // global/local reference handling
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindInvalidData         Kind = "invalid_data"
	KindInvalidInput        Kind = "invalid_input"
	KindIO                  Kind = "io"
	KindAlreadyExists       Kind = "already_exists"
	KindCreateFailed        Kind = "create_failed"
	KindInvalidContext      Kind = "invalid_context"
	KindSymbolMissing       Kind = "symbol_missing"
	KindSignatureMismatch   Kind = "signature_mismatch"
	KindAttachFailed        Kind = "attach_failed"
	KindUncaughtException   Kind = "uncaught_exception"
	KindNotInitialized      Kind = "not_initialized"
	KindReleased            Kind = "released"
	KindUnsupported         Kind = "unsupported"
	KindInstantiation       Kind = "instantiation"
	KindMissingAllocator    Kind = "missing_allocator"
	KindPendingException    Kind = "pending_exception"
	KindInvalidSignature    Kind = "invalid_signature"
	KindUnrecognizedOption  Kind = "unrecognized_option"
	KindRuntimeUnavailable  Kind = "runtime_unavailable"
	KindInitializationError Kind = "initialization_error"
)

// Severity tells the top-level policy whether an error may be survived.
type Severity uint8

const (
	SeverityRecoverable Severity = iota
	SeverityFatal
)

func (s Severity) String() string {
	if s == SeverityFatal {
		return "fatal"
	}
	return "recoverable"
}

// Error is the structured error type used throughout the bridge
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	Symbol    string
	Signature string
	Detail    string
	Severity  Severity
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Symbol != "" {
		b.WriteString(" at ")
		b.WriteString(e.Symbol)
	}

	if e.Signature != "" {
		b.WriteString(": signature ")
		b.WriteString(e.Signature)
	}

	if e.Detail != "" {
		if e.Signature != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Fatal returns a copy of e escalated to fatal severity.
func (e *Error) Fatal() *Error {
	c := *e
	c.Severity = SeverityFatal
	return &c
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Symbol sets the managed-side symbol the error refers to
func (b *Builder) Symbol(class, member string) *Builder {
	b.err.Symbol = SymbolName(class, member)
	return b
}

// Signature sets the expected call signature
func (b *Builder) Signature(sig string) *Builder {
	b.err.Signature = sig
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Fatal marks the error as unrecoverable
func (b *Builder) Fatal() *Builder {
	b.err.Severity = SeverityFatal
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// SymbolName joins a class and member into the export naming form Class#member.
func SymbolName(class, member string) string {
	if member == "" {
		return class
	}
	return class + "#" + member
}

// IsFatal reports whether err, or any error it wraps, carries fatal severity.
func IsFatal(err error) bool {
	var e *Error
	if stderrors.As(err, &e) && e.Severity == SeverityFatal {
		return true
	}
	var m *MissingSymbolsError
	return stderrors.As(err, &m)
}

// Convenience constructors for common error patterns

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotInitialized creates a not-initialized error for a missing component
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Config creates a fatal bootstrap-input error
func Config(detail string, cause error) *Error {
	return &Error{
		Phase:    PhaseConfig,
		Kind:     KindIO,
		Detail:   detail,
		Cause:    cause,
		Severity: SeverityFatal,
	}
}

// AlreadyExists creates the fatal error for a second runtime creation
func AlreadyExists(what string) *Error {
	return &Error{
		Phase:    PhaseBootstrap,
		Kind:     KindAlreadyExists,
		Detail:   fmt.Sprintf("%s already created", what),
		Severity: SeverityFatal,
	}
}

// SymbolMissing creates a missing class/method/field error
func SymbolMissing(class, member, sig string) *Error {
	return &Error{
		Phase:     PhaseResolve,
		Kind:      KindSymbolMissing,
		Symbol:    SymbolName(class, member),
		Signature: sig,
		Detail:    "symbol not exported by the adapter",
	}
}

// SignatureMismatch creates an error for a symbol whose exported type differs
func SignatureMismatch(class, member, sig, actual string) *Error {
	return &Error{
		Phase:     PhaseResolve,
		Kind:      KindSignatureMismatch,
		Symbol:    SymbolName(class, member),
		Signature: sig,
		Detail:    "adapter exports " + actual,
	}
}

// AttachFailed creates a thread attachment error
func AttachFailed(cause error) *Error {
	return &Error{
		Phase:  PhaseAttach,
		Kind:   KindAttachFailed,
		Detail: "attach thread to runtime",
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseAttach,
		Kind:   KindInstantiation,
		Detail: fmt.Sprintf("instantiate %s", path),
		Cause:  cause,
	}
}

// Uncaught creates the error surfaced for a managed-side exception
func Uncaught(severity Severity, report any, detail string) *Error {
	return &Error{
		Phase:    PhaseCall,
		Kind:     KindUncaughtException,
		Detail:   detail,
		Value:    report,
		Severity: severity,
	}
}

// MissingSymbol represents a single unresolved adapter symbol
type MissingSymbol struct {
	Class     string // e.g., "HBaseAdapter"
	Member    string // e.g., "createTable"; empty when the class itself is missing
	Signature string
	Reason    string
}

// MissingSymbolsError is returned when the symbol cache cannot resolve the full adapter contract.
// It is always fatal: the native bridge and the adapter are version-mismatched.
type MissingSymbolsError struct {
	Symbols []MissingSymbol
}

// NewMissingSymbolsError creates an error from unresolved symbols
func NewMissingSymbolsError(symbols []MissingSymbol) *MissingSymbolsError {
	return &MissingSymbolsError{Symbols: symbols}
}

func (e *MissingSymbolsError) Error() string {
	if len(e.Symbols) == 0 {
		return "[resolve] symbol_missing: no symbols specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("adapter is missing %d symbol(s):\n", len(e.Symbols)))

	// Group by class for cleaner output
	byClass := make(map[string][]MissingSymbol)
	var classOrder []string
	for _, s := range e.Symbols {
		if _, exists := byClass[s.Class]; !exists {
			classOrder = append(classOrder, s.Class)
		}
		byClass[s.Class] = append(byClass[s.Class], s)
	}
	sort.Strings(classOrder)

	for _, class := range classOrder {
		b.WriteString("\n  ")
		b.WriteString(class)
		b.WriteString(":\n")
		for _, s := range byClass[class] {
			b.WriteString("    - ")
			if s.Member == "" {
				b.WriteString("<class>")
			} else {
				b.WriteString(s.Member)
			}
			if s.Signature != "" {
				b.WriteByte(' ')
				b.WriteString(s.Signature)
			}
			if s.Reason != "" {
				b.WriteString(" (")
				b.WriteString(s.Reason)
				b.WriteByte(')')
			}
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingSymbolsError) Is(target error) bool {
	_, ok := target.(*MissingSymbolsError)
	return ok
}
