package bridge

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/honeycomb/config"
	"github.com/wippyai/honeycomb/errors"
)

// ExitCode is the process exit status used for fatal bridge errors.
const ExitCode = 1

// Policy terminates the process on fatal errors. It is the only place the
// bridge exits.
type Policy struct {
	Logger  *zap.Logger
	Message string    // operator-facing message printed on Stderr
	Stderr  io.Writer // defaults to os.Stderr
	Exit    func(code int)
}

// NewPolicy returns the default policy: log, print msg on stderr, exit.
func NewPolicy(logger *zap.Logger, msg string) *Policy {
	if logger == nil {
		logger = zap.NewNop()
	}
	if msg == "" {
		msg = config.DefaultFatalMessage
	}
	return &Policy{Logger: logger, Message: msg, Stderr: os.Stderr, Exit: os.Exit}
}

// Escalate terminates the process when err is fatal. It returns false for
// nil and recoverable errors. It only returns true when Exit returns,
// which happens with a replaced Exit func.
func (p *Policy) Escalate(err error) bool {
	if err == nil || !errors.IsFatal(err) {
		return false
	}

	if p.Logger != nil {
		p.Logger.Error("fatal bridge error", zap.Error(err))
		_ = p.Logger.Sync()
	}
	if w := p.stderr(); w != nil && p.Message != "" {
		fmt.Fprintln(w, p.Message)
	}
	if p.Exit != nil {
		p.Exit(ExitCode)
	} else {
		os.Exit(ExitCode)
	}
	return true
}

func (p *Policy) stderr() io.Writer {
	if p.Stderr != nil {
		return p.Stderr
	}
	return os.Stderr
}
