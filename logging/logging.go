// Package logging builds the process logger: a human-readable console core on
// stderr and an optional JSON file core.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/honeycomb/config"
)

const (
	verbosityFlagName      = "verbosity"
	verbosityFlagShortName = "v"
)

var levelStrings = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// Logger couples a zap logger with its adjustable console level and the
// files it owns.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
	file  *os.File
}

// New creates the process logger from the log settings.
func New(cfg config.Log) (*Logger, error) {
	color := term.IsTerminal(int(os.Stderr.Fd()))
	return newLogger(cfg, zapcore.Lock(os.Stderr), color)
}

func newLogger(cfg config.Log, console zapcore.WriteSyncer, color bool) (*Logger, error) {
	level, err := ParseLevel(cfg.Level, zapcore.InfoLevel)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleConfig := encoderConfig
	if color {
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		consoleConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	l := &Logger{level: zap.NewAtomicLevelAt(level)}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), console, l.level),
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log folder: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = f
		// the file keeps everything down to debug so operators can dig after a fatal
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(f), zapcore.DebugLevel))
	}

	l.Logger = zap.New(zapcore.NewTee(cores...))
	return l, nil
}

// SetLevel changes the console level.
func (l *Logger) SetLevel(level zapcore.Level) {
	l.level.SetLevel(level)
}

// Level returns the console level.
func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}

// AddLevelFlag registers -v/--verbosity on fs.
func (l *Logger) AddLevelFlag(fs *pflag.FlagSet) {
	fs.VarP(&levelFlag{set: l.SetLevel}, verbosityFlagName, verbosityFlagShortName,
		"Logging verbosity level (e.g. -v=debug). One of 'debug', 'info', 'warn', 'error', or a positive integer for increasing debug verbosity.")
}

// Close flushes buffered entries and closes the log file.
func (l *Logger) Close() error {
	err := l.Sync()
	// syncing stderr fails on some platforms; only file errors matter
	if l.file == nil {
		return nil
	}
	return multierr.Append(err, l.file.Close())
}

// ParseLevel accepts a level name or a positive debug verbosity.
func ParseLevel(value string, defaultLevel zapcore.Level) (zapcore.Level, error) {
	if value == "" {
		return defaultLevel, nil
	}
	if level, ok := levelStrings[strings.ToLower(value)]; ok {
		return level, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultLevel, fmt.Errorf("invalid log level %q", value)
	}
	// zap levels grow more verbose as they go negative
	return zapcore.Level(int8(-n)), nil
}

type levelFlag struct {
	set   func(zapcore.Level)
	value string
}

func (f *levelFlag) Set(value string) error {
	level, err := ParseLevel(value, zapcore.InfoLevel)
	if err != nil {
		return err
	}
	f.set(level)
	f.value = value
	return nil
}

func (f *levelFlag) String() string {
	return f.value
}

func (f *levelFlag) Type() string {
	return "level"
}
