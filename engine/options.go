package engine

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wippyai/honeycomb/config"
	"github.com/wippyai/honeycomb/errors"
)

const (
	pageSize = 65536
	maxPages = 65536
)

// Options is the parsed form of the runtime option strings.
type Options struct {
	Env              map[string]string
	CacheDir         string
	Classpath        []string
	Ignored          []string
	MemoryLimitPages uint32
	Interpreter      bool
	Verbose          bool
}

// ParseOptions parses runtime option strings. The first must be the
// classpath option. Unknown -X options are collected in Ignored; any other
// unknown option is an error.
func ParseOptions(args []string) (*Options, error) {
	if len(args) == 0 || !strings.HasPrefix(args[0], config.ClasspathOption) {
		return nil, errors.New(errors.PhaseBootstrap, errors.KindUnrecognizedOption).
			Detail("first option must be %s<path>", config.ClasspathOption).
			Fatal().
			Build()
	}

	opts := &Options{Env: make(map[string]string)}
	for _, entry := range filepath.SplitList(strings.TrimPrefix(args[0], config.ClasspathOption)) {
		if entry = strings.TrimSpace(entry); entry != "" {
			opts.Classpath = append(opts.Classpath, entry)
		}
	}
	if len(opts.Classpath) == 0 {
		return nil, errors.New(errors.PhaseBootstrap, errors.KindInvalidInput).
			Detail("classpath has no entries").
			Fatal().
			Build()
	}

	for _, arg := range args[1:] {
		if err := opts.apply(arg); err != nil {
			return nil, errors.New(errors.PhaseBootstrap, errors.KindUnrecognizedOption).
				Value(arg).
				Cause(err).
				Detail("bad runtime option %q", arg).
				Fatal().
				Build()
		}
	}
	return opts, nil
}

func (o *Options) apply(arg string) error {
	switch {
	case strings.HasPrefix(arg, config.ClasspathOption):
		return fmt.Errorf("classpath given twice")
	case strings.HasPrefix(arg, "-Xmx"):
		pages, err := parsePages(arg[len("-Xmx"):])
		if err != nil {
			return err
		}
		o.MemoryLimitPages = pages
	case strings.HasPrefix(arg, "-Xms"):
		// initial size is decided by each module's own memory section
		if _, err := parseSize(arg[len("-Xms"):]); err != nil {
			return err
		}
	case arg == "-Xint":
		o.Interpreter = true
	case strings.HasPrefix(arg, "-Xcache:"):
		dir := arg[len("-Xcache:"):]
		if dir == "" {
			return fmt.Errorf("empty cache directory")
		}
		o.CacheDir = dir
	case arg == "-verbose":
		o.Verbose = true
	case strings.HasPrefix(arg, "-D"):
		key, value, _ := strings.Cut(arg[2:], "=")
		if key == "" {
			return fmt.Errorf("empty property name")
		}
		o.Env[key] = value
	case strings.HasPrefix(arg, "-X"):
		o.Ignored = append(o.Ignored, arg)
	default:
		return fmt.Errorf("unrecognized option")
	}
	return nil
}

// parseSize parses sizes like 512m, 1g, 65536 or 64k into bytes.
func parseSize(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("missing size")
	}
	mult := uint64(1)
	switch s[len(s)-1] {
	case 'k', 'K':
		mult = 1 << 10
	case 'm', 'M':
		mult = 1 << 20
	case 'g', 'G':
		mult = 1 << 30
	}
	if mult != 1 {
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * mult, nil
}

func parsePages(s string) (uint32, error) {
	size, err := parseSize(s)
	if err != nil {
		return 0, err
	}
	pages := (size + pageSize - 1) / pageSize
	if pages == 0 {
		return 0, fmt.Errorf("memory limit must be positive")
	}
	if pages > maxPages {
		pages = maxPages
	}
	return uint32(pages), nil
}
