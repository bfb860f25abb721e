package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// BootstrapOptions is the ordered runtime option list. The classpath option
// is always first.
type BootstrapOptions []string

// Classpath returns the classpath option.
func (o BootstrapOptions) Classpath() string {
	if len(o) == 0 {
		return ""
	}
	return o[0]
}

// Extra returns the options read from the options file.
func (o BootstrapOptions) Extra() []string {
	if len(o) < 2 {
		return nil
	}
	return o[1:]
}

// LoadOptions builds the bootstrap options from the classpath option and the
// options file at path. It never fails: a missing file yields the classpath
// alone and a read error truncates the list to what was read. An empty line
// ends the options.
func LoadOptions(path, classpath string, logger *zap.Logger) BootstrapOptions {
	if logger == nil {
		logger = zap.NewNop()
	}

	if _, err := os.Stat(path); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			logger.Info("no runtime options file found, using classpath as the only runtime option",
				zap.String("path", path))
		} else {
			logger.Warn("could not stat runtime options file", zap.String("path", path), zap.Error(err))
		}
		return BootstrapOptions{classpath}
	}

	fsys, name := os.DirFS(filepath.Dir(path)), filepath.Base(path)

	count := 0
	for _, err := range Lines(fsys, name) {
		if err != nil {
			logger.Warn("could not count the options in runtime options file",
				zap.String("path", path), zap.Error(err))
			return BootstrapOptions{classpath}
		}
		count++
	}

	opts := make(BootstrapOptions, 1, count+1)
	opts[0] = classpath
	for line, err := range Lines(fsys, name) {
		if err != nil {
			logger.Warn("not reading the rest of the runtime options file",
				zap.String("path", path),
				zap.Int("read", len(opts)-1),
				zap.Int("expected", count),
				zap.Error(err))
			break
		}
		if line == "" {
			break
		}
		opts = append(opts, line)
	}
	return opts
}
