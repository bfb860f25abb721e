package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/wippyai/honeycomb/errors"
)

// ClasspathOption is the required prefix of the first bootstrap option.
const ClasspathOption = "-Dclass.path="

// ResolveClasspath reads the locator file at path and returns the classpath
// option. The value ends at the first line terminator.
func ResolveClasspath(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Config(fmt.Sprintf("could not open %q, it must be readable", path), err)
	}

	value := string(data)
	if i := strings.IndexAny(value, "\r\n"); i >= 0 {
		value = value[:i]
	}
	if value == "" {
		return "", errors.Config(fmt.Sprintf("a class path was not found in %s", path), nil)
	}

	return ClasspathOption + value, nil
}
