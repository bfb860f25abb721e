// Package config loads the inputs that shape runtime bootstrap: the classpath
// locator file, the optional runtime options file and the TOML settings file
// that names both.
package config
