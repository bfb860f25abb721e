package engine

import (
	"errors"
	"testing"

	herrors "github.com/wippyai/honeycomb/errors"
)

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions([]string{
		classpath("/opt/a.wasm", "/opt/b.wasm"),
		"-Xmx64m",
		"-Xms16m",
		"-Xint",
		"-Xcache:/var/cache/honeycomb",
		"-verbose",
		"-Dhbase.zookeeper.quorum=zk1,zk2",
		"-Dempty=",
		"-XX:+UseG1GC",
	})
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}

	if len(opts.Classpath) != 2 || opts.Classpath[0] != "/opt/a.wasm" || opts.Classpath[1] != "/opt/b.wasm" {
		t.Errorf("Classpath = %q", opts.Classpath)
	}
	if opts.MemoryLimitPages != 1024 {
		t.Errorf("MemoryLimitPages = %d, want 1024", opts.MemoryLimitPages)
	}
	if !opts.Interpreter || !opts.Verbose {
		t.Errorf("Interpreter = %v, Verbose = %v", opts.Interpreter, opts.Verbose)
	}
	if opts.CacheDir != "/var/cache/honeycomb" {
		t.Errorf("CacheDir = %q", opts.CacheDir)
	}
	if opts.Env["hbase.zookeeper.quorum"] != "zk1,zk2" {
		t.Errorf("Env = %v", opts.Env)
	}
	if v, ok := opts.Env["empty"]; !ok || v != "" {
		t.Errorf("empty property = %q, %v", v, ok)
	}
	if len(opts.Ignored) != 1 || opts.Ignored[0] != "-XX:+UseG1GC" {
		t.Errorf("Ignored = %q", opts.Ignored)
	}
}

func TestParseOptions_MemoryLimit(t *testing.T) {
	tests := []struct {
		arg  string
		want uint32
	}{
		{"-Xmx1", 1},
		{"-Xmx65536", 1},
		{"-Xmx65537", 2},
		{"-Xmx64k", 1},
		{"-Xmx1M", 16},
		{"-Xmx1g", 16384},
		{"-Xmx100g", maxPages},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			opts, err := ParseOptions([]string{classpath("/a.wasm"), tt.arg})
			if err != nil {
				t.Fatalf("ParseOptions: %v", err)
			}
			if opts.MemoryLimitPages != tt.want {
				t.Errorf("MemoryLimitPages = %d, want %d", opts.MemoryLimitPages, tt.want)
			}
		})
	}
}

func TestParseOptions_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		kind herrors.Kind
	}{
		{"no options", nil, herrors.KindUnrecognizedOption},
		{"classpath not first", []string{"-Xint", classpath("/a.wasm")}, herrors.KindUnrecognizedOption},
		{"empty classpath", []string{classpath()}, herrors.KindInvalidInput},
		{"classpath twice", []string{classpath("/a.wasm"), classpath("/b.wasm")}, herrors.KindUnrecognizedOption},
		{"unknown option", []string{classpath("/a.wasm"), "--bogus"}, herrors.KindUnrecognizedOption},
		{"bad size", []string{classpath("/a.wasm"), "-Xmx12q"}, herrors.KindUnrecognizedOption},
		{"zero size", []string{classpath("/a.wasm"), "-Xmx0"}, herrors.KindUnrecognizedOption},
		{"bad initial size", []string{classpath("/a.wasm"), "-Xms"}, herrors.KindUnrecognizedOption},
		{"empty cache dir", []string{classpath("/a.wasm"), "-Xcache:"}, herrors.KindUnrecognizedOption},
		{"empty property", []string{classpath("/a.wasm"), "-D=v"}, herrors.KindUnrecognizedOption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOptions(tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, &herrors.Error{Phase: herrors.PhaseBootstrap, Kind: tt.kind}) {
				t.Errorf("error = %v, want kind %s", err, tt.kind)
			}
			if !herrors.IsFatal(err) {
				t.Errorf("option errors must be fatal: %v", err)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"512", 512},
		{"2k", 2 << 10},
		{"512m", 512 << 20},
		{"2G", 2 << 30},
	}
	for _, tt := range tests {
		got, err := parseSize(tt.in)
		if err != nil {
			t.Errorf("parseSize(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
