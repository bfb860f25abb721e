package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/honeycomb/config"
	"github.com/wippyai/honeycomb/engine"
	"github.com/wippyai/honeycomb/internal/adaptertest"
	"github.com/wippyai/honeycomb/symbols"
)

// writeSettings stores s as a honeycomb.toml next to its bootstrap files.
func writeSettings(t *testing.T, s *config.Settings) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "honeycomb.toml")
	content := fmt.Sprintf("[bootstrap]\nclasspath-file = %q\noptions-file = %q\n\n[log]\nlevel = \"error\"\n",
		s.Bootstrap.ClasspathFile, s.Bootstrap.OptionsFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	return path
}

func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestOptionsCommand(t *testing.T) {
	settings := adaptertest.Setup(t, adaptertest.New().Bytes(), "-Xshare:off", "-Dregion=eu")
	out, err := execute(t, context.Background(), "--config", writeSettings(t, settings), "options", "--check")
	if err != nil {
		t.Fatalf("options: %v\n%s", err, out)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	wasmPath := filepath.Join(filepath.Dir(settings.Bootstrap.ClasspathFile), "adapter.wasm")
	want := []string{config.ClasspathOption + wasmPath, "-Xint", "-Xshare:off", "-Dregion=eu", "ignored: -Xshare:off"}
	if len(lines) != len(want) {
		t.Fatalf("output = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestOptionsCommand_BadOption(t *testing.T) {
	settings := adaptertest.Setup(t, adaptertest.New().Bytes(), "--enable-preview")
	if _, err := execute(t, context.Background(), "-c", writeSettings(t, settings), "options", "--check"); err == nil {
		t.Error("options --check accepted an unknown option")
	}
}

func TestSymbolsCommand(t *testing.T) {
	settings := adaptertest.Setup(t, adaptertest.New().Bytes())
	out, err := execute(t, context.Background(), "--config", writeSettings(t, settings), "symbols")
	if err != nil {
		t.Fatalf("symbols: %v\n%s", err, out)
	}
	for _, want := range []string{"HBaseAdapter#createTable", "ColumnType#DECIMAL", "Throwable#getStackTrace", "TreeMap#putObject"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %s", want)
		}
	}
	if vms := engine.CreatedVMs(); len(vms) != 1 || !vms[0].Closed() {
		t.Error("symbols left the runtime open")
	}
}

func TestServeCommand(t *testing.T) {
	settings := adaptertest.Setup(t, adaptertest.New().Bytes())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := execute(t, ctx, "--config", writeSettings(t, settings), "serve")
		done <- err
	}()

	deadline := time.Now().Add(10 * time.Second)
	for len(engine.CreatedVMs()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("serve never created the runtime")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}
	if vms := engine.CreatedVMs(); len(vms) != 1 || !vms[0].Closed() {
		t.Error("serve left the runtime open")
	}
}

func TestConvertArg(t *testing.T) {
	tests := []struct {
		value   string
		typ     wit.Type
		want    any
		wantErr bool
	}{
		{"users", wit.String{}, "users", false},
		{"42", wit.U32{}, uint32(42), false},
		{"-7", wit.S32{}, int32(-7), false},
		{"-7", wit.U32{}, uint32(0), true},
		{"9000000000", wit.S64{}, int64(9000000000), false},
		{"true", wit.Bool{}, true, false},
		{"yes", wit.Bool{}, false, true},
		{"2.5", wit.F64{}, 2.5, false},
	}
	for _, tt := range tests {
		got, err := convertArg(tt.value, tt.typ)
		if (err != nil) != tt.wantErr {
			t.Errorf("convertArg(%q, %T) error = %v", tt.value, tt.typ, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("convertArg(%q, %T) = %#v, want %#v", tt.value, tt.typ, got, tt.want)
		}
	}
}

func TestInspector(t *testing.T) {
	var gotArgs []any
	call := func(_ context.Context, _ *engine.StaticMethodID, args []any) (any, error) {
		gotArgs = args
		return int64(1000), nil
	}
	methods := []symbols.Method{
		{Static: new(engine.StaticMethodID), Class: "HBaseAdapter", Name: "getRowCount", Signature: "func(table: string) -> s64"},
		{Instance: new(engine.MethodID), Class: "Row", Name: "getUUID", Signature: "func() -> string"},
	}
	m, err := newInspectorModel(methods, call)
	if err != nil {
		t.Fatalf("newInspectorModel: %v", err)
	}
	if len(m.methods) != 1 {
		t.Fatalf("listed %d methods, want only the static one", len(m.methods))
	}
	if !strings.Contains(m.View(), "HBaseAdapter#getRowCount") {
		t.Errorf("view lacks the method:\n%s", m.View())
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != stateInputArgs {
		t.Fatalf("state = %v, want argument input", m.state)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("users")})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter did not start the call")
	}
	m.Update(cmd())

	if m.state != stateShowResult || m.err != nil || m.result != "1000" {
		t.Errorf("state = %v, result = %q, err = %v", m.state, m.result, m.err)
	}
	if len(gotArgs) != 1 || gotArgs[0] != "users" {
		t.Errorf("args = %v", gotArgs)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.state != stateSelectMethod || m.result != "" {
		t.Error("esc did not return to the method list")
	}
}
