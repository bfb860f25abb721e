package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/honeycomb/bridge"
	"github.com/wippyai/honeycomb/engine"
	"github.com/wippyai/honeycomb/symbols"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// invoker runs a static adapter method. *bridge.Bridge backs it outside
// tests.
type invoker func(ctx context.Context, m *engine.StaticMethodID, args []any) (any, error)

type inspectorModel struct {
	err      error
	call     invoker
	result   string
	methods  []methodInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type methodInfo struct {
	id     *engine.StaticMethodID
	name   string
	result string
	params []paramInfo
}

type paramInfo struct {
	name    string
	witType wit.Type
	typeStr string
}

type modelState int

const (
	stateSelectMethod modelState = iota
	stateInputArgs
	stateShowResult
)

type callResultMsg struct {
	err    error
	result string
}

func newInspectorModel(methods []symbols.Method, call invoker) (*inspectorModel, error) {
	m := &inspectorModel{call: call, state: stateSelectMethod}
	for _, method := range methods {
		if method.Static == nil {
			continue
		}
		sig, err := engine.ParseSignature(method.Signature)
		if err != nil {
			return nil, err
		}
		info := methodInfo{id: method.Static, name: method.Class + "#" + method.Name}
		for i, p := range sig.Params {
			info.params = append(info.params, paramInfo{
				name:    sig.ParamNames[i],
				witType: p,
				typeStr: engine.TypeName(p),
			})
		}
		if sig.Result != nil {
			info.result = engine.TypeName(sig.Result)
		}
		m.methods = append(m.methods, info)
	}
	return m, nil
}

func (m *inspectorModel) Init() tea.Cmd {
	return nil
}

func (m *inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectMethod && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectMethod && m.selected < len(m.methods)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectMethod:
				if len(m.methods) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callMethod
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.callMethod

			case stateShowResult:
				m.reset()
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			if m.state != stateSelectMethod {
				m.reset()
			}
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *inspectorModel) reset() {
	m.state = stateSelectMethod
	m.inputs = nil
	m.result = ""
	m.err = nil
}

func (m *inspectorModel) prepareInputs() {
	f := m.methods[m.selected]
	m.inputs = make([]textinput.Model, len(f.params))
	for i, p := range f.params {
		ti := textinput.New()
		ti.Placeholder = p.typeStr
		ti.Prompt = p.name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *inspectorModel) callMethod() tea.Msg {
	f := m.methods[m.selected]
	args := make([]any, len(m.inputs))
	for i, input := range m.inputs {
		v, err := convertArg(input.Value(), f.params[i].witType)
		if err != nil {
			return callResultMsg{err: fmt.Errorf("%s: %w", f.params[i].name, err)}
		}
		args[i] = v
	}

	result, err := m.call(context.Background(), f.id, args)
	if err != nil {
		return callResultMsg{err: err}
	}
	if f.result == "" {
		return callResultMsg{result: "()"}
	}
	return callResultMsg{result: fmt.Sprintf("%v", result)}
}

// convertArg parses a typed argument from its text form.
func convertArg(value string, t wit.Type) (any, error) {
	switch t.(type) {
	case wit.String:
		return value, nil
	case wit.U8, wit.U16, wit.U32:
		v, err := strconv.ParseUint(value, 10, 32)
		return uint32(v), err
	case wit.S8, wit.S16, wit.S32:
		v, err := strconv.ParseInt(value, 10, 32)
		return int32(v), err
	case wit.U64:
		return strconv.ParseUint(value, 10, 64)
	case wit.S64:
		return strconv.ParseInt(value, 10, 64)
	case wit.F32:
		v, err := strconv.ParseFloat(value, 32)
		return float32(v), err
	case wit.F64:
		return strconv.ParseFloat(value, 64)
	case wit.Bool:
		return strconv.ParseBool(value)
	default:
		return value, nil
	}
}

func (m *inspectorModel) View() string {
	if len(m.methods) == 0 {
		return "The adapter exports no static methods.\n\nPress q to quit."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("honeycomb"))
	b.WriteString(" adapter inspector\n\n")

	switch m.state {
	case stateSelectMethod:
		b.WriteString("Select a method to call:\n\n")
		for i, f := range m.methods {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + m.formatMethod(f)))
			} else {
				b.WriteString("  " + m.formatMethod(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		f := m.methods[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(f.params[i].typeStr))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.methods[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *inspectorModel) formatMethod(f methodInfo) string {
	var params []string
	for _, p := range f.params {
		params = append(params, p.name+": "+typeStyle.Render(p.typeStr))
	}
	result := ""
	if f.result != "" {
		result = " -> " + typeStyle.Render(f.result)
	}
	return funcStyle.Render(f.name) + "(" + strings.Join(params, ", ") + ")" + result
}

// bridgeInvoker calls through b. Each call attaches for its own duration,
// so adapter state does not carry over between calls.
func bridgeInvoker(b *bridge.Bridge) invoker {
	return func(ctx context.Context, m *engine.StaticMethodID, args []any) (any, error) {
		var result any
		err := b.Invoke(ctx, func(env *engine.Env, _ *symbols.Cache) error {
			v, err := env.CallStatic(ctx, m, args...)
			result = v
			return err
		})
		return result, err
	}
}

func runInspector(b *bridge.Bridge) error {
	model, err := newInspectorModel(b.Cache().Methods(), bridgeInvoker(b))
	if err != nil {
		return err
	}
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
