package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/konnta0/zenoh-bridge/capi"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	opStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#98FB98"))

	paramStyle = lipgloss.NewStyle().
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

// eventLog collects samples delivered by callbacks on engine threads; the
// TUI drains it on its refresh tick.
type eventLog struct {
	mu    sync.Mutex
	lines []string
}

func (l *eventLog) add(line string) {
	l.mu.Lock()
	l.lines = append(l.lines, line)
	if len(l.lines) > 8 {
		l.lines = l.lines[len(l.lines)-8:]
	}
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

type opInfo struct {
	name   string
	params []string
	run    func(m *probeModel, args []string) (string, error)
}

var ops = []opInfo{
	{
		name:   "put",
		params: []string{"key expression", "payload"},
		run: func(m *probeModel, args []string) (string, error) {
			code := capi.Put(m.session, []byte(args[0]), []byte(args[1]))
			if code != capi.CodeOK {
				return "", fmt.Errorf("%s: %s", code, capi.LastError())
			}
			return fmt.Sprintf("put %d bytes on %s", len(args[1]), args[0]), nil
		},
	},
	{
		name:   "delete",
		params: []string{"key expression"},
		run: func(m *probeModel, args []string) (string, error) {
			code := capi.Delete(m.session, []byte(args[0]))
			if code != capi.CodeOK {
				return "", fmt.Errorf("%s: %s", code, capi.LastError())
			}
			return "deletion published on " + args[0], nil
		},
	},
	{
		name:   "get",
		params: []string{"selector"},
		run: func(m *probeModel, args []string) (string, error) {
			var replies []string
			code := capi.Get(m.session, []byte(args[0]), func(sample *capi.Sample, _ uintptr) {
				replies = append(replies, fmt.Sprintf("%s: %q", sample.KeyExpr, sample.Payload))
			}, 0)
			if code != capi.CodeOK {
				return "", fmt.Errorf("%s: %s", code, capi.LastError())
			}
			if len(replies) == 0 {
				return "no replies", nil
			}
			return strings.Join(replies, "\n"), nil
		},
	},
	{
		name:   "subscribe",
		params: []string{"key expression"},
		run: func(m *probeModel, args []string) (string, error) {
			key := args[0]
			sub := capi.DeclareSubscriber(m.session, []byte(key), func(sample *capi.Sample, _ uintptr) {
				kind := "put"
				if sample.Kind == capi.SampleKindDelete {
					kind = "delete"
				}
				m.log.add(fmt.Sprintf("[%s] %s: %q", kind, sample.KeyExpr, sample.Payload))
			}, 0)
			if sub == capi.NullHandle {
				return "", fmt.Errorf("declare subscriber: %s", capi.LastError())
			}
			m.subs = append(m.subs, sub)
			return "subscribed to " + key, nil
		},
	},
	{
		name:   "unsubscribe",
		params: nil,
		run: func(m *probeModel, args []string) (string, error) {
			if len(m.subs) == 0 {
				return "no subscribers", nil
			}
			last := m.subs[len(m.subs)-1]
			m.subs = m.subs[:len(m.subs)-1]
			capi.UndeclareSubscriber(last)
			return "subscriber undeclared", nil
		},
	},
	{
		name:   "queryable",
		params: []string{"key expression", "reply payload"},
		run: func(m *probeModel, args []string) (string, error) {
			key, reply := args[0], args[1]
			q := capi.DeclareQueryable(m.session, []byte(key), func(query capi.Handle, _ uintptr) {
				capi.QueryReply(query, []byte(key), []byte(reply))
			}, 0)
			if q == capi.NullHandle {
				return "", fmt.Errorf("declare queryable: %s", capi.LastError())
			}
			m.queryables = append(m.queryables, q)
			return "queryable on " + key, nil
		},
	},
	{
		name:   "token",
		params: []string{"key expression"},
		run: func(m *probeModel, args []string) (string, error) {
			tok := capi.LivelinessDeclareToken(m.session, []byte(args[0]))
			if tok == capi.NullHandle {
				return "", fmt.Errorf("declare token: %s", capi.LastError())
			}
			m.tokens = append(m.tokens, tok)
			return "liveliness token on " + args[0], nil
		},
	},
	{
		name:   "untoken",
		params: nil,
		run: func(m *probeModel, args []string) (string, error) {
			if len(m.tokens) == 0 {
				return "no tokens", nil
			}
			last := m.tokens[len(m.tokens)-1]
			m.tokens = m.tokens[:len(m.tokens)-1]
			capi.LivelinessUndeclareToken(last)
			return "token retracted", nil
		},
	},
	{
		name:   "zid",
		params: nil,
		run: func(m *probeModel, args []string) (string, error) {
			h := capi.SessionZid(m.session)
			if h == capi.NullHandle {
				return "", fmt.Errorf("zid: %s", capi.LastError())
			}
			defer capi.FreeString(h)
			return capi.StringValue(h), nil
		},
	},
}

type modelState int

const (
	stateSelectOp modelState = iota
	stateInputArgs
	stateShowResult
)

type probeModel struct {
	err        error
	session    capi.Handle
	configText []byte
	log        *eventLog
	subs       []capi.Handle
	queryables []capi.Handle
	tokens     []capi.Handle
	counts     map[string]int
	result     string
	inputs     []textinput.Model
	selected   int
	focusIdx   int
	state      modelState
}

func newProbeModel(configText []byte) *probeModel {
	return &probeModel{
		configText: configText,
		log:        &eventLog{},
		state:      stateSelectOp,
	}
}

type openedMsg struct {
	err     error
	session capi.Handle
}

type callResultMsg struct {
	err    error
	result string
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *probeModel) Init() tea.Cmd {
	return tea.Batch(m.openSession, tick())
}

func (m *probeModel) openSession() tea.Msg {
	session := capi.Open(m.configText)
	if session == capi.NullHandle {
		return openedMsg{err: fmt.Errorf("open session: %s", capi.LastError())}
	}
	return openedMsg{session: session}
}

func (m *probeModel) teardown() {
	for _, sub := range m.subs {
		capi.UndeclareSubscriber(sub)
	}
	for _, q := range m.queryables {
		capi.UndeclareQueryable(q)
	}
	for _, tok := range m.tokens {
		capi.LivelinessUndeclareToken(tok)
	}
	capi.Close(m.session)
}

func (m *probeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				m.teardown()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectOp && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectOp && m.selected < len(ops)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectOp:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callOp
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callOp

			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectOp
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
			}
		}

	case openedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.session = msg.session

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult

	case tickMsg:
		m.counts = capi.ResourceCounts()
		return m, tick()
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

func (m *probeModel) prepareInputs() {
	op := ops[m.selected]
	m.inputs = make([]textinput.Model, len(op.params))
	for i, p := range op.params {
		ti := textinput.New()
		ti.Placeholder = p
		ti.Prompt = p + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *probeModel) callOp() tea.Msg {
	if m.session == capi.NullHandle {
		return callResultMsg{err: fmt.Errorf("session not open")}
	}
	op := ops[m.selected]
	args := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = input.Value()
	}
	result, err := op.run(m, args)
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: result}
}

func (m *probeModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.session == capi.NullHandle {
		return "Opening session..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("zenoh-bridge probe"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectOp:
		b.WriteString("Select an operation:\n\n")
		for i, op := range ops {
			cursor := "  "
			line := m.formatOp(op)
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + line))
			} else {
				b.WriteString(cursor + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter run • q quit"))

	case stateInputArgs:
		op := ops[m.selected]
		b.WriteString(fmt.Sprintf("Running %s\n\n", opStyle.Render(op.name)))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter run • esc back"))

	case stateShowResult:
		op := ops[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", opStyle.Render(op.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	b.WriteString("\n\n")
	b.WriteString(m.statusView())
	return b.String()
}

func (m *probeModel) formatOp(op opInfo) string {
	var params []string
	for _, p := range op.params {
		params = append(params, paramStyle.Render(p))
	}
	return opStyle.Render(op.name) + "(" + strings.Join(params, ", ") + ")"
}

func (m *probeModel) statusView() string {
	var b strings.Builder
	if m.counts != nil {
		b.WriteString(helpStyle.Render(fmt.Sprintf(
			"handles: sessions %d • publishers %d • subscribers %d • queryables %d • tokens %d",
			m.counts["session"], m.counts["publisher"], m.counts["subscriber"],
			m.counts["queryable"], m.counts["token"])))
	}
	lines := m.log.snapshot()
	if len(lines) > 0 {
		b.WriteString("\n\nRecent samples:\n")
		for _, line := range lines {
			b.WriteString("  " + line + "\n")
		}
	}
	return b.String()
}

func runInteractive(configText []byte) error {
	p := tea.NewProgram(newProbeModel(configText), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
