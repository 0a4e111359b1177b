package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"qzxopt/internal/circuit"
	"qzxopt/internal/config"
	"qzxopt/internal/optimizer"
	"qzxopt/internal/zx"
)

// pane selects which circuit the cursor moves over.
type pane int

const (
	paneOriginal pane = iota
	paneOptimized
)

// focus represents which panel/mode has keyboard input.
type focus int

const (
	focusCircuit focus = iota
	focusQASM
	focusMenu
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Switch key.Binding
	Edit   key.Binding
	Rules  key.Binding
	Scroll key.Binding
	Save   key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "qubit up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "qubit down")),
		Left:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "step back")),
		Right:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "step forward")),
		Switch: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch circuit")),
		Edit:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit input")),
		Rules:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rule order")),
		Scroll: key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("pgup/pgdn", "scroll output")),
		Save:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("^S", "save output")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Switch, k.Edit, k.Rules, k.Save, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Switch, k.Edit, k.Rules, k.Scroll, k.Save, k.Quit},
	}
}

// optimizedMsg carries the result of a background optimization run. seq
// identifies the run so results of superseded runs are dropped.
type optimizedMsg struct {
	seq    int
	result *optimizer.Result
	err    error
}

// Model is the before/after viewer state.
type Model struct {
	path string
	cfg  config.Config
	log  *zap.Logger

	original *circuit.Circuit
	result   *optimizer.Result
	err      error
	running  bool
	seq      int
	order    []zx.RuleKind

	active      pane
	cursorQubit int
	cursorStep  int
	width       int
	height      int
	focus       focus
	statusMsg   string // transient status message (e.g. save confirmation)
	lastQASM    string

	qasmEditor textarea.Model
	output     viewport.Model
	help       help.Model
	keys       keyMap

	// rule menu state
	menuRules []menuRule
	menuIdx   int
}

func newModel(path string, c *circuit.Circuit, cfg config.Config, log *zap.Logger) (Model, error) {
	order, err := zx.ParseRuleOrder(cfg.Simplify.RuleOrder)
	if err != nil {
		return Model{}, err
	}

	ta := textarea.New()
	ta.Placeholder = "OPENQASM 2.0; ..."
	ta.SetWidth(40)
	ta.SetHeight(12)
	ta.ShowLineNumbers = true
	ta.KeyMap.InsertNewline.SetEnabled(true)

	src := c.ToQASM()
	ta.SetValue(src)

	return Model{
		path:       path,
		cfg:        cfg,
		log:        log,
		original:   c,
		order:      order,
		running:    true,
		lastQASM:   src,
		qasmEditor: ta,
		output:     viewport.New(40, 12),
		help:       help.New(),
		keys:       defaultKeyMap(),
	}, nil
}

// optimizeCmd runs the optimizer off the UI goroutine.
func (m Model) optimizeCmd() tea.Cmd {
	cfg, log, c, seq := m.cfg, m.log, m.original.Clone(), m.seq
	return func() tea.Msg {
		o, err := optimizer.New(optimizer.WithConfig(cfg), optimizer.WithLogger(log))
		if err != nil {
			return optimizedMsg{seq: seq, err: err}
		}
		res, err := o.Optimize(context.Background(), c)
		return optimizedMsg{seq: seq, result: res, err: err}
	}
}

// rerun starts a new optimization, superseding any run in flight.
func (m *Model) rerun() tea.Cmd {
	m.seq++
	m.running = true
	m.err = nil
	return m.optimizeCmd()
}

// optimizedCircuit returns the circuit shown in the lower pane.
func (m Model) optimizedCircuit() *circuit.Circuit {
	if m.result != nil {
		return m.result.Circuit
	}
	return m.original
}

func (m Model) activeCircuit() *circuit.Circuit {
	if m.active == paneOptimized {
		return m.optimizedCircuit()
	}
	return m.original
}

// clampCursor keeps the cursor inside the active circuit.
func (m *Model) clampCursor() {
	c := m.activeCircuit()
	m.cursorQubit = min(m.cursorQubit, max(c.NumQubits-1, 0))
	m.cursorStep = min(m.cursorStep, max(c.MaxSteps-1, 0))
}

// parseQASMInput re-reads the editor. It reports whether the input circuit
// changed.
func (m *Model) parseQASMInput() bool {
	src := m.qasmEditor.Value()
	if src == m.lastQASM {
		return false
	}
	c, err := circuit.ParseQASM(src)
	if err != nil {
		m.statusMsg = fmt.Sprintf("Parse error: %v", err)
		return false
	}
	m.original = c
	m.lastQASM = src
	m.clampCursor()
	return true
}

// savePath returns where ctrl+s writes the optimized circuit.
func (m Model) savePath() string {
	if m.path == "" || m.path == "-" {
		return "circuit.opt.qasm"
	}
	return strings.TrimSuffix(m.path, ".qasm") + ".opt.qasm"
}

// ──────────────────────────── Init / Update ────────────────────────────

func (m Model) Init() tea.Cmd {
	return m.optimizeCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		qasmW := max(msg.Width/3-4, 20)
		paneH := max((msg.Height-9)/2-4, 4)
		m.qasmEditor.SetWidth(qasmW)
		m.qasmEditor.SetHeight(paneH)
		m.output.Width = qasmW
		m.output.Height = paneH
		m.help.Width = msg.Width - 6
		return m, nil

	case optimizedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.running = false
		m.result, m.err = msg.result, msg.err
		if m.result != nil {
			m.output.SetContent(m.result.Circuit.ToQASM())
			m.output.GotoTop()
		}
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		m.statusMsg = ""
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.focus {
		case focusMenu:
			return m.updateMenu(msg)
		case focusQASM:
			return m.updateEditor(msg)
		}
		return m.updateCircuit(msg)
	}
	return m, nil
}

func (m Model) updateCircuit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.activeCircuit()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursorQubit > 0 {
			m.cursorQubit--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursorQubit < c.NumQubits-1 {
			m.cursorQubit++
		}
	case key.Matches(msg, m.keys.Left):
		if m.cursorStep > 0 {
			m.cursorStep--
		}
	case key.Matches(msg, m.keys.Right):
		if m.cursorStep < c.MaxSteps-1 {
			m.cursorStep++
		}
	case key.Matches(msg, m.keys.Switch):
		if m.active == paneOriginal {
			m.active = paneOptimized
		} else {
			m.active = paneOriginal
		}
		m.clampCursor()
	case key.Matches(msg, m.keys.Edit):
		m.focus = focusQASM
		m.qasmEditor.Focus()
	case key.Matches(msg, m.keys.Rules):
		m.openMenu()
	case key.Matches(msg, m.keys.Scroll):
		var cmd tea.Cmd
		m.output, cmd = m.output.Update(msg)
		return m, cmd
	case key.Matches(msg, m.keys.Save):
		path := m.savePath()
		if err := os.WriteFile(path, []byte(m.optimizedCircuit().ToQASM()), 0o644); err != nil {
			m.statusMsg = fmt.Sprintf("Save error: %v", err)
		} else {
			m.statusMsg = "Saved " + path
		}
	}
	return m, nil
}

// updateEditor forwards keys to the QASM editor; esc leaves it and re-runs
// the optimizer when the input changed.
func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.focus = focusCircuit
		m.qasmEditor.Blur()
		if m.parseQASMInput() {
			return m, m.rerun()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.qasmEditor, cmd = m.qasmEditor.Update(msg)
	return m, cmd
}
