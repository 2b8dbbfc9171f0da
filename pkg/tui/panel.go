package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/james-see/meeblipcc/pkg/engine"
	"github.com/james-see/meeblipcc/pkg/host"
	"github.com/james-see/meeblipcc/pkg/quantize"
)

const (
	refreshInterval = 200 * time.Millisecond
	callTimeout     = time.Second
	coarseStep      = 8
)

// Knob is one row of the panel
type Knob struct {
	Index   int
	Name    string
	Display string
	Value   float64
	CC      uint8
	Channel bool
}

// Snapshot is a copy of the engine state taken inside one block
type Snapshot struct {
	Program     int
	ProgramName string
	Echo        bool
	Knobs       []Knob
	Stats       engine.Stats
}

// Capture copies the visible engine state. It must run on the block goroutine.
func Capture(e *engine.Engine) Snapshot {
	s := Snapshot{
		Program:     e.Program(),
		ProgramName: e.ProgramName(),
		Echo:        e.EchoEnabled(),
		Knobs:       make([]Knob, 0, e.NumParameters()),
		Stats:       e.Stats(),
	}

	table := e.Layout()
	for i := 0; i < e.NumParameters(); i++ {
		id, _ := e.Resolve(i)
		k := Knob{
			Index:   i,
			Name:    e.ParameterName(id),
			Display: e.ParameterDisplay(id),
			Value:   e.Parameter(id),
			Channel: id.IsChannel(),
		}
		if !k.Channel {
			k.CC = table[id.Index()].CC
		}
		s.Knobs = append(s.Knobs, k)
	}
	return s
}

// nudge moves parameter index by delta knob steps, as a host automation write
func nudge(e *engine.Engine, index, delta int) error {
	id, err := e.Resolve(index)
	if err != nil {
		return err
	}

	if id.IsChannel() {
		ch := int(quantize.ValueToChannel(e.Parameter(id))) + delta
		ch = max(0, min(quantize.MaxChannel, ch))
		e.SetParameter(id, quantize.ChannelToValue(uint8(ch)), engine.OriginAutomation)
		return nil
	}

	d := e.Layout()[id.Index()]
	step := max(d.MinValue, min(d.MaxValue, e.Step(id.Index())+delta))
	e.SetParameter(id, quantize.StepToValue(step, d), engine.OriginAutomation)
	return nil
}

type snapshotMsg struct {
	snap Snapshot
	err  error
}

type tickMsg time.Time

// Model is the bubbletea model of the knob panel
type Model struct {
	runner  *host.Runner
	snap    Snapshot
	loaded  bool
	cursor  int
	spinner spinner.Model
	err     error
	width   int
	height  int
}

// New creates a panel driving runner
func New(runner *host.Runner) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(knobAmber)

	return Model{
		runner:  runner,
		spinner: s,
	}
}

// Init starts the spinner and the first refresh
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.apply(nil), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// apply runs fn on the engine and returns a fresh snapshot
func (m Model) apply(fn func(*engine.Engine) error) tea.Cmd {
	runner := m.runner
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()

		var snap Snapshot
		err := runner.Call(ctx, func(e *engine.Engine) error {
			if fn != nil {
				if err := fn(e); err != nil {
					return err
				}
			}
			snap = Capture(e)
			return nil
		})
		return snapshotMsg{snap: snap, err: err}
	}
}

// Update handles key presses and engine snapshots
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)

	case tickMsg:
		return m, tea.Batch(m.apply(nil), tick())

	case spinner.TickMsg:
		if m.loaded {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case snapshotMsg:
		m.err = msg.err
		if msg.err == nil {
			m.snap = msg.snap
			m.loaded = true
			if m.cursor >= len(m.snap.Knobs) {
				m.cursor = max(0, len(m.snap.Knobs)-1)
			}
		}
		return m, nil
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	if !m.loaded {
		return m, nil
	}

	cursor := m.cursor
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.snap.Knobs)-1 {
			m.cursor++
		}
	case "left", "h":
		return m, m.apply(func(e *engine.Engine) error { return nudge(e, cursor, -1) })
	case "right", "l":
		return m, m.apply(func(e *engine.Engine) error { return nudge(e, cursor, 1) })
	case "shift+left", "pgdown":
		return m, m.apply(func(e *engine.Engine) error { return nudge(e, cursor, -coarseStep) })
	case "shift+right", "pgup":
		return m, m.apply(func(e *engine.Engine) error { return nudge(e, cursor, coarseStep) })
	case ",":
		return m, m.apply(func(e *engine.Engine) error { return stepProgram(e, -1) })
	case ".":
		return m, m.apply(func(e *engine.Engine) error { return stepProgram(e, 1) })
	case "e":
		return m, m.apply(func(e *engine.Engine) error {
			e.SetEchoEnabled(!e.EchoEnabled())
			return nil
		})
	}
	return m, nil
}

func stepProgram(e *engine.Engine, delta int) error {
	n := e.NumPrograms()
	return e.SetProgram(((e.Program()+delta)%n + n) % n)
}

// View renders the panel
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(logo())
	s.WriteString("\n")

	if !m.loaded {
		s.WriteString(fmt.Sprintf("%s Waiting for the engine...\n", m.spinner.View()))
		if m.err != nil {
			s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s", m.err)))
		}
		return s.String()
	}

	s.WriteString(m.viewKnobs())
	s.WriteString("\n")
	s.WriteString(m.viewStatus())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: select • ←/→: ±1 • pgup/pgdn: ±8 • ,/.: program • e: echo • q: quit"))

	return s.String()
}

func (m Model) viewKnobs() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf(" PROGRAM %03d  %s ", m.snap.Program, m.snap.ProgramName)))
	s.WriteString("\n")

	for i, k := range m.snap.Knobs {
		cc := "   "
		if !k.Channel {
			cc = fmt.Sprintf("%3d", k.CC)
		}
		line := fmt.Sprintf("%-16s %s %5s  cc %s", k.Name, bar(k.Value), k.Display, cc)
		if i == m.cursor {
			s.WriteString(selectedStyle.Render("▸ " + line))
		} else {
			s.WriteString(rowStyle.Render("  " + line))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(strings.TrimRight(s.String(), "\n"))
}

func (m Model) viewStatus() string {
	echo := "off"
	if m.snap.Echo {
		echo = "on"
	}
	st := m.snap.Stats
	status := fmt.Sprintf("echo %s • blocks %d • cc in %d • unmapped %d • events out %d",
		echo, st.Blocks, st.ControlChanges, st.Unmapped, st.EventsOut)
	if m.err != nil {
		return statusStyle.Render(status) + "\n" + errorStyle.Render(fmt.Sprintf("✗ %s", m.err))
	}
	return statusStyle.Render(status)
}

// Run starts the panel on the alternate screen and blocks until the user quits
func Run(runner *host.Runner) error {
	p := tea.NewProgram(New(runner), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
