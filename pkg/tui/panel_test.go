package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap/zaptest"

	"github.com/james-see/meeblipcc/pkg/engine"
	"github.com/james-see/meeblipcc/pkg/host"
	"github.com/james-see/meeblipcc/pkg/layout"
	"github.com/james-see/meeblipcc/pkg/midi"
)

func newTestRunner(t *testing.T) (*host.Runner, *midi.Recorder) {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.Logger = zaptest.NewLogger(t)

	rec := &midi.Recorder{}
	e, err := engine.New(cfg, rec)
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}
	r := host.NewRunner(e, 64, cfg.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx, time.Millisecond)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r, rec
}

// step feeds msg to m and resolves the returned command once
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd != nil {
		if out := cmd(); out != nil {
			if snap, ok := out.(snapshotMsg); ok {
				next, _ = m.Update(snap)
				m = next.(Model)
			}
		}
	}
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "pgup":
		return tea.KeyMsg{Type: tea.KeyPgUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loaded(t *testing.T, r *host.Runner) Model {
	t.Helper()
	m := New(r)
	msg := m.apply(nil)()
	next, _ := m.Update(msg)
	m = next.(Model)
	if !m.loaded {
		t.Fatalf("panel not loaded: %v", m.err)
	}
	return m
}

func TestCapture(t *testing.T) {
	e, err := engine.New(engine.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	snap := Capture(e)
	if len(snap.Knobs) != 30 {
		t.Fatalf("Capture() knobs = %d, want 30", len(snap.Knobs))
	}
	if k := snap.Knobs[22]; k.Name != "CUTOFF" || k.CC != 49 || k.Display != "127" {
		t.Errorf("knob 22 = %+v", k)
	}
	if k := snap.Knobs[29]; !k.Channel || k.Display != "1" {
		t.Errorf("knob 29 = %+v", k)
	}
	if snap.ProgramName != engine.DefaultProgramName || !snap.Echo {
		t.Errorf("snapshot header = %d %q echo=%v", snap.Program, snap.ProgramName, snap.Echo)
	}
}

func TestNudge(t *testing.T) {
	e, err := engine.New(engine.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		index int
		delta int
		want  string
	}{
		{"cutoff clamps at max", 22, 1, "127"},
		{"cutoff down", 22, -27, "100"},
		{"detune down", 16, -10, "-10"},
		{"detune clamps at min", 16, -200, "-64"},
		{"out channel up", 29, 3, "4"},
		{"out channel clamps", 29, 40, "16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := nudge(e, tt.index, tt.delta); err != nil {
				t.Fatalf("nudge() error = %v", err)
			}
			got, _ := e.ParameterDisplayAt(tt.index)
			if got != tt.want {
				t.Errorf("display after nudge = %q, want %q", got, tt.want)
			}
		})
	}

	if err := nudge(e, 99, 1); err == nil {
		t.Error("nudge(99) should fail")
	}
}

func TestPanelKeysEcho(t *testing.T) {
	r, rec := newTestRunner(t)
	m := loaded(t, r)

	for i := 0; i < 22; i++ {
		m = step(t, m, key("down"))
	}
	if m.cursor != 22 {
		t.Fatalf("cursor = %d, want 22", m.cursor)
	}

	m = step(t, m, key("left"))
	if got := m.snap.Knobs[22].Display; got != "126" {
		t.Errorf("CUTOFF display = %q, want 126", got)
	}

	// the next snapshot runs one block later, after the echo was drained
	next, _ := m.Update(m.apply(nil)())
	m = next.(Model)
	events := rec.MIDIEvents()
	if len(events) != 1 || events[0].Data1() != 49 || events[0].Data2() != 126 {
		t.Errorf("echo = %v, want CC 49=126", events)
	}
}

func TestPanelProgramAndEcho(t *testing.T) {
	r, _ := newTestRunner(t)
	m := loaded(t, r)

	m = step(t, m, key(","))
	if m.snap.Program != engine.DefaultPrograms-1 {
		t.Errorf("program = %d, want wrap to %d", m.snap.Program, engine.DefaultPrograms-1)
	}
	m = step(t, m, key("."))
	if m.snap.Program != 0 {
		t.Errorf("program = %d, want 0", m.snap.Program)
	}

	m = step(t, m, key("e"))
	if m.snap.Echo {
		t.Error("echo should be toggled off")
	}
}

func TestPanelCursorBounds(t *testing.T) {
	r, _ := newTestRunner(t)
	m := loaded(t, r)

	m = step(t, m, key("up"))
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
	for i := 0; i < 50; i++ {
		m = step(t, m, key("j"))
	}
	if m.cursor != 29 {
		t.Errorf("cursor = %d, want 29", m.cursor)
	}
}

func TestPanelQuit(t *testing.T) {
	m := New(nil)
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestView(t *testing.T) {
	m := New(nil)
	if !strings.Contains(m.View(), "Waiting") {
		t.Error("unloaded view should show the spinner line")
	}

	e, err := engine.New(engine.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	next, _ := m.Update(snapshotMsg{snap: Capture(e)})
	view := next.(Model).View()
	for _, want := range []string{"PROGRAM 000", "-init-", "OSCB_WAVE", "CUTOFF", "Midi Out", "echo on"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestRenderLayout(t *testing.T) {
	out := RenderLayout(layout.Meeblip())
	for _, want := range []string{"28 PARAMETERS", "OSC_DETUNE", "-64..63", "bipolar-knob"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderLayout() missing %q", want)
		}
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		value float64
		full  int
	}{
		{0, 0},
		{0.5, 8},
		{1, 16},
		{2, 16},
		{-1, 0},
	}
	for _, tt := range tests {
		got := bar(tt.value)
		if n := strings.Count(got, "█"); n != tt.full {
			t.Errorf("bar(%v) filled = %d, want %d", tt.value, n, tt.full)
		}
		if n := strings.Count(got, "█") + strings.Count(got, "░"); n != barWidth {
			t.Errorf("bar(%v) width = %d", tt.value, n)
		}
	}
}
