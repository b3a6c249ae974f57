package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/modsim/internal/dynamo"
)

func TestProgress_Update(t *testing.T) {
	m := NewProgress("md", 0, 100, nil)

	updated, cmd := m.Update(StepMsg{Step: 50, Time: 0.1, Temperature: 300})
	m = updated.(Progress)
	if cmd != nil {
		t.Error("expected no command for a step")
	}
	if m.Fraction() != 0.5 {
		t.Errorf("expected fraction 0.5, got %f", m.Fraction())
	}
	if !strings.Contains(m.View(), "step 50/100") {
		t.Error("expected step counter in view")
	}
	if !strings.Contains(m.View(), "300.0 K") {
		t.Error("expected temperature in view")
	}

	updated, cmd = m.Update(DoneMsg{Err: errors.New("boom")})
	m = updated.(Progress)
	if cmd == nil {
		t.Error("expected quit command when done")
	}
	if !strings.Contains(m.View(), "boom") {
		t.Error("expected error in view")
	}
}

func TestProgress_QuitCancels(t *testing.T) {
	cancelled := false
	m := NewProgress("md", 0, 10, func() { cancelled = true })

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("expected quit command")
	}
	if !cancelled {
		t.Error("expected the run context to be cancelled")
	}
	if !strings.Contains(updated.View(), "stopping") {
		t.Error("expected stopping status")
	}
}

func TestProgress_FractionBounds(t *testing.T) {
	tests := []struct {
		name     string
		first    dynamo.Step
		last     dynamo.Step
		step     dynamo.Step
		expected float64
	}{
		{"single step run", 5, 5, 5, 1},
		{"offset start", 100, 200, 150, 0.5},
		{"past the end", 0, 10, 20, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewProgress("md", tt.first, tt.last, nil)
			updated, _ := m.Update(StepMsg{Step: tt.step})
			if got := updated.(Progress).Fraction(); got != tt.expected {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestStepObserver(t *testing.T) {
	var msgs []tea.Msg
	obs := StepObserver(func(m tea.Msg) { msgs = append(msgs, m) }, 5, func() float64 { return 42 })

	for step := dynamo.Step(0); step <= 12; step++ {
		obs.OnStep(step, 0)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	last := msgs[2].(StepMsg)
	if last.Step != 10 || last.Temperature != 42 {
		t.Errorf("unexpected message %+v", last)
	}
}

func TestSparklineAndSummary(t *testing.T) {
	if Sparkline(nil, 10) != "" {
		t.Error("expected empty sparkline")
	}
	if got := []rune(Sparkline([]float64{0, 1, 2, 3}, 10)); len(got) != 4 || got[0] != '▁' || got[3] != '█' {
		t.Errorf("unexpected sparkline %q", string(got))
	}

	s := Summary("run", [][2]string{{"frames", "3"}, {"elapsed", "1s"}})
	if !strings.Contains(s, "frames") || !strings.Contains(s, "1s") {
		t.Error("expected summary rows")
	}
}
