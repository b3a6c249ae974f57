package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/modular"
)

const historyLen = 60

// StepMsg reports loop progress.
type StepMsg struct {
	Step        dynamo.Step
	Time        dynamo.Time
	Temperature float64
}

// DoneMsg ends the progress view.
type DoneMsg struct {
	Err error
}

// Progress is the live view of a running simulation.
type Progress struct {
	title       string
	first, last dynamo.Step
	cancel      context.CancelFunc

	step        dynamo.Step
	simTime     dynamo.Time
	temperature float64
	history     []float64
	started     time.Time

	done      bool
	cancelled bool
	err       error
	width     int
}

func NewProgress(title string, first, last dynamo.Step, cancel context.CancelFunc) Progress {
	return Progress{
		title:   title,
		first:   first,
		last:    last,
		step:    first,
		cancel:  cancel,
		history: make([]float64, 0, historyLen),
		started: time.Now(),
		width:   80,
	}
}

func (m Progress) Init() tea.Cmd { return nil }

func (m Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancelled = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case StepMsg:
		m.step = msg.Step
		m.simTime = msg.Time
		m.temperature = msg.Temperature
		m.history = append(m.history, msg.Temperature)
		if len(m.history) > historyLen {
			m.history = m.history[1:]
		}
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// Fraction is the completed share of the run in [0, 1].
func (m Progress) Fraction() float64 {
	total := m.last - m.first
	if total <= 0 {
		return 1
	}
	f := float64(m.step-m.first) / float64(total)
	return max(0, min(1, f))
}

func (m Progress) View() string {
	var b strings.Builder

	statusIcon := green.Render("●")
	statusText := green.Render("running")
	switch {
	case m.err != nil:
		statusIcon = red.Render("✕")
		statusText = red.Render("failed")
	case m.done:
		statusIcon = cyan.Render("✓")
		statusText = cyan.Render("done")
	case m.cancelled:
		statusIcon = yellow.Render("○")
		statusText = yellow.Render("stopping")
	}
	b.WriteString(fmt.Sprintf("\n   %s %s  %s\n", statusIcon, cyan.Render(m.title), statusText))

	barWidth := min(36, max(10, m.width-40))
	filled := int(m.Fraction() * float64(barWidth))
	stepStr := fmt.Sprintf("step %d/%d", m.step, m.last)
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	b.WriteString(fmt.Sprintf("   %s %s  %s\n\n", bar, dim.Render(stepStr), dim.Render(fmt.Sprintf("t=%.3f", float64(m.simTime)))))

	b.WriteString(fmt.Sprintf("   %s %s  %s\n", dim.Render("T"), magenta.Render(fmt.Sprintf("%.1f K", m.temperature)), cyan.Render(Sparkline(m.history, 24))))
	b.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("elapsed"), white.Render(time.Since(m.started).Round(time.Millisecond).String())))

	if m.err != nil {
		b.WriteString("\n   " + red.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n" + dim.Render("   q stop") + "\n")
	return b.String()
}

// StepObserver forwards every nth step to send as a StepMsg.
func StepObserver(send func(tea.Msg), every int64, temperature func() float64) modular.Observer {
	if every < 1 {
		every = 1
	}
	return modular.ObserverFunc(func(step dynamo.Step, t dynamo.Time) {
		if int64(step)%every != 0 {
			return
		}
		msg := StepMsg{Step: step, Time: t}
		if temperature != nil {
			msg.Temperature = temperature()
		}
		send(msg)
	})
}

// RunLive runs fn while showing the progress view. fn receives a context
// cancelled when the user quits and the program's Send to report progress.
func RunLive(ctx context.Context, title string, first, last dynamo.Step, fn func(ctx context.Context, send func(tea.Msg)) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgress(title, first, last, cancel))
	errc := make(chan error, 1)
	go func() {
		err := fn(ctx, p.Send)
		errc <- err
		p.Send(DoneMsg{Err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errc
		return err
	}
	cancel()
	return <-errc
}
