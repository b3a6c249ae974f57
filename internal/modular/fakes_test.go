package modular_test

import (
	"fmt"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/modular"
)

// journal records the order of everything that happens in a run.
type journal struct {
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

// recorder is an element that registers a run function on every step and
// records signaller events it receives.
type recorder struct {
	name     string
	j        *journal
	every    int64
	failAt   dynamo.Step
	setupErr error
	torn     bool
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) ElementSetup() error {
	r.j.add("%s setup", r.name)
	return r.setupErr
}

func (r *recorder) ScheduleTask(step dynamo.Step, _ dynamo.Time, register modular.RegisterRunFunc) {
	if r.every > 0 && int64(step)%r.every != 0 {
		return
	}
	register(func() error {
		r.j.add("%s run %d", r.name, step)
		if r.failAt >= 0 && step == r.failAt {
			return fmt.Errorf("%s failed", r.name)
		}
		return nil
	})
}

func (r *recorder) ElementTeardown() error {
	r.torn = true
	r.j.add("%s teardown", r.name)
	return nil
}

func (r *recorder) RegisterTrajectorySignallerCallback(event modular.TrajectoryEvent) modular.SignallerCallback {
	return func(step dynamo.Step, _ dynamo.Time) {
		r.j.add("%s signal %s %d", r.name, event, step)
	}
}

func newRecorder(name string, j *journal) *recorder {
	return &recorder{name: name, j: j, failAt: -1}
}

// memSink keeps copies of everything written.
type memSink struct {
	frames   []modular.Frame
	energies []modular.EnergyFrame
}

func (m *memSink) WriteFrame(f *modular.Frame) error {
	c := *f
	c.X = append([]dynamo.RVec(nil), f.X...)
	c.V = append([]dynamo.RVec(nil), f.V...)
	c.F = append([]dynamo.RVec(nil), f.F...)
	m.frames = append(m.frames, c)
	return nil
}

func (m *memSink) WriteEnergy(e *modular.EnergyFrame) error {
	m.energies = append(m.energies, *e)
	return nil
}

// counterClient writes its step counter on every write event.
type counterClient struct {
	j       *journal
	setup   int
	torn    int
	written []dynamo.Step
}

func (c *counterClient) TrajectoryWriterSetup(modular.Sink) error    { c.setup++; return nil }
func (c *counterClient) TrajectoryWriterTeardown(modular.Sink) error { c.torn++; return nil }

func (c *counterClient) RegisterTrajectoryWriterCallback(event modular.TrajectoryEvent) modular.WriterCallback {
	switch event {
	case modular.StateWritingStep:
		return func(sink modular.Sink, step dynamo.Step, time dynamo.Time) error {
			c.written = append(c.written, step)
			if c.j != nil {
				c.j.add("write %d", step)
			}
			return sink.WriteFrame(&modular.Frame{Step: step, Time: time, Kinds: dynamo.WritePosition})
		}
	case modular.EnergyWritingStep:
		return func(sink modular.Sink, step dynamo.Step, time dynamo.Time) error {
			return sink.WriteEnergy(&modular.EnergyFrame{Step: step, Time: time, Terms: map[string]float64{"step": float64(step)}})
		}
	}
	return nil
}
