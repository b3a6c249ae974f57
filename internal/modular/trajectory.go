package modular

import (
	"errors"
	"fmt"

	"github.com/san-kum/modsim/internal/dynamo"
)

// Frame is one trajectory frame. Only the fields selected by Kinds are set.
// Slices are only valid for the duration of Sink.WriteFrame.
type Frame struct {
	Step  dynamo.Step
	Time  dynamo.Time
	Kinds dynamo.WriteKind
	Box   dynamo.Matrix
	X     []dynamo.RVec
	V     []dynamo.RVec
	F     []dynamo.RVec
}

// EnergyFrame holds the energy terms of one step by name.
type EnergyFrame struct {
	Step  dynamo.Step
	Time  dynamo.Time
	Terms map[string]float64
}

// Sink is an open output destination. The loop never opens or closes it.
type Sink interface {
	WriteFrame(f *Frame) error
	WriteEnergy(e *EnergyFrame) error
}

// WriterCallback writes the client's data for step into sink.
type WriterCallback func(sink Sink, step dynamo.Step, time dynamo.Time) error

// TrajectoryWriterClient owns data that ends up in the trajectory. It decides
// which version of its data to supply when the write actually happens.
type TrajectoryWriterClient interface {
	TrajectoryWriterSetup(sink Sink) error
	TrajectoryWriterTeardown(sink Sink) error
	RegisterTrajectoryWriterCallback(event TrajectoryEvent) WriterCallback
}

// TrajectoryElement performs the writes. It learns about write steps from a
// signaller and calls its writer clients from its own run function, which the
// builder places at the end of the step.
type TrajectoryElement struct {
	sink      Sink
	clients   []TrajectoryWriterClient
	callbacks map[TrajectoryEvent][]WriterCallback

	pending map[TrajectoryEvent]dynamo.Step
	frames  int
}

func NewTrajectoryElement(sink Sink, clients ...TrajectoryWriterClient) *TrajectoryElement {
	return &TrajectoryElement{
		sink:      sink,
		clients:   clients,
		callbacks: make(map[TrajectoryEvent][]WriterCallback),
		pending:   make(map[TrajectoryEvent]dynamo.Step),
	}
}

func (t *TrajectoryElement) Name() string { return "trajectory" }

// Frames returns the number of state frames written.
func (t *TrajectoryElement) Frames() int { return t.frames }

func (t *TrajectoryElement) ElementSetup() error {
	if t.sink == nil {
		return errors.New("modular: trajectory element has no sink")
	}
	t.callbacks = make(map[TrajectoryEvent][]WriterCallback)
	t.pending = make(map[TrajectoryEvent]dynamo.Step)
	t.frames = 0
	for _, c := range t.clients {
		if err := c.TrajectoryWriterSetup(t.sink); err != nil {
			return fmt.Errorf("writer setup: %w", err)
		}
		for _, ev := range []TrajectoryEvent{StateWritingStep, EnergyWritingStep} {
			if cb := c.RegisterTrajectoryWriterCallback(ev); cb != nil {
				t.callbacks[ev] = append(t.callbacks[ev], cb)
			}
		}
	}
	return nil
}

func (t *TrajectoryElement) RegisterTrajectorySignallerCallback(event TrajectoryEvent) SignallerCallback {
	return func(step dynamo.Step, _ dynamo.Time) {
		t.pending[event] = step
	}
}

func (t *TrajectoryElement) ScheduleTask(step dynamo.Step, time dynamo.Time, register RegisterRunFunc) {
	var events []TrajectoryEvent
	for _, ev := range []TrajectoryEvent{StateWritingStep, EnergyWritingStep} {
		if s, ok := t.pending[ev]; ok && s == step {
			events = append(events, ev)
		}
	}
	if len(events) == 0 {
		return
	}
	register(func() error {
		for _, ev := range events {
			delete(t.pending, ev)
			for _, cb := range t.callbacks[ev] {
				if err := cb(t.sink, step, time); err != nil {
					return fmt.Errorf("%s write: %w", ev, err)
				}
			}
			if ev == StateWritingStep {
				t.frames++
			}
		}
		return nil
	})
}

func (t *TrajectoryElement) ElementTeardown() error {
	var errs []error
	for _, c := range t.clients {
		if err := c.TrajectoryWriterTeardown(t.sink); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
