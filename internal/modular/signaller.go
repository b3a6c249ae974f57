package modular

import (
	"fmt"

	"github.com/san-kum/modsim/internal/dynamo"
)

// TrajectoryEvent is a named future event clients can subscribe to.
type TrajectoryEvent int

const (
	// StateWritingStep: positions, velocities or forces are written this step.
	StateWritingStep TrajectoryEvent = iota
	// EnergyWritingStep: energies are written this step.
	EnergyWritingStep
)

func (e TrajectoryEvent) String() string {
	switch e {
	case StateWritingStep:
		return "state-writing-step"
	case EnergyWritingStep:
		return "energy-writing-step"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// SignallerCallback is invoked with the step and time an event concerns.
type SignallerCallback func(step dynamo.Step, time dynamo.Time)

// Signaller announces events ahead of the step they concern. The loop calls
// Signal for every step before any element schedules work.
type Signaller interface {
	SignallerSetup() error
	Signal(step dynamo.Step, time dynamo.Time)
}

// TrajectorySignallerClient returns a callback for each event it wants, or
// nil for events it ignores.
type TrajectorySignallerClient interface {
	RegisterTrajectorySignallerCallback(event TrajectoryEvent) SignallerCallback
}

// WriteIntervals are the output intervals in steps; zero or negative
// disables a kind.
type WriteIntervals struct {
	Position           int64 `yaml:"nstxout" json:"nstxout"`
	Velocity           int64 `yaml:"nstvout" json:"nstvout"`
	Force              int64 `yaml:"nstfout" json:"nstfout"`
	CompressedPosition int64 `yaml:"nstxout_compressed" json:"nstxout_compressed"`
	Energy             int64 `yaml:"nstenergy" json:"nstenergy"`
}

func due(step dynamo.Step, interval int64) bool {
	return interval > 0 && int64(step)%interval == 0
}

// Kinds returns the trajectory fields due at step.
func (w WriteIntervals) Kinds(step dynamo.Step) dynamo.WriteKind {
	var k dynamo.WriteKind
	if due(step, w.Position) {
		k |= dynamo.WritePosition
	}
	if due(step, w.Velocity) {
		k |= dynamo.WriteVelocity
	}
	if due(step, w.Force) {
		k |= dynamo.WriteForce
	}
	if due(step, w.CompressedPosition) {
		k |= dynamo.WriteCompressedPosition
	}
	return k
}

func (w WriteIntervals) EnergyDue(step dynamo.Step) bool {
	return due(step, w.Energy)
}

// TrajectorySignaller fires StateWritingStep and EnergyWritingStep events.
// Each qualifying step is delivered once; signalling a step again, or an
// earlier step, is a no-op.
type TrajectorySignaller struct {
	intervals WriteIntervals
	clients   []TrajectorySignallerClient
	callbacks map[TrajectoryEvent][]SignallerCallback

	signalled  bool
	lastSignal dynamo.Step
}

func NewTrajectorySignaller(intervals WriteIntervals) *TrajectorySignaller {
	return &TrajectorySignaller{
		intervals: intervals,
		callbacks: make(map[TrajectoryEvent][]SignallerCallback),
	}
}

// AddClient must be called before SignallerSetup.
func (s *TrajectorySignaller) AddClient(c ...TrajectorySignallerClient) {
	s.clients = append(s.clients, c...)
}

func (s *TrajectorySignaller) Intervals() WriteIntervals { return s.intervals }

// SignallerSetup collects the callbacks of all clients, in client order.
// Callbacks of a previous setup are dropped.
func (s *TrajectorySignaller) SignallerSetup() error {
	s.callbacks = make(map[TrajectoryEvent][]SignallerCallback)
	s.signalled = false
	for _, c := range s.clients {
		for _, ev := range []TrajectoryEvent{StateWritingStep, EnergyWritingStep} {
			if cb := c.RegisterTrajectorySignallerCallback(ev); cb != nil {
				s.callbacks[ev] = append(s.callbacks[ev], cb)
			}
		}
	}
	return nil
}

func (s *TrajectorySignaller) Signal(step dynamo.Step, time dynamo.Time) {
	if s.signalled && step <= s.lastSignal {
		return
	}
	s.signalled = true
	s.lastSignal = step

	if s.intervals.Kinds(step) != 0 {
		for _, cb := range s.callbacks[StateWritingStep] {
			cb(step, time)
		}
	}
	if s.intervals.EnergyDue(step) {
		for _, cb := range s.callbacks[EnergyWritingStep] {
			cb(step, time)
		}
	}
}
