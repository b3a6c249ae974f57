package modular

import (
	"fmt"

	"github.com/san-kum/modsim/internal/dynamo"
)

// RunFunc is the work an element registered for the current step.
type RunFunc func() error

// RegisterRunFunc registers a run function for the current step. Run
// functions execute in registration order after scheduling is complete.
type RegisterRunFunc func(RunFunc)

// Element is a participant of the simulator loop.
//
// ScheduleTask must not mutate simulation state; all mutation happens in the
// run function it registers, so the builder controls the order of work within
// a step.
type Element interface {
	ElementSetup() error
	ScheduleTask(step dynamo.Step, time dynamo.Time, register RegisterRunFunc)
	ElementTeardown() error
}

// Named elements are reported by name in step errors.
type Named interface {
	Name() string
}

// NopElement provides no-op setup and teardown for embedding.
type NopElement struct{}

func (NopElement) ElementSetup() error    { return nil }
func (NopElement) ElementTeardown() error { return nil }

func elementName(e any) string {
	if n, ok := e.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", e)
}

// Observer is notified after all run functions of a step have executed.
type Observer interface {
	OnStep(step dynamo.Step, time dynamo.Time)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(step dynamo.Step, time dynamo.Time)

func (f ObserverFunc) OnStep(step dynamo.Step, time dynamo.Time) { f(step, time) }
