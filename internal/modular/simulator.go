package modular

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/modsim/internal/dynamo"
)

type Config struct {
	InitialStep dynamo.Step
	InitialTime dynamo.Time

	// NSteps is the number of steps after the initial one; the loop runs
	// InitialStep..InitialStep+NSteps inclusive.
	NSteps int64
	Dt     float64
}

func DefaultConfig() Config {
	return Config{
		NSteps: 1000,
		Dt:     0.002,
	}
}

func (c Config) LastStep() dynamo.Step {
	return c.InitialStep + dynamo.Step(c.NSteps)
}

func (c Config) TimeAt(step dynamo.Step) dynamo.Time {
	return c.InitialTime + dynamo.Time(float64(step-c.InitialStep)*c.Dt)
}

type Result struct {
	StepsTaken int64
	Frames     int
	LastStep   dynamo.Step
	Elapsed    time.Duration
}

// frameCounter is implemented by elements that write trajectory frames.
type frameCounter interface {
	Frames() int
}

type Simulator struct {
	signallers []Signaller
	elements   []Element
	observers  []Observer
	logger     *slog.Logger
}

func New(logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		signallers: make([]Signaller, 0),
		elements:   make([]Element, 0),
		observers:  make([]Observer, 0),
		logger:     logger,
	}
}

func (s *Simulator) AddSignaller(sig ...Signaller) { s.signallers = append(s.signallers, sig...) }
func (s *Simulator) AddElement(e ...Element)       { s.elements = append(s.elements, e...) }
func (s *Simulator) AddObserver(o Observer)        { s.observers = append(s.observers, o) }

func (s *Simulator) Elements() []Element { return s.elements }

type scheduled struct {
	element string
	run     RunFunc
}

// Run executes the loop. The context is checked between steps only; a
// cancelled run still tears its elements down. Contract violations are logged
// and propagate as panics.
func (s *Simulator) Run(ctx context.Context, cfg Config) (result *Result, err error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	for _, sig := range s.signallers {
		if err := sig.SignallerSetup(); err != nil {
			return nil, fmt.Errorf("signaller setup %s: %w", elementName(sig), err)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			if v, ok := r.(*dynamo.ContractViolation); ok {
				s.logger.Error("contract violation", "code", v.Code, "msg", v.Message)
			}
			panic(r)
		}
	}()

	setUp := 0
	defer func() {
		if tdErr := s.teardown(setUp); tdErr != nil {
			err = errors.Join(err, tdErr)
		}
	}()
	for _, e := range s.elements {
		s.logger.Debug("element setup", "element", elementName(e))
		if err := e.ElementSetup(); err != nil {
			return nil, fmt.Errorf("element setup %s: %w", elementName(e), err)
		}
		setUp++
	}

	result = &Result{}
	start := time.Now()
	queue := make([]scheduled, 0, len(s.elements))

	s.logger.Info("simulation starting", "first_step", cfg.InitialStep, "last_step", cfg.LastStep(), "elements", len(s.elements))

	for step := cfg.InitialStep; step <= cfg.LastStep(); step++ {
		select {
		case <-ctx.Done():
			s.finish(result, start)
			s.logger.Info("simulation stopping: context cancelled", "step", step)
			return result, ctx.Err()
		default:
		}

		t := cfg.TimeAt(step)

		for _, sig := range s.signallers {
			sig.Signal(step, t)
		}

		queue = queue[:0]
		for _, e := range s.elements {
			name := elementName(e)
			e.ScheduleTask(step, t, func(fn RunFunc) {
				queue = append(queue, scheduled{element: name, run: fn})
			})
		}

		for _, task := range queue {
			if err := task.run(); err != nil {
				s.finish(result, start)
				return result, &dynamo.StepError{Step: step, Time: t, Element: task.element, Wrapped: err}
			}
		}

		for _, obs := range s.observers {
			obs.OnStep(step, t)
		}

		result.StepsTaken++
		result.LastStep = step
	}

	s.finish(result, start)
	s.logger.Info("simulation finished", "steps", result.StepsTaken, "elapsed", result.Elapsed)
	return result, nil
}

func (s *Simulator) finish(result *Result, start time.Time) {
	for _, e := range s.elements {
		if fc, ok := e.(frameCounter); ok {
			result.Frames += fc.Frames()
		}
	}
	result.Elapsed = time.Since(start)
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", dynamo.ErrInvalidConfig, cfg.Dt)
	}
	if cfg.NSteps < 0 {
		return fmt.Errorf("%w: nsteps must not be negative, got %d", dynamo.ErrInvalidConfig, cfg.NSteps)
	}
	if len(s.elements) == 0 {
		return fmt.Errorf("%w: no elements", dynamo.ErrInvalidConfig)
	}
	return nil
}

// teardown runs ElementTeardown on the first n elements in reverse order.
func (s *Simulator) teardown(n int) error {
	var errs []error
	for i := n - 1; i >= 0; i-- {
		e := s.elements[i]
		s.logger.Debug("element teardown", "element", elementName(e))
		if err := e.ElementTeardown(); err != nil {
			errs = append(errs, fmt.Errorf("element teardown %s: %w", elementName(e), err))
		}
	}
	return errors.Join(errs...)
}
