package elements

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/metrics"
	"github.com/san-kum/modsim/internal/modular"
)

// Energy term names.
const (
	TermKinetic     = "kinetic"
	TermPotential   = "potential"
	TermTotal       = "total"
	TermTemperature = "temperature"
)

// PotentialProvider reports the potential energy of the current step.
type PotentialProvider interface {
	PotentialEnergy() float64
}

// Energy evaluates the energy terms on energy-writing steps and supplies them
// to the trajectory element. It must run after the forces are computed and
// before the update element moves the state off the full step.
type Energy struct {
	modular.NopElement
	ms        StateAccess
	potential PotentialProvider
	mass      float64
	logger    *slog.Logger

	pending bool
	due     dynamo.Step
	last    *modular.EnergyFrame
	drift   *metrics.EnergyDrift
}

func NewEnergy(ms StateAccess, potential PotentialProvider, mass float64, logger *slog.Logger) *Energy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Energy{
		ms:        ms,
		potential: potential,
		mass:      mass,
		logger:    logger,
		drift:     metrics.NewEnergyDrift(TermTotal),
	}
}

func (e *Energy) Name() string { return "energy" }

// Drift returns the largest relative deviation of the total energy seen so far.
func (e *Energy) Drift() float64 { return e.drift.Value() }

// Last returns the most recently evaluated energies, or nil.
func (e *Energy) Last() *modular.EnergyFrame { return e.last }

func (e *Energy) RegisterTrajectorySignallerCallback(event modular.TrajectoryEvent) modular.SignallerCallback {
	if event != modular.EnergyWritingStep {
		return nil
	}
	return func(step dynamo.Step, _ dynamo.Time) {
		e.pending = true
		e.due = step
	}
}

func (e *Energy) ScheduleTask(step dynamo.Step, time dynamo.Time, register modular.RegisterRunFunc) {
	if !e.pending || e.due != step {
		return
	}
	register(func() error {
		e.pending = false
		ke := metrics.KineticEnergy(e.ms.ReadVelocity().Clone(), e.mass)
		var pe float64
		if e.potential != nil {
			pe = e.potential.PotentialEnergy()
		}
		e.last = &modular.EnergyFrame{
			Step: step,
			Time: time,
			Terms: map[string]float64{
				TermKinetic:     ke,
				TermPotential:   pe,
				TermTotal:       ke + pe,
				TermTemperature: metrics.Temperature(ke, e.ms.LocalAtomCount()),
			},
		}
		e.drift.Observe(e.last)
		return nil
	})
}

func (e *Energy) RegisterTrajectoryWriterCallback(event modular.TrajectoryEvent) modular.WriterCallback {
	if event != modular.EnergyWritingStep {
		return nil
	}
	return func(sink modular.Sink, step dynamo.Step, _ dynamo.Time) error {
		if e.last == nil || e.last.Step != step {
			return fmt.Errorf("energy: no energies evaluated for step %d", step)
		}
		return sink.WriteEnergy(e.last)
	}
}

func (e *Energy) TrajectoryWriterSetup(modular.Sink) error { return nil }

func (e *Energy) TrajectoryWriterTeardown(modular.Sink) error {
	if e.drift.Value() > 0 {
		e.logger.Debug("energy drift", "max_relative", e.drift.Value())
	}
	return nil
}
