// Package builder assembles a modular simulation from a run config. It owns
// the element order of each integrator and is the only place the legacy
// access capability of the MicroState is handed out.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/san-kum/modsim/internal/config"
	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/elements"
	"github.com/san-kum/modsim/internal/legacy"
	"github.com/san-kum/modsim/internal/metrics"
	"github.com/san-kum/modsim/internal/microstate"
	"github.com/san-kum/modsim/internal/modular"
)

// Simulation is an assembled run.
type Simulation struct {
	Simulator   *modular.Simulator
	MicroState  *microstate.MicroState
	Trajectory  *modular.TrajectoryElement
	Force       *elements.HarmonicForce
	Energy      *elements.Energy
	DomDec      *elements.DomDecHelper
	PME         *elements.PmeLoadBalanceHelper
	Constraints *elements.InitialConstraints
	Loop        modular.Config

	mass float64
}

// Build validates cfg and wires the elements for its integrator. Output goes
// to sink, which the caller opens and closes.
//
// Element order per step:
//
//	md:    domdec, pme, constraints, force, microstate, energy, leapfrog, trajectory
//	md-vv: domdec, pme, constraints, force, vv-first-half, microstate, energy, vv-second-half, trajectory
func Build(cfg *config.Config, sink modular.Sink, logger *slog.Logger) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	vv := cfg.Integrator == config.IntegratorMDVV

	ms, access, err := microstate.New(microstate.Config{
		LocalAtoms:        cfg.NAtoms,
		TotalAtoms:        cfg.NAtoms,
		Intervals:         cfg.Intervals(),
		UseGPU:            cfg.UseGPU,
		VVResetVelocities: vv,
		GlobalState:       InitialState(cfg),
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("microstate: %w", err)
	}

	s := &Simulation{
		MicroState:  ms,
		Force:       elements.NewHarmonicForce(ms, cfg.SpringConstant, nil),
		DomDec:      elements.NewDomDecHelper(access, cfg.Nstpartition, logger),
		PME:         elements.NewPmeLoadBalanceHelper(access, cfg.GridSpacing, cfg.Nstpartition, logger),
		Constraints: elements.NewInitialConstraints(access, logger),
		Loop:        cfg.Loop(),
		mass:        cfg.Mass,
	}
	s.Energy = elements.NewEnergy(ms, s.Force, cfg.Mass, logger)
	s.Trajectory = modular.NewTrajectoryElement(sink, ms, s.Energy)

	signaller := modular.NewTrajectorySignaller(cfg.Intervals())
	signaller.AddClient(ms, s.Energy, s.Trajectory)

	sim := modular.New(logger)
	sim.AddSignaller(signaller)
	sim.AddElement(s.DomDec, s.PME, s.Constraints, s.Force)
	if vv {
		sim.AddElement(
			elements.NewVVFirstHalf(ms, cfg.Mass, cfg.Dt),
			ms,
			s.Energy,
			elements.NewVVSecondHalf(ms, cfg.Mass, cfg.Dt),
		)
	} else {
		sim.AddElement(ms, s.Energy, elements.NewLeapfrog(ms, cfg.Mass, cfg.Dt))
	}
	sim.AddElement(s.Trajectory)
	s.Simulator = sim

	logger.Debug("simulation assembled", "integrator", cfg.Integrator, "natoms", cfg.NAtoms, "elements", len(sim.Elements()))
	return s, nil
}

func (s *Simulation) Run(ctx context.Context) (*modular.Result, error) {
	return s.Simulator.Run(ctx, s.Loop)
}

// Close releases the compute backend.
func (s *Simulation) Close() {
	s.MicroState.Backend().Cleanup()
}

// Temperature is the instantaneous temperature of the local atoms.
func (s *Simulation) Temperature() float64 {
	ke := metrics.KineticEnergy(s.MicroState.ReadVelocity().Clone(), s.mass)
	return metrics.Temperature(ke, s.MicroState.LocalAtomCount())
}

// Summary returns run metrics for the stored metadata.
func (s *Simulation) Summary() map[string]float64 {
	out := map[string]float64{
		"energy_drift":     s.Energy.Drift(),
		"partitions":       float64(s.DomDec.Partitions()),
		"pme_grid_changes": float64(s.PME.Changes()),
		"com_velocity":     s.Constraints.Removed(),
	}
	if last := s.Energy.Last(); last != nil {
		for term, v := range last.Terms {
			out["final_"+term] = v
		}
	}
	return out
}

// InitialState places cfg.NAtoms atoms on a simple cubic lattice filling the
// box and draws Maxwell-Boltzmann velocities at cfg.Temperature.
func InitialState(cfg *config.Config) *legacy.State {
	n := cfg.NAtoms
	ls := legacy.New(n, legacy.DefaultFlags)
	ls.Box = dynamo.CubicBox(cfg.Box)
	ls.PreviousBox = ls.Box

	side := int(math.Round(math.Cbrt(float64(n))))
	for side*side*side < n {
		side++
	}
	spacing := cfg.Box / float64(side)
	for i := 0; i < n; i++ {
		ix, iy, iz := i%side, (i/side)%side, i/(side*side)
		ls.X[i] = dynamo.RVec{
			(float64(ix) + 0.5) * spacing,
			(float64(iy) + 0.5) * spacing,
			(float64(iz) + 0.5) * spacing,
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	sigma := math.Sqrt(metrics.Boltzmann * cfg.Temperature / cfg.Mass)
	for i := range ls.V {
		ls.V[i] = dynamo.RVec{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}.Scale(sigma)
	}
	return ls
}
