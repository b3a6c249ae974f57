package metrics

import (
	"math"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/modular"
)

// KineticEnergy returns sum(m v^2)/2 for atoms of equal mass.
func KineticEnergy(v []dynamo.RVec, mass float64) float64 {
	var sum float64
	for _, vi := range v {
		sum += vi.Norm2()
	}
	return 0.5 * mass * sum
}

// Temperature converts a kinetic energy of natoms into a temperature with
// three degrees of freedom per atom.
func Temperature(ke float64, natoms int) float64 {
	if natoms == 0 {
		return 0
	}
	return 2 * ke / (3 * float64(natoms) * Boltzmann)
}

// EnergyDrift tracks the largest relative deviation of an energy term from
// its first observed value.
type EnergyDrift struct {
	term          string
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(term string) *EnergyDrift {
	return &EnergyDrift{term: term}
}

func (e *EnergyDrift) Name() string { return e.term + "_drift" }

func (e *EnergyDrift) Observe(f *modular.EnergyFrame) {
	energy, ok := f.Terms[e.term]
	if !ok {
		return
	}

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
