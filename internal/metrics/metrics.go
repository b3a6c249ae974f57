// Package metrics computes observables over trajectory frames and energies.
package metrics

import "github.com/san-kum/modsim/internal/modular"

// Metric accumulates an observable over a sequence of frames.
type Metric interface {
	Name() string
	Observe(f *modular.Frame)
	Value() float64
	Reset()
}

// Boltzmann is the Boltzmann constant in kJ/(mol K).
const Boltzmann = 0.0083144626
