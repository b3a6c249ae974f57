// Package elements provides the collaborators the modular simulator drives:
// a harmonic force provider, leapfrog and velocity Verlet update elements, an
// energy element, and the legacy-format helpers for domain decomposition, PME
// load balancing and initial constraining.
//
// Elements reach the state only through scoped views obtained from the
// MicroState. The legacy helpers receive a microstate.LegacyAccess from the
// builder instead.
package elements

import (
	"github.com/san-kum/modsim/internal/compute"
	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/state"
)

// StateAccess is the view of the MicroState the update elements need.
type StateAccess interface {
	ReadPosition() state.ReadView
	WritePosition() *state.WriteView
	ReadVelocity() state.ReadView
	WriteVelocity() *state.WriteView
	ReadForce() state.ReadView
	WriteForce() *state.WriteView
	Box() *dynamo.Matrix
	LocalAtomCount() int
	Backend() compute.Backend
}

// parallelChunk is the minimum number of atoms per goroutine.
const parallelChunk = 1024
