// Package legacy holds the flat aggregate state consumed by components that
// have not been adapted to the modular simulator: domain decomposition, PME
// load balancing and the initial constraining.
package legacy

import (
	"fmt"

	"github.com/san-kum/modsim/internal/dynamo"
)

// Flags describe which optional fields of a State are populated.
type Flags uint32

const (
	FlagBox Flags = 1 << iota
	FlagPreviousBox
	FlagX
	FlagV
)

// DefaultFlags covers every field the state buffer owns.
const DefaultFlags = FlagBox | FlagPreviousBox | FlagX | FlagV

func (f Flags) Has(o Flags) bool { return f&o == o }

func (f Flags) String() string {
	s := ""
	for _, e := range []struct {
		flag Flags
		name string
	}{
		{FlagBox, "box"},
		{FlagPreviousBox, "box_prev"},
		{FlagX, "x"},
		{FlagV, "v"},
	} {
		if f.Has(e.flag) {
			if s != "" {
				s += "|"
			}
			s += e.name
		}
	}
	if s == "" {
		return "none"
	}
	return s
}

// State is the legacy aggregate. Atoms are in local order; X and V hold
// exactly NAtoms entries when their flag is set.
type State struct {
	NAtoms           int
	Flags            Flags
	DDPartitionCount int
	Box              dynamo.Matrix
	PreviousBox      dynamo.Matrix
	X                []dynamo.RVec
	V                []dynamo.RVec
}

// New allocates a state for natoms with the vectors selected by flags.
func New(natoms int, flags Flags) *State {
	s := &State{NAtoms: natoms, Flags: flags}
	if flags.Has(FlagX) {
		s.X = make([]dynamo.RVec, natoms)
	}
	if flags.Has(FlagV) {
		s.V = make([]dynamo.RVec, natoms)
	}
	return s
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	if s.X != nil {
		c.X = make([]dynamo.RVec, len(s.X))
		copy(c.X, s.X)
	}
	if s.V != nil {
		c.V = make([]dynamo.RVec, len(s.V))
		copy(c.V, s.V)
	}
	return &c
}

// Validate checks that the flagged vectors match NAtoms.
func (s *State) Validate() error {
	if s.NAtoms < 0 {
		return fmt.Errorf("legacy: negative atom count %d", s.NAtoms)
	}
	if s.Flags.Has(FlagX) && len(s.X) != s.NAtoms {
		return fmt.Errorf("legacy: x has %d entries for %d atoms", len(s.X), s.NAtoms)
	}
	if s.Flags.Has(FlagV) && len(s.V) != s.NAtoms {
		return fmt.Errorf("legacy: v has %d entries for %d atoms", len(s.V), s.NAtoms)
	}
	return nil
}
