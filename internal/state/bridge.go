package state

import (
	"fmt"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/legacy"
)

// ToLegacy returns a deep copy of the local state in legacy format, tagged
// with the flags of the fields it carries.
func (s *State) ToLegacy() *legacy.State {
	ls := legacy.New(s.localAtoms, s.flags)
	s.fillLegacy(ls)
	return ls
}

// ToLegacyInto writes the legacy copy into dst, which must have been sized
// for the local atom count. Used with a legacy.Pool.
func (s *State) ToLegacyInto(dst *legacy.State) error {
	if dst.NAtoms != s.localAtoms {
		return &dynamo.SizeMismatchError{Want: s.localAtoms, Got: dst.NAtoms}
	}
	if !dst.Flags.Has(s.flags) {
		return fmt.Errorf("state: legacy target flags %s do not cover %s", dst.Flags, s.flags)
	}
	if err := dst.Validate(); err != nil {
		return err
	}
	dst.Flags = s.flags
	s.fillLegacy(dst)
	return nil
}

func (s *State) fillLegacy(ls *legacy.State) {
	s.checkPartition("legacy state")
	ls.DDPartitionCount = s.ddpCount
	if s.flags.Has(legacy.FlagBox) {
		ls.Box = s.box
	}
	if s.flags.Has(legacy.FlagPreviousBox) {
		ls.PreviousBox = s.previousBox
	}
	if s.flags.Has(legacy.FlagX) {
		s.read(FieldPosition).CopyTo(ls.X)
	}
	if s.flags.Has(legacy.FlagV) {
		s.read(FieldVelocity).CopyTo(ls.V)
	}
}

// FromLegacy overwrites the fields covered by ls.Flags. Nothing is written
// unless the whole state can be applied.
func (s *State) FromLegacy(ls *legacy.State) error {
	s.checkPartition("legacy restore")
	if ls.NAtoms != s.localAtoms {
		return &dynamo.SizeMismatchError{Want: s.localAtoms, Got: ls.NAtoms}
	}
	if err := ls.Validate(); err != nil {
		return fmt.Errorf("state: legacy restore: %w", err)
	}
	s.checkNoLiveViews("legacy restore", FieldPosition, FieldVelocity)

	s.applyLegacy(ls)
	s.ddpCount = ls.DDPartitionCount
	return nil
}

func (s *State) applyLegacy(ls *legacy.State) {
	if ls.Flags.Has(legacy.FlagBox) {
		s.box = ls.Box
	}
	if ls.Flags.Has(legacy.FlagPreviousBox) {
		s.previousBox = ls.PreviousBox
	}
	if ls.Flags.Has(legacy.FlagX) {
		copy(s.vecs[FieldPosition].data[:s.localAtoms], ls.X)
	}
	if ls.Flags.Has(legacy.FlagV) {
		copy(s.vecs[FieldVelocity].data[:s.localAtoms], ls.V)
	}
}

func (s *State) checkNoLiveViews(what string, fields ...Field) {
	for _, f := range fields {
		if s.live[f] != nil {
			dynamo.Violate(dynamo.ViolationUnscopedAccess, "%s while a %s write view is live", what, f)
		}
	}
}
