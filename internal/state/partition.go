package state

import (
	"fmt"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/legacy"
)

// BeginPartition marks the local atom set stale. Until CompletePartition
// succeeds, every access to the state is a contract violation.
func (s *State) BeginPartition() {
	s.checkNoLiveViews("partition", FieldPosition, FieldPreviousPosition, FieldVelocity, FieldForce)
	s.partitionPending = true
	s.logger.Debug("partition started", "local_atoms", s.localAtoms, "generation", s.ddpCount)
}

// CompletePartition installs the redistributed local state. All buffers are
// resized to ls.NAtoms, the previous positions restart from the new local
// positions and the partition generation is incremented.
func (s *State) CompletePartition(ls *legacy.State) error {
	s.checkNoLiveViews("partition", FieldPosition, FieldPreviousPosition, FieldVelocity, FieldForce)
	if err := ls.Validate(); err != nil {
		return fmt.Errorf("state: partition: %w", err)
	}
	if !ls.Flags.Has(legacy.FlagX | legacy.FlagV) {
		return fmt.Errorf("%w: partition state carries %s, needs x and v", dynamo.ErrInvalidConfig, ls.Flags)
	}
	if ls.NAtoms > s.totalAtoms {
		return fmt.Errorf("%w: partition gives %d local atoms of %d total", dynamo.ErrInvalidConfig, ls.NAtoms, s.totalAtoms)
	}

	n := ls.NAtoms
	for f := Field(0); f < numFields; f++ {
		s.vecs[f] = s.vecs[f].resized(s.allocator(f), n)
	}
	s.localAtoms = n
	s.applyLegacy(ls)

	x := s.vecs[FieldPosition].data
	prev := s.vecs[FieldPreviousPosition].data
	copy(prev[:n], x[:n])

	s.ddpCount++
	s.partitionPending = false
	s.logger.Info("partition completed", "local_atoms", n, "total_atoms", s.totalAtoms, "generation", s.ddpCount)
	return nil
}
