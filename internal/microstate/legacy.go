package microstate

import (
	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/legacy"
)

// LegacyAccess gives components not yet adapted to the modular data model
// access to the state in legacy format. Exactly three collaborator kinds
// receive it from the builder: domain decomposition, PME load balancing and
// the initial constraints element.
type LegacyAccess interface {
	// LocalState returns a deep copy of the local state.
	LocalState() *legacy.State
	// SetLocalState overwrites the state with one of the same local size.
	SetLocalState(ls *legacy.State) error
	// BeginPartition marks the local atom set stale until Repartition.
	BeginPartition()
	// Repartition installs a state with a possibly different local atom count.
	Repartition(ls *legacy.State) error
	// GlobalState is the full system state, nil off the main rank.
	GlobalState() *legacy.State
	// PartitionCount is the partition generation of the local state.
	PartitionCount() int
	// Force returns a copy of the local forces.
	Force() []dynamo.RVec
}

type legacyAccess struct {
	ms *MicroState
}

func (a *legacyAccess) LocalState() *legacy.State {
	return a.ms.st.ToLegacy()
}

func (a *legacyAccess) SetLocalState(ls *legacy.State) error {
	return a.ms.st.FromLegacy(ls)
}

// A backup spanning a partition would be written with an atom set that no
// longer matches the state, so it is refused outright.
func (a *legacyAccess) checkNoBackup() {
	if step, held := a.ms.HasBackup(); held {
		dynamo.Violate(dynamo.ViolationInvalidPartition,
			"partitioning while the backup of step %d is held", step)
	}
}

func (a *legacyAccess) BeginPartition() {
	a.checkNoBackup()
	a.ms.st.BeginPartition()
}

func (a *legacyAccess) Repartition(ls *legacy.State) error {
	a.checkNoBackup()
	if err := a.ms.st.CompletePartition(ls); err != nil {
		return err
	}
	if a.ms.velocityBackup != nil && len(a.ms.velocityBackup) != ls.NAtoms {
		a.ms.logger.Warn("dropping velocity backup after partition changed the local atom count")
		a.ms.velocityBackup = nil
	}
	return nil
}

func (a *legacyAccess) GlobalState() *legacy.State {
	return a.ms.globalState
}

func (a *legacyAccess) PartitionCount() int {
	return a.ms.st.DDPartitionCount()
}

func (a *legacyAccess) Force() []dynamo.RVec {
	return a.ms.st.ReadForce().Clone()
}
