// Package state owns the central mutable simulation state: positions,
// previous positions, velocities, forces and the current and previous box.
//
// Elements never hold the buffers directly. They request a ReadView or a
// scoped WriteView for the field they need and release writes before the end
// of their run function, which keeps data dependencies between elements
// explicit.
package state

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/modsim/internal/compute"
	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/legacy"
)

// copyChunk is the minimum range per goroutine when copying positions.
const copyChunk = 2048

// Config sizes a State and selects its buffer backend.
type Config struct {
	LocalAtoms int
	TotalAtoms int

	// Backend allocates the position and force buffers; nil selects the CPU.
	Backend compute.Backend

	// Flags are the legacy fields this state populates; zero selects
	// legacy.DefaultFlags.
	Flags  legacy.Flags
	Logger *slog.Logger
}

// State owns the per-atom buffers and the box of the local atoms.
type State struct {
	backend compute.Backend
	logger  *slog.Logger

	localAtoms int
	totalAtoms int

	vecs        [numFields]paddedVector
	box         dynamo.Matrix
	previousBox dynamo.Matrix

	flags    legacy.Flags
	ddpCount int

	live             [numFields]*WriteView
	partitionPending bool

	advanced    bool
	lastAdvance dynamo.Step
}

// New allocates the buffers of cfg.LocalAtoms atoms, zeroed.
func New(cfg Config) (*State, error) {
	if cfg.LocalAtoms < 0 || cfg.TotalAtoms < 0 {
		return nil, fmt.Errorf("%w: negative atom count (local=%d, total=%d)", dynamo.ErrInvalidConfig, cfg.LocalAtoms, cfg.TotalAtoms)
	}
	if cfg.LocalAtoms > cfg.TotalAtoms {
		return nil, fmt.Errorf("%w: local atoms %d exceed total %d", dynamo.ErrInvalidConfig, cfg.LocalAtoms, cfg.TotalAtoms)
	}
	if cfg.Backend == nil {
		cfg.Backend = compute.NewCPUBackend()
	}
	if cfg.Flags == 0 {
		cfg.Flags = legacy.DefaultFlags
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &State{
		backend:    cfg.Backend,
		logger:     cfg.Logger,
		localAtoms: cfg.LocalAtoms,
		totalAtoms: cfg.TotalAtoms,
		flags:      cfg.Flags,
	}
	for f := Field(0); f < numFields; f++ {
		s.vecs[f] = newPaddedVector(s.allocator(f), cfg.LocalAtoms)
	}
	return s, nil
}

// allocator returns the allocation function for a field. Positions and forces
// cross to the device, so they come from the backend.
func (s *State) allocator(f Field) func(int) []dynamo.RVec {
	if f == FieldPosition || f == FieldForce {
		return s.backend.Alloc
	}
	return func(n int) []dynamo.RVec { return make([]dynamo.RVec, n) }
}

func (s *State) checkPartition(what string) {
	if s.partitionPending {
		dynamo.Violate(dynamo.ViolationInvalidPartition,
			"%s requested while a partitioning event is unacknowledged", what)
	}
}

func (s *State) read(f Field) ReadView {
	s.checkPartition(f.String() + " read")
	if v := s.live[f]; v != nil && len(v.fences) > 0 {
		dynamo.Violate(dynamo.ViolationUnscopedAccess,
			"%s read requested before joining %d device operations", f, len(v.fences))
	}
	return ReadView{data: s.vecs[f].data, n: s.vecs[f].n}
}

func (s *State) write(f Field) *WriteView {
	s.checkPartition(f.String() + " write")
	if s.live[f] != nil {
		dynamo.Violate(dynamo.ViolationUnscopedAccess, "second %s write view requested while one is live", f)
	}
	v := &WriteView{s: s, field: f, data: s.vecs[f].data, n: s.vecs[f].n}
	s.live[f] = v
	return v
}

func (s *State) ReadPosition() ReadView            { return s.read(FieldPosition) }
func (s *State) WritePosition() *WriteView         { return s.write(FieldPosition) }
func (s *State) ReadPreviousPosition() ReadView    { return s.read(FieldPreviousPosition) }
func (s *State) WritePreviousPosition() *WriteView { return s.write(FieldPreviousPosition) }
func (s *State) ReadVelocity() ReadView            { return s.read(FieldVelocity) }
func (s *State) WriteVelocity() *WriteView         { return s.write(FieldVelocity) }
func (s *State) ReadForce() ReadView               { return s.read(FieldForce) }
func (s *State) WriteForce() *WriteView            { return s.write(FieldForce) }

// Box returns the current box. The matrix has a fixed size, so a raw
// reference is handed out.
func (s *State) Box() *dynamo.Matrix {
	s.checkPartition("box")
	return &s.box
}

func (s *State) PreviousBox() *dynamo.Matrix {
	s.checkPartition("previous box")
	return &s.previousBox
}

func (s *State) LocalAtomCount() int      { return s.localAtoms }
func (s *State) TotalAtomCount() int      { return s.totalAtoms }
func (s *State) DDPartitionCount() int    { return s.ddpCount }
func (s *State) Flags() legacy.Flags      { return s.flags }
func (s *State) Backend() compute.Backend { return s.backend }
func (s *State) PartitionPending() bool   { return s.partitionPending }

// Advance makes the current positions and box the previous ones. It runs once
// per completed step, after every element has committed its results.
func (s *State) Advance(step dynamo.Step) {
	s.checkPartition("advance")
	if s.advanced && step <= s.lastAdvance {
		dynamo.Violate(dynamo.ViolationDoubleAdvance,
			"advance for step %d after step %d was already advanced", step, s.lastAdvance)
	}
	for _, f := range []Field{FieldPosition, FieldPreviousPosition} {
		if s.live[f] != nil {
			dynamo.Violate(dynamo.ViolationUnscopedAccess, "advance while a %s write view is live", f)
		}
	}

	x := s.vecs[FieldPosition].data
	prev := s.vecs[FieldPreviousPosition].data
	dynamo.ParallelFor(s.localAtoms, copyChunk, func(start, end int) {
		copy(prev[start:end], x[start:end])
	})
	s.previousBox = s.box

	s.advanced = true
	s.lastAdvance = step
}

// LastAdvance returns the last advanced step, if any.
func (s *State) LastAdvance() (dynamo.Step, bool) {
	return s.lastAdvance, s.advanced
}
