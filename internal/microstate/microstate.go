// Package microstate implements the element owning the simulation state.
//
// MicroState holds positions, velocities, forces and the box, along with the
// positions and box of the previous step. Elements request their data from it
// explicitly, which keeps data dependencies between elements visible.
//
// MicroState also takes part in the loop. Its run function must be placed by
// the builder at the point of the step where all variables are at a full time
// step. There it takes a backup of the state if the trajectory signaller
// announced a write for the step, then makes the current positions the
// previous ones. When the trajectory element writes later in the step, the
// backup is what gets written.
//
// Components not yet adapted to the modular data model (domain decomposition,
// PME load balancing and the initial constraining) work on the legacy
// aggregate state through the LegacyAccess capability returned by New.
package microstate

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/modsim/internal/compute"
	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/legacy"
	"github.com/san-kum/modsim/internal/modular"
	"github.com/san-kum/modsim/internal/state"
)

// Phase is the position of MicroState in its backup cycle.
type Phase int

const (
	Idle Phase = iota
	BackupPending
	BackupHeld
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case BackupPending:
		return "backup-pending"
	case BackupHeld:
		return "backup-held"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type Config struct {
	LocalAtoms int
	TotalAtoms int
	Intervals  modular.WriteIntervals
	UseGPU     bool

	// VVResetVelocities restores the starting velocities after the first
	// velocity half step of a velocity Verlet integrator.
	VVResetVelocities bool

	// GlobalState is the full system state; only set on the main rank. When
	// it covers exactly the local atoms it initializes the state. On a single
	// rank it must cover all atoms.
	GlobalState *legacy.State

	Logger *slog.Logger
}

type MicroState struct {
	st        *state.State
	intervals modular.WriteIntervals
	logger    *slog.Logger

	writePending bool
	writeOutStep dynamo.Step
	backup       *legacy.State
	backupStep   dynamo.Step
	pool         *legacy.Pool

	vvResetVelocities bool
	velocityBackup    []dynamo.RVec

	globalState *legacy.State
}

// New builds the MicroState and the legacy access capability for it. The
// capability is meant for the builder to hand to the domain decomposition,
// PME load balancing and initial constraints collaborators only.
func New(cfg Config) (*MicroState, LegacyAccess, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	backend := compute.Select(cfg.UseGPU, cfg.Logger)
	st, err := state.New(state.Config{
		LocalAtoms: cfg.LocalAtoms,
		TotalAtoms: cfg.TotalAtoms,
		Backend:    backend,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, nil, err
	}

	ms := &MicroState{
		st:                st,
		intervals:         cfg.Intervals,
		logger:            cfg.Logger,
		pool:              legacy.NewPool(cfg.LocalAtoms, st.Flags()),
		vvResetVelocities: cfg.VVResetVelocities,
		globalState:       cfg.GlobalState,
	}

	gs := cfg.GlobalState
	if gs != nil && cfg.LocalAtoms == cfg.TotalAtoms && gs.NAtoms != cfg.LocalAtoms {
		return nil, nil, fmt.Errorf("microstate: initial state: %w",
			&dynamo.SizeMismatchError{Want: cfg.LocalAtoms, Got: gs.NAtoms})
	}
	if gs != nil && gs.NAtoms == cfg.LocalAtoms {
		if err := st.FromLegacy(gs.Clone()); err != nil {
			return nil, nil, fmt.Errorf("microstate: initial state: %w", err)
		}
	}
	return ms, &legacyAccess{ms: ms}, nil
}

func (m *MicroState) Name() string { return "microstate" }

func (m *MicroState) ReadPosition() state.ReadView            { return m.st.ReadPosition() }
func (m *MicroState) WritePosition() *state.WriteView         { return m.st.WritePosition() }
func (m *MicroState) ReadPreviousPosition() state.ReadView    { return m.st.ReadPreviousPosition() }
func (m *MicroState) WritePreviousPosition() *state.WriteView { return m.st.WritePreviousPosition() }
func (m *MicroState) ReadVelocity() state.ReadView            { return m.st.ReadVelocity() }
func (m *MicroState) WriteVelocity() *state.WriteView         { return m.st.WriteVelocity() }
func (m *MicroState) ReadForce() state.ReadView               { return m.st.ReadForce() }
func (m *MicroState) WriteForce() *state.WriteView            { return m.st.WriteForce() }
func (m *MicroState) Box() *dynamo.Matrix                     { return m.st.Box() }
func (m *MicroState) PreviousBox() *dynamo.Matrix             { return m.st.PreviousBox() }
func (m *MicroState) LocalAtomCount() int                     { return m.st.LocalAtomCount() }
func (m *MicroState) TotalAtomCount() int                     { return m.st.TotalAtomCount() }
func (m *MicroState) Backend() compute.Backend                { return m.st.Backend() }

// Phase reports where MicroState is in its backup cycle.
func (m *MicroState) Phase() Phase {
	switch {
	case m.backup != nil:
		return BackupHeld
	case m.writePending:
		return BackupPending
	default:
		return Idle
	}
}

// ElementSetup saves the starting velocities when they have to be restored
// after the first velocity Verlet half step.
func (m *MicroState) ElementSetup() error {
	if m.vvResetVelocities {
		m.velocityBackup = m.st.ReadVelocity().Clone()
	}
	return nil
}

// ScheduleTask registers the full-time-step work: restore velocities after
// the first VV half step, back the state up if a write is due, then advance.
func (m *MicroState) ScheduleTask(step dynamo.Step, _ dynamo.Time, register modular.RegisterRunFunc) {
	writeStep := m.writePending && step == m.writeOutStep
	resetVelocities := m.vvResetVelocities
	m.vvResetVelocities = false

	register(func() error {
		if resetVelocities {
			m.resetVelocities()
		}
		if writeStep {
			m.saveState(step)
		}
		m.st.Advance(step)
		return nil
	})
}

func (m *MicroState) ElementTeardown() error {
	if m.backup != nil {
		m.logger.Warn("state backup never written", "step", m.backupStep)
		m.release()
	}
	return nil
}

func (m *MicroState) resetVelocities() {
	w := m.st.WriteVelocity()
	defer w.Release()
	copy(w.Slice(), m.velocityBackup)
	m.velocityBackup = nil
}

// saveState takes the backup for the pending write. A second backup while
// one is held would overwrite data a pending write still needs.
func (m *MicroState) saveState(step dynamo.Step) {
	if m.backup != nil {
		dynamo.Violate(dynamo.ViolationReentrantBackup,
			"backup for step %d requested while the backup of step %d is still held", step, m.backupStep)
	}
	if m.pool.NAtoms() != m.st.LocalAtomCount() {
		m.pool = legacy.NewPool(m.st.LocalAtomCount(), m.st.Flags())
	}
	backup := m.pool.Get()
	if err := m.st.ToLegacyInto(backup); err != nil {
		// the pool is sized from the state above
		panic(err)
	}
	m.backup = backup
	m.backupStep = step
	m.writePending = false
	m.logger.Debug("state backup taken", "step", step)
}

func (m *MicroState) release() {
	m.pool.Put(m.backup)
	m.backup = nil
}

// HasBackup reports whether a backup is held and for which step.
func (m *MicroState) HasBackup() (dynamo.Step, bool) {
	return m.backupStep, m.backup != nil
}

func (m *MicroState) RegisterTrajectorySignallerCallback(event modular.TrajectoryEvent) modular.SignallerCallback {
	if event != modular.StateWritingStep {
		return nil
	}
	return func(step dynamo.Step, _ dynamo.Time) {
		m.writeOutStep = step
		m.writePending = true
	}
}

func (m *MicroState) RegisterTrajectoryWriterCallback(event modular.TrajectoryEvent) modular.WriterCallback {
	if event != modular.StateWritingStep {
		return nil
	}
	return m.write
}

func (m *MicroState) TrajectoryWriterSetup(modular.Sink) error    { return nil }
func (m *MicroState) TrajectoryWriterTeardown(modular.Sink) error { return nil }

// write supplies the backup of step to the sink and releases it. Forces are
// taken from the live buffer; advancing never touches them.
func (m *MicroState) write(sink modular.Sink, step dynamo.Step, time dynamo.Time) error {
	if m.backup == nil {
		return fmt.Errorf("%w: step %d", dynamo.ErrNoBackup, step)
	}
	if m.backupStep != step {
		return fmt.Errorf("%w: write for step %d, backup is of step %d", dynamo.ErrNoBackup, step, m.backupStep)
	}
	defer m.release()

	kinds := m.intervals.Kinds(step)
	frame := &modular.Frame{
		Step:  step,
		Time:  time,
		Kinds: kinds,
		Box:   m.backup.Box,
	}
	if kinds.Has(dynamo.WritePosition | dynamo.WriteCompressedPosition) {
		frame.X = m.backup.X
	}
	if kinds.Has(dynamo.WriteVelocity) {
		frame.V = m.backup.V
	}
	if kinds.Has(dynamo.WriteForce) {
		frame.F = m.st.ReadForce().Clone()
	}
	m.logger.Debug("state backup written", "step", step, "kinds", kinds)
	return sink.WriteFrame(frame)
}
