package microstate_test

import (
	"context"
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/legacy"
	"github.com/san-kum/modsim/internal/microstate"
	"github.com/san-kum/modsim/internal/modular"
)

const natoms = 8

func randomState(rng *rand.Rand, n int) *legacy.State {
	ls := legacy.New(n, legacy.DefaultFlags)
	ls.Box = dynamo.CubicBox(3)
	ls.PreviousBox = ls.Box
	for i := 0; i < n; i++ {
		ls.X[i] = dynamo.RVec{rng.Float64(), rng.Float64(), rng.Float64()}
		ls.V[i] = dynamo.RVec{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
	}
	return ls
}

var _ = Describe("MicroState", func() {
	var (
		intervals modular.WriteIntervals
		ms        *microstate.MicroState
		access    microstate.LegacyAccess
		sink      *memSink
	)

	newMicroState := func(cfg microstate.Config) {
		var err error
		cfg.Intervals = intervals
		if cfg.LocalAtoms == 0 {
			cfg.LocalAtoms, cfg.TotalAtoms = natoms, natoms
		}
		ms, access, err = microstate.New(cfg)
		Expect(err).NotTo(HaveOccurred())
	}

	// build wires the signaller and trajectory element around the given
	// elements; trajectory always runs last.
	build := func(elements ...modular.Element) *modular.Simulator {
		sig := modular.NewTrajectorySignaller(intervals)
		traj := modular.NewTrajectoryElement(sink, ms)
		sig.AddClient(ms, traj)
		sim := modular.New(nil)
		sim.AddSignaller(sig)
		sim.AddElement(elements...)
		sim.AddElement(traj)
		return sim
	}

	BeforeEach(func() {
		intervals = modular.WriteIntervals{Position: 10}
		sink = &memSink{}
	})

	Describe("backup and write", func() {
		BeforeEach(func() {
			newMicroState(microstate.Config{})
		})

		It("backs up and writes exactly the steps divisible by the interval", func() {
			sim := build(&mover{ms: ms}, ms)

			res, err := sim.Run(context.Background(), modular.Config{NSteps: 25, Dt: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StepsTaken).To(Equal(int64(26)))

			Expect(sink.steps()).To(Equal([]dynamo.Step{0, 10, 20}))
			for _, f := range sink.frames {
				Expect(f.Kinds).To(Equal(dynamo.WritePosition))
				Expect(f.X).To(HaveLen(natoms))
				Expect(f.X[3]).To(Equal(dynamo.RVec{float64(f.Step), 3, 0}))
				Expect(f.V).To(BeEmpty())
			}
			Expect(ms.Phase()).To(Equal(microstate.Idle))
		})

		It("writes the state as of its run function, not later mutations", func() {
			sim := build(&mover{ms: ms}, ms, &mover{ms: ms, value: -1})

			_, err := sim.Run(context.Background(), modular.Config{NSteps: 10, Dt: 1})
			Expect(err).NotTo(HaveOccurred())

			Expect(sink.frames).To(HaveLen(2))
			for _, f := range sink.frames {
				Expect(f.X[0]).To(Equal(dynamo.RVec{float64(f.Step), 0, 0}))
			}
			Expect(ms.ReadPosition().At(0)).To(Equal(dynamo.RVec{10, 0, -1}))
		})

		It("makes the current positions the previous ones every step", func() {
			var checked int
			sim := build(&mover{ms: ms}, ms)
			sim.AddObserver(modular.ObserverFunc(func(step dynamo.Step, _ dynamo.Time) {
				Expect(ms.ReadPreviousPosition().Clone()).To(Equal(ms.ReadPosition().Clone()))
				checked++
			}))

			_, err := sim.Run(context.Background(), modular.Config{NSteps: 4, Dt: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(checked).To(Equal(5))
		})

		It("takes forces from the live buffer", func() {
			intervals = modular.WriteIntervals{Position: 1, Force: 1}
			newMicroState(microstate.Config{})

			w := ms.WriteForce()
			w.Slice()[2] = dynamo.RVec{7, 8, 9}
			w.Release()

			sim := build(ms)
			_, err := sim.Run(context.Background(), modular.Config{NSteps: 0, Dt: 1})
			Expect(err).NotTo(HaveOccurred())

			Expect(sink.frames).To(HaveLen(1))
			Expect(sink.frames[0].Kinds).To(Equal(dynamo.WritePosition | dynamo.WriteForce))
			Expect(sink.frames[0].F[2]).To(Equal(dynamo.RVec{7, 8, 9}))
		})

		It("panics when a second backup is requested before the first is written", func() {
			intervals = modular.WriteIntervals{Position: 1}
			newMicroState(microstate.Config{})

			sig := modular.NewTrajectorySignaller(intervals)
			sig.AddClient(ms)
			sim := modular.New(nil)
			sim.AddSignaller(sig)
			sim.AddElement(ms)

			expectViolation(dynamo.ViolationReentrantBackup, func() {
				_, _ = sim.Run(context.Background(), modular.Config{NSteps: 3, Dt: 1})
			})
		})

		It("moves through its backup phases", func() {
			Expect(ms.Phase()).To(Equal(microstate.Idle))

			ms.RegisterTrajectorySignallerCallback(modular.StateWritingStep)(0, 0)
			Expect(ms.Phase()).To(Equal(microstate.BackupPending))

			var run modular.RunFunc
			ms.ScheduleTask(0, 0, func(fn modular.RunFunc) { run = fn })
			Expect(run()).To(Succeed())
			Expect(ms.Phase()).To(Equal(microstate.BackupHeld))
			step, held := ms.HasBackup()
			Expect(held).To(BeTrue())
			Expect(step).To(Equal(dynamo.Step(0)))

			write := ms.RegisterTrajectoryWriterCallback(modular.StateWritingStep)
			Expect(write(sink, 0, 0)).To(Succeed())
			Expect(ms.Phase()).To(Equal(microstate.Idle))
		})

		It("reports a write without a backup", func() {
			write := ms.RegisterTrajectoryWriterCallback(modular.StateWritingStep)
			err := write(sink, 5, 0)
			Expect(err).To(MatchError(dynamo.ErrNoBackup))
			Expect(sink.frames).To(BeEmpty())
		})

		It("ignores events it does not own", func() {
			Expect(ms.RegisterTrajectorySignallerCallback(modular.EnergyWritingStep)).To(BeNil())
			Expect(ms.RegisterTrajectoryWriterCallback(modular.EnergyWritingStep)).To(BeNil())
		})

		It("releases an unwritten backup on teardown", func() {
			ms.RegisterTrajectorySignallerCallback(modular.StateWritingStep)(0, 0)
			ms.ScheduleTask(0, 0, func(fn modular.RunFunc) { Expect(fn()).To(Succeed()) })
			Expect(ms.ElementTeardown()).To(Succeed())
			_, held := ms.HasBackup()
			Expect(held).To(BeFalse())
		})
	})

	Describe("velocity Verlet reset", func() {
		It("restores the starting velocities bit for bit after the first step", func() {
			initial := randomState(rand.New(rand.NewSource(42)), natoms)
			newMicroState(microstate.Config{
				TotalAtoms:        natoms,
				LocalAtoms:        natoms,
				GlobalState:       initial,
				VVResetVelocities: true,
			})

			velocities := map[dynamo.Step][]dynamo.RVec{}
			sim := build(&kicker{ms: ms, dv: 0.1}, ms)
			sim.AddObserver(modular.ObserverFunc(func(step dynamo.Step, _ dynamo.Time) {
				velocities[step] = ms.ReadVelocity().Clone()
			}))

			_, err := sim.Run(context.Background(), modular.Config{NSteps: 1, Dt: 1})
			Expect(err).NotTo(HaveOccurred())

			Expect(velocities[0]).To(Equal(initial.V))
			Expect(velocities[1][0]).To(Equal(initial.V[0].Add(dynamo.RVec{0.1, 0.1, 0.1})))
		})

		It("persists the reset velocities in the written frame", func() {
			intervals = modular.WriteIntervals{Velocity: 1}
			initial := randomState(rand.New(rand.NewSource(7)), natoms)
			newMicroState(microstate.Config{
				TotalAtoms:        natoms,
				LocalAtoms:        natoms,
				GlobalState:       initial,
				VVResetVelocities: true,
			})

			sim := build(&kicker{ms: ms, dv: 1}, ms)
			_, err := sim.Run(context.Background(), modular.Config{NSteps: 0, Dt: 1})
			Expect(err).NotTo(HaveOccurred())

			Expect(sink.frames).To(HaveLen(1))
			Expect(sink.frames[0].V).To(Equal(initial.V))
		})
	})

	Describe("legacy access", func() {
		var initial *legacy.State

		BeforeEach(func() {
			initial = randomState(rand.New(rand.NewSource(1)), natoms)
			newMicroState(microstate.Config{
				LocalAtoms:  natoms,
				TotalAtoms:  2 * natoms,
				GlobalState: initial,
			})
		})

		It("initializes from a global state covering the local atoms", func() {
			Expect(ms.ReadPosition().Clone()).To(Equal(initial.X))
			Expect(*ms.Box()).To(Equal(initial.Box))
			Expect(access.GlobalState()).To(BeIdenticalTo(initial))
		})

		It("rejects a global state that does not cover a single-rank system", func() {
			_, _, err := microstate.New(microstate.Config{
				LocalAtoms:  8,
				TotalAtoms:  8,
				GlobalState: randomState(rand.New(rand.NewSource(3)), 5),
			})
			Expect(err).To(MatchError(dynamo.ErrSizeMismatch))

			var sizeErr *dynamo.SizeMismatchError
			Expect(errors.As(err, &sizeErr)).To(BeTrue())
			Expect(sizeErr.Want).To(Equal(8))
			Expect(sizeErr.Got).To(Equal(5))
		})

		It("round-trips the local state", func() {
			ls := access.LocalState()
			Expect(ls.X).To(Equal(initial.X))
			Expect(ls.V).To(Equal(initial.V))

			ls.X[0] = dynamo.RVec{9, 9, 9}
			Expect(access.SetLocalState(ls)).To(Succeed())
			Expect(ms.ReadPosition().At(0)).To(Equal(dynamo.RVec{9, 9, 9}))
		})

		It("rejects a local state of another size without writing", func() {
			err := access.SetLocalState(randomState(rand.New(rand.NewSource(2)), natoms+1))
			Expect(err).To(MatchError(dynamo.ErrSizeMismatch))

			var sizeErr *dynamo.SizeMismatchError
			Expect(errors.As(err, &sizeErr)).To(BeTrue())
			Expect(sizeErr.Want).To(Equal(natoms))
			Expect(sizeErr.Got).To(Equal(natoms + 1))
			Expect(ms.ReadPosition().Clone()).To(Equal(initial.X))
		})

		It("copies the local forces", func() {
			w := ms.WriteForce()
			for i := range w.Slice() {
				w.Slice()[i] = dynamo.RVec{float64(i), -1, 0.5}
			}
			w.Release()

			f := access.Force()
			Expect(f).To(HaveLen(natoms))
			Expect(f[2]).To(Equal(dynamo.RVec{2, -1, 0.5}))

			f[2] = dynamo.RVec{}
			Expect(ms.ReadForce().At(2)).To(Equal(dynamo.RVec{2, -1, 0.5}))
		})

		It("repartitions to a new local atom count", func() {
			next := randomState(rand.New(rand.NewSource(3)), natoms+4)

			access.BeginPartition()
			expectViolation(dynamo.ViolationInvalidPartition, func() { ms.ReadPosition() })
			Expect(access.Repartition(next)).To(Succeed())

			Expect(ms.LocalAtomCount()).To(Equal(natoms + 4))
			Expect(access.PartitionCount()).To(Equal(1))
			Expect(ms.ReadPreviousPosition().Clone()).To(Equal(next.X))
		})

		It("refuses to partition while a backup is held", func() {
			ms.RegisterTrajectorySignallerCallback(modular.StateWritingStep)(0, 0)
			ms.ScheduleTask(0, 0, func(fn modular.RunFunc) { Expect(fn()).To(Succeed()) })

			expectViolation(dynamo.ViolationInvalidPartition, func() { access.BeginPartition() })
			expectViolation(dynamo.ViolationInvalidPartition, func() { _ = access.Repartition(initial) })

			write := ms.RegisterTrajectoryWriterCallback(modular.StateWritingStep)
			Expect(write(sink, 0, 0)).To(Succeed())
			access.BeginPartition()
			Expect(access.Repartition(randomState(rand.New(rand.NewSource(4)), natoms-2))).To(Succeed())
		})

		It("backs up at the new size after a partition", func() {
			access.BeginPartition()
			Expect(access.Repartition(randomState(rand.New(rand.NewSource(5)), 3))).To(Succeed())

			ms.RegisterTrajectorySignallerCallback(modular.StateWritingStep)(10, 0)
			ms.ScheduleTask(10, 0, func(fn modular.RunFunc) { Expect(fn()).To(Succeed()) })
			write := ms.RegisterTrajectoryWriterCallback(modular.StateWritingStep)
			Expect(write(sink, 10, 0)).To(Succeed())

			Expect(sink.frames).To(HaveLen(1))
			Expect(sink.frames[0].X).To(HaveLen(3))
		})
	})
})
