package modular_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/modular"
)

var _ = Describe("Simulator", func() {
	var (
		j   *journal
		sim *modular.Simulator
		cfg modular.Config
	)

	BeforeEach(func() {
		j = &journal{}
		sim = modular.New(nil)
		cfg = modular.Config{NSteps: 2, Dt: 0.5}
	})

	It("runs steps InitialStep..InitialStep+NSteps inclusive", func() {
		a := newRecorder("a", j)
		sim.AddElement(a)
		cfg.InitialStep = 10

		result, err := sim.Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.StepsTaken).To(Equal(int64(3)))
		Expect(result.LastStep).To(Equal(dynamo.Step(12)))
		Expect(j.entries).To(Equal([]string{
			"a setup", "a run 10", "a run 11", "a run 12", "a teardown",
		}))
	})

	It("executes run functions in element order within each step", func() {
		sim.AddElement(newRecorder("first", j), newRecorder("second", j))
		cfg.NSteps = 1

		_, err := sim.Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(j.entries).To(Equal([]string{
			"first setup", "second setup",
			"first run 0", "second run 0",
			"first run 1", "second run 1",
			"second teardown", "first teardown",
		}))
	})

	It("fires every signaller callback before any run function of the step", func() {
		sig := modular.NewTrajectorySignaller(modular.WriteIntervals{Position: 2})
		a := newRecorder("a", j)
		sig.AddClient(a)
		sim.AddSignaller(sig)
		sim.AddElement(a)

		_, err := sim.Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(j.entries).To(Equal([]string{
			"a setup",
			"a signal state-writing-step 0", "a run 0",
			"a run 1",
			"a signal state-writing-step 2", "a run 2",
			"a teardown",
		}))
	})

	It("computes time from the initial time and dt", func() {
		var times []dynamo.Time
		sim.AddElement(newRecorder("a", j))
		sim.AddObserver(modular.ObserverFunc(func(_ dynamo.Step, t dynamo.Time) {
			times = append(times, t)
		}))
		cfg.InitialTime = 1

		_, err := sim.Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(times).To(Equal([]dynamo.Time{1, 1.5, 2}))
	})

	It("wraps run function failures with the step and element", func() {
		a := newRecorder("a", j)
		a.failAt = 1
		sim.AddElement(a)

		_, err := sim.Run(context.Background(), cfg)
		var stepErr *dynamo.StepError
		Expect(errors.As(err, &stepErr)).To(BeTrue())
		Expect(stepErr.Step).To(Equal(dynamo.Step(1)))
		Expect(stepErr.Element).To(Equal("a"))
		Expect(a.torn).To(BeTrue(), "elements are torn down after a failed step")
	})

	It("tears down only the elements that were set up", func() {
		a := newRecorder("a", j)
		b := newRecorder("b", j)
		b.setupErr = errors.New("no memory")
		c := newRecorder("c", j)
		sim.AddElement(a, b, c)

		_, err := sim.Run(context.Background(), cfg)
		Expect(err).To(MatchError(ContainSubstring("no memory")))
		Expect(a.torn).To(BeTrue())
		Expect(b.torn).To(BeFalse())
		Expect(c.torn).To(BeFalse())
	})

	It("stops between steps when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		sim.AddElement(newRecorder("a", j))
		sim.AddObserver(modular.ObserverFunc(func(step dynamo.Step, _ dynamo.Time) {
			if step == 0 {
				cancel()
			}
		}))
		cfg.NSteps = 100

		result, err := sim.Run(ctx, cfg)
		Expect(err).To(MatchError(context.Canceled))
		Expect(result.StepsTaken).To(Equal(int64(1)))
		Expect(j.entries).To(ContainElement("a teardown"))
	})

	It("delivers each write once when the same loop runs again", func() {
		sink := &memSink{}
		client := &counterClient{}
		sig := modular.NewTrajectorySignaller(modular.WriteIntervals{Position: 10})
		traj := modular.NewTrajectoryElement(sink, client)
		sig.AddClient(traj)
		sim.AddSignaller(sig)
		sim.AddElement(newRecorder("a", j), traj)

		_, err := sim.Run(context.Background(), modular.Config{NSteps: 5, Dt: 0.5})
		Expect(err).NotTo(HaveOccurred())

		result, err := sim.Run(context.Background(), modular.Config{InitialStep: 10, NSteps: 10, Dt: 0.5})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.written).To(Equal([]dynamo.Step{0, 10, 20}))
		Expect(sink.frames).To(HaveLen(3))
		Expect(result.Frames).To(Equal(2))
		Expect(client.setup).To(Equal(2))
	})

	DescribeTable("rejects invalid configs",
		func(cfg modular.Config) {
			sim.AddElement(newRecorder("a", j))
			_, err := sim.Run(context.Background(), cfg)
			Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
		},
		Entry("zero dt", modular.Config{Dt: 0, NSteps: 1}),
		Entry("negative dt", modular.Config{Dt: -0.1, NSteps: 1}),
		Entry("negative nsteps", modular.Config{Dt: 0.1, NSteps: -1}),
	)

	It("rejects a loop without elements", func() {
		_, err := sim.Run(context.Background(), cfg)
		Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
	})
})
