package modular_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/modular"
)

// stepClient records the steps delivered for one event.
type stepClient struct {
	event modular.TrajectoryEvent
	steps []dynamo.Step
}

func (c *stepClient) RegisterTrajectorySignallerCallback(event modular.TrajectoryEvent) modular.SignallerCallback {
	if event != c.event {
		return nil
	}
	return func(step dynamo.Step, _ dynamo.Time) {
		c.steps = append(c.steps, step)
	}
}

var _ = Describe("TrajectorySignaller", func() {
	DescribeTable("delivers a write event iff the step is a multiple of a positive interval",
		func(intervals modular.WriteIntervals, want []dynamo.Step) {
			sig := modular.NewTrajectorySignaller(intervals)
			clients := []*stepClient{{event: modular.StateWritingStep}, {event: modular.StateWritingStep}}
			for _, c := range clients {
				sig.AddClient(c)
			}
			Expect(sig.SignallerSetup()).To(Succeed())

			for step := dynamo.Step(0); step <= 25; step++ {
				sig.Signal(step, 0)
			}
			for _, c := range clients {
				if want == nil {
					Expect(c.steps).To(BeEmpty())
				} else {
					Expect(c.steps).To(Equal(want))
				}
			}
		},
		Entry("positions every 10", modular.WriteIntervals{Position: 10}, []dynamo.Step{0, 10, 20}),
		Entry("velocities every 12", modular.WriteIntervals{Velocity: 12}, []dynamo.Step{0, 12, 24}),
		Entry("forces every 25", modular.WriteIntervals{Force: 25}, []dynamo.Step{0, 25}),
		Entry("compressed every 13", modular.WriteIntervals{CompressedPosition: 13}, []dynamo.Step{0, 13}),
		Entry("union of kinds", modular.WriteIntervals{Position: 10, Force: 8}, []dynamo.Step{0, 8, 10, 16, 20, 24}),
		Entry("all disabled", modular.WriteIntervals{}, nil),
		Entry("negative disables", modular.WriteIntervals{Position: -5}, nil),
	)

	It("delivers each qualifying step exactly once", func() {
		sig := modular.NewTrajectorySignaller(modular.WriteIntervals{Position: 5})
		c := &stepClient{event: modular.StateWritingStep}
		sig.AddClient(c)
		Expect(sig.SignallerSetup()).To(Succeed())

		sig.Signal(0, 0)
		sig.Signal(0, 0)
		sig.Signal(5, 0)
		sig.Signal(3, 0)
		sig.Signal(5, 0)
		sig.Signal(10, 0)

		Expect(c.steps).To(Equal([]dynamo.Step{0, 5, 10}))
	})

	It("invokes callbacks in client registration order", func() {
		j := &journal{}
		sig := modular.NewTrajectorySignaller(modular.WriteIntervals{Position: 1})
		sig.AddClient(newRecorder("one", j), newRecorder("two", j), newRecorder("three", j))
		Expect(sig.SignallerSetup()).To(Succeed())

		sig.Signal(4, 0)
		Expect(j.entries).To(Equal([]string{
			"one signal state-writing-step 4",
			"two signal state-writing-step 4",
			"three signal state-writing-step 4",
		}))
	})

	It("signals energy steps independently", func() {
		sig := modular.NewTrajectorySignaller(modular.WriteIntervals{Position: 4, Energy: 3})
		state := &stepClient{event: modular.StateWritingStep}
		energy := &stepClient{event: modular.EnergyWritingStep}
		sig.AddClient(state, energy)
		Expect(sig.SignallerSetup()).To(Succeed())

		for step := dynamo.Step(0); step <= 9; step++ {
			sig.Signal(step, 0)
		}
		Expect(state.steps).To(Equal([]dynamo.Step{0, 4, 8}))
		Expect(energy.steps).To(Equal([]dynamo.Step{0, 3, 6, 9}))
	})
})

var _ = Describe("WriteIntervals", func() {
	It("reports the due kinds of a step", func() {
		w := modular.WriteIntervals{Position: 2, Velocity: 3, Force: 6, CompressedPosition: 4}
		Expect(w.Kinds(6)).To(Equal(dynamo.WritePosition | dynamo.WriteVelocity | dynamo.WriteForce))
		Expect(w.Kinds(4)).To(Equal(dynamo.WritePosition | dynamo.WriteCompressedPosition))
		Expect(w.Kinds(5)).To(BeZero())
	})
})
