package modular_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/modular"
)

type failingSink struct{ memSink }

func (f *failingSink) WriteFrame(*modular.Frame) error { return errors.New("disk full") }

var _ = Describe("TrajectoryElement", func() {
	var (
		j      *journal
		sink   *memSink
		client *counterClient
		sig    *modular.TrajectorySignaller
		traj   *modular.TrajectoryElement
		sim    *modular.Simulator
	)

	BeforeEach(func() {
		j = &journal{}
		sink = &memSink{}
		client = &counterClient{j: j}
		sig = modular.NewTrajectorySignaller(modular.WriteIntervals{Position: 3, Energy: 2})
		traj = modular.NewTrajectoryElement(sink, client)
		sig.AddClient(traj)
		sim = modular.New(nil)
		sim.AddSignaller(sig)
	})

	It("writes through its clients on signalled steps only", func() {
		sim.AddElement(newRecorder("work", j), traj)

		res, err := sim.Run(context.Background(), modular.Config{NSteps: 6, Dt: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Frames).To(Equal(3))

		Expect(client.written).To(Equal([]dynamo.Step{0, 3, 6}))
		Expect(traj.Frames()).To(Equal(3))
		Expect(sink.frames).To(HaveLen(3))
		Expect(sink.energies).To(HaveLen(4))
		Expect(client.setup).To(Equal(1))
		Expect(client.torn).To(Equal(1))
	})

	It("writes after the run functions scheduled before it", func() {
		sim.AddElement(newRecorder("work", j), traj)

		_, err := sim.Run(context.Background(), modular.Config{NSteps: 0, Dt: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(j.entries).To(Equal([]string{"work setup", "work run 0", "write 0", "work teardown"}))
	})

	It("surfaces sink failures as step errors", func() {
		traj = modular.NewTrajectoryElement(&failingSink{}, client)
		sig = modular.NewTrajectorySignaller(modular.WriteIntervals{Position: 1})
		sig.AddClient(traj)
		sim = modular.New(nil)
		sim.AddSignaller(sig)
		sim.AddElement(traj)

		_, err := sim.Run(context.Background(), modular.Config{NSteps: 3, Dt: 1})
		Expect(err).To(MatchError(ContainSubstring("disk full")))
		var stepErr *dynamo.StepError
		Expect(errors.As(err, &stepErr)).To(BeTrue())
		Expect(stepErr.Element).To(Equal("trajectory"))
	})

	It("refuses to set up without a sink", func() {
		Expect(modular.NewTrajectoryElement(nil).ElementSetup()).To(HaveOccurred())
	})
})
