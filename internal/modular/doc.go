// Package modular implements the step loop of the modular simulator.
//
// The loop is built from three contracts:
//
//   - [Element]: a loop participant that decides at [Element.ScheduleTask]
//     what it will do in a step and registers a [RunFunc] to do it
//   - [Signaller]: announces time-indexed events, such as a trajectory write,
//     to its clients before any run function of that step executes
//   - [TrajectoryWriterClient]: an element owning data supplies a callback
//     that the [TrajectoryElement] invokes when it writes a frame
//
// # Example
//
//	sig := modular.NewTrajectorySignaller(intervals)
//	traj := modular.NewTrajectoryElement(sink, micro)
//	sig.AddClient(micro)
//	sig.AddClient(traj)
//
//	sim := modular.New(logger)
//	sim.AddSignaller(sig)
//	sim.AddElement(force, micro, update, traj)
//	result, err := sim.Run(ctx, cfg)
//
// # Thread Safety
//
// A Simulator runs on the calling goroutine. Signallers, elements and run
// functions are invoked from that goroutine only.
package modular
