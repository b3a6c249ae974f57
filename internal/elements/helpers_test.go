package elements

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/legacy"
	"github.com/san-kum/modsim/internal/microstate"
	"github.com/san-kum/modsim/internal/modular"
)

func newMicroState(t *testing.T, x, v []dynamo.RVec, edge float64, vv bool) (*microstate.MicroState, microstate.LegacyAccess) {
	t.Helper()
	gs := legacy.New(len(x), legacy.DefaultFlags)
	gs.Box = dynamo.CubicBox(edge)
	gs.PreviousBox = gs.Box
	copy(gs.X, x)
	copy(gs.V, v)

	ms, access, err := microstate.New(microstate.Config{
		LocalAtoms:        len(x),
		TotalAtoms:        len(x),
		GlobalState:       gs,
		VVResetVelocities: vv,
	})
	require.NoError(t, err)
	return ms, access
}

// runStep schedules and runs one step of the given elements in order.
func runStep(t *testing.T, step dynamo.Step, elems ...modular.Element) {
	t.Helper()
	var queue []modular.RunFunc
	for _, e := range elems {
		e.ScheduleTask(step, 0, func(fn modular.RunFunc) { queue = append(queue, fn) })
	}
	for _, fn := range queue {
		require.NoError(t, fn())
	}
}

func setup(t *testing.T, elems ...modular.Element) {
	t.Helper()
	for _, e := range elems {
		require.NoError(t, e.ElementSetup())
	}
}
