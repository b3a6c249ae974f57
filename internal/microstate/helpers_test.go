package microstate_test

import (
	. "github.com/onsi/gomega"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/microstate"
	"github.com/san-kum/modsim/internal/modular"
)

// memSink keeps copies of every frame; frame slices are only valid during
// the write.
type memSink struct {
	frames []modular.Frame
}

func (m *memSink) WriteFrame(f *modular.Frame) error {
	c := *f
	c.X = append([]dynamo.RVec(nil), f.X...)
	c.V = append([]dynamo.RVec(nil), f.V...)
	c.F = append([]dynamo.RVec(nil), f.F...)
	m.frames = append(m.frames, c)
	return nil
}

func (m *memSink) WriteEnergy(*modular.EnergyFrame) error { return nil }

func (m *memSink) steps() []dynamo.Step {
	out := make([]dynamo.Step, 0, len(m.frames))
	for _, f := range m.frames {
		out = append(out, f.Step)
	}
	return out
}

// mover sets every position to (step, i, value) in its run function.
type mover struct {
	modular.NopElement
	ms    *microstate.MicroState
	value float64
}

func (m *mover) ScheduleTask(step dynamo.Step, _ dynamo.Time, register modular.RegisterRunFunc) {
	register(func() error {
		w := m.ms.WritePosition()
		defer w.Release()
		for i := range w.Slice() {
			w.Slice()[i] = dynamo.RVec{float64(step), float64(i), m.value}
		}
		return nil
	})
}

// kicker adds dv to every velocity in its run function.
type kicker struct {
	modular.NopElement
	ms *microstate.MicroState
	dv float64
}

func (k *kicker) ScheduleTask(_ dynamo.Step, _ dynamo.Time, register modular.RegisterRunFunc) {
	register(func() error {
		w := k.ms.WriteVelocity()
		defer w.Release()
		for i := range w.Slice() {
			w.Slice()[i] = w.Slice()[i].Add(dynamo.RVec{k.dv, k.dv, k.dv})
		}
		return nil
	})
}

// expectViolation asserts that fn panics with a contract violation of code.
func expectViolation(code dynamo.ViolationCode, fn func()) {
	defer func() {
		r := recover()
		Expect(dynamo.IsViolation(r, code)).To(BeTrue(), "expected %s violation, got %v", code, r)
	}()
	fn()
}
