package elements

import (
	"fmt"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/modular"
)

func checkUpdate(mass, dt float64) error {
	if mass <= 0 {
		return fmt.Errorf("%w: mass must be positive, got %f", dynamo.ErrInvalidConfig, mass)
	}
	if dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", dynamo.ErrInvalidConfig, dt)
	}
	return nil
}

// kick adds f/m*dt to every velocity.
func kick(ms StateAccess, mass, dt float64) {
	f := ms.ReadForce()
	w := ms.WriteVelocity()
	defer w.Release()
	v := w.Slice()
	scale := dt / mass
	dynamo.ParallelFor(len(v), parallelChunk, func(start, end int) {
		for i := start; i < end; i++ {
			v[i] = v[i].Add(f.At(i).Scale(scale))
		}
	})
}

// drift adds v*dt to every position.
func drift(ms StateAccess, dt float64) {
	v := ms.ReadVelocity()
	w := ms.WritePosition()
	defer w.Release()
	x := w.Slice()
	dynamo.ParallelFor(len(x), parallelChunk, func(start, end int) {
		for i := start; i < end; i++ {
			x[i] = x[i].Add(v.At(i).Scale(dt))
		}
	})
}

// Leapfrog integrates with velocities at half steps: v(t+dt/2) = v(t-dt/2) +
// F(t)/m dt, then x(t+dt) = x(t) + v(t+dt/2) dt. It runs after MicroState.
type Leapfrog struct {
	modular.NopElement
	ms   StateAccess
	mass float64
	dt   float64
}

func NewLeapfrog(ms StateAccess, mass, dt float64) *Leapfrog {
	return &Leapfrog{ms: ms, mass: mass, dt: dt}
}

func (l *Leapfrog) Name() string        { return "leapfrog" }
func (l *Leapfrog) ElementSetup() error { return checkUpdate(l.mass, l.dt) }

func (l *Leapfrog) ScheduleTask(_ dynamo.Step, _ dynamo.Time, register modular.RegisterRunFunc) {
	register(func() error {
		kick(l.ms, l.mass, l.dt)
		drift(l.ms, l.dt)
		return nil
	})
}

// VVFirstHalf completes the velocities to the full step, v(t) = v(t-dt/2) +
// F(t)/m dt/2. On the first step the velocities are already at the full step,
// so MicroState restores them after this element has run.
type VVFirstHalf struct {
	modular.NopElement
	ms   StateAccess
	mass float64
	dt   float64
}

func NewVVFirstHalf(ms StateAccess, mass, dt float64) *VVFirstHalf {
	return &VVFirstHalf{ms: ms, mass: mass, dt: dt}
}

func (v *VVFirstHalf) Name() string        { return "vv-first-half" }
func (v *VVFirstHalf) ElementSetup() error { return checkUpdate(v.mass, v.dt) }

func (v *VVFirstHalf) ScheduleTask(_ dynamo.Step, _ dynamo.Time, register modular.RegisterRunFunc) {
	register(func() error {
		kick(v.ms, v.mass, 0.5*v.dt)
		return nil
	})
}

// VVSecondHalf advances velocities by half a step and positions by a full
// step with the half-step velocities.
type VVSecondHalf struct {
	modular.NopElement
	ms   StateAccess
	mass float64
	dt   float64
}

func NewVVSecondHalf(ms StateAccess, mass, dt float64) *VVSecondHalf {
	return &VVSecondHalf{ms: ms, mass: mass, dt: dt}
}

func (v *VVSecondHalf) Name() string        { return "vv-second-half" }
func (v *VVSecondHalf) ElementSetup() error { return checkUpdate(v.mass, v.dt) }

func (v *VVSecondHalf) ScheduleTask(_ dynamo.Step, _ dynamo.Time, register modular.RegisterRunFunc) {
	register(func() error {
		kick(v.ms, v.mass, 0.5*v.dt)
		drift(v.ms, v.dt)
		return nil
	})
}
