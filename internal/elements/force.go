package elements

import (
	"fmt"
	"math"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/modular"
)

const DefaultSpringConstant = 500.0

// HarmonicForce tethers every atom to its reference site with a spring,
// F = -k d, where d is the minimum-image displacement from the site in a
// rectangular box. Sites default to the positions at setup.
//
// Forces are computed into a host scratch buffer and copied into the force
// buffer through the compute backend; the copy is joined before the view is
// released.
type HarmonicForce struct {
	ms    StateAccess
	k     float64
	sites []dynamo.RVec

	scratch   []dynamo.RVec
	potential float64
}

func NewHarmonicForce(ms StateAccess, k float64, sites []dynamo.RVec) *HarmonicForce {
	return &HarmonicForce{ms: ms, k: k, sites: sites}
}

func (h *HarmonicForce) Name() string { return "harmonic-force" }

func (h *HarmonicForce) ElementSetup() error {
	if h.k < 0 {
		return fmt.Errorf("%w: negative spring constant %f", dynamo.ErrInvalidConfig, h.k)
	}
	if h.sites == nil {
		h.sites = h.ms.ReadPosition().Clone()
	}
	return nil
}

func (h *HarmonicForce) ElementTeardown() error { return nil }

// PotentialEnergy returns the potential of the last computed step.
func (h *HarmonicForce) PotentialEnergy() float64 { return h.potential }

func (h *HarmonicForce) ScheduleTask(_ dynamo.Step, _ dynamo.Time, register modular.RegisterRunFunc) {
	register(h.compute)
}

func (h *HarmonicForce) compute() error {
	x := h.ms.ReadPosition()
	n := x.Len()
	if len(h.sites) != n {
		return fmt.Errorf("%w: %d reference sites for %d atoms", dynamo.ErrSizeMismatch, len(h.sites), n)
	}
	if cap(h.scratch) < n {
		h.scratch = make([]dynamo.RVec, n)
	}
	scratch := h.scratch[:n]
	box := *h.ms.Box()

	dynamo.ParallelFor(n, parallelChunk, func(start, end int) {
		for i := start; i < end; i++ {
			scratch[i] = minimumImage(x.At(i).Sub(h.sites[i]), box).Scale(-h.k)
		}
	})

	// k|d|^2/2 == |F|^2/(2k)
	var potential float64
	for i := 0; i < n; i++ {
		potential += scratch[i].Norm2()
	}
	if h.k > 0 {
		potential /= 2 * h.k
	}
	h.potential = potential

	w := h.ms.WriteForce()
	defer w.Release()
	w.Enqueue(h.ms.Backend().CopyAsync(w.Slice(), scratch))
	if err := w.Sync(); err != nil {
		return fmt.Errorf("force transfer on %s: %w", h.ms.Backend().Name(), err)
	}
	return nil
}

// minimumImage wraps d into the nearest periodic image of a rectangular box.
// Box vectors of zero length leave that dimension unwrapped.
func minimumImage(d dynamo.RVec, box dynamo.Matrix) dynamo.RVec {
	for dim := 0; dim < 3; dim++ {
		l := box[dim][dim]
		if l > 0 {
			d[dim] -= l * math.Round(d[dim]/l)
		}
	}
	return d
}
