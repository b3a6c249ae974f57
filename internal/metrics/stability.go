package metrics

import (
	"github.com/san-kum/modsim/internal/modular"
)

// Stability is the fraction of frames whose positions are all finite and
// within threshold of the first frame.
type Stability struct {
	name       string
	threshold  float64
	ref        *Displacement
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
		ref:       NewDisplacement(),
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(f *modular.Frame) {
	if len(f.X) == 0 {
		return
	}
	s.samples++
	for _, x := range f.X {
		if !x.IsValid() {
			s.violations++
			return
		}
	}
	s.ref.Observe(f)
	if s.ref.Value() > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.ref.Reset()
	s.violations = 0
	s.samples = 0
}
