package metrics

import (
	"math"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/modular"
)

// CenterOfMass returns the mean of x.
func CenterOfMass(x []dynamo.RVec) dynamo.RVec {
	var com dynamo.RVec
	if len(x) == 0 {
		return com
	}
	for _, xi := range x {
		com = com.Add(xi)
	}
	return com.Scale(1 / float64(len(x)))
}

// RMSD returns the root mean square displacement of x from ref. Only the
// common prefix is compared.
func RMSD(x, ref []dynamo.RVec) float64 {
	n := min(len(x), len(ref))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += x[i].Sub(ref[i]).Norm2()
	}
	return math.Sqrt(sum / float64(n))
}

// Displacement reports the RMSD of each observed frame from the first frame
// carrying positions.
type Displacement struct {
	ref     []dynamo.RVec
	current float64
}

func NewDisplacement() *Displacement {
	return &Displacement{}
}

func (d *Displacement) Name() string { return "rmsd" }

func (d *Displacement) Observe(f *modular.Frame) {
	if len(f.X) == 0 {
		return
	}
	if d.ref == nil {
		d.ref = append([]dynamo.RVec(nil), f.X...)
	}
	d.current = RMSD(f.X, d.ref)
}

func (d *Displacement) Value() float64 { return d.current }

func (d *Displacement) Reset() {
	d.ref = nil
	d.current = 0
}
