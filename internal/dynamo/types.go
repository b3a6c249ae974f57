package dynamo

import (
	"fmt"
	"math"
)

// Step is a discrete step number of the simulation.
type Step int64

// Time is simulated time in ps.
type Time float64

// SimdWidth is the number of vectors a padded buffer is rounded up to.
const SimdWidth = 4

// RVec is a 3-component real vector.
type RVec [3]float64

func (v RVec) Add(o RVec) RVec {
	return RVec{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

func (v RVec) Sub(o RVec) RVec {
	return RVec{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

func (v RVec) Scale(f float64) RVec {
	return RVec{v[0] * f, v[1] * f, v[2] * f}
}

func (v RVec) Dot(o RVec) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

func (v RVec) Norm2() float64 { return v.Dot(v) }

func (v RVec) IsValid() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Matrix is a box matrix; rows are the box vectors.
type Matrix [3][3]float64

// CubicBox returns a cubic box with the given edge length.
func CubicBox(edge float64) Matrix {
	return Matrix{{edge, 0, 0}, {0, edge, 0}, {0, 0, edge}}
}

// Volume assumes the lower-triangular box convention.
func (m Matrix) Volume() float64 {
	return m[0][0] * m[1][1] * m[2][2]
}

func (m Matrix) String() string {
	return fmt.Sprintf("[%g %g %g; %g %g %g; %g %g %g]",
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2])
}

// PaddedLength returns the allocation length for n vectors: n rounded up to
// SimdWidth plus one spare SIMD block, so kernels may read a full block past
// the last atom.
func PaddedLength(n int) int {
	if n <= 0 {
		return 0
	}
	return ((n+SimdWidth-1)/SimdWidth)*SimdWidth + SimdWidth
}

// WriteKind selects which trajectory fields are due at a step.
type WriteKind uint8

const (
	WritePosition WriteKind = 1 << iota
	WriteVelocity
	WriteForce
	WriteCompressedPosition
)

func (k WriteKind) Has(o WriteKind) bool { return k&o != 0 }

func (k WriteKind) String() string {
	if k == 0 {
		return "none"
	}
	s := ""
	for _, e := range []struct {
		kind WriteKind
		name string
	}{
		{WritePosition, "x"},
		{WriteVelocity, "v"},
		{WriteForce, "f"},
		{WriteCompressedPosition, "xc"},
	} {
		if k.Has(e.kind) {
			if s != "" {
				s += "|"
			}
			s += e.name
		}
	}
	return s
}
