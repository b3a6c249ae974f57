package state

import (
	"github.com/san-kum/modsim/internal/compute"
	"github.com/san-kum/modsim/internal/dynamo"
)

// Field names one of the per-atom buffers.
type Field int

const (
	FieldPosition Field = iota
	FieldPreviousPosition
	FieldVelocity
	FieldForce
	numFields
)

func (f Field) String() string {
	switch f {
	case FieldPosition:
		return "position"
	case FieldPreviousPosition:
		return "previous position"
	case FieldVelocity:
		return "velocity"
	case FieldForce:
		return "force"
	default:
		return "unknown"
	}
}

// paddedVector holds n logical entries followed by a zeroed pad region that
// SIMD kernels may read but never reduce over.
type paddedVector struct {
	data []dynamo.RVec
	n    int
}

func newPaddedVector(alloc func(int) []dynamo.RVec, n int) paddedVector {
	return paddedVector{data: alloc(dynamo.PaddedLength(n)), n: n}
}

// resized returns a vector of length n keeping the common prefix.
func (p paddedVector) resized(alloc func(int) []dynamo.RVec, n int) paddedVector {
	if n == p.n {
		return p
	}
	out := newPaddedVector(alloc, n)
	copy(out.data[:min(n, p.n)], p.data[:min(n, p.n)])
	return out
}

// ReadView is a read-only view of one buffer.
type ReadView struct {
	data []dynamo.RVec
	n    int
}

func (v ReadView) Len() int       { return v.n }
func (v ReadView) PaddedLen() int { return len(v.data) }

func (v ReadView) At(i int) dynamo.RVec {
	if i < 0 || i >= v.n {
		panic("state: read view index out of range")
	}
	return v.data[i]
}

// CopyTo copies the logical entries into dst and returns the number copied.
func (v ReadView) CopyTo(dst []dynamo.RVec) int {
	return copy(dst, v.data[:v.n])
}

// Clone returns a copy of the logical entries.
func (v ReadView) Clone() []dynamo.RVec {
	out := make([]dynamo.RVec, v.n)
	copy(out, v.data[:v.n])
	return out
}

// WriteView is a scoped mutable view of one buffer. At most one write view per
// field may be live; it ends with Release.
type WriteView struct {
	s        *State
	field    Field
	data     []dynamo.RVec
	n        int
	fences   []compute.Fence
	released bool
}

func (v *WriteView) check() {
	if v.released {
		dynamo.Violate(dynamo.ViolationUnscopedAccess, "%s write view used after release", v.field)
	}
}

func (v *WriteView) Field() Field { return v.field }
func (v *WriteView) Len() int     { return v.n }

// Slice returns the logical entries.
func (v *WriteView) Slice() []dynamo.RVec {
	v.check()
	return v.data[:v.n]
}

// Padded returns the full allocation; writers must leave the pad zeroed.
func (v *WriteView) Padded() []dynamo.RVec {
	v.check()
	return v.data
}

// Enqueue records a device operation that writes into this view.
func (v *WriteView) Enqueue(f compute.Fence) {
	v.check()
	v.fences = append(v.fences, f)
}

// Sync joins every enqueued device operation. Device failures are returned as
// they are; the fences count as joined either way.
func (v *WriteView) Sync() error {
	v.check()
	fences := v.fences
	v.fences = nil
	var first error
	for _, f := range fences {
		if err := f.Wait(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Release ends the view. Releasing with unjoined device operations would let
// the host read memory the device may still be writing.
func (v *WriteView) Release() {
	v.check()
	if len(v.fences) > 0 {
		dynamo.Violate(dynamo.ViolationUnscopedAccess,
			"%s write view released with %d unjoined device operations", v.field, len(v.fences))
	}
	v.released = true
	v.s.live[v.field] = nil
}
