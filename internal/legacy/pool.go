package legacy

import "sync"

// Pool recycles States of a fixed atom count. Backups are taken on every
// write step, so reusing their vectors keeps the write path allocation free.
type Pool struct {
	pool   sync.Pool
	natoms int
	flags  Flags
}

func NewPool(natoms int, flags Flags) *Pool {
	return &Pool{
		natoms: natoms,
		flags:  flags,
		pool: sync.Pool{
			New: func() interface{} {
				return New(natoms, flags)
			},
		},
	}
}

func (p *Pool) NAtoms() int { return p.natoms }

func (p *Pool) Get() *State {
	return p.pool.Get().(*State)
}

// Put zeroes s and returns it to the pool. States of another size or layout
// are dropped.
func (p *Pool) Put(s *State) {
	if s == nil || s.NAtoms != p.natoms || s.Flags != p.flags {
		return
	}
	if len(s.X) != p.natoms && p.flags.Has(FlagX) || len(s.V) != p.natoms && p.flags.Has(FlagV) {
		return
	}
	for i := range s.X {
		s.X[i] = [3]float64{}
	}
	for i := range s.V {
		s.V[i] = [3]float64{}
	}
	s.DDPartitionCount = 0
	s.Box = [3][3]float64{}
	s.PreviousBox = [3][3]float64{}
	p.pool.Put(s)
}
