package storage

import (
	"sync"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/modular"
)

// MemorySink keeps deep copies of everything written.
type MemorySink struct {
	mu       sync.RWMutex
	frames   []*modular.Frame
	energies []*modular.EnergyFrame
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func cloneVecs(v []dynamo.RVec) []dynamo.RVec {
	if v == nil {
		return nil
	}
	return append([]dynamo.RVec(nil), v...)
}

func (m *MemorySink) WriteFrame(f *modular.Frame) error {
	c := *f
	c.X = cloneVecs(f.X)
	c.V = cloneVecs(f.V)
	c.F = cloneVecs(f.F)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, &c)
	return nil
}

func (m *MemorySink) WriteEnergy(e *modular.EnergyFrame) error {
	c := *e
	c.Terms = make(map[string]float64, len(e.Terms))
	for k, v := range e.Terms {
		c.Terms[k] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.energies = append(m.energies, &c)
	return nil
}

func (m *MemorySink) Frames() []*modular.Frame {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*modular.Frame(nil), m.frames...)
}

func (m *MemorySink) Energies() []*modular.EnergyFrame {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*modular.EnergyFrame(nil), m.energies...)
}
