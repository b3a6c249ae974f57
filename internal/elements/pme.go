package elements

import (
	"log/slog"
	"math"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/microstate"
	"github.com/san-kum/modsim/internal/modular"
)

const DefaultGridSpacing = 0.12

// PmeLoadBalanceHelper keeps the PME grid matched to the box. Every interval
// steps it reads the box from the legacy state and picks, per dimension, the
// smallest FFT-friendly size giving a spacing no coarser than the target.
type PmeLoadBalanceHelper struct {
	modular.NopElement
	access   microstate.LegacyAccess
	spacing  float64
	interval int64
	logger   *slog.Logger

	grid    [3]int
	changes int
}

func NewPmeLoadBalanceHelper(access microstate.LegacyAccess, spacing float64, interval int64, logger *slog.Logger) *PmeLoadBalanceHelper {
	if spacing <= 0 {
		spacing = DefaultGridSpacing
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PmeLoadBalanceHelper{access: access, spacing: spacing, interval: interval, logger: logger}
}

func (p *PmeLoadBalanceHelper) Name() string { return "pme-load-balance" }

// Grid returns the current grid dimensions.
func (p *PmeLoadBalanceHelper) Grid() [3]int { return p.grid }

// Changes returns how often the grid changed after setup.
func (p *PmeLoadBalanceHelper) Changes() int { return p.changes }

func (p *PmeLoadBalanceHelper) ElementSetup() error {
	p.balance(0)
	return nil
}

func (p *PmeLoadBalanceHelper) ScheduleTask(step dynamo.Step, _ dynamo.Time, register modular.RegisterRunFunc) {
	if p.interval <= 0 || int64(step)%p.interval != 0 {
		return
	}
	register(func() error {
		p.balance(step)
		return nil
	})
}

func (p *PmeLoadBalanceHelper) balance(step dynamo.Step) {
	box := p.access.LocalState().Box
	var grid [3]int
	for dim := 0; dim < 3; dim++ {
		grid[dim] = fftSize(int(math.Ceil(box[dim][dim]/p.spacing - 1e-9)))
	}
	if grid != p.grid {
		if p.grid != [3]int{} {
			p.changes++
		}
		p.logger.Info("pme grid", "step", step, "nx", grid[0], "ny", grid[1], "nz", grid[2])
		p.grid = grid
	}
}

// fftSize returns the smallest n' >= max(n, 1) with no prime factor above 7.
func fftSize(n int) int {
	if n < 1 {
		n = 1
	}
	for ; ; n++ {
		m := n
		for _, f := range []int{2, 3, 5, 7} {
			for m%f == 0 {
				m /= f
			}
		}
		if m == 1 {
			return n
		}
	}
}
