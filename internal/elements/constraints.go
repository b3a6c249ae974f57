package elements

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/metrics"
	"github.com/san-kum/modsim/internal/microstate"
	"github.com/san-kum/modsim/internal/modular"
)

// InitialConstraints constrains the starting state before the first step: the
// centre-of-mass velocity is removed so the system does not drift. It works on
// the legacy state and must be set up before MicroState so that velocity
// Verlet saves the constrained velocities.
type InitialConstraints struct {
	modular.NopElement
	access microstate.LegacyAccess
	logger *slog.Logger

	removed float64
}

func NewInitialConstraints(access microstate.LegacyAccess, logger *slog.Logger) *InitialConstraints {
	if logger == nil {
		logger = slog.Default()
	}
	return &InitialConstraints{access: access, logger: logger}
}

func (c *InitialConstraints) Name() string { return "initial-constraints" }

// Removed returns the magnitude of the centre-of-mass velocity removed.
func (c *InitialConstraints) Removed() float64 { return c.removed }

func (c *InitialConstraints) ElementSetup() error {
	ls := c.access.LocalState()
	if len(ls.V) == 0 {
		return nil
	}
	vcom := metrics.CenterOfMass(ls.V)
	for i := range ls.V {
		ls.V[i] = ls.V[i].Sub(vcom)
	}
	if err := c.access.SetLocalState(ls); err != nil {
		return fmt.Errorf("initial constraints: %w", err)
	}
	c.removed = math.Sqrt(vcom.Norm2())
	c.logger.Debug("removed centre-of-mass velocity", "vcom", c.removed)
	return nil
}

func (c *InitialConstraints) ScheduleTask(dynamo.Step, dynamo.Time, modular.RegisterRunFunc) {}
