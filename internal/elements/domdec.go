package elements

import (
	"log/slog"
	"math"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/microstate"
	"github.com/san-kum/modsim/internal/modular"
)

// DomDecHelper repartitions the local state every interval steps. With a
// single domain the local atom set is the global one; partitioning puts every
// atom back into the primary box and starts a new partition generation.
type DomDecHelper struct {
	modular.NopElement
	access   microstate.LegacyAccess
	interval int64
	logger   *slog.Logger

	partitions int
}

func NewDomDecHelper(access microstate.LegacyAccess, interval int64, logger *slog.Logger) *DomDecHelper {
	if logger == nil {
		logger = slog.Default()
	}
	return &DomDecHelper{access: access, interval: interval, logger: logger}
}

func (d *DomDecHelper) Name() string { return "domdec" }

// Partitions returns the number of partitions performed.
func (d *DomDecHelper) Partitions() int { return d.partitions }

func (d *DomDecHelper) ScheduleTask(step dynamo.Step, _ dynamo.Time, register modular.RegisterRunFunc) {
	if d.interval <= 0 || int64(step)%d.interval != 0 {
		return
	}
	register(func() error {
		return d.partition(step)
	})
}

func (d *DomDecHelper) partition(step dynamo.Step) error {
	ls := d.access.LocalState()
	d.access.BeginPartition()

	wrapped := 0
	for i := range ls.X {
		if putInBox(&ls.X[i], ls.Box) {
			wrapped++
		}
	}
	if err := d.access.Repartition(ls); err != nil {
		return err
	}
	if n := len(d.access.Force()); n != ls.NAtoms {
		return &dynamo.SizeMismatchError{Want: ls.NAtoms, Got: n}
	}
	d.partitions++
	d.logger.Info("repartitioned", "step", step, "wrapped", wrapped, "generation", d.access.PartitionCount())
	return nil
}

// putInBox wraps x into [0, L) along each dimension of a rectangular box and
// reports whether it moved.
func putInBox(x *dynamo.RVec, box dynamo.Matrix) bool {
	moved := false
	for dim := 0; dim < 3; dim++ {
		l := box[dim][dim]
		if l <= 0 {
			continue
		}
		if x[dim] < 0 || x[dim] >= l {
			x[dim] -= l * math.Floor(x[dim]/l)
			moved = true
		}
	}
	return moved
}
