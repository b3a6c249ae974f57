package metrics

import (
	"testing"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/modular"
	"github.com/san-kum/modsim/internal/storage"
)

func TestObservingSink(t *testing.T) {
	mem := storage.NewMemorySink()
	sink := NewObservingSink(mem, NewDisplacement(), NewStability(0.5))

	frames := []*modular.Frame{
		{Step: 0, X: []dynamo.RVec{{0, 0, 0}, {1, 0, 0}}},
		{Step: 10, X: []dynamo.RVec{{0.1, 0, 0}, {1.1, 0, 0}}},
		{Step: 20, X: []dynamo.RVec{{2, 0, 0}, {3, 0, 0}}},
	}
	for _, f := range frames {
		if err := sink.WriteFrame(f); err != nil {
			t.Fatal(err)
		}
	}
	if err := sink.WriteEnergy(&modular.EnergyFrame{Step: 0, Terms: map[string]float64{"total": 1}}); err != nil {
		t.Fatal(err)
	}

	if got := len(mem.Frames()); got != 3 {
		t.Errorf("expected 3 frames forwarded, got %d", got)
	}
	if got := len(mem.Energies()); got != 1 {
		t.Errorf("expected 1 energy forwarded, got %d", got)
	}

	values := sink.Values()
	if values["rmsd"] != 2 {
		t.Errorf("expected rmsd 2, got %f", values["rmsd"])
	}
	if got := values["stability"]; got < 0.66 || got > 0.67 {
		t.Errorf("expected stability 2/3, got %f", got)
	}
}
