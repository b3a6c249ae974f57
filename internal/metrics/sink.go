package metrics

import "github.com/san-kum/modsim/internal/modular"

// ObservingSink feeds every frame to its metrics before passing it on.
type ObservingSink struct {
	next    modular.Sink
	metrics []Metric
}

func NewObservingSink(next modular.Sink, metrics ...Metric) *ObservingSink {
	return &ObservingSink{next: next, metrics: metrics}
}

func (s *ObservingSink) WriteFrame(f *modular.Frame) error {
	for _, m := range s.metrics {
		m.Observe(f)
	}
	return s.next.WriteFrame(f)
}

func (s *ObservingSink) WriteEnergy(e *modular.EnergyFrame) error {
	return s.next.WriteEnergy(e)
}

// Values returns the current value of each metric by name.
func (s *ObservingSink) Values() map[string]float64 {
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}
