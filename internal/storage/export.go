package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/modular"
)

type ExportFrame struct {
	Step  int64         `json:"step"`
	Time  float64       `json:"time"`
	Kinds string        `json:"kinds"`
	Box   dynamo.Matrix `json:"box"`
	X     []dynamo.RVec `json:"x,omitempty"`
	V     []dynamo.RVec `json:"v,omitempty"`
	F     []dynamo.RVec `json:"f,omitempty"`
}

type ExportEnergy struct {
	Step  int64              `json:"step"`
	Time  float64            `json:"time"`
	Terms map[string]float64 `json:"terms"`
}

type ExportData struct {
	Run      RunMetadata    `json:"run"`
	Frames   []ExportFrame  `json:"frames"`
	Energies []ExportEnergy `json:"energies"`
}

// ExportJSON writes a run with all its frames and energies as indented JSON.
func ExportJSON(w io.Writer, meta *RunMetadata, frames []*modular.Frame, energies []*modular.EnergyFrame) error {
	data := ExportData{
		Run:      *meta,
		Frames:   make([]ExportFrame, len(frames)),
		Energies: make([]ExportEnergy, len(energies)),
	}

	for i, f := range frames {
		data.Frames[i] = ExportFrame{
			Step:  int64(f.Step),
			Time:  float64(f.Time),
			Kinds: f.Kinds.String(),
			Box:   f.Box,
			X:     f.X,
			V:     f.V,
			F:     f.F,
		}
	}
	for i, e := range energies {
		data.Energies[i] = ExportEnergy{Step: int64(e.Step), Time: float64(e.Time), Terms: e.Terms}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
