package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/modular"
)

var frameHeader = []string{
	"step", "time", "kinds", "box_x", "box_y", "box_z",
	"atom", "x", "y", "z", "vx", "vy", "vz", "fx", "fy", "fz",
}

// CSVSink writes one row per atom per frame, and one row per energy frame
// with a column per term. Fields not due in a frame are left empty.
type CSVSink struct {
	frames   *csv.Writer
	energies *csv.Writer

	frameHeaderDone bool
	energyTerms     []string
}

func NewCSVSink(frames, energies io.Writer) *CSVSink {
	return &CSVSink{
		frames:   csv.NewWriter(frames),
		energies: csv.NewWriter(energies),
	}
}

// formatFloat writes the shortest text that parses back to v exactly.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func appendVec(row []string, vs []dynamo.RVec, i int) []string {
	if i >= len(vs) {
		return append(row, "", "", "")
	}
	return append(row, formatFloat(vs[i][0]), formatFloat(vs[i][1]), formatFloat(vs[i][2]))
}

func (s *CSVSink) WriteFrame(f *modular.Frame) error {
	if !s.frameHeaderDone {
		if err := s.frames.Write(frameHeader); err != nil {
			return err
		}
		s.frameHeaderDone = true
	}

	natoms := max(len(f.X), len(f.V), len(f.F))
	prefix := []string{
		strconv.FormatInt(int64(f.Step), 10),
		formatFloat(float64(f.Time)),
		strconv.Itoa(int(f.Kinds)),
		formatFloat(f.Box[0][0]),
		formatFloat(f.Box[1][1]),
		formatFloat(f.Box[2][2]),
	}
	row := make([]string, 0, len(frameHeader))
	for i := 0; i < natoms; i++ {
		row = append(row[:0], prefix...)
		row = append(row, strconv.Itoa(i))
		row = appendVec(row, f.X, i)
		row = appendVec(row, f.V, i)
		row = appendVec(row, f.F, i)
		if err := s.frames.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *CSVSink) WriteEnergy(e *modular.EnergyFrame) error {
	if s.energyTerms == nil {
		s.energyTerms = make([]string, 0, len(e.Terms))
		for term := range e.Terms {
			s.energyTerms = append(s.energyTerms, term)
		}
		sort.Strings(s.energyTerms)
		if err := s.energies.Write(append([]string{"step", "time"}, s.energyTerms...)); err != nil {
			return err
		}
	}

	row := []string{strconv.FormatInt(int64(e.Step), 10), formatFloat(float64(e.Time))}
	for _, term := range s.energyTerms {
		v, ok := e.Terms[term]
		if !ok {
			row = append(row, "")
			continue
		}
		row = append(row, formatFloat(v))
	}
	return s.energies.Write(row)
}

// Flush writes any buffered rows and reports the first write error.
func (s *CSVSink) Flush() error {
	s.frames.Flush()
	s.energies.Flush()
	if err := s.frames.Error(); err != nil {
		return err
	}
	return s.energies.Error()
}

func parseVec(cells []string) (dynamo.RVec, bool, error) {
	var v dynamo.RVec
	if cells[0] == "" {
		return v, false, nil
	}
	for i := range v {
		f, err := strconv.ParseFloat(cells[i], 64)
		if err != nil {
			return v, false, err
		}
		v[i] = f
	}
	return v, true, nil
}

// ReadCSVFrames reads frames written by CSVSink.
func ReadCSVFrames(r io.Reader) ([]*modular.Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(frameHeader)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []*modular.Frame{}, nil
	}

	frames := make([]*modular.Frame, 0)
	var cur *modular.Frame
	for line, rec := range records[1:] {
		step, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("frames.csv line %d: %w", line+2, err)
		}
		if cur == nil || int64(cur.Step) != step {
			cur, err = parseFrameHead(rec)
			if err != nil {
				return nil, fmt.Errorf("frames.csv line %d: %w", line+2, err)
			}
			frames = append(frames, cur)
		}
		for i, dst := range []*[]dynamo.RVec{&cur.X, &cur.V, &cur.F} {
			v, ok, err := parseVec(rec[7+3*i : 10+3*i])
			if err != nil {
				return nil, fmt.Errorf("frames.csv line %d: %w", line+2, err)
			}
			if ok {
				*dst = append(*dst, v)
			}
		}
	}
	return frames, nil
}

func parseFrameHead(rec []string) (*modular.Frame, error) {
	step, err := strconv.ParseInt(rec[0], 10, 64)
	if err != nil {
		return nil, err
	}
	t, err := strconv.ParseFloat(rec[1], 64)
	if err != nil {
		return nil, err
	}
	kinds, err := strconv.Atoi(rec[2])
	if err != nil {
		return nil, err
	}
	f := &modular.Frame{Step: dynamo.Step(step), Time: dynamo.Time(t), Kinds: dynamo.WriteKind(kinds)}
	for i := 0; i < 3; i++ {
		edge, err := strconv.ParseFloat(rec[3+i], 64)
		if err != nil {
			return nil, err
		}
		f.Box[i][i] = edge
	}
	return f, nil
}

// ReadCSVEnergies reads energy frames written by CSVSink.
func ReadCSVEnergies(r io.Reader) ([]*modular.EnergyFrame, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []*modular.EnergyFrame{}, nil
	}

	terms := records[0][2:]
	out := make([]*modular.EnergyFrame, 0, len(records)-1)
	for line, rec := range records[1:] {
		step, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("energies.csv line %d: %w", line+2, err)
		}
		t, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("energies.csv line %d: %w", line+2, err)
		}
		e := &modular.EnergyFrame{Step: dynamo.Step(step), Time: dynamo.Time(t), Terms: make(map[string]float64, len(terms))}
		for i, term := range terms {
			if rec[2+i] == "" {
				continue
			}
			v, err := strconv.ParseFloat(rec[2+i], 64)
			if err != nil {
				return nil, fmt.Errorf("energies.csv line %d: %w", line+2, err)
			}
			e.Terms[term] = v
		}
		out = append(out, e)
	}
	return out, nil
}
