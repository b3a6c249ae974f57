// Package storage persists trajectories. A Store keeps one directory per run
// holding metadata.json plus either CSV files or a SQLite database.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/modsim/internal/modular"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
	energiesFile = "energies.csv"
	databaseFile = "trajectory.db"
)

// Formats a run can be stored in.
const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// ErrRunNotFound indicates an unknown run ID.
var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string                 `json:"id"`
	Timestamp  time.Time              `json:"timestamp"`
	Format     string                 `json:"format"`
	Integrator string                 `json:"integrator"`
	NAtoms     int                    `json:"natoms"`
	NSteps     int64                  `json:"nsteps"`
	Dt         float64                `json:"dt"`
	Seed       int64                  `json:"seed"`
	UseGPU     bool                   `json:"use_gpu"`
	Intervals  modular.WriteIntervals `json:"intervals"`
	Frames     int                    `json:"frames"`
	Energies   int                    `json:"energies"`
	Elapsed    time.Duration          `json:"elapsed_ns"`
	Metrics    map[string]float64     `json:"metrics"`
}

// Run is a run directory open for writing. It is the sink handed to the
// trajectory element.
type Run struct {
	dir  string
	meta RunMetadata

	csv    *CSVSink
	files  []*os.File
	sqlite *SQLiteSink
}

// Create makes a new run directory for meta.Format and opens its sink. The
// ID is assigned here.
func (s *Store) Create(ctx context.Context, meta RunMetadata) (*Run, error) {
	meta.ID = fmt.Sprintf("%s_%s", meta.Integrator, uuid.NewString()[:8])
	meta.Timestamp = time.Now()
	if meta.Format == "" {
		meta.Format = FormatCSV
	}

	dir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	r := &Run{dir: dir, meta: meta}

	switch meta.Format {
	case FormatCSV:
		frames, err := os.Create(filepath.Join(dir, framesFile))
		if err != nil {
			return nil, err
		}
		energies, err := os.Create(filepath.Join(dir, energiesFile))
		if err != nil {
			_ = frames.Close()
			return nil, err
		}
		r.files = []*os.File{frames, energies}
		r.csv = NewCSVSink(frames, energies)
	case FormatSQLite:
		r.sqlite = NewSQLiteSink(filepath.Join(dir, databaseFile))
		if err := r.sqlite.Init(ctx); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported run format: %s", meta.Format)
	}
	return r, nil
}

func (r *Run) ID() string  { return r.meta.ID }
func (r *Run) Dir() string { return r.dir }

func (r *Run) sink() modular.Sink {
	if r.sqlite != nil {
		return r.sqlite
	}
	return r.csv
}

func (r *Run) WriteFrame(f *modular.Frame) error {
	if err := r.sink().WriteFrame(f); err != nil {
		return err
	}
	r.meta.Frames++
	return nil
}

func (r *Run) WriteEnergy(e *modular.EnergyFrame) error {
	if err := r.sink().WriteEnergy(e); err != nil {
		return err
	}
	r.meta.Energies++
	return nil
}

// Close flushes the sink and writes metadata.json with the given summary.
func (r *Run) Close(elapsed time.Duration, metrics map[string]float64) error {
	var errs []error
	if r.csv != nil {
		errs = append(errs, r.csv.Flush())
	}
	for _, f := range r.files {
		errs = append(errs, f.Close())
	}
	if r.sqlite != nil {
		errs = append(errs, r.sqlite.Close())
	}

	r.meta.Elapsed = elapsed
	r.meta.Metrics = metrics
	errs = append(errs, writeMetadata(filepath.Join(r.dir, metadataFile), r.meta))
	return errors.Join(errs...)
}

// Metadata returns the metadata as it will be written on Close.
func (r *Run) Metadata() RunMetadata { return r.meta }

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}

		runs = append(runs, *meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadFrames reads the trajectory frames of a run.
func (s *Store) LoadFrames(ctx context.Context, runID string) ([]*modular.Frame, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	if meta.Format == FormatSQLite {
		db, err := s.openDatabase(ctx, runID)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return db.LoadFrames(ctx)
	}

	f, err := os.Open(filepath.Join(s.baseDir, runID, framesFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSVFrames(f)
}

// LoadEnergies reads the energy frames of a run.
func (s *Store) LoadEnergies(ctx context.Context, runID string) ([]*modular.EnergyFrame, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	if meta.Format == FormatSQLite {
		db, err := s.openDatabase(ctx, runID)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return db.LoadEnergies(ctx)
	}

	f, err := os.Open(filepath.Join(s.baseDir, runID, energiesFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSVEnergies(f)
}

func (s *Store) openDatabase(ctx context.Context, runID string) (*SQLiteSink, error) {
	db := NewSQLiteSink(filepath.Join(s.baseDir, runID, databaseFile))
	if err := db.Init(ctx); err != nil {
		return nil, err
	}
	return db, nil
}
