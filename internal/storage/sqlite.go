package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/modular"
)

// SQLiteSink stores frames and energies in a SQLite database. Vectors are
// stored as JSON so frames round-trip without loss.
type SQLiteSink struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteSink(path string) *SQLiteSink {
	return &SQLiteSink{path: path}
}

func (s *SQLiteSink) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteSink) WriteFrame(f *modular.Frame) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	box, err := json.Marshal(f.Box)
	if err != nil {
		return err
	}
	vecs := make([][]byte, 3)
	for i, v := range [][]dynamo.RVec{f.X, f.V, f.F} {
		if v == nil {
			continue
		}
		if vecs[i], err = json.Marshal(v); err != nil {
			return err
		}
	}

	_, err = db.Exec(`
		INSERT INTO frames (step, time, kinds, box, x, v, f)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(step) DO UPDATE SET
			time = excluded.time,
			kinds = excluded.kinds,
			box = excluded.box,
			x = excluded.x,
			v = excluded.v,
			f = excluded.f
	`, int64(f.Step), float64(f.Time), int64(f.Kinds), box, vecs[0], vecs[1], vecs[2])
	return err
}

func (s *SQLiteSink) WriteEnergy(e *modular.EnergyFrame) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for term, value := range e.Terms {
		if _, err := tx.Exec(`
			INSERT INTO energies (step, time, term, value)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(step, term) DO UPDATE SET
				time = excluded.time,
				value = excluded.value
		`, int64(e.Step), float64(e.Time), term, value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadFrames returns all frames ordered by step.
func (s *SQLiteSink) LoadFrames(ctx context.Context) ([]*modular.Frame, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT step, time, kinds, box, x, v, f FROM frames ORDER BY step`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	frames := make([]*modular.Frame, 0)
	for rows.Next() {
		var (
			step, kinds int64
			t           float64
			box         []byte
			vecs        [3][]byte
		)
		if err := rows.Scan(&step, &t, &kinds, &box, &vecs[0], &vecs[1], &vecs[2]); err != nil {
			return nil, err
		}
		f := &modular.Frame{Step: dynamo.Step(step), Time: dynamo.Time(t), Kinds: dynamo.WriteKind(kinds)}
		if err := json.Unmarshal(box, &f.Box); err != nil {
			return nil, fmt.Errorf("decode box of step %d: %w", step, err)
		}
		for i, dst := range []*[]dynamo.RVec{&f.X, &f.V, &f.F} {
			if vecs[i] == nil {
				continue
			}
			if err := json.Unmarshal(vecs[i], dst); err != nil {
				return nil, fmt.Errorf("decode vectors of step %d: %w", step, err)
			}
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// LoadEnergies returns all energy frames ordered by step.
func (s *SQLiteSink) LoadEnergies(ctx context.Context) ([]*modular.EnergyFrame, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT step, time, term, value FROM energies ORDER BY step, term`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*modular.EnergyFrame, 0)
	var cur *modular.EnergyFrame
	for rows.Next() {
		var (
			step  int64
			t     float64
			term  string
			value float64
		)
		if err := rows.Scan(&step, &t, &term, &value); err != nil {
			return nil, err
		}
		if cur == nil || int64(cur.Step) != step {
			cur = &modular.EnergyFrame{Step: dynamo.Step(step), Time: dynamo.Time(t), Terms: make(map[string]float64)}
			out = append(out, cur)
		}
		cur.Terms[term] = value
	}
	return out, rows.Err()
}

func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteSink) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("sink is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS frames (
			step INTEGER PRIMARY KEY,
			time REAL NOT NULL,
			kinds INTEGER NOT NULL,
			box BLOB NOT NULL,
			x BLOB,
			v BLOB,
			f BLOB
		);
		CREATE TABLE IF NOT EXISTS energies (
			step INTEGER NOT NULL,
			time REAL NOT NULL,
			term TEXT NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (step, term)
		);
	`)
	return err
}
