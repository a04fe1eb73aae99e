package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	_ "modernc.org/sqlite"

	"github.com/kilianp07/gridsim/core/timeseries"
	"github.com/kilianp07/gridsim/infra/logger"
)

// ErrUnknownSeries is returned when no numeric point is stored for a name.
var ErrUnknownSeries = errors.New("unknown series")

// SeriesStore is a run listener persisting every valid point it receives
// into a SQLite database. No-data positions are not stored.
type SeriesStore struct {
	db     *sql.DB
	runID  string
	log    logger.Logger
	failed atomic.Int64
	stored atomic.Int64
}

// NewSeriesStore opens or creates the database at path. runID labels the
// points written by this instance.
func NewSeriesStore(path, runID string, log logger.Logger) (*SeriesStore, error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer at a time, OnChunkResult is called concurrently
	db.SetMaxOpenConns(1)
	schema := `CREATE TABLE IF NOT EXISTS series_points (
        run_id TEXT,
        version INTEGER,
        name TEXT,
        tags TEXT,
        variant INTEGER,
        num REAL,
        str TEXT
    );
    CREATE INDEX IF NOT EXISTS series_points_name ON series_points (name, run_id, version);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SeriesStore{db: db, runID: runID, log: log}, nil
}

func (s *SeriesStore) OnBegin() {
	s.log.Infof("storing series of run %s", s.runID)
}

func (s *SeriesStore) OnVersionBegin(int) {}

func (s *SeriesStore) OnChunkResult(version, chunk int, series []timeseries.Series) {
	n, err := s.write(context.Background(), version, series)
	if err != nil {
		s.failed.Add(1)
		s.log.Errorf("store chunk %d of version %d: %v", chunk, version, err)
		return
	}
	s.stored.Add(int64(n))
}

func (s *SeriesStore) OnVersionEnd(version int) {
	s.log.Debugf("version %d stored", version)
}

func (s *SeriesStore) OnEnd() {
	s.log.Infof("run %s: %d points stored, %d chunks failed", s.runID, s.stored.Load(), s.failed.Load())
}

// Failed returns the number of chunks that could not be stored.
func (s *SeriesStore) Failed() int64 { return s.failed.Load() }

func (s *SeriesStore) write(ctx context.Context, version int, series []timeseries.Series) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO series_points (run_id, version, name, tags, variant, num, str) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for _, ts := range series {
		meta := ts.Metadata()
		tags, err := json.Marshal(meta.Tags)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		insert := func(variant int, num, str any) error {
			n++
			_, err := stmt.ExecContext(ctx, s.runID, version, meta.Name, string(tags), variant, num, str)
			return err
		}
		switch v := ts.(type) {
		case *timeseries.DoubleSeries:
			for i, p := range v.Points() {
				if p.Valid {
					if err := insert(v.Offset()+i, p.Value, nil); err != nil {
						_ = tx.Rollback()
						return 0, err
					}
				}
			}
		case *timeseries.StringSeries:
			for i, p := range v.Points() {
				if p.Valid {
					if err := insert(v.Offset()+i, nil, p.Value); err != nil {
						_ = tx.Rollback()
						return 0, err
					}
				}
			}
		default:
			_ = tx.Rollback()
			return 0, fmt.Errorf("series %s: unsupported type %T", meta.Name, ts)
		}
	}
	return n, tx.Commit()
}

// Filter narrows a summary to one run and/or version.
type Filter struct {
	RunID   string
	Version *int
}

// Summary holds descriptive statistics of a numeric series.
type Summary struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// Summary computes statistics over the stored numeric points of name.
func (s *SeriesStore) Summary(ctx context.Context, name string, f Filter) (Summary, error) {
	query := `SELECT num FROM series_points WHERE name = ? AND num IS NOT NULL`
	args := []any{name}
	if f.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, f.RunID)
	}
	if f.Version != nil {
		query += ` AND version = ?`
		args = append(args, *f.Version)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()
	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return Summary{}, err
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	if len(values) == 0 {
		return Summary{}, fmt.Errorf("%w: %s", ErrUnknownSeries, name)
	}
	sort.Float64s(values)
	sum := Summary{
		Name:   name,
		Count:  len(values),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Median: stat.Quantile(0.5, stat.Empirical, values, nil),
	}
	sum.Mean, sum.StdDev = stat.MeanStdDev(values, nil)
	return sum, nil
}

// Names lists the stored series names in lexical order.
func (s *SeriesStore) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT name FROM series_points ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Close closes the database.
func (s *SeriesStore) Close() error { return s.db.Close() }
