// Package storage persists runs to SQLite: config snapshots, generation
// statistics, and the evolved network populations, keyed by a run ID so a
// run can be resumed or reproduced later.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"evosim/config"
	"evosim/neural"
	"evosim/telemetry"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path  string
	runID string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore creates an unopened store for the given database path.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Init opens the database and creates the schema. Idempotent.
func (s *SQLiteStore) Init(ctx context.Context) error {
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

// BeginRun registers a new run with a config snapshot and returns its ID.
// Subsequent SaveGeneration calls attach to this run.
func (s *SQLiteStore) BeginRun(ctx context.Context, cfg *config.Config, seed int64) (string, error) {
	db, err := s.getDB()
	if err != nil {
		return "", err
	}

	snapshot, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config snapshot: %w", err)
	}

	runID := uuid.NewString()
	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, seed, config)
		VALUES (?, ?, ?)
	`, runID, seed, snapshot)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.runID = runID
	s.mu.Unlock()
	return runID, nil
}

// ResumeRun attaches the store to an existing run ID.
func (s *SQLiteStore) ResumeRun(ctx context.Context, runID string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	var exists int
	err = db.QueryRowContext(ctx, `SELECT COUNT(1) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("run %s not found", runID)
	}

	s.mu.Lock()
	s.runID = runID
	s.mu.Unlock()
	return nil
}

// RunID returns the active run identifier, empty before BeginRun.
func (s *SQLiteStore) RunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

// SaveGeneration checkpoints one generation: its stats row plus every
// network's weights and score. Re-saving the same generation overwrites it.
func (s *SQLiteStore) SaveGeneration(ctx context.Context, generation int, stats telemetry.GenerationStats, nets []*neural.Network, scores []float64) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	runID := s.RunID()
	if runID == "" {
		return errors.New("no active run, call BeginRun first")
	}
	if len(nets) != len(scores) {
		return fmt.Errorf("network count %d does not match score count %d", len(nets), len(scores))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO generations (run_id, generation, ticks, survivors, population, best, worst, mean, stddev)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			ticks = excluded.ticks,
			survivors = excluded.survivors,
			population = excluded.population,
			best = excluded.best,
			worst = excluded.worst,
			mean = excluded.mean,
			stddev = excluded.stddev
	`, runID, generation, stats.Ticks, stats.Survivors, stats.Population,
		stats.Best, stats.Worst, stats.Mean, stats.StdDev)
	if err != nil {
		return fmt.Errorf("save generation %d: %w", generation, err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM networks WHERE run_id = ? AND generation = ?
	`, runID, generation); err != nil {
		return err
	}

	for i, net := range nets {
		payload, err := net.MarshalWeights()
		if err != nil {
			return fmt.Errorf("encode network %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO networks (run_id, generation, idx, score, payload)
			VALUES (?, ?, ?, ?, ?)
		`, runID, generation, i, scores[i], payload); err != nil {
			return fmt.Errorf("save network %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadPopulation reads back a checkpointed generation's networks and scores
// in their stored order. The bool reports whether the generation exists.
func (s *SQLiteStore) LoadPopulation(ctx context.Context, generation int) ([]*neural.Network, []float64, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, nil, false, err
	}
	runID := s.RunID()
	if runID == "" {
		return nil, nil, false, errors.New("no active run")
	}

	rows, err := db.QueryContext(ctx, `
		SELECT score, payload FROM networks
		WHERE run_id = ? AND generation = ?
		ORDER BY idx
	`, runID, generation)
	if err != nil {
		return nil, nil, false, err
	}
	defer rows.Close()

	var nets []*neural.Network
	var scores []float64
	for rows.Next() {
		var score float64
		var payload []byte
		if err := rows.Scan(&score, &payload); err != nil {
			return nil, nil, false, err
		}
		net, err := neural.UnmarshalWeights(payload)
		if err != nil {
			return nil, nil, false, fmt.Errorf("decode network %d of generation %d: %w", len(nets), generation, err)
		}
		nets = append(nets, net)
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, false, err
	}
	if len(nets) == 0 {
		return nil, nil, false, nil
	}
	return nets, scores, true, nil
}

// LatestGeneration returns the highest checkpointed generation index for the
// active run, or false when none exist.
func (s *SQLiteStore) LatestGeneration(ctx context.Context) (int, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, false, err
	}
	runID := s.RunID()
	if runID == "" {
		return 0, false, errors.New("no active run")
	}

	var gen sql.NullInt64
	err = db.QueryRowContext(ctx, `
		SELECT MAX(generation) FROM generations WHERE run_id = ?
	`, runID).Scan(&gen)
	if err != nil {
		return 0, false, err
	}
	if !gen.Valid {
		return 0, false, nil
	}
	return int(gen.Int64), true, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			config BLOB NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS generations (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			ticks INTEGER NOT NULL,
			survivors INTEGER NOT NULL,
			population INTEGER NOT NULL,
			best REAL NOT NULL,
			worst REAL NOT NULL,
			mean REAL NOT NULL,
			stddev REAL NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
		CREATE TABLE IF NOT EXISTS networks (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			score REAL NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (run_id, generation, idx)
		);
	`)
	return err
}
