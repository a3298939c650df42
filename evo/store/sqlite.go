package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/VinCheetah/Evolution/evo"
)

// SQLiteStore keeps one row per run holding its latest encoded record.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

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

func (s *SQLiteStore) SaveRecord(ctx context.Context, rec *evo.Record) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	var payload bytes.Buffer
	if err := evo.EncodeRecord(&payload, rec); err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO records (run_id, generation, saved_at, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			generation = excluded.generation,
			saved_at = excluded.saved_at,
			payload = excluded.payload
	`, rec.RunID, rec.Generation, rec.SavedAt.UnixNano(), payload.Bytes())
	if err != nil {
		return fmt.Errorf("save record %s: %w", rec.RunID, err)
	}
	return nil
}

func (s *SQLiteStore) LoadRecord(ctx context.Context, runID string) (*evo.Record, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM records WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(runID)
		}
		return nil, err
	}

	rec, err := evo.DecodeRecord(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decode record %s: %w", runID, err)
	}
	return rec, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunInfo, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT run_id, generation, saved_at FROM records ORDER BY run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var (
			info  RunInfo
			saved int64
		)
		if err := rows.Scan(&info.RunID, &info.Generation, &saved); err != nil {
			return nil, err
		}
		info.SavedAt = time.Unix(0, saved)
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

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
		CREATE TABLE IF NOT EXISTS records (
			run_id TEXT PRIMARY KEY,
			generation INTEGER NOT NULL,
			saved_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
