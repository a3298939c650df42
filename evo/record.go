package evo

import (
	"compress/gzip"
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"time"
)

// IndividualRecord is the persisted form of one individual.
type IndividualRecord struct {
	Meta Meta
	Data Data
}

// ParamChange is one entry of the parameter timeline: a value applied at
// the start of a generation.
type ParamChange struct {
	Generation int
	Name       string
	Value      string
}

// Record is the resume snapshot of a run.
type Record struct {
	RunID          string
	SavedAt        time.Time
	Config         Config
	Seed           uint64
	RNGState       []byte
	Generation     int
	Elapsed        time.Duration
	NextID         int
	Population     []IndividualRecord
	Elite          []IndividualRecord
	Timeline       []ParamChange
	ComponentState map[string][]byte
}

// Stateful is implemented by components whose internal state must travel
// with a record, such as the NEAT innovation tracker.
type Stateful interface {
	StateKey() string
	MarshalState() ([]byte, error)
	RestoreState(data []byte) error
}

// RecordSink persists records, for instance a database-backed store.
type RecordSink interface {
	SaveRecord(ctx context.Context, rec *Record) error
	LoadRecord(ctx context.Context, runID string) (*Record, error)
}

func recordOf(ind Individual) IndividualRecord {
	return IndividualRecord{Meta: ind.Base().Clone(), Data: ind.Data()}
}

// EncodeRecord writes rec as gzip-compressed gob.
func EncodeRecord(w io.Writer, rec *Record) error {
	gz := gzip.NewWriter(w)
	if err := gob.NewEncoder(gz).Encode(rec); err != nil {
		_ = gz.Close()
		return fmt.Errorf("encode record: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("flush record: %w", err)
	}
	return nil
}

// DecodeRecord reads a record written by EncodeRecord.
func DecodeRecord(r io.Reader) (*Record, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for record: %w", err)
	}
	defer gz.Close()
	rec := &Record{}
	if err := gob.NewDecoder(gz).Decode(rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// SaveCheckpoint writes rec to a file.
func SaveCheckpoint(path string, rec *Record) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file '%s': %w", path, err)
	}
	if err := EncodeRecord(file, rec); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// LoadCheckpoint reads a record from a file written by SaveCheckpoint.
func LoadCheckpoint(path string) (*Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file '%s': %w", path, err)
	}
	defer file.Close()
	rec, err := DecodeRecord(file)
	if err != nil {
		return nil, fmt.Errorf("checkpoint '%s': %w", path, err)
	}
	return rec, nil
}
