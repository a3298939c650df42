package store

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/VinCheetah/Evolution/evo"
)

type memoryEntry struct {
	info    RunInfo
	payload []byte
}

// MemoryStore keeps encoded records in a map. Records are encoded on save so
// later changes to a saved record never leak into the store.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	records     map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.records = make(map[string]memoryEntry)
	return nil
}

func (s *MemoryStore) SaveRecord(_ context.Context, rec *evo.Record) error {
	var buf bytes.Buffer
	if err := evo.EncodeRecord(&buf, rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.records[rec.RunID] = memoryEntry{
		info:    RunInfo{RunID: rec.RunID, Generation: rec.Generation, SavedAt: rec.SavedAt},
		payload: buf.Bytes(),
	}
	return nil
}

func (s *MemoryStore) LoadRecord(_ context.Context, runID string) (*evo.Record, error) {
	s.mu.RLock()
	entry, ok := s.records[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(runID)
	}
	return evo.DecodeRecord(bytes.NewReader(entry.payload))
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]RunInfo, 0, len(s.records))
	for _, entry := range s.records {
		runs = append(runs, entry.info)
	}
	slices.SortFunc(runs, func(a, b RunInfo) int { return strings.Compare(a.RunID, b.RunID) })
	return runs, nil
}

func (s *MemoryStore) Close() error { return nil }
