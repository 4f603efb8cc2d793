package carousel

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// MemorySink keeps saved artifacts in memory (test/dev only).
type MemorySink struct {
	mu        sync.RWMutex
	artifacts []Artifact
}

// NewMemorySink creates an in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Save stores a copy of the artifact.
func (s *MemorySink) Save(ctx context.Context, artifact Artifact) error {
	_ = ctx
	if artifact.Filename == "" {
		return NewError(KindValidation, "artifact filename is required", nil)
	}
	artifact.Data = append([]byte(nil), artifact.Data...)

	s.mu.Lock()
	s.artifacts = append(s.artifacts, artifact)
	s.mu.Unlock()
	return nil
}

// Artifacts returns the saved artifacts in save order.
func (s *MemorySink) Artifacts() []Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Artifact, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}

// Len returns the number of saved artifacts.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.artifacts)
}

// MemoryTracker stores export history in memory (test/dev only).
type MemoryTracker struct {
	mu      sync.RWMutex
	records map[string]ExportRecord
	counter uint64
}

// NewMemoryTracker creates an in-memory tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{records: make(map[string]ExportRecord)}
}

// Start creates a new record.
func (t *MemoryTracker) Start(ctx context.Context, record ExportRecord) (string, error) {
	_ = ctx
	if record.ID == "" {
		record.ID = t.nextID()
	}
	if record.State == "" {
		record.State = StateRunning
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	t.mu.Lock()
	t.records[record.ID] = record
	t.mu.Unlock()
	return record.ID, nil
}

// Finish replaces the record with its final state.
func (t *MemoryTracker) Finish(ctx context.Context, record ExportRecord) error {
	_ = ctx
	t.mu.Lock()
	defer t.mu.Unlock()
	existing, ok := t.records[record.ID]
	if !ok {
		return NewError(KindNotFound, fmt.Sprintf("export %q not found", record.ID), nil)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = existing.CreatedAt
	}
	if record.CompletedAt.IsZero() {
		record.CompletedAt = time.Now()
	}
	t.records[record.ID] = record
	return nil
}

// Status returns a record by id.
func (t *MemoryTracker) Status(ctx context.Context, id string) (ExportRecord, error) {
	_ = ctx
	t.mu.RLock()
	record, ok := t.records[id]
	t.mu.RUnlock()
	if !ok {
		return ExportRecord{}, NewError(KindNotFound, fmt.Sprintf("export %q not found", id), nil)
	}
	return record, nil
}

// List returns records newest first.
func (t *MemoryTracker) List(ctx context.Context, filter HistoryFilter) ([]ExportRecord, error) {
	_ = ctx
	t.mu.RLock()
	out := make([]ExportRecord, 0, len(t.records))
	for _, record := range t.records {
		if filter.Matches(record) {
			out = append(out, record)
		}
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (t *MemoryTracker) nextID() string {
	id := atomic.AddUint64(&t.counter, 1)
	return fmt.Sprintf("carousel-%d", id)
}

// Matches reports whether record passes the filter.
func (f HistoryFilter) Matches(record ExportRecord) bool {
	if f.Format != "" && record.Format != f.Format {
		return false
	}
	if f.State != "" && record.State != f.State {
		return false
	}
	if !f.Since.IsZero() && record.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && record.CreatedAt.After(f.Until) {
		return false
	}
	return true
}
