package store

import (
	"context"
	"errors"
	"sync"

	"hookboard/internal/model"
)

var (
	ErrInvalidEvent = errors.New("invalid event")
	ErrUnavailable  = errors.New("storage unavailable")
)

type UpsertStatus string

const (
	Inserted      UpsertStatus = "inserted"
	AlreadyExists UpsertStatus = "already_exists"
)

// Store persists canonical events keyed uniquely by request_id. Upsert is
// insert-if-absent: with concurrent calls for the same request_id exactly one
// caller observes Inserted. ListAll returns records oldest-first by insertion.
type Store interface {
	Upsert(ctx context.Context, ev model.CanonicalEvent) (UpsertStatus, error)
	ListAll(ctx context.Context) ([]model.CanonicalEvent, error)
}

// MemoryStore is the fallback implementation for local development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]struct{}
	events []model.CanonicalEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]struct{})}
}

func (m *MemoryStore) Upsert(_ context.Context, ev model.CanonicalEvent) (UpsertStatus, error) {
	if err := validateEvent(ev); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[ev.RequestID]; ok {
		return AlreadyExists, nil
	}
	m.byID[ev.RequestID] = struct{}{}
	ev.Timestamp = ev.Timestamp.UTC()
	m.events = append(m.events, ev)
	return Inserted, nil
}

func (m *MemoryStore) ListAll(_ context.Context) ([]model.CanonicalEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.CanonicalEvent, len(m.events))
	copy(out, m.events)
	return out, nil
}

func validateEvent(ev model.CanonicalEvent) error {
	if ev.RequestID == "" || ev.Author == "" || ev.FromBranch == "" || ev.ToBranch == "" {
		return ErrInvalidEvent
	}
	if !ev.Action.Valid() {
		return ErrInvalidEvent
	}
	if ev.Timestamp.IsZero() {
		return ErrInvalidEvent
	}
	return nil
}
