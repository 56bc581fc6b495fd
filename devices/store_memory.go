package devices

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory device record store. It is used by the unit
// tests and by standalone deployments that run without postgres.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*DeviceRecord // keyed by MAC
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*DeviceRecord)}
}

// FindByMAC returns the record with the given hardware address.
func (s *MemoryStore) FindByMAC(ctx context.Context, mac string) (*DeviceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[mac]
	if !ok {
		return nil, ErrNotFound
	}
	return record.Clone(), nil
}

// FindByID returns the record with the given id.
func (s *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (*DeviceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.records {
		if record.ID == id {
			return record.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// List returns all device records.
func (s *MemoryStore) List(ctx context.Context) ([]*DeviceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]*DeviceRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record.Clone())
	}
	return records, nil
}

// Save upserts the record, keyed by MAC. A zero ID is assigned on insert.
func (s *MemoryStore) Save(ctx context.Context, record *DeviceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	s.records[record.MAC] = record.Clone()
	return nil
}

// FindStale returns all records that are online but have not been seen since
// the given threshold.
func (s *MemoryStore) FindStale(ctx context.Context, threshold time.Time) ([]*DeviceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stale []*DeviceRecord
	for _, record := range s.records {
		if record.Status == StatusOnline && record.LastSeenAt.Before(threshold) {
			stale = append(stale, record.Clone())
		}
	}
	return stale, nil
}
