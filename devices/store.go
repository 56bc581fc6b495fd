package devices

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by the store lookups when no record exists.
var ErrNotFound = errors.New("device not found")

// Store is the device record store this subsystem consumes. Implementations
// must be safe for concurrent use; every method is one round-trip.
type Store interface {
	// FindByMAC returns the record with the given hardware address.
	FindByMAC(ctx context.Context, mac string) (*DeviceRecord, error)
	// FindByID returns the record with the given id.
	FindByID(ctx context.Context, id uuid.UUID) (*DeviceRecord, error)
	// List returns all device records.
	List(ctx context.Context) ([]*DeviceRecord, error)
	// Save upserts the record, keyed by MAC. A zero ID is assigned on insert.
	Save(ctx context.Context, record *DeviceRecord) error
	// FindStale returns all records that are online but have not been seen
	// since the given threshold.
	FindStale(ctx context.Context, threshold time.Time) ([]*DeviceRecord, error)
}
