package devices

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAssignsIDAndUpsertsByMAC(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	record := &DeviceRecord{MAC: "aa:bb:cc:dd:ee:ff", Name: "room 2b"}
	require.NoError(t, store.Save(ctx, record))
	assert.NotEqual(t, uuid.Nil, record.ID)

	record.Name = "room 2b lights"
	require.NoError(t, store.Save(ctx, record))

	found, err := store.FindByMAC(ctx, "aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	assert.Equal(t, record.ID, found.ID)
	assert.Equal(t, "room 2b lights", found.Name)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFindByID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	record := &DeviceRecord{MAC: "aa:bb:cc:dd:ee:ff"}
	require.NoError(t, store.Save(ctx, record))

	found, err := store.FindByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.MAC, found.MAC)

	_, err = store.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByMACUnknown(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.FindByMAC(context.Background(), "aa:bb:cc:dd:ee:ff")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreHandsOutCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	record := &DeviceRecord{
		MAC:      "aa:bb:cc:dd:ee:ff",
		Switches: []Switch{{ID: uuid.New(), Name: "lights", GPIO: 16}},
	}
	require.NoError(t, store.Save(ctx, record))

	// mutating the caller's record after save must not change the store
	record.Switches[0].State = true
	found, err := store.FindByMAC(ctx, record.MAC)
	require.NoError(t, err)
	assert.False(t, found.Switches[0].State)

	// mutating a returned record must not change the store either
	found.Switches[0].Name = "changed"
	again, err := store.FindByMAC(ctx, record.MAC)
	require.NoError(t, err)
	assert.Equal(t, "lights", again.Switches[0].Name)
}

func TestFindStaleFiltersByStatusAndThreshold(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Save(ctx, &DeviceRecord{
		MAC: "aa:aa:aa:aa:aa:01", Status: StatusOnline, LastSeenAt: now.Add(-time.Hour),
	}))
	require.NoError(t, store.Save(ctx, &DeviceRecord{
		MAC: "aa:aa:aa:aa:aa:02", Status: StatusOnline, LastSeenAt: now,
	}))
	require.NoError(t, store.Save(ctx, &DeviceRecord{
		MAC: "aa:aa:aa:aa:aa:03", Status: StatusOffline, LastSeenAt: now.Add(-time.Hour),
	}))

	stale, err := store.FindStale(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "aa:aa:aa:aa:aa:01", stale[0].MAC)
}

func TestCloneIsDeep(t *testing.T) {
	original := &DeviceRecord{
		MAC:          "aa:bb:cc:dd:ee:ff",
		Switches:     []Switch{{ID: uuid.New(), Name: "lights", GPIO: 16}},
		MotionSensor: &MotionSensorConfig{Enabled: true, Pin: 19},
		PendingCommands: []PendingCommand{
			{SwitchID: uuid.New(), GPIO: 16, State: true, QueuedAt: time.Now()},
		},
	}

	clone := original.Clone()
	clone.Switches[0].State = true
	clone.MotionSensor.Pin = 21
	clone.PendingCommands[0].State = false

	assert.False(t, original.Switches[0].State)
	assert.Equal(t, 19, original.MotionSensor.Pin)
	assert.True(t, original.PendingCommands[0].State)

	var nilRecord *DeviceRecord
	assert.Nil(t, nilRecord.Clone())
}

func TestSwitchByID(t *testing.T) {
	switchID := uuid.New()
	record := &DeviceRecord{
		Switches: []Switch{
			{ID: uuid.New(), Name: "lights"},
			{ID: switchID, Name: "fan"},
		},
	}

	sw := record.SwitchByID(switchID)
	require.NotNil(t, sw)
	assert.Equal(t, "fan", sw.Name)

	assert.Nil(t, record.SwitchByID(uuid.New()))
}

func TestSecretNeverMarshals(t *testing.T) {
	record := &DeviceRecord{MAC: "aa:bb:cc:dd:ee:ff", Secret: "hunter2"}
	data, err := json.Marshal(record)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")
}
