package offline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fangstlog/fangstlog/internal/offline"
	"github.com/fangstlog/fangstlog/internal/trip"
)

func storeContract(t *testing.T, store offline.Store) {
	t.Helper()
	ctx := context.Background()

	items, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	want := []offline.PendingTrip{
		{
			ID:        "1717243200000-aaaaaaaa",
			Payload:   trip.SaveTripPayload{StartTS: "2024-06-01T08:00:00Z", EndTS: "2024-06-01T10:00:00Z", NeedsDMI: true},
			CreatedAt: created,
		},
		{
			ID:         "1717243200001-bbbbbbbb",
			Payload:    trip.SaveTripPayload{StartTS: "2024-06-01T11:00:00Z", EndTS: "2024-06-01T11:30:00Z", MetaJSON: `{"source":"dmi"}`},
			CreatedAt:  created,
			RetryCount: 2,
			LastError:  "store unavailable",
		},
	}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, want[0].ID, got[0].ID)
	assert.Equal(t, want[1].RetryCount, got[1].RetryCount)
	assert.Equal(t, want[1].LastError, got[1].LastError)
	assert.True(t, got[0].CreatedAt.Equal(created))
	assert.Equal(t, offline.StatePendingWeather, got[0].State())
	assert.Equal(t, offline.StatePendingWrite, got[1].State())

	require.NoError(t, store.Save(ctx, got[1:]))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, want[1].ID, got[0].ID)

	require.NoError(t, store.Save(ctx, nil))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, offline.NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue", "offline_trips.json")
	storeContract(t, offline.NewFileStore(path))

	_, err := os.Stat(path)
	assert.NoError(t, err)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offline_trips.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := offline.NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	store, err := offline.OpenSQLiteStore(filepath.Join(t.TempDir(), "logbook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	storeContract(t, store)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logbook.db")
	ctx := context.Background()

	store, err := offline.OpenSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, []offline.PendingTrip{{ID: "1-abc"}}))
	require.NoError(t, store.Close())

	store, err = offline.OpenSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	items, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "1-abc", items[0].ID)
}
