package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fangstlog/fangstlog/internal/config"
	"github.com/fangstlog/fangstlog/internal/geo"
	"github.com/fangstlog/fangstlog/internal/offline"
	"github.com/fangstlog/fangstlog/internal/trip"
)

type fakeWeather struct{ err error }

func (f fakeWeather) Enrich(context.Context, trip.SaveTripPayload) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return `{"air_temp":{"avg":11}}`, nil
}

type fakeSink struct {
	mu    sync.Mutex
	saved []trip.SaveTripPayload
}

func (s *fakeSink) SaveTrip(_ context.Context, p trip.SaveTripPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, p)
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

type testApp struct {
	*app
	reach *offline.StaticReachability
	sink  *fakeSink
	out   *bytes.Buffer
}

func newTestApp(t *testing.T, up bool) *testApp {
	t.Helper()
	reach := offline.NewStaticReachability(up)
	sink := &fakeSink{}
	out := &bytes.Buffer{}

	queue := offline.NewQueue(offline.Config{
		Store:        offline.NewMemoryStore(),
		Weather:      fakeWeather{},
		Sink:         sink,
		Reachability: reach,
		BaseBackoff:  time.Millisecond,
		Logger:       zerolog.Nop(),
	})

	return &testApp{
		app: &app{
			queue:                queue,
			triggers:             offline.NewTriggers(queue, zerolog.Nop()),
			reach:                reach,
			syncInterval:         time.Hour,
			connectivityInterval: time.Hour,
			out:                  out,
			logger:               zerolog.Nop(),
		},
		reach: reach,
		sink:  sink,
		out:   out,
	}
}

func writeRecording(t *testing.T, rec recording) string {
	t.Helper()
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "trip.json")
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func sampleRecording() recording {
	start := time.Date(2024, 6, 1, 5, 0, 0, 0, time.UTC)
	return recording{
		Start: start,
		End:   start.Add(3 * time.Hour),
		Path: []geo.PathPoint{
			{Latitude: 55.6900, Longitude: 12.6000},
			{Latitude: 55.6904, Longitude: 12.6000},
			{Latitude: 55.6908, Longitude: 12.6000},
		},
		FishEvents: []time.Time{start.Add(time.Hour), start.Add(2 * time.Hour)},
	}
}

func TestSave_Reachable(t *testing.T) {
	a := newTestApp(t, true)
	path := writeRecording(t, sampleRecording())

	require.NoError(t, a.save(context.Background(), []string{"-file", path}))
	assert.Equal(t, "saved\n", a.out.String())

	require.Equal(t, 1, a.sink.count())
	saved := a.sink.saved[0]
	assert.False(t, saved.NeedsDMI)
	assert.Contains(t, saved.MetaJSON, "air_temp")
	assert.Equal(t, 2, saved.FishCount)
	assert.Equal(t, int64(3*3600), saved.DurationSec)
}

func TestSave_OfflineThenSync(t *testing.T) {
	a := newTestApp(t, false)
	path := writeRecording(t, sampleRecording())
	ctx := context.Background()

	require.NoError(t, a.save(ctx, []string{"-file", path}))
	assert.Equal(t, "queued\n", a.out.String())
	assert.Zero(t, a.sink.count())

	a.out.Reset()
	require.NoError(t, a.status(ctx, nil))
	assert.Contains(t, a.out.String(), string(offline.StatePendingWeather))

	a.reach.Set(true)
	a.out.Reset()
	require.NoError(t, a.sync(ctx))
	assert.Equal(t, "synced 1, 0 pending\n", a.out.String())
	assert.Equal(t, 1, a.sink.count())

	a.out.Reset()
	require.NoError(t, a.status(ctx, nil))
	assert.Equal(t, "queue is empty\n", a.out.String())
}

func TestSave_QueueOnly(t *testing.T) {
	a := newTestApp(t, true)
	rec := sampleRecording()
	rec.Spot = &recordedSpot{ID: "spt_1", Name: "Mole", Lat: 55.69, Lng: 12.60}
	path := writeRecording(t, rec)
	ctx := context.Background()

	require.NoError(t, a.save(ctx, []string{"-file", path, "-queue-only"}))
	assert.Contains(t, a.out.String(), "queued ")
	assert.Zero(t, a.sink.count())

	a.out.Reset()
	require.NoError(t, a.status(ctx, []string{"-json"}))
	var pending []offline.PendingTrip
	require.NoError(t, json.Unmarshal(a.out.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "spt_1", pending[0].Payload.SpotID)
	assert.True(t, pending[0].Payload.NeedsDMI)
}

func TestSave_Invalid(t *testing.T) {
	a := newTestApp(t, true)
	rec := sampleRecording()
	rec.End = rec.Start.Add(-time.Hour)

	err := a.save(context.Background(), []string{"-file", writeRecording(t, rec)})
	assert.ErrorIs(t, err, trip.ErrInvalidPayload)

	assert.Error(t, a.save(context.Background(), nil), "-file is required")
	assert.Error(t, a.save(context.Background(), []string{"-file", filepath.Join(t.TempDir(), "missing.json")}))
}

func TestStatus_EmptyJSON(t *testing.T) {
	a := newTestApp(t, true)
	require.NoError(t, a.status(context.Background(), []string{"-json"}))
	assert.JSONEq(t, `[]`, a.out.String())
}

func TestRun_DrainsOnStartAndSignals(t *testing.T) {
	a := newTestApp(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := sampleRecording()
	p, err := rec.payload()
	require.NoError(t, err)
	_, err = a.queue.Enqueue(ctx, p)
	require.NoError(t, err)

	sigs := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() { done <- a.run(ctx, sigs) }()

	// Whichever drain runs after the network is back, cold start or the
	// foreground signal, delivers the trip exactly once.
	a.reach.Set(true)
	sigs <- syscall.SIGUSR1

	assert.Eventually(t, func() bool { return a.sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name  string
		store string
		path  string
	}{
		{"sqlite", config.StoreSQLite, filepath.Join(dir, "queue.db")},
		{"file", config.StoreFile, filepath.Join(dir, "queue.json")},
		{"memory", config.StoreMemory, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closeStore, err := openStore(&config.Logbook{QueueStore: tt.store, QueuePath: tt.path})
			require.NoError(t, err)
			defer closeStore()

			items, err := store.Load(context.Background())
			require.NoError(t, err)
			assert.Empty(t, items)

			require.NoError(t, store.Save(context.Background(), []offline.PendingTrip{{ID: "1-abc"}}))
			items, err = store.Load(context.Background())
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, "1-abc", items[0].ID)
		})
	}
}

func TestSave_WeatherFailureQueues(t *testing.T) {
	a := newTestApp(t, true)
	a.queue = offline.NewQueue(offline.Config{
		Store:        offline.NewMemoryStore(),
		Weather:      fakeWeather{err: errors.New("dmi down")},
		Sink:         a.sink,
		Reachability: a.reach,
		BaseBackoff:  time.Millisecond,
		Logger:       zerolog.Nop(),
	})

	require.NoError(t, a.save(context.Background(), []string{"-file", writeRecording(t, sampleRecording())}))
	assert.Equal(t, "queued\n", a.out.String(), "weather failure queues the trip")
}
