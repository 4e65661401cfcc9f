package dmi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fangstlog/fangstlog/internal/dmi"
)

func TestNewWindow_RejectsReversedTrip(t *testing.T) {
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	_, err := dmi.NewWindow(start, start.Add(-time.Minute))
	assert.ErrorIs(t, err, dmi.ErrInvalidWindow)
}

func TestWindow_LongTripUsesExactRange(t *testing.T) {
	w := mustWindow(t, "2024-06-01T08:00:00Z", "2024-06-01T11:00:00Z")

	assert.False(t, w.Short)
	assert.Equal(t, "2024-06-01T08:00:00Z/2024-06-01T11:00:00Z", w.Datetime())

	serie := dmi.Serie{
		{TS: ms("2024-06-01T07:00:00Z"), V: 100},
		{TS: ms("2024-06-01T08:00:00Z"), V: 10},
		{TS: ms("2024-06-01T09:00:00Z"), V: 12},
		{TS: ms("2024-06-01T11:00:00Z"), V: 14},
	}
	st := w.Stat(serie)
	require.NotNil(t, st)
	assert.InDelta(t, 12, st.Avg, 1e-9)
	assert.Equal(t, 10.0, st.Min)
	assert.Equal(t, 14.0, st.Max)
}

func TestWindow_ExactlyOneHourIsLong(t *testing.T) {
	w := mustWindow(t, "2024-06-01T08:00:00Z", "2024-06-01T09:00:00Z")
	assert.False(t, w.Short)
}

// A short trip queries mid ± 6h, and its stat is exactly the single sample
// nearest the midpoint.
func TestWindow_ShortTripQueriesWidenedRangeAndUsesNearestSample(t *testing.T) {
	datetimes := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		datetimes <- r.URL.Query().Get("datetime")
		_, _ = w.Write([]byte(`{"features": [
			{"properties": {"value": 8.0, "from": "2024-06-01T05:00:00Z"}},
			{"properties": {"value": 10.0, "from": "2024-06-01T09:00:00Z"}},
			{"properties": {"value": 12.0, "from": "2024-06-01T10:00:00Z"}},
			{"properties": {"value": 14.0, "from": "2024-06-01T11:00:00Z"}},
			{"properties": {"value": 20.0, "from": "2024-06-01T16:00:00Z"}}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	w := mustWindow(t, "2024-06-01T10:00:00Z", "2024-06-01T10:30:00Z")
	require.True(t, w.Short)

	serie, err := client.Climate(context.Background(), "06180", dmi.ParamAirTemp, w)
	require.NoError(t, err)
	require.Len(t, serie, 5)

	assert.Equal(t, "2024-06-01T04:15:00Z/2024-06-01T16:15:00Z", <-datetimes)

	st := w.Stat(serie)
	require.NotNil(t, st)
	assert.Equal(t, 12.0, st.Avg)
	assert.Equal(t, 12.0, st.Min)
	assert.Equal(t, 12.0, st.Max)
}

func TestWindow_EmptySerieYieldsNilStat(t *testing.T) {
	short := mustWindow(t, "2024-06-01T10:00:00Z", "2024-06-01T10:20:00Z")
	long := mustWindow(t, "2024-06-01T08:00:00Z", "2024-06-01T12:00:00Z")

	assert.Nil(t, short.Stat(nil))
	assert.Nil(t, long.Stat(dmi.Serie{}))
	assert.Nil(t, long.Stat(dmi.Serie{{TS: ms("2024-06-01T13:00:00Z"), V: 1}}))
}

func TestAggregateDirection_CircularMean(t *testing.T) {
	st := dmi.AggregateDirection(dmi.Serie{{TS: 1, V: 350}, {TS: 2, V: 10}})
	require.NotNil(t, st)
	assert.InDelta(t, 0, st.Avg, 1e-6)
	assert.Equal(t, 10.0, st.Min)
	assert.Equal(t, 350.0, st.Max)

	st = dmi.AggregateDirection(dmi.Serie{{TS: 1, V: 80}, {TS: 2, V: 100}})
	require.NotNil(t, st)
	assert.InDelta(t, 90, st.Avg, 1e-6)

	assert.Nil(t, dmi.AggregateDirection(nil))
}

func TestSerie_NearestTieKeepsEarlier(t *testing.T) {
	s := dmi.Serie{{TS: 0, V: 1}, {TS: 20, V: 2}}
	got, ok := s.Nearest(10)
	require.True(t, ok)
	assert.Equal(t, 1.0, got.V)
}

func ms(s string) int64 {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UnixMilli()
}
