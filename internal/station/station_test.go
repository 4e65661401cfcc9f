package station_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fangstlog/fangstlog/internal/station"
)

func TestNearest_PicksClosest(t *testing.T) {
	list := []station.Station{
		{ID: "far", Lat: 57.0, Lon: 10.0},
		{ID: "near", Lat: 55.61, Lon: 12.64},
	}

	c, ok := station.Nearest(list, 55.6, 12.6, nil)
	require.True(t, ok)
	assert.Equal(t, "near", c.Station.ID)
	assert.Less(t, c.DistanceKm, 5.0)
}

func TestNearest_TieKeepsListOrder(t *testing.T) {
	list := []station.Station{
		{ID: "first", Lat: 55.0, Lon: 12.0},
		{ID: "second", Lat: 55.0, Lon: 12.0},
	}

	c, ok := station.Nearest(list, 55.1, 12.0, nil)
	require.True(t, ok)
	assert.Equal(t, "first", c.Station.ID)
}

func TestNearest_EmptyOrFilteredOut(t *testing.T) {
	_, ok := station.Nearest(nil, 55, 12, nil)
	assert.False(t, ok)

	list := []station.Station{{ID: "inland", Lat: 55, Lon: 12}}
	_, ok = station.Nearest(list, 55, 12, station.IsCoastal)
	assert.False(t, ok)
}

func TestCandidates_SortedAndBounded(t *testing.T) {
	list := []station.Station{
		{ID: "b", Lat: 55.5, Lon: 12.0, HasTemp: true},
		{ID: "out-of-range", Lat: 58.0, Lon: 12.0, HasTemp: true},
		{ID: "a", Lat: 55.1, Lon: 12.0, HasTemp: true},
		{ID: "no-temp", Lat: 55.05, Lon: 12.0},
	}

	got := station.Candidates(list, 55.0, 12.0, 80, station.HasWaterTemp)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Station.ID)
	assert.Equal(t, "b", got[1].Station.ID)
	assert.LessOrEqual(t, got[0].DistanceKm, got[1].DistanceKm)
}

func TestNearestClimate_CoastalOnly(t *testing.T) {
	// Copenhagen airport is inland-flagged; Drogden Fyr is the closest coastal station.
	c, ok := station.NearestClimate(55.6147, 12.6453, false)
	require.True(t, ok)
	assert.Equal(t, "06180", c.Station.ID)

	c, ok = station.NearestClimate(55.6147, 12.6453, true)
	require.True(t, ok)
	assert.Equal(t, "06183", c.Station.ID)
	assert.True(t, c.Station.Coastal)
}

func TestOceanTempCandidates_Copenhagen(t *testing.T) {
	got := station.OceanTempCandidates(55.68, 12.59)
	require.NotEmpty(t, got)
	assert.Equal(t, "30336", got[0].Station.ID)
	for _, c := range got {
		assert.True(t, c.Station.HasTemp)
		assert.LessOrEqual(t, c.DistanceKm, station.MaxOceanDistanceKm)
	}
}

func TestNearestOceanLevel_OutOfRange(t *testing.T) {
	// Middle of the North Sea, far from any gauge.
	_, ok := station.NearestOceanLevel(56.5, 3.0)
	assert.False(t, ok)

	c, ok := station.NearestOceanLevel(55.47, 8.45)
	require.True(t, ok)
	assert.Equal(t, "25149", c.Station.ID)
}

func TestStaticListsHaveUniqueIDs(t *testing.T) {
	for name, list := range map[string][]station.Station{
		"climate": station.ClimateStations,
		"metobs":  station.MetObsStations,
		"ocean":   station.OceanStations,
	} {
		seen := make(map[string]bool)
		for _, s := range list {
			assert.False(t, seen[s.ID], "%s: duplicate station %s", name, s.ID)
			seen[s.ID] = true
		}
	}
}
