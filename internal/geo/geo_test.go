package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fangstlog/fangstlog/internal/geo"
)

// metersNorth returns a point roughly d meters north of p.
func metersNorth(p geo.PathPoint, d float64, t int64) geo.PathPoint {
	return geo.PathPoint{
		Latitude:  p.Latitude + d/111195.0,
		Longitude: p.Longitude,
		T:         t,
	}
}

func TestHaversine_Identity(t *testing.T) {
	p := geo.Point{Latitude: 55.6761, Longitude: 12.5683}
	assert.Equal(t, 0.0, geo.Haversine(p, p))
}

func TestHaversine_Symmetry(t *testing.T) {
	pairs := []struct {
		name string
		a, b geo.Point
	}{
		{"copenhagen-aarhus", geo.Point{Latitude: 55.6761, Longitude: 12.5683}, geo.Point{Latitude: 56.1629, Longitude: 10.2039}},
		{"across meridian", geo.Point{Latitude: 51.5, Longitude: -0.5}, geo.Point{Latitude: 51.4, Longitude: 0.7}},
		{"southern hemisphere", geo.Point{Latitude: -33.86, Longitude: 151.2}, geo.Point{Latitude: -37.81, Longitude: 144.96}},
	}

	for _, tt := range pairs {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, geo.Haversine(tt.a, tt.b), geo.Haversine(tt.b, tt.a), 1e-6)
		})
	}
}

func TestHaversine_KnownDistance(t *testing.T) {
	copenhagen := geo.Point{Latitude: 55.6761, Longitude: 12.5683}
	aarhus := geo.Point{Latitude: 56.1629, Longitude: 10.2039}

	// Roughly 157 km as the crow flies.
	assert.InDelta(t, 157000, geo.Haversine(copenhagen, aarhus), 2000)
}

func TestComputeDistance_FewerThanTwoPoints(t *testing.T) {
	assert.Equal(t, 0.0, geo.ComputeDistance(nil))
	assert.Equal(t, 0.0, geo.ComputeDistance([]geo.PathPoint{{Latitude: 55, Longitude: 12}}))
}

func TestComputeDistance_SkipsJitter(t *testing.T) {
	start := geo.PathPoint{Latitude: 55.0, Longitude: 12.0, T: 1_000}
	jitter := metersNorth(start, 1, 2_000)
	moved := metersNorth(jitter, 100, 62_000)

	d := geo.ComputeDistance([]geo.PathPoint{start, jitter, moved})
	assert.InDelta(t, 100, d, 1)
}

func TestComputeDistance_RejectsSpikes(t *testing.T) {
	start := geo.PathPoint{Latitude: 55.0, Longitude: 12.0, T: 1_000}
	spike := metersNorth(start, 400, 2_000)

	d := geo.ComputeDistance([]geo.PathPoint{start, spike})
	assert.Equal(t, 0.0, d)
}

func TestComputeDistance_RejectsFastSegment(t *testing.T) {
	start := geo.PathPoint{Latitude: 55.0, Longitude: 12.0, T: 1_000}
	fast := metersNorth(start, 100, 6_000) // 20 m/s

	assert.Equal(t, 0.0, geo.ComputeDistance([]geo.PathPoint{start, fast}))
}

func TestComputeDistance_NoTimestampsSkipsSpeedCheck(t *testing.T) {
	start := geo.PathPoint{Latitude: 55.0, Longitude: 12.0}
	next := metersNorth(start, 120, 0)

	assert.InDelta(t, 120, geo.ComputeDistance([]geo.PathPoint{start, next}), 1)
}

func TestCentroid(t *testing.T) {
	_, ok := geo.Centroid(nil)
	assert.False(t, ok)

	c, ok := geo.Centroid([]geo.PathPoint{
		{Latitude: 55.0, Longitude: 12.0},
		{Latitude: 56.0, Longitude: 13.0},
	})
	require.True(t, ok)
	assert.InDelta(t, 55.5, c.Latitude, 1e-9)
	assert.InDelta(t, 12.5, c.Longitude, 1e-9)
}

func TestParsePath(t *testing.T) {
	raw := `[
		{"latitude": 55.1, "longitude": 12.1, "t": 1704103200000},
		{"latitude": 55.2},
		{"longitude": 12.3, "t": 5},
		"garbage",
		{"latitude": 95.0, "longitude": 12.0},
		{"latitude": 55.4, "longitude": 12.4, "t": "2024-01-01T10:00:00Z"},
		{"latitude": 55.5, "longitude": 12.5, "t": "not a time"}
	]`

	points := geo.ParsePath(raw)
	require.Len(t, points, 3)
	assert.Equal(t, int64(1704103200000), points[0].T)
	assert.Equal(t, int64(1704103200000), points[1].T)
	assert.Equal(t, int64(0), points[2].T)
}

func TestParsePath_Invalid(t *testing.T) {
	assert.Nil(t, geo.ParsePath(""))
	assert.Nil(t, geo.ParsePath("{not json"))
	assert.Empty(t, geo.ParsePath("[]"))
}

func TestEncodePath_RoundTripsThroughParse(t *testing.T) {
	path := []geo.PathPoint{
		{Latitude: 55.1, Longitude: 12.1, T: 1000},
		{Latitude: 55.2, Longitude: 12.2, T: 2000},
	}
	s, err := geo.EncodePath(path)
	require.NoError(t, err)
	assert.Equal(t, path, geo.ParsePath(s))
}

func TestPolyline_GoogleExample(t *testing.T) {
	points := []geo.Point{
		{Latitude: 38.5, Longitude: -120.2},
		{Latitude: 40.7, Longitude: -120.95},
		{Latitude: 43.252, Longitude: -126.453},
	}

	encoded := geo.EncodePolyline(points)
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC_mqNvxq`@", encoded)

	decoded := geo.DecodePolyline(encoded)
	require.Len(t, decoded, 3)
	for i := range points {
		assert.InDelta(t, points[i].Latitude, decoded[i].Latitude, 1e-5)
		assert.InDelta(t, points[i].Longitude, decoded[i].Longitude, 1e-5)
	}
}

func TestPolyline_Empty(t *testing.T) {
	assert.Equal(t, "", geo.EncodePolyline(nil))
	assert.Nil(t, geo.DecodePolyline(""))
}

func TestPreviewPoints(t *testing.T) {
	path := make([]geo.PathPoint, 100)
	for i := range path {
		path[i] = geo.PathPoint{Latitude: 55 + float64(i)*0.001, Longitude: 12}
	}

	preview := geo.PreviewPoints(path, 10)
	require.Len(t, preview, 10)
	assert.Equal(t, path[0].Point(), preview[0])
	assert.Equal(t, path[99].Point(), preview[9])

	assert.Len(t, geo.PreviewPoints(path[:5], 10), 5)
	assert.Nil(t, geo.PreviewPoints(nil, 10))
}
