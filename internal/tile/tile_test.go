package tile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromLonLat_ZoomZero(t *testing.T) {
	assert.Equal(t, Tile{Z: 0, X: 0, Y: 0}, FromLonLat(16.3725, 48.2083, 0))
	assert.Equal(t, Tile{Z: 0, X: 0, Y: 0}, FromLonLat(-122.4, 37.8, 0))
}

func TestFromLonLat_ZoomOneQuadrants(t *testing.T) {
	assert.Equal(t, Tile{Z: 1, X: 0, Y: 0}, FromLonLat(-90, 45, 1))
	assert.Equal(t, Tile{Z: 1, X: 1, Y: 0}, FromLonLat(90, 45, 1))
	assert.Equal(t, Tile{Z: 1, X: 0, Y: 1}, FromLonLat(-90, -45, 1))
	assert.Equal(t, Tile{Z: 1, X: 1, Y: 1}, FromLonLat(90, -45, 1))
}

func TestFromLonLat_Vienna(t *testing.T) {
	// Reference value from the standard slippy-map formula.
	got := FromLonLat(16.3725, 48.2083, 16)
	assert.Equal(t, Tile{Z: 16, X: 35748, Y: 22724}, got)
}

func TestFromLonLat_EdgeClamping(t *testing.T) {
	// Antimeridian and pole inputs stay inside the valid index range.
	for _, tc := range []struct{ lon, lat float64 }{
		{180, 0}, {-180, 0}, {0, 90}, {0, -90}, {180, 90}, {-180, -90},
	} {
		got := FromLonLat(tc.lon, tc.lat, 4)
		assert.True(t, got.Valid(), "lon=%f lat=%f -> %s", tc.lon, tc.lat, got)
	}
}

func TestBounds_WorldTile(t *testing.T) {
	west, south, east, north := Tile{Z: 0, X: 0, Y: 0}.Bounds()
	assert.InDelta(t, -180, west, 1e-9)
	assert.InDelta(t, 180, east, 1e-9)
	assert.InDelta(t, -85.0511287798066, south, 1e-9)
	assert.InDelta(t, 85.0511287798066, north, 1e-9)
}

func TestBounds_Roundtrip(t *testing.T) {
	// The center of a tile's bounds must map back to the same tile.
	tiles := []Tile{
		{Z: 16, X: 35748, Y: 22724},
		{Z: 4, X: 8, Y: 5},
		{Z: 10, X: 0, Y: 0},
		{Z: 10, X: 1023, Y: 1023},
	}
	for _, tl := range tiles {
		west, south, east, north := tl.Bounds()
		center := FromLonLat((west+east)/2, (south+north)/2, tl.Z)
		assert.Equal(t, tl, center)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Tile{Z: 0, X: 0, Y: 0}.Valid())
	assert.True(t, Tile{Z: 16, X: 35748, Y: 22724}.Valid())
	assert.False(t, Tile{Z: -1, X: 0, Y: 0}.Valid())
	assert.False(t, Tile{Z: 31, X: 0, Y: 0}.Valid())
	assert.False(t, Tile{Z: 2, X: 4, Y: 0}.Valid())
	assert.False(t, Tile{Z: 2, X: 0, Y: -1}.Valid())
}

func TestString(t *testing.T) {
	assert.Equal(t, "16/35748/22724", Tile{Z: 16, X: 35748, Y: 22724}.String())
}
