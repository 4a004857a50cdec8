package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/tilemirror/internal/boundary"
	"github.com/sells-group/tilemirror/internal/tile"
)

// rectBoundary builds a boundary exactly covering the inclusive tile range
// [minX..maxX] x [minY..maxY] at the given zoom.
func rectBoundary(t *testing.T, zoom, minX, minY, maxX, maxY int) *boundary.Boundary {
	t.Helper()
	west, _, _, north := tile.Tile{Z: zoom, X: minX, Y: minY}.Bounds()
	_, south, east, _ := tile.Tile{Z: zoom, X: maxX, Y: maxY}.Bounds()
	mp := geom.NewMultiPolygonFlat(geom.XY,
		[]float64{west, south, east, south, east, north, west, north, west, south},
		[][]int{{10}},
	)
	b, err := boundary.New(mp)
	require.NoError(t, err)
	return b
}

func TestEnumerate_AlignedRectangle(t *testing.T) {
	// A boundary exactly aligned to tile edges yields exactly the full range.
	b := rectBoundary(t, 4, 8, 5, 9, 6)

	tiles, err := Enumerate(b, 4)
	require.NoError(t, err)

	want := []tile.Tile{
		{Z: 4, X: 8, Y: 5}, {Z: 4, X: 8, Y: 6},
		{Z: 4, X: 9, Y: 5}, {Z: 4, X: 9, Y: 6},
	}
	assert.Equal(t, want, tiles)
}

func TestEnumerate_Deterministic(t *testing.T) {
	b := rectBoundary(t, 6, 30, 20, 34, 24)

	first, err := Enumerate(b, 6)
	require.NoError(t, err)
	second, err := Enumerate(b, 6)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 25)
}

func TestEnumerate_TriangleTrimsRange(t *testing.T) {
	// A triangle covering half of a 4x4 tile block: the enumeration must be
	// strictly smaller than the full bbox range but still non-empty.
	zoom := 6
	west, _, _, north := tile.Tile{Z: zoom, X: 30, Y: 20}.Bounds()
	_, south, east, _ := tile.Tile{Z: zoom, X: 33, Y: 23}.Bounds()
	mp := geom.NewMultiPolygonFlat(geom.XY,
		[]float64{west, south, east, south, west, north, west, south},
		[][]int{{8}},
	)
	b, err := boundary.New(mp)
	require.NoError(t, err)

	tiles, err := Enumerate(b, zoom)
	require.NoError(t, err)

	assert.NotEmpty(t, tiles)
	assert.Less(t, len(tiles), 16)
	for _, tl := range tiles {
		assert.True(t, tl.Valid())
		assert.Equal(t, zoom, tl.Z)
	}
}

func TestEnumerate_AllTilesIntersect(t *testing.T) {
	b := rectBoundary(t, 8, 100, 100, 103, 103)

	tiles, err := Enumerate(b, 8)
	require.NoError(t, err)

	for _, tl := range tiles {
		tw, ts, te, tn := tl.Bounds()
		assert.True(t, b.IntersectsBox(tw, ts, te, tn), "tile %s", tl)
	}
}

func TestEnumerate_InvalidZoom(t *testing.T) {
	b := rectBoundary(t, 4, 8, 5, 9, 6)

	_, err := Enumerate(b, -1)
	assert.Error(t, err)

	_, err = Enumerate(b, tile.MaxZoom+1)
	assert.Error(t, err)
}

func TestEnumerate_NilBoundary(t *testing.T) {
	_, err := Enumerate(nil, 4)
	assert.ErrorIs(t, err, boundary.ErrInvalidBoundary)
}

func TestEnumerate_ZoomZero(t *testing.T) {
	b := rectBoundary(t, 4, 8, 5, 9, 6)

	tiles, err := Enumerate(b, 0)
	require.NoError(t, err)
	assert.Equal(t, []tile.Tile{{Z: 0, X: 0, Y: 0}}, tiles)
}
