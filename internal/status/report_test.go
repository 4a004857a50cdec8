package status

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/tilemirror/internal/boundary"
	"github.com/sells-group/tilemirror/internal/store"
	"github.com/sells-group/tilemirror/internal/tile"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "tiles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// boundaryForTiles builds a boundary exactly covering the inclusive tile
// range [minX..maxX] x [minY..maxY] at zoom.
func boundaryForTiles(t *testing.T, zoom, minX, minY, maxX, maxY int) *boundary.Boundary {
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

func TestReport_Classification(t *testing.T) {
	// Boundary covers tiles (100..101, 200..201) at zoom 15; the store holds
	// one record updated at 2024-01-01.
	st := newTestStore(t)
	b := boundaryForTiles(t, 15, 100, 200, 101, 201)
	updated := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.UpsertTile(context.Background(),
		tile.Tile{Z: 15, X: 100, Y: 200}, []byte("pbf"), updated))

	t.Run("since after update: scraped", func(t *testing.T) {
		since := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
		rep, err := Report(context.Background(), st, b, 15, 15, &since)
		require.NoError(t, err)

		require.Len(t, rep.Scraped, 1)
		assert.Equal(t, 100, rep.Scraped[0].X)
		assert.Equal(t, 200, rep.Scraped[0].Y)
		assert.Equal(t, 15, rep.Scraped[0].Z)
		require.NotNil(t, rep.Scraped[0].UpdatedAt)
		assert.True(t, rep.Scraped[0].UpdatedAt.Equal(updated))

		assert.Len(t, rep.Missing, 3)
		assert.Empty(t, rep.Updated)
	})

	t.Run("since before update: updated", func(t *testing.T) {
		since := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
		rep, err := Report(context.Background(), st, b, 15, 15, &since)
		require.NoError(t, err)

		assert.Empty(t, rep.Scraped)
		assert.Len(t, rep.Missing, 3)
		require.Len(t, rep.Updated, 1)
		assert.Equal(t, 100, rep.Updated[0].X)
	})

	t.Run("since equal to update: updated", func(t *testing.T) {
		rep, err := Report(context.Background(), st, b, 15, 15, &updated)
		require.NoError(t, err)
		assert.Len(t, rep.Updated, 1)
		assert.Empty(t, rep.Scraped)
	})

	t.Run("no since: scraped", func(t *testing.T) {
		rep, err := Report(context.Background(), st, b, 15, 15, nil)
		require.NoError(t, err)
		assert.Len(t, rep.Scraped, 1)
		assert.Len(t, rep.Missing, 3)
		assert.Empty(t, rep.Updated)
	})
}

func TestReport_EmptyStore(t *testing.T) {
	st := newTestStore(t)
	b := boundaryForTiles(t, 10, 50, 50, 51, 51)

	rep, err := Report(context.Background(), st, b, 10, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, rep.Scraped)
	assert.Empty(t, rep.Updated)
	assert.Len(t, rep.Missing, 4)
}

func TestReport_MultipleZooms(t *testing.T) {
	st := newTestStore(t)
	// Boundary aligned to one zoom-10 tile, which is 4 tiles at zoom 11.
	b := boundaryForTiles(t, 10, 50, 50, 50, 50)

	rep, err := Report(context.Background(), st, b, 10, 11, nil)
	require.NoError(t, err)
	assert.Len(t, rep.Missing, 1+4)
}

func TestReport_Deterministic(t *testing.T) {
	st := newTestStore(t)
	b := boundaryForTiles(t, 12, 500, 600, 502, 602)
	require.NoError(t, st.UpsertTile(context.Background(),
		tile.Tile{Z: 12, X: 501, Y: 601}, []byte("x"), time.Now().UTC()))

	first, err := Report(context.Background(), st, b, 12, 12, nil)
	require.NoError(t, err)
	second, err := Report(context.Background(), st, b, 12, 12, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReport_InvalidZoomRange(t *testing.T) {
	st := newTestStore(t)
	b := boundaryForTiles(t, 10, 50, 50, 51, 51)

	_, err := Report(context.Background(), st, b, 12, 10, nil)
	assert.Error(t, err)
}
