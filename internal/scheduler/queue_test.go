package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/tilemirror/internal/tile"
)

func tl(x, y int) tile.Tile { return tile.Tile{Z: 16, X: x, Y: y} }

func TestBuildQueue_NeverFetchedFirst(t *testing.T) {
	now := time.Now().UTC()
	region := []tile.Tile{tl(0, 0), tl(1, 0), tl(2, 0), tl(3, 0)}
	snap := map[tile.Tile]time.Time{
		tl(0, 0): now.Add(-time.Hour),
		tl(2, 0): now.Add(-2 * time.Hour),
	}

	queue := BuildQueue(region, snap)

	assert.Len(t, queue, 4)
	// The two never-fetched tiles occupy the front, in any order.
	assert.ElementsMatch(t, []tile.Tile{tl(1, 0), tl(3, 0)}, queue[:2])
	// Fetched tiles follow, oldest request first.
	assert.Equal(t, tl(2, 0), queue[2])
	assert.Equal(t, tl(0, 0), queue[3])
}

func TestBuildQueue_AscendingByLastRequested(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	region := []tile.Tile{tl(0, 0), tl(1, 1), tl(2, 2), tl(3, 3)}
	snap := map[tile.Tile]time.Time{
		tl(0, 0): base.Add(3 * time.Hour),
		tl(1, 1): base.Add(1 * time.Hour),
		tl(2, 2): base.Add(4 * time.Hour),
		tl(3, 3): base.Add(2 * time.Hour),
	}

	queue := BuildQueue(region, snap)

	want := []tile.Tile{tl(1, 1), tl(3, 3), tl(0, 0), tl(2, 2)}
	assert.Equal(t, want, queue)
}

func TestBuildQueue_EmptyRegion(t *testing.T) {
	queue := BuildQueue(nil, map[tile.Tile]time.Time{tl(0, 0): time.Now()})
	assert.Empty(t, queue)
}

func TestBuildQueue_AllNeverFetched(t *testing.T) {
	region := []tile.Tile{tl(5, 5), tl(6, 6), tl(7, 7)}

	queue := BuildQueue(region, map[tile.Tile]time.Time{})

	assert.ElementsMatch(t, region, queue)
}

func TestBuildQueue_SnapshotIsolation(t *testing.T) {
	region := []tile.Tile{tl(0, 0), tl(1, 1)}
	snap := map[tile.Tile]time.Time{tl(0, 0): time.Now().UTC()}

	queue := BuildQueue(region, snap)

	// Mutating the snapshot after the build must not affect the queue.
	snap[tl(1, 1)] = time.Now().UTC().Add(time.Hour)
	assert.Equal(t, tl(1, 1), queue[0])
	assert.Equal(t, tl(0, 0), queue[1])
}
