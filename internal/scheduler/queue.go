// Package scheduler orders region tiles for re-fetch by staleness.
package scheduler

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/tilemirror/internal/tile"
)

// epochZero is the explicit priority sentinel for tiles that have never been
// fetched. It sorts before any real request timestamp, so never-fetched tiles
// always drain first.
var epochZero = time.Unix(0, 0).UTC()

type entry struct {
	tile     tile.Tile
	priority time.Time
}

// BuildQueue returns the region tiles ordered for fetching: never-fetched
// tiles first, then ascending by last-requested time. Tiles absent from
// lastRequested are treated as never fetched. Order among equal priorities is
// undefined. The returned queue is a snapshot; later store writes do not
// reorder it.
func BuildQueue(region []tile.Tile, lastRequested map[tile.Tile]time.Time) []tile.Tile {
	entries := make([]entry, 0, len(region))
	var unfetched int
	for _, t := range region {
		p := epochZero
		if ts, ok := lastRequested[t]; ok {
			p = ts
		} else {
			unfetched++
		}
		entries = append(entries, entry{tile: t, priority: p})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].priority.Before(entries[j].priority)
	})

	queue := make([]tile.Tile, len(entries))
	for i, e := range entries {
		queue[i] = e.tile
	}

	zap.L().Debug("work queue built",
		zap.Int("tiles", len(queue)),
		zap.Int("never_fetched", unfetched),
	)
	return queue
}
