// Package status classifies in-region tiles by freshness.
package status

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tilemirror/internal/boundary"
	"github.com/sells-group/tilemirror/internal/region"
	"github.com/sells-group/tilemirror/internal/store"
)

// TileInfo is one classified tile coordinate. UpdatedAt is present for tiles
// that have a record.
type TileInfo struct {
	X         int        `json:"x" yaml:"x"`
	Y         int        `json:"y" yaml:"y"`
	Z         int        `json:"z" yaml:"z"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// TileStatus buckets every in-region tile as scraped, missing, or updated.
type TileStatus struct {
	Scraped []TileInfo `json:"scraped" yaml:"scraped"`
	Missing []TileInfo `json:"missing" yaml:"missing"`
	Updated []TileInfo `json:"updated" yaml:"updated"`
}

// Report enumerates each zoom level in [minZoom, maxZoom] and classifies
// every in-region tile against the store:
//
//   - no record: missing
//   - record, and since is nil or updated_at < since: scraped
//   - record, since set, updated_at >= since: updated
//
// Pure read-side aggregation: the store is never written. Output order
// follows the deterministic enumeration order per zoom.
func Report(ctx context.Context, st store.Store, b *boundary.Boundary, minZoom, maxZoom int, since *time.Time) (*TileStatus, error) {
	if minZoom > maxZoom {
		return nil, eris.Errorf("status: min_zoom %d exceeds max_zoom %d", minZoom, maxZoom)
	}

	result := &TileStatus{
		Scraped: []TileInfo{},
		Missing: []TileInfo{},
		Updated: []TileInfo{},
	}

	for zoom := minZoom; zoom <= maxZoom; zoom++ {
		tiles, err := region.Enumerate(b, zoom)
		if err != nil {
			return nil, err
		}

		updatedAt, err := st.SnapshotUpdatedAt(ctx, zoom)
		if err != nil {
			return nil, eris.Wrapf(err, "status: snapshot zoom %d", zoom)
		}

		for _, t := range tiles {
			ts, ok := updatedAt[t]
			if !ok {
				result.Missing = append(result.Missing, TileInfo{X: t.X, Y: t.Y, Z: t.Z})
				continue
			}

			info := TileInfo{X: t.X, Y: t.Y, Z: t.Z, UpdatedAt: &ts}
			if since != nil && !ts.Before(*since) {
				result.Updated = append(result.Updated, info)
			} else {
				result.Scraped = append(result.Scraped, info)
			}
		}
	}

	return result, nil
}
