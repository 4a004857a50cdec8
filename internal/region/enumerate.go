// Package region enumerates the tiles covering a boundary at a zoom level.
package region

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tilemirror/internal/boundary"
	"github.com/sells-group/tilemirror/internal/tile"
)

// Enumerate returns every tile at the given zoom whose geographic extent
// intersects the boundary. The result is deterministic for a fixed boundary
// and zoom: tiles are emitted in row-major order (ascending x, then y).
func Enumerate(b *boundary.Boundary, zoom int) ([]tile.Tile, error) {
	if b == nil {
		return nil, boundary.ErrInvalidBoundary
	}
	if zoom < 0 || zoom > tile.MaxZoom {
		return nil, eris.Errorf("region: zoom %d out of range [0, %d]", zoom, tile.MaxZoom)
	}

	west, south, east, north := b.BBox()

	// The bbox corners give an inclusive rectangular index range; the
	// per-tile intersection test below trims it to the polygon. The max
	// corner treats a coordinate lying exactly on a tile edge as belonging
	// to the previous tile, so a boundary aligned to tile edges does not
	// pull in the edge-touching row and column beyond its own extent.
	min := tile.FromLonLat(west, north, zoom)
	maxXf, maxYf := tile.Index(east, south, zoom)
	max := tile.Tile{Z: zoom, X: maxCornerIndex(maxXf, zoom), Y: maxCornerIndex(maxYf, zoom)}

	var tiles []tile.Tile
	for x := min.X; x <= max.X; x++ {
		for y := min.Y; y <= max.Y; y++ {
			t := tile.Tile{Z: zoom, X: x, Y: y}
			tw, ts, te, tn := t.Bounds()
			if b.IntersectsBox(tw, ts, te, tn) {
				tiles = append(tiles, t)
			}
		}
	}

	zap.L().Debug("region enumerated",
		zap.Int("zoom", zoom),
		zap.Int("candidates", (max.X-min.X+1)*(max.Y-min.Y+1)),
		zap.Int("tiles", len(tiles)),
	)
	return tiles, nil
}

// edgeEpsilon absorbs floating-point noise when deciding whether a bbox
// corner sits exactly on a tile edge.
const edgeEpsilon = 1e-7

// maxCornerIndex floors a fractional tile index with the cell edge treated as
// exclusive: a corner exactly on an edge maps to the cell before it.
func maxCornerIndex(f float64, zoom int) int {
	i := int(math.Floor(f))
	if f-math.Floor(f) < edgeEpsilon {
		i--
	}
	maxIdx := (1 << zoom) - 1
	if i < 0 {
		return 0
	}
	if i > maxIdx {
		return maxIdx
	}
	return i
}
