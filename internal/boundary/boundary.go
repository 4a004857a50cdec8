// Package boundary holds the target region polygon and its geometric predicates.
package boundary

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/lineintersector"
)

// ErrInvalidBoundary indicates the boundary geometry is missing, empty, or unparseable.
// It is fatal to a run: no enumeration or scheduling may proceed without a boundary.
var ErrInvalidBoundary = eris.New("boundary: invalid or empty geometry")

// Boundary is an immutable region polygon in longitude/latitude. It is
// constructed once at startup and passed explicitly to the enumerator and
// reporter; it is never mutated afterwards, so it is safe for concurrent use.
type Boundary struct {
	mp     *geom.MultiPolygon
	bounds *geom.Bounds
}

// New wraps a MultiPolygon as a Boundary. Returns ErrInvalidBoundary if the
// geometry is nil or has no rings.
func New(mp *geom.MultiPolygon) (*Boundary, error) {
	if mp == nil || mp.NumPolygons() == 0 || len(mp.FlatCoords()) == 0 {
		return nil, ErrInvalidBoundary
	}
	return &Boundary{mp: mp, bounds: mp.Bounds()}, nil
}

// BBox returns the axis-aligned bounding box as west, south, east, north.
func (b *Boundary) BBox() (west, south, east, north float64) {
	return b.bounds.Min(0), b.bounds.Min(1), b.bounds.Max(0), b.bounds.Max(1)
}

// NumPolygons returns the number of polygon parts.
func (b *Boundary) NumPolygons() int {
	return b.mp.NumPolygons()
}

// ContainsPoint reports whether the given lon/lat lies inside the boundary.
func (b *Boundary) ContainsPoint(lon, lat float64) bool {
	p := geom.Coord{lon, lat}
	for i := 0; i < b.mp.NumPolygons(); i++ {
		poly := b.mp.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			if xy.IsPointInRing(geom.XY, p, poly.LinearRing(j).FlatCoords()) {
				return true
			}
		}
	}
	return false
}

// IntersectsBox reports whether the axis-aligned box intersects the boundary.
// Touching at an edge or point counts as intersecting.
func (b *Boundary) IntersectsBox(west, south, east, north float64) bool {
	// Cheap bounding-box reject.
	if west > b.bounds.Max(0) || east < b.bounds.Min(0) ||
		south > b.bounds.Max(1) || north < b.bounds.Min(1) {
		return false
	}

	corners := []geom.Coord{
		{west, south}, {east, south}, {east, north}, {west, north},
	}

	for i := 0; i < b.mp.NumPolygons(); i++ {
		poly := b.mp.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			ring := poly.LinearRing(j)
			flat := ring.FlatCoords()

			// Box corner inside the polygon ring.
			for _, c := range corners {
				if xy.IsPointInRing(geom.XY, c, flat) {
					return true
				}
			}

			// Ring vertex inside the box.
			for k := 0; k < ring.NumCoords(); k++ {
				c := ring.Coord(k)
				if c[0] >= west && c[0] <= east && c[1] >= south && c[1] <= north {
					return true
				}
			}

			// Ring edge crossing a box edge.
			if ringCrossesBox(ring, corners) {
				return true
			}
		}
	}
	return false
}

// ringCrossesBox tests every ring segment against the four box edges.
func ringCrossesBox(ring *geom.LinearRing, corners []geom.Coord) bool {
	strategy := lineintersector.RobustLineIntersector{}
	n := ring.NumCoords()
	for k := 0; k < n-1; k++ {
		a, b := ring.Coord(k), ring.Coord(k+1)
		for e := 0; e < 4; e++ {
			p, q := corners[e], corners[(e+1)%4]
			r := lineintersector.LineIntersectsLine(strategy, a, b, p, q)
			if r.HasIntersection() {
				return true
			}
		}
	}
	return false
}
