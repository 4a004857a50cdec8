// Package tile provides web-mercator tile addressing and coordinate math.
package tile

import (
	"fmt"
	"math"
)

// MaxZoom is the deepest quadtree level the system will address.
const MaxZoom = 30

// Web-mercator latitude clamp. Latitudes beyond this project to infinity.
const maxLatitude = 85.0511287798066

// Tile identifies a quadtree cell at zoom Z with column X and row Y.
type Tile struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

// String returns the tile in z/x/y path form.
func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Valid reports whether the tile indices are inside the quadtree at zoom Z.
func (t Tile) Valid() bool {
	if t.Z < 0 || t.Z > MaxZoom {
		return false
	}
	n := 1 << t.Z
	return t.X >= 0 && t.X < n && t.Y >= 0 && t.Y < n
}

// Index returns the fractional tile coordinates of a longitude/latitude at
// zoom. Latitude is clamped to the web-mercator projection limits.
func Index(lon, lat float64, zoom int) (xf, yf float64) {
	n := float64(int(1) << zoom)

	lat = math.Max(-maxLatitude, math.Min(maxLatitude, lat))
	latRad := lat * math.Pi / 180

	xf = (lon + 180) / 360 * n
	yf = (1 - math.Asinh(math.Tan(latRad))/math.Pi) / 2 * n
	return xf, yf
}

// FromLonLat returns the tile containing the given longitude/latitude at zoom.
// Indices are clamped to the valid range, so points on the antimeridian or at
// the poles map to the edge tile instead of an out-of-range index.
func FromLonLat(lon, lat float64, zoom int) Tile {
	xf, yf := Index(lon, lat, zoom)
	x := int(math.Floor(xf))
	y := int(math.Floor(yf))
	return Tile{Z: zoom, X: clampIndex(x, zoom), Y: clampIndex(y, zoom)}
}

// Bounds returns the geographic extent of the tile as west, south, east, north.
func (t Tile) Bounds() (west, south, east, north float64) {
	n := float64(int(1) << t.Z)
	west = float64(t.X)/n*360 - 180
	east = float64(t.X+1)/n*360 - 180
	north = yToLat(float64(t.Y), n)
	south = yToLat(float64(t.Y+1), n)
	return west, south, east, north
}

func yToLat(y, n float64) float64 {
	return math.Atan(math.Sinh(math.Pi*(1-2*y/n))) * 180 / math.Pi
}

func clampIndex(i, zoom int) int {
	max := (1 << zoom) - 1
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}
