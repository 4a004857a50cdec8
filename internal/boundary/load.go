package boundary

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// Load reads a boundary from a shapefile (.shp) or GeoJSON (.geojson, .json)
// file. All polygon parts in the source are merged into a single Boundary.
func Load(path string) (*Boundary, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return loadShapefile(path)
	case ".geojson", ".json":
		return loadGeoJSON(path)
	default:
		return nil, eris.Wrapf(ErrInvalidBoundary, "unsupported boundary format %q", filepath.Ext(path))
	}
}

func loadShapefile(path string) (*Boundary, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(ErrInvalidBoundary, "open shapefile %s: %v", path, err)
	}
	defer func() { _ = reader.Close() }()

	mp := geom.NewMultiPolygon(geom.XY)
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		appendShapePolygon(mp, poly)
	}

	b, err := New(mp)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile %s has no polygon records", path)
	}
	zap.L().Info("boundary loaded",
		zap.String("path", path),
		zap.Int("polygons", mp.NumPolygons()),
	)
	return b, nil
}

// appendShapePolygon converts each part of a shapefile polygon into a
// single-ring polygon and pushes it onto the MultiPolygon.
func appendShapePolygon(mp *geom.MultiPolygon, p *shp.Polygon) {
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			continue
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("boundary: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("boundary: skipping malformed part", zap.Int32("part", i), zap.Error(err))
		}
	}
}

func loadGeoJSON(path string) (*Boundary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(ErrInvalidBoundary, "read %s: %v", path, err)
	}

	mp := geom.NewMultiPolygon(geom.XY)

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err == nil && len(fc.Features) > 0 {
		for _, f := range fc.Features {
			appendGeometry(mp, f.Geometry)
		}
	} else {
		var g geom.T
		if err := geojson.Unmarshal(data, &g); err != nil {
			return nil, eris.Wrapf(ErrInvalidBoundary, "parse geojson %s: %v", path, err)
		}
		appendGeometry(mp, g)
	}

	b, err := New(mp)
	if err != nil {
		return nil, eris.Wrapf(err, "geojson %s has no polygon geometry", path)
	}
	zap.L().Info("boundary loaded",
		zap.String("path", path),
		zap.Int("polygons", mp.NumPolygons()),
	)
	return b, nil
}

func appendGeometry(mp *geom.MultiPolygon, g geom.T) {
	switch gg := g.(type) {
	case *geom.Polygon:
		if err := mp.Push(gg); err != nil {
			zap.L().Debug("boundary: skipping polygon", zap.Error(err))
		}
	case *geom.MultiPolygon:
		for i := 0; i < gg.NumPolygons(); i++ {
			if err := mp.Push(gg.Polygon(i)); err != nil {
				zap.L().Debug("boundary: skipping polygon part", zap.Error(err))
			}
		}
	case *geom.GeometryCollection:
		for _, sub := range gg.Geoms() {
			appendGeometry(mp, sub)
		}
	}
}
