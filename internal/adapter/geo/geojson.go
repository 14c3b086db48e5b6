package geo

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// area is one named polygon with its bounding box for prefiltering.
type area struct {
	name  string
	geom  orb.Geometry
	bound orb.Bound
}

func (a area) contains(pt orb.Point) bool {
	if !a.bound.Contains(pt) {
		return false
	}
	switch g := a.geom.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, pt)
	}
	return false
}

func readFeatures(path string) ([]*geojson.Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return fc.Features, nil
}

// loadAreas keeps polygon features that carry a name. An empty path yields
// no areas.
func loadAreas(path, nameProperty string) ([]area, error) {
	if path == "" {
		return nil, nil
	}
	features, err := readFeatures(path)
	if err != nil {
		return nil, err
	}
	areas := make([]area, 0, len(features))
	for _, f := range features {
		name := f.Properties.MustString(nameProperty, "")
		if name == "" || f.Geometry == nil {
			continue
		}
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
			areas = append(areas, area{name: name, geom: f.Geometry, bound: f.Geometry.Bound()})
		}
	}
	return areas, nil
}
