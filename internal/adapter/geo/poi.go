package geo

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/internal/repository"
)

type poi struct {
	name  string
	point orb.Point
}

// POIIndex holds reference points of interest grouped by category.
type POIIndex struct {
	categories []string
	points     map[string][]poi
}

var _ repository.POIIndex = (*POIIndex)(nil)

// LoadPOIIndex reads one GeoJSON file per category. Non-point geometries
// are reduced to the center of their bounding box.
func LoadPOIIndex(paths map[string]string, nameProperty string) (*POIIndex, error) {
	idx := &POIIndex{points: make(map[string][]poi, len(paths))}
	for category, path := range paths {
		features, err := readFeatures(path)
		if err != nil {
			return nil, err
		}
		var pts []poi
		for _, f := range features {
			if f.Geometry == nil {
				continue
			}
			pt, ok := f.Geometry.(orb.Point)
			if !ok {
				pt = f.Geometry.Bound().Center()
			}
			pts = append(pts, poi{name: f.Properties.MustString(nameProperty, ""), point: pt})
		}
		idx.points[category] = pts
		idx.categories = append(idx.categories, category)
	}
	sort.Strings(idx.categories)
	return idx, nil
}

func (i *POIIndex) Categories() []string {
	return append([]string(nil), i.categories...)
}

// Nearest returns the closest POI by great-circle distance in meters.
func (i *POIIndex) Nearest(category string, c entity.Coordinates) (entity.NearestPOI, bool) {
	pts := i.points[category]
	if len(pts) == 0 {
		return entity.NearestPOI{}, false
	}
	from := orb.Point{c.Lon, c.Lat}
	best, bestDist := -1, math.Inf(1)
	for j, p := range pts {
		if d := geo.DistanceHaversine(from, p.point); d < bestDist {
			best, bestDist = j, d
		}
	}
	return entity.NearestPOI{Name: pts[best].name, DistanceMeters: bestDist}, true
}
