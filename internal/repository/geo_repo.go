package repository

import "github.com/user/listing-pipeline/internal/entity"

// Place is the result of a reverse lookup against reference polygons.
type Place struct {
	Locality     string
	Neighborhood string
}

// GeoLocator resolves coordinates and sector names to reference areas.
type GeoLocator interface {
	Locate(c entity.Coordinates) (Place, bool)
	NeighborhoodByName(name string) (string, bool)
}

// POIIndex finds the nearest reference point of interest per category.
type POIIndex interface {
	Categories() []string
	Nearest(category string, c entity.Coordinates) (entity.NearestPOI, bool)
}
