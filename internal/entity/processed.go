package entity

import "time"

type NearestPOI struct {
	Name           string  `bson:"name" json:"name"`
	DistanceMeters float64 `bson:"distance_m" json:"distance_m"`
}

// ProcessedListing is the staging and processed document shape: the raw
// record plus everything the later stages attach to it.
type ProcessedListing struct {
	ListingRecord `bson:",inline"`

	Features FeatureSet `bson:"features" json:"features"`
	RunID    string     `bson:"run_id" json:"run_id"`
	RunAt    time.Time  `bson:"run_at" json:"run_at"`

	Locality             *string      `bson:"locality" json:"locality,omitempty"`
	Neighborhood         *string      `bson:"neighborhood" json:"neighborhood,omitempty"`
	CorrectedCoordinates *Coordinates `bson:"corrected_coordinates" json:"corrected_coordinates,omitempty"`
	CoordinatesValid     bool         `bson:"coordinates_valid" json:"coordinates_valid"`

	Nearby map[string]NearestPOI `bson:"nearby" json:"nearby,omitempty"`
}

// Location is the best known point for the listing, or nil.
func (p *ProcessedListing) Location() *Coordinates {
	if p.CorrectedCoordinates != nil {
		return p.CorrectedCoordinates
	}
	return p.Coordinates
}
