package entity

import (
	"fmt"
	"strings"
	"time"
)

type OperationType string

const (
	OperationSale OperationType = "sale"
	OperationRent OperationType = "rent"
)

// ParseOperationType accepts "sale" or "rent" in any case.
func ParseOperationType(s string) (OperationType, error) {
	switch OperationType(strings.ToLower(strings.TrimSpace(s))) {
	case OperationSale:
		return OperationSale, nil
	case OperationRent:
		return OperationRent, nil
	}
	return "", fmt.Errorf("unknown operation type %q", s)
}

type Coordinates struct {
	Lon float64 `bson:"lon" json:"lon"`
	Lat float64 `bson:"lat" json:"lat"`
}

// ListingRecord is one listing as extracted from a detail page. Only Code
// and Website are required; nil pointers mean the field was not present.
type ListingRecord struct {
	Code          string       `bson:"code" json:"code"`
	Website       string       `bson:"website" json:"website"`
	PropertyType  *string      `bson:"property_type" json:"property_type,omitempty"`
	OperationType *string      `bson:"operation_type" json:"operation_type,omitempty"`
	SalePrice     *float64     `bson:"sale_price" json:"sale_price,omitempty"`
	RentPrice     *float64     `bson:"rent_price" json:"rent_price,omitempty"`
	Area          *float64     `bson:"area" json:"area,omitempty"`
	Rooms         *int         `bson:"rooms" json:"rooms,omitempty"`
	Bathrooms     *int         `bson:"bathrooms" json:"bathrooms,omitempty"`
	AdminFee      *float64     `bson:"admin_fee" json:"admin_fee,omitempty"`
	Parking       *int         `bson:"parking" json:"parking,omitempty"`
	Sector        *string      `bson:"sector" json:"sector,omitempty"`
	Stratum       *int         `bson:"stratum" json:"stratum,omitempty"`
	Age           *string      `bson:"age" json:"age,omitempty"`
	PropertyState *string      `bson:"property_state" json:"property_state,omitempty"`
	Coordinates   *Coordinates `bson:"coordinates" json:"coordinates,omitempty"`

	FeaturedInterior   TagBucket `bson:"featured_interior" json:"featured_interior"`
	FeaturedExterior   TagBucket `bson:"featured_exterior" json:"featured_exterior"`
	FeaturedCommonArea TagBucket `bson:"featured_common_area" json:"featured_common_area"`
	FeaturedSector     TagBucket `bson:"featured_sector" json:"featured_sector"`

	Images      []string `bson:"images" json:"images"`
	Company     *string  `bson:"company" json:"company,omitempty"`
	Description *string  `bson:"description" json:"description,omitempty"`

	CrawlRunID string    `bson:"crawl_run_id" json:"crawl_run_id"`
	FirstSeen  time.Time `bson:"first_seen" json:"first_seen"`
	LastSeen   time.Time `bson:"last_seen" json:"last_seen"`
}

// Buckets returns the feature buckets in slot order: interior, exterior,
// common area, sector.
func (r *ListingRecord) Buckets() [4]TagBucket {
	return [4]TagBucket{r.FeaturedInterior, r.FeaturedExterior, r.FeaturedCommonArea, r.FeaturedSector}
}

// Key identifies the listing across runs.
func (r *ListingRecord) Key() string {
	return r.Website + "/" + r.Code
}
