package entity

// FeatureSet is derived from a listing's tag buckets during normalization.
// Flags default to false; the numeric fields are nil when unknown.
type FeatureSet struct {
	Jacuzzi        bool `bson:"jacuzzi" json:"jacuzzi"`
	Fireplace      bool `bson:"fireplace" json:"fireplace"`
	Gym            bool `bson:"gym" json:"gym"`
	Elevator       bool `bson:"elevator" json:"elevator"`
	GatedCommunity bool `bson:"gated_community" json:"gated_community"`
	Pool           bool `bson:"pool" json:"pool"`
	CommunalLounge bool `bson:"communal_lounge" json:"communal_lounge"`
	Terrace        bool `bson:"terrace" json:"terrace"`
	Furnished      bool `bson:"furnished" json:"furnished"`
	Security       bool `bson:"security" json:"security"`
	PetsAllowed    bool `bson:"pets_allowed" json:"pets_allowed"`

	FloorNumber *int `bson:"floor_number" json:"floor_number,omitempty"`
	ClosetCount *int `bson:"closet_count" json:"closet_count,omitempty"`
}
