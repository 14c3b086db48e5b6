package feature

import (
	"slices"
	"strconv"
	"strings"

	"github.com/user/listing-pipeline/internal/entity"
)

// Deriver maps amenity tags to a FeatureSet. All methods are total: an
// absent bucket yields false flags and nil numerics.
type Deriver struct {
	vocab Vocabulary
}

func NewDeriver(v Vocabulary) *Deriver {
	return &Deriver{vocab: v}
}

// Derive computes the FeatureSet of a single bucket.
func (d *Deriver) Derive(b entity.TagBucket) entity.FeatureSet {
	tags, ok := b.Tags()
	if !ok {
		return entity.FeatureSet{}
	}
	return entity.FeatureSet{
		Jacuzzi:        slices.Contains(tags, d.vocab.Jacuzzi),
		Fireplace:      slices.Contains(tags, d.vocab.Fireplace),
		Gym:            slices.Contains(tags, d.vocab.Gym),
		Elevator:       slices.Contains(tags, d.vocab.Elevator),
		GatedCommunity: slices.Contains(tags, d.vocab.GatedCommunity),
		Pool:           slices.Contains(tags, d.vocab.Pool),
		CommunalLounge: slices.Contains(tags, d.vocab.CommunalLounge),
		Terrace:        slices.Contains(tags, d.vocab.Terrace),
		Furnished:      slices.Contains(tags, d.vocab.Furnished),
		Security:       containsSubstring(tags, d.vocab.Security),
		PetsAllowed:    containsAny(tags, d.vocab.Pets),
		FloorNumber:    prefixedInt(tags, d.vocab.FloorPrefix),
		ClosetCount:    prefixedInt(tags, d.vocab.ClosetPrefix),
	}
}

// DeriveListing merges the four buckets of a record. A flag is set when
// any bucket sets it; numerics come from the first bucket, in slot order,
// that yields one.
func (d *Deriver) DeriveListing(rec *entity.ListingRecord) entity.FeatureSet {
	var fs entity.FeatureSet
	for _, b := range rec.Buckets() {
		if !b.IsPresent() {
			continue
		}
		part := d.Derive(b)
		fs.Jacuzzi = fs.Jacuzzi || part.Jacuzzi
		fs.Fireplace = fs.Fireplace || part.Fireplace
		fs.Gym = fs.Gym || part.Gym
		fs.Elevator = fs.Elevator || part.Elevator
		fs.GatedCommunity = fs.GatedCommunity || part.GatedCommunity
		fs.Pool = fs.Pool || part.Pool
		fs.CommunalLounge = fs.CommunalLounge || part.CommunalLounge
		fs.Terrace = fs.Terrace || part.Terrace
		fs.Furnished = fs.Furnished || part.Furnished
		fs.Security = fs.Security || part.Security
		fs.PetsAllowed = fs.PetsAllowed || part.PetsAllowed
		if fs.FloorNumber == nil {
			fs.FloorNumber = part.FloorNumber
		}
		if fs.ClosetCount == nil {
			fs.ClosetCount = part.ClosetCount
		}
	}
	return fs
}

func (d *Deriver) FloorNumber(b entity.TagBucket) *int {
	tags, _ := b.Tags()
	return prefixedInt(tags, d.vocab.FloorPrefix)
}

func (d *Deriver) ClosetCount(b entity.TagBucket) *int {
	tags, _ := b.Tags()
	return prefixedInt(tags, d.vocab.ClosetPrefix)
}

func containsSubstring(tags []string, needle string) bool {
	if needle == "" {
		return false
	}
	for _, t := range tags {
		if strings.Contains(t, needle) {
			return true
		}
	}
	return false
}

func containsAny(tags, phrases []string) bool {
	for _, p := range phrases {
		if slices.Contains(tags, p) {
			return true
		}
	}
	return false
}

// prefixedInt parses the token after the prefix of the first matching tag.
// Only the first matching tag is considered.
func prefixedInt(tags []string, prefix string) *int {
	if prefix == "" {
		return nil
	}
	for _, t := range tags {
		if !strings.HasPrefix(t, prefix) {
			continue
		}
		fields := strings.Fields(t[len(prefix):])
		if len(fields) == 0 {
			return nil
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil
		}
		return &n
	}
	return nil
}
