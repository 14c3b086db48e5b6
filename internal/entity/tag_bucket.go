package entity

import (
	"bytes"
	"encoding/json"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// TagBucket holds one slot of amenity tags. The zero value is Absent,
// which is distinct from a present but empty bucket.
type TagBucket struct {
	tags    []string
	present bool
}

func Present(tags ...string) TagBucket {
	return TagBucket{tags: append([]string{}, tags...), present: true}
}

func Absent() TagBucket { return TagBucket{} }

// Tags returns a copy of the tags and whether the bucket is present.
func (b TagBucket) Tags() ([]string, bool) {
	if !b.present {
		return nil, false
	}
	return append([]string{}, b.tags...), true
}

func (b TagBucket) IsPresent() bool { return b.present }

func (b TagBucket) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !b.present {
		return bson.TypeNull, nil, nil
	}
	tags := b.tags
	if tags == nil {
		tags = []string{}
	}
	return bson.MarshalValue(tags)
}

// UnmarshalBSONValue treats anything but an array as Absent.
func (b *TagBucket) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t != bson.TypeArray {
		*b = Absent()
		return nil
	}
	var tags []string
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&tags); err != nil {
		return err
	}
	*b = Present(tags...)
	return nil
}

func (b TagBucket) MarshalJSON() ([]byte, error) {
	if !b.present {
		return []byte("null"), nil
	}
	tags := b.tags
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(tags)
}

func (b *TagBucket) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		*b = Absent()
		return nil
	}
	var tags []string
	if err := json.Unmarshal(trimmed, &tags); err != nil {
		return err
	}
	*b = Present(tags...)
	return nil
}
