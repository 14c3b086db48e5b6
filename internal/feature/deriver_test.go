package feature

import (
	"testing"

	"github.com/user/listing-pipeline/internal/entity"
)

func intPtrEq(p *int, want int) bool { return p != nil && *p == want }

func TestFloorNumber(t *testing.T) {
	d := NewDeriver(English)

	if got := d.FloorNumber(entity.Present("FLOOR 3", "CLOSETS 2")); !intPtrEq(got, 3) {
		t.Fatalf("FLOOR 3 -> %v", got)
	}
	if got := d.FloorNumber(entity.Present("CLOSETS 2")); got != nil {
		t.Fatalf("no floor tag -> %v, want missing", *got)
	}
	if got := d.FloorNumber(entity.Absent()); got != nil {
		t.Fatalf("absent -> %v, want missing", *got)
	}
	if got := d.FloorNumber(entity.Present("FLOOR X")); got != nil {
		t.Fatalf("FLOOR X -> %v, want missing", *got)
	}
}

func TestClosetCount(t *testing.T) {
	d := NewDeriver(English)

	if got := d.ClosetCount(entity.Present("FLOOR 3", "CLOSETS 2")); !intPtrEq(got, 2) {
		t.Fatalf("CLOSETS 2 -> %v", got)
	}
	if got := d.ClosetCount(entity.Present("FLOOR 3")); got != nil {
		t.Fatalf("no closet tag -> %v", *got)
	}
	if got := d.ClosetCount(entity.Absent()); got != nil {
		t.Fatalf("absent -> %v", *got)
	}
	if got := d.ClosetCount(entity.Present("CLOSETS many")); got != nil {
		t.Fatalf("CLOSETS many -> %v", *got)
	}
	if got := d.ClosetCount(entity.Present("CLOSETS 0")); !intPtrEq(got, 0) {
		t.Fatalf("CLOSETS 0 -> %v, want 0", got)
	}
}

func TestSpanishNumerics(t *testing.T) {
	d := NewDeriver(Spanish)
	fs := d.Derive(entity.Present("PISO 12 DE 20", "CLOSETS 4"))
	if !intPtrEq(fs.FloorNumber, 12) || !intPtrEq(fs.ClosetCount, 4) {
		t.Fatalf("got floor=%v closets=%v", fs.FloorNumber, fs.ClosetCount)
	}
}

func TestPresenceFlagsExactMatch(t *testing.T) {
	d := NewDeriver(Spanish)

	tests := []struct {
		name string
		tags []string
		get  func(entity.FeatureSet) bool
		want bool
	}{
		{"jacuzzi", []string{"JACUZZI"}, func(f entity.FeatureSet) bool { return f.Jacuzzi }, true},
		{"fireplace", []string{"CHIMENEA"}, func(f entity.FeatureSet) bool { return f.Fireplace }, true},
		{"gym", []string{"GIMNASIO"}, func(f entity.FeatureSet) bool { return f.Gym }, true},
		{"elevator", []string{"ASCENSOR"}, func(f entity.FeatureSet) bool { return f.Elevator }, true},
		{"gated", []string{"CONJUNTO CERRADO"}, func(f entity.FeatureSet) bool { return f.GatedCommunity }, true},
		{"pool", []string{"PISCINA"}, func(f entity.FeatureSet) bool { return f.Pool }, true},
		{"lounge", []string{"SALÓN COMUNAL"}, func(f entity.FeatureSet) bool { return f.CommunalLounge }, true},
		{"terrace", []string{"TERRAZA"}, func(f entity.FeatureSet) bool { return f.Terrace }, true},
		{"furnished", []string{"AMOBLADO"}, func(f entity.FeatureSet) bool { return f.Furnished }, true},
		{"partial label is not a match", []string{"PISCINA CLIMATIZADA"}, func(f entity.FeatureSet) bool { return f.Pool }, false},
		{"lowercase is not a match", []string{"piscina"}, func(f entity.FeatureSet) bool { return f.Pool }, false},
		{"security substring", []string{"VIGILANCIA 24 HORAS"}, func(f entity.FeatureSet) bool { return f.Security }, true},
		{"security missing", []string{"PORTERÍA"}, func(f entity.FeatureSet) bool { return f.Security }, false},
		{"pets permits", []string{"PERMITE MASCOTAS"}, func(f entity.FeatureSet) bool { return f.PetsAllowed }, true},
		{"pets admits", []string{"ADMITE MASCOTAS"}, func(f entity.FeatureSet) bool { return f.PetsAllowed }, true},
		{"pets other phrasing", []string{"MASCOTAS"}, func(f entity.FeatureSet) bool { return f.PetsAllowed }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.get(d.Derive(entity.Present(tc.tags...))); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAbsentBucketYieldsDefaults(t *testing.T) {
	for _, v := range []Vocabulary{Spanish, English} {
		fs := NewDeriver(v).Derive(entity.Absent())
		if fs != (entity.FeatureSet{}) {
			t.Fatalf("%s: absent bucket -> %+v", v.Name, fs)
		}
	}
}

func TestDeriveListingMergesBuckets(t *testing.T) {
	d := NewDeriver(Spanish)
	rec := &entity.ListingRecord{
		Code:               "123",
		Website:            "metrocuadrado.com",
		FeaturedInterior:   entity.Present("CHIMENEA", "CLOSETS 3"),
		FeaturedExterior:   entity.Absent(),
		FeaturedCommonArea: entity.Present("PISCINA", "GIMNASIO", "PISO 7"),
		FeaturedSector:     entity.Present("PISO 2"),
	}

	fs := d.DeriveListing(rec)
	if !fs.Fireplace || !fs.Pool || !fs.Gym {
		t.Fatalf("flags not merged: %+v", fs)
	}
	if fs.Jacuzzi || fs.Elevator {
		t.Fatalf("unexpected flags: %+v", fs)
	}
	if !intPtrEq(fs.FloorNumber, 7) {
		t.Fatalf("floor = %v, want 7 from the first bucket carrying one", fs.FloorNumber)
	}
	if !intPtrEq(fs.ClosetCount, 3) {
		t.Fatalf("closets = %v", fs.ClosetCount)
	}

	empty := d.DeriveListing(&entity.ListingRecord{Code: "1", Website: "x"})
	if empty != (entity.FeatureSet{}) {
		t.Fatalf("all-absent record -> %+v", empty)
	}
}

func TestVocabularyByName(t *testing.T) {
	if v, err := VocabularyByName("EN"); err != nil || v.FloorPrefix != "FLOOR " {
		t.Fatalf("got %+v, %v", v, err)
	}
	if _, err := VocabularyByName("fr"); err == nil {
		t.Fatalf("expected error")
	}
}
