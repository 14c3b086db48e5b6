package feature

import (
	"fmt"
	"strings"
)

// Vocabulary is the set of amenity labels a source uses. Labels match
// whole tags, except Security which matches as a substring.
type Vocabulary struct {
	Name           string
	Jacuzzi        string
	Fireplace      string
	Gym            string
	Elevator       string
	GatedCommunity string
	Pool           string
	CommunalLounge string
	Terrace        string
	Furnished      string
	Security       string
	Pets           []string
	FloorPrefix    string
	ClosetPrefix   string
}

// Spanish is the vocabulary published by metrocuadrado.com.
var Spanish = Vocabulary{
	Name:           "es",
	Jacuzzi:        "JACUZZI",
	Fireplace:      "CHIMENEA",
	Gym:            "GIMNASIO",
	Elevator:       "ASCENSOR",
	GatedCommunity: "CONJUNTO CERRADO",
	Pool:           "PISCINA",
	CommunalLounge: "SALÓN COMUNAL",
	Terrace:        "TERRAZA",
	Furnished:      "AMOBLADO",
	Security:       "VIGILANCIA",
	Pets:           []string{"PERMITE MASCOTAS", "ADMITE MASCOTAS"},
	FloorPrefix:    "PISO ",
	ClosetPrefix:   "CLOSETS ",
}

var English = Vocabulary{
	Name:           "en",
	Jacuzzi:        "JACUZZI",
	Fireplace:      "FIREPLACE",
	Gym:            "GYM",
	Elevator:       "ELEVATOR",
	GatedCommunity: "GATED COMMUNITY",
	Pool:           "POOL",
	CommunalLounge: "COMMUNAL LOUNGE",
	Terrace:        "TERRACE",
	Furnished:      "FURNISHED",
	Security:       "SECURITY",
	Pets:           []string{"ALLOWS PETS", "ADMITS PETS"},
	FloorPrefix:    "FLOOR ",
	ClosetPrefix:   "CLOSETS ",
}

func VocabularyByName(name string) (Vocabulary, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "es", "":
		return Spanish, nil
	case "en":
		return English, nil
	}
	return Vocabulary{}, fmt.Errorf("unknown feature vocabulary %q", name)
}
