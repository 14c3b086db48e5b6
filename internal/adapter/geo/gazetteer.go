package geo

import (
	"strings"
	"unicode"

	"github.com/paulmach/orb"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/internal/repository"
)

// Gazetteer resolves points against locality and neighborhood polygons.
type Gazetteer struct {
	localities    []area
	neighborhoods []area
	byName        map[string]string
}

var _ repository.GeoLocator = (*Gazetteer)(nil)

// LoadGazetteer reads both GeoJSON feature collections. Either path may be
// empty, in which case that level is never resolved.
func LoadGazetteer(localitiesPath, neighborhoodsPath, nameProperty string) (*Gazetteer, error) {
	localities, err := loadAreas(localitiesPath, nameProperty)
	if err != nil {
		return nil, err
	}
	neighborhoods, err := loadAreas(neighborhoodsPath, nameProperty)
	if err != nil {
		return nil, err
	}
	return newGazetteer(localities, neighborhoods), nil
}

func newGazetteer(localities, neighborhoods []area) *Gazetteer {
	g := &Gazetteer{
		localities:    localities,
		neighborhoods: neighborhoods,
		byName:        make(map[string]string, len(neighborhoods)),
	}
	for _, a := range neighborhoods {
		key := foldName(a.name)
		if _, dup := g.byName[key]; !dup {
			g.byName[key] = a.name
		}
	}
	return g
}

// Locate reports the first locality and neighborhood containing c. It
// returns false when neither level contains the point.
func (g *Gazetteer) Locate(c entity.Coordinates) (repository.Place, bool) {
	pt := orb.Point{c.Lon, c.Lat}
	var place repository.Place
	if a, ok := firstContaining(g.localities, pt); ok {
		place.Locality = a.name
	}
	if a, ok := firstContaining(g.neighborhoods, pt); ok {
		place.Neighborhood = a.name
	}
	return place, place.Locality != "" || place.Neighborhood != ""
}

// NeighborhoodByName matches ignoring case, accents and extra spaces.
func (g *Gazetteer) NeighborhoodByName(name string) (string, bool) {
	key := foldName(name)
	if key == "" {
		return "", false
	}
	n, ok := g.byName[key]
	return n, ok
}

func firstContaining(areas []area, pt orb.Point) (area, bool) {
	for _, a := range areas {
		if a.contains(pt) {
			return a, true
		}
	}
	return area{}, false
}

func foldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
