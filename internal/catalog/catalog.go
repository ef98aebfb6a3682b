package catalog

import "fmt"

// City is a supported city name. Catalog cities are also the reply topics.
type City string

// cities is the navigation order shown on the station.
var cities = [...]City{
	"Brno",
	"Prague",
	"Ostrava",
	"Plzen",
	"Liberec",
	"Olomouc",
	"Vienna",
	"Berlin",
	"Paris",
	"London",
}

// CityCount is the number of cities in the catalog.
const CityCount = len(cities)

// Cities returns a copy of the catalog in navigation order.
func Cities() []City {
	out := make([]City, CityCount)
	copy(out, cities[:])
	return out
}

// CityAt returns the city at a catalog index. The index is wrapped into
// range, so negative values count back from the end.
func CityAt(index int) City {
	return cities[WrapIndex(index)]
}

// WrapIndex maps any integer onto [0, CityCount).
func WrapIndex(index int) int {
	i := index % CityCount
	if i < 0 {
		i += CityCount
	}
	return i
}

// NextIndex returns the index to the right of index, wrapping 9 → 0.
func NextIndex(index int) int {
	return WrapIndex(index + 1)
}

// PrevIndex returns the index to the left of index, wrapping 0 → 9.
func PrevIndex(index int) int {
	return WrapIndex(index + CityCount - 1)
}

// IndexOf returns the catalog index of a city, or -1 if it is not listed.
func IndexOf(city City) int {
	for i, c := range cities {
		if c == city {
			return i
		}
	}
	return -1
}

// IsCatalogCity reports whether city is one of the catalog entries.
func IsCatalogCity(city City) bool {
	return IndexOf(city) >= 0
}

// String implements fmt.Stringer.
func (c City) String() string {
	return string(c)
}

// Mood is a qualitative per-city state.
type Mood string

// Mood scale, most positive first.
const (
	MoodExcited   Mood = "Excited"
	MoodHappy     Mood = "Happy"
	MoodNeutral   Mood = "Neutral"
	MoodSad       Mood = "Sad"
	MoodMiserable Mood = "Miserable"
)

// DefaultMood is assigned to cities that have never been given a mood.
const DefaultMood = MoodNeutral

var moods = [...]Mood{MoodExcited, MoodHappy, MoodNeutral, MoodSad, MoodMiserable}

// Moods returns the scale ordered from Excited to Miserable.
func Moods() []Mood {
	out := make([]Mood, len(moods))
	copy(out, moods[:])
	return out
}

// ParseMood converts a mood name into a Mood. Names are case-sensitive.
func ParseMood(s string) (Mood, error) {
	m := Mood(s)
	if m.rank() < 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownMood, s)
	}
	return m, nil
}

// Valid reports whether m is on the scale.
func (m Mood) Valid() bool {
	return m.rank() >= 0
}

// Increase moves one step toward Excited. Excited stays Excited.
// Unknown moods are returned unchanged.
func (m Mood) Increase() Mood {
	r := m.rank()
	if r <= 0 {
		return m
	}
	return moods[r-1]
}

// Decrease moves one step toward Miserable. Miserable stays Miserable.
// Unknown moods are returned unchanged.
func (m Mood) Decrease() Mood {
	r := m.rank()
	if r < 0 || r == len(moods)-1 {
		return m
	}
	return moods[r+1]
}

// String implements fmt.Stringer.
func (m Mood) String() string {
	return string(m)
}

// rank is the position on the scale (0 = Excited), or -1 if unknown.
func (m Mood) rank() int {
	for i, v := range moods {
		if v == m {
			return i
		}
	}
	return -1
}
