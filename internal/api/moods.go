package api

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/moodcast/internal/catalog"
)

// maxCityParamLen bounds the {city} path parameter.
const maxCityParamLen = 64

// CityMood pairs a city with its stored mood.
type CityMood struct {
	City catalog.City `json:"city"`
	Mood catalog.Mood `json:"mood"`
}

// MoodList is the body of GET /api/v1/moods.
type MoodList struct {
	Moods []CityMood `json:"moods"`
	Count int        `json:"count"`
}

// handleListMoods returns every stored mood. Catalog cities come first in
// navigation order, followed by any other city alphabetically.
func (s *Server) handleListMoods(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.moods.Snapshot()

	list := MoodList{Moods: make([]CityMood, 0, len(snapshot))}
	for _, city := range catalog.Cities() {
		if mood, ok := snapshot[city]; ok {
			list.Moods = append(list.Moods, CityMood{City: city, Mood: mood})
			delete(snapshot, city)
		}
	}

	others := make([]catalog.City, 0, len(snapshot))
	for city := range snapshot {
		others = append(others, city)
	}
	sort.Slice(others, func(i, j int) bool { return others[i] < others[j] })
	for _, city := range others {
		list.Moods = append(list.Moods, CityMood{City: city, Mood: snapshot[city]})
	}

	list.Count = len(list.Moods)
	writeJSON(w, http.StatusOK, list)
}

// handleGetMood returns one city's mood. Reading never registers a city,
// so a city the gateway has not seen is 404.
func (s *Server) handleGetMood(w http.ResponseWriter, r *http.Request) {
	city, ok := cityParam(w, r)
	if !ok {
		return
	}

	mood, found := s.moods.Snapshot()[city]
	if !found {
		writeNotFound(w, "city not found")
		return
	}
	writeJSON(w, http.StatusOK, CityMood{City: city, Mood: mood})
}

// cityParam extracts and validates {city}, writing a 400 on failure.
func cityParam(w http.ResponseWriter, r *http.Request) (catalog.City, bool) {
	city := chi.URLParam(r, "city")
	if city == "" || len(city) > maxCityParamLen {
		writeBadRequest(w, "invalid city")
		return "", false
	}
	return catalog.City(city), true
}
