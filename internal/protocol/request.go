package protocol

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/nerrad567/moodcast/internal/catalog"
)

// maxCityLength bounds the city token so a hostile payload cannot create
// arbitrarily long reply topics.
const maxCityLength = 64

// Request is a decoded lookup request.
type Request struct {
	City catalog.City

	// Mood is only meaningful when HasMood is true.
	Mood    catalog.Mood
	HasMood bool
}

// LookupRequest builds a lookup-only request.
func LookupRequest(city catalog.City) Request {
	return Request{City: city}
}

// UpdateRequest builds a request that also sets the city's mood.
func UpdateRequest(city catalog.City, mood catalog.Mood) Request {
	return Request{City: city, Mood: mood, HasMood: true}
}

// EncodeRequest renders r as "<city>" or "<city> <mood>".
func EncodeRequest(r Request) []byte {
	if !r.HasMood {
		return []byte(r.City)
	}
	return []byte(string(r.City) + " " + string(r.Mood))
}

// DecodeRequest parses a request payload.
//
// The payload is split on its first space. Leading and trailing whitespace
// is ignored, as is extra whitespace around the mood. An empty payload, a
// city containing MQTT wildcard or control characters, or an unknown mood
// name yields ErrMalformedPayload.
func DecodeRequest(payload []byte) (Request, error) {
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return Request{}, fmt.Errorf("%w: empty request", ErrMalformedPayload)
	}

	city, rest, hasRest := strings.Cut(text, " ")
	if err := validateCity(city); err != nil {
		return Request{}, err
	}

	req := Request{City: catalog.City(city)}

	rest = strings.TrimSpace(rest)
	if !hasRest || rest == "" {
		return req, nil
	}

	mood, err := catalog.ParseMood(rest)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	req.Mood = mood
	req.HasMood = true

	return req, nil
}

// validateCity rejects city tokens that cannot be used as a reply topic.
func validateCity(city string) error {
	if city == "" {
		return fmt.Errorf("%w: empty city", ErrMalformedPayload)
	}
	if len(city) > maxCityLength {
		return fmt.Errorf("%w: city longer than %d bytes", ErrMalformedPayload, maxCityLength)
	}
	for _, r := range city {
		if r == '+' || r == '#' || unicode.IsControl(r) || unicode.IsSpace(r) {
			return fmt.Errorf("%w: invalid character %q in city", ErrMalformedPayload, r)
		}
	}
	return nil
}
