package weather

import "errors"

// Domain errors.
var (
	// ErrUpstream covers transport failures, non-2xx statuses, unreadable
	// bodies and bodies without the expected fields.
	ErrUpstream = errors.New("weather: upstream request failed")

	// ErrCityRequired is returned when no city is given.
	ErrCityRequired = errors.New("weather: city required")
)
