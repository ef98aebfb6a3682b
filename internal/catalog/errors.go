package catalog

import "errors"

// ErrUnknownMood is returned when a string is not one of the five mood names.
var ErrUnknownMood = errors.New("catalog: unknown mood")
