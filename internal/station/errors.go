package station

import "errors"

// Domain errors.
var (
	// ErrUnknownGesture is returned by ParseGesture for unrecognised input.
	ErrUnknownGesture = errors.New("station: unknown gesture")

	// ErrInboxFull is logged when a reply is dropped because the link's
	// inbox has not been drained.
	ErrInboxFull = errors.New("station: inbox full")
)
