package protocol

import "errors"

// ErrMalformedPayload is returned when a request or reply does not match
// the wire grammar. Use errors.Is to test for it; the wrapped message
// describes where decoding stopped.
var ErrMalformedPayload = errors.New("protocol: malformed payload")
