// Package protocol implements the text framing exchanged over MQTT between
// the station and the gateway.
//
// # Requests
//
// Requests travel on the request topic as bare UTF-8 text:
//
//	Brno          lookup only
//	Brno Happy    lookup and set the city's mood
//
// The city is everything before the first space; the mood, when present,
// is everything after it.
//
// # Replies
//
// Replies travel on a topic named after the city and carry a flat record
// with exactly three fields in fixed order:
//
//	{ "temperature": -3, "humidity": 81, "mood": "Sad" }
//
// DecodeReply scans this record left to right. Field order is part of the
// contract: a record with the right fields in a different order is
// rejected. All decoding is bounds-checked and reports ErrMalformedPayload
// instead of reading past the end of the input.
package protocol
