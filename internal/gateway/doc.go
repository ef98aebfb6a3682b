// Package gateway relays station requests to the weather provider and
// publishes the answers.
//
// A station publishes "<city>" or "<city> <mood>" on the request topic.
// The gateway updates the MoodStore when a mood is given, looks up the
// city's current weather, and publishes
//
//	{ "temperature": T, "humidity": H, "mood": "M" }
//
// on the topic named after the city. Requests that cannot be decoded, or
// whose weather lookup fails, are logged and produce no reply; the station
// times out on its own.
//
// Requests for different cities are served concurrently. Requests for the
// same city are served one at a time, in arrival order, so a mood update
// is never overtaken by an older lookup.
package gateway
