// Package station implements the display-side state machine.
//
// The station shows one of four screens (Start, City, Detail, Mood) and
// moves between them on four-way gestures. Entering Detail publishes a
// request to the gateway and blocks, servicing the network link, until
// the reply for the selected city arrives or the reply timeout expires.
//
// Everything runs on one goroutine. The MQTT callbacks only queue
// messages on the link's inbox; the machine drains the inbox while it
// waits, so the pending flag and last payload never cross goroutines.
package station
