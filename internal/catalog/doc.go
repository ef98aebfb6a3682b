// Package catalog defines the fixed city catalog and the ordered mood scale
// shared by the gateway and the station.
//
// Cities are navigated with a cyclic index that wraps in both directions.
// Moods form a five-level scale that clamps at both ends:
//
//	Excited ← Happy ← Neutral → Sad → Miserable
//
// "Increase" moves toward Excited and "decrease" toward Miserable.
package catalog
