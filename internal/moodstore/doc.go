// Package moodstore keeps the gateway's city→mood mapping in memory and
// mirrors it to a flat text file.
//
// The file holds one "<city> <mood>" pair per line, in any order:
//
//	Brno Happy
//	Prague Neutral
//
// Load creates the file with every catalog city set to Neutral when it does
// not exist yet. Writes go through a temporary file and a rename, so a crash
// leaves either the previous or the new contents on disk.
//
// Thread Safety: all methods are safe for concurrent use. Set-and-save is
// atomic with respect to other writers.
package moodstore
