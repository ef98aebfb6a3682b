package moodstore

import "errors"

// ErrPersist wraps any failure to read or write the backing file. Callers
// treat it as non-fatal and keep working from memory.
var ErrPersist = errors.New("moodstore: persistence failed")
