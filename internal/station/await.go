package station

import "time"

// Clock supplies monotonic time. Tests substitute a fake.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Status is the outcome of Await.
type Status int

// Await outcomes.
const (
	StatusSuccess Status = iota
	StatusTimeout
)

func (s Status) String() string {
	if s == StatusSuccess {
		return "success"
	}
	return "timeout"
}

// Result is returned by Await. Payload is only set on success.
type Result struct {
	Status  Status
	Payload []byte
}

// Await calls step until it reports a payload or timeout has elapsed on
// clock. step is expected to service the network link and may block for
// a short poll interval; Await itself never sleeps.
//
// step is always called at least once, so a reply that is already queued
// is returned even with a zero timeout.
func Await(clock Clock, timeout time.Duration, step func() ([]byte, bool)) Result {
	deadline := clock.Now().Add(timeout)
	for {
		if payload, ok := step(); ok {
			return Result{Status: StatusSuccess, Payload: payload}
		}
		if !clock.Now().Before(deadline) {
			return Result{Status: StatusTimeout}
		}
	}
}
