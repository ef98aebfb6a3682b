package station

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAwait_Success(t *testing.T) {
	clock := newFakeClock()
	calls := 0
	res := Await(clock, time.Second, func() ([]byte, bool) {
		calls++
		clock.Advance(100 * time.Millisecond)
		if calls == 3 {
			return []byte("ok"), true
		}
		return nil, false
	})

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "ok", string(res.Payload))
	assert.Equal(t, 3, calls)
}

func TestAwait_Timeout(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now()
	res := Await(clock, 3000*time.Millisecond, func() ([]byte, bool) {
		clock.Advance(50 * time.Millisecond)
		return nil, false
	})

	assert.Equal(t, StatusTimeout, res.Status)
	assert.Nil(t, res.Payload)
	assert.Equal(t, 3000*time.Millisecond, clock.Now().Sub(start))
}

func TestAwait_ZeroTimeoutStillSteps(t *testing.T) {
	clock := newFakeClock()
	res := Await(clock, 0, func() ([]byte, bool) { return []byte("ready"), true })
	assert.Equal(t, StatusSuccess, res.Status)

	res = Await(clock, 0, func() ([]byte, bool) { return nil, false })
	assert.Equal(t, StatusTimeout, res.Status)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "timeout", StatusTimeout.String())
}
