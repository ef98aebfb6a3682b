package station

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGesture(t *testing.T) {
	tests := []struct {
		in   string
		want Gesture
	}{
		{"up", GestureUp},
		{"U", GestureUp},
		{" down\n", GestureDown},
		{"d", GestureDown},
		{"Left", GestureLeft},
		{"l", GestureLeft},
		{"RIGHT", GestureRight},
		{"r", GestureRight},
		{"near", GestureNear},
		{"far", GestureFar},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGesture(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseGesture_Unknown(t *testing.T) {
	for _, in := range []string{"", "wave", "n", "upp"} {
		_, err := ParseGesture(in)
		assert.ErrorIs(t, err, ErrUnknownGesture, in)
	}
}

func TestGestureString(t *testing.T) {
	assert.Equal(t, "left", GestureLeft.String())
	assert.Equal(t, "gesture(99)", Gesture(99).String())
}

func TestScreenString(t *testing.T) {
	assert.Equal(t, "start", ScreenStart.String())
	assert.Equal(t, "city", ScreenCity.String())
	assert.Equal(t, "detail", ScreenDetail.String())
	assert.Equal(t, "mood", ScreenMood.String())
	assert.Equal(t, "screen(7)", Screen(7).String())
}
