package station

import (
	"fmt"
	"strings"
)

// Gesture is a sensor event.
type Gesture int

// Gestures. Near and Far are reported by the sensor but do nothing.
const (
	GestureNone Gesture = iota
	GestureUp
	GestureDown
	GestureLeft
	GestureRight
	GestureNear
	GestureFar
)

var gestureNames = map[Gesture]string{
	GestureNone:  "none",
	GestureUp:    "up",
	GestureDown:  "down",
	GestureLeft:  "left",
	GestureRight: "right",
	GestureNear:  "near",
	GestureFar:   "far",
}

// ParseGesture reads a gesture name as typed on the station console.
// Matching is case-insensitive and accepts single-letter shorthands for
// the four directions.
func ParseGesture(s string) (Gesture, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u":
		return GestureUp, nil
	case "down", "d":
		return GestureDown, nil
	case "left", "l":
		return GestureLeft, nil
	case "right", "r":
		return GestureRight, nil
	case "near":
		return GestureNear, nil
	case "far":
		return GestureFar, nil
	}
	return GestureNone, fmt.Errorf("%w: %q", ErrUnknownGesture, s)
}

func (g Gesture) String() string {
	if name, ok := gestureNames[g]; ok {
		return name
	}
	return fmt.Sprintf("gesture(%d)", int(g))
}

// Screen identifies what the display is showing.
type Screen int

// Screens.
const (
	ScreenStart Screen = iota
	ScreenCity
	ScreenDetail
	ScreenMood
)

func (s Screen) String() string {
	switch s {
	case ScreenStart:
		return "start"
	case ScreenCity:
		return "city"
	case ScreenDetail:
		return "detail"
	case ScreenMood:
		return "mood"
	default:
		return fmt.Sprintf("screen(%d)", int(s))
	}
}
