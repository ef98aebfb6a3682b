package station

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/nerrad567/moodcast/internal/catalog"
	"github.com/nerrad567/moodcast/internal/protocol"
)

// Display value ranges. Readings outside them are pinned to the bound.
const (
	MinTemperature = -99
	MaxTemperature = 999
	MinHumidity    = 0
	MaxHumidity    = 99
)

// DefaultDisplayWidth matches a 20x4 character LCD.
const DefaultDisplayWidth = 20

// minDisplayWidth leaves room for the arrows around a city name.
const minDisplayWidth = 8

// View is everything a renderer needs to draw one screen.
type View struct {
	Screen Screen
	City   catalog.City
	Mood   catalog.Mood

	// Reply is the last decoded reply. Only used on the Detail screen.
	Reply protocol.Reply

	// TimedOut replaces the Detail screen with the timeout notice.
	TimedOut bool
}

// Renderer draws a View.
type Renderer interface {
	Render(v View) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(v View) error

// Render calls f(v).
func (f RendererFunc) Render(v View) error { return f(v) }

// TextRenderer draws views as framed text blocks on a writer.
type TextRenderer struct {
	w     io.Writer
	width int
}

// NewTextRenderer creates a renderer width characters wide. Widths below
// the minimum are raised to it.
func NewTextRenderer(w io.Writer, width int) *TextRenderer {
	if width < minDisplayWidth {
		width = minDisplayWidth
	}
	return &TextRenderer{w: w, width: width}
}

// Render writes one frame.
func (r *TextRenderer) Render(v View) error {
	border := "+" + strings.Repeat("-", r.width) + "+\n"

	var b strings.Builder
	b.WriteString(border)
	for _, line := range Lines(v, r.width) {
		b.WriteString("|")
		b.WriteString(padRight(line, r.width))
		b.WriteString("|\n")
	}
	b.WriteString(border)

	if _, err := io.WriteString(r.w, b.String()); err != nil {
		return fmt.Errorf("render %s: %w", v.Screen, err)
	}
	return nil
}

// Lines lays out v as display lines of at most width characters.
func Lines(v View, width int) []string {
	switch {
	case v.Screen == ScreenStart:
		return []string{
			center("Weather", width),
			center("& Mood", width),
			center("10 European cities", width),
		}
	case v.Screen == ScreenCity:
		return []string{"", selector(string(v.City), width)}
	case v.Screen == ScreenMood:
		return []string{center(string(v.City), width), selector(string(v.Mood), width)}
	case v.Screen == ScreenDetail && v.TimedOut:
		return []string{center("CONNECTION", width), center("TIMEOUT", width)}
	case v.Screen == ScreenDetail:
		reading := fmt.Sprintf("%d°C  %d%%",
			clamp(v.Reply.Temperature, MinTemperature, MaxTemperature),
			clamp(v.Reply.Humidity, MinHumidity, MaxHumidity))
		return []string{
			center(string(v.City), width),
			center(reading, width),
			center(v.Reply.Mood, width),
		}
	}
	return nil
}

// selector renders "<  name  >" across the full width.
func selector(name string, width int) string {
	return "<" + center(name, width-2) + ">"
}

// center pads s on both sides to width. Text wider than width is cut.
func center(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return string([]rune(s)[:width])
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}

func padRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
