package weather

import (
	"context"

	"github.com/nerrad567/moodcast/internal/catalog"
)

// Conditions is a current-weather reading.
type Conditions struct {
	// Temperature in whole degrees of the configured unit, truncated.
	Temperature int

	// Humidity in whole percent, truncated.
	Humidity int
}

// Provider returns current conditions for a city.
type Provider interface {
	Current(ctx context.Context, city catalog.City) (Conditions, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, city catalog.City) (Conditions, error)

// Current calls f.
func (f ProviderFunc) Current(ctx context.Context, city catalog.City) (Conditions, error) {
	return f(ctx, city)
}
