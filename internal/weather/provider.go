package weather

import (
	"context"
)

// Provider abstracts the remote weather source (OpenWeatherMap).
type Provider interface {
	Name() string
	FetchCurrentConditions(ctx context.Context, city string) (RawCurrentConditions, error)
	FetchForecastSeries(ctx context.Context, city string) (RawForecastSeries, error)
}

// Geocoder resolves free text into candidate locations.
type Geocoder interface {
	SearchGeocode(ctx context.Context, query string) ([]GeoCandidate, error)
}

// Store is the contract the widget store must satisfy. Update runs fn against
// the latest record and swaps the whole result in atomically.
type Store interface {
	Add(w Widget) error
	Get(id string) (Widget, error)
	List() []Widget
	Update(id string, fn func(Widget) Widget) (Widget, error)
	Delete(id string) error
}
