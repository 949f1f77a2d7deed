package weather

import (
	"context"
	"errors"
)

// ErrUpstream wraps failures of an external weather or geocoding API.
var ErrUpstream = errors.New("upstream weather api failure")

// Observation is a provider's view of one location: current conditions and
// the daily forecast, already mapped into the stored shapes.
type Observation struct {
	Current  Current
	Forecast []ForecastDay
}

// Provider abstracts a forecast source (Open-Meteo today).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, lat, lon float64) (Observation, error)
}

// Geocoder resolves free text into candidate locations.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// Store is the persistence contract for snapshots. Implementations live in
// the store package.
type Store interface {
	InsertSnapshot(ctx context.Context, snapshot WeatherSnapshot) error
	FindSnapshots(ctx context.Context, filter HistoryFilter) ([]WeatherSnapshot, error)
	SnapshotStats(ctx context.Context) (Stats, error)
}
