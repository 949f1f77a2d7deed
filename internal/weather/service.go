package weather

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/weather-dashboard/weather-api/internal/logger"
)

// DefaultHistoryLimit applies when a history request carries no usable limit.
const DefaultHistoryLimit = 10

// Service fetches snapshots from a provider, persists them and answers
// history, stats and location search queries.
type Service struct {
	store    Store
	provider Provider
	geocoder Geocoder
	log      *logger.Logger

	now   func() time.Time
	newID func() string
}

// NewService creates a new Service.
func NewService(store Store, provider Provider, geocoder Geocoder, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:    store,
		provider: provider,
		geocoder: geocoder,
		log:      log.WithComponent("weather"),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// FetchAndStore pulls current conditions and forecast for the coordinates,
// stores the resulting snapshot and returns it.
func (s *Service) FetchAndStore(ctx context.Context, lat, lon float64, name string) (WeatherSnapshot, error) {
	if s.provider == nil {
		return WeatherSnapshot{}, fmt.Errorf("no weather provider configured")
	}

	obs, err := s.provider.Fetch(ctx, lat, lon)
	if err != nil {
		return WeatherSnapshot{}, fmt.Errorf("%s fetch for %g,%g: %w", s.provider.Name(), lat, lon, err)
	}

	if strings.TrimSpace(name) == "" {
		name = DefaultName(lat, lon)
	}

	now := s.now()
	obs.Current.Timestamp = now
	forecast := obs.Forecast
	if forecast == nil {
		forecast = []ForecastDay{}
	}

	snapshot := WeatherSnapshot{
		ID: s.newID(),
		Location: Location{
			Name:      name,
			Latitude:  lat,
			Longitude: lon,
		},
		Current:   obs.Current,
		Forecast:  forecast,
		CreatedAt: now,
	}

	if err := s.store.InsertSnapshot(ctx, snapshot); err != nil {
		return WeatherSnapshot{}, fmt.Errorf("store snapshot: %w", err)
	}

	s.log.Logger.Debug().
		Str("location", name).
		Int("forecast_days", len(forecast)).
		Msg("weather snapshot stored")

	return snapshot, nil
}

// RefreshTracked fetches every tracked location concurrently. Failures are
// logged per location and do not stop the others.
func (s *Service) RefreshTracked(ctx context.Context, locations []TrackedLocation) int {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)

	for _, loc := range locations {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if _, err := s.FetchAndStore(ctx, loc.Latitude, loc.Longitude, loc.Name); err != nil {
				s.log.ErrorWithError(err, "scheduled fetch failed for "+loc.Name)
				return
			}

			mu.Lock()
			success++
			mu.Unlock()
		}()
	}

	wg.Wait()
	return success
}

// History returns stored snapshots newest first.
func (s *Service) History(ctx context.Context, filter HistoryFilter) ([]WeatherSnapshot, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultHistoryLimit
	}
	snapshots, err := s.store.FindSnapshots(ctx, filter)
	if err != nil {
		return nil, err
	}
	if snapshots == nil {
		snapshots = []WeatherSnapshot{}
	}
	return snapshots, nil
}

// Stats aggregates every stored snapshot.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	stats, err := s.store.SnapshotStats(ctx)
	if err != nil {
		return Stats{}, err
	}
	if stats.UniqueLocations == nil {
		stats.UniqueLocations = []string{}
	}
	stats.UniqueLocationCount = len(stats.UniqueLocations)
	return stats, nil
}

// SearchLocations forwards a free-text query to the geocoder.
func (s *Service) SearchLocations(ctx context.Context, query string) ([]Candidate, error) {
	if s.geocoder == nil {
		return nil, fmt.Errorf("no geocoder configured")
	}
	candidates, err := s.geocoder.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if candidates == nil {
		candidates = []Candidate{}
	}
	return candidates, nil
}
