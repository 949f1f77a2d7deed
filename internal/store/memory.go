package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/weather-dashboard/weather-api/internal/sensor"
	"github.com/weather-dashboard/weather-api/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory implementation of both the
// snapshot and the reading store. Records are kept in insertion order.
type MemoryStore struct {
	mu sync.RWMutex

	snapshots []weather.WeatherSnapshot
	readings  []sensor.Reading

	// retention configuration
	maxRecords int           // max records per collection
	maxAge     time.Duration // optional max age by createdAt
	now        func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// A maxRecords or maxAge <= 0 is treated as unlimited.
func NewMemoryStore(maxRecords int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxRecords: maxRecords,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// InsertSnapshot appends a snapshot and enforces retention.
func (s *MemoryStore) InsertSnapshot(_ context.Context, snapshot weather.WeatherSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots = retain(append(s.snapshots, snapshot), s.maxRecords, s.cutoff(),
		func(w weather.WeatherSnapshot) time.Time { return w.CreatedAt })
	return nil
}

// FindSnapshots returns snapshots newest first.
func (s *MemoryStore) FindSnapshots(_ context.Context, filter weather.HistoryFilter) ([]weather.WeatherSnapshot, error) {
	needle := strings.ToLower(filter.LocationContains)

	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.cutoff()
	result := make([]weather.WeatherSnapshot, 0)
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		snap := s.snapshots[i]
		if expired(snap.CreatedAt, cutoff) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(snap.Location.Name), needle) {
			continue
		}
		result = append(result, snap)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return limit(result, filter.Limit), nil
}

// SnapshotStats aggregates current temperatures and distinct location names.
func (s *MemoryStore) SnapshotStats(_ context.Context) (weather.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		temp   summary
		names  = newStringSet()
		cutoff = s.cutoff()
	)
	for _, snap := range s.snapshots {
		if expired(snap.CreatedAt, cutoff) {
			continue
		}
		temp.add(snap.Current.Temperature)
		names.add(snap.Location.Name)
	}

	return weather.Stats{
		TotalRecords:    int64(temp.n),
		AvgTemperature:  temp.avg(),
		MaxTemperature:  temp.max,
		MinTemperature:  temp.min,
		UniqueLocations: names.sorted(),
	}, nil
}

// InsertReading appends a reading and enforces retention.
func (s *MemoryStore) InsertReading(_ context.Context, reading sensor.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.readings = retain(append(s.readings, reading), s.maxRecords, s.cutoff(),
		func(r sensor.Reading) time.Time { return r.CreatedAt })
	return nil
}

// LatestReading returns the reading with the greatest createdAt.
func (s *MemoryStore) LatestReading(ctx context.Context, deviceID string) (sensor.Reading, error) {
	readings, err := s.FindReadings(ctx, sensor.Filter{DeviceID: deviceID, Limit: 1})
	if err != nil {
		return sensor.Reading{}, err
	}
	if len(readings) == 0 {
		return sensor.Reading{}, ErrNotFound
	}
	return readings[0], nil
}

// FindReadings returns readings newest first.
func (s *MemoryStore) FindReadings(_ context.Context, filter sensor.Filter) ([]sensor.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.cutoff()
	result := make([]sensor.Reading, 0)
	for i := len(s.readings) - 1; i >= 0; i-- {
		r := s.readings[i]
		if expired(r.CreatedAt, cutoff) {
			continue
		}
		if filter.DeviceID != "" && r.DeviceID != filter.DeviceID {
			continue
		}
		result = append(result, r)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return limit(result, filter.Limit), nil
}

// ReadingStats aggregates temperature, humidity and distinct devices.
func (s *MemoryStore) ReadingStats(_ context.Context) (sensor.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		temp, hum summary
		devices   = newStringSet()
		cutoff    = s.cutoff()
	)
	for _, r := range s.readings {
		if expired(r.CreatedAt, cutoff) {
			continue
		}
		temp.add(r.SensorData.Temperature)
		hum.add(r.SensorData.Humidity)
		devices.add(r.DeviceID)
	}

	return sensor.Stats{
		TotalRecords:   int64(temp.n),
		AvgTemperature: temp.avg(),
		MaxTemperature: temp.max,
		MinTemperature: temp.min,
		AvgHumidity:    hum.avg(),
		MaxHumidity:    hum.max,
		MinHumidity:    hum.min,
		UniqueDevices:  devices.sorted(),
	}, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close(context.Context) error { return nil }

func (s *MemoryStore) cutoff() time.Time {
	if s.maxAge <= 0 {
		return time.Time{}
	}
	return s.now().Add(-s.maxAge)
}

// expired reports whether a record falls behind the age cutoff. Reads apply
// it too, so a store without new inserts stops serving old records.
func expired(createdAt, cutoff time.Time) bool {
	return !cutoff.IsZero() && createdAt.Before(cutoff)
}

// retain enforces retention by count and then by age. Records are in
// insertion order, so the oldest are at the front.
func retain[T any](records []T, maxRecords int, cutoff time.Time, createdAt func(T) time.Time) []T {
	if maxRecords > 0 && len(records) > maxRecords {
		records = records[len(records)-maxRecords:]
	}
	if !cutoff.IsZero() {
		i := 0
		for ; i < len(records); i++ {
			if !expired(createdAt(records[i]), cutoff) {
				break
			}
		}
		records = records[i:]
	}
	return records
}

func limit[T any](records []T, n int) []T {
	if n > 0 && len(records) > n {
		return records[:n]
	}
	return records
}

// summary accumulates count, sum, min and max of a series.
type summary struct {
	n        int
	sum      float64
	min, max float64
}

func (s *summary) add(v float64) {
	if s.n == 0 || v < s.min {
		s.min = v
	}
	if s.n == 0 || v > s.max {
		s.max = v
	}
	s.n++
	s.sum += v
}

func (s *summary) avg() float64 {
	if s.n == 0 {
		return 0
	}
	return s.sum / float64(s.n)
}

type stringSet map[string]struct{}

func newStringSet() stringSet { return make(stringSet) }

func (s stringSet) add(v string) { s[v] = struct{}{} }

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
