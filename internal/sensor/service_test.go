package sensor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	readings []Reading
	filter   Filter
	stats    Stats
	err      error
}

func (s *fakeStore) InsertReading(_ context.Context, r Reading) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, r)
	return nil
}

func (s *fakeStore) LatestReading(_ context.Context, deviceID string) (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.readings) - 1; i >= 0; i-- {
		if deviceID == "" || s.readings[i].DeviceID == deviceID {
			return s.readings[i], nil
		}
	}
	return Reading{}, errors.New("not found")
}

func (s *fakeStore) FindReadings(_ context.Context, f Filter) ([]Reading, error) {
	s.filter = f
	return nil, s.err
}

func (s *fakeStore) ReadingStats(context.Context) (Stats, error) {
	return s.stats, s.err
}

func (s *fakeStore) stored() []Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Reading(nil), s.readings...)
}

type fakeMirror struct {
	got []Reading
	err error
}

func (m *fakeMirror) MirrorReading(_ context.Context, r Reading) error {
	m.got = append(m.got, r)
	return m.err
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(st Store, profile Profile, mirror Mirror) *Service {
	svc := NewService(st, profile, mirror, nil)
	svc.now = func() time.Time { return testNow }
	svc.newID = func() string { return "id-1" }
	return svc
}

func TestIngest(t *testing.T) {
	st := &fakeStore{}
	svc := newTestService(st, RemoteProfile(), nil)

	r, err := svc.Ingest(context.Background(), Input{
		DeviceID:   "d1",
		SensorData: &DataInput{Temperature: ptr(21.5), Humidity: ptr(40.0)},
	})
	require.NoError(t, err)

	assert.Equal(t, "id-1", r.ID)
	assert.Equal(t, "d1", r.DeviceID)
	assert.Equal(t, testNow, r.CreatedAt)
	assert.Equal(t, 21.5, r.SensorData.Temperature)
	assert.Equal(t, 40.0, r.SensorData.Humidity)
	assert.Equal(t, "ESP32", r.SensorData.Source)

	assert.Equal(t, []Reading{r}, st.stored())
}

func TestIngestRejectsMissingReadings(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"no sensor data", Input{DeviceID: "d1"}},
		{"no humidity", Input{SensorData: &DataInput{Temperature: ptr(20.0)}}},
		{"no temperature", Input{SensorData: &DataInput{Humidity: ptr(20.0)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeStore{}
			svc := newTestService(st, RemoteProfile(), nil)

			_, err := svc.Ingest(context.Background(), tt.in)
			require.ErrorIs(t, err, ErrInvalidReading)
			assert.Empty(t, st.stored())
		})
	}
}

func TestIngestAcceptsZeroValues(t *testing.T) {
	svc := newTestService(&fakeStore{}, RemoteProfile(), nil)

	r, err := svc.Ingest(context.Background(), Input{
		SensorData: &DataInput{Temperature: ptr(0.0), Humidity: ptr(0.0)},
	})
	require.NoError(t, err)
	assert.Equal(t, "Unknown-ESP32", r.DeviceID)
}

func TestIngestStoreFailure(t *testing.T) {
	boom := errors.New("boom")
	mirror := &fakeMirror{}
	svc := newTestService(&fakeStore{err: boom}, RemoteProfile(), mirror)

	_, err := svc.Ingest(context.Background(), Input{
		SensorData: &DataInput{Temperature: ptr(1.0), Humidity: ptr(2.0)},
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, mirror.got)
}

func TestIngestMirrorFailureIsIgnored(t *testing.T) {
	st := &fakeStore{}
	mirror := &fakeMirror{err: errors.New("influx down")}
	svc := newTestService(st, LocalProfile(), mirror)

	r, err := svc.Ingest(context.Background(), Input{
		SensorData: &DataInput{Temperature: ptr(1.0), Humidity: ptr(2.0)},
	})
	require.NoError(t, err)
	assert.Equal(t, []Reading{r}, mirror.got)
	assert.Len(t, st.stored(), 1)
}

func TestHistoryDefaultsLimit(t *testing.T) {
	st := &fakeStore{}
	svc := newTestService(st, RemoteProfile(), nil)

	got, err := svc.History(context.Background(), Filter{DeviceID: "d1"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, Filter{DeviceID: "d1", Limit: DefaultHistoryLimit}, st.filter)

	_, err = svc.History(context.Background(), Filter{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, st.filter.Limit)
}

func TestStats(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		svc := newTestService(&fakeStore{}, LocalProfile(), nil)

		stats, err := svc.Stats(context.Background())
		require.NoError(t, err)
		assert.Zero(t, stats.TotalRecords)
		assert.NotNil(t, stats.UniqueDevices)
		assert.Zero(t, stats.UniqueDeviceCount)
		assert.Equal(t, "Local MongoDB", stats.Source)
	})

	t.Run("counts devices", func(t *testing.T) {
		st := &fakeStore{stats: Stats{TotalRecords: 3, UniqueDevices: []string{"a", "b"}}}
		svc := newTestService(st, RemoteProfile(), nil)

		stats, err := svc.Stats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, stats.UniqueDeviceCount)
		assert.Equal(t, "MongoDB", stats.Source)
	})

	t.Run("error", func(t *testing.T) {
		svc := newTestService(&fakeStore{err: errors.New("down")}, RemoteProfile(), nil)

		_, err := svc.Stats(context.Background())
		require.Error(t, err)
	})
}
