package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/weather-dashboard/weather-api/internal/logger"
)

// DefaultHistoryLimit applies when a history request carries no usable limit.
const DefaultHistoryLimit = 20

// ErrInvalidReading is returned when a push lacks the numeric readings.
var ErrInvalidReading = errors.New("sensorData.temperature and sensorData.humidity are required")

var validate = validator.New()

// Store is the persistence contract for readings.
type Store interface {
	InsertReading(ctx context.Context, reading Reading) error
	LatestReading(ctx context.Context, deviceID string) (Reading, error)
	FindReadings(ctx context.Context, filter Filter) ([]Reading, error)
	ReadingStats(ctx context.Context) (Stats, error)
}

// Mirror receives a copy of every stored reading. Mirror failures never fail
// the push.
type Mirror interface {
	MirrorReading(ctx context.Context, reading Reading) error
}

// Service normalizes and stores device pushes and answers reading queries.
type Service struct {
	store   Store
	profile Profile
	mirror  Mirror
	log     *logger.Logger

	now   func() time.Time
	newID func() string
}

// NewService creates a new Service. mirror may be nil.
func NewService(store Store, profile Profile, mirror Mirror, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:   store,
		profile: profile,
		mirror:  mirror,
		log:     log.WithComponent("sensor"),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// Profile returns the defaults and labels the service runs with.
func (s *Service) Profile() Profile {
	return s.profile
}

// Ingest validates a push, applies the defaults and stores one reading.
func (s *Service) Ingest(ctx context.Context, in Input) (Reading, error) {
	if err := validate.Struct(in); err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrInvalidReading, err)
	}

	now := s.now()
	reading := s.profile.Defaults.Apply(in, now)
	reading.ID = s.newID()
	reading.CreatedAt = now

	if err := s.store.InsertReading(ctx, reading); err != nil {
		return Reading{}, fmt.Errorf("store reading: %w", err)
	}

	if s.mirror != nil {
		if err := s.mirror.MirrorReading(ctx, reading); err != nil {
			s.log.ErrorWithError(err, "mirror reading failed")
		}
	}

	s.log.Logger.Debug().
		Str("device_id", reading.DeviceID).
		Float64("temperature", reading.SensorData.Temperature).
		Float64("humidity", reading.SensorData.Humidity).
		Msg("sensor reading stored")

	return reading, nil
}

// Latest returns the newest reading, optionally for one device.
func (s *Service) Latest(ctx context.Context, deviceID string) (Reading, error) {
	return s.store.LatestReading(ctx, deviceID)
}

// History returns readings newest first.
func (s *Service) History(ctx context.Context, filter Filter) ([]Reading, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultHistoryLimit
	}
	readings, err := s.store.FindReadings(ctx, filter)
	if err != nil {
		return nil, err
	}
	if readings == nil {
		readings = []Reading{}
	}
	return readings, nil
}

// Stats aggregates every stored reading.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	stats, err := s.store.ReadingStats(ctx)
	if err != nil {
		return Stats{}, err
	}
	if stats.UniqueDevices == nil {
		stats.UniqueDevices = []string{}
	}
	stats.UniqueDeviceCount = len(stats.UniqueDevices)
	stats.Source = s.profile.StorageLabel
	return stats, nil
}
