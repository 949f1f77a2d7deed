package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/weather-dashboard/weather-api/internal/logger"
	"github.com/weather-dashboard/weather-api/internal/weather"
)

// jobTimeout bounds a single refresh of all tracked locations.
const jobTimeout = 30 * time.Second

// Refresher is the weather service operation the job runs.
type Refresher interface {
	RefreshTracked(ctx context.Context, locations []weather.TrackedLocation) int
}

// Scheduler periodically fetches weather data for configured locations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	locations []weather.TrackedLocation
	interval  time.Duration
	log       *logger.Logger
}

// New creates a new Scheduler.
func New(locations []weather.TrackedLocation, interval time.Duration, service Refresher, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		service:   service,
		locations: locations,
		interval:  interval,
		log:       log.WithComponent("scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		s.log.Info("no locations configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Logger.Info().
		Int("locations", len(s.locations)).
		Dur("interval", interval).
		Msg("weather refresh scheduled")
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	ok := s.service.RefreshTracked(ctx, s.locations)
	s.log.Logger.Info().
		Int("succeeded", ok).
		Int("total", len(s.locations)).
		Msg("weather refresh completed")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
