package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/weather-dashboard/weather-api/internal/api/http"
	"github.com/weather-dashboard/weather-api/internal/config"
	"github.com/weather-dashboard/weather-api/internal/logger"
	"github.com/weather-dashboard/weather-api/internal/metrics"
	"github.com/weather-dashboard/weather-api/internal/scheduler"
	"github.com/weather-dashboard/weather-api/internal/sensor"
	"github.com/weather-dashboard/weather-api/internal/store"
	"github.com/weather-dashboard/weather-api/internal/weather"
	"github.com/weather-dashboard/weather-api/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging)
	log.Logger.Info().
		Str("mode", cfg.Mode).
		Str("storage", cfg.Storage.Driver).
		Msg("starting weather api")

	// Storage handle shared by every service. A failed connection is fatal.
	st, err := openStore(cfg)
	if err != nil {
		log.FatalWithError(err, "failed to open storage")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(ctx); err != nil {
			log.ErrorWithError(err, "error closing storage")
		}
	}()

	// Optional time-series mirror for readings.
	var mirror sensor.Mirror
	if cfg.Influx.URL != "" {
		influx := sensor.NewInfluxMirror(cfg.Influx)
		defer influx.Close()
		mirror = influx
	}

	sensorService := sensor.NewService(st, cfg.SensorProfile(), mirror, log)

	// Weather and geocoding only exist in remote mode.
	var weatherService *weather.Service
	if cfg.Mode == config.ModeRemote {
		// Shared HTTP client for outbound provider calls.
		httpClient := &http.Client{
			Timeout: cfg.HTTPTimeout,
		}

		var geocoder weather.Geocoder = providers.NewOpenMeteoGeocoder(httpClient, cfg.GeocodingURL)
		if cfg.GoogleGeocoderAPIKey != "" {
			geocoder = providers.NewGoogleGeocoder(cfg.GoogleGeocoderAPIKey)
		}

		weatherService = weather.NewService(
			st,
			providers.NewOpenMeteoProvider(httpClient, cfg.ForecastURL),
			geocoder,
			log,
		)

		// Scheduler that periodically fetches and stores data.
		sched := scheduler.New(cfg.Locations, cfg.FetchInterval, weatherService, log)
		if err := sched.Start(); err != nil {
			log.FatalWithError(err, "failed to start scheduler")
		}
		defer sched.Stop()
	}

	if cfg.MQTT.BrokerURL != "" {
		sub := sensor.NewMQTTSubscriber(cfg.MQTT, sensorService, log)
		if err := sub.Start(); err != nil {
			log.ErrorWithError(err, "mqtt subscriber disabled")
		} else {
			defer sub.Stop()
		}
	}

	collector := metrics.NewSensorCollector(sensorService, log)

	app := httpapi.NewApp(httpapi.ServerConfig{
		AllowedOrigins: cfg.AllowedOrigins,
	}, log)
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Mode:    cfg.Mode,
		Weather: weatherService,
		Sensors: sensorService,
		Metrics: metrics.Handler(collector),
		Log:     log,
	})

	// Start server with graceful shutdown
	go func() {
		log.Info("listening on :" + cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.ErrorWithError(err, "fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.ErrorWithError(err, "error during shutdown")
	}
}

func openStore(cfg *config.AppConfig) (store.Store, error) {
	if cfg.Storage.Driver == config.DriverMemory {
		return store.NewMemoryStore(cfg.Storage.MemoryMaxRecords, cfg.Storage.MemoryMaxAge), nil
	}
	return store.ConnectMongo(
		context.Background(),
		cfg.Storage.MongoURI,
		cfg.Storage.MongoDatabase,
		cfg.Storage.ConnectTimeout,
	)
}
