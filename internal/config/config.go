package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/weather-dashboard/weather-api/internal/logger"
	"github.com/weather-dashboard/weather-api/internal/sensor"
	"github.com/weather-dashboard/weather-api/internal/weather"
)

const (
	ModeRemote = "remote"
	ModeLocal  = "local"

	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type AppConfig struct {
	Port string `validate:"required,numeric"`

	// Mode selects the data sources: remote adds the weather API and
	// geocoding on top of the sensor endpoints, local serves sensors only.
	Mode string `validate:"oneof=remote local"`

	Storage StorageConfig
	Sensor  SensorConfig

	HTTPTimeout          time.Duration `validate:"gt=0"`
	ForecastURL          string        `validate:"omitempty,url"`
	GeocodingURL         string        `validate:"omitempty,url"`
	GoogleGeocoderAPIKey string

	// FetchInterval controls how often tracked locations are refreshed.
	FetchInterval time.Duration `validate:"gt=0"`
	Locations     []weather.TrackedLocation

	MQTT   sensor.MQTTConfig
	Influx sensor.InfluxConfig

	Logging        logger.Config
	AllowedOrigins string
}

type StorageConfig struct {
	Driver         string `validate:"oneof=mongo memory"`
	MongoURI       string `validate:"required_if=Driver mongo"`
	MongoDatabase  string
	ConnectTimeout time.Duration `validate:"gt=0"`

	// In-memory retention.
	MemoryMaxRecords int           // 0 = unlimited
	MemoryMaxAge     time.Duration // 0 = unlimited
}

type SensorConfig struct {
	Timestamp     string `validate:"oneof=client server"`
	DefaultDevice string
	DefaultPlace  string
	DefaultSource string
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env is normal; the environment is used as-is.
	_ = godotenv.Load()

	cfg := &AppConfig{
		Port: getenvDefault("PORT", "5000"),
		Mode: strings.ToLower(getenvDefault("SERVICE_MODE", ModeRemote)),
		Storage: StorageConfig{
			Driver:           strings.ToLower(getenvDefault("STORAGE_DRIVER", DriverMongo)),
			MongoURI:         getenvDefault("MONGODB_URI", "mongodb://localhost:27017/weatherdb"),
			MongoDatabase:    os.Getenv("MONGODB_DATABASE"),
			MemoryMaxRecords: getenvInt("MEMORY_MAX_RECORDS", 0),
		},
		ForecastURL:          os.Getenv("OPENMETEO_FORECAST_URL"),
		GeocodingURL:         os.Getenv("OPENMETEO_GEOCODING_URL"),
		GoogleGeocoderAPIKey: os.Getenv("GOOGLE_GEOCODER_API_KEY"),
		MQTT: sensor.MQTTConfig{
			BrokerURL: os.Getenv("MQTT_BROKER_URL"),
			Topic:     getenvDefault("MQTT_TOPIC", "sensors/+/data"),
			ClientID:  getenvDefault("MQTT_CLIENT_ID", "weather-api"),
			Username:  os.Getenv("MQTT_USERNAME"),
			Password:  os.Getenv("MQTT_PASSWORD"),
		},
		Influx: sensor.InfluxConfig{
			URL:    os.Getenv("INFLUX_URL"),
			Token:  os.Getenv("INFLUX_TOKEN"),
			Org:    os.Getenv("INFLUX_ORG"),
			Bucket: os.Getenv("INFLUX_BUCKET"),
		},
		Logging: logger.Config{
			Level:  getenvDefault("LOG_LEVEL", "info"),
			Format: getenvDefault("LOG_FORMAT", "console"),
		},
		AllowedOrigins: getenvDefault("CORS_ALLOWED_ORIGINS", "*"),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Storage.ConnectTimeout, err = getenvDuration("MONGODB_CONNECT_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Storage.MemoryMaxAge, err = getenvDuration("MEMORY_MAX_AGE", 0); err != nil {
		return nil, err
	}

	// The remote deployment trusts device clocks, the local one does not.
	defTimestamp := string(sensor.TimestampClient)
	if cfg.Mode == ModeLocal {
		defTimestamp = string(sensor.TimestampServer)
	}
	cfg.Sensor = SensorConfig{
		Timestamp:     strings.ToLower(getenvDefault("SENSOR_TIMESTAMP", defTimestamp)),
		DefaultDevice: os.Getenv("SENSOR_DEFAULT_DEVICE_ID"),
		DefaultPlace:  os.Getenv("SENSOR_DEFAULT_LOCATION"),
		DefaultSource: os.Getenv("SENSOR_DEFAULT_SOURCE"),
	}

	if cfg.Locations, err = ParseLocations(os.Getenv("WEATHER_LOCATIONS")); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// SensorProfile resolves the defaults profile for the configured mode and
// applies any per-field overrides.
func (c *AppConfig) SensorProfile() sensor.Profile {
	profile := sensor.RemoteProfile()
	if c.Mode == ModeLocal {
		profile = sensor.LocalProfile()
	}

	d := &profile.Defaults
	d.Timestamp = sensor.TimestampPolicy(c.Sensor.Timestamp)
	if c.Sensor.DefaultDevice != "" {
		d.DeviceID = c.Sensor.DefaultDevice
	}
	if c.Sensor.DefaultPlace != "" {
		d.LocationName = c.Sensor.DefaultPlace
	}
	if c.Sensor.DefaultSource != "" {
		d.Source = c.Sensor.DefaultSource
	}
	if c.Storage.Driver == DriverMemory {
		profile = profile.WithStorageLabel("In-Memory Store")
	}
	return profile
}

// ParseLocations reads "name:lat:lon" entries separated by ";".
func ParseLocations(raw string) ([]weather.TrackedLocation, error) {
	var locs []weather.TrackedLocation
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid WEATHER_LOCATIONS entry %q: want name:lat:lon", entry)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || lat < -90 || lat > 90 {
			return nil, fmt.Errorf("invalid latitude in WEATHER_LOCATIONS entry %q", entry)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil || lon < -180 || lon > 180 {
			return nil, fmt.Errorf("invalid longitude in WEATHER_LOCATIONS entry %q", entry)
		}

		locs = append(locs, weather.TrackedLocation{
			Name:      strings.TrimSpace(parts[0]),
			Latitude:  lat,
			Longitude: lon,
		})
	}
	return locs, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
