package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weather-dashboard/weather-api/internal/sensor"
	"github.com/weather-dashboard/weather-api/internal/weather"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, ModeRemote, cfg.Mode)
	assert.Equal(t, DriverMongo, cfg.Storage.Driver)
	assert.Equal(t, "mongodb://localhost:27017/weatherdb", cfg.Storage.MongoURI)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 15*time.Minute, cfg.FetchInterval)
	assert.Equal(t, "client", cfg.Sensor.Timestamp)
	assert.Equal(t, "sensors/+/data", cfg.MQTT.Topic)
	assert.Equal(t, "*", cfg.AllowedOrigins)
	assert.Empty(t, cfg.Locations)
}

func TestLoadLocalMode(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVICE_MODE", "LOCAL")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("MEMORY_MAX_RECORDS", "500")
	t.Setenv("MEMORY_MAX_AGE", "24h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModeLocal, cfg.Mode)
	assert.Equal(t, "server", cfg.Sensor.Timestamp)
	assert.Equal(t, 500, cfg.Storage.MemoryMaxRecords)
	assert.Equal(t, 24*time.Hour, cfg.Storage.MemoryMaxAge)

	profile := cfg.SensorProfile()
	assert.Equal(t, "ESP32-Local", profile.Defaults.DeviceID)
	assert.Equal(t, sensor.TimestampServer, profile.Defaults.Timestamp)
	assert.Equal(t, "In-Memory Store", profile.StorageLabel)
	assert.Equal(t, "Sensor data saved to In-Memory Store", profile.SavedMessage)
	assert.Equal(t, "No sensor data found in In-Memory Store", profile.NotFoundMessage)
	assert.Equal(t, "Failed to save sensor data to In-Memory Store", profile.SaveFailedMessage)
	assert.True(t, profile.TagResponses)
}

func TestSensorProfileOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SENSOR_TIMESTAMP", "server")
	t.Setenv("SENSOR_DEFAULT_DEVICE_ID", "porch")
	t.Setenv("SENSOR_DEFAULT_LOCATION", "Porch")
	t.Setenv("SENSOR_DEFAULT_SOURCE", "DHT22")

	cfg, err := Load()
	require.NoError(t, err)

	profile := cfg.SensorProfile()
	assert.Equal(t, sensor.Defaults{
		DeviceID:     "porch",
		LocationName: "Porch",
		Source:       "DHT22",
		Timestamp:    sensor.TimestampServer,
	}, profile.Defaults)
	assert.Equal(t, "Sensor data saved successfully", profile.SavedMessage)
	assert.Equal(t, "MongoDB", profile.StorageLabel)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string][2]string{
		"mode":          {"SERVICE_MODE", "hybrid"},
		"driver":        {"STORAGE_DRIVER", "redis"},
		"timestamp":     {"SENSOR_TIMESTAMP", "device"},
		"port":          {"PORT", "http"},
		"http timeout":  {"HTTP_TIMEOUT", "soon"},
		"interval":      {"FETCH_INTERVAL", "0s"},
		"forecast url":  {"OPENMETEO_FORECAST_URL", "not a url"},
		"locations":     {"WEATHER_LOCATIONS", "Berlin:52.52"},
		"latitude":      {"WEATHER_LOCATIONS", "Nowhere:95:0"},
		"connect delay": {"MONGODB_CONNECT_TIMEOUT", "-1s"},
	}

	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(kv[0], kv[1])

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestParseLocations(t *testing.T) {
	locs, err := ParseLocations(" Berlin:52.52:13.41 ; Paris: 48.85 : 2.35;;")
	require.NoError(t, err)
	assert.Equal(t, []weather.TrackedLocation{
		{Name: "Berlin", Latitude: 52.52, Longitude: 13.41},
		{Name: "Paris", Latitude: 48.85, Longitude: 2.35},
	}, locs)

	locs, err = ParseLocations("")
	require.NoError(t, err)
	assert.Empty(t, locs)

	_, err = ParseLocations("Oslo:59.91:200")
	require.Error(t, err)
}
