package sensor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestApplyRemoteDefaults(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d := RemoteProfile().Defaults

	r := d.Apply(Input{
		DeviceID:   "d1",
		SensorData: &DataInput{Temperature: ptr(21.5), Humidity: ptr(40.0)},
	}, now)

	assert.Equal(t, "d1", r.DeviceID)
	assert.Equal(t, Location{Name: "ESP32 Sensor"}, r.Location)
	assert.Equal(t, 21.5, r.SensorData.Temperature)
	assert.Equal(t, 40.0, r.SensorData.Humidity)
	assert.Equal(t, "ESP32", r.SensorData.Source)
	assert.Equal(t, now, r.SensorData.Timestamp)
}

func TestApplyFillsMissingFields(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		profile  Profile
		device   string
		location string
		source   string
	}{
		{"remote", RemoteProfile(), "Unknown-ESP32", "ESP32 Sensor", "ESP32"},
		{"local", LocalProfile(), "ESP32-Local", "ESP32 Sensor (Local)", "ESP32-Local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.profile.Defaults.Apply(Input{
				Location:   &LocationInput{Latitude: ptr(48.1)},
				SensorData: &DataInput{Temperature: ptr(1.0), Humidity: ptr(2.0), Source: " "},
			}, now)

			assert.Equal(t, tt.device, r.DeviceID)
			assert.Equal(t, tt.location, r.Location.Name)
			assert.Equal(t, 48.1, r.Location.Latitude)
			assert.Zero(t, r.Location.Longitude)
			assert.Equal(t, tt.source, r.SensorData.Source)
		})
	}
}

func TestApplyKeepsSuppliedValues(t *testing.T) {
	r := LocalProfile().Defaults.Apply(Input{
		DeviceID: "garage",
		Location: &LocationInput{Name: "Garage", Latitude: ptr(1.5), Longitude: ptr(-2.5)},
		SensorData: &DataInput{
			Temperature: ptr(-4.0),
			Humidity:    ptr(99.0),
			Source:      "DHT22",
		},
	}, time.Now())

	assert.Equal(t, "garage", r.DeviceID)
	assert.Equal(t, Location{Name: "Garage", Latitude: 1.5, Longitude: -2.5}, r.Location)
	assert.Equal(t, "DHT22", r.SensorData.Source)
	assert.Equal(t, -4.0, r.SensorData.Temperature)
}

func TestApplyTimestampPolicy(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sent := time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC)

	in := Input{SensorData: &DataInput{
		Temperature: ptr(20.0),
		Humidity:    ptr(50.0),
		Timestamp:   ClientTime{Time: sent, Valid: true},
	}}

	client := Defaults{Timestamp: TimestampClient}
	assert.Equal(t, sent, client.Apply(in, now).SensorData.Timestamp)

	server := Defaults{Timestamp: TimestampServer}
	assert.Equal(t, now, server.Apply(in, now).SensorData.Timestamp)

	// Unparsable client timestamps fall back to server time.
	in.SensorData.Timestamp = ClientTime{}
	assert.Equal(t, now, client.Apply(in, now).SensorData.Timestamp)
}
