package sensor

import (
	"strings"
	"time"
)

// TimestampPolicy decides where a reading's sensorData.timestamp comes from.
type TimestampPolicy string

const (
	// TimestampClient uses the device supplied timestamp when it parses,
	// falling back to server time.
	TimestampClient TimestampPolicy = "client"
	// TimestampServer always stamps readings with server time.
	TimestampServer TimestampPolicy = "server"
)

// Defaults fills in whatever a device left out of a push.
type Defaults struct {
	DeviceID     string
	LocationName string
	Source       string
	Timestamp    TimestampPolicy
}

// Profile bundles the defaults with the labels a deployment reports.
type Profile struct {
	Defaults Defaults
	// SavedMessage is returned on a successful push.
	SavedMessage string
	// NotFoundMessage answers a latest query with nothing stored.
	NotFoundMessage string
	// SaveFailedMessage is the public error when a push cannot be stored.
	SaveFailedMessage string
	// StorageLabel is echoed as "source" on stats.
	StorageLabel string
	// TagResponses adds StorageLabel to latest and history responses too.
	TagResponses bool
}

// RemoteProfile is used next to the public weather API.
func RemoteProfile() Profile {
	return Profile{
		Defaults: Defaults{
			DeviceID:     "Unknown-ESP32",
			LocationName: "ESP32 Sensor",
			Source:       "ESP32",
			Timestamp:    TimestampClient,
		},
		SavedMessage:      "Sensor data saved successfully",
		NotFoundMessage:   "No sensor data found",
		SaveFailedMessage: "Failed to save sensor data",
		StorageLabel:      "MongoDB",
	}
}

// LocalProfile is used by the sensor-only deployment.
func LocalProfile() Profile {
	return Profile{
		Defaults: Defaults{
			DeviceID:     "ESP32-Local",
			LocationName: "ESP32 Sensor (Local)",
			Source:       "ESP32-Local",
			Timestamp:    TimestampServer,
		},
		SavedMessage:      "Sensor data saved to Local MongoDB",
		NotFoundMessage:   "No sensor data found in Local MongoDB",
		SaveFailedMessage: "Failed to save sensor data to Local MongoDB",
		StorageLabel:      "Local MongoDB",
		TagResponses:      true,
	}
}

// WithStorageLabel swaps the storage label, including where the messages
// mention it.
func (p Profile) WithStorageLabel(label string) Profile {
	if p.StorageLabel == "" || label == p.StorageLabel {
		p.StorageLabel = label
		return p
	}
	old := p.StorageLabel
	p.SavedMessage = strings.ReplaceAll(p.SavedMessage, old, label)
	p.NotFoundMessage = strings.ReplaceAll(p.NotFoundMessage, old, label)
	p.SaveFailedMessage = strings.ReplaceAll(p.SaveFailedMessage, old, label)
	p.StorageLabel = label
	return p
}

// Apply turns a validated push into a reading. ID and CreatedAt are left for
// the caller to assign.
func (d Defaults) Apply(in Input, now time.Time) Reading {
	r := Reading{
		DeviceID: firstNonEmpty(in.DeviceID, d.DeviceID),
		Location: Location{Name: d.LocationName},
	}

	if in.Location != nil {
		r.Location.Name = firstNonEmpty(in.Location.Name, d.LocationName)
		if in.Location.Latitude != nil {
			r.Location.Latitude = *in.Location.Latitude
		}
		if in.Location.Longitude != nil {
			r.Location.Longitude = *in.Location.Longitude
		}
	}

	r.SensorData.Timestamp = now
	r.SensorData.Source = d.Source
	if in.SensorData != nil {
		if in.SensorData.Temperature != nil {
			r.SensorData.Temperature = *in.SensorData.Temperature
		}
		if in.SensorData.Humidity != nil {
			r.SensorData.Humidity = *in.SensorData.Humidity
		}
		r.SensorData.Source = firstNonEmpty(in.SensorData.Source, d.Source)
		if d.Timestamp == TimestampClient && in.SensorData.Timestamp.Valid {
			r.SensorData.Timestamp = in.SensorData.Timestamp.Time
		}
	}

	return r
}

func firstNonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
