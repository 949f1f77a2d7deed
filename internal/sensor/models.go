package sensor

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Location is the device-reported (or defaulted) position of a sensor.
type Location struct {
	Name      string  `json:"name" bson:"name"`
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// Data is the measurement part of a reading.
type Data struct {
	Temperature float64   `json:"temperature" bson:"temperature"`
	Humidity    float64   `json:"humidity" bson:"humidity"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
	Source      string    `json:"source" bson:"source"`
}

// Reading is one stored measurement from a device. Readings are append-only.
type Reading struct {
	ID         string    `json:"_id" bson:"_id"`
	DeviceID   string    `json:"deviceId" bson:"deviceId"`
	Location   Location  `json:"location" bson:"location"`
	SensorData Data      `json:"sensorData" bson:"sensorData"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

// Input is the body a device pushes. Everything except the two readings is
// optional and filled in by Defaults.Apply.
type Input struct {
	DeviceID   string         `json:"deviceId"`
	Location   *LocationInput `json:"location"`
	SensorData *DataInput     `json:"sensorData" validate:"required"`
}

// LocationInput mirrors Location with optional fields.
type LocationInput struct {
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// DataInput mirrors Data with optional fields.
type DataInput struct {
	Temperature *float64   `json:"temperature" validate:"required"`
	Humidity    *float64   `json:"humidity" validate:"required"`
	Timestamp   ClientTime `json:"timestamp"`
	Source      string     `json:"source"`
}

// ClientTime accepts an RFC3339 string or a Unix millisecond number. An
// absent, null or unparsable value leaves Valid false.
type ClientTime struct {
	Time  time.Time
	Valid bool
}

func (t *ClientTime) UnmarshalJSON(b []byte) error {
	*t = ClientTime{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			t.Time, t.Valid = ts.UTC(), true
			return nil
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			t.Time, t.Valid = time.UnixMilli(ms).UTC(), true
		}
		return nil
	}

	if ms, err := strconv.ParseFloat(string(b), 64); err == nil {
		t.Time, t.Valid = time.UnixMilli(int64(ms)).UTC(), true
	}
	return nil
}

// Filter narrows latest and history queries.
type Filter struct {
	// DeviceID matches exactly when set.
	DeviceID string
	Limit    int
}

// Stats is the aggregate over every stored reading.
type Stats struct {
	TotalRecords      int64    `json:"totalRecords"`
	AvgTemperature    float64  `json:"avgTemperature"`
	MaxTemperature    float64  `json:"maxTemperature"`
	MinTemperature    float64  `json:"minTemperature"`
	AvgHumidity       float64  `json:"avgHumidity"`
	MaxHumidity       float64  `json:"maxHumidity"`
	MinHumidity       float64  `json:"minHumidity"`
	UniqueDevices     []string `json:"uniqueDevices"`
	UniqueDeviceCount int      `json:"uniqueDeviceCount"`
	Source            string   `json:"source,omitempty"`
}
