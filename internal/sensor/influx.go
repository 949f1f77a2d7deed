package sensor

import (
	"context"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxConfig points the mirror at an InfluxDB 2 bucket.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxMirror writes every stored reading as a sensor_data point so
// dashboards can query readings as a time series.
type InfluxMirror struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
}

func NewInfluxMirror(cfg InfluxConfig) *InfluxMirror {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxMirror{
		client: client,
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

func (m *InfluxMirror) MirrorReading(ctx context.Context, r Reading) error {
	point := influxdb2.NewPointWithMeasurement("sensor_data").
		AddTag("device_id", r.DeviceID).
		AddTag("source", r.SensorData.Source).
		AddField("temperature", r.SensorData.Temperature).
		AddField("humidity", r.SensorData.Humidity).
		AddField("location", r.Location.Name).
		SetTime(r.SensorData.Timestamp)

	return m.writer.WritePoint(ctx, point)
}

// Close releases the underlying HTTP resources.
func (m *InfluxMirror) Close() {
	m.client.Close()
}
