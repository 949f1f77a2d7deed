package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weather-dashboard/weather-api/internal/logger"
	"github.com/weather-dashboard/weather-api/internal/sensor"
	"github.com/weather-dashboard/weather-api/internal/store"
)

// scrapeTimeout bounds the two store queries made per scrape.
const scrapeTimeout = 5 * time.Second

// Source is the read side of the sensor service the collector needs.
type Source interface {
	Stats(ctx context.Context) (sensor.Stats, error)
	Latest(ctx context.Context, deviceID string) (sensor.Reading, error)
}

// SensorCollector exposes reading aggregates and the latest reading. Nothing
// is cached; every Collect runs the queries again.
type SensorCollector struct {
	source Source
	log    *logger.Logger

	records     *prometheus.Desc
	temperature *prometheus.Desc
	humidity    *prometheus.Desc
	tempAvg     *prometheus.Desc
	tempMax     *prometheus.Desc
	tempMin     *prometheus.Desc
	humAvg      *prometheus.Desc
	humMax      *prometheus.Desc
	humMin      *prometheus.Desc
	lastUpdate  *prometheus.Desc
}

func NewSensorCollector(source Source, log *logger.Logger) *SensorCollector {
	if log == nil {
		log = logger.Nop()
	}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(name, help, nil, nil)
	}
	return &SensorCollector{
		source:      source,
		log:         log.WithComponent("metrics"),
		records:     desc("esp32_sensor_records_total", "Total number of sensor records in database"),
		temperature: desc("esp32_temperature_celsius", "Current temperature reading from ESP32"),
		humidity:    desc("esp32_humidity_percent", "Current humidity reading from ESP32"),
		tempAvg:     desc("esp32_temperature_avg_celsius", "Average temperature from all readings"),
		tempMax:     desc("esp32_temperature_max_celsius", "Maximum temperature recorded"),
		tempMin:     desc("esp32_temperature_min_celsius", "Minimum temperature recorded"),
		humAvg:      desc("esp32_humidity_avg_percent", "Average humidity from all readings"),
		humMax:      desc("esp32_humidity_max_percent", "Maximum humidity recorded"),
		humMin:      desc("esp32_humidity_min_percent", "Minimum humidity recorded"),
		lastUpdate:  desc("esp32_last_update_timestamp", "Unix timestamp of last sensor reading"),
	}
}

func (c *SensorCollector) descs() []*prometheus.Desc {
	return []*prometheus.Desc{
		c.records, c.temperature, c.humidity,
		c.tempAvg, c.tempMax, c.tempMin,
		c.humAvg, c.humMax, c.humMin,
		c.lastUpdate,
	}
}

func (c *SensorCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs() {
		ch <- d
	}
}

func (c *SensorCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), scrapeTimeout)
	defer cancel()

	stats, err := c.source.Stats(ctx)
	if err != nil {
		c.fail(ch, err)
		return
	}

	// An empty collection has no latest reading; its gauges read zero.
	var current, humidity, lastUpdate float64
	latest, err := c.source.Latest(ctx, "")
	switch {
	case err == nil:
		current = latest.SensorData.Temperature
		humidity = latest.SensorData.Humidity
		lastUpdate = float64(latest.CreatedAt.UnixMilli()) / 1000
	case errors.Is(err, store.ErrNotFound):
	default:
		c.fail(ch, err)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.records, prometheus.CounterValue, float64(stats.TotalRecords))
	ch <- prometheus.MustNewConstMetric(c.temperature, prometheus.GaugeValue, current)
	ch <- prometheus.MustNewConstMetric(c.humidity, prometheus.GaugeValue, humidity)
	ch <- prometheus.MustNewConstMetric(c.tempAvg, prometheus.GaugeValue, stats.AvgTemperature)
	ch <- prometheus.MustNewConstMetric(c.tempMax, prometheus.GaugeValue, stats.MaxTemperature)
	ch <- prometheus.MustNewConstMetric(c.tempMin, prometheus.GaugeValue, stats.MinTemperature)
	ch <- prometheus.MustNewConstMetric(c.humAvg, prometheus.GaugeValue, stats.AvgHumidity)
	ch <- prometheus.MustNewConstMetric(c.humMax, prometheus.GaugeValue, stats.MaxHumidity)
	ch <- prometheus.MustNewConstMetric(c.humMin, prometheus.GaugeValue, stats.MinHumidity)
	ch <- prometheus.MustNewConstMetric(c.lastUpdate, prometheus.GaugeValue, lastUpdate)
}

// fail reports the error through the registry so the handler answers 500.
func (c *SensorCollector) fail(ch chan<- prometheus.Metric, err error) {
	c.log.ErrorWithError(err, "error generating metrics")
	ch <- prometheus.NewInvalidMetric(c.records, err)
}

// Handler serves the collector from a dedicated registry, so the exposition
// contains only the sensor metrics.
func Handler(c *SensorCollector) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
