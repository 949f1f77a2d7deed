package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/weather-dashboard/weather-api/internal/logger"
	"github.com/weather-dashboard/weather-api/internal/sensor"
	"github.com/weather-dashboard/weather-api/internal/store"
	"github.com/weather-dashboard/weather-api/internal/weather"
)

var validate = validator.New()

// isoMillis matches the millisecond UTC timestamps dashboards already parse.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Deps are the services the routes are built on. Weather is nil when the
// service runs sensor-only.
type Deps struct {
	Mode    string
	Weather *weather.Service
	Sensors *sensor.Service
	Metrics http.Handler
	Log     *logger.Logger
}

type handler struct {
	Deps
	log *logger.Logger
	now func() time.Time
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	h := &handler{
		Deps: deps,
		log:  deps.Log.WithComponent("api"),
		now:  func() time.Time { return time.Now().UTC() },
	}

	app.Get("/health", h.health)
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	api := app.Group("/api")

	if deps.Weather != nil {
		api.Get("/weather/current/:lat/:lon", h.currentWeather)
		api.Get("/weather/history", h.weatherHistory)
		api.Get("/weather/stats", h.weatherStats)
		api.Get("/locations/search/:query", h.searchLocations)
	}

	sensors := api.Group("/sensors")
	sensors.Post("/data", h.ingestReading)
	sensors.Get("/latest", h.latestReading)
	sensors.Get("/history", h.readingHistory)
	sensors.Get("/stats", h.readingStats)
}

func (h *handler) health(c *fiber.Ctx) error {
	message := "Weather API is running"
	if h.Weather == nil {
		message = "Local Weather API is running"
	}
	return c.JSON(fiber.Map{
		"status":    "OK",
		"message":   message,
		"timestamp": h.now().Format(isoMillis),
		"database":  h.Sensors.Profile().StorageLabel,
		"mode":      h.Mode,
	})
}

// coordinates holds the path parameters of the current-weather endpoint.
type coordinates struct {
	Lat float64 `validate:"latitude"`
	Lon float64 `validate:"longitude"`
}

func parseCoordinates(c *fiber.Ctx) (coordinates, error) {
	var q coordinates

	lat, err := strconv.ParseFloat(c.Params("lat"), 64)
	if err != nil {
		return q, errors.New("latitude must be a number")
	}
	lon, err := strconv.ParseFloat(c.Params("lon"), 64)
	if err != nil {
		return q, errors.New("longitude must be a number")
	}
	q.Lat, q.Lon = lat, lon

	if err := validate.Struct(q); err != nil {
		return q, errors.New("latitude must be within [-90, 90] and longitude within [-180, 180]")
	}
	return q, nil
}

func (h *handler) currentWeather(c *fiber.Ctx) error {
	q, err := parseCoordinates(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	name := c.Query("name")
	if strings.TrimSpace(name) == "" {
		name = c.Params("lat") + ", " + c.Params("lon")
	}

	snapshot, err := h.Weather.FetchAndStore(c.UserContext(), q.Lat, q.Lon, name)
	if err != nil {
		return h.fail(c, err, "Failed to fetch weather data")
	}
	return c.JSON(snapshot)
}

func (h *handler) weatherHistory(c *fiber.Ctx) error {
	snapshots, err := h.Weather.History(c.UserContext(), weather.HistoryFilter{
		LocationContains: c.Query("location"),
		Limit:            c.QueryInt("limit"),
	})
	if err != nil {
		return h.fail(c, err, "Failed to fetch historical data")
	}
	return c.JSON(snapshots)
}

func (h *handler) weatherStats(c *fiber.Ctx) error {
	stats, err := h.Weather.Stats(c.UserContext())
	if err != nil {
		return h.fail(c, err, "Failed to fetch statistics")
	}
	return c.JSON(stats)
}

func (h *handler) searchLocations(c *fiber.Ctx) error {
	candidates, err := h.Weather.SearchLocations(c.UserContext(), c.Params("query"))
	if err != nil {
		return h.fail(c, err, "Failed to search locations")
	}
	return c.JSON(candidates)
}

func (h *handler) ingestReading(c *fiber.Ctx) error {
	var in sensor.Input
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid sensor payload")
	}

	reading, err := h.Sensors.Ingest(c.UserContext(), in)
	if errors.Is(err, sensor.ErrInvalidReading) {
		return fiber.NewError(fiber.StatusBadRequest, sensor.ErrInvalidReading.Error())
	}
	if err != nil {
		return h.fail(c, err, h.Sensors.Profile().SaveFailedMessage)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": h.Sensors.Profile().SavedMessage,
		"data":    reading,
	})
}

func (h *handler) latestReading(c *fiber.Ctx) error {
	reading, err := h.Sensors.Latest(c.UserContext(), c.Query("deviceId"))
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": h.Sensors.Profile().NotFoundMessage,
		})
	}
	if err != nil {
		return h.fail(c, err, "Failed to fetch sensor data")
	}

	return c.JSON(h.tag(fiber.Map{
		"success": true,
		"data":    reading,
	}))
}

func (h *handler) readingHistory(c *fiber.Ctx) error {
	readings, err := h.Sensors.History(c.UserContext(), sensor.Filter{
		DeviceID: c.Query("deviceId"),
		Limit:    c.QueryInt("limit"),
	})
	if err != nil {
		return h.fail(c, err, "Failed to fetch sensor history")
	}

	return c.JSON(h.tag(fiber.Map{
		"success": true,
		"data":    readings,
		"count":   len(readings),
	}))
}

func (h *handler) readingStats(c *fiber.Ctx) error {
	stats, err := h.Sensors.Stats(c.UserContext())
	if err != nil {
		return h.fail(c, err, "Failed to fetch sensor statistics")
	}
	return c.JSON(stats)
}

// tag adds the storage label to a response when the profile asks for it.
func (h *handler) tag(body fiber.Map) fiber.Map {
	if p := h.Sensors.Profile(); p.TagResponses {
		body["source"] = p.StorageLabel
	}
	return body
}

// fail logs the cause and returns the public 500 message.
func (h *handler) fail(c *fiber.Ctx, err error, msg string) error {
	h.log.Logger.Error().
		Err(err).
		Str("request_id", requestID(c)).
		Str("path", c.Path()).
		Msg(msg)
	return fiber.NewError(fiber.StatusInternalServerError, msg)
}
