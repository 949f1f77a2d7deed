package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/weather-dashboard/weather-api/internal/weather"
)

// DefaultOpenMeteoForecastURL is the public Open-Meteo forecast endpoint.
const DefaultOpenMeteoForecastURL = "https://api.open-meteo.com/v1/forecast"

const forecastDays = 7

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	client  *http.Client
}

func NewOpenMeteoProvider(client *http.Client, baseURL string) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoForecastURL
	}
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		client:  client,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

type openMeteoPayload struct {
	Current *struct {
		Temperature   float64 `json:"temperature_2m"`
		Humidity      float64 `json:"relative_humidity_2m"`
		WindSpeed     float64 `json:"wind_speed_10m"`
		WindDirection float64 `json:"wind_direction_10m"`
		WeatherCode   *int    `json:"weather_code"`
	} `json:"current"`
	Daily *struct {
		Time          []string   `json:"time"`
		WeatherCode   []*int     `json:"weather_code"`
		TempMax       []*float64 `json:"temperature_2m_max"`
		TempMin       []*float64 `json:"temperature_2m_min"`
		Precipitation []*float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, lat, lon float64) (weather.Observation, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m,wind_direction_10m,weather_code")
	values.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_sum")
	values.Set("timezone", "auto")
	values.Set("forecast_days", strconv.Itoa(forecastDays))

	var payload openMeteoPayload
	if err := getJSON(ctx, p.client, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), &payload); err != nil {
		return weather.Observation{}, err
	}

	if payload.Current == nil || payload.Daily == nil {
		return weather.Observation{}, fmt.Errorf("%w: response is missing current or daily block", weather.ErrUpstream)
	}

	obs := weather.Observation{
		Current: weather.Current{
			Temperature:   payload.Current.Temperature,
			Humidity:      payload.Current.Humidity,
			WindSpeed:     payload.Current.WindSpeed,
			WindDirection: payload.Current.WindDirection,
			WeatherCode:   payload.Current.WeatherCode,
			Description:   weather.Describe(payload.Current.WeatherCode),
		},
		Forecast: make([]weather.ForecastDay, 0, len(payload.Daily.Time)),
	}

	// The daily arrays are parallel; Time decides how many days exist.
	for i, date := range payload.Daily.Time {
		code := intAt(payload.Daily.WeatherCode, i)
		obs.Forecast = append(obs.Forecast, weather.ForecastDay{
			Date:          date,
			MaxTemp:       floatAt(payload.Daily.TempMax, i),
			MinTemp:       floatAt(payload.Daily.TempMin, i),
			WeatherCode:   code,
			Description:   weather.Describe(code),
			Precipitation: floatAt(payload.Daily.Precipitation, i),
		})
	}

	return obs, nil
}

func intAt(values []*int, i int) *int {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func floatAt(values []*float64, i int) float64 {
	if i < len(values) && values[i] != nil {
		return *values[i]
	}
	return 0
}
