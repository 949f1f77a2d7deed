package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/weather-dashboard/weather-api/internal/weather"
)

// DefaultOpenMeteoGeocodingURL is the public Open-Meteo geocoding endpoint.
const DefaultOpenMeteoGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"

// maxCandidates is the number of results requested from the geocoder.
const maxCandidates = 5

// OpenMeteoGeocoder implements weather.Geocoder on the Open-Meteo search API.
type OpenMeteoGeocoder struct {
	baseURL string
	client  *http.Client
}

func NewOpenMeteoGeocoder(client *http.Client, baseURL string) *OpenMeteoGeocoder {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoGeocodingURL
	}
	return &OpenMeteoGeocoder{baseURL: baseURL, client: client}
}

func (g *OpenMeteoGeocoder) Search(ctx context.Context, query string) ([]weather.Candidate, error) {
	values := url.Values{}
	values.Set("name", query)
	values.Set("count", fmt.Sprint(maxCandidates))
	values.Set("language", "en")
	values.Set("format", "json")

	var payload struct {
		Results []struct {
			Name      string  `json:"name"`
			Country   string  `json:"country"`
			Admin1    string  `json:"admin1"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"results"`
	}

	if err := getJSON(ctx, g.client, fmt.Sprintf("%s?%s", g.baseURL, values.Encode()), &payload); err != nil {
		return nil, err
	}

	candidates := make([]weather.Candidate, 0, len(payload.Results))
	for _, r := range payload.Results {
		if len(candidates) == maxCandidates {
			break
		}
		candidates = append(candidates, weather.Candidate{
			Name:        r.Name,
			Country:     r.Country,
			Latitude:    r.Latitude,
			Longitude:   r.Longitude,
			DisplayName: displayName(r.Name, r.Country, r.Admin1),
		})
	}
	return candidates, nil
}

// displayName composes "name, region" preferring the country over the first
// administrative level.
func displayName(name, country, admin1 string) string {
	region := country
	if region == "" {
		region = admin1
	}
	return name + ", " + region
}
