package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/kelvins/geocoder"

	"github.com/weather-dashboard/weather-api/internal/weather"
)

// noResults is the error text geocoder returns for a ZERO_RESULTS status.
const noResults = "No results found"

// GoogleGeocoder implements weather.Geocoder with the Google Geocoding API.
// It resolves a single best match for the query.
type GoogleGeocoder struct {
	apiKey string
}

// NewGoogleGeocoder registers apiKey with the geocoder package. The key is
// process-wide, so only one Google key can be in use at a time.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	if apiKey != "" {
		geocoder.ApiKey = apiKey
	}
	return &GoogleGeocoder{apiKey: apiKey}
}

type googleResult struct {
	candidates []weather.Candidate
	err        error
}

// Search returns as soon as ctx is done. geocoder offers no way to cancel a
// request, so an abandoned lookup finishes in the background.
func (g *GoogleGeocoder) Search(ctx context.Context, query string) ([]weather.Candidate, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("google geocoder api key is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan googleResult, 1)
	go func() {
		candidates, err := lookup(query)
		done <- googleResult{candidates: candidates, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.candidates, res.err
	}
}

func lookup(query string) ([]weather.Candidate, error) {
	loc, err := geocoder.Geocoding(geocoder.Address{City: query})
	if err != nil {
		if strings.Contains(err.Error(), noResults) {
			return []weather.Candidate{}, nil
		}
		return nil, fmt.Errorf("%w: google geocoding: %v", weather.ErrUpstream, err)
	}

	candidate := weather.Candidate{
		Name:      query,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
	}

	// Reverse lookup only enriches the name; a failure keeps the raw query.
	if addresses, err := geocoder.GeocodingReverse(loc); err == nil && len(addresses) > 0 {
		addr := addresses[0]
		if addr.City != "" {
			candidate.Name = addr.City
		}
		candidate.Country = addr.Country
		candidate.DisplayName = displayName(candidate.Name, addr.Country, addr.State)
	} else {
		candidate.DisplayName = displayName(candidate.Name, "", "")
	}

	return []weather.Candidate{candidate}, nil
}
