package weather

import (
	"fmt"
	"time"
)

// Location is the inlined place a snapshot was taken for.
type Location struct {
	Name      string  `json:"name" bson:"name"`
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// DefaultName is used when a caller does not name the coordinates.
func DefaultName(lat, lon float64) string {
	return fmt.Sprintf("%g, %g", lat, lon)
}

// Current holds the conditions at capture time.
type Current struct {
	Temperature   float64   `json:"temperature" bson:"temperature"`
	Humidity      float64   `json:"humidity" bson:"humidity"`
	WindSpeed     float64   `json:"windSpeed" bson:"windSpeed"`
	WindDirection float64   `json:"windDirection" bson:"windDirection"`
	WeatherCode   *int      `json:"weatherCode" bson:"weatherCode"`
	Description   string    `json:"description" bson:"description"`
	Timestamp     time.Time `json:"timestamp" bson:"timestamp"`
}

// ForecastDay is one entry of the daily forecast.
type ForecastDay struct {
	Date          string  `json:"date" bson:"date"`
	MaxTemp       float64 `json:"maxTemp" bson:"maxTemp"`
	MinTemp       float64 `json:"minTemp" bson:"minTemp"`
	WeatherCode   *int    `json:"weatherCode" bson:"weatherCode"`
	Description   string  `json:"description" bson:"description"`
	Precipitation float64 `json:"precipitation" bson:"precipitation"`
}

// WeatherSnapshot is one stored observation plus forecast. Snapshots are
// never updated after insertion.
type WeatherSnapshot struct {
	ID        string        `json:"_id" bson:"_id"`
	Location  Location      `json:"location" bson:"location"`
	Current   Current       `json:"current" bson:"current"`
	Forecast  []ForecastDay `json:"forecast" bson:"forecast"`
	CreatedAt time.Time     `json:"createdAt" bson:"createdAt"`
}

// HistoryFilter narrows a history query.
type HistoryFilter struct {
	// LocationContains is matched case-insensitively against Location.Name.
	LocationContains string
	Limit            int
}

// Stats is the aggregate over every stored snapshot.
type Stats struct {
	TotalRecords        int64    `json:"totalRecords"`
	AvgTemperature      float64  `json:"avgTemperature"`
	MaxTemperature      float64  `json:"maxTemperature"`
	MinTemperature      float64  `json:"minTemperature"`
	UniqueLocations     []string `json:"uniqueLocations"`
	UniqueLocationCount int      `json:"uniqueLocationCount"`
}

// Candidate is a geocoding search result.
type Candidate struct {
	Name        string  `json:"name"`
	Country     string  `json:"country"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"displayName"`
}

// TrackedLocation is a coordinate pair refreshed on a schedule.
type TrackedLocation struct {
	Name      string
	Latitude  float64
	Longitude float64
}
