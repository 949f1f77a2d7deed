package store

import (
	"context"
	"errors"

	"github.com/weather-dashboard/weather-api/internal/sensor"
	"github.com/weather-dashboard/weather-api/internal/weather"
)

var (
	// ErrNotFound is returned when no record matches a single-record query.
	ErrNotFound = errors.New("no matching record")
)

// Store is what a storage driver provides: both record collections plus
// lifecycle hooks.
type Store interface {
	weather.Store
	sensor.Store

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*MongoStore)(nil)
)
