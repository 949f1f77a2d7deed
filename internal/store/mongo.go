package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/weather-dashboard/weather-api/internal/sensor"
	"github.com/weather-dashboard/weather-api/internal/weather"
)

const (
	// Collection names match the ones the dashboard has always written to.
	snapshotCollection = "weathers"
	readingCollection  = "sensordatas"

	defaultDatabase = "weatherdb"
	opTimeout       = 5 * time.Second
)

// MongoStore persists snapshots and readings in MongoDB.
type MongoStore struct {
	client    *mongo.Client
	snapshots *mongo.Collection
	readings  *mongo.Collection
}

// ConnectMongo dials the deployment, verifies it with a ping and prepares
// the indexes used by the newest-first queries. dbName falls back to the
// database in the URI, then to "weatherdb".
func ConnectMongo(ctx context.Context, uri, dbName string, timeout time.Duration) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb uri is empty")
	}
	if dbName == "" {
		dbName = databaseFromURI(uri)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping MongoDB: %w", err)
	}

	s := NewMongoStore(client.Database(dbName))
	s.client = client

	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// NewMongoStore wraps an already connected database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		client:    db.Client(),
		snapshots: db.Collection(snapshotCollection),
		readings:  db.Collection(readingCollection),
	}
}

// EnsureIndexes creates the createdAt indexes both collections sort on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.snapshots.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("create %s index: %w", snapshotCollection, err)
	}
	if _, err := s.readings.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "deviceId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("create %s indexes: %w", readingCollection, err)
	}
	return nil
}

func (s *MongoStore) InsertSnapshot(ctx context.Context, snapshot weather.WeatherSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := s.snapshots.InsertOne(ctx, snapshot)
	return err
}

func (s *MongoStore) FindSnapshots(ctx context.Context, filter weather.HistoryFilter) ([]weather.WeatherSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := bson.M{}
	if filter.LocationContains != "" {
		query["location.name"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.LocationContains), Options: "i"}
	}

	cur, err := s.snapshots.Find(ctx, query, newestFirst(filter.Limit))
	if err != nil {
		return nil, err
	}
	result := make([]weather.WeatherSnapshot, 0)
	if err := cur.All(ctx, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *MongoStore) SnapshotStats(ctx context.Context) (weather.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalRecords", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "avgTemperature", Value: bson.D{{Key: "$avg", Value: "$current.temperature"}}},
			{Key: "maxTemperature", Value: bson.D{{Key: "$max", Value: "$current.temperature"}}},
			{Key: "minTemperature", Value: bson.D{{Key: "$min", Value: "$current.temperature"}}},
			{Key: "uniqueLocations", Value: bson.D{{Key: "$addToSet", Value: "$location.name"}}},
		}}},
	}

	var rows []struct {
		TotalRecords    int64    `bson:"totalRecords"`
		AvgTemperature  *float64 `bson:"avgTemperature"`
		MaxTemperature  *float64 `bson:"maxTemperature"`
		MinTemperature  *float64 `bson:"minTemperature"`
		UniqueLocations []string `bson:"uniqueLocations"`
	}
	if err := s.aggregate(ctx, s.snapshots, pipeline, &rows); err != nil {
		return weather.Stats{}, err
	}

	stats := weather.Stats{UniqueLocations: []string{}}
	if len(rows) == 0 {
		return stats, nil
	}
	row := rows[0]
	stats.TotalRecords = row.TotalRecords
	stats.AvgTemperature = deref(row.AvgTemperature)
	stats.MaxTemperature = deref(row.MaxTemperature)
	stats.MinTemperature = deref(row.MinTemperature)
	if row.UniqueLocations != nil {
		stats.UniqueLocations = row.UniqueLocations
		sort.Strings(stats.UniqueLocations)
	}
	return stats, nil
}

func (s *MongoStore) InsertReading(ctx context.Context, reading sensor.Reading) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := s.readings.InsertOne(ctx, reading)
	return err
}

func (s *MongoStore) LatestReading(ctx context.Context, deviceID string) (sensor.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var reading sensor.Reading
	err := s.readings.FindOne(ctx, deviceQuery(deviceID), opts).Decode(&reading)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return sensor.Reading{}, ErrNotFound
	}
	if err != nil {
		return sensor.Reading{}, err
	}
	return reading, nil
}

func (s *MongoStore) FindReadings(ctx context.Context, filter sensor.Filter) ([]sensor.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := s.readings.Find(ctx, deviceQuery(filter.DeviceID), newestFirst(filter.Limit))
	if err != nil {
		return nil, err
	}
	result := make([]sensor.Reading, 0)
	if err := cur.All(ctx, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *MongoStore) ReadingStats(ctx context.Context) (sensor.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalRecords", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "avgTemperature", Value: bson.D{{Key: "$avg", Value: "$sensorData.temperature"}}},
			{Key: "maxTemperature", Value: bson.D{{Key: "$max", Value: "$sensorData.temperature"}}},
			{Key: "minTemperature", Value: bson.D{{Key: "$min", Value: "$sensorData.temperature"}}},
			{Key: "avgHumidity", Value: bson.D{{Key: "$avg", Value: "$sensorData.humidity"}}},
			{Key: "maxHumidity", Value: bson.D{{Key: "$max", Value: "$sensorData.humidity"}}},
			{Key: "minHumidity", Value: bson.D{{Key: "$min", Value: "$sensorData.humidity"}}},
			{Key: "uniqueDevices", Value: bson.D{{Key: "$addToSet", Value: "$deviceId"}}},
		}}},
	}

	var rows []struct {
		TotalRecords   int64    `bson:"totalRecords"`
		AvgTemperature *float64 `bson:"avgTemperature"`
		MaxTemperature *float64 `bson:"maxTemperature"`
		MinTemperature *float64 `bson:"minTemperature"`
		AvgHumidity    *float64 `bson:"avgHumidity"`
		MaxHumidity    *float64 `bson:"maxHumidity"`
		MinHumidity    *float64 `bson:"minHumidity"`
		UniqueDevices  []string `bson:"uniqueDevices"`
	}
	if err := s.aggregate(ctx, s.readings, pipeline, &rows); err != nil {
		return sensor.Stats{}, err
	}

	stats := sensor.Stats{UniqueDevices: []string{}}
	if len(rows) == 0 {
		return stats, nil
	}
	row := rows[0]
	stats.TotalRecords = row.TotalRecords
	stats.AvgTemperature = deref(row.AvgTemperature)
	stats.MaxTemperature = deref(row.MaxTemperature)
	stats.MinTemperature = deref(row.MinTemperature)
	stats.AvgHumidity = deref(row.AvgHumidity)
	stats.MaxHumidity = deref(row.MaxHumidity)
	stats.MinHumidity = deref(row.MinHumidity)
	if row.UniqueDevices != nil {
		stats.UniqueDevices = row.UniqueDevices
		sort.Strings(stats.UniqueDevices)
	}
	return stats, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) aggregate(ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline, out interface{}) error {
	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

func newestFirst(limit int) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

func deviceQuery(deviceID string) bson.M {
	if deviceID == "" {
		return bson.M{}
	}
	return bson.M{"deviceId": deviceID}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func databaseFromURI(uri string) string {
	cs, err := connstring.Parse(uri)
	if err != nil || cs.Database == "" {
		return defaultDatabase
	}
	return cs.Database
}
