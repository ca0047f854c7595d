package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ecodrive/ecodrive/internal/geo"
)

// tripKey is the single key holding the active trip snapshot. Storing the
// whole record as one JSON document makes Save and Clear atomic: a reader
// sees the full snapshot or nothing.
const tripKey = "ecodrive:active_trip"

// tripRecord is the wire form of a persisted trip. Active is carried
// explicitly so a decoded record can be validated all-or-nothing.
type tripRecord struct {
	Active     bool    `json:"active"`
	ID         string  `json:"id"`
	Country    string  `json:"country"`
	SourceText string  `json:"sourceText"`
	DestText   string  `json:"destText"`
	StartLat   float64 `json:"startLat"`
	StartLon   float64 `json:"startLon"`
	EndLat     float64 `json:"endLat"`
	EndLon     float64 `json:"endLon"`
	SavedAt    int64   `json:"savedAt"`
}

// RedisRepository persists the trip snapshot in redis.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a redis-backed trip repository and verifies
// connectivity.
func NewRedisRepository(addr string) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisRepository{client: client}, nil
}

// NewRedisRepositoryWithClient wraps an existing client (used in tests).
func NewRedisRepositoryWithClient(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

// Close closes the underlying connection.
func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// Save stores the trip snapshot, replacing any prior one.
func (r *RedisRepository) Save(ctx context.Context, trip *Trip) error {
	record := tripRecord{
		Active:     true,
		ID:         trip.ID,
		Country:    trip.Country,
		SourceText: trip.SourceText,
		DestText:   trip.DestText,
		StartLat:   trip.Start.Lat,
		StartLon:   trip.Start.Lon,
		EndLat:     trip.End.Lat,
		EndLon:     trip.End.Lon,
		SavedAt:    trip.SavedAt.Unix(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling trip: %w", err)
	}

	if err := r.client.Set(ctx, tripKey, data, 0).Err(); err != nil {
		return fmt.Errorf("storing trip: %w", err)
	}
	return nil
}

// Load retrieves the stored snapshot.
func (r *RedisRepository) Load(ctx context.Context) (*Trip, error) {
	data, err := r.client.Get(ctx, tripKey).Bytes()
	if err == redis.Nil {
		return nil, ErrNoActiveTrip
	}
	if err != nil {
		return nil, fmt.Errorf("loading trip: %w", err)
	}

	var record tripRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshaling trip: %w", err)
	}
	if !record.Active {
		return nil, ErrNoActiveTrip
	}

	return &Trip{
		ID:         record.ID,
		Country:    record.Country,
		SourceText: record.SourceText,
		DestText:   record.DestText,
		Start:      geo.Coordinate{Lat: record.StartLat, Lon: record.StartLon},
		End:        geo.Coordinate{Lat: record.EndLat, Lon: record.EndLon},
		SavedAt:    time.Unix(record.SavedAt, 0),
	}, nil
}

// Clear removes the snapshot.
func (r *RedisRepository) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, tripKey).Err(); err != nil {
		return fmt.Errorf("clearing trip: %w", err)
	}
	return nil
}

// Ensure RedisRepository implements Repository.
var _ Repository = (*RedisRepository)(nil)
