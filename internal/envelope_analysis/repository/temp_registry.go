package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/redis/go-redis/v9"
)

const (
	tempKeyPrefix  = "envelope:temp:" // Staged upload: envelope:temp:{temp_data_id}
	defaultTempTTL = 24 * time.Hour
)

// TempEntry is what the registry knows about a staged upload.
type TempEntry struct {
	TempDataID       string           `json:"temp_data_id"`
	ExperimentTypeID int64            `json:"experiment_type_id"`
	FileName         string           `json:"file_name"`
	Columns          []string         `json:"columns"`
	RowCount         int              `json:"row_count"`
	TimeRange        domain.TimeRange `json:"time_range"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Descriptor converts the entry to the public record.
func (e *TempEntry) Descriptor() *domain.TempComparisonDataset {
	return &domain.TempComparisonDataset{
		TempDataID: e.TempDataID,
		RowCount:   e.RowCount,
		Columns:    e.Columns,
		TimeRange:  e.TimeRange,
	}
}

// TempRegistry tracks staged uploads in Redis. An entry that expired or was removed
// makes its temp_data_id invalid.
type TempRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTempRegistry creates a new TempRegistry
func NewTempRegistry(client *redis.Client, ttl time.Duration) *TempRegistry {
	if ttl <= 0 {
		ttl = defaultTempTTL
	}
	return &TempRegistry{client: client, ttl: ttl}
}

// TTL returns how long an entry lives after staging
func (r *TempRegistry) TTL() time.Duration { return r.ttl }

// Put registers a staged upload
func (r *TempRegistry) Put(ctx context.Context, e *TempEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal temp entry: %w", err)
	}

	if err := r.client.Set(ctx, tempKey(e.TempDataID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to register temp data: %w", err)
	}
	return nil
}

// Get returns a live entry or domain.ErrTempNotFound
func (r *TempRegistry) Get(ctx context.Context, id string) (*TempEntry, error) {
	data, err := r.client.Get(ctx, tempKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrTempNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get temp data: %w", err)
	}

	var e TempEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal temp entry: %w", err)
	}
	return &e, nil
}

// Exists reports whether id is still live
func (r *TempRegistry) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, tempKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check temp data: %w", err)
	}
	return n > 0, nil
}

// Touch restarts the TTL of a live entry
func (r *TempRegistry) Touch(ctx context.Context, id string) error {
	ok, err := r.client.Expire(ctx, tempKey(id), r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to refresh temp data: %w", err)
	}
	if !ok {
		return domain.ErrTempNotFound
	}
	return nil
}

// Delete removes an entry. Removing a missing entry is not an error.
func (r *TempRegistry) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, tempKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete temp data: %w", err)
	}
	return nil
}

func tempKey(id string) string {
	return tempKeyPrefix + id
}
