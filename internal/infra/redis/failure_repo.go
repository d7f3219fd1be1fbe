package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nminhdao/registrar/internal/core/domain"
)

// FailureRepo implements storage.FailureRepository using Redis. Records carry
// a TTL so stale failures age out without a sweeper; Redis eviction is the
// retention bound.
type FailureRepo struct {
	rdb *redis.Client
}

// NewFailureRepo creates a new Redis-backed failure repository.
func NewFailureRepo(client *Client) *FailureRepo {
	return &FailureRepo{rdb: client.rdb}
}

func recordKey(key domain.FailureKey) string {
	return fmt.Sprintf("failure:%s:%s", key.EventID, key.Strategy)
}

// Get retrieves the failure record for a key, or nil when absent.
func (r *FailureRepo) Get(
	ctx context.Context,
	key domain.FailureKey,
) (*domain.FailureRecord, error) {
	data, err := r.rdb.Get(ctx, recordKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get failure record: %w", err)
	}

	var record domain.FailureRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failure record: %w", err)
	}
	return &record, nil
}

// Put upserts a failure record with the given retention as TTL.
func (r *FailureRepo) Put(
	ctx context.Context,
	record *domain.FailureRecord,
	retention time.Duration,
) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal failure record: %w", err)
	}

	if err := r.rdb.Set(ctx, recordKey(record.Key()), data, retention).Err(); err != nil {
		return fmt.Errorf("failed to set failure record: %w", err)
	}
	return nil
}

// Delete removes the record for a key after a successful registration.
func (r *FailureRepo) Delete(ctx context.Context, key domain.FailureKey) error {
	if err := r.rdb.Del(ctx, recordKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete failure record: %w", err)
	}
	return nil
}
