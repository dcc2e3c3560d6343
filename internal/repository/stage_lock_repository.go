package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// StageLockRepository provides single-flight locks per case and stage so a
// second invocation of the same stage cannot start while one is outstanding,
// even across replicas.
type StageLockRepository interface {
	Acquire(ctx context.Context, caseID, stage string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, caseID, stage string) error
}

type stageLockRepository struct {
	client *redis.Client
}

// NewStageLockRepository returns a Redis-backed lock store.
func NewStageLockRepository(client *redis.Client) StageLockRepository {
	return &stageLockRepository{client: client}
}

func lockKey(caseID, stage string) string {
	return "stagelock:" + caseID + ":" + stage
}

// Acquire takes the lock if free. The TTL bounds how long a crashed holder
// can block retries.
func (r *stageLockRepository) Acquire(ctx context.Context, caseID, stage string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, lockKey(caseID, stage), "1", ttl).Result()
}

func (r *stageLockRepository) Release(ctx context.Context, caseID, stage string) error {
	return r.client.Del(ctx, lockKey(caseID, stage)).Err()
}
