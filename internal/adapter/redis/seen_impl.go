package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/listing-pipeline/internal/repository"
)

const seenKeyPrefix = "seen:"

// SeenRepoImpl keeps one Redis set per run and website.
type SeenRepoImpl struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSeenRepo creates a SeenRepoImpl whose sets expire after ttl.
// A zero ttl leaves them without expiry.
func NewSeenRepo(client *redis.Client, ttl time.Duration) *SeenRepoImpl {
	return &SeenRepoImpl{client: client, ttl: ttl}
}

var _ repository.SeenRepository = (*SeenRepoImpl)(nil)

func (r *SeenRepoImpl) generateKey(runID, website string) string {
	return fmt.Sprintf("%s%s:%s", seenKeyPrefix, runID, website)
}

// MarkSeen adds key to the run's set. SADD returns 1 only for new members.
func (r *SeenRepoImpl) MarkSeen(ctx context.Context, runID, website, key string) (bool, error) {
	setKey := r.generateKey(runID, website)

	var added *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		added = pipe.SAdd(ctx, setKey, key)
		if r.ttl > 0 {
			pipe.Expire(ctx, setKey, r.ttl)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("mark %s seen: %w", key, err)
	}
	return added.Val() == 1, nil
}

func (r *SeenRepoImpl) Reset(ctx context.Context, runID, website string) error {
	if err := r.client.Del(ctx, r.generateKey(runID, website)).Err(); err != nil {
		return fmt.Errorf("reset seen set for %s/%s: %w", runID, website, err)
	}
	return nil
}
