// Package lock provides a single-flight lease for the periodic jobs.
// Overlapping runs of the same job (a run exceeding its tick interval, or a
// second replica) are skipped instead of racing each other.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const leasePrefix = "jobs:lease:"

// compare-and-delete so a slow holder cannot release a lease that has
// expired and been re-acquired by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Lease struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLease(redisURL string, ttl time.Duration) (*Lease, error) {
	if redisURL == "" {
		return nil, errors.New("lock: redis url is required")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("lock: parse redis url: %w", err)
	}
	return &Lease{client: redis.NewClient(opt), ttl: ttl}, nil
}

// Acquire tries to take the named lease. When held by another run it
// returns ok=false with a nil release. The release function is safe to
// call exactly once.
func (l *Lease) Acquire(ctx context.Context, name string) (release func(), ok bool, err error) {
	key := leasePrefix + name
	token := uuid.NewString()

	ok, err = l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}, true, nil
}

func (l *Lease) Close() error {
	return l.client.Close()
}
