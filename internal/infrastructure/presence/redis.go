package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	onlineUsersKey  = "presence:online" // set of online user ids
	userConnsPrefix = "presence:conns:" // presence:conns:{userId} -> set of connection ids
	connsTTL        = 24 * time.Hour    // safety net for leaked connection entries
)

// Transition detection must be atomic with the membership change: two
// simultaneous first connections doing SADD then SCARD in separate round
// trips would both see card 2 and neither would report the 0->1 edge.
var connectScript = redis.NewScript(`
local added = redis.call("SADD", KEYS[1], ARGV[1])
redis.call("PEXPIRE", KEYS[1], ARGV[2])
if added == 1 and redis.call("SCARD", KEYS[1]) == 1 then
	redis.call("SADD", KEYS[2], ARGV[3])
	return 1
end
return 0
`)

var disconnectScript = redis.NewScript(`
local removed = redis.call("SREM", KEYS[1], ARGV[1])
if removed == 1 and redis.call("SCARD", KEYS[1]) == 0 then
	redis.call("SREM", KEYS[2], ARGV[2])
	return 1
end
return 0
`)

// RedisStore implements Store on Redis sets: one connection-id set per user
// plus an online-users set maintained by the transition scripts.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	if redisURL == "" {
		return nil, errors.New("presence: redis url is required")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("presence: parse redis url: %w", err)
	}
	c := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("presence: ping: %w", err)
	}
	return &RedisStore{client: c}, nil
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) Connect(ctx context.Context, userID, connID string) (bool, error) {
	key := userConnsPrefix + userID
	n, err := connectScript.Run(ctx, s.client,
		[]string{key, onlineUsersKey},
		connID, connsTTL.Milliseconds(), userID,
	).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) Disconnect(ctx context.Context, userID, connID string) (bool, error) {
	key := userConnsPrefix + userID
	n, err := disconnectScript.Run(ctx, s.client,
		[]string{key, onlineUsersKey},
		connID, userID,
	).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) Online(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, onlineUsersKey).Result()
}

// IsOnline reads the per-user connection set directly rather than the
// online-users index.
func (s *RedisStore) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := s.client.SCard(ctx, userConnsPrefix+userID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
