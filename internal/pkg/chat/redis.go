package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "soulwhisper:chat:"

type redisCmds interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps sessions in redis, a session expires after ttl of inactivity
type RedisStore struct {
	rdb redisCmds
	ttl time.Duration
}

// NewRedisStore connects to redis by URL, e.g. redis://localhost:6379/0
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("can't parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Hour * 2
	}
	goapp.Log.Info().Str("addr", opt.Addr).Dur("ttl", ttl).Msg("cfg: chat redis")
	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

// Get loads the session or ErrNoSession
func (r *RedisStore) Get(ctx context.Context, userID string) (*Session, error) {
	b, err := r.rdb.Get(ctx, redisKeyPrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("can't get session: %w", err)
	}
	var res Session
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("can't decode session: %w", err)
	}
	return &res, nil
}

// Put saves the session and refreshes ttl
func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("can't encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, redisKeyPrefix+s.UserID, b, r.ttl).Err(); err != nil {
		return fmt.Errorf("can't save session: %w", err)
	}
	return nil
}

// Delete drops the session
func (r *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := r.rdb.Del(ctx, redisKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("can't delete session: %w", err)
	}
	return nil
}
