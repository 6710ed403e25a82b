package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// DefaultTTL is how long a cached query result stays servable.
const DefaultTTL = 5 * time.Minute

var ErrMiss = errors.New("cache miss")

// Envelope is the stored shape: the payload plus the write time and the
// normalized parameters it answers.
type Envelope struct {
	Data        json.RawMessage   `json:"data"`
	Timestamp   int64             `json:"timestamp"`
	QueryParams map[string]string `json:"queryParams"`
}

// QueryCache caches query results in Redis keyed by the normalized
// parameter set, with a fixed expiry.
type QueryCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func New(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *QueryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &QueryCache{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// Key builds the cache key: empty values dropped, remaining pairs sorted
// by key. Parameter order on the way in does not matter.
func Key(prefix string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(prefix)
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
	}
	return sb.String()
}

// Get returns the cached payload for the parameter set, or ErrMiss.
func (q *QueryCache) Get(ctx context.Context, params map[string]string) (json.RawMessage, error) {
	key := Key(q.prefix, params)
	raw, err := q.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMiss
		}
		return nil, err
	}

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		// A corrupt entry is treated as a miss, not a failure.
		q.logger.Warn("dropping unreadable cache entry", zap.String("key", key), zap.Error(err))
		q.client.Del(ctx, key)
		return nil, ErrMiss
	}
	return env.Data, nil
}

func (q *QueryCache) Set(ctx context.Context, params map[string]string, data []byte) error {
	env := Envelope{
		Data:        data,
		Timestamp:   time.Now().UnixMilli(),
		QueryParams: params,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return q.client.Set(ctx, Key(q.prefix, params), raw, q.ttl).Err()
}

// Invalidate removes every entry under the prefix. Called after
// mutations so the next read reconciles against the database.
func (q *QueryCache) Invalidate(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := q.client.Scan(ctx, cursor, q.prefix+"*", 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := q.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
