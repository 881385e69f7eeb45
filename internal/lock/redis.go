package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/agentstation/courtsync/pkg/errors"
	"github.com/agentstation/courtsync/pkg/logging"
)

const (
	// Redis key prefix for court locks
	keyPrefix = "courtsync:lock:"

	// DefaultLease bounds how long a crashed holder can block a court.
	DefaultLease = 2 * time.Minute

	// DefaultRetryInterval is how often a waiting caller retries SET NX.
	DefaultRetryInterval = 100 * time.Millisecond
)

// unlockScript deletes the key only if it still holds our token, so an
// expired lease taken over by another holder is never released by us.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker backed by SET NX PX leases.
type Redis struct {
	client        redis.UniversalClient
	lease         time.Duration
	retryInterval time.Duration
}

// RedisOption configures a Redis locker.
type RedisOption func(*Redis)

// WithLease sets the lease duration.
func WithLease(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.lease = d
		}
	}
}

// WithRetryInterval sets the polling interval while waiting for a lock.
func WithRetryInterval(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.retryInterval = d
		}
	}
}

// NewRedis creates a Redis-backed Locker. The client lifecycle is managed by
// the caller.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client:        client,
		lease:         DefaultLease,
		retryInterval: DefaultRetryInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewConfigError("lock", "redis ping failed", err)
	}
	return client, nil
}

// Lock polls SET NX until the key is acquired or ctx is done.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.retryInterval)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.lease).Result()
		if err != nil {
			return nil, errors.WrapResource("acquire", "lock", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// Release even when the caller's context is already cancelled.
		if err := unlockScript.Run(context.WithoutCancel(ctx), r.client, []string{redisKey}, token).Err(); err != nil {
			logging.Warn().Err(err).Str("key", key).Msg("Failed to release court lock")
		}
	}, nil
}
