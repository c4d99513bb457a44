package runlock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/volleyball-league/internal/platform/logging"
)

const (
	defaultKeyPrefix = "volleyball:lock:"
	defaultTTL       = 10 * time.Minute
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// Redis serializes runs across replicas with SET NX PX. The TTL bounds how
// long a crashed holder can block others.
type Redis struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	logger    *logging.Logger
}

func NewRedis(client redis.UniversalClient, cfg RedisConfig, logger *logging.Logger) *Redis {
	if logger == nil {
		logger = logging.Default()
	}
	prefix := strings.TrimSpace(cfg.KeyPrefix)
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{
		client:    client,
		keyPrefix: prefix,
		ttl:       ttl,
		logger:    logger,
	}
}

func (r *Redis) TryLock(ctx context.Context, key string) (func(), bool, error) {
	fullKey := r.keyPrefix + strings.TrimSpace(key)
	token := uuid.NewString()

	acquired, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire run lock key=%s: %w", fullKey, err)
	}
	if !acquired {
		return nil, false, nil
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, r.client, []string{fullKey}, token).Err(); err != nil {
			r.logger.WarnContext(releaseCtx, "release run lock failed", "key", fullKey, "error", err)
		}
	}, true, nil
}
