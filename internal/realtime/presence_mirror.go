package realtime

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const DefaultPresenceKey = "presence:online"

// PresenceMirror publishes the online set outside the process.
type PresenceMirror interface {
	Online(ctx context.Context, userID string) error
	Offline(ctx context.Context, userID string) error
}

// RedisPresence keeps a Redis set in step with the registry.
type RedisPresence struct {
	client *redis.Client
	key    string
}

func NewRedisPresence(client *redis.Client, key string) *RedisPresence {
	if key == "" {
		key = DefaultPresenceKey
	}
	return &RedisPresence{client: client, key: key}
}

func (p *RedisPresence) Online(ctx context.Context, userID string) error {
	return p.client.SAdd(ctx, p.key, userID).Err()
}

func (p *RedisPresence) Offline(ctx context.Context, userID string) error {
	return p.client.SRem(ctx, p.key, userID).Err()
}

// Members returns the mirrored online set.
func (p *RedisPresence) Members(ctx context.Context) ([]string, error) {
	return p.client.SMembers(ctx, p.key).Result()
}

// Reset clears entries left over from a previous process.
func (p *RedisPresence) Reset(ctx context.Context) error {
	return p.client.Del(ctx, p.key).Err()
}
