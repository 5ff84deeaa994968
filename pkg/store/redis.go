// redis.go — Template slot backed by a Redis key.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/xob0t/CardStencil/internal/logging"
	"github.com/xob0t/CardStencil/pkg/template"
)

// ActiveTemplateKey holds the active template JSON.
const ActiveTemplateKey = "cardstencil:template:active"

// RedisStore keeps the active template under ActiveTemplateKey.
type RedisStore struct {
	client *redis.Client
	key    string
}

var _ TemplateStore = (*RedisStore)(nil)

// RedisOptions addresses the Redis server.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// OpenRedis connects and pings the server.
func OpenRedis(ctx context.Context, o RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     o.Addr,
		Password: o.Password,
		DB:       o.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", o.Addr, err)
	}
	logging.Logger().Info("redis template store connected", "addr", o.Addr, "db", o.DB)
	return &RedisStore{client: client, key: ActiveTemplateKey}, nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Load(ctx context.Context) (*template.Template, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load template %s: %w", s.key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", s.key, err)
	}
	return template.Parse(data)
}

func (s *RedisStore) Save(ctx context.Context, t *template.Template) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("save template %s: %w", s.key, err)
	}
	return nil
}
