package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "medicine-reminder:"

type Config struct {
	Addr     string
	Password string
	DB       int
}

// Guard reserva claves con SET NX + TTL. Con varias réplicas apuntando al
// mismo store, sólo la que gana la clave envía el aviso.
type Guard struct {
	client *goredis.Client
}

func New(cfg Config) (*Guard, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	return NewWithClient(goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})), nil
}

func NewWithClient(client *goredis.Client) *Guard {
	return &Guard{client: client}
}

func (g *Guard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

func (g *Guard) Ping(ctx context.Context) error {
	if err := g.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (g *Guard) Close() error {
	return g.client.Close()
}
