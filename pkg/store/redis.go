package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NuHepMC/ReferenceImplementation/pkg/report"
)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	// Address is the Redis server address (e.g., "localhost:6379")
	Address  string
	Password string
	Database int

	// Prefix is prepended to all report keys
	Prefix string

	// TTL is the lifetime of a stored report (0 = no expiration)
	TTL time.Duration

	Timeout      time.Duration
	PoolSize     int
	MinIdleConns int
}

// DefaultRedisConfig returns sensible defaults.
func DefaultRedisConfig(address string) RedisConfig {
	return RedisConfig{
		Address:      address,
		Prefix:       "nuhepmc:reports:",
		TTL:          7 * 24 * time.Hour,
		Timeout:      5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// Redis stores reports in Redis.
type Redis struct {
	cfg    RedisConfig
	client *redis.Client
}

// NewRedis connects to Redis and checks the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis store needs an address")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Redis{cfg: cfg, client: client}, nil
}

func (b *Redis) key(key string) string {
	return b.cfg.Prefix + key
}

// Save stores the report with the configured TTL.
func (b *Redis) Save(ctx context.Context, key string, r *report.Report) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	data, err := report.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := b.client.Set(ctx, b.key(key), data, b.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("failed to save report to Redis: %w", err)
	}
	return nil
}

// Load reads a stored report.
func (b *Redis) Load(ctx context.Context, key string) (*report.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	data, err := b.client.Get(ctx, b.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report from Redis: %w", err)
	}
	return decode(key, data)
}

// Delete removes a stored report.
func (b *Redis) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()
	return b.client.Del(ctx, b.key(key)).Err()
}

// Close closes the Redis connection pool.
func (b *Redis) Close() error {
	return b.client.Close()
}

// Name returns the backend name.
func (b *Redis) Name() string { return BackendRedis }
