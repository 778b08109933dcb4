// Package cache mirrors live voice sessions into Redis so other Dexter
// services can see who is connected.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/EasterCompany/dex-voice-bridge/config"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "dex-voice-bridge:"

// ClientsKey is the hash of live client ids to their connect time.
const ClientsKey = keyPrefix + "clients"

type DB struct {
	rdb *redis.Client
}

// New connects to Redis. It returns nil, nil when no address is configured.
func New(ctx context.Context, cfg config.ConnectionConfig) (*DB, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to cache at %s: %w", cfg.Addr, err)
	}
	return &DB{rdb: rdb}, nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.rdb.Ping(ctx).Err()
}

func (db *DB) Close() error {
	return db.rdb.Close()
}

// Add records a live client.
func (db *DB) Add(ctx context.Context, id string) error {
	return db.rdb.HSet(ctx, ClientsKey, id, time.Now().UTC().Format(time.RFC3339)).Err()
}

// Remove forgets a client.
func (db *DB) Remove(ctx context.Context, id string) error {
	return db.rdb.HDel(ctx, ClientsKey, id).Err()
}

// Clients returns the recorded clients and their connect times.
func (db *DB) Clients(ctx context.Context) (map[string]string, error) {
	clients, err := db.rdb.HGetAll(ctx, ClientsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("could not read clients: %w", err)
	}
	return clients, nil
}

// Reset drops entries left behind by a previous process.
func (db *DB) Reset(ctx context.Context) error {
	return db.rdb.Del(ctx, ClientsKey).Err()
}
