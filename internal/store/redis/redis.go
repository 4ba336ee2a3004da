// Package redis is the key-value storage backend. Subscriptions lean on
// native key expiry for their TTL, enumeration is a SCAN walk, and stats use
// hash increments. Transient server hiccups are absorbed by a short
// fibonacci-backoff retry around every operation.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

const (
	subKeyPrefix   = "sub:"
	prefsKeyPrefix = "prefs:"
	dedupKeyPrefix = "dedup:"
	inboxKeyPrefix = "inbox:"
	statsKeyPrefix = "stats:"

	retryAttempts  = 2
	retryBaseDelay = 100 * time.Millisecond
)

// Store implements every storage contract over one Redis client.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

func New(client *redis.Client, logger *slog.Logger) *Store {
	return &Store{client: client, logger: logger}
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func subKey(endpointKey string) string { return subKeyPrefix + endpointKey }
func prefsKey(userID string) string    { return prefsKeyPrefix + userID }
func inboxKey(userID string) string    { return inboxKeyPrefix + userID }
func statsKey(day string) string       { return statsKeyPrefix + day }

func dedupKey(userID, eventID string) string {
	return dedupKeyPrefix + userID + ":" + eventID
}

// withRetry runs op with bounded backoff. A key miss (redis.Nil) is a result,
// not a failure, and is returned immediately.
func (s *Store) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(retryAttempts, retry.NewFibonacci(retryBaseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if err == nil || errors.Is(err, redis.Nil) {
			return err
		}
		return retry.RetryableError(err)
	})
}
