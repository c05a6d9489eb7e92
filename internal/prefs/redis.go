package prefs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adamancini/nudge/internal/provider"
)

// DefaultRedisPrefix is the key prefix for preference hashes.
const DefaultRedisPrefix = "nudge:prefs"

// Hash fields
const (
	fieldLastCheck   = "last_check_time"
	fieldRemindLater = "remind_later_time"
	fieldDismiss     = "dismiss_count"
	fieldShown       = "last_shown_version"
	fieldAutoUpdate  = "auto_update_enabled"
)

// RedisStore keeps one installation's preferences in a Redis hash at
// <prefix>:<installationID>.
type RedisStore struct {
	client    *redis.Client
	key       string
	installID string
	owned     bool
}

// NewRedisStore creates a store over an existing client. The caller keeps
// ownership of the client.
func NewRedisStore(client *redis.Client, prefix, installID string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		client:    client,
		key:       prefix + ":" + installID,
		installID: installID,
	}
}

// NewRedisStoreFromURL dials Redis from a URL.
// URL format: redis://[:password@]host:port[/db]
// The store closes the client on Dispose.
func NewRedisStoreFromURL(redisURL, prefix, installID string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	s := NewRedisStore(redis.NewClient(opts), prefix, installID)
	s.owned = true
	return s, nil
}

// Key returns the hash key for this installation.
func (s *RedisStore) Key() string {
	return s.key
}

// Initialize verifies the connection.
func (s *RedisStore) Initialize(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Dispose closes the client if the store dialed it. Repeated calls are no-ops.
func (s *RedisStore) Dispose(ctx context.Context) error {
	if !s.owned {
		return nil
	}
	s.owned = false
	return s.client.Close()
}

func (s *RedisStore) getTime(ctx context.Context, field string) (time.Time, bool, error) {
	ms, err := s.client.HGet(ctx, s.key, field).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis hget %s: %w", field, err)
	}
	return time.UnixMilli(ms), true, nil
}

func (s *RedisStore) set(ctx context.Context, field string, value any) error {
	if err := s.client.HSet(ctx, s.key, field, value).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", field, err)
	}
	return nil
}

func (s *RedisStore) LastCheckTime(ctx context.Context) (time.Time, bool, error) {
	return s.getTime(ctx, fieldLastCheck)
}

func (s *RedisStore) SetLastCheckTime(ctx context.Context, t time.Time) error {
	return s.set(ctx, fieldLastCheck, t.UnixMilli())
}

func (s *RedisStore) RemindLaterTime(ctx context.Context) (time.Time, bool, error) {
	return s.getTime(ctx, fieldRemindLater)
}

func (s *RedisStore) SetRemindLaterTime(ctx context.Context, t time.Time) error {
	return s.set(ctx, fieldRemindLater, t.UnixMilli())
}

func (s *RedisStore) ClearRemindLaterTime(ctx context.Context) error {
	if err := s.client.HDel(ctx, s.key, fieldRemindLater).Err(); err != nil {
		return fmt.Errorf("redis hdel %s: %w", fieldRemindLater, err)
	}
	return nil
}

func (s *RedisStore) DismissCount(ctx context.Context) (int, error) {
	n, err := s.client.HGet(ctx, s.key, fieldDismiss).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis hget %s: %w", fieldDismiss, err)
	}
	return n, nil
}

func (s *RedisStore) IncrementDismissCount(ctx context.Context) error {
	if err := s.client.HIncrBy(ctx, s.key, fieldDismiss, 1).Err(); err != nil {
		return fmt.Errorf("redis hincrby %s: %w", fieldDismiss, err)
	}
	return nil
}

func (s *RedisStore) LastShownVersion(ctx context.Context) (string, error) {
	v, err := s.client.HGet(ctx, s.key, fieldShown).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis hget %s: %w", fieldShown, err)
	}
	return v, nil
}

func (s *RedisStore) SetLastShownVersion(ctx context.Context, v string) error {
	return s.set(ctx, fieldShown, v)
}

func (s *RedisStore) AutoUpdateEnabled(ctx context.Context) (bool, error) {
	v, err := s.client.HGet(ctx, s.key, fieldAutoUpdate).Bool()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis hget %s: %w", fieldAutoUpdate, err)
	}
	return v, nil
}

func (s *RedisStore) SetAutoUpdateEnabled(ctx context.Context, enabled bool) error {
	return s.set(ctx, fieldAutoUpdate, strconv.FormatBool(enabled))
}

func (s *RedisStore) AllPreferences(ctx context.Context) (provider.Preferences, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return provider.Preferences{}, fmt.Errorf("redis hgetall: %w", err)
	}
	return parseHash(fields, s.installID)
}

// parseHash converts the stored hash into a Preferences snapshot.
func parseHash(fields map[string]string, installID string) (provider.Preferences, error) {
	prefs := provider.Preferences{InstallationID: installID}

	parseMillis := func(field string) (*int64, error) {
		raw, ok := fields[field]
		if !ok {
			return nil, nil
		}
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", field, raw, err)
		}
		return &ms, nil
	}

	var err error
	if prefs.LastCheckTime, err = parseMillis(fieldLastCheck); err != nil {
		return prefs, err
	}
	if prefs.RemindLaterTime, err = parseMillis(fieldRemindLater); err != nil {
		return prefs, err
	}
	if raw, ok := fields[fieldDismiss]; ok {
		if prefs.DismissCount, err = strconv.Atoi(raw); err != nil {
			return prefs, fmt.Errorf("invalid %s %q: %w", fieldDismiss, raw, err)
		}
	}
	prefs.LastShownVersion = fields[fieldShown]
	if raw, ok := fields[fieldAutoUpdate]; ok {
		if prefs.AutoUpdateEnabled, err = strconv.ParseBool(raw); err != nil {
			return prefs, fmt.Errorf("invalid %s %q: %w", fieldAutoUpdate, raw, err)
		}
	}
	return prefs, nil
}

func (s *RedisStore) ClearAll(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
