package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/redis/go-redis/v9"
)

// SlotCache keeps computed slot grids for a short TTL. It is advisory only:
// allocation always re-validates against the database.
type SlotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func NewSlotCache(rdb *redis.Client, ttl time.Duration) *SlotCache {
	return &SlotCache{rdb: rdb, ttl: ttl}
}

// Get looks up the grid under the caregiver's current generation. The
// returned key pins that generation; pass it to Set so a grid computed
// across an invalidation is never stored where later reads would find it.
// key is empty only when the generation could not be read.
func (c *SlotCache) Get(ctx context.Context, caregiverID string, from, to time.Time, slotMinutes int) ([]models.Slot, string, bool, error) {
	key, err := c.key(ctx, caregiverID, from, to, slotMinutes)
	if err != nil {
		return nil, "", false, err
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, key, false, nil
	}
	if err != nil {
		return nil, key, false, err
	}
	var slots []models.Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, key, false, err
	}
	return slots, key, true, nil
}

func (c *SlotCache) Set(ctx context.Context, key string, slots []models.Slot) error {
	raw, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate bumps the caregiver's generation so every cached grid for them
// becomes unreachable and expires on its own.
func (c *SlotCache) Invalidate(ctx context.Context, caregiverID string) error {
	return c.rdb.Incr(ctx, VersionKey(caregiverID)).Err()
}

func (c *SlotCache) key(ctx context.Context, caregiverID string, from, to time.Time, slotMinutes int) (string, error) {
	ver, err := c.rdb.Get(ctx, VersionKey(caregiverID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return SlotKey(caregiverID, ver, from, to, slotMinutes), nil
}

func VersionKey(caregiverID string) string {
	return "slots:" + caregiverID + ":ver"
}

func SlotKey(caregiverID string, version int64, from, to time.Time, slotMinutes int) string {
	return fmt.Sprintf("slots:%s:v%d:%d:%d:%d", caregiverID, version, from.UTC().Unix(), to.UTC().Unix(), slotMinutes)
}
