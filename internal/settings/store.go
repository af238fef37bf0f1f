package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mbehrens/kalle-tracker/pkg/config"
)

const settingsKey = "tracker:settings"

// Store holds the settings snapshot in Redis with a short in-process
// cache. Get serves the cache until it expires or Reload is called.
type Store struct {
	redis    *redis.Client
	defaults Settings

	mu         sync.RWMutex
	cached     *Settings
	lastLoad   time.Time
	cacheValid time.Duration
}

// NewStore creates a settings store. cfg supplies the defaults written to
// Redis when no snapshot exists yet.
func NewStore(redisClient *redis.Client, cfg *config.TrackerConfig) *Store {
	return &Store{
		redis:      redisClient,
		defaults:   DefaultsFromConfig(cfg),
		cacheValid: time.Minute,
	}
}

// DefaultsFromConfig builds a Settings snapshot from env configuration.
func DefaultsFromConfig(cfg *config.TrackerConfig) Settings {
	s := Settings{
		MorningWalkTime:   cfg.MorningWalkTime,
		WalkIntervalHours: cfg.WalkIntervalHours,
		SleepStartHour:    cfg.SleepStartHour,
		SleepEndHour:      cfg.SleepEndHour,
		CountdownMode:     CountdownMode(cfg.CountdownMode),
	}
	if cfg.Birthday != "" {
		if bday, err := time.Parse("2006-01-02", cfg.Birthday); err == nil {
			s.Birthday = &bday
		}
	}
	return s
}

// Get returns the current settings snapshot, loading from Redis when the
// in-process cache has expired. Missing snapshot falls back to defaults.
func (st *Store) Get(ctx context.Context) (Settings, error) {
	st.mu.RLock()
	if st.cached != nil && time.Since(st.lastLoad) < st.cacheValid {
		s := *st.cached
		st.mu.RUnlock()
		return s, nil
	}
	st.mu.RUnlock()

	return st.Reload(ctx)
}

// Reload bypasses the cache and fetches the snapshot from Redis.
func (st *Store) Reload(ctx context.Context) (Settings, error) {
	data, err := st.redis.Get(ctx, settingsKey).Result()
	if err == redis.Nil {
		// First start: persist the defaults so the phone client and all
		// services agree on one snapshot.
		if err := st.Save(ctx, st.defaults); err != nil {
			return st.defaults, err
		}
		return st.defaults, nil
	}
	if err != nil {
		return st.defaults, fmt.Errorf("failed to get settings from Redis: %w", err)
	}

	var s Settings
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return st.defaults, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	st.mu.Lock()
	st.cached = &s
	st.lastLoad = time.Now()
	st.mu.Unlock()

	return s, nil
}

// Save persists a new snapshot and refreshes the in-process cache.
func (st *Store) Save(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := st.redis.Set(ctx, settingsKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set settings in Redis: %w", err)
	}

	st.mu.Lock()
	st.cached = &s
	st.lastLoad = time.Now()
	st.mu.Unlock()

	return nil
}
