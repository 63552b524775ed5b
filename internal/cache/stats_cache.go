package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/imsebeom/ai-survey/internal/model"
)

// StatsCache holds aggregated dashboard stats until the next submission for the survey
type StatsCache interface {
	// Get returns nil, nil on a miss
	Get(ctx context.Context, surveyID string) (*model.SurveyStats, error)
	// Generation changes on every Invalidate of the survey
	Generation(ctx context.Context, surveyID string) (int64, error)
	// Set stores stats computed at generation. It is a no-op when the survey
	// was invalidated after that generation was read.
	Set(ctx context.Context, stats *model.SurveyStats, generation int64) error
	Invalidate(ctx context.Context, surveyID string) error
}

type statsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache creates a Redis-backed stats cache
func NewStatsCache(client *redis.Client, ttl time.Duration) StatsCache {
	return &statsCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *statsCache) key(surveyID string) string {
	return fmt.Sprintf("survey:%s:stats", surveyID)
}

func (c *statsCache) genKey(surveyID string) string {
	return fmt.Sprintf("survey:%s:stats:gen", surveyID)
}

func (c *statsCache) Get(ctx context.Context, surveyID string) (*model.SurveyStats, error) {
	data, err := c.client.Get(ctx, c.key(surveyID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stats model.SurveyStats
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *statsCache) Generation(ctx context.Context, surveyID string) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey(surveyID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

func (c *statsCache) Set(ctx context.Context, stats *model.SurveyStats, generation int64) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	genKey := c.genKey(stats.SurveyID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(stats.SurveyID), data, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil // invalidated while writing
	}
	return err
}

func (c *statsCache) Invalidate(ctx context.Context, surveyID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey(surveyID))
		pipe.Del(ctx, c.key(surveyID))
		return nil
	})
	return err
}

// MemoryStatsCache is the in-process StatsCache
type MemoryStatsCache struct {
	mu   sync.RWMutex
	ttl  time.Duration
	data map[string]statsEntry
	gens map[string]int64
}

type statsEntry struct {
	stats     model.SurveyStats
	expiresAt time.Time
}

func NewMemoryStatsCache(ttl time.Duration) *MemoryStatsCache {
	return &MemoryStatsCache{
		ttl:  ttl,
		data: make(map[string]statsEntry),
		gens: make(map[string]int64),
	}
}

func (c *MemoryStatsCache) Get(ctx context.Context, surveyID string) (*model.SurveyStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[surveyID]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, nil
	}
	stats := e.stats
	return &stats, nil
}

func (c *MemoryStatsCache) Generation(ctx context.Context, surveyID string) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[surveyID], nil
}

func (c *MemoryStatsCache) Set(ctx context.Context, stats *model.SurveyStats, generation int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[stats.SurveyID] != generation {
		return nil
	}
	c.data[stats.SurveyID] = statsEntry{stats: *stats, expiresAt: time.Now().Add(c.ttl)}
	return nil
}

func (c *MemoryStatsCache) Invalidate(ctx context.Context, surveyID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[surveyID]++
	delete(c.data, surveyID)
	return nil
}
