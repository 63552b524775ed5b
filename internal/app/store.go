package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"

	"github.com/imsebeom/ai-survey/internal/cache"
	"github.com/imsebeom/ai-survey/internal/config"
	"github.com/imsebeom/ai-survey/internal/repository"
)

// StoreModule provides the document store, the session store and the stats cache
var StoreModule = fx.Provide(
	provideRepositories,
	provideRedis,
	provideSessionStore,
	provideStatsCache,
)

// Repositories are the two document collections
type Repositories struct {
	fx.Out

	Surveys   repository.SurveyRepo
	Responses repository.ResponseRepository
}

func provideRepositories(lc fx.Lifecycle, cfg *config.Config, log logrus.FieldLogger) (Repositories, error) {
	if cfg.Storage == config.DriverMemory {
		log.Warn("Using in-memory storage; surveys and responses are lost on restart")
		return Repositories{
			Surveys:   repository.NewMemorySurveyRepo(),
			Responses: repository.NewMemoryResponseRepo(),
		}, nil
	}

	client, err := mongo.Connect(context.Background(), options.Client().
		ApplyURI(cfg.Mongo.URI).
		SetConnectTimeout(cfg.Mongo.ConnectTimeout))
	if err != nil {
		return Repositories{}, fmt.Errorf("connect to MongoDB: %w", err)
	}
	db := client.Database(cfg.Mongo.Database)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx, nil); err != nil {
				return fmt.Errorf("ping MongoDB: %w", err)
			}
			if err := repository.EnsureResponseIndexes(ctx, db); err != nil {
				return fmt.Errorf("create response indexes: %w", err)
			}
			log.WithField("database", cfg.Mongo.Database).Info("Connected to MongoDB")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})

	return Repositories{
		Surveys:   repository.NewSurveyRepo(db),
		Responses: repository.NewResponseRepository(db),
	}, nil
}

// provideRedis returns nil when no component is configured to use Redis
func provideRedis(lc fx.Lifecycle, cfg *config.Config, log logrus.FieldLogger) (*redis.Client, error) {
	if !cfg.UsesRedis() {
		return nil, nil
	}

	rdb, err := newRedisClient(cfg.Redis.Addr)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping Redis: %w", err)
			}
			log.WithField("addr", rdb.Options().Addr).Info("Connected to Redis")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return rdb.Close()
		},
	})
	return rdb, nil
}

// newRedisClient accepts host:port or a redis:// URL
func newRedisClient(addr string) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse Redis URL: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

func provideSessionStore(cfg *config.Config, rdb *redis.Client) cache.SessionStore {
	if rdb == nil {
		return cache.NewMemorySessionStore(cfg.Interview.SessionTTL)
	}
	return cache.NewSessionCache(rdb, cfg.Interview.SessionTTL)
}

func provideStatsCache(cfg *config.Config, rdb *redis.Client) cache.StatsCache {
	if rdb == nil {
		return cache.NewMemoryStatsCache(cfg.Stats.CacheTTL)
	}
	return cache.NewStatsCache(rdb, cfg.Stats.CacheTTL)
}
