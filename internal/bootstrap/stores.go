// Package bootstrap opens the stores shared by the pipeline and the status API.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	drv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/user/listing-pipeline/internal/adapter/mongo"
	"github.com/user/listing-pipeline/internal/adapter/postgres"
	"github.com/user/listing-pipeline/internal/delivery/http/handler"
	"github.com/user/listing-pipeline/pkg/config"
)

type Stores struct {
	Mongo    *drv.Client
	Database *drv.Database
	Redis    *redis.Client
	Postgres *pgxpool.Pool
}

// OpenStores connects to every store and closes what was opened if any
// connection fails.
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	s := &Stores{}

	pg, err := postgres.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, err
	}
	s.Postgres = pg
	logger.Info("PostgreSQL connection pool established")

	if cfg.MigrationsDir != "" {
		if err := postgres.Migrate(ctx, pg, cfg.MigrationsDir); err != nil {
			s.Close(ctx)
			return nil, err
		}
		logger.Info("PostgreSQL migrations applied", zap.String("dir", cfg.MigrationsDir))
	}

	s.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := s.Redis.Ping(ctx).Err(); err != nil {
		s.Close(ctx)
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}
	logger.Info("Redis connection established", zap.String("addr", cfg.RedisAddr))

	client, err := mongo.Connect(ctx, cfg.MongoURI)
	if err != nil {
		s.Close(ctx)
		return nil, err
	}
	s.Mongo = client
	s.Database = client.Database(cfg.MongoDatabase)
	logger.Info("MongoDB connection established", zap.String("database", cfg.MongoDatabase))

	return s, nil
}

func (s *Stores) Close(ctx context.Context) {
	if s.Mongo != nil {
		_ = s.Mongo.Disconnect(ctx)
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.Postgres != nil {
		s.Postgres.Close()
	}
}

// HealthChecks exposes one ping per store for the status API.
func (s *Stores) HealthChecks() map[string]handler.HealthCheck {
	return map[string]handler.HealthCheck{
		"mongo": func(ctx context.Context) error {
			return s.Mongo.Ping(ctx, readpref.Primary())
		},
		"redis": func(ctx context.Context) error {
			return s.Redis.Ping(ctx).Err()
		},
		"postgres": func(ctx context.Context) error {
			return s.Postgres.Ping(ctx)
		},
	}
}
