package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"wellness-sessions/internal/cache"
	"wellness-sessions/internal/config"
	"wellness-sessions/internal/pkg/logger"
	mysqlClient "wellness-sessions/internal/platform/mysql"
	rabbitmqClient "wellness-sessions/internal/platform/rabbitmq"
	redisClient "wellness-sessions/internal/platform/redis"
	sqliteClient "wellness-sessions/internal/platform/sqlite"
	"wellness-sessions/internal/repository"
	"wellness-sessions/internal/worker"
)

// App owns process-wide resources. Redis and RabbitMQ are nil when disabled
// in config.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	PublishedCache *cache.PublishedCache
	EventPublisher *rabbitmqClient.SessionEventPublisher
	EventWorker    *worker.SessionEventWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return NewWithConfig(ctx, cfg)
}

func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		Config:    cfg,
		Logger:    logger.New(cfg.Log.Level, cfg.Log.Format).With("app", cfg.App.Name, "env", cfg.App.Env),
		StartedAt: time.Now(),
	}
	if err := app.open(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) open(ctx context.Context) error {
	cfg, log := a.Config, a.Logger

	var err error
	a.DB, err = openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	if err := repository.AutoMigrate(a.DB); err != nil {
		return err
	}
	log.Info("database ready", "driver", cfg.Storage.Driver)

	if cfg.Redis.Addr != "" {
		a.Redis, err = redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		a.PublishedCache = cache.NewPublishedCache(a.Redis, time.Duration(cfg.Redis.PublishedTTLSeconds)*time.Second)
		log.Info("published listing cache enabled", "addr", cfg.Redis.Addr)
	} else {
		log.Info("published listing cache disabled")
	}

	if cfg.RabbitMQ.URL == "" {
		log.Info("session events disabled")
		return nil
	}
	a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return err
	}
	a.EventPublisher = rabbitmqClient.NewSessionEventPublisher(a.MQConn, cfg.RabbitMQ.SessionEventQueue)

	eventRepo := repository.NewSessionEventRepository(a.DB)
	a.EventWorker = worker.NewSessionEventWorker(a.MQConn, eventRepo, cfg.RabbitMQ.SessionEventQueue, log)
	if err := a.EventWorker.Start(ctx); err != nil {
		return fmt.Errorf("start session event worker failed: %w", err)
	}
	return nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	switch cfg.Storage.Driver {
	case config.StorageSQLite:
		return sqliteClient.New(ctx, cfg.SQLite.Path)
	case config.StorageMySQL:
		return mysqlClient.New(ctx, cfg.MySQLDSN())
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func (a *App) Close() error {
	var errs []error
	if a.EventWorker != nil {
		a.EventWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close rabbitmq: %w", err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}
