package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/cache"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/config"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/metrics"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/ml"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/monitoring"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/repository"
)

// ServiceContainer holds all service dependencies
type ServiceContainer struct {
	Config           *config.Config
	Logger           *zap.Logger
	Store            repository.KVStore
	Classifier       *ml.MessageClassifier
	MetricsCollector *metrics.MetricsCollector
	AuditLogger      *monitoring.AuditLogger
	SenderTrust      *SenderTrustService
	CallTrust        *CallTrustService
	Engine           *MessageRiskEngine
}

// NewKVStore opens the storage backend selected by storage.driver
func NewKVStore(cfg *config.Config, logger *zap.Logger) (repository.KVStore, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		logger.Info("using in-memory trust storage; state is lost on restart")
		return repository.NewMemoryStore(), nil

	case config.StorageSQLite:
		return repository.NewSQLiteStore(cfg.Storage.SQLitePath, logger)

	case config.StoragePostgres:
		pool, err := repository.NewPostgresDB(&cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.Timeout)
		defer cancel()
		store, err := repository.NewPostgresStore(ctx, pool, cfg.Database.Table, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil

	case config.StorageRedis:
		client, err := cache.NewRedisClient(&cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisStore(client, cfg.Redis.KeyPrefix, logger), nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// NewServiceContainer creates a fully configured service container over store
func NewServiceContainer(
	cfg *config.Config,
	store repository.KVStore,
	metricsCollector *metrics.MetricsCollector,
	logger *zap.Logger,
) *ServiceContainer {
	container := &ServiceContainer{
		Config:           cfg,
		Logger:           logger,
		Store:            store,
		MetricsCollector: metricsCollector,
	}

	container.AuditLogger = monitoring.NewAuditLogger(logger)
	container.Classifier = ml.NewMessageClassifier(logger)

	container.SenderTrust = NewSenderTrustService(
		store,
		ml.HashSignals{},
		metricsCollector,
		container.AuditLogger,
		logger.Named("sender_trust"),
	)
	container.SenderTrust.store.timeout = cfg.Storage.Timeout

	container.CallTrust = NewCallTrustService(
		store,
		container.SenderTrust,
		CallTrustOptions{
			RatingCooldown: cfg.Scoring.RatingCooldown,
			DefaultUserID:  cfg.Scoring.DefaultUserID,
			DefaultRegion:  cfg.Phone.DefaultRegion,
		},
		metricsCollector,
		container.AuditLogger,
		logger.Named("call_trust"),
	)
	container.CallTrust.store.timeout = cfg.Storage.Timeout

	// Sender and location simulation share a seed so a configured run is reproducible.
	container.Engine = NewMessageRiskEngine(
		container.Classifier,
		ml.NewRandomLocationProvider(cfg.Scoring.SimulateSeed),
		ml.NewRandomSenderSource(cfg.Scoring.TrustedSenders, cfg.Scoring.SimulateSeed),
		container.SenderTrust,
		MessageEngineOptions{
			TrustedSenders: cfg.Scoring.TrustedSenders,
			DefaultDevice:  cfg.Scoring.DefaultDevice,
		},
		metricsCollector,
		container.AuditLogger,
		logger.Named("message_engine"),
	)

	logger.Info("service container initialized",
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Int("trusted_senders", len(cfg.Scoring.TrustedSenders)),
		zap.Duration("rating_cooldown", cfg.Scoring.RatingCooldown))

	return container
}

// Open loads persisted trust state into both stores
func (c *ServiceContainer) Open(ctx context.Context) error {
	if err := c.SenderTrust.Open(ctx); err != nil {
		return fmt.Errorf("failed to open sender trust store: %w", err)
	}
	if err := c.CallTrust.Open(ctx); err != nil {
		return fmt.Errorf("failed to open call trust store: %w", err)
	}
	return nil
}

// Ping checks the storage backend
func (c *ServiceContainer) Ping(ctx context.Context) error {
	return c.Store.Ping(ctx)
}

// Close gracefully shuts down all services in the container
func (c *ServiceContainer) Close(ctx context.Context) error {
	var errors []error

	if err := c.CallTrust.Close(ctx); err != nil {
		errors = append(errors, err)
	}
	if err := c.SenderTrust.Close(ctx); err != nil {
		errors = append(errors, err)
	}
	if err := c.AuditLogger.Close(); err != nil {
		errors = append(errors, err)
	}
	if err := c.Store.Close(); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return errors[0] // Return first error
	}

	c.Logger.Info("service container closed successfully")
	return nil
}
