package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/api"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/config"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/metrics"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/services"
)

func main() {
	// A missing .env is fine; the environment and config.yaml still apply.
	_ = godotenv.Load()

	app := fx.New(
		// Configuration
		fx.Provide(config.NewConfig),

		// Logging
		fx.Provide(NewLogger),

		// Storage
		fx.Provide(services.NewKVStore),

		// Metrics
		fx.Provide(NewMetricsCollector),

		// Services
		fx.Provide(services.NewServiceContainer),

		// API
		fx.Provide(NewGinEngine),
		fx.Provide(NewTrustHandler),
		fx.Provide(NewHealthHandler),

		// HTTP Server
		fx.Provide(NewHTTPServer),

		// Lifecycle
		fx.Invoke(RegisterRoutes),
		fx.Invoke(ManageServices),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging level %q: %w", cfg.Logging.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Logging.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Logging.Encoding != "" {
		zapCfg.Encoding = cfg.Logging.Encoding
	}

	return zapCfg.Build()
}

func NewMetricsCollector(cfg *config.Config, logger *zap.Logger) *metrics.MetricsCollector {
	return metrics.NewMetricsCollector(&cfg.Metrics, logger)
}

func NewGinEngine(cfg *config.Config, collector *metrics.MetricsCollector) *gin.Engine {
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.Use(api.CORSMiddleware())
	engine.Use(api.MetricsMiddleware(collector))

	return engine
}

func NewTrustHandler(container *services.ServiceContainer, logger *zap.Logger) *api.TrustHandler {
	return api.NewTrustHandler(
		container.Engine,
		container.SenderTrust,
		container.CallTrust,
		container.AuditLogger,
		logger.Named("api"),
	)
}

func NewHealthHandler(container *services.ServiceContainer, collector *metrics.MetricsCollector, logger *zap.Logger) *api.HealthHandler {
	return api.NewHealthHandler(container, collector, logger)
}

func NewHTTPServer(cfg *config.Config, engine *gin.Engine) *http.Server {
	return &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        engine,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
}

func RegisterRoutes(
	cfg *config.Config,
	engine *gin.Engine,
	trustHandler *api.TrustHandler,
	healthHandler *api.HealthHandler,
	collector *metrics.MetricsCollector,
) {
	// Health endpoints
	engine.GET("/health", healthHandler.Health)
	engine.GET("/health/ready", healthHandler.Ready)
	engine.GET("/health/live", healthHandler.Live)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		engine.GET(cfg.Metrics.Path, gin.WrapH(collector.Handler()))
	}

	// API v1 routes
	trustHandler.Register(engine.Group("/api/v1"))
}

// ManageServices opens the trust stores before the server starts and closes
// them, together with the storage backend, after it stops.
func ManageServices(lc fx.Lifecycle, container *services.ServiceContainer) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return container.Open(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return container.Close(ctx)
		},
	})
}

func StartServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	server *http.Server,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting OTP Shield trust engine",
				zap.String("addr", server.Addr),
				zap.String("storage_driver", cfg.Storage.Driver))

			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal("Failed to start server", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down OTP Shield trust engine")

			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()

			return server.Shutdown(shutdownCtx)
		},
	})
}
