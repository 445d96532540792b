package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"story-maker/internal/builder"
	"story-maker/internal/config"
	"story-maker/internal/database"
	"story-maker/internal/handler"
	"story-maker/internal/importer"
	"story-maker/internal/logger"
	"story-maker/internal/messaging"
	"story-maker/internal/metrics"
	"story-maker/internal/middleware"
	"story-maker/internal/repository"
	"story-maker/internal/service"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding, Service: "story-server"})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Starting story server",
		zap.String("storage", cfg.StorageDriver),
		zap.Bool("redis", cfg.RedisURL != ""),
		zap.Bool("sync", cfg.RabbitMQURL != ""),
	)

	ctx := context.Background()

	// --- Stories ---
	var stories repository.StoryRepository
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := database.Connect(ctx, database.PoolConfig{
			DSN:         cfg.GetDSN(),
			MaxConns:    cfg.DBMaxConns,
			IdleTimeout: cfg.DBIdleTimeout,
		}, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
		}
		defer pool.Close()
		if err := database.ApplyMigrations(pool, zapLogger); err != nil {
			zapLogger.Fatal("Failed to apply migrations", zap.Error(err))
		}
		stories = repository.NewPgStoryRepository(pool, zapLogger)
	default:
		zapLogger.Warn("Using in-memory story storage; stories are lost on restart")
		stories = repository.NewMemoryStoryRepository()
	}

	// --- Drafts and play sessions ---
	var drafts repository.DraftRepository
	var sessions repository.PlaySessionRepository
	if cfg.RedisURL != "" {
		rdb, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer rdb.Close()
		stories = repository.NewCachedStoryRepository(stories, rdb, cfg.StoryCacheTTL, zapLogger)
		drafts = repository.NewRedisDraftRepository(rdb, cfg.SessionTTL, zapLogger)
		sessions = repository.NewRedisPlaySessionRepository(rdb, cfg.SessionTTL, zapLogger)
	} else {
		drafts = repository.NewMemoryDraftRepository(cfg.SessionTTL)
		sessions = repository.NewMemoryPlaySessionRepository(cfg.SessionTTL)
	}

	// --- Sync events ---
	var publisher messaging.SyncPublisher = messaging.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		conn, err := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer conn.Close()
		p, closeChannel, err := messaging.NewRabbitMQSyncPublisher(conn, cfg.StorySyncQueue, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to create sync publisher", zap.Error(err))
		}
		defer closeChannel()
		publisher = p
	}

	// --- Owner tokens ---
	var verifier *middleware.JWTVerifier
	if cfg.JWTSecret != "" {
		verifier, err = middleware.NewJWTVerifier(cfg.JWTSecret, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to create JWT verifier", zap.Error(err))
		}
	} else {
		zapLogger.Info("No JWT secret configured; all requests are anonymous")
	}

	editor := service.NewEditorService(drafts, zapLogger, builder.WithDefaultTheme(cfg.DefaultTheme))
	imp := importer.New(importer.WithTheme(cfg.DefaultTheme), importer.WithMaxNodes(cfg.ImportMaxNodes))
	library := service.NewLibraryService(stories, editor, imp, publisher, zapLogger)
	playerService := service.NewPlayerService(stories, sessions, editor, cfg.RevealInterval, zapLogger)
	storyHandler := handler.NewStoryHandler(editor, library, playerService, verifier, zapLogger)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.EchoZapLogger(zapLogger))
	e.Use(echoMiddleware.Recover())
	e.Use(metrics.EchoMiddleware())
	e.Use(echoMiddleware.BodyLimit("12M"))
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{echo.HeaderContentDisposition},
	}))
	storyHandler.RegisterRoutes(e)

	go func() {
		zapLogger.Info("HTTP server listening", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Graceful shutdown failed", zap.Error(err))
	}
	zapLogger.Info("Story server stopped")
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func connectRabbitMQ(url string, zl *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		zl.Warn("Failed to connect to RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, err
}
