package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tabletop_session/internal/api"
	"tabletop_session/internal/events"
	"tabletop_session/internal/limiter"
	"tabletop_session/internal/middleware"
	"tabletop_session/internal/models"
	"tabletop_session/internal/repository"
	"tabletop_session/internal/repository/memory"
	"tabletop_session/internal/service"
	"tabletop_session/internal/storage"
	"tabletop_session/internal/utils"
	"tabletop_session/pkg/config"
)

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

// run serves until a signal or a listen error and closes every resource it opened.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, closeStore, err := openStore(cfg.DB)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := service.Options{
		JWT:        utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TTL),
		BcryptCost: cfg.Room.BcryptCost,
	}

	// Redis backs rate limiting and the join password attempt counter.
	var rateLimiter middleware.Allower
	if cfg.Redis.Enabled {
		rdb, err := storage.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer closeRedis(rdb)

		rateLimiter = limiter.NewManager(rdb, limiter.FixedWindowStrategy{})
		opts.Attempts = limiter.NewPasswordAttempts(rdb, cfg.Room.MaxPasswordAttempts, cfg.Room.PasswordAttemptWindow)
	}

	if cfg.Kafka.Enabled {
		publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close kafka producer")
			}
		}()
		opts.Publisher = publisher
	}

	services := service.NewServices(repos, opts)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	api.SetupRoutes(r, services, opts.JWT, rateLimiter, cfg.RateLimit)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Address).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-serveErr:
		runErr = fmt.Errorf("run server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	// Hijacked websocket connections are not tracked by http.Server.
	services.WebSocket.Shutdown()
	return runErr
}

func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func openStore(cfg config.DBConfig) (*repository.Repositories, func(), error) {
	if cfg.Driver == "memory" {
		log.Warn().Msg("using in-memory store; data is lost on exit")
		return memory.NewStore().Repositories(), func() {}, nil
	}

	db, err := storage.NewPostgresDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize database: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.RoomParticipant{},
		&models.ChatMessage{},
		&models.Token{},
	); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("auto migrate database: %w", err)
	}

	return repository.NewRepositories(db), closeDB, nil
}

func closeRedis(rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close redis")
	}
}
