package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"phFolio/internal/api"
	"phFolio/internal/auth"
	"phFolio/internal/config"
	"phFolio/internal/database"
	"phFolio/internal/render"
	"phFolio/internal/storage"
	"phFolio/internal/theme"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	logger.Info("api bootstrapped",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
		slog.String("sslmode", cfg.Database.SSLMode),
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	logger.Info("database migrated")

	verifier, err := auth.LoadVerifier(cfg.Auth.PublicKeyPath, cfg.Auth.Issuer)
	if err != nil {
		log.Fatalf("load token verifier: %v", err)
	}

	catalog, err := theme.Load(cfg.Theme.CatalogPath, cfg.Theme.DefaultID)
	if err != nil {
		log.Fatalf("load theme catalog: %v", err)
	}
	renderer := render.NewRenderer(theme.NewEngine(catalog))
	logger.Info("theme catalog ready",
		slog.Int("themes", len(catalog.Themes())),
		slog.String("default", catalog.DefaultID()),
	)

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	redisAddr := cfg.Redis.Addr()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	queue := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.Deps{
		Store:      database.NewStore(db),
		Renderer:   renderer,
		Validator:  verifier,
		Queue:      queue,
		Objects:    storageClient,
		Counter:    redisClient,
		Subscriber: redisClient,
		Logger:     logger,
		Config:     cfg,
	})

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("addr", address))
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
