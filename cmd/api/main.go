package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"banter/api/internal/app"
	"banter/api/internal/blob"
	"banter/api/internal/config"
	"banter/api/internal/observ"
	"banter/api/internal/search"
	"banter/api/internal/session"
	"banter/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	dataStore := store.NewPostgresStore(db)

	var images *blob.Store
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		images, err = blob.New(blob.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			UploadTTL: cfg.UploadTTL,
			URLTTL:    cfg.ImageURLTTL,
		})
		if err != nil {
			logger.Fatal("blob store connection failed", zap.Error(err))
		}
		if err := images.EnsureBucket(ctx); err != nil {
			logger.Fatal("blob bucket setup failed", zap.Error(err))
		}
		logger.Info("image uploads enabled", zap.String("bucket", cfg.MinioBucket))
	} else {
		logger.Info("image uploads disabled: no blob store configured")
	}

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		defer meiliClient.Close()
		searchService.ReindexAllFromPG(ctx)
	}

	var service *app.Service
	if strings.TrimSpace(cfg.RedisURL) != "" {
		logger.Info("using Redis for refresh token storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis connection failed", zap.Error(err))
		}
		defer redisStore.Close()
		service = app.NewWithSessionStore(cfg, dataStore, redisStore, searchService, imageStoreOrNil(images))
	} else {
		logger.Info("using PostgreSQL for refresh token storage")
		service = app.New(cfg, dataStore, searchService, imageStoreOrNil(images))
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("Banter API listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

// imageStoreOrNil keeps a nil *blob.Store from turning into a non-nil
// interface value inside the service.
func imageStoreOrNil(images *blob.Store) app.ImageStore {
	if images == nil {
		return nil
	}
	return images
}
