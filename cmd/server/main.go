package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bookshelf/backend/internal/books"
	"github.com/bookshelf/backend/internal/config"
	"github.com/bookshelf/backend/internal/store"
	"github.com/bookshelf/backend/internal/users"
	"github.com/bookshelf/backend/internal/validation"
	"github.com/bookshelf/backend/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid config", "error", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

// stores is the persistence picked by STORE_DRIVER.
type stores struct {
	users   users.UserStore
	catalog store.Catalog
	close   func()
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	if cfg.StoreDriver == config.DriverSQLite {
		s, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("Using SQLite store", "path", cfg.SQLitePath)
		return &stores{users: s, catalog: s, close: func() { s.Close() }}, nil
	}

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	pgStore := store.NewPostgresStore(pgPool)
	if err := pgStore.Migrate(ctx); err != nil {
		pgPool.Close()
		return nil, err
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		pgPool.Close()
		return nil, err
	}
	mongoStore := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))

	logger.Info("Using PostgreSQL users and MongoDB catalog", "mongo_db", cfg.MongoDB)
	return &stores{
		users:   pgStore,
		catalog: mongoStore,
		close: func() {
			pgPool.Close()
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				logger.Warn("Mongo disconnect failed", "error", err)
			}
		},
	}, nil
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	// ── Redis ────────────────────────────────────────────────
	catalog := st.catalog
	if cfg.RedisAddr != "" {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer rdb.Close()
		catalog = store.NewBookCache(rdb, catalog, cfg.BookCacheTTL, logger)
		logger.Info("Book cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.BookCacheTTL)
	}

	// ── MinIO ────────────────────────────────────────────────
	var covers books.FileStore
	if cfg.CoversEnabled() {
		minioStore, err := store.NewMinioStore(
			ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
		)
		if err != nil {
			return err
		}
		covers = minioStore
		logger.Info("Cover storage enabled", "endpoint", cfg.MinioEndpoint, "bucket", cfg.MinioBucket)
	}

	// ── Handlers ─────────────────────────────────────────────
	validate := validation.New()
	usersHandler := users.NewHandler(users.NewService(st.users, catalog, logger), validate, logger)
	booksHandler := books.NewHandler(books.NewService(catalog, covers, logger), validate, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r := newRouter(cfg.CORSOrigins, logger, registry, usersHandler, booksHandler)

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Backend listening", "port", cfg.Port, "driver", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("Shutting down...")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
