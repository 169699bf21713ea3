package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xeze-org/nutriplan-web/internal/apiclient"
	"github.com/xeze-org/nutriplan-web/internal/auth"
	"github.com/xeze-org/nutriplan-web/internal/config"
	"github.com/xeze-org/nutriplan-web/internal/store"
	"github.com/xeze-org/nutriplan-web/internal/web"
)

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	envFile := flag.String("env", ".env", "optional .env file")
	flag.Parse()

	cfg := config.Load(*envFile)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Sessions ─────────────────────────────────────────────
	var sessions auth.SessionStore
	switch cfg.SessionBackend {
	case "redis":
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			fatal("redis connect", err)
		}
		defer rdb.Close()
		sessions = auth.NewRedisSessions(rdb)

	case "postgres":
		pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			fatal("postgres connect", err)
		}
		defer pgPool.Close()
		pgSessions := store.NewPostgresSessions(pgPool, auth.SessionTTL)
		if err := pgSessions.Migrate(ctx); err != nil {
			fatal("postgres migrate", err)
		}
		go purgeSessions(ctx, pgSessions)
		sessions = pgSessions

	case "memory":
		slog.Warn("memory session store: sessions are lost on restart")
		sessions = auth.NewMemorySessions()

	default:
		fatal("session backend", errors.New("SESSION_BACKEND must be redis, postgres or memory"))
	}

	if cfg.SessionSecret != "" {
		sealed, err := auth.NewSealedSessions(sessions, []byte(cfg.SessionSecret))
		if err != nil {
			fatal("session sealing", err)
		}
		sessions = sealed
	}

	// ── MongoDB (optional plan archive) ──────────────────────
	var archive web.PlanArchive
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			fatal("mongo connect", err)
		}
		defer mongoClient.Disconnect(context.Background())
		mongoArchive := store.NewMongoArchive(mongoClient.Database(cfg.MongoDB))
		if err := mongoArchive.EnsureIndexes(ctx); err != nil {
			fatal("mongo indexes", err)
		}
		archive = mongoArchive
	}

	// ── MinIO (optional plan exports) ────────────────────────
	var exports web.ExportStore
	if cfg.MinioEndpoint != "" {
		minioStore, err := store.NewMinioStore(
			ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
		)
		if err != nil {
			fatal("minio connect", err)
		}
		exports = minioStore
	}

	// ── API client ───────────────────────────────────────────
	api := apiclient.New(cfg.APIBaseURL, nil,
		apiclient.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		apiclient.WithLogger(logger),
	)

	// ── Router ───────────────────────────────────────────────
	csrfKey, err := loadCSRFKey(cfg.CSRFKey)
	if err != nil {
		fatal("csrf key", err)
	}
	router, err := web.NewRouter(web.Deps{
		API:            api,
		Sessions:       sessions,
		Archive:        archive,
		Exports:        exports,
		CSRFKey:        csrfKey,
		CookieSecure:   cfg.CookieSecure,
		AllowedOrigins: cfg.AllowedOrigins,
		Location:       time.Local,
	})
	if err != nil {
		fatal("router", err)
	}

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: time.Minute,
	}

	go func() {
		slog.Info("web listening", "port", cfg.Port, "api", api.BaseURL(), "sessions", cfg.SessionBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal("server error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
}

// loadCSRFKey accepts 32 raw bytes or 64 hex characters. An empty value
// gets a random key, which invalidates open forms on restart.
func loadCSRFKey(s string) ([]byte, error) {
	switch len(s) {
	case 0:
		slog.Warn("CSRF_KEY not set, using a random key")
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		return key, nil
	case 32:
		return []byte(s), nil
	case 64:
		return hex.DecodeString(s)
	}
	return nil, errors.New("CSRF_KEY must be 32 bytes or 64 hex characters")
}

func purgeSessions(ctx context.Context, s *store.PostgresSessions) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				slog.Warn("purge sessions", "error", err)
				continue
			}
			slog.Debug("purged sessions", "count", n)
		}
	}
}
