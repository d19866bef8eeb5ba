package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/mayank-dotcom/career-bot/internal/util"
	"github.com/mayank-dotcom/career-bot/pkg/ai"
	"github.com/mayank-dotcom/career-bot/pkg/pdftext"
	"github.com/mayank-dotcom/career-bot/pkg/storage"
	"github.com/mayank-dotcom/career-bot/pkg/store"
	"github.com/mayank-dotcom/career-bot/services/api/internal/app"
	"github.com/mayank-dotcom/career-bot/services/api/internal/config"
	"github.com/mayank-dotcom/career-bot/services/api/internal/security"
	"github.com/mayank-dotcom/career-bot/services/api/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		util.Fatal("failed to load config", "err", err)
	}
	logger, closeLog := util.InitLogger(util.LogOptions{
		Level:   cfg.LogLevel,
		Service: "career-bot-api",
		Dir:     cfg.LogsDir,
	})
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataStore, closeStore, err := openStore(cfg)
	if err != nil {
		util.Fatal("failed to open store", "driver", cfg.DatabaseDriver, "err", err)
	}
	defer closeStore()

	var redisClient *redis.Client
	var revoker store.TokenRevoker = store.NewMemoryTokenRevoker()
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.RedisPassword})
		defer redisClient.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			util.Fatal("redis unavailable", "addr", addr, "err", err)
		}
		revoker = store.NewRedisTokenRevoker(redisClient)
	} else {
		logger.Warn("redis not configured; rate limits off and sign-out is per-instance")
	}

	ttl, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		util.Fatal("invalid session ttl", "err", err)
	}
	sessions, err := store.NewJWTSessionStore(cfg.JWTSecret, ttl, revoker, store.JWTOptions{Issuer: cfg.JWTIssuer})
	if err != nil {
		util.Fatal("failed to init sessions", "err", err)
	}

	model := cfg.LLMModel
	if model == "" && strings.HasPrefix(cfg.LLMProvider, "openai") {
		model = app.DefaultModel
	}
	llm, err := ai.NewChatCompleter(ai.ProviderConfig{
		Provider: cfg.LLMProvider,
		BaseURL:  cfg.LLMBaseURL,
		APIKey:   cfg.LLMAPIKey,
		Model:    model,
	})
	if err != nil {
		util.Fatal("failed to init llm provider", "provider", cfg.LLMProvider, "err", err)
	}

	objects, err := openObjectStore(ctx, cfg)
	if err != nil {
		util.Fatal("failed to init object storage", "err", err)
	}

	core, err := app.New(app.Config{
		Store:        dataStore,
		Sessions:     sessions,
		LLM:          llm,
		Model:        model,
		HistoryLimit: cfg.HistoryLimit,
		Extractor:    newExtractor(cfg),
		Objects:      objects,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	httpServer, err := server.New(server.Config{
		App:     core,
		Redis:   redisClient,
		Alerter: security.NewAuditAlerter(redisClient, ""),
		RateLimits: server.RateLimits{
			SignUp:      cfg.RateLimits.SignUp,
			SignIn:      cfg.RateLimits.SignIn,
			SendMessage: cfg.RateLimits.SendMessage,
			ParsePDF:    cfg.RateLimits.ParsePDF,
		},
		RequireAuth:    cfg.RequireAuth,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		CORSOrigins:    cfg.CORSOrigins,
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		util.Fatal("failed to init server", "err", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// LLM round trips can be slow.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening",
			"addr", addr,
			"db", cfg.DatabaseDriver,
			"llm", cfg.LLMProvider,
			"require_auth", cfg.RequireAuth,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func newExtractor(cfg config.FileConfig) *pdftext.Extractor {
	if path := strings.TrimSpace(cfg.PdftotextPath); path != "" {
		return pdftext.NewExtractor(pdftext.WithPdftotext(path))
	}
	return pdftext.NewExtractor()
}

func openStore(cfg config.FileConfig) (store.Store, func(), error) {
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		slog.Warn("using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	case config.DriverSQLite:
		s, err := store.NewGormStore(store.DriverSQLite, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		s, err := store.NewGormStore(store.DriverPostgres, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
}

func openObjectStore(ctx context.Context, cfg config.FileConfig) (storage.ObjectStore, error) {
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	}
	if strings.TrimSpace(cfg.ArchiveDir) != "" {
		return storage.NewFileStore(cfg.ArchiveDir)
	}
	return nil, nil
}
