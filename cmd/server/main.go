package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/cache"
	"github.com/stemsi/quizdesk/internal/config"
	"github.com/stemsi/quizdesk/internal/database"
	"github.com/stemsi/quizdesk/internal/handler"
	"github.com/stemsi/quizdesk/internal/i18n"
	"github.com/stemsi/quizdesk/internal/logger"
	"github.com/stemsi/quizdesk/internal/repository"
	"github.com/stemsi/quizdesk/internal/router"
	"github.com/stemsi/quizdesk/internal/service"
	"github.com/stemsi/quizdesk/internal/validator"
	ws "github.com/stemsi/quizdesk/internal/websocket"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log, logCloser, err := logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("Failed to initialize logger")
	}
	defer logCloser.Close()

	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("db_driver", cfg.DBDriver).
		Bool("admin_gate", cfg.AdminGate).
		Msg("Starting quizdesk server")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Open Store & Migrate ──────────────────────────────────────────
	db, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseURL, cfg.MaxDBConns, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.DBDriver); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	// ─── Connect to Redis (optional) ───────────────────────────────────
	rdb, err := database.OpenRedis(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running without cache")
	}
	var questionCache cache.QuestionCache = cache.Noop{}
	if rdb != nil {
		defer rdb.Close()
		questionCache = cache.NewRedisQuestionCache(rdb, cfg.QuestionCacheTTL, log)
	}

	// ─── Export Localization ───────────────────────────────────────────
	tr, err := i18n.New(cfg.ExportLang)
	if err != nil {
		log.Fatal().Err(err).Str("lang", cfg.ExportLang).Msg("Failed to load export locale")
	}

	// ─── Results Feed ──────────────────────────────────────────────────
	hub := ws.NewHub(rdb, config.CacheKey.ResultFeedChannel(), log)
	go hub.Run(ctx)

	// ─── Initialize Repositories ───────────────────────────────────────
	questionRepo := repository.NewQuestionRepository(db)
	resultRepo := repository.NewResultRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	questionService := service.NewQuestionService(questionRepo, questionCache, log)
	resultService := service.NewResultService(resultRepo, hub, tr, cfg.ExportLocation(), log)
	settingService := service.NewSettingService(settingRepo, cfg.DefaultExamTitle, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(authService, log),
		Question: handler.NewQuestionHandler(questionService, cfg.MaxUploadBytes, log),
		Result:   handler.NewResultHandler(resultService, log),
		Setting:  handler.NewSettingHandler(settingService, log),
		Feed:     handler.NewFeedHandler(hub, cfg.AllowedOrigins, log),
		System:   handler.NewSystemHandler(db, rdb, log),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Stops the feed relay and the PIN limiter sweeper.
	cancel()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
