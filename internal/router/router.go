package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizdesk/internal/config"
	"github.com/stemsi/quizdesk/internal/handler"
	"github.com/stemsi/quizdesk/internal/middleware"
	"github.com/stemsi/quizdesk/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Question *handler.QuestionHandler
	Result   *handler.ResultHandler
	Setting  *handler.SettingHandler
	Feed     *handler.FeedHandler
	System   *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background work owned by middleware, such as the PIN limiter.
func SetupRouter(
	ctx context.Context,
	auth middleware.TokenValidator,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so the desktop client works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())

	// xlsx is already deflated; recompressing it wastes CPU.
	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		Skipper: middleware.SkipPaths("/api/results/export"),
	}))

	router.GET("/health", handlers.System.Health)

	requireAdmin := middleware.RequireAdmin(auth, cfg.AdminGate)

	api := router.Group("/api")
	api.Use(middleware.CacheControl("no-store"))

	// ─── 1. PIN Gate (Rate Limited) ────────────────────────────────────
	pinLimiter := middleware.NewRateLimiter(ctx, cfg.PINAttemptsPerMin, time.Minute)
	api.POST("/auth/pin", pinLimiter.Middleware(), handlers.Auth.UnlockPIN)

	// ─── 2. Question Bank ──────────────────────────────────────────────
	questions := api.Group("/questions")
	{
		questions.GET("", handlers.Question.ListQuestions)
		questions.POST("", requireAdmin, handlers.Question.CreateQuestion)
		questions.POST("/import", requireAdmin, handlers.Question.ImportQuestions)
		questions.POST("/clear-all", requireAdmin, handlers.Question.ClearQuestions)
		questions.PUT("/:id", requireAdmin, handlers.Question.UpdateQuestion)
		questions.DELETE("/:id", requireAdmin, handlers.Question.DeleteQuestion)
	}

	// ─── 3. Result Log ─────────────────────────────────────────────────
	results := api.Group("/results")
	{
		// Students submit without unlocking.
		results.POST("", handlers.Result.CreateResult)

		results.GET("", requireAdmin, handlers.Result.ListResults)
		results.GET("/export", requireAdmin, handlers.Result.ExportResults)
		results.POST("/clear-all", requireAdmin, handlers.Result.ClearResults)
		results.DELETE("/:id", requireAdmin, handlers.Result.DeleteResult)
	}

	// ─── 4. Settings ───────────────────────────────────────────────────
	settings := api.Group("/settings")
	{
		settings.GET("/time-limit", handlers.Setting.GetTimeLimit)
		settings.POST("/time-limit", requireAdmin, handlers.Setting.SetTimeLimit)
		settings.GET("/passing-threshold", handlers.Setting.GetPassingThreshold)
		settings.POST("/passing-threshold", requireAdmin, handlers.Setting.SetPassingThreshold)
		settings.GET("/exam-title", handlers.Setting.GetExamTitle)
		settings.POST("/exam-title", requireAdmin, handlers.Setting.SetExamTitle)
	}

	// ─── 5. Live Results Feed ──────────────────────────────────────────
	router.GET("/ws/results", requireAdmin, handlers.Feed.ResultsFeed)

	return router
}
