package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garagelab/autodiag/internal/analysis"
	"github.com/garagelab/autodiag/internal/auth"
	"github.com/garagelab/autodiag/internal/config"
	"github.com/garagelab/autodiag/internal/cors"
	"github.com/garagelab/autodiag/internal/diagnostic"
	"github.com/garagelab/autodiag/internal/logger"
	"github.com/garagelab/autodiag/internal/metrics"
	"github.com/garagelab/autodiag/internal/storage/bucket"
	"github.com/garagelab/autodiag/internal/storage/pg"
	"github.com/gin-gonic/gin"
)

// Origins the hosted frontend is served from. Deployment-specific extras come
// from configuration.
var (
	defaultOrigins = []string{
		"https://lovable.dev",
		"https://lovable.app",
	}
	defaultOriginSuffixes = []string{
		".lovable.dev",
		".lovable.app",
	}
)

func main() {
	config.LoadConfig()

	log := logger.New(logger.FromConfig(config.AppConfig.LogLevel, config.AppConfig.LogFormat))

	log.Info("setting gin mode", "mode", config.AppConfig.GinMode)
	gin.SetMode(config.AppConfig.GinMode)

	db, err := pg.InitDatabase(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	tokenValidator, err := newTokenValidator(config.AppConfig, log)
	if err != nil {
		log.Error("failed to initialize token validator", "error", err)
		os.Exit(1)
	}
	authMiddleware := auth.NewMiddleware(tokenValidator)

	imageStore, err := bucket.NewStore(context.Background(), log, config.AppConfig.ImagesBucket)
	if err != nil {
		log.Error("failed to initialize image store", "error", err)
		os.Exit(1)
	}

	// Services and handlers.
	repo := diagnostic.NewPostgresRepository(log, db.DB)

	aiClient := analysis.NewClient(log,
		config.AppConfig.AI.BaseURL,
		config.AppConfig.AIGatewayAPIKey,
		config.AppConfig.AI.Model,
		time.Duration(config.AppConfig.AI.TimeoutSeconds)*time.Second)
	analysisService := analysis.NewService(log, repo, aiClient,
		time.Duration(config.AppConfig.AI.TimeoutSeconds+30)*time.Second)
	analysisHandlers := analysis.NewHandlers(log, analysisService)

	diagnosticService := diagnostic.NewService(log, repo, imageStore, analysisService)
	diagnosticHandlers := diagnostic.NewHandlers(log, diagnosticService)

	// CORS allow-list: fixed origins plus anything from config.
	origins := defaultOrigins
	suffixes := defaultOriginSuffixes
	if config.AppConfig.CORS != nil {
		origins = append(origins, config.AppConfig.CORS.Origins...)
		suffixes = append(suffixes, config.AppConfig.CORS.OriginSuffixes...)
	}
	corsPolicy := cors.NewPolicy(origins, suffixes, config.AppConfig.AllowedOrigin)

	router := gin.Default()
	router.Use(cors.Middleware(corsPolicy))
	router.Use(logger.RequestIDMiddleware())
	router.Use(metrics.RequestMiddleware())

	// Unauthenticated endpoints.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	api := router.Group("/api/v1")
	api.Use(authMiddleware.RequireAuth())
	{
		diagnostics := api.Group("/diagnostics")
		{
			diagnostics.POST("", diagnosticHandlers.CreateSession)
			diagnostics.GET("", diagnosticHandlers.ListSessions)
			diagnostics.GET("/:id", diagnosticHandlers.GetSession)
			diagnostics.POST("/:id/feedback", diagnosticHandlers.SubmitFeedback)
			diagnostics.POST("/:id/analyze", analysisHandlers.Analyze)
		}
	}

	port := ":" + config.AppConfig.Port
	srv := &http.Server{
		Addr:    port,
		Handler: router,
	}

	go func() {
		log.Info("🔧 autodiag listening on " + port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("🛑 shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(config.AppConfig.ServerShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := db.DB.Close(); err != nil {
		log.Error("failed to close database", "error", err)
	}

	log.Info("✅ server exited")
}

func newTokenValidator(cfg *config.Config, log *logger.Logger) (auth.TokenValidator, error) {
	switch cfg.ValidatorType {
	case "firebase":
		if cfg.FirebaseProjectID == "" {
			return nil, errors.New("firebase project ID is required")
		}
		log.Info("creating firebase token validator", "project_id", cfg.FirebaseProjectID)
		return auth.NewFirebaseTokenValidator(context.Background(), cfg.FirebaseCredJSON)

	case "jwk":
		log.Info("creating jwk token validator", "jwks_url", cfg.JWTJWKSURL)
		return auth.NewTokenValidator(cfg.JWTJWKSURL)

	default:
		return nil, errors.New("validator type must be either 'firebase' or 'jwk'")
	}
}
