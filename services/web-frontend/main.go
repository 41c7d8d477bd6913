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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"authentiscan/common/apiclient"
	"authentiscan/common/config"
	"authentiscan/common/handoff"
	"authentiscan/common/logging"
	"authentiscan/common/validator"
	"authentiscan/services/web-frontend/web"
)

// @title          Authentiscan Web Front
// @version        1.0
// @description    Upload and results views for the product authenticity checker
// @termsOfService http://authentiscan.example.com/terms/

// @contact.name  API Support
// @contact.url   http://authentiscan.example.com/support
// @contact.email support@authentiscan.example.com

// @license.name MIT
// @license.url  https://opensource.org/licenses/MIT

// @host      localhost:3000
// @BasePath  /api/v1

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to read .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open hand-off store", zap.String("store", cfg.HandoffStore), zap.Error(err))
	}
	defer store.Close()

	client := apiclient.New(cfg.APIBaseURL, apiclient.WithLogger(logger))
	server, err := web.NewServer(web.Options{
		Client:     client,
		Validator:  validator.New(cfg.MaxUploadSizeMB),
		Store:      store,
		Logger:     logger,
		SessionTTL: cfg.HandoffTTL,
	})
	if err != nil {
		logger.Fatal("Failed to build web server", zap.Error(err))
	}

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), logging.GinMiddleware(logger))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "OK",
			"service": "web-frontend",
		})
	})

	// Swagger documentation
	router.GET("/api/v1/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// JSON status routes
	apiV1 := router.Group("/api/v1", cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	server.RegisterAPI(apiV1)

	// Browser views
	server.Register(router)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	go func() {
		logger.Info("Starting web front",
			zap.String("addr", cfg.ServerAddr),
			zap.String("api_base_url", cfg.APIBaseURL),
			zap.String("handoff_store", cfg.HandoffStore),
			zap.Int("max_upload_size_mb", cfg.MaxUploadSizeMB))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down web front...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Web front exited")
}

func openStore(cfg *config.Config) (handoff.Store, error) {
	if cfg.HandoffStore != config.StoreRedis {
		return handoff.NewMemoryStore(cfg.HandoffTTL), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return handoff.OpenRedisStore(ctx, cfg.RedisURL, cfg.HandoffTTL)
}
