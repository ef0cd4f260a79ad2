// Package main is the entry point for the HeritageBox support chat service.
// @title HeritageBox Support Chat API
// @version 1.0
// @description Customer-support chat service: AI-assisted widget conversations with Slack-backed human handoff
// @termsOfService http://swagger.io/terms/

// @contact.name HeritageBox Support
// @contact.url https://heritagebox.com
// @contact.email support@heritagebox.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1/support
// @schemes http https
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/heritagebox/chat-service/internal/api/handlers"
	"github.com/heritagebox/chat-service/internal/api/middleware"
	"github.com/heritagebox/chat-service/internal/api/routes"
	"github.com/heritagebox/chat-service/internal/config"
	"github.com/heritagebox/chat-service/internal/core/cache"
	"github.com/heritagebox/chat-service/internal/core/records"
	"github.com/heritagebox/chat-service/internal/core/vault"
	rediscache "github.com/heritagebox/chat-service/internal/infrastructure/cache/redis"
	airtablerecords "github.com/heritagebox/chat-service/internal/infrastructure/records/airtable"
	mongorecords "github.com/heritagebox/chat-service/internal/infrastructure/records/mongodb"
	dotenvvault "github.com/heritagebox/chat-service/internal/infrastructure/vault/dotenv"
	"github.com/heritagebox/chat-service/internal/logging"
	"github.com/heritagebox/chat-service/internal/pkg/encryption"
	"github.com/heritagebox/chat-service/internal/services/archive"
	"github.com/heritagebox/chat-service/internal/services/catalog"
	"github.com/heritagebox/chat-service/internal/services/chat"
	"github.com/heritagebox/chat-service/internal/services/completion/claude"
	"github.com/heritagebox/chat-service/internal/services/messaging/slack"
	"github.com/heritagebox/chat-service/internal/services/payments"
	"github.com/heritagebox/chat-service/internal/services/payments/square"
	"github.com/heritagebox/chat-service/internal/services/session"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fallbackLogger := logging.Setup("info", "console")
		fallbackLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	ctx := context.Background()

	// Initialize vault client using factory pattern
	vaultClient, err := createVaultClient(cfg.Vault)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize vault client")
	}
	defer vaultClient.Close()

	// Initialize cache client using factory pattern
	cacheClient, err := createCacheClient(cfg.Cache, cfg.Session.TTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize cache client")
	}
	defer cacheClient.Close()

	// Initialize record store using factory pattern
	recordStore, err := createRecordStore(ctx, cfg.Records)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize record store")
	}
	defer recordStore.Close(ctx)

	if err := recordStore.EnsureIndexes(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to ensure record store indexes")
	}

	// Initialize session-at-rest encryptor
	encryptor, err := createEncryptor(cfg.Session, vaultClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize encryptor")
	}

	// Initialize session service
	sessionService, err := session.NewService(&session.Config{
		CacheClient:      cacheClient,
		Encryptor:        encryptor,
		TTL:              cfg.Session.TTL,
		RefreshTTLOnRead: cfg.Session.RefreshTTLOnRead,
		DebugLogMax:      cfg.Session.DebugLogMax,
		Logger:           logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize session service")
	}

	// Initialize collaborator clients
	completionClient, err := claude.NewClient(&claude.ClientConfig{
		APIKey: cfg.Claude.APIKey,
		Model:  cfg.Claude.Model,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize completion client")
	}

	messagingClient, err := slack.NewClient(&slack.ClientConfig{
		BotToken: cfg.Slack.BotToken,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize slack client")
	}

	paymentsClient := createPaymentsClient(cfg.Square, logger)

	catalogService, err := catalog.NewService(&catalog.Config{
		Store:  recordStore,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize catalog service")
	}

	archiveService, err := archive.NewService(&archive.Config{
		Store:  recordStore,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize archive service")
	}

	chatService, err := chat.NewService(&chat.Config{
		Sessions:   sessionService,
		Completion: completionClient,
		Messaging:  messagingClient,
		Catalog:    catalogService,
		Archive:    archiveService,
		Channel:    cfg.Slack.SupportChannel,
		SiteURL:    cfg.Server.SiteURL,
		MaxTokens:  cfg.Claude.MaxTokens,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize chat service")
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	router := setupRouter(cfg, logger, cacheClient, recordStore, sessionService, chatService, paymentsClient)

	srv := &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("addr", cfg.Server.Address()).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}

// createVaultClient creates a vault client based on the configuration.
func createVaultClient(cfg config.VaultConfig) (vault.Client, error) {
	switch vault.Type(cfg.Type) {
	case vault.TypeDotEnv:
		return dotenvvault.NewClient()
	default:
		return nil, fmt.Errorf("unsupported vault type: %s", cfg.Type)
	}
}

// createCacheClient creates a cache client based on the configuration.
func createCacheClient(cfg config.CacheConfig, defaultTTL time.Duration) (cache.Client, error) {
	switch cache.Type(cfg.Type) {
	case cache.TypeRedis:
		return rediscache.NewClient(rediscache.Config{
			Host:       cfg.Host,
			Port:       cfg.Port,
			Password:   cfg.Password,
			DB:         cfg.DB,
			DefaultTTL: defaultTTL,
		})
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// createRecordStore creates a record store based on the configuration.
func createRecordStore(ctx context.Context, cfg config.RecordsConfig) (records.Store, error) {
	switch records.Type(cfg.Type) {
	case records.TypeMongoDB:
		return mongorecords.NewStore(ctx, &mongorecords.StoreConfig{
			URI:          cfg.MongoURI,
			DatabaseName: cfg.MongoDatabase,
		})
	case records.TypeAirtable:
		return airtablerecords.NewStore(&airtablerecords.StoreConfig{
			APIKey: cfg.AirtableAPIKey,
			BaseID: cfg.AirtableBaseID,
		})
	default:
		return nil, fmt.Errorf("unsupported records type: %s", cfg.Type)
	}
}

// createPaymentsClient creates the Square client, or nil when unconfigured.
// Payments are optional; the handler reports 500 on use when nil.
func createPaymentsClient(cfg config.SquareConfig, logger zerolog.Logger) payments.Client {
	if cfg.AccessToken == "" {
		logger.Warn().Msg("SQUARE_ACCESS_TOKEN not set, payments disabled")
		return nil
	}
	client, err := square.NewClient(&square.ClientConfig{
		AccessToken: cfg.AccessToken,
		LocationID:  cfg.LocationID,
		Environment: cfg.Environment,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize square client, payments disabled")
		return nil
	}
	return client
}

// createEncryptor creates the session-at-rest encryptor.
func createEncryptor(cfg config.SessionConfig, vaultClient vault.Client, logger zerolog.Logger) (encryption.Encryptor, error) {
	encryptionKey := cfg.EncryptionKey
	if encryptionKey == "" {
		key, err := vaultClient.GetSecret(context.Background(), "dotenv://SESSION_ENCRYPTION_KEY")
		if err == nil && key != "" {
			encryptionKey = key
		}
	}

	if encryptionKey == "" {
		logger.Warn().Msg("SESSION_ENCRYPTION_KEY not set, using NoOp encryptor")
		return encryption.NewNoOpEncryptor(), nil
	}

	return encryption.NewAESEncryptor(encryptionKey)
}

// setupRouter creates and configures the Gin router.
func setupRouter(
	cfg *config.Config,
	logger zerolog.Logger,
	cacheClient cache.Client,
	recordStore records.Store,
	sessionService session.Service,
	chatService chat.Service,
	paymentsClient payments.Client,
) *gin.Engine {
	router := gin.New()

	loggingMw := middleware.NewLoggingMiddlewareWithLogger(logger)
	errorMw := middleware.NewErrorMiddleware()

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORS.AllowOrigins
	}
	router.Use(middleware.NewCORSMiddleware(corsCfg))

	routesCfg := &routes.Config{
		HealthHandler:     handlers.NewHealthHandler(cacheClient, recordStore),
		ChatHandler:       handlers.NewChatHandler(chatService),
		HandoffHandler:    handlers.NewHandoffHandler(chatService),
		TranscriptHandler: handlers.NewTranscriptHandler(sessionService),
		RelayHandler:      handlers.NewRelayHandler(chatService),
		WebhookHandler:    handlers.NewWebhookHandler(sessionService, logger),
		PaymentsHandler:   handlers.NewPaymentsHandler(paymentsClient, logger),
	}

	routes.SetupWithMiddleware(router, routesCfg, loggingMw, errorMw)

	// Swagger documentation endpoint
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return router
}
