package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/cartillasalud/backend/internal/adapters/cache"
	"github.com/cartillasalud/backend/internal/adapters/database"
	"github.com/cartillasalud/backend/internal/adapters/events"
	"github.com/cartillasalud/backend/internal/adapters/search"
	"github.com/cartillasalud/backend/internal/api/handlers"
	"github.com/cartillasalud/backend/internal/api/middleware"
	"github.com/cartillasalud/backend/internal/api/routes"
	"github.com/cartillasalud/backend/internal/application/services"
	"github.com/cartillasalud/backend/internal/domain/providers"
	"github.com/cartillasalud/backend/internal/domain/repositories"
	"github.com/cartillasalud/backend/internal/infrastructure/clients/postgres"
	"github.com/cartillasalud/backend/internal/infrastructure/clients/redis"
	"github.com/cartillasalud/backend/internal/infrastructure/clients/typesense"
	"github.com/cartillasalud/backend/internal/infrastructure/observability"
	"github.com/cartillasalud/backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	var shutdown func(context.Context) error
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err = observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()
	log.Println("PostgreSQL client initialized successfully")

	// Initialize Redis client
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis client: %v", err)
		// Continue without Redis - the application can work without caching
		redisClient = nil
	} else {
		defer redisClient.Close()
		log.Println("Redis client initialized successfully")
	}

	// Initialize Typesense client
	typesenseClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Printf("Warning: Failed to initialize Typesense client: %v", err)
		typesenseClient = nil
	} else {
		log.Println("Typesense client initialized successfully")
	}

	// Initialize adapters
	catalogAdapter := database.NewCatalogAdapter()
	providerAdapter := database.NewProviderAdapter()
	directoryAdapter := database.NewDirectoryAdapter()

	var searchRepo repositories.DirectorySearchRepository
	if typesenseClient != nil {
		indexer := search.NewDirectoryIndexer(typesenseClient)
		// Ensure schema exists
		if err := indexer.InitSchema(context.Background()); err != nil {
			log.Printf("Warning: Failed to init Typesense schema: %v", err)
		}
		searchRepo = indexer
	}

	var cacheProvider providers.CacheProvider
	var auditPublisher providers.AuditPublisher
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
		auditPublisher = events.NewRedisAuditPublisher(redisClient)
	} else {
		log.Println("Cache and audit publishing disabled (Redis not available)")
	}

	// Initialize services
	importService := services.NewImportService(
		pgClient,
		directoryAdapter,
		searchRepo,
		auditPublisher,
		metrics,
		cfg.Import.BatchSize,
		cfg.Import.ProgressInterval,
		cfg.Import.DelimiterRune(),
	)
	providerService := services.NewProviderService(
		pgClient,
		providerAdapter,
		catalogAdapter,
		directoryAdapter,
		searchRepo,
		auditPublisher,
		metrics,
	)
	catalogService := services.NewCatalogService(
		pgClient,
		catalogAdapter,
		directoryAdapter,
		auditPublisher,
		metrics,
	)
	directoryService := services.NewDirectoryService(
		pgClient,
		directoryAdapter,
		searchRepo,
		cacheProvider,
		metrics,
	)

	// Initialize handlers
	directoryHandler := handlers.NewDirectoryHandler(directoryService)
	providerHandler := handlers.NewProviderHandler(providerService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)

	var rawRedis *redislib.Client
	if redisClient != nil {
		rawRedis = redisClient.Client()
	}
	importHandler := handlers.NewImportHandler(
		importService,
		rawRedis,
		cfg.Import.MaxUploadBytes,
		24*time.Hour,
	)

	// Initialize cache middleware
	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider)
		log.Println("Cache middleware initialized successfully")
	}

	// Set up router
	router := routes.NewRouter(
		directoryHandler,
		providerHandler,
		catalogHandler,
		importHandler,
		cacheMiddleware,
		metrics,
	)
	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	if auditPublisher != nil {
		if err := auditPublisher.Close(); err != nil {
			log.Printf("Error closing audit publisher: %v", err)
		}
	}

	log.Println("Server stopped")
}
