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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/modelgate/audit"
	"github.com/dev-mohitbeniwal/modelgate/cache"
	"github.com/dev-mohitbeniwal/modelgate/completion"
	"github.com/dev-mohitbeniwal/modelgate/config"
	"github.com/dev-mohitbeniwal/modelgate/controller"
	"github.com/dev-mohitbeniwal/modelgate/dao"
	"github.com/dev-mohitbeniwal/modelgate/db"
	"github.com/dev-mohitbeniwal/modelgate/dispatcher"
	"github.com/dev-mohitbeniwal/modelgate/ledger"
	logger "github.com/dev-mohitbeniwal/modelgate/logging"
	"github.com/dev-mohitbeniwal/modelgate/metrics"
	"github.com/dev-mohitbeniwal/modelgate/predictors"
	"github.com/dev-mohitbeniwal/modelgate/registry"
	"github.com/dev-mohitbeniwal/modelgate/retry"
	"github.com/dev-mohitbeniwal/modelgate/router"
	"github.com/dev-mohitbeniwal/modelgate/service"
	"github.com/dev-mohitbeniwal/modelgate/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	cfg := config.GetConfig()

	// Initialize logger
	logger.InitLogger(cfg.Log.Dir)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize store
	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}

	// Initialize Redis
	if cfg.Redis.Enabled {
		if err := db.InitRedis(); err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
	}

	// Initialize audit
	auditService := audit.NewService(openAuditRepository(cfg.Elasticsearch))

	// Initialize metrics
	if err := metrics.InitMetrics(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal("Failed to register metrics", zap.Error(err))
	}
	emitter := metrics.NewEmitter()

	// Initialize registry
	models := registry.NewRegistry()
	if err := predictors.RegisterBuiltins(models); err != nil {
		logger.Fatal("Failed to register built-in models", zap.Error(err))
	}

	// Initialize EventBus
	eventBus := util.NewEventBus()
	eventBus.Start(ctx)

	// Initialize services and utilities
	validationUtil := util.NewValidationUtil()
	cacheService := util.NewCacheService(cfg.Cache.TTL)
	notificationService := util.NewNotificationService(eventBus)
	stopChangeAudit := service.SubscribeChangeAudit(eventBus, auditService)

	resultCache, err := openResultCache(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize result cache", zap.Error(err))
	}

	location, err := time.LoadLocation(cfg.Quota.Timezone)
	if err != nil {
		logger.Fatal("Invalid quota timezone", zap.String("timezone", cfg.Quota.Timezone), zap.Error(err))
	}
	var locker ledger.Locker = ledger.NewKeyedLocker()
	var statuses dispatcher.StatusStore
	if db.RedisClient != nil {
		locker = ledger.NewRedisLocker(cfg.Quota.LockTTL)
		statuses = dispatcher.NewRedisStatusStore(cfg.Dispatcher.StatusTTL)
	} else {
		statuses, err = dispatcher.NewMemoryStatusStore(cfg.Dispatcher.StatusTTL)
		if err != nil {
			logger.Fatal("Failed to initialize job status store", zap.Error(err))
		}
	}
	quota := ledger.NewLedger(store, locker, auditService, emitter, location)

	// Initialize completion transport and recorder
	transport, err := openTransport(cfg.Completion, eventBus)
	if err != nil {
		logger.Fatal("Failed to initialize completion transport", zap.Error(err))
	}
	if err := transport.Start(ctx, completion.NewRecorder(store, emitter)); err != nil {
		logger.Fatal("Failed to start completion transport", zap.Error(err))
	}

	// Initialize dispatcher
	jobDispatcher := dispatcher.NewDispatcher(
		dispatcher.Config{
			Workers:        cfg.Dispatcher.Workers,
			QueueSize:      cfg.Dispatcher.QueueSize,
			AttemptTimeout: cfg.Dispatcher.AttemptTimeout,
			CacheTTL:       cfg.Cache.TTL,
		},
		models,
		resultCache,
		retry.NewPolicy(cfg.Dispatcher.MaxRetries, cfg.Dispatcher.RetryBackoff, cfg.Dispatcher.RetryBackoffMax, cfg.Dispatcher.RetryJitter),
		store,
		statuses,
		transport,
		emitter,
	)
	if err := jobDispatcher.Start(ctx); err != nil {
		logger.Fatal("Failed to start dispatcher", zap.Error(err))
	}

	// Initialize services
	services := service.InitializeServices(
		store,
		models,
		quota,
		jobDispatcher,
		auditService,
		validationUtil,
		cacheService,
		notificationService,
	)
	if _, err := services.Policy.EnsureBasePolicy(ctx); err != nil {
		logger.Fatal("Failed to seed base policy", zap.Error(err))
	}

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	engine := router.SetupRouter(controller.InitializeControllers(services), router.Options{
		RateLimitRequests: cfg.RateLimit.Requests,
		RateLimitDuration: cfg.RateLimit.Per,
		Gatherer:          prometheus.DefaultGatherer,
	})

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: engine,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := jobDispatcher.Stop(shutdownCtx); err != nil {
		logger.Error("Dispatcher did not stop cleanly", zap.Error(err))
	}
	stopChangeAudit()
	if err := transport.Stop(shutdownCtx); err != nil {
		logger.Error("Completion transport did not stop cleanly", zap.Error(err))
	}
	cancel()

	db.CloseRedis()
	if err := store.Close(); err != nil {
		logger.Error("Error closing store", zap.Error(err))
	}

	logger.Info("Server exiting")
}

func openStore(ctx context.Context, cfg config.StoreConfiguration) (dao.Store, error) {
	switch cfg.Driver {
	case "neo4j":
		if err := db.InitNeo4j(); err != nil {
			return nil, err
		}
		return dao.NewNeo4jStore(ctx, db.NewNeo4jRunner(db.Neo4jDriver), func() error {
			db.CloseNeo4j()
			return nil
		})
	default:
		if err := db.InitSQL(cfg.Driver, cfg.DSN); err != nil {
			return nil, err
		}
		return dao.NewGormStore(db.SQLDB)
	}
}

func openAuditRepository(cfg config.ElasticsearchConfiguration) audit.Repository {
	if cfg.URL == "" {
		return audit.NewLogRepository()
	}
	repo, err := audit.NewElasticsearchRepository(cfg.URL, cfg.Index)
	if err != nil {
		logger.Warn("Elasticsearch unavailable, writing audit records to the log", zap.Error(err))
		return audit.NewLogRepository()
	}
	return repo
}

func openResultCache(cfg *config.Configuration) (cache.Cache, error) {
	local, err := cache.NewMemoryCache(cfg.Cache.LocalSize, cfg.Cache.TTL)
	if err != nil {
		return nil, err
	}
	if db.RedisClient == nil {
		return local, nil
	}
	return cache.NewTiered(local, cache.NewRedisCache(), cfg.Cache.TTL), nil
}

func openTransport(cfg config.CompletionConfiguration, bus *util.EventBus) (completion.Transport, error) {
	switch cfg.Transport {
	case "redis":
		if db.RedisClient == nil {
			return nil, fmt.Errorf("completion transport %q requires redis.enabled", cfg.Transport)
		}
		return completion.NewStreamTransport(completion.StreamConfig{
			Stream:          cfg.Stream,
			Group:           cfg.Group,
			Consumer:        cfg.Consumer,
			ReclaimSchedule: cfg.ReclaimSchedule,
			ReclaimMinIdle:  cfg.ReclaimMinIdle,
		}), nil
	case "", "memory":
		return completion.NewMemoryTransport(bus), nil
	default:
		return nil, fmt.Errorf("unknown completion transport %q", cfg.Transport)
	}
}
