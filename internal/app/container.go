// Package app wires the integration layer together for the CLI, the worker
// and the MCP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	billingApp "github.com/felixgeelhaar/nourish/internal/billing/application"
	billingDomain "github.com/felixgeelhaar/nourish/internal/billing/domain"
	billingBackend "github.com/felixgeelhaar/nourish/internal/billing/infrastructure/backend"
	referralApp "github.com/felixgeelhaar/nourish/internal/referral/application"
	referralBackend "github.com/felixgeelhaar/nourish/internal/referral/infrastructure/backend"
	sharedApplication "github.com/felixgeelhaar/nourish/internal/shared/application"
	"github.com/felixgeelhaar/nourish/internal/shared/cache"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/clientstore"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/nourish/internal/shared/infrastructure/database/postgres" // Register PostgreSQL driver
	_ "github.com/felixgeelhaar/nourish/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/rpc"
	"github.com/felixgeelhaar/nourish/internal/shared/resilience"
	socialApp "github.com/felixgeelhaar/nourish/internal/social/application"
	socialBackend "github.com/felixgeelhaar/nourish/internal/social/infrastructure/backend"
	socialDomain "github.com/felixgeelhaar/nourish/internal/social/domain"
	"github.com/felixgeelhaar/nourish/pkg/config"
	"github.com/felixgeelhaar/nourish/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics observability.Metrics
	Health  *observability.HealthRegistry

	// UserID is the user the CLI acts for.
	UserID uuid.UUID

	// Database
	DBConn   database.Connection
	DBDriver database.Driver

	// Redis
	RedisClient *redis.Client

	// Integration
	RPC      *rpc.Client
	Executor *resilience.Executor
	Policies resilience.Policies

	// Repositories and storage
	Repositories *RepositoryFactory
	ClientStore  clientstore.Store
	UnitOfWork   sharedApplication.UnitOfWork

	// Events
	EventPublisher eventbus.Publisher
	LocalBus       *eventbus.InProcessEventBus

	// Outbox is set in server mode only. Billing stages events in it and the
	// worker runs OutboxProcessor to relay them.
	OutboxRepo      outbox.Repository
	OutboxProcessor *outbox.Processor

	// Billing
	SnapshotCache        cache.Cache[billingDomain.Snapshot]
	SubscriptionResolver *billingApp.Resolver
	BillingService       *billingApp.Service
	CacheInvalidation    *billingApp.CacheInvalidationConsumer

	// Referral
	ReferralAllocator  *referralApp.Allocator
	ReferralTracker    *referralApp.Tracker
	ReferralAcceptance *referralApp.AcceptanceService
	AffiliateService   *referralApp.AffiliateService

	// Social
	SocialService *socialApp.Service

	clientStoreConn database.Connection
}

// New creates a container in local or server mode depending on cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if cfg.LocalMode {
		return NewLocalContainer(ctx, cfg, logger)
	}
	return NewContainer(ctx, cfg, logger)
}

// NewContainer creates a server-mode container: PostgreSQL, an optional
// shared Redis snapshot cache and RabbitMQ fan-out of subscription changes
// through the transactional outbox.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c, err := newContainer(cfg, logger)
	if err != nil {
		return nil, err
	}

	conn, err := database.NewConnection(ctx, database.Config{
		Driver: database.DriverPostgres,
		URL:    cfg.DatabaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := c.attachDatabase(ctx, conn); err != nil {
		return nil, err
	}
	logger.Info("connected to database", "driver", conn.Driver().String())

	if cfg.UsesRedisCache() {
		if err := c.connectRedis(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}

	publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
	if err != nil {
		if !cfg.IsDevelopment() {
			c.Close()
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
		c.EventPublisher = eventbus.NewNoopPublisher(logger)
	} else {
		c.EventPublisher = publisher
		c.Health.Register("rabbitmq", observability.RabbitMQHealthChecker(publisher.Ping))
	}
	c.OutboxRepo = c.Repositories.OutboxRepository()

	if err := c.wire(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// NewLocalContainer creates a container for local mode with SQLite, an
// in-memory snapshot cache and in-process events. It needs no external
// services besides the backend functions.
func NewLocalContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c, err := newContainer(cfg, logger)
	if err != nil {
		return nil, err
	}

	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
	}
	if err := c.attachDatabase(ctx, conn); err != nil {
		return nil, err
	}

	c.LocalBus = eventbus.NewInProcessEventBus(logger)
	c.EventPublisher = c.LocalBus

	if err := c.wire(ctx); err != nil {
		c.Close()
		return nil, err
	}
	c.LocalBus.RegisterConsumer(c.CacheInvalidation)

	logger.Info("local mode container initialized", "driver", "sqlite")
	return c, nil
}

func newContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	userID, err := uuid.Parse(cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid NOURISH_USER_ID %q: %w", cfg.UserID, err)
	}
	return &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
		Health:  observability.NewHealthRegistry(),
		UserID:  userID,
	}, nil
}

// attachDatabase migrates conn and makes it the container's store.
func (c *Container) attachDatabase(ctx context.Context, conn database.Connection) error {
	if err := migrations.Run(ctx, conn); err != nil {
		conn.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	factory, err := NewRepositoryFactory(conn)
	if err != nil {
		conn.Close()
		return err
	}
	c.DBConn = conn
	c.DBDriver = conn.Driver()
	c.Repositories = factory
	c.Health.Register("database", observability.DatabaseHealthChecker(conn.Ping))
	return nil
}

func (c *Container) connectRedis(ctx context.Context) error {
	opt, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.Logger.Warn("Redis not available, snapshots cached in memory", "error", err)
		return nil
	}
	c.RedisClient = client
	c.Health.Register("redis", observability.RedisHealthChecker(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}))
	c.Logger.Info("connected to Redis")
	return nil
}

// openClientStore returns durable client storage: a dedicated SQLite file
// when CLIENT_STORE_PATH is set, otherwise the main database.
func (c *Container) openClientStore(ctx context.Context) (clientstore.Store, error) {
	if c.Config.ClientStorePath == "" {
		return c.Repositories.ClientStore(), nil
	}
	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: c.Config.ClientStorePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open client store: %w", err)
	}
	if err := migrations.Run(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate client store: %w", err)
	}
	c.clientStoreConn = conn
	return clientstore.NewSQLStore(conn), nil
}

// wire builds the services on top of the attached infrastructure.
func (c *Container) wire(ctx context.Context) error {
	cfg := c.Config
	logger := c.Logger

	executorConfig := resilience.DefaultExecutorConfig()
	executorConfig.CircuitBreakerEnabled = cfg.CircuitBreakerEnabled
	c.Executor = resilience.NewExecutor(c.Metrics, logger, executorConfig)

	c.Policies = resilience.DefaultPolicies()
	c.Policies.Read = resilience.RetryPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		Timeout:     cfg.RetryTimeout,
	}
	if err := c.Policies.Read.Validate(); err != nil {
		return fmt.Errorf("invalid retry settings: %w", err)
	}

	c.RPC = rpc.NewClient(rpc.Config{
		BaseURL: cfg.BackendURL,
		APIKey:  cfg.BackendAPIKey,
	}, rpc.SessionTokenSource(cfg.BackendSessionToken), logger)

	store, err := c.openClientStore(ctx)
	if err != nil {
		return err
	}
	c.ClientStore = store
	c.UnitOfWork = c.Repositories.UnitOfWork()

	// Billing
	var snapshots cache.Cache[billingDomain.Snapshot] = cache.NewMemory[billingDomain.Snapshot]()
	if c.RedisClient != nil {
		snapshots = cache.NewRedis[billingDomain.Snapshot](c.RedisClient, cache.DefaultRedisPrefix, logger)
	}
	c.SnapshotCache = cache.NewInstrumented(snapshots, c.Metrics, "subscription")

	c.SubscriptionResolver = billingApp.NewResolver(
		c.Repositories.SubscriptionRepository(),
		c.Repositories.ProfileRepository(),
		billingBackend.NewPremiumChecker(c.RPC, cfg.PremiumCheckPath),
		c.SnapshotCache,
		c.Executor,
		billingApp.ResolverConfig{TTL: cfg.SubscriptionCacheTTL, Policies: c.Policies},
		c.Metrics,
		logger,
	)
	c.BillingService = billingApp.NewService(
		c.Repositories.SubscriptionRepository(),
		c.Repositories.ProfileRepository(),
		c.UnitOfWork,
		c.SubscriptionResolver,
		c.EventPublisher,
		logger,
	)
	c.CacheInvalidation = billingApp.NewCacheInvalidationConsumer(c.SubscriptionResolver, logger)

	if c.OutboxRepo != nil {
		c.BillingService.WithOutbox(c.OutboxRepo)
		processorConfig := outbox.DefaultProcessorConfig()
		processorConfig.PollInterval = cfg.OutboxPollInterval
		processorConfig.BatchSize = cfg.OutboxBatchSize
		processorConfig.MaxRetries = cfg.OutboxMaxRetries
		c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, processorConfig, c.Metrics, logger)
	}

	// Referral
	affiliates := c.Repositories.AffiliateRepository()
	c.ReferralAllocator = referralApp.NewAllocator(affiliates, c.Executor, c.Policies.Read, c.Metrics, logger)
	c.ReferralTracker = referralApp.NewTracker(c.ClientStore)
	c.ReferralAcceptance = referralApp.NewAcceptanceService(
		c.ReferralTracker,
		referralBackend.NewCreditGateway(c.RPC),
		c.Executor,
		c.Policies.Write,
		c.Metrics,
		logger,
	)
	c.AffiliateService = referralApp.NewAffiliateService(affiliates, c.ReferralAllocator, logger)

	// Social
	providers := socialDomain.DefaultCatalogue()
	for name, settings := range cfg.Social {
		providers.Override(name, settings.ClientID, settings.AuthURL, settings.TokenURL, settings.Scopes)
	}
	c.SocialService = socialApp.NewService(
		socialBackend.NewGateway(c.RPC),
		providers,
		c.Executor,
		c.Policies.Write,
		c.Metrics,
		logger,
	)

	return nil
}

// Close releases all resources.
func (c *Container) Close() {
	var errs []error
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event publisher: %w", err))
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if c.clientStoreConn != nil {
		if err := c.clientStoreConn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("client store: %w", err))
		}
	}
	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		c.Logger.Warn("error closing container", "error", err)
	}
}
