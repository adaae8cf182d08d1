package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/upb/inventory-identity/config"
	"github.com/upb/inventory-identity/handlers"
	"github.com/upb/inventory-identity/internal/policy"
	"github.com/upb/inventory-identity/middleware"
	"github.com/upb/inventory-identity/repositories"
	"github.com/upb/inventory-identity/repositories/sqldb"
	"github.com/upb/inventory-identity/services/audit"
	"github.com/upb/inventory-identity/services/auth"
	"github.com/upb/inventory-identity/services/ratelimit"
	"github.com/upb/inventory-identity/services/store"
	"go.uber.org/zap"
)

const auditDrainTimeout = 5 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *sqldb.DB
	Redis  *redis.Client
	Logger *zap.Logger

	RepoFactory *sqldb.RepositoryFactory
	Repos       *repositories.Repositories
	TxManager   repositories.TransactionManager

	// Services
	Audit     *audit.AuditService
	Auth      *auth.Service
	Stores    *store.Service
	RateLimit *ratelimit.RateLimitService
	Policy    *policy.Engine

	// Guards
	Proxies      *middleware.TrustedProxies
	AccessGuard  *middleware.AccessGuard
	RefreshGuard *middleware.RefreshGuard
	RoleGuard    *middleware.RoleGuard
	RateLimiter  *middleware.RateLimiter

	// Handlers
	AuthHandler   *handlers.AuthHandler
	UserHandler   *handlers.UserHandler
	StoreHandler  *handlers.StoreHandler
	AuditHandler  *handlers.AuditHandler
	HealthHandler *handlers.HealthHandler

	amqpSink *audit.AMQPSink
}

// NewDependencies creates and wires up all application dependencies.
// On failure everything opened so far is closed again.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	d := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := d.init(ctx, cfg); err != nil {
		if closeErr := d.Close(context.Background()); closeErr != nil {
			logger.Warn("cleanup after failed initialization", zap.Error(closeErr))
		}
		return nil, err
	}

	logger.Info("all dependencies initialized successfully")
	return d, nil
}

func (d *Dependencies) init(ctx context.Context, cfg *config.Config) error {
	if err := d.initDatabase(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := d.initAudit(cfg); err != nil {
		return fmt.Errorf("failed to initialize audit: %w", err)
	}
	if err := d.initServices(cfg); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := d.initRateLimit(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize rate limiter: %w", err)
	}
	if err := d.initPolicy(cfg); err != nil {
		return fmt.Errorf("failed to initialize route policy: %w", err)
	}
	if err := d.initHTTP(cfg); err != nil {
		return fmt.Errorf("failed to initialize http layer: %w", err)
	}
	return nil
}

// initDatabase opens the configured database and builds the repositories
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := sqldb.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if cfg.Database.AutoMigrate {
		if err := d.DB.InitSchema(ctx); err != nil {
			return err
		}
	}

	d.Repos = factory.NewRepositories()
	d.TxManager = factory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
	return nil
}

// initAudit starts the asynchronous audit pipeline. Events always land in the
// database; with AMQP enabled they are also published to the audit queue.
func (d *Dependencies) initAudit(cfg *config.Config) error {
	var sink audit.Sink = audit.NewRepositorySink(d.Repos.AuditLogs)

	if cfg.AMQP.Enabled {
		amqpSink, err := audit.DialAMQPSink(cfg.AMQP.URL, cfg.AMQP.AuditQueue, d.Logger)
		if err != nil {
			return err
		}
		d.amqpSink = amqpSink
		sink = audit.MultiSink{sink, amqpSink}
	}

	d.Audit = audit.NewAuditService(d.Repos.AuditLogs, sink, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})
	return d.Audit.Start()
}

func (d *Dependencies) initServices(cfg *config.Config) error {
	hasher, err := auth.NewArgon2Hasher(auth.DefaultArgon2Params, cfg.Auth.HashConcurrency)
	if err != nil {
		return fmt.Errorf("failed to create password hasher: %w", err)
	}

	issuer := auth.NewTokenIssuer(cfg.Auth)
	d.Auth = auth.NewService(d.Repos, d.TxManager, hasher, issuer, d.Audit, d.Logger)
	d.Stores = store.NewService(d.Repos.Stores, d.Audit, d.Logger)
	return nil
}

// initRateLimit connects to redis when the limiter is enabled. Without redis
// the auth routes are served unthrottled.
func (d *Dependencies) initRateLimit(ctx context.Context, cfg *config.Config) error {
	if !cfg.RateLimit.Enabled || !cfg.Redis.Enabled {
		d.Logger.Warn("rate limiting disabled",
			zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
			zap.Bool("redis_enabled", cfg.Redis.Enabled))
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	d.Redis = client

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		// The limiter fails open, so an unreachable redis at boot is not fatal.
		d.Logger.Warn("redis not reachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	d.RateLimit = ratelimit.NewRateLimitService(client, cfg.RateLimit, d.Logger)
	return nil
}

func (d *Dependencies) initPolicy(cfg *config.Config) error {
	routes, err := policy.LoadFile(cfg.RoutePolicyFile, policy.DefaultRoutes())
	if err != nil {
		return err
	}
	d.Policy = policy.NewEngine(routes)
	if cfg.RoutePolicyFile != "" {
		d.Logger.Info("route policy loaded", zap.String("file", cfg.RoutePolicyFile), zap.Int("routes", len(routes)))
	}
	return nil
}

func (d *Dependencies) initHTTP(cfg *config.Config) error {
	proxies, err := middleware.NewTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}
	d.Proxies = proxies

	d.AccessGuard = middleware.NewAccessGuard(d.Auth, d.Logger)
	d.RefreshGuard = middleware.NewRefreshGuard(d.Auth.Issuer(), d.Logger)
	d.RoleGuard = middleware.NewRoleGuard(d.Policy, d.Logger)

	var checker middleware.RateLimitChecker
	if d.RateLimit != nil {
		checker = d.RateLimit
	}
	d.RateLimiter = middleware.NewRateLimiter(checker, d.Logger)

	d.AuthHandler = handlers.NewAuthHandler(d.Auth, cfg.Auth, d.Logger)
	d.UserHandler = handlers.NewUserHandler(d.Auth, d.Logger)
	d.StoreHandler = handlers.NewStoreHandler(d.Stores, d.Logger)
	d.AuditHandler = handlers.NewAuditHandler(d.Audit, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.healthChecks(), d.Logger)
	return nil
}

func (d *Dependencies) healthChecks() map[string]handlers.HealthChecker {
	checks := map[string]handlers.HealthChecker{
		"database": d.DB,
	}
	if d.Redis != nil {
		client := d.Redis
		checks["redis"] = handlers.HealthCheckFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
	return checks
}

// Close gracefully shuts down all dependencies. Queued audit events are
// drained before the database is closed.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Audit != nil {
		timeout := auditDrainTimeout
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) > 0 {
			timeout = time.Until(deadline)
		}
		if err := d.Audit.Stop(timeout); err != nil && !errors.Is(err, audit.ErrNotRunning) {
			errs = append(errs, fmt.Errorf("failed to drain audit events: %w", err))
		}
	}

	if d.amqpSink != nil {
		if err := d.amqpSink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close amqp sink: %w", err))
		}
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
