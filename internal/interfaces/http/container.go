package http

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"msgdeck/internal/domain/shared/events"
	"msgdeck/internal/infrastructure/auth"
	"msgdeck/internal/infrastructure/cache"
	"msgdeck/internal/infrastructure/config"
	"msgdeck/internal/infrastructure/metrics"
	"msgdeck/internal/infrastructure/permission"
	"msgdeck/internal/infrastructure/pubsub"
	"msgdeck/internal/infrastructure/scheduler"
	"msgdeck/internal/infrastructure/seed"
	"msgdeck/internal/interfaces/http/middleware"
	"msgdeck/internal/shared/logger"
)

// Container holds all infrastructure components, repositories, use cases, handlers
// and middlewares, wired together. Shutdown releases what it opened.
type Container struct {
	// Core infrastructure
	engine  *gin.Engine
	db      *gorm.DB
	cfg     *config.Config
	log     logger.Interface
	version string

	store     *cache.BestEffort
	publisher events.EventPublisher
	metrics   *metrics.Metrics
	jwtSvc    *auth.JWTService
	enforcer  *permission.Enforcer

	repos *repositories
	ucs   *allUseCases
	hdlrs *allHandlers

	authMiddleware       *middleware.AuthMiddleware
	permissionMiddleware *middleware.PermissionMiddleware

	closers []func() error
}

// NewContainer builds the application graph on top of an open database.
func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config, version string, log logger.Interface) (*Container, error) {
	c := &Container{
		engine:  gin.New(),
		db:      db,
		cfg:     cfg,
		log:     log,
		version: version,
	}

	if err := c.initInfrastructure(ctx); err != nil {
		c.Shutdown()
		return nil, err
	}
	c.initRepositories()
	if err := c.initUseCases(); err != nil {
		c.Shutdown()
		return nil, err
	}
	if err := c.initAuth(); err != nil {
		c.Shutdown()
		return nil, err
	}
	if err := c.initHandlers(); err != nil {
		c.Shutdown()
		return nil, err
	}
	return c, nil
}

func (c *Container) initInfrastructure(ctx context.Context) error {
	if c.cfg.Metrics.Enabled {
		c.metrics = metrics.New(c.cfg.Metrics.Namespace)
	}

	backend, closeCache, err := cache.New(ctx, c.cfg.Cache, c.cfg.Redis, c.log.Named("cache"))
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	c.closers = append(c.closers, closeCache)
	c.store = cache.NewBestEffort(backend, c.log.Named("cache"), c.metrics)

	publisher, closePublisher, err := pubsub.NewPublisher(c.cfg.Events, c.log.Named("events"))
	if err != nil {
		return fmt.Errorf("failed to initialize event publisher: %w", err)
	}
	c.publisher = publisher
	c.closers = append(c.closers, func() error {
		closePublisher()
		return nil
	})

	return nil
}

func (c *Container) initAuth() error {
	jwtCfg := c.cfg.Auth.JWT
	c.jwtSvc = auth.NewJWTService(jwtCfg.Secret, jwtCfg.Issuer, jwtCfg.AccessExpMinutes)

	enforcer, err := permission.NewEnforcer(c.db, c.log.Named("permission"))
	if err != nil {
		return fmt.Errorf("failed to initialize permission enforcer: %w", err)
	}
	if c.cfg.Permission.SeedDefaults {
		added, err := enforcer.Seed(permission.DefaultPolicies())
		if err != nil {
			return fmt.Errorf("failed to seed default policies: %w", err)
		}
		if added > 0 {
			c.log.Infow("seeded default permission policies", "count", added)
		}
	}
	c.enforcer = enforcer

	c.authMiddleware = middleware.NewAuthMiddleware(c.jwtSvc, c.log)
	c.permissionMiddleware = middleware.NewPermissionMiddleware(enforcer, c.log)
	return nil
}

// RegisterJobs adds the maintenance jobs to sched. Each run is counted in metrics.
func (c *Container) RegisterJobs(sched *scheduler.SchedulerManager) error {
	specs := c.cfg.Scheduler
	jobs := []struct {
		name string
		spec string
		job  scheduler.BatchJob
	}{
		{scheduler.JobExpireSubscriptions, specs.ExpireSpec, scheduler.NewExpireSubscriptionsJob(c.ucs.ledger)},
		{scheduler.JobMonthlyReset, specs.MonthlyResetSpec, scheduler.NewMonthlyResetJob(c.ucs.ledger, c.ucs.usageMeter, c.log.Named("jobs"))},
		{scheduler.JobPlanWarm, specs.PlanWarmSpec, scheduler.NewPlanWarmJob(c.ucs.planCatalog)},
	}
	for _, j := range jobs {
		if err := sched.Register(j.name, j.spec, jobTimeout, &meteredJob{name: j.name, job: j.job, metrics: c.metrics}); err != nil {
			return err
		}
	}
	return nil
}

// PlanSeeder upserts plan definitions through the catalogue so caches stay coherent.
func (c *Container) PlanSeeder() *seed.PlanSeeder {
	return seed.NewPlanSeeder(c.ucs.planCatalog, c.log.Named("seed"))
}

func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

// Shutdown releases cache and broker connections in reverse order of creation.
func (c *Container) Shutdown() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.log.Warnw("failed to release resource", "error", err)
		}
	}
	c.closers = nil
}
