package http

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/lexora-inc/lexora/internal/application/billing"
	"github.com/lexora-inc/lexora/internal/application/billing/paymentprovider"
	"github.com/lexora-inc/lexora/internal/application/billing/usecases"
	appentitlement "github.com/lexora-inc/lexora/internal/application/entitlement"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	"github.com/lexora-inc/lexora/internal/infrastructure/auth"
	"github.com/lexora-inc/lexora/internal/infrastructure/cache"
	"github.com/lexora-inc/lexora/internal/infrastructure/config"
	"github.com/lexora-inc/lexora/internal/infrastructure/email"
	"github.com/lexora-inc/lexora/internal/infrastructure/payment/paystack"
	"github.com/lexora-inc/lexora/internal/infrastructure/payment/polar"
	"github.com/lexora-inc/lexora/internal/infrastructure/payment/stripe"
	"github.com/lexora-inc/lexora/internal/infrastructure/permission"
	"github.com/lexora-inc/lexora/internal/infrastructure/ratelimit"
	"github.com/lexora-inc/lexora/internal/infrastructure/repository"
	"github.com/lexora-inc/lexora/internal/interfaces/http/handlers"
	"github.com/lexora-inc/lexora/internal/interfaces/http/middleware"
	"github.com/lexora-inc/lexora/internal/shared/db"
	"github.com/lexora-inc/lexora/internal/shared/logger"
	"github.com/lexora-inc/lexora/internal/shared/services/markdown"
)

const redisPingTimeout = 3 * time.Second

// Container holds the infrastructure, services, use cases and handlers of
// the HTTP server and wires them together.
type Container struct {
	// Core infrastructure
	engine *gin.Engine
	db     *gorm.DB
	sqlDB  *sql.DB
	cfg    *config.Config
	log    logger.Interface
	redis  *redis.Client // nil when Redis is disabled

	renderer *markdown.Renderer

	// Entitlements
	entitlementSvc *appentitlement.Service

	// Billing
	gateways   *billing.Gateways
	reconciler *usecases.Reconciler
	checkoutUC *usecases.CreateCheckoutUseCase
	portalUC   *usecases.CreatePortalSessionUseCase
	webhookUC  *usecases.ProcessWebhookUseCase
	verifiers  handlers.WebhookVerifiers

	// Auth
	jwtSvc   *auth.JWTService
	enforcer *permission.Enforcer

	// Middlewares
	authMiddleware        *middleware.AuthMiddleware
	permissionMiddleware  *middleware.PermissionMiddleware
	entitlementMiddleware *middleware.EntitlementMiddleware
	rateLimitMiddleware   *middleware.RateLimitMiddleware

	// Handlers
	healthHandler        *handlers.HealthHandler
	planHandler          *handlers.PlanHandler
	entitlementHandler   *handlers.EntitlementHandler
	usageHandler         *handlers.UsageHandler
	billingHandler       *handlers.BillingHandler
	webhookHandler       *handlers.WebhookHandler
	adminOverrideHandler *handlers.AdminOverrideHandler
}

// NewContainer wires every component. It fails when a required dependency
// such as the JWT verifier or the policy store cannot be built.
func NewContainer(database *gorm.DB, cfg *config.Config, log logger.Interface) (*Container, error) {
	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	c := &Container{
		engine:   gin.New(),
		db:       database,
		sqlDB:    sqlDB,
		cfg:      cfg,
		log:      log,
		renderer: markdown.NewRenderer(),
	}

	// Section 1: Entitlements - repositories, cache, resolver
	c.initEntitlements()

	// Section 2: Billing - gateways, reconciliation, webhooks
	if err := c.initBilling(); err != nil {
		return nil, err
	}

	// Section 3: Auth - token verification, casbin policies
	if err := c.initAuth(); err != nil {
		return nil, err
	}

	// Section 4: HTTP handlers
	c.initHandlers()

	return c, nil
}

func (c *Container) initEntitlements() {
	subscriptionRepo := repository.NewSubscriptionRepository(c.db, c.log)
	usageRepo := repository.NewUsageRepository(c.db, c.log)
	txManager := db.NewTransactionManager(c.db)

	c.entitlementSvc = appentitlement.NewService(subscriptionRepo, usageRepo, txManager, c.newEntitlementCache(), c.log)
}

func (c *Container) newEntitlementCache() appentitlement.EntitlementCache {
	if !c.cfg.Redis.Enabled {
		c.log.Infow("redis disabled, entitlement views are resolved on every request")
		return cache.NewNopEntitlementCache()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     c.cfg.Redis.GetAddr(),
		Password: c.cfg.Redis.Password,
		DB:       c.cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// The database stays authoritative; run uncached until Redis is back.
		c.log.Warnw("redis unreachable, entitlement cache disabled", "addr", c.cfg.Redis.GetAddr(), "error", err)
		_ = client.Close()
		return cache.NewNopEntitlementCache()
	}

	c.redis = client
	c.log.Infow("entitlement cache enabled", "addr", c.cfg.Redis.GetAddr(), "ttl", c.cfg.Entitlement.CacheTTL())
	return cache.NewRedisEntitlementCache(client, c.cfg.Entitlement.CacheTTL(), c.log)
}

func (c *Container) initBilling() error {
	bc := c.cfg.Billing

	var gws []paymentprovider.Gateway
	if bc.Stripe.SecretKey != "" {
		gws = append(gws, stripe.NewGateway(bc.Stripe, bc, c.log))
		if bc.Stripe.WebhookSecret != "" {
			c.verifiers.Stripe = stripe.NewWebhookVerifier(bc.Stripe.WebhookSecret)
		}
	}
	if bc.Polar.AccessToken != "" {
		gws = append(gws, polar.NewGateway(bc.Polar, bc, c.log))
		if bc.Polar.WebhookSecret != "" {
			c.verifiers.Polar = polar.NewWebhookVerifier(bc.Polar.WebhookSecret)
		}
	}
	if bc.Paystack.SecretKey != "" {
		// Paystack signs webhooks with the API secret key.
		gws = append(gws, paystack.NewGateway(bc.Paystack, bc, c.log))
		c.verifiers.Paystack = paystack.NewWebhookVerifier(bc.Paystack.SecretKey)
	}

	defaultProvider := vo.ProviderStripe
	if bc.DefaultProvider != "" {
		p, ok := vo.ParseProvider(bc.DefaultProvider)
		if !ok {
			return fmt.Errorf("unknown default payment provider %q", bc.DefaultProvider)
		}
		defaultProvider = p
	}
	c.gateways = billing.NewGateways(defaultProvider, gws...)
	if len(gws) == 0 {
		c.log.Warnw("no payment provider configured, checkout and portal are unavailable")
	} else {
		c.log.Infow("payment providers configured", "providers", c.gateways.Providers(), "default", defaultProvider)
	}

	subscriptionRepo := repository.NewSubscriptionRepository(c.db, c.log)
	eventRepo := repository.NewBillingEventRepository(c.db, c.log)
	txManager := db.NewTransactionManager(c.db)
	prices := billing.NewPriceBook(bc)

	c.reconciler = usecases.NewReconciler(subscriptionRepo, txManager, prices, c.entitlementSvc, c.log)
	if c.cfg.Email.Enabled && len(c.cfg.Email.BillingAlertsTo) > 0 {
		c.reconciler.SetNotifier(email.NewBillingNotifier(
			email.NewSMTPSender(c.cfg.Email),
			c.renderer,
			c.cfg.Email.BillingAlertsTo,
			c.log,
		))
	}

	customerUC := usecases.NewGetOrCreateCustomerUseCase(subscriptionRepo, txManager, c.gateways, c.log)
	c.checkoutUC = usecases.NewCreateCheckoutUseCase(c.gateways, prices, customerUC, usecases.CheckoutURLs{
		SuccessURL: bc.SuccessURL,
		CancelURL:  bc.CancelURL,
	}, c.log)
	c.portalUC = usecases.NewCreatePortalSessionUseCase(subscriptionRepo, c.gateways, bc.PortalReturnURL, c.log)

	c.webhookUC = usecases.NewProcessWebhookUseCase(
		eventRepo,
		usecases.NewSyncStripeSubscriptionUseCase(c.reconciler),
		usecases.NewSyncPolarSubscriptionUseCase(c.reconciler),
		usecases.NewSyncPaystackSubscriptionUseCase(c.reconciler),
		usecases.NewHandleSubscriptionCanceledUseCase(c.reconciler),
		c.log,
	)
	return nil
}

func (c *Container) initAuth() error {
	jwtSvc, err := auth.NewJWTService(c.cfg.Auth.JWT)
	if err != nil {
		return fmt.Errorf("failed to initialize jwt verifier: %w", err)
	}
	c.jwtSvc = jwtSvc

	enforcer, err := permission.NewEnforcer(c.db, c.log)
	if err != nil {
		return fmt.Errorf("failed to initialize permission enforcer: %w", err)
	}
	if err := enforcer.Sync(c.cfg.Auth.PolicyAdmins); err != nil {
		return fmt.Errorf("failed to sync billing policies: %w", err)
	}
	c.enforcer = enforcer

	c.authMiddleware = middleware.NewAuthMiddleware(c.jwtSvc, c.log)
	c.permissionMiddleware = middleware.NewPermissionMiddleware(c.enforcer, c.log)
	c.entitlementMiddleware = middleware.NewEntitlementMiddleware(c.entitlementSvc, c.log)
	c.rateLimitMiddleware = middleware.NewRateLimitMiddleware(c.newRateLimiter(), c.log)
	return nil
}

// newRateLimiter shares the client opened for the entitlement cache.
func (c *Container) newRateLimiter() ratelimit.RateLimiter {
	if c.redis == nil {
		return ratelimit.NewNopRateLimiter()
	}
	return ratelimit.NewRedisRateLimiter(c.redis)
}

func (c *Container) initHandlers() {
	c.healthHandler = handlers.NewHealthHandler(c.sqlDB, c.log)
	c.planHandler = handlers.NewPlanHandler(c.renderer, c.log)
	c.entitlementHandler = handlers.NewEntitlementHandler(c.entitlementSvc, c.log)
	c.usageHandler = handlers.NewUsageHandler(c.entitlementSvc, c.log)
	c.billingHandler = handlers.NewBillingHandler(c.checkoutUC, c.portalUC, c.log)
	c.webhookHandler = handlers.NewWebhookHandler(c.verifiers, c.webhookUC, c.log)
	c.adminOverrideHandler = handlers.NewAdminOverrideHandler(c.entitlementSvc, c.renderer, c.log)
}

// Shutdown releases the connections the container opened. The database pool
// belongs to the caller.
func (c *Container) Shutdown() {
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.log.Warnw("failed to close redis client", "error", err)
		}
	}
}
