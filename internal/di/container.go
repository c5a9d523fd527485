package di

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/marginlab/api/internal/handlers"
	"github.com/marginlab/api/internal/platform/config"
	"github.com/marginlab/api/internal/platform/observability"
	"github.com/marginlab/api/internal/platform/requestctx"
	"github.com/marginlab/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Schedules services.FeeScheduleService
	Pricing   services.PricingService
	Bundles   services.BundleService
	Finder    services.PriceFinderService
	Insights  services.InsightService
}

// Container wires services, handlers, and the HTTP router for runtime use.
type Container struct {
	Config   config.Config
	Services Services
	Metrics  *observability.Metrics
	Router   chi.Router
}

// NewContainer constructs the runtime dependencies. The logger may be nil, in
// which case service-level events are dropped.
func NewContainer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Container, error) {
	svc, err := buildServices(logger)
	if err != nil {
		return nil, err
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("register pricing metrics: %w", err)
	}

	pricingHandlers := handlers.NewPricingHandlers(handlers.PricingHandlersConfig{
		Schedules: svc.Schedules,
		Pricing:   svc.Pricing,
		Bundles:   svc.Bundles,
		Finder:    svc.Finder,
		Insights:  svc.Insights,

		Metrics:     metrics,
		RateLimiter: handlers.NewRequestRateLimiter(cfg.RateLimits.DefaultPerMinute),
		Defaults: handlers.ScheduleDefaults{
			Marketplace:   cfg.Pricing.DefaultMarketplace,
			SellerTier:    cfg.Pricing.DefaultSellerTier,
			CategoryGroup: cfg.Pricing.DefaultCategoryGroup,
		},

		MaxBodyBytes:   cfg.Pricing.MaxBodyBytes,
		MaxBundleItems: cfg.Pricing.MaxBundleItems,

		EnableInsights:    cfg.Features.EnableInsights,
		EnablePriceFinder: cfg.Features.EnablePriceFinder,
	})
	marketplaceHandlers := handlers.NewMarketplaceHandlers(svc.Schedules)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.TraceMiddleware(),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithPricingRoutes(pricingHandlers.Routes),
		handlers.WithMarketplaceRoutes(marketplaceHandlers.Routes),
	)

	return &Container{
		Config:   cfg,
		Services: svc,
		Metrics:  metrics,
		Router:   router,
	}, nil
}

// Handler exposes the assembled HTTP surface.
func (c *Container) Handler() http.Handler {
	if c == nil {
		return nil
	}
	return c.Router
}

func buildServices(logger *zap.Logger) (Services, error) {
	var svc Services

	serviceLogger := serviceEventLogger(logger)

	svc.Schedules = services.NewFeeScheduleService()

	engine := services.NewPricingEngine(services.PricingEngineDeps{
		Logger: serviceLogger,
	})
	svc.Pricing = engine

	bundles, err := services.NewBundleService(services.BundleServiceDeps{
		Engine: engine,
		Logger: serviceLogger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build bundle service: %w", err)
	}
	svc.Bundles = bundles

	finder, err := services.NewPriceFinderService(services.PriceFinderServiceDeps{
		Bundles: bundles,
		Logger:  serviceLogger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build price finder service: %w", err)
	}
	svc.Finder = finder

	svc.Insights = services.NewInsightService()

	return svc, nil
}

// serviceEventLogger adapts the zap logger to the event callback the pricing
// services accept. The request-scoped logger from context wins when present.
func serviceEventLogger(base *zap.Logger) func(context.Context, string, map[string]any) {
	if base == nil {
		base = requestctx.NoopLogger()
	}
	return func(ctx context.Context, event string, fields map[string]any) {
		logger := requestctx.Logger(ctx)
		if logger == requestctx.NoopLogger() {
			logger = base
		}
		zapFields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zapFields = append(zapFields, zap.Any(key, value))
		}
		logger.Info(event, zapFields...)
	}
}
