package router

import (
	"github.com/gin-gonic/gin"
	"github.com/n3/backend/internal/interfaces/http/handler"
	"github.com/n3/backend/internal/interfaces/http/middleware"
)

// Handlers are the API handlers mounted by DomainGroups
type Handlers struct {
	Pricing   *handler.PricingHandler
	Strategy  *handler.StrategyHandler
	Execution *handler.ExecutionHandler
	Pipeline  *handler.PipelineHandler
	Shipping  *handler.ShippingHandler
	Webhook   *handler.WebhookHandler
	Import    *handler.ImportHandler
	System    *handler.SystemHandler
}

// APIOptions tunes the per-group middleware
type APIOptions struct {
	// WebhookSecret enables signature checks on /webhooks. Empty disables them.
	WebhookSecret string
}

// DomainGroups builds the versioned API groups. Nil handlers are skipped.
func DomainGroups(h Handlers, opts APIOptions) []RouteRegistrar {
	var groups []RouteRegistrar

	if h.Pricing != nil {
		g := NewDomainGroup("pricing", "/price")
		g.POST("/calculate", h.Pricing.Calculate).
			GET("/calculate", h.Pricing.CalculateForProduct)
		groups = append(groups, g)
	}

	if h.Strategy != nil {
		g := NewDomainGroup("strategy", "/strategy")
		g.POST("/determine-listing", h.Strategy.DetermineBatch).
			GET("/determine-listing", h.Strategy.DetermineForSKU)
		groups = append(groups, g)
	}

	if h.Execution != nil || h.Pipeline != nil {
		g := NewDomainGroup("listing", "/listing")
		if h.Execution != nil {
			g.POST("/execute", h.Execution.Execute).
				GET("/execute", h.Execution.Status).
				POST("/retry", h.Execution.Retry)
		}
		if h.Pipeline != nil {
			g.POST("/pipeline", h.Pipeline.Run)
		}
		groups = append(groups, g)
	}

	if h.Shipping != nil {
		g := NewDomainGroup("shipping", "/shipping")
		g.POST("/rate-tables", h.Shipping.GenerateRateTable).
			POST("/quote", h.Shipping.Quote)
		groups = append(groups, g)
	}

	if h.Import != nil {
		g := NewDomainGroup("imports", "/imports")
		g.POST("/shipping-rates", h.Import.ImportShippingRates).
			POST("/duty-rates", h.Import.ImportDutyRates)
		groups = append(groups, g)
	}

	if h.Webhook != nil {
		g := NewDomainGroup("webhooks", "/webhooks")
		g.Use(middleware.WebhookSignature(opts.WebhookSecret))
		g.POST("/price-drop", h.Webhook.PriceDrop)
		groups = append(groups, g)
	}

	if h.System != nil || h.Strategy != nil {
		g := NewDomainGroup("system", "/system")
		if h.Strategy != nil {
			g.GET("/strategies", h.Strategy.ListStrategies)
		}
		if h.System != nil {
			g.GET("/scheduler", h.System.SchedulerStatus).
				POST("/scheduler/:job/trigger", h.System.TriggerJob)
		}
		groups = append(groups, g)
	}

	return groups
}

// RegisterHealthRoutes mounts the unversioned liveness and readiness checks
func RegisterHealthRoutes(routes gin.IRoutes, system *handler.SystemHandler) {
	routes.GET("/health", system.Health)
	routes.GET("/health/ready", system.Ready)
}
