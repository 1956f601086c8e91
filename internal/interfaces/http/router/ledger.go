package router

import (
	"github.com/club19/salesos/internal/interfaces/http/handler"
	"github.com/club19/salesos/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers bundles the HTTP handlers of the ledger API
type Handlers struct {
	Sales       *handler.SaleHandler
	Errors      *handler.ErrorLogHandler
	Webhook     *handler.WebhookHandler
	Integration *handler.IntegrationHandler
	System      *handler.SystemHandler
}

// Options controls route protection
type Options struct {
	APIVersion string
	// Auth guards the operator API. It must not be nil.
	Auth gin.HandlerFunc
	// RateLimit is optional and only wraps the operator API.
	RateLimit gin.HandlerFunc
	Swagger   middleware.SwaggerConfig
	// SwaggerUI serves /swagger/*any when Swagger.Enabled is set.
	SwaggerUI gin.HandlerFunc
}

// RegisterLedgerAPI mounts every ledger route on engine. The webhook is
// authenticated by its signature and is never behind Auth or RateLimit.
func RegisterLedgerAPI(engine *gin.Engine, h Handlers, opts Options) []*Section {
	if opts.Auth == nil {
		panic("router: Options.Auth is required")
	}
	engine.GET("/health", h.System.Health)
	if opts.SwaggerUI != nil {
		engine.GET("/swagger/*any", middleware.SwaggerProtection(opts.Swagger, opts.Auth), opts.SwaggerUI)
	}

	webhooks := NewSection("webhooks", "/webhooks")
	webhooks.POST("/xero", h.Webhook.HandleXeroWebhook)

	public := NewSection("system-public", "/system")
	public.GET("/ping", h.System.Ping)

	ops := NewSection("ops", "").Guard(opts.Auth, opts.RateLimit)

	ops.Nest("sales", "/sales").
		GET("", h.Sales.List).
		GET("/:id", h.Sales.Get).
		POST("/:id/transition", h.Sales.Transition)

	ops.Nest("errors", "/errors").
		GET("", h.Errors.List).
		GET("/:id", h.Errors.Get).
		POST("/:id/resolve", h.Errors.Resolve)

	ops.Nest("integration", "/integration").
		GET("/credential/health", h.Integration.CredentialHealth)

	ops.Nest("system", "/system").
		GET("/info", h.System.GetSystemInfo)

	sections := []*Section{webhooks, public, ops}
	Mount(engine, opts.APIVersion, sections...)
	return sections
}
