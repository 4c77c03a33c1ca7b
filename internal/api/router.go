package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apiContext "sentinel/internal/api/context"
	"sentinel/internal/api/handlers"
	"sentinel/internal/api/middleware"
)

type Dependencies struct {
	AuthHandler     *handlers.AuthHandler
	MessageHandler  *handlers.MessageHandler
	CaseHandler     *handlers.CaseHandler
	KeywordHandler  *handlers.KeywordHandler
	RuleHandler     *handlers.RuleHandler
	WebhookHandler  *handlers.WebhookHandler
	SettingsHandler *handlers.SettingsHandler
	AuditHandler    *handlers.AuditHandler
	HealthHandler   *handlers.HealthHandler

	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	authMid := deps.AuthMiddleware.Handle
	read := deps.RateLimiter.Limit("api_read")
	write := deps.RateLimiter.Limit("api_write")
	ingest := deps.RateLimiter.Limit("ingest")
	admin := middleware.RequireRole("admin")

	router.GET("/health", wrap(deps.HealthHandler.Check))
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	router.POST("/api/v1/auth/login", wrap(deps.AuthHandler.Login))

	// Inbound message/transcript text
	router.POST("/api/v1/messages",
		chain(deps.MessageHandler.Ingest, authMid, ingest))

	// Cases
	router.GET("/api/v1/cases",
		chain(deps.CaseHandler.List, authMid, read))
	router.GET("/api/v1/cases/:case_id",
		chain(deps.CaseHandler.Get, authMid, read))
	router.GET("/api/v1/cases/:case_id/attempts",
		chain(deps.CaseHandler.Attempts, authMid, read))
	router.POST("/api/v1/cases/:case_id/ack",
		chain(deps.CaseHandler.Acknowledge, authMid, write))

	// Urgent keywords
	router.POST("/api/v1/keywords",
		chain(deps.KeywordHandler.Create, authMid, admin, write))
	router.GET("/api/v1/keywords",
		chain(deps.KeywordHandler.List, authMid, read))
	router.PATCH("/api/v1/keywords/:keyword_id",
		chain(deps.KeywordHandler.Update, authMid, admin, write))
	router.DELETE("/api/v1/keywords/:keyword_id",
		chain(deps.KeywordHandler.Delete, authMid, admin, write))

	// Escalation rules
	router.POST("/api/v1/rules",
		chain(deps.RuleHandler.Create, authMid, admin, write))
	router.GET("/api/v1/rules",
		chain(deps.RuleHandler.List, authMid, read))
	router.PATCH("/api/v1/rules/:rule_id",
		chain(deps.RuleHandler.Update, authMid, admin, write))
	router.DELETE("/api/v1/rules/:rule_id",
		chain(deps.RuleHandler.Delete, authMid, admin, write))

	// Webhooks
	router.POST("/api/v1/webhooks",
		chain(deps.WebhookHandler.Create, authMid, admin, write))
	router.GET("/api/v1/webhooks",
		chain(deps.WebhookHandler.List, authMid, read))
	router.GET("/api/v1/webhooks/:webhook_id",
		chain(deps.WebhookHandler.Get, authMid, read))
	router.PATCH("/api/v1/webhooks/:webhook_id",
		chain(deps.WebhookHandler.Update, authMid, admin, write))
	router.DELETE("/api/v1/webhooks/:webhook_id",
		chain(deps.WebhookHandler.Delete, authMid, admin, write))
	router.GET("/api/v1/webhooks/:webhook_id/deliveries",
		chain(deps.WebhookHandler.Deliveries, authMid, read))

	// Provider settings
	router.GET("/api/v1/settings/:setting_type",
		chain(deps.SettingsHandler.Get, authMid, admin, read))
	router.PUT("/api/v1/settings/:setting_type",
		chain(deps.SettingsHandler.Put, authMid, admin, write))

	// Audit trail
	router.GET("/api/v1/audit-logs",
		chain(deps.AuditHandler.List, authMid, admin, read))

	return router
}

// chain applies middlewares right to left around the handler.
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// wrap converts http.HandlerFunc to httprouter.Handle, injecting route
// params into the request context.
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
