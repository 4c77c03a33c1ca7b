package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"sentinel/internal/api"
	"sentinel/internal/api/handlers"
	"sentinel/internal/api/middleware"
	"sentinel/internal/engine/detect"
	"sentinel/internal/engine/escalation"
	"sentinel/internal/engine/ledger"
	"sentinel/internal/engine/policy"
	"sentinel/internal/engine/webhooks"
	"sentinel/internal/pkg/logger"
	"sentinel/internal/pkg/metrics"
	"sentinel/internal/platform/audit"
	"sentinel/internal/platform/auth"
	"sentinel/internal/platform/config"
	"sentinel/internal/platform/database"
	"sentinel/internal/platform/repositories"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	m := metrics.New(prometheus.DefaultRegisterer)

	// Repositories and engine components
	userRepo := repositories.NewUserRepository(db)
	webhookRepo := repositories.NewWebhookRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)
	keywordRepo := detect.NewRepository(db)
	caseRepo := escalation.NewRepository(db)
	policyStore := policy.NewStore(db)
	deliveryLedger := ledger.New(db)
	auditLog := audit.NewLogger(db)

	notifier := webhooks.NewNotifier(webhookRepo, cfg.Webhooks, m)
	detector := detect.NewDetector(keywordRepo)
	caseSvc := escalation.NewService(caseRepo, policyStore, notifier, m, cfg.Escalation.DefaultRecipient)

	tokenSvc := auth.NewTokenService(cfg.JWT)

	if err := bootstrapAdmin(userRepo, cfg.Bootstrap); err != nil {
		log.Fatalf("Failed to bootstrap admin user: %v", err)
	}

	deps := &api.Dependencies{
		AuthHandler:     handlers.NewAuthHandler(userRepo, tokenSvc),
		MessageHandler:  handlers.NewMessageHandler(detector, caseSvc),
		CaseHandler:     handlers.NewCaseHandler(caseSvc, deliveryLedger),
		KeywordHandler:  handlers.NewKeywordHandler(keywordRepo, auditLog),
		RuleHandler:     handlers.NewRuleHandler(policyStore, auditLog),
		WebhookHandler:  handlers.NewWebhookHandler(webhookRepo, auditLog),
		SettingsHandler: handlers.NewSettingsHandler(settingsRepo, auditLog),
		AuditHandler:    handlers.NewAuditHandler(auditLog),
		HealthHandler:   handlers.NewHealthHandler(db),
		AuthMiddleware:  middleware.NewAuthMiddleware(tokenSvc),
		RateLimiter:     middleware.NewRateLimiter(cfg.RateLimit),
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Printf("Server starting on %s", addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// bootstrapAdmin seeds the first admin account when the users table is
// empty and bootstrap credentials are configured.
func bootstrapAdmin(users *repositories.UserRepository, cfg config.BootstrapConfig) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	count, err := users.Count()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err = users.Create(cfg.AdminEmail, cfg.AdminPassword, "admin")
	if err == nil {
		log.Printf("Bootstrapped admin user %s", cfg.AdminEmail)
	}
	return err
}
