package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"sentinel/internal/engine/dispatch"
	"sentinel/internal/engine/escalation"
	"sentinel/internal/engine/ledger"
	"sentinel/internal/engine/policy"
	"sentinel/internal/engine/webhooks"
	"sentinel/internal/pkg/logger"
	"sentinel/internal/pkg/metrics"
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

	settingsRepo := repositories.NewSettingsRepository(db)
	webhookRepo := repositories.NewWebhookRepository(db)

	// Provider settings are loaded once here; changing them requires a
	// worker restart.
	dispatcher, err := dispatch.FromSettings(settingsRepo)
	if err != nil {
		log.Fatalf("Failed to build channel dispatcher: %v", err)
	}

	notifier := webhooks.NewNotifier(webhookRepo, cfg.Webhooks, m)
	scheduler := escalation.NewScheduler(
		escalation.NewRepository(db),
		policy.NewStore(db),
		dispatcher,
		ledger.New(db),
		notifier,
		m,
		cfg.Scheduler,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("Starting Sentinel escalation worker...")
	scheduler.Run(ctx)
}
