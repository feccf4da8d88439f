package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/caregiver-api/internal/config"
	"github.com/jwalitptl/caregiver-api/internal/email"
	"github.com/jwalitptl/caregiver-api/internal/repository/postgres"
	internalworker "github.com/jwalitptl/caregiver-api/internal/worker"
	"github.com/jwalitptl/caregiver-api/pkg/logger"
	"github.com/jwalitptl/caregiver-api/pkg/metrics"
	"github.com/jwalitptl/caregiver-api/pkg/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	appLogger := logger.New(&logger.Config{Level: logger.InfoLevel, Output: os.Stdout})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	baseRepo := postgres.NewBaseRepository(db)
	certRepo := postgres.NewCertificationRepository(baseRepo)
	eventRepo := postgres.NewReminderEventRepository(baseRepo)

	emailSvc := email.NewSMTPService(email.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})

	reminderWorker := worker.NewReminderWorker(
		certRepo,
		eventRepo,
		emailSvc,
		worker.ReminderWorkerConfig{
			BatchSize:    cfg.Reminder.BatchSize,
			PollInterval: cfg.Reminder.PollInterval,
		},
		appLogger,
		metrics.New("reminder_worker"),
	)

	retention := internalworker.NewRetentionWorker(
		eventRepo,
		cfg.Reminder.RetentionDays,
		cfg.Reminder.RetentionSchedule,
		appLogger,
	)

	setupHealthAndMetrics(cfg.Reminder.HealthPort, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Shutting down...")
		cancel()
	}()

	if err := retention.Start(ctx); err != nil {
		appLogger.Fatal(err, "Failed to start retention worker")
	}
	defer retention.Stop()

	reminderWorker.Start(ctx)
}

func setupHealthAndMetrics(port int, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			appLogger.Error(err, "Health check server failed")
			os.Exit(1)
		}
	}()
}
