package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/caregiver-api/internal/config"
	"github.com/jwalitptl/caregiver-api/internal/handler"
	authhandler "github.com/jwalitptl/caregiver-api/internal/handler/auth"
	certhandler "github.com/jwalitptl/caregiver-api/internal/handler/certification"
	rulehandler "github.com/jwalitptl/caregiver-api/internal/handler/reminderrule"
	"github.com/jwalitptl/caregiver-api/internal/middleware"
	"github.com/jwalitptl/caregiver-api/internal/repository/postgres"
	"github.com/jwalitptl/caregiver-api/internal/router"
	authservice "github.com/jwalitptl/caregiver-api/internal/service/auth"
	certservice "github.com/jwalitptl/caregiver-api/internal/service/certification"
	"github.com/jwalitptl/caregiver-api/internal/service/reminder"
	"github.com/jwalitptl/caregiver-api/pkg/logger"
)

func main() {
	// .env is optional; real deployments set the environment directly
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

	if err := postgres.Migrate(db, cfg.Database.MigrationsDir); err != nil {
		appLogger.Fatal(err, "Failed to run migrations")
	}

	baseRepo := postgres.NewBaseRepository(db)
	providerRepo := postgres.NewProviderRepository(baseRepo)
	typeRepo := postgres.NewCertificationTypeRepository(baseRepo)
	certRepo := postgres.NewCertificationRepository(baseRepo)
	ruleRepo := postgres.NewReminderRuleRepository(baseRepo)
	eventRepo := postgres.NewReminderEventRepository(baseRepo)

	authSvc := authservice.NewService(providerRepo, cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	scheduler := reminder.NewScheduler(ruleRepo, eventRepo, appLogger)
	ruleSvc := reminder.NewRuleService(ruleRepo)
	certSvc := certservice.NewService(certRepo, typeRepo, eventRepo, scheduler, ruleSvc, appLogger)

	r := router.New(
		middleware.NewAuthMiddleware(authSvc),
		authhandler.NewHandler(authSvc),
		certhandler.NewHandler(certSvc),
		rulehandler.NewHandler(ruleSvc),
		handler.NewHealthHandler(db),
		router.Config{
			RateLimitRPS:   cfg.Server.RateLimitRPS,
			RateLimitBurst: cfg.Server.RateLimitBurst,
		},
	)
	r.Setup()

	appLogger.Info("API server starting", "port", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		appLogger.Fatal(err, "Server failed")
	}
}
