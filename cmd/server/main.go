package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cargolinq/freight-auth-service/internal/app"
	"github.com/cargolinq/freight-auth-service/internal/config"
	"github.com/cargolinq/freight-auth-service/internal/domain"
	"github.com/cargolinq/freight-auth-service/internal/http/handler"
	"github.com/cargolinq/freight-auth-service/internal/http/router"
	"github.com/cargolinq/freight-auth-service/internal/observability"
	"github.com/cargolinq/freight-auth-service/internal/repository"
	"github.com/cargolinq/freight-auth-service/internal/security"
	"github.com/cargolinq/freight-auth-service/internal/service"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	runtime, err := observability.InitRuntime(ctx,
		observability.MetricsConfig{
			Enabled:        cfg.OTELMetricsEnabled,
			Endpoint:       cfg.OTELExporterOTLPEndpoint,
			Insecure:       cfg.OTELExporterOTLPInsecure,
			ServiceName:    cfg.OTELServiceName,
			Environment:    cfg.OTELEnvironment,
			ExportInterval: cfg.OTELMetricsExportInterval,
		},
		observability.TracingConfig{
			Enabled:     cfg.OTELTracesEnabled,
			Endpoint:    cfg.OTELExporterOTLPEndpoint,
			Insecure:    cfg.OTELExporterOTLPInsecure,
			ServiceName: cfg.OTELServiceName,
			Environment: cfg.OTELEnvironment,
			SampleRatio: cfg.OTELTracesSampleRatio,
		},
		observability.LoggingConfig{
			Enabled:     cfg.OTELLogsEnabled,
			Endpoint:    cfg.OTELExporterOTLPEndpoint,
			Insecure:    cfg.OTELExporterOTLPInsecure,
			ServiceName: cfg.OTELServiceName,
			Environment: cfg.OTELEnvironment,
		},
		logger,
	)
	if err != nil {
		return err
	}
	logger = runtime.Logger
	slog.SetDefault(logger)

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Session{}); err != nil {
		return err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	hasher := security.NewPasswordHasher(cfg.BcryptCost)
	jwtMgr := security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	ipGuard := service.NewRedisIPGuard(redisClient, "ip_guard", service.IPGuardPolicy{
		MaxAttempts: cfg.AuthIPMaxAttempts,
		LockWindow:  cfg.AuthIPLockWindow,
	})
	authService := service.NewAuthService(users, sessions, hasher, jwtMgr, ipGuard, service.LockoutPolicy{
		MaxAttempts:  cfg.AuthMaxFailedAttempts,
		LockDuration: cfg.AuthLockDuration,
	}, logger)
	reaper := service.NewSessionReaper(sessions, cfg.SessionRetention, cfg.SessionReaperInterval, logger)

	if err := service.BootstrapAdminUser(ctx, users, hasher, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return err
	}

	mux := router.NewRouter(router.Dependencies{
		AuthHandler:        handler.NewAuthHandler(authService, cfg.JWTRefreshTTL, cfg.Profile != "dev"),
		MaintenanceHandler: handler.NewMaintenanceHandler(reaper, cfg.MaintenanceSecret),
		JWTManager:         jwtMgr,
		AuthRateLimitRPM:   cfg.AuthRateLimitRPM,
		APIRateLimitRPM:    cfg.APIRateLimitRPM,
		EnableOTelHTTP:     cfg.OTELHTTPEnabled,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return app.New(cfg, logger, server, runtime, reaper).Run(ctx)
}
