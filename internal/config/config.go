package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every tunable of the service. It is built once at startup
// and injected into constructors; nothing reads the environment after Load.
type Config struct {
	Profile  string
	HTTPAddr string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTIssuer        string
	JWTAccessSecret  string
	JWTRefreshSecret string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration

	BcryptCost int

	AuthMaxFailedAttempts int
	AuthLockDuration      time.Duration
	AuthIPMaxAttempts     int
	AuthIPLockWindow      time.Duration

	SessionRetention      time.Duration
	SessionReaperInterval time.Duration

	AuthRateLimitRPM int
	APIRateLimitRPM  int

	MaintenanceSecret string

	AdminUsername string
	AdminPassword string

	OTELMetricsEnabled        bool
	OTELTracesEnabled         bool
	OTELLogsEnabled           bool
	OTELHTTPEnabled           bool
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELServiceName           string
	OTELEnvironment           string
	OTELMetricsExportInterval time.Duration
	OTELTracesSampleRatio     float64
}

// Load reads the configuration from the environment, applying defaults and
// validating the result. Parse failures and validation failures are recorded
// as config events before being returned.
func Load(ctx context.Context) (*Config, error) {
	cfg, err := load()
	profile := "unknown"
	if cfg != nil {
		profile = cfg.Profile
	}
	if err != nil {
		recordConfigValidationEvent(ctx, profile, "failure", classifyConfigLoadError(err))
		return nil, err
	}
	recordConfigValidationEvent(ctx, profile, "success", "none")
	return cfg, nil
}

func load() (*Config, error) {
	cfg := &Config{
		Profile:           strings.ToLower(envString("APP_ENV", "dev")),
		HTTPAddr:          envString("HTTP_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisAddr:         envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		JWTIssuer:         envString("JWT_ISSUER", "freight-auth-service"),
		JWTAccessSecret:   os.Getenv("JWT_ACCESS_SECRET"),
		JWTRefreshSecret:  os.Getenv("JWT_REFRESH_SECRET"),
		MaintenanceSecret: os.Getenv("MAINTENANCE_SECRET"),
		AdminUsername:     os.Getenv("ADMIN_USERNAME"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),

		OTELExporterOTLPEndpoint: envString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELServiceName:          envString("OTEL_SERVICE_NAME", "freight-auth-service"),
		OTELEnvironment:          envString("OTEL_ENVIRONMENT", "dev"),
	}

	var err error
	if cfg.RedisDB, err = envInt("REDIS_DB", 0); err != nil {
		return cfg, err
	}
	if cfg.JWTAccessTTL, err = envDuration("JWT_ACCESS_TTL", 15*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.JWTRefreshTTL, err = envDuration("JWT_REFRESH_TTL", 168*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.BcryptCost, err = envInt("BCRYPT_COST", 12); err != nil {
		return cfg, err
	}
	if cfg.AuthMaxFailedAttempts, err = envInt("AUTH_MAX_FAILED_ATTEMPTS", 5); err != nil {
		return cfg, err
	}
	if cfg.AuthLockDuration, err = envDuration("AUTH_LOCK_DURATION", 15*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.AuthIPMaxAttempts, err = envInt("AUTH_IP_MAX_ATTEMPTS", 10); err != nil {
		return cfg, err
	}
	if cfg.AuthIPLockWindow, err = envDuration("AUTH_IP_LOCK_WINDOW", 15*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.SessionRetention, err = envDuration("SESSION_RETENTION", 168*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.SessionReaperInterval, err = envDuration("SESSION_REAPER_INTERVAL", time.Hour); err != nil {
		return cfg, err
	}
	if cfg.AuthRateLimitRPM, err = envInt("AUTH_RATE_LIMIT_RPM", 30); err != nil {
		return cfg, err
	}
	if cfg.APIRateLimitRPM, err = envInt("API_RATE_LIMIT_RPM", 300); err != nil {
		return cfg, err
	}
	if cfg.OTELMetricsEnabled, err = envBool("OTEL_METRICS_ENABLED", false); err != nil {
		return cfg, err
	}
	if cfg.OTELTracesEnabled, err = envBool("OTEL_TRACES_ENABLED", false); err != nil {
		return cfg, err
	}
	if cfg.OTELLogsEnabled, err = envBool("OTEL_LOGS_ENABLED", false); err != nil {
		return cfg, err
	}
	if cfg.OTELHTTPEnabled, err = envBool("OTEL_HTTP_ENABLED", false); err != nil {
		return cfg, err
	}
	if cfg.OTELExporterOTLPInsecure, err = envBool("OTEL_EXPORTER_OTLP_INSECURE", true); err != nil {
		return cfg, err
	}
	if cfg.OTELMetricsExportInterval, err = envDuration("OTEL_METRICS_EXPORT_INTERVAL", time.Minute); err != nil {
		return cfg, err
	}
	if cfg.OTELTracesSampleRatio, err = envFloat("OTEL_TRACES_SAMPLE_RATIO", 1); err != nil {
		return cfg, err
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return fmt.Errorf("validate config: DATABASE_URL is required")
	case c.JWTAccessSecret == "":
		return fmt.Errorf("validate config: JWT_ACCESS_SECRET is required")
	case c.JWTRefreshSecret == "":
		return fmt.Errorf("validate config: JWT_REFRESH_SECRET is required")
	case c.JWTAccessSecret == c.JWTRefreshSecret:
		return fmt.Errorf("validate config: access and refresh secrets must differ")
	case c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0:
		return fmt.Errorf("validate config: token lifetimes must be positive")
	case c.JWTRefreshTTL <= c.JWTAccessTTL:
		return fmt.Errorf("validate config: refresh lifetime must exceed access lifetime")
	case c.AuthMaxFailedAttempts <= 0:
		return fmt.Errorf("validate config: AUTH_MAX_FAILED_ATTEMPTS must be positive")
	case c.SessionRetention <= 0:
		return fmt.Errorf("validate config: SESSION_RETENTION must be positive")
	}
	return nil
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func envBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}
