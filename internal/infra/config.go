package infra

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv               string        `env:"APP_ENV" validate:"required"`
	Port                 string        `env:"PORT" validate:"required,numeric"`
	ReplicateAPIToken    string        `env:"REPLICATE_API_TOKEN" validate:"required"`
	ReplicateBaseURL     string        `env:"REPLICATE_BASE_URL" validate:"required,url"`
	PublicBaseURL        string        `env:"PUBLIC_BASE_URL" validate:"omitempty,url"`
	WebhookSigningSecret string        `env:"REPLICATE_WEBHOOK_SIGNING_SECRET"`
	DatabaseURL          string        `env:"DATABASE_URL"`
	RedisURL             string        `env:"REDIS_URL" validate:"omitempty,url"`
	LogFile              string        `env:"LOG_FILE"`
	PollInterval         time.Duration `env:"POLL_INTERVAL_MS" validate:"gt=0"`
	HTTPReadTimeout      time.Duration
	HTTPWriteTimeout     time.Duration
	HTTPIdleTimeout      time.Duration
	RateLimitPerMin      int      `env:"RATE_LIMIT_PER_MINUTE" validate:"gte=0"`
	CORSAllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"`
	TrustedProxies       []string `env:"TRUSTED_PROXIES" validate:"omitempty,dive,cidr|ip"`
}

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("env"); name != "" {
			return name
		}
		return field.Name
	})
	return v
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		Port:                 getEnv("PORT", "8080"),
		ReplicateAPIToken:    strings.TrimSpace(os.Getenv("REPLICATE_API_TOKEN")),
		ReplicateBaseURL:     getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),
		PublicBaseURL:        webhookBaseURL(),
		WebhookSigningSecret: strings.TrimSpace(os.Getenv("REPLICATE_WEBHOOK_SIGNING_SECRET")),
		DatabaseURL:          strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:             strings.TrimSpace(os.Getenv("REDIS_URL")),
		LogFile:              strings.TrimSpace(os.Getenv("LOG_FILE")),
		PollInterval:         time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 250)),
		HTTPReadTimeout:      time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:     time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:      time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:      getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSAllowedOrigins:   splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		TrustedProxies:       splitList(os.Getenv("TRUSTED_PROXIES")),
	}

	if err := configValidator.Struct(cfg); err != nil {
		return nil, describeValidation(err)
	}
	return cfg, nil
}

// webhookBaseURL resolves the public origin the prediction service can call
// back. Hosted deployments expose a bare host in VERCEL_URL; local tunnels
// set NGROK_HOST with a scheme.
func webhookBaseURL() string {
	if v := strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")); v != "" {
		return strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("VERCEL_URL")); v != "" {
		return "https://" + strings.TrimRight(v, "/")
	}
	return strings.TrimRight(strings.TrimSpace(os.Getenv("NGROK_HOST")), "/")
}

func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("invalid config: %w", err)
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "url":
		return fmt.Errorf("%s must be a valid URL", fe.Field())
	default:
		return fmt.Errorf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
