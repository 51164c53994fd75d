// Package config assembles the typed application configuration from the
// environment and validates it once at startup.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/InstaGrowth/internal/pkg/env"
)

const (
	DefaultPublicURL           = "https://insta-growth.app"
	DefaultStripePriceID       = "price_1T3da9A7GeLbk8JAshRJcNz2"
	DefaultInferenceModel      = "gpt-4o-mini"
	DefaultInferenceMaxTokens  = 200
	DefaultMonthlyCommentLimit = 200
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Stripe    StripeConfig
	Inference InferenceConfig
	Identity  IdentityConfig
	Limits    LimitsConfig
}

type AppConfig struct {
	Env       string `validate:"required,oneof=dev test prod"`
	Host      string
	Port      string `validate:"required,numeric"`
	PublicURL string `validate:"required,url"`
}

// Addr is the listen address for the HTTP server.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

func (a AppConfig) IsDev() bool {
	return a.Env == "dev"
}

type DatabaseConfig struct {
	Driver   string `validate:"required,oneof=mysql postgres"`
	DSN      string
	Host     string
	Port     string `validate:"omitempty,numeric"`
	User     string
	Password string
	Name     string
}

// Configured reports whether enough is set to open a connection. An
// unconfigured store is a supported deployment: webhooks are acknowledged
// without effect.
func (d DatabaseConfig) Configured() bool {
	return d.DSN != "" || (d.Host != "" && d.Name != "")
}

// GormDSN returns the driver specific DSN used by GORM.
func (d DatabaseConfig) GormDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			d.Host, d.User, d.Password, d.Name, d.port())
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, d.Host, d.port(), d.Name)
	}
}

// MigrateURL returns the database URL in the form golang-migrate expects.
// DB_DSN may be a URL or a driver-native DSN; the latter is converted.
func (d DatabaseConfig) MigrateURL() (string, error) {
	switch d.Driver {
	case "postgres":
		if d.DSN != "" {
			if strings.HasPrefix(d.DSN, "postgres://") || strings.HasPrefix(d.DSN, "postgresql://") {
				return d.DSN, nil
			}
			return postgresKeyValueToURL(d.DSN)
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(d.User, d.Password),
			Host:     fmt.Sprintf("%s:%s", d.Host, d.port()),
			Path:     "/" + d.Name,
			RawQuery: "sslmode=disable",
		}
		return u.String(), nil
	default:
		if d.DSN != "" {
			dsn := strings.TrimPrefix(d.DSN, "mysql://")
			if strings.Contains(dsn, "multiStatements=") {
				return "mysql://" + dsn, nil
			}
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			return "mysql://" + dsn + sep + "multiStatements=true", nil
		}
		return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
			d.User, d.Password, d.Host, d.port(), d.Name), nil
	}
}

// postgresKeyValueToURL converts a libpq "key=value" DSN into a postgres URL.
// Quoted values containing spaces are not supported.
func postgresKeyValueToURL(dsn string) (string, error) {
	u := url.URL{Scheme: "postgres"}
	var user, password, host, port string
	hasPassword := false
	query := url.Values{}

	for _, field := range strings.Fields(dsn) {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			return "", fmt.Errorf("invalid postgres DSN field %q", field)
		}
		value = strings.Trim(value, "'")
		switch key {
		case "host":
			host = value
		case "port":
			port = value
		case "user":
			user = value
		case "password":
			password = value
			hasPassword = true
		case "dbname":
			u.Path = "/" + value
		default:
			query.Set(key, value)
		}
	}
	if host == "" {
		return "", fmt.Errorf("postgres DSN has no host")
	}
	if port == "" {
		port = "5432"
	}
	u.Host = host + ":" + port
	if hasPassword {
		u.User = url.UserPassword(user, password)
	} else if user != "" {
		u.User = url.User(user)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func (d DatabaseConfig) port() string {
	if d.Port != "" {
		return d.Port
	}
	if d.Driver == "postgres" {
		return "5432"
	}
	return "3306"
}

type CacheConfig struct {
	Host     string
	Port     string `validate:"omitempty,numeric"`
	Password string
}

// Configured reports whether a Redis host was given.
func (c CacheConfig) Configured() bool {
	return c.Host != ""
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string `validate:"required"`
}

type InferenceConfig struct {
	APIKey    string
	BaseURL   string `validate:"omitempty,url"`
	Model     string `validate:"required"`
	MaxTokens int    `validate:"min=1,max=4096"`
}

type IdentityConfig struct {
	// PEM encoded RSA public key used to verify session tokens.
	JWTPublicKey string
	Issuer       string
}

type LimitsConfig struct {
	MonthlyCommentLimit int           `validate:"min=0"`
	RateLimitMax        int           `validate:"min=1"`
	RateLimitWindow     time.Duration `validate:"min=1s"`
}

// Load reads the configuration from the environment (and .env, when present).
func Load() (*Config, error) {
	env.SetupEnvFile()
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from env.GetEnv without validating it.
func FromEnv() *Config {
	return &Config{
		App: AppConfig{
			Env:       env.GetEnv("APP_ENV", "prod"),
			Host:      env.GetEnv("APP_HOST", "0.0.0.0"),
			Port:      env.GetEnv("APP_PORT", "4000"),
			PublicURL: strings.TrimRight(env.GetEnv("PUBLIC_APP_URL", DefaultPublicURL), "/"),
		},
		Database: DatabaseConfig{
			Driver:   env.GetEnv("DB_DRIVER", "mysql"),
			DSN:      env.GetEnv("DB_DSN", ""),
			Host:     env.GetEnv("DB_HOST", ""),
			Port:     env.GetEnv("DB_PORT", ""),
			User:     env.GetEnv("DB_USER", ""),
			Password: env.GetEnv("DB_PASSWORD", ""),
			Name:     env.GetEnv("DB_NAME", ""),
		},
		Cache: CacheConfig{
			Host:     env.GetEnv("CACHE_HOST", ""),
			Port:     env.GetEnv("CACHE_PORT", "6379"),
			Password: env.GetEnv("CACHE_PASSWORD", ""),
		},
		Stripe: StripeConfig{
			SecretKey:     env.GetEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
			PriceID:       env.GetEnv("STRIPE_PRICE_ID", DefaultStripePriceID),
		},
		Inference: InferenceConfig{
			APIKey:    env.GetEnv("INFERENCE_API_KEY", ""),
			BaseURL:   env.GetEnv("INFERENCE_BASE_URL", ""),
			Model:     env.GetEnv("INFERENCE_MODEL", DefaultInferenceModel),
			MaxTokens: env.GetEnvInt("INFERENCE_MAX_TOKENS", DefaultInferenceMaxTokens),
		},
		Identity: IdentityConfig{
			JWTPublicKey: strings.ReplaceAll(env.GetEnv("IDENTITY_JWT_PUBLIC_KEY", ""), `\n`, "\n"),
			Issuer:       env.GetEnv("IDENTITY_ISSUER", ""),
		},
		Limits: LimitsConfig{
			MonthlyCommentLimit: env.GetEnvInt("USAGE_MONTHLY_COMMENT_LIMIT", DefaultMonthlyCommentLimit),
			RateLimitMax:        env.GetEnvInt("API_RATE_LIMIT_MAX", 60),
			RateLimitWindow:     env.GetEnvDuration("API_RATE_LIMIT_WINDOW", time.Minute),
		},
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// CheckoutSuccessURL is where the hosted checkout returns after payment.
func (c *Config) CheckoutSuccessURL() string {
	return c.App.PublicURL + "/dashboard?success=true"
}

// CheckoutCancelURL is where the hosted checkout returns when abandoned.
func (c *Config) CheckoutCancelURL() string {
	return c.App.PublicURL + "/dashboard?canceled=true"
}
