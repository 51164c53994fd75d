package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/InstaGrowth/internal/pkg/env"
)

func withEnv(t *testing.T, values map[string]string) {
	t.Helper()
	env.Env = values
	t.Cleanup(func() { env.Env = nil })
}

func TestFromEnv_Defaults(t *testing.T) {
	withEnv(t, map[string]string{})

	cfg := FromEnv()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, DefaultPublicURL, cfg.App.PublicURL)
	assert.Equal(t, DefaultStripePriceID, cfg.Stripe.PriceID)
	assert.Equal(t, DefaultInferenceMaxTokens, cfg.Inference.MaxTokens)
	assert.Equal(t, DefaultMonthlyCommentLimit, cfg.Limits.MonthlyCommentLimit)
	assert.Equal(t, time.Minute, cfg.Limits.RateLimitWindow)
	assert.False(t, cfg.Database.Configured())
	assert.False(t, cfg.Cache.Configured())
	assert.Equal(t, "https://insta-growth.app/dashboard?success=true", cfg.CheckoutSuccessURL())
	assert.Equal(t, "https://insta-growth.app/dashboard?canceled=true", cfg.CheckoutCancelURL())
}

func TestFromEnv_Overrides(t *testing.T) {
	withEnv(t, map[string]string{
		"APP_ENV":                 "dev",
		"PUBLIC_APP_URL":          "http://localhost:3000/",
		"DB_DRIVER":               "postgres",
		"DB_HOST":                 "db",
		"DB_USER":                 "ig",
		"DB_PASSWORD":             "secret",
		"DB_NAME":                 "instagrowth",
		"IDENTITY_JWT_PUBLIC_KEY": `-----BEGIN PUBLIC KEY-----\nABC\n-----END PUBLIC KEY-----`,
		"API_RATE_LIMIT_WINDOW":   "30",
	})

	cfg := FromEnv()
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.App.IsDev())
	assert.Equal(t, "http://localhost:3000", cfg.App.PublicURL)
	assert.True(t, cfg.Database.Configured())
	assert.Equal(t, "host=db user=ig password=secret dbname=instagrowth port=5432 sslmode=disable TimeZone=UTC", cfg.Database.GormDSN())
	migrateURL, err := cfg.Database.MigrateURL()
	require.NoError(t, err)
	assert.Equal(t, "postgres://ig:secret@db:5432/instagrowth?sslmode=disable", migrateURL)
	assert.Contains(t, cfg.Identity.JWTPublicKey, "\nABC\n")
	assert.Equal(t, 30*time.Second, cfg.Limits.RateLimitWindow)
}

func TestDatabaseConfig_MySQL(t *testing.T) {
	d := DatabaseConfig{Driver: "mysql", Host: "db", User: "ig", Password: "pw", Name: "instagrowth"}
	assert.Equal(t, "ig:pw@tcp(db:3306)/instagrowth?charset=utf8mb4&parseTime=True&loc=UTC", d.GormDSN())
	migrateURL, err := d.MigrateURL()
	require.NoError(t, err)
	assert.Equal(t, "mysql://ig:pw@tcp(db:3306)/instagrowth?multiStatements=true", migrateURL)
}

func TestDatabaseConfig_MigrateURLFromDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "mysql without query",
			cfg:  DatabaseConfig{Driver: "mysql", DSN: "user:pw@tcp(db:3306)/insta"},
			want: "mysql://user:pw@tcp(db:3306)/insta?multiStatements=true",
		},
		{
			name: "mysql with query",
			cfg:  DatabaseConfig{Driver: "mysql", DSN: "user:pw@tcp(db:3306)/insta?parseTime=True"},
			want: "mysql://user:pw@tcp(db:3306)/insta?parseTime=True&multiStatements=true",
		},
		{
			name: "mysql already multi statement",
			cfg:  DatabaseConfig{Driver: "mysql", DSN: "mysql://user:pw@tcp(db:3306)/insta?multiStatements=true"},
			want: "mysql://user:pw@tcp(db:3306)/insta?multiStatements=true",
		},
		{
			name: "postgres url",
			cfg:  DatabaseConfig{Driver: "postgres", DSN: "postgres://ig:pw@db:5432/insta?sslmode=require"},
			want: "postgres://ig:pw@db:5432/insta?sslmode=require",
		},
		{
			name: "postgres key value",
			cfg:  DatabaseConfig{Driver: "postgres", DSN: "host=db user=ig password=secret dbname=insta port=5433 sslmode=disable TimeZone=UTC"},
			want: "postgres://ig:secret@db:5433/insta?TimeZone=UTC&sslmode=disable",
		},
		{
			name: "postgres key value default port",
			cfg:  DatabaseConfig{Driver: "postgres", DSN: "host=db user=ig dbname=insta"},
			want: "postgres://ig@db:5432/insta",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.MigrateURL()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDatabaseConfig_MigrateURLRejectsBadDSN(t *testing.T) {
	_, err := DatabaseConfig{Driver: "postgres", DSN: "dbname=insta"}.MigrateURL()
	assert.Error(t, err)

	_, err = DatabaseConfig{Driver: "postgres", DSN: "host=db garbage"}.MigrateURL()
	assert.Error(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "sqlite" }},
		{name: "bad port", mutate: func(c *Config) { c.App.Port = "http" }},
		{name: "bad public url", mutate: func(c *Config) { c.App.PublicURL = "not a url" }},
		{name: "zero max tokens", mutate: func(c *Config) { c.Inference.MaxTokens = 0 }},
		{name: "negative comment limit", mutate: func(c *Config) { c.Limits.MonthlyCommentLimit = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withEnv(t, map[string]string{})
			cfg := FromEnv()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
