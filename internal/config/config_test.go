package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Security.SessionTTL)
	assert.Equal(t, 720*time.Hour, cfg.Security.RememberMeTTL)
	assert.Equal(t, 5, cfg.Security.LockoutThreshold)
	assert.False(t, cfg.Security.Revocation)
	assert.True(t, cfg.UsingFallbackSecret())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("NEXTGENRDP_SECURITY_JWTSECRET", "from-env")
	t.Setenv("NEXTGENRDP_SECURITY_SESSIONTTL", "2h")
	t.Setenv("NEXTGENRDP_DATABASE_DRIVER", "sqlite")
	t.Setenv("NEXTGENRDP_ALLOWCORSORIGINS", "https://a.example,https://b.example")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Security.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Security.SessionTTL)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowCORSOrigins)
	assert.False(t, cfg.UsingFallbackSecret())
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("NEXTGENRDP_ENVIRONMENT", "production")

	_, err := load(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be set in production")
}

func TestValidate(t *testing.T) {
	base := func() AppConfig {
		return AppConfig{
			Environment: "development",
			Database:    DatabaseConfig{Driver: DriverPostgres},
			Security: SecurityConfig{
				JWTSecret:        "s",
				SessionTTL:       time.Hour,
				RememberMeTTL:    time.Hour,
				LockoutThreshold: 5,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*AppConfig) {}},
		{name: "empty secret", mutate: func(c *AppConfig) { c.Security.JWTSecret = "" }, wantErr: "jwtsecret is empty"},
		{name: "zero ttl", mutate: func(c *AppConfig) { c.Security.SessionTTL = 0 }, wantErr: "ttls must be positive"},
		{name: "zero threshold", mutate: func(c *AppConfig) { c.Security.LockoutThreshold = 0 }, wantErr: "lockoutthreshold"},
		{name: "unknown driver", mutate: func(c *AppConfig) { c.Database.Driver = "mysql" }, wantErr: "unknown database.driver"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
