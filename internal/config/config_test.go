package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(overrides map[string]any) *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key, value := range overrides {
		v.Set(key, value)
	}
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := fromViper(newViper(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 14*24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "sessionid", cfg.Session.CookieName)
	assert.Equal(t, devJWTSecret, cfg.Auth.JWTSecret)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Mail.Host)
}

func TestInvalidDuration(t *testing.T) {
	_, err := fromViper(newViper(map[string]any{"SERVER_READ_TIMEOUT": "soon"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_READ_TIMEOUT")
}

func TestSecretRequiredInProduction(t *testing.T) {
	_, err := fromViper(newViper(map[string]any{"APP_ENV": "production"}))
	require.Error(t, err)

	cfg, err := fromViper(newViper(map[string]any{
		"APP_ENV":         "production",
		"AUTH_JWT_SECRET": "s3cret",
	}))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.False(t, cfg.IsDevelopment())
}
