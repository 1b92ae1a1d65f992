package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "WELCOME_GRACE", "DELETE_MAX_AGE", "NICKNAME_MAX_LENGTH", "CORS_ORIGINS", "REDIS_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, time.Minute, cfg.Session.WelcomeGrace)
	assert.Equal(t, 5*time.Minute, cfg.Session.DeleteMaxAge)
	assert.Equal(t, 18, cfg.Identity.MaxNicknameLength)
	assert.Equal(t, 999, cfg.Identity.MaxNumber)
	assert.Empty(t, cfg.Redis.URL)
}

func TestLoad_Overrides(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		value  string
		verify func(t *testing.T, cfg *Config)
	}{
		{
			name:  "Port",
			key:   "PORT",
			value: "9090",
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "9090", cfg.Server.Port)
			},
		},
		{
			name:  "WelcomeGrace",
			key:   "WELCOME_GRACE",
			value: "30m",
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 30*time.Minute, cfg.Session.WelcomeGrace)
			},
		},
		{
			name:  "InvalidDurationFallsBack",
			key:   "ORDER_LIFETIME",
			value: "soon",
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 24*time.Hour, cfg.Orders.Lifetime)
			},
		},
		{
			name:  "NegativeIntFallsBack",
			key:   "AVATAR_SIZE",
			value: "-4",
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 250, cfg.Identity.AvatarSize)
			},
		},
		{
			name:  "CORSList",
			key:   "CORS_ORIGINS",
			value: "https://a.example, https://b.example,",
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			tt.verify(t, Load())
		})
	}
}
