package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp, .env dosyası okunmasın diye boş bir dizine geçer.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Empty(t, cfg.Server.AllowedOrigins)
	assert.EqualValues(t, 25*1024*1024, cfg.Upload.MaxSize)
	assert.Equal(t, 15*time.Minute, cfg.Email.Throttle)
	assert.Equal(t, 5, cfg.RateLimit.MessagesPerWindow)
	assert.Equal(t, 256, cfg.WebSocket.SendBufferSize)
}

func TestLoadOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("EMAIL_THROTTLE", "90s")
	t.Setenv("APP_URL", "https://chat.example/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 90*time.Second, cfg.Email.Throttle)
	assert.Equal(t, "https://chat.example", cfg.Email.AppURL)
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]map[string]string{
		"missing secret": {"JWT_SECRET": ""},
		"bad port":       {"JWT_SECRET": "x", "SERVER_PORT": "http"},
		"port range":     {"JWT_SECRET": "x", "SERVER_PORT": "70000"},
		"bad duration":   {"JWT_SECRET": "x", "RATE_LIMIT_WINDOW": "5"},
		"zero buffer":    {"JWT_SECRET": "x", "WS_SEND_BUFFER": "0"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			chdirTemp(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
