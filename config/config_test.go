package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig(fxtest.NewLifecycle(t), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.ServerPort)
	assert.Equal(t, "pricewatch.sqlite", cfg.DatabasePath)
	assert.Equal(t, 60*time.Second, cfg.SchedulerTick)
	assert.Equal(t, 2*time.Second, cfg.CheckPacing)
	assert.Equal(t, 5, cfg.CheckBatchSize)
	assert.Equal(t, 50000, cfg.MaxContentLength)
	assert.Nil(t, cfg.GetCreds())
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "8088")
	t.Setenv("SCRAPE_DO_TOKEN", "tok")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SCHEDULER_TICK", "30s")
	t.Setenv("CHECK_PACING", "500ms")
	t.Setenv("CHECK_BATCH_SIZE", "10")

	cfg, err := NewConfig(fxtest.NewLifecycle(t), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.ServerPort)
	assert.Equal(t, "tok", cfg.ScrapeDoToken)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, 30*time.Second, cfg.SchedulerTick)
	assert.Equal(t, 500*time.Millisecond, cfg.CheckPacing)
	assert.Equal(t, 10, cfg.CheckBatchSize)
}

func TestParseCreds(t *testing.T) {
	t.Setenv("BASIC_AUTH_CREDS", "admin:secret, ops : hunter2")

	cfg, err := NewConfig(fxtest.NewLifecycle(t), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"admin": "secret", "ops": "hunter2"}, cfg.GetCreds())
}

func TestParseCredsMalformed(t *testing.T) {
	t.Setenv("BASIC_AUTH_CREDS", "missing-delimiter")

	cfg, err := NewConfig(fxtest.NewLifecycle(t), zap.NewNop())
	require.NoError(t, err)

	assert.Nil(t, cfg.GetCreds(), "malformed credentials disable auth rather than failing startup")
}
