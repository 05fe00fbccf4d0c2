package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
environment: test
server:
  port: 8080
  read_timeout: 5s
backend:
  type: clickhouse
stream:
  websocket_url: wss://example.test/ws
  symbols: [BTCUSDT, ETHUSDT]
engine:
  warmup_bars: 120
features:
  redis:
    enabled: true
    addr: localhost:6379
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_ParsesAndValidates(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Stream.Symbols)
	assert.True(t, cfg.Features.Redis.Enabled)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	body := `
environment: test
backend:
  type: postgres
stream:
  websocket_url: wss://example.test/ws
  symbols: [BTCUSDT]
`
	_, err := Load(writeConfig(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.type")
}

func TestLoad_RequiresSymbols(t *testing.T) {
	body := `
environment: test
backend:
  type: kafka
stream:
  websocket_url: wss://example.test/ws
  symbols: []
`
	_, err := Load(writeConfig(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbols")
}

func TestLoadWithEnv_Overrides(t *testing.T) {
	t.Setenv("BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "redis.test:6380")

	cfg, err := LoadWithEnv(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "kafka", cfg.Backend.Type)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "redis.test:6380", cfg.Features.Redis.Addr)
	// untouched values survive
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Stream.Symbols)
}

func TestDecodeEngine(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	var dst struct {
		WarmupBars int `yaml:"warmup_bars"`
	}
	require.NoError(t, cfg.DecodeEngine(&dst))
	assert.Equal(t, 120, dst.WarmupBars)
}

func TestDecodeEngine_MissingBlockIsNoop(t *testing.T) {
	body := `
environment: test
backend:
  type: kafka
stream:
  websocket_url: wss://example.test/ws
  symbols: [BTCUSDT]
`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)

	var dst struct {
		WarmupBars int `yaml:"warmup_bars"`
	}
	require.NoError(t, cfg.DecodeEngine(&dst))
	assert.Zero(t, dst.WarmupBars)
}
