package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "memory", c.Storage.Backend)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 5, c.Scoring.NeutralBand)
	assert.Equal(t, 4, c.Scan.Workers)
	assert.Equal(t, 20*time.Second, c.Scan.AssetTimeout)
	assert.Equal(t, 60*time.Minute, c.Alerts.DefaultCooldown)
	assert.Equal(t, DefaultAssets, c.Assets)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown backend":      "storage:\n  backend: sqlite\n",
		"postgres without dsn": "storage:\n  backend: postgres\n",
		"band too wide":        "scoring:\n  neutral_band: 50\n",
		"bad clock":            "scan:\n  times_of_day: [\"25:00\"]\n",
		"kafka without broker": "kafka:\n  enabled: true\n",
		"stream without key":   "stream:\n  enabled: true\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse([]byte("assets: [BTC]\n"))
	require.NoError(t, err)

	env := map[string]string{
		"ORACLE_HTTP_PORT":     "9090",
		"ORACLE_POSTGRES_DSN":  "postgres://oracle@db/oracle",
		"ORACLE_REDIS_ADDR":    "cache:6380",
		"ORACLE_KAFKA_BROKERS": "k1:9092,k2:9092",
		"ORACLE_ASSETS":        "btc,eth",
	}
	c.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "postgres", c.Storage.Backend)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "cache", c.Redis.Host)
	assert.Equal(t, 6380, c.Redis.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, []string{"BTC", "ETH"}, c.Assets)
	assert.NoError(t, c.Validate())
}
