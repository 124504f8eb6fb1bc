package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file::memory:")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "db", cfg.QueueCounter)
	assert.Equal(t, 5*time.Minute, cfg.ReconcileInterval)
	assert.Equal(t, 24*time.Hour, cfg.PaymentExpiry)
	assert.Equal(t, int64(0), cfg.TaxRateBps)
	assert.False(t, cfg.MidtransIsProduction)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("MIDTRANS_ENV", "production")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("TAX_RATE_BPS", "1100")
	t.Setenv("RECONCILE_INTERVAL", "0")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.True(t, cfg.MidtransIsProduction)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, int64(1100), cfg.TaxRateBps)
	assert.Equal(t, time.Duration(0), cfg.ReconcileInterval)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown driver", env: map[string]string{"DB_DRIVER": "oracle"}},
		{name: "redis counter without address", env: map[string]string{"QUEUE_COUNTER": "redis"}},
		{name: "tax above 100%", env: map[string]string{"TAX_RATE_BPS": "20000"}},
		{name: "bad timezone", env: map[string]string{"TIMEZONE": "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(viper.New())
			assert.Error(t, err)
		})
	}
}
