package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	v.Set("JWT_SECRET", "s3cret")

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "3210", cfg.Port)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Empty(t, cfg.SnapshotCron)
	assert.True(t, cfg.MetricsEnabled)
}

func TestFromViperRequiresSecret(t *testing.T) {
	_, err := FromViper(viper.New())
	assert.Error(t, err)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	v.Set("JWT_SECRET", "s3cret")
	v.Set("DB_DRIVER", "SQLite")
	v.Set("SQLITE_PATH", "/tmp/x.db")
	v.Set("TOKEN_TTL", "30m")
	v.Set("BASE_URL", "https://idit.example/")
	v.Set("SNAPSHOT_CRON", " 0 2 * * * ")

	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.Database.SQLitePath)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "https://idit.example", cfg.BaseURL)
	assert.Equal(t, "0 2 * * *", cfg.SnapshotCron)
}

func TestFromViperRejectsBadValues(t *testing.T) {
	v := viper.New()
	v.Set("JWT_SECRET", "s3cret")
	v.Set("DB_DRIVER", "mysql")
	_, err := FromViper(v)
	assert.Error(t, err)

	v = viper.New()
	v.Set("JWT_SECRET", "s3cret")
	v.Set("TOKEN_TTL", "forever")
	_, err = FromViper(v)
	assert.Error(t, err)
}
