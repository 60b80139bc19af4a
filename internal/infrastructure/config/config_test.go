package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "vendor-invoice", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, time.Hour, cfg.RateAPI.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.RateAPI.Timeout)
	assert.Equal(t, 10, cfg.Invoicing.MaxAttachments)
	assert.Equal(t, int64(10<<20), cfg.Invoicing.MaxAttachmentSize)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Database.MaxOpenConns = 50
	cfg.Invoicing.MaxAttachments = 3
	applyDefaults(cfg)

	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
	assert.Equal(t, 3, cfg.Invoicing.MaxAttachments)
}

func TestValidate(t *testing.T) {
	newValid := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	t.Run("defaults pass", func(t *testing.T) {
		require.NoError(t, newValid().validate())
	})

	t.Run("idle conns cannot exceed open conns", func(t *testing.T) {
		cfg := newValid()
		cfg.Database.MaxIdleConns = 100
		assert.Error(t, cfg.validate())
	})

	t.Run("production requires password and ssl", func(t *testing.T) {
		cfg := newValid()
		cfg.App.Env = "production"
		assert.Error(t, cfg.validate())

		cfg.Database.Password = "secret"
		assert.Error(t, cfg.validate()) // sslmode still disabled

		cfg.Database.SSLMode = "require"
		assert.Error(t, cfg.validate()) // bucket missing

		cfg.Storage.Bucket = "invoices"
		assert.NoError(t, cfg.validate())
	})
}

func TestDSN(t *testing.T) {
	d := &DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "app",
		Password: "p@ss/word",
		DBName:   "vendor_invoice",
		SSLMode:  "require",
	}
	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	// special characters must be escaped
	assert.NotContains(t, dsn, "p@ss/word")
}

func TestRedisAddr(t *testing.T) {
	r := &RedisConfig{}
	assert.Empty(t, r.RedisAddr())

	r.Host = "localhost"
	r.Port = 6379
	assert.Equal(t, "localhost:6379", r.RedisAddr())
}
