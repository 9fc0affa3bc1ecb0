package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Providers.Identity.BaseURL = "https://civil.example.cl"
	cfg.Providers.Professional.BaseURL = "https://rnpi.example.cl"
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "medverify", cfg.App.Name)
	assert.Equal(t, ":9090", cfg.Server.ListenAddress)
	assert.Equal(t, "/metrics", cfg.Server.MetricsPath)
	assert.Equal(t, "civilregistry", cfg.Providers.Identity.Name)
	assert.Equal(t, 10000, cfg.Providers.Identity.TimeoutMS)
	assert.Equal(t, 5000, cfg.Providers.Identity.ProbeTimeoutMS)
	assert.Equal(t, "supersalud", cfg.Providers.Professional.Name)
	assert.Equal(t, 15000, cfg.Providers.Professional.TimeoutMS)
	assert.Equal(t, 80, cfg.Verification.NameMatchThreshold)
	assert.Equal(t, 900, cfg.Verification.RegistryCacheTTLS)
	assert.Equal(t, "verification-audit", cfg.Database.Elasticsearch.AuditIndex)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Verification.NameMatchThreshold = 95
	cfg.Providers.Identity.TimeoutMS = 2500

	applyDefaults(cfg)

	assert.Equal(t, 95, cfg.Verification.NameMatchThreshold)
	assert.Equal(t, 2500, cfg.Providers.Identity.TimeoutMS)
}

func TestValidateConfig(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validateConfig(validConfig()))
	})

	t.Run("threshold out of range", func(t *testing.T) {
		cfg := validConfig()
		cfg.Verification.NameMatchThreshold = 101

		err := validateConfig(cfg)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "name_match_threshold")
	})

	t.Run("missing identity base url", func(t *testing.T) {
		cfg := validConfig()
		cfg.Providers.Identity.BaseURL = ""

		err := validateConfig(cfg)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "providers.identity.base_url")
	})

	t.Run("missing professional base url", func(t *testing.T) {
		cfg := validConfig()
		cfg.Providers.Professional.BaseURL = ""

		assert.Error(t, validateConfig(cfg))
	})

	t.Run("production requires evidence key", func(t *testing.T) {
		cfg := validConfig()
		cfg.App.Environment = "production"

		err := validateConfig(cfg)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "evidence_key_hex")

		cfg.Security.EvidenceKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
		assert.NoError(t, validateConfig(cfg))
	})

	t.Run("development runs without evidence key", func(t *testing.T) {
		cfg := validConfig()
		cfg.App.Environment = "development"

		assert.NoError(t, validateConfig(cfg))
	})
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "medverify",
		User:     "verifier",
		Password: "secret",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=verifier password=secret dbname=medverify sslmode=disable",
		p.GetDSN())
}

func TestAppConfig_IsProduction(t *testing.T) {
	assert.True(t, AppConfig{Environment: "production"}.IsProduction())
	assert.False(t, AppConfig{Environment: "development"}.IsProduction())
	assert.False(t, AppConfig{}.IsProduction())
}
