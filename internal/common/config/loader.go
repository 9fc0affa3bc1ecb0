package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like PROVIDERS_IDENTITY_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overrides, e.g. config.production.yaml.
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	if cfg.App.Environment == "" {
		cfg.App.Environment = env
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders left in yaml values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			v.Set(key, os.Getenv(strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")))
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "medverify"
	}
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = ":9090"
	}
	if cfg.Server.MetricsPath == "" {
		cfg.Server.MetricsPath = "/metrics"
	}
	if cfg.Providers.Identity.Name == "" {
		cfg.Providers.Identity.Name = "civilregistry"
	}
	if cfg.Providers.Identity.TimeoutMS == 0 {
		cfg.Providers.Identity.TimeoutMS = 10000
	}
	if cfg.Providers.Identity.ProbeTimeoutMS == 0 {
		cfg.Providers.Identity.ProbeTimeoutMS = 5000
	}
	if cfg.Providers.Professional.Name == "" {
		cfg.Providers.Professional.Name = "supersalud"
	}
	if cfg.Providers.Professional.TimeoutMS == 0 {
		cfg.Providers.Professional.TimeoutMS = 15000
	}
	if cfg.Providers.Professional.ProbeTimeoutMS == 0 {
		cfg.Providers.Professional.ProbeTimeoutMS = 5000
	}
	if cfg.Verification.NameMatchThreshold == 0 {
		cfg.Verification.NameMatchThreshold = 80
	}
	if cfg.Verification.RegistryCacheTTLS == 0 {
		cfg.Verification.RegistryCacheTTLS = 900
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 20
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.AuditIndex == "" {
		cfg.Database.Elasticsearch.AuditIndex = "verification-audit"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Verification.NameMatchThreshold < 0 || cfg.Verification.NameMatchThreshold > 100 {
		return fmt.Errorf("verification.name_match_threshold must be in [0,100], got %d",
			cfg.Verification.NameMatchThreshold)
	}
	if cfg.Providers.Identity.BaseURL == "" {
		return fmt.Errorf("providers.identity.base_url is required")
	}
	if cfg.Providers.Professional.BaseURL == "" {
		return fmt.Errorf("providers.professional.base_url is required")
	}
	if cfg.App.IsProduction() && cfg.Security.EvidenceKeyHex == "" {
		return fmt.Errorf("security.evidence_key_hex is required in production")
	}
	return nil
}
