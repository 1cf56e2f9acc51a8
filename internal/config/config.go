package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string   `mapstructure:"PORT"`
	Env                string   `mapstructure:"ENV"`
	DatabaseURL        string   `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins        []string `mapstructure:"CORS_ORIGINS"`
	AuthURL            string   `mapstructure:"AUTH_URL"`
	AuthAPIKey         string   `mapstructure:"AUTH_API_KEY"`
	AuthRestoreTimeout int      `mapstructure:"AUTH_RESTORE_TIMEOUT"`
	DocGenURL          string   `mapstructure:"DOCGEN_URL"`
	DocPromptURL       string   `mapstructure:"DOCGEN_PROMPT_URL"`
	PatientSearchURL   string   `mapstructure:"PATIENT_SEARCH_URL"`
	WebhookSecret      string   `mapstructure:"WEBHOOK_SECRET"`
	TLSEnabled         bool     `mapstructure:"TLS_ENABLED"`
	TLSCertFile        string   `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile         string   `mapstructure:"TLS_KEY_FILE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("AUTH_RESTORE_TIMEOUT", 8)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AUTH_URL")
	v.BindEnv("AUTH_API_KEY")
	v.BindEnv("AUTH_RESTORE_TIMEOUT")
	v.BindEnv("DOCGEN_URL")
	v.BindEnv("DOCGEN_PROMPT_URL")
	v.BindEnv("PATIENT_SEARCH_URL")
	v.BindEnv("WEBHOOK_SECRET")
	v.BindEnv("TLS_ENABLED")
	v.BindEnv("TLS_CERT_FILE")
	v.BindEnv("TLS_KEY_FILE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// RestoreTimeout returns the bound applied to session restoration against the
// identity provider. A dead network must degrade to unauthenticated instead of
// holding clients in a loading state forever.
func (c *Config) RestoreTimeout() time.Duration {
	return time.Duration(c.AuthRestoreTimeout) * time.Second
}

// Validate checks that the configuration is safe to run. Outside development
// the identity provider endpoint must be configured so that protected routes
// are actually protected.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthURL == "" {
		return fmt.Errorf(
			"AUTH_URL must be set when ENV=%q. "+
				"Refusing to start without an identity provider configured", c.Env)
	}
	if c.AuthURL != "" && c.AuthAPIKey == "" {
		return fmt.Errorf("AUTH_API_KEY is required when AUTH_URL is set")
	}
	if c.AuthRestoreTimeout <= 0 {
		return fmt.Errorf("AUTH_RESTORE_TIMEOUT must be positive, got %d", c.AuthRestoreTimeout)
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
