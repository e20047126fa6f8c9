package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del servicio.
// Se carga desde YAML y se puede sobreescribir con variables de entorno.
type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// BaseURL se usa para construir los magic links que van por email.
		BaseURL            string   `yaml:"base_url"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		// pg | memory
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Auth struct {
		MagicLinkTTL  time.Duration `yaml:"magic_link_ttl"`
		OTPTTL        time.Duration `yaml:"otp_ttl"`
		InvitationTTL time.Duration `yaml:"invitation_ttl"`
		// TrialDays es la duración del trial que se siembra al crear un tenant.
		TrialDays int `yaml:"trial_days"`
	} `yaml:"auth"`

	Rate struct {
		Enabled bool `yaml:"enabled"`

		Login struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`

		OTP struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"otp"`

		Invitations struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"invitations"`
	} `yaml:"rate"`

	SMTP struct {
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		FromEmail string `yaml:"from_email"`
		Username  string `yaml:"username"`
		Password  string `yaml:"password"`
		// auto | starttls | ssl | none
		TLSMode string `yaml:"tls_mode"`
	} `yaml:"smtp"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`
}

// Load lee el archivo YAML (si existe) y aplica overrides de entorno.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) defaults() {
	c.App.Env = "dev"
	c.App.LogLevel = "info"
	c.Server.Addr = ":8080"
	c.Server.BaseURL = "http://localhost:8080"
	c.Storage.Driver = "pg"
	c.Storage.Postgres.MaxConns = 10
	c.Cache.Kind = "memory"
	c.Cache.Memory.DefaultTTL = "2m"
	c.Auth.MagicLinkTTL = 15 * time.Minute
	c.Auth.OTPTTL = 10 * time.Minute
	c.Auth.InvitationTTL = 7 * 24 * time.Hour
	c.Auth.TrialDays = 14
	c.Rate.Login.Limit = 5
	c.Rate.Login.Window = "1m"
	c.Rate.OTP.Limit = 5
	c.Rate.OTP.Window = "1m"
	c.Rate.Invitations.Limit = 20
	c.Rate.Invitations.Window = "1m"
	c.SMTP.Port = 587
	c.SMTP.TLSMode = "auto"
	c.Metrics.Enabled = true
	c.Metrics.Addr = ":9090"
}

// applyEnv aplica overrides LOANDESK_* sobre lo cargado del YAML.
func (c *Config) applyEnv() {
	envStr("LOANDESK_APP_ENV", &c.App.Env)
	envStr("LOANDESK_LOG_LEVEL", &c.App.LogLevel)
	envStr("LOANDESK_SERVER_ADDR", &c.Server.Addr)
	envStr("LOANDESK_BASE_URL", &c.Server.BaseURL)
	envStr("LOANDESK_STORAGE_DRIVER", &c.Storage.Driver)
	envStr("LOANDESK_STORAGE_DSN", &c.Storage.DSN)
	envStr("LOANDESK_CACHE_KIND", &c.Cache.Kind)
	envStr("LOANDESK_REDIS_ADDR", &c.Cache.Redis.Addr)
	envInt("LOANDESK_REDIS_DB", &c.Cache.Redis.DB)
	envDur("LOANDESK_MAGIC_LINK_TTL", &c.Auth.MagicLinkTTL)
	envDur("LOANDESK_OTP_TTL", &c.Auth.OTPTTL)
	envDur("LOANDESK_INVITATION_TTL", &c.Auth.InvitationTTL)
	envInt("LOANDESK_TRIAL_DAYS", &c.Auth.TrialDays)
	envBool("LOANDESK_RATE_ENABLED", &c.Rate.Enabled)
	envStr("LOANDESK_SMTP_HOST", &c.SMTP.Host)
	envInt("LOANDESK_SMTP_PORT", &c.SMTP.Port)
	envStr("LOANDESK_SMTP_FROM", &c.SMTP.FromEmail)
	envStr("LOANDESK_SMTP_USER", &c.SMTP.Username)
	envStr("LOANDESK_SMTP_PASS", &c.SMTP.Password)
	envBool("LOANDESK_METRICS_ENABLED", &c.Metrics.Enabled)
	envStr("LOANDESK_METRICS_ADDR", &c.Metrics.Addr)
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case "pg", "memory":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if strings.ToLower(c.Storage.Driver) == "pg" && c.Storage.DSN == "" {
		return fmt.Errorf("config: storage.dsn is required for the pg driver")
	}
	if c.Auth.TrialDays <= 0 {
		return fmt.Errorf("config: auth.trial_days must be positive")
	}
	return nil
}

// ---- helpers de entorno ----

func envStr(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDur(key string, dst *time.Duration) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
