package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("LOANDESK_STORAGE_DRIVER", "memory")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, 15*time.Minute, cfg.Auth.MagicLinkTTL)
	require.Equal(t, 7*24*time.Hour, cfg.Auth.InvitationTTL)
	require.Equal(t, 14, cfg.Auth.TrialDays)
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
app:
  env: prod
server:
  addr: ":9999"
storage:
  driver: pg
  dsn: postgres://localhost/loandesk
auth:
  magic_link_ttl: 5m
  trial_days: 30
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	// el entorno pisa al YAML
	t.Setenv("LOANDESK_SERVER_ADDR", ":7777")
	t.Setenv("LOANDESK_MAGIC_LINK_TTL", "2m")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "prod", cfg.App.Env)
	require.Equal(t, ":7777", cfg.Server.Addr)
	require.Equal(t, 2*time.Minute, cfg.Auth.MagicLinkTTL)
	require.Equal(t, 30, cfg.Auth.TrialDays)
}

func TestLoad_Validation(t *testing.T) {
	t.Setenv("LOANDESK_STORAGE_DRIVER", "pg")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err) // pg sin DSN

	t.Setenv("LOANDESK_STORAGE_DRIVER", "cassandra")
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
