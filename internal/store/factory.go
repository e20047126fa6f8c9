// Package store selecciona el adapter de persistencia según configuración.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/loandesk/internal/store/core"
	"github.com/dropDatabas3/loandesk/internal/store/memory"
	"github.com/dropDatabas3/loandesk/internal/store/pg"
)

// Config del factory.
type Config struct {
	Driver          string // "pg" | "memory"
	DSN             string
	MaxConns        int
	ConnMaxLifetime time.Duration
}

// Open crea el Repository según el driver configurado.
func Open(ctx context.Context, cfg Config) (core.Repository, error) {
	switch strings.ToLower(cfg.Driver) {
	case "memory":
		return memory.New(), nil
	case "pg", "":
		return pg.Open(ctx, pg.Config{
			DSN:             cfg.DSN,
			MaxConns:        cfg.MaxConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
