// loandesk es el servicio de identidad y acceso de la plataforma: sign-in
// passwordless, invitaciones y permisos por workspace.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/loandesk/internal/audit"
	"github.com/dropDatabas3/loandesk/internal/cache"
	credis "github.com/dropDatabas3/loandesk/internal/cache/redis"
	"github.com/dropDatabas3/loandesk/internal/config"
	apphttp "github.com/dropDatabas3/loandesk/internal/http"
	"github.com/dropDatabas3/loandesk/internal/identity"
	"github.com/dropDatabas3/loandesk/internal/infra/cachefactory"
	"github.com/dropDatabas3/loandesk/internal/invite"
	"github.com/dropDatabas3/loandesk/internal/notify"
	"github.com/dropDatabas3/loandesk/internal/observability/logger"
	"github.com/dropDatabas3/loandesk/internal/rate"
	"github.com/dropDatabas3/loandesk/internal/session"
	"github.com/dropDatabas3/loandesk/internal/store"
	"github.com/dropDatabas3/loandesk/internal/store/pg"
	"github.com/dropDatabas3/loandesk/internal/tokenstore"
)

func main() {
	// .env es opcional; en prod la config viene del YAML + entorno real.
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:          "loandesk",
		Short:        "Identity and access service for loan workspaces",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "ruta del archivo de configuración")

	root.AddCommand(serveCmd(&cfgPath), migrateCmd(&cfgPath))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
			defer func() { _ = logger.Sync() }()
			log := logger.L()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			lifetime, _ := time.ParseDuration(cfg.Storage.Postgres.ConnMaxLifetime)
			repo, err := store.Open(ctx, store.Config{
				Driver:          cfg.Storage.Driver,
				DSN:             cfg.Storage.DSN,
				MaxConns:        cfg.Storage.Postgres.MaxConns,
				ConnMaxLifetime: lifetime,
			})
			if err != nil {
				return fmt.Errorf("store: %w", err)
			}
			defer repo.Close()

			var cacheCfg cachefactory.Config
			cacheCfg.Kind = cfg.Cache.Kind
			cacheCfg.Redis.Addr = cfg.Cache.Redis.Addr
			cacheCfg.Redis.DB = cfg.Cache.Redis.DB
			cacheCfg.Redis.Prefix = cfg.Cache.Redis.Prefix
			cacheCfg.Memory.DefaultTTL = cfg.Cache.Memory.DefaultTTL
			c := cachefactory.Open(cacheCfg)

			var sender notify.Sender
			if cfg.SMTP.Host != "" {
				s := notify.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.FromEmail, cfg.SMTP.Username, cfg.SMTP.Password)
				s.TLSMode = cfg.SMTP.TLSMode
				sender = s
			} else {
				log.Warn("smtp not configured, emails go to the log")
				sender = notify.LogSender{}
			}
			dispatcher := notify.NewDispatcher(sender)

			auditor := audit.NewRecorder(repo)
			tokens := tokenstore.New(repo, tokenstore.Config{
				MagicLinkTTL:  cfg.Auth.MagicLinkTTL,
				OTPTTL:        cfg.Auth.OTPTTL,
				InvitationTTL: cfg.Auth.InvitationTTL,
			})
			resolver := identity.NewResolver(repo, auditor, identity.Config{TrialDays: cfg.Auth.TrialDays})
			sessions := session.New(repo, tokens, resolver, dispatcher, auditor, c, session.Config{
				BaseURL:      cfg.Server.BaseURL,
				MagicLinkTTL: cfg.Auth.MagicLinkTTL,
				OTPTTL:       cfg.Auth.OTPTTL,
			})
			invites := invite.NewManager(repo, tokens, dispatcher, auditor, cfg.Server.BaseURL)

			deps := apphttp.Deps{
				Sessions: sessions,
				Invites:  invites,
				Repo:     repo,
			}
			if cfg.Rate.Enabled {
				deps.LoginLimiter = newLimiter(c, "rl:login:", cfg.Rate.Login.Limit, cfg.Rate.Login.Window)
				deps.OTPLimiter = newLimiter(c, "rl:otp:", cfg.Rate.OTP.Limit, cfg.Rate.OTP.Window)
				deps.InviteLimiter = newLimiter(c, "rl:inv:", cfg.Rate.Invitations.Limit, cfg.Rate.Invitations.Window)
			}

			srv := apphttp.NewServer(cfg.Server.Addr, apphttp.NewRouter(deps))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("http server listening", logger.String("addr", cfg.Server.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})

			var metricsSrv = apphttp.NewMetricsServer(cfg.Metrics.Addr)
			if cfg.Metrics.Enabled {
				g.Go(func() error {
					log.Info("metrics server listening", logger.String("addr", cfg.Metrics.Addr))
					if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
			}

			g.Go(func() error {
				<-gctx.Done()
				log.Info("shutting down")
				_ = apphttp.Shutdown(metricsSrv, 5*time.Second)
				return apphttp.Shutdown(srv, 10*time.Second)
			})

			return g.Wait()
		},
	}
}

func migrateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica el schema sobre la base configurada",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
			defer func() { _ = logger.Sync() }()

			if cfg.Storage.Driver != "pg" {
				return fmt.Errorf("migrate: el driver %q no tiene migraciones", cfg.Storage.Driver)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			st, err := pg.Open(ctx, pg.Config{DSN: cfg.Storage.DSN})
			if err != nil {
				return fmt.Errorf("migrate: open: %w", err)
			}
			defer st.Close()

			if err := st.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.L().Info("schema applied")
			return nil
		},
	}
}

// newLimiter elige el backend del rate limiter según el cache configurado:
// sobre Redis si hay Redis, in-process si no.
func newLimiter(c cache.Cache, prefix string, limit int, window string) rate.Limiter {
	w, err := time.ParseDuration(window)
	if err != nil || w <= 0 {
		w = time.Minute
	}
	if rc, ok := c.(*credis.Cache); ok {
		return rate.NewRedisLimiter(rc.Client(), prefix, limit, w)
	}
	return rate.NewMemoryLimiter(limit, w)
}
