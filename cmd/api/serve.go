package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/auth"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/claim"
	claimrepo "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/claim/repo"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/config"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/group"
	grouprepo "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/group/repo"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/notification"
	notificationrepo "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/notification/repo"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/oauth"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/router"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/setting"
	settingrepo "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/setting/repo"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/token"
	tokenrepo "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/token/repo"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/transfer"
	transferrepo "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/transfer/repo"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/pkg/database"
)

const (
	shutdownGrace = 5 * time.Second
	purgeEvery    = time.Hour
)

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func serve(parent context.Context, migrate bool) error {
	lg, err := newLogger()
	if err != nil {
		return err
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	cfg := config.ConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.JWTSecret == config.DevJWTSecret {
		sugar.Warn("using the development JWT secret; set JWT_SECRET")
	}

	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		return err
	}
	defer db.Close()

	if migrate {
		if err := database.RunMigrations(db.DB); err != nil {
			return err
		}
		sugar.Info("migrations applied")
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	whitelist := tokenrepo.NewWhitelistRepo(db)
	deps, err := buildDeps(ctx, cfg, db, whitelist, sugar)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router.RegisterRoutes(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sugar.Infow("listening", "addr", cfg.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		purgeTokens(gctx, whitelist, sugar)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sugar.Info("shutting down")
		done, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := db.PingContext(done); err != nil {
			sugar.Warnw("db ping on shutdown failed", "err", err)
		}
		return srv.Shutdown(done)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	sugar.Info("goodbye")
	return nil
}

// buildDeps wires repositories, services and handlers.
func buildDeps(ctx context.Context, cfg config.Config, db *sqlx.DB, whitelist *tokenrepo.WhitelistRepo, logger *zap.SugaredLogger) (router.Deps, error) {
	users := userrepo.NewUserRepo(db)

	tokens := token.NewService(token.Config{Secret: []byte(cfg.JWTSecret), TTL: cfg.TokenTTL}, whitelist)
	settings := setting.NewService(settingrepo.NewRepo(db), logger)
	groups := group.NewService(grouprepo.NewGroupRepo(db), logger)
	notifier := notification.NewService(notificationrepo.NewOutboxRepo(db), settings, logger)
	claims := claim.NewService(claimrepo.NewClaimRepo(db), groups, notifier, logger)
	transfers := transfer.NewService(transferrepo.NewTransferRepo(db), users, logger)

	userSvc := user.NewUserService(users, tokens, groups, settings, user.BcryptHasher{Cost: cfg.BcryptCost}, logger)
	userSvc.AdminAccessCode = cfg.AdminAccessCode

	cookie := auth.CookieConfig{TTL: tokens.TTL(), Secure: cfg.CookieSecure, HTTPOnly: cfg.CookieHTTPOnly}

	deps := router.Deps{
		Logger:      logger,
		Resolver:    userSvc,
		CORSOrigins: cfg.CORSOrigins,
		AuthLimit:   router.RateLimitConfig{RequestsPerSecond: cfg.AuthRateLimit, Burst: cfg.AuthRateBurst},
		Users:       user.NewHandler(userSvc, tokens, cookie, logger),
		Settings:    setting.NewHandler(settings, logger),
		Groups:      group.NewHandler(groups, logger),
		Claims:      claim.NewHandler(claims, logger),
		Transfers:   transfer.NewHandler(transfers, logger),
	}

	if cfg.OIDC.Enabled() {
		provider, err := oauth.NewOIDCProvider(ctx, cfg.OIDC)
		if err != nil {
			return router.Deps{}, err
		}
		deps.OAuth = oauth.NewHandler(provider, userSvc, tokens, cookie, logger)
		logger.Infow("oauth login enabled", "issuer", cfg.OIDC.Issuer)
	}
	return deps, nil
}

// purgeTokens drops expired whitelist rows until ctx is cancelled.
func purgeTokens(ctx context.Context, whitelist *tokenrepo.WhitelistRepo, logger *zap.SugaredLogger) {
	ticker := time.NewTicker(purgeEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := whitelist.PurgeExpired(ctx)
			if err != nil {
				logger.Warnw("token purge failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Debugw("purged expired tokens", "count", n)
			}
		}
	}
}
