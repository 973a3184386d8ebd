package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"shiftguard/internal/evaluation"
	evalhandler "shiftguard/internal/evaluation/handler"
	httpapi "shiftguard/internal/http"
	jwttoken "shiftguard/internal/jwt_token"
	"shiftguard/internal/platform/config"
	"shiftguard/internal/platform/httpserver"
	"shiftguard/internal/platform/logger"
	"shiftguard/internal/platform/tracing"
)

const (
	shutdownTimeout = 30 * time.Second
	adminIssuer     = "shiftguard"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the ops HTTP surface",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.OTLPEndpoint, "shiftguard", version)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()
	a.queue.Start(ctx)

	scheduler, err := evaluation.NewScheduler(a.evaluation, cfg.EvalInterval, cfg.EvalStartHour, cfg.EvalEndHour,
		evaluation.WithSchedulerLogger(log),
	)
	if err != nil {
		return err
	}

	deps := httpapi.Deps{
		Logger:  log,
		Metrics: a.registry.Handler(),
		Checks:  map[string]httpapi.HealthCheck{},
	}
	if a.db != nil {
		deps.Checks["postgres"] = a.db.PingContext
	}
	if a.redis != nil {
		deps.Checks["redis"] = a.redis.Health
	}
	if cfg.AdminJWTSecret != "" {
		deps.Validator = jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.AdminJWTSecret, adminIssuer))
		deps.Admin = evalhandler.New(a.evaluation, a.alerts, log)
	} else {
		log.Warn("ADMIN_JWT_SECRET not set, admin routes disabled")
	}
	srv := httpserver.New(cfg.HTTPAddr, httpapi.NewRouter(deps))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting shiftguard", "addr", cfg.HTTPAddr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
