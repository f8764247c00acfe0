package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/sync/errgroup"

	"exchange-analytics-dashboard/internal/config"
	"exchange-analytics-dashboard/internal/controller"
	httpserver "exchange-analytics-dashboard/internal/http"
	"exchange-analytics-dashboard/internal/logger"
	"exchange-analytics-dashboard/internal/metrics"
	"exchange-analytics-dashboard/internal/repository"
	"exchange-analytics-dashboard/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLog := logger.New(logger.Options{
		ServiceName: "exchange-analytics-dashboard",
		Level:       logger.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	upstream := metrics.NewUpstream()
	repo := repository.NewAnalyticsRepository(cfg.APIBaseURL,
		repository.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		repository.WithMetrics(upstream),
	)

	health := service.NewHealthMonitor(repo, appLog)
	location := cfg.Location()
	dashboardService := service.NewDashboardService(repo, health, service.WorkspaceOptions{
		SearchDelay:     cfg.SearchDelay,
		SearchMinLength: cfg.SearchMinLength,
		WeekStart:       cfg.FirstDayOfWeek(),
		Now:             func() time.Time { return time.Now().In(location) },
		IdleTimeout:     cfg.SessionIdleTimeout,
	}, appLog, upstream)
	dashboardController := controller.NewDashboardController(dashboardService, controller.Options{
		CookieName:   cfg.SessionCookie,
		CookieSecure: cfg.CookieSecure,
	}, appLog)

	server := httpserver.NewServer(cfg, dashboardController, upstream, appLog)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLog.Info(appLog.WithField(ctx, "addr", cfg.HTTPPort), "starting server")
		return server.Listen(cfg.HTTPPort)
	})
	g.Go(func() error {
		status := health.Refresh(gctx)
		appLog.Info(appLog.WithField(gctx, "backend", status.Status), "initial backend health")
		return health.Poll(gctx, cfg.HealthPollInterval)
	})
	g.Go(func() error {
		return dashboardService.SweepIdle(gctx, cfg.SessionSweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		appLog.Info(context.Background(), "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		dashboardService.Shutdown()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("server stopped: %v", err)
	}
	appLog.Info(context.Background(), "server stopped")
}
