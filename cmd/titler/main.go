package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/eternisai/enchanted-titler/internal/config"
	"github.com/eternisai/enchanted-titler/internal/controller"
	"github.com/eternisai/enchanted-titler/internal/events"
	"github.com/eternisai/enchanted-titler/internal/host"
	"github.com/eternisai/enchanted-titler/internal/logger"
	"github.com/eternisai/enchanted-titler/internal/metrics"
	"github.com/eternisai/enchanted-titler/internal/modelselect"
	"github.com/eternisai/enchanted-titler/internal/titlegen"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.LoadConfig()

	logConfig := logger.FromConfig(cfg.LogLevel, cfg.LogFormat)
	if cfg.DebugFile != "" {
		f, err := os.OpenFile(cfg.DebugFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			slog.Error("failed to open debug file", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer f.Close()
		logConfig.Output = f
		logConfig.Format = "json"
	}
	log := logger.New(logConfig)

	gin.SetMode(cfg.GinMode)

	// Host API client and the titling pipeline.
	hostClient := host.NewClient(cfg.HostBaseURL)

	selector := modelselect.NewSelector(hostClient, modelselect.Config{
		Model:    cfg.ModelOverride,
		Provider: cfg.ProviderOverride,
	}, log)

	generator := titlegen.NewGenerator(hostClient, cfg.PromptInstruction(), log)

	m := metrics.New(prometheus.DefaultRegisterer)

	ctrl := controller.New(hostClient, selector, generator, controller.Config{
		MaxLength: cfg.MaxTitleLength,
		Disabled:  cfg.Disabled,
	}, log, m)

	// Event stream.
	nc, err := nats.Connect(cfg.NatsURL,
		nats.Name("enchanted-titler"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		log.Error("failed to connect to NATS", slog.String("url", cfg.NatsURL), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer nc.Close()

	subscriber := events.NewSubscriber(nc, ctrl, cfg.EventsSubject, log)
	if err := subscriber.Start(); err != nil {
		log.Error("failed to start event subscription", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Janitor: a crashed or wedged AI attempt must not block its session
	// forever.
	janitor := cron.New()
	if _, err := janitor.AddFunc("@every 5m", func() {
		ctrl.SweepStalePending(cfg.StalePendingCutoff)
	}); err != nil {
		log.Error("failed to schedule janitor", slog.String("error", err.Error()))
		os.Exit(1)
	}
	janitor.Start()

	// Admin server: health and metrics only.
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK
		if !nc.IsConnected() {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    ":" + cfg.AdminPort,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	log.Info("titler started",
		slog.String("host", cfg.HostBaseURL),
		slog.String("nats", cfg.NatsURL),
		slog.String("admin_port", cfg.AdminPort),
		slog.Bool("disabled", cfg.Disabled))

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	if err := subscriber.Stop(); err != nil {
		log.Warn("event subscription drain failed", slog.String("error", err.Error()))
	}

	<-janitor.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("admin server forced to shutdown", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("titler exited")
}
