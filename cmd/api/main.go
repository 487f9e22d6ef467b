package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/subosito/gotenv"

	"it-inventory-api/internal"
	"it-inventory-api/internal/config"
	"it-inventory-api/internal/inventory"
	"it-inventory-api/internal/logger"
	"it-inventory-api/internal/notify"
	"it-inventory-api/internal/scheduler"
	"it-inventory-api/internal/store"
	"it-inventory-api/pkg/importer"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = gotenv.Load()

	cfg, err := config.LoadAndValidate()
	if err != nil {
		logrus.Fatalf("Configuration error: %v", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.Migrate(cfg.DatabaseDSN); err != nil {
		return err
	}
	st, err := store.Open(ctx, cfg.DatabaseDSN, 0)
	if err != nil {
		return err
	}
	defer st.Close()

	loc, err := cfg.Sweep.Location()
	if err != nil {
		return err
	}
	mapping := importer.DefaultMapping()
	if cfg.ImportMapping != "" {
		if mapping, err = importer.LoadMapping(cfg.ImportMapping); err != nil {
			return err
		}
	}

	metrics := internal.NewMetrics()
	svc := inventory.New(st, notify.NewSender(cfg.SMTP, log), log,
		inventory.WithLocation(loc),
		inventory.WithMetrics(inventory.NewMetrics(metrics.Registry())),
		inventory.WithFrontendURL(cfg.FrontendURL),
		inventory.WithMapping(mapping),
	)

	srv, err := internal.NewServer(cfg, svc, st, metrics, log)
	if err != nil {
		return err
	}

	if cfg.Sweep.Enabled {
		sched, err := scheduler.New(cfg.Sweep, svc, log)
		if err != nil {
			return err
		}
		sched.Start()
		log.WithField("schedule", cfg.Sweep.Schedule).WithField("next_run", sched.Next()).Info("warranty sweep scheduled")
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				log.WithError(err).Warn("scheduler did not stop cleanly")
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":         cfg.HTTPAddr,
			"environment":  cfg.Environment,
			"jwt_issuer":   cfg.JWTIssuer,
			"jwt_audience": cfg.JWTAudience,
			"jwt_expiry":   cfg.JWTExpiry,
		}).Info("starting IT inventory API")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
