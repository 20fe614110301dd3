// Package server wires the configured directives into an HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"rootserve/config"
	"rootserve/handlers"
)

// deps are the long-lived collaborators shared by all requests.
type deps struct {
	cfg     *config.Config
	stats   *handlers.Stats
	monitor *handlers.RootMonitor
	bw      *handlers.BandwidthManager
}

// NewHandler builds the request handler for cfg. stats and monitor may be
// nil.
func NewHandler(cfg *config.Config, stats *handlers.Stats, monitor *handlers.RootMonitor) http.Handler {
	d := &deps{
		cfg:     cfg,
		stats:   stats,
		monitor: monitor,
		bw:      handlers.NewBandwidthManager(cfg.BandwidthLimit),
	}
	return logRequests(recoverPanics(d.bw.Wrap(newPipeline(d))))
}

// Run serves cfg until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, cfg *config.Config) error {
	stats, err := handlers.NewStats(cfg.StatsDir)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	defer stats.Close()

	var monitor *handlers.RootMonitor
	if cfg.Root != nil {
		monitor, err = handlers.StartRootMonitor(*cfg.Root)
		if err != nil {
			// Serving still works; health just cannot notice the root vanishing.
			logrus.WithError(err).Warn("watcher: could not start root monitor")
			monitor = nil
		} else {
			defer monitor.Close()
		}
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	logStartup(cfg, addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: NewHandler(cfg, stats, monitor),

		// Slowloris defence: clients must finish their headers in time.
		ReadHeaderTimeout: 20 * time.Second,
		IdleTimeout:       120 * time.Second,

		// No WriteTimeout: large downloads can legitimately run for hours.
	}

	errorChan := make(chan error, 1)
	go func() {
		errorChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errorChan:
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}
	logrus.Info("Stopping HTTP...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errorChan; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logrus.Info("HTTP stopped")
	return nil
}

// logStartup prints a summary of the active configuration.
func logStartup(cfg *config.Config, addr string) {
	sep := "-------------------------------------------"
	logrus.Info(sep)
	logrus.Info("  rootserve")
	logrus.Info(sep)
	logrus.Infof("  %-18s %s", "Address:", "http://"+addr)
	if cfg.Root != nil {
		logrus.Infof("  %-18s %s", "Root:", *cfg.Root)
	} else {
		logrus.Warnf("  %-18s %s", "Root:", "(none, file requests answer 500)")
	}
	logrus.Infof("  %-18s %s", "Index:", cfg.Index)

	if cfg.BandwidthLimit > 0 {
		logrus.Infof("  %-18s %s/s", "Bandwidth limit:", handlers.FormatBandwidth(cfg.BandwidthLimit))
	} else {
		logrus.Infof("  %-18s %s", "Bandwidth limit:", "unlimited")
	}

	if cfg.StatsDir != "" {
		logrus.Infof("  %-18s %s", "Stats dir:", cfg.StatsDir)
	} else {
		logrus.Infof("  %-18s %s", "Stats dir:", "(in memory)")
	}
	logrus.Infof("  %-18s health=%s  stats=%s", "Endpoints:", orOff(cfg.HealthPath), orOff(cfg.StatsPath))
	logrus.Info(sep)
}

func orOff(p string) string {
	if p == "" {
		return "off"
	}
	return p
}
