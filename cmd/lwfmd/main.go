// Command lwfmd is the lwfm middleware service: it owns the store, runs
// the event processor, and exposes the façade over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"lwfm/internal/config"
	"lwfm/internal/eventproc"
	"lwfm/internal/lwfmanager"
	"lwfm/internal/logging"
	"lwfm/internal/metrics"
	"lwfm/internal/sitebridge"
	"lwfm/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to lwfm.yaml (defaults to ~/.lwfm/lwfm.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lwfmd: load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "lwfmd: invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logging.Wrap(logging.New(cfg.LogLevel, cfg.LogFormat))
	logConfig(log, cfg)

	lock := flock.New(cfg.LockPath)
	locked, err := lock.TryLock()
	if err != nil {
		log.Error("acquire startup lock", "path", cfg.LockPath, "error", err)
		os.Exit(1)
	}
	if !locked {
		log.Error("another lwfmd instance holds the startup lock", "path", cfg.LockPath)
		os.Exit(1)
	}
	defer lock.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg.DBPath, log)
	if err != nil {
		log.Error("open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	bridge := sitebridge.New(log)
	for name, desc := range cfg.Sites {
		bridge.RegisterSite(desc)
		_ = name
	}

	proc := eventproc.New(st, bridge, log)
	proc.Start(ctx)
	defer proc.Stop()

	mgr := lwfmanager.New(st, bridge, proc, &cfg, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	registerAPI(mux, mgr, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received signal, shutting down", "signal", sig.String())
	case err := <-errCh:
		log.Error("server error", "error", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	} else {
		log.Info("server stopped gracefully")
	}
}

func logConfig(log *logging.Logger, cfg config.Config) {
	log.Info("lwfmd configuration",
		"db_path", cfg.DBPath,
		"host", cfg.Host,
		"port", cfg.Port,
		"log_level", cfg.LogLevel,
		"log_format", cfg.LogFormat,
		"lock_path", cfg.LockPath,
		"sites", len(cfg.Sites),
	)
}
