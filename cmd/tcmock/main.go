// CLAUDE:SUMMARY CLI entry point for tcmock: serves the fake vendor console for offline harvest runs.
// Command tcmock serves the fake vendor console.
//
// Usage:
//
//	tcmock -addr :8099
//	TRADECENTRIC_USER=demo TRADECENTRIC_PASSWORD=demo tcharvest -config mock.yaml
//
// with mock.yaml pointing console.base_url at http://localhost:8099.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/punchsync/mockconsole"
)

func main() {
	addr := flag.String("addr", env("TCMOCK_ADDR", ":8099"), "listen address")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fx := mockconsole.DefaultFixture()
	srv := &http.Server{
		Addr:              *addr,
		Handler:           mockconsole.New(fx, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("tcmock: listening", "addr", *addr, "realm", fx.Realm, "user", fx.Username)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("tcmock: server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("tcmock: shutdown", "error", err)
	}
	logger.Info("tcmock: stopped")
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
