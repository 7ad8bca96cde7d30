package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/timgst1/aegis/internal/app"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "mint" {
		if err := runMint(os.Args[2:]); err != nil {
			slog.Error("mint failed", "err", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: app.ParseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	a, err := app.Build(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		logger.Error("policy manager start failed", "err", err)
		os.Exit(1)
	}

	srv := app.BuildServer(cfg, a.Handler)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
