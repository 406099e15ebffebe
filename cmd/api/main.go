package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riskibarqy/faultline/internal/app"
	"github.com/riskibarqy/faultline/internal/config"
	"github.com/riskibarqy/faultline/internal/observability"
	"github.com/riskibarqy/faultline/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, flushLogs, err := observability.InitBetterStackLogger(cfg, logging.NewJSON(cfg.LogLevel))
	if err != nil {
		panic(err)
	}
	logging.SetDefault(logger)

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slogLevel(cfg.LogLevel),
	}))

	shutdownUptrace, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}

	stopPyroscope, err := observability.InitPyroscope(cfg, slogger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}

	pprofSrv, err := observability.StartPprofServer(cfg, slogger)
	if err != nil {
		logger.Error("start pprof server", "error", err)
		os.Exit(1)
	}

	application, err := app.New(cfg, logger, slogger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}

	srv, err := app.NewHTTPServer(cfg, application.Router())
	if err != nil {
		logger.Error("build http server", "error", err)
		os.Exit(1)
	}

	if err := application.Start(context.Background()); err != nil {
		logger.Error("start app", "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("http server starting", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	application.Stop(shutdownCtx)

	if err := observability.StopPprofServer(pprofSrv, slogger, 5*time.Second); err != nil {
		logger.Warn("stop pprof server", "error", err)
	}
	if stopPyroscope != nil {
		if err := stopPyroscope(); err != nil {
			logger.Warn("stop pyroscope", "error", err)
		}
	}
	if shutdownUptrace != nil {
		if err := shutdownUptrace(shutdownCtx); err != nil {
			logger.Warn("shutdown uptrace", "error", err)
		}
	}
	logger.Info("http server stopped")

	if err := flushLogs(shutdownCtx); err != nil {
		logger.Warn("flush logs", "error", err)
	}
	_ = logger.Sync()
}

func slogLevel(level logging.Level) slog.Level {
	switch {
	case level <= logging.LevelDebug:
		return slog.LevelDebug
	case level == logging.LevelInfo:
		return slog.LevelInfo
	case level == logging.LevelWarn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
