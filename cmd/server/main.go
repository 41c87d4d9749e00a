package main

import (
    "context"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/rs/zerolog/log"

    "stockdata/internal/app"
    "stockdata/internal/config"
    "stockdata/internal/logger"
)

var version = "dev"

func main() {
    // Config
    cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
    if err != nil { log.Fatal().Err(err).Msg("config") }
    if err := logger.Init(logger.Config{
        Level:          cfg.Log.Level,
        Format:         cfg.Log.Format,
        FileEnabled:    cfg.Log.FileEnabled,
        FilePath:       cfg.Log.FilePath,
        RotationSize:   cfg.Log.RotationSize,
        RetentionDays:  cfg.Log.RetentionDays,
        ServiceName:    "stockdata-server",
        ServiceVersion: version,
    }); err != nil {
        log.Fatal().Err(err).Msg("logger")
    }

    a, err := app.Build(cfg)
    if err != nil { log.Fatal().Err(err).Msg("build services") }

    timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second
    srv := &http.Server{
        Addr:              ":" + cfg.Server.Port,
        Handler:           newRouter(a.Client, a.Proxy, 2*timeout),
        ReadHeaderTimeout: 5 * time.Second,
        ReadTimeout:       15 * time.Second,
        WriteTimeout:      2*timeout + 5*time.Second,
        IdleTimeout:       60 * time.Second,
    }

    go func() {
        log.Info().Str("addr", srv.Addr).Msg("server listening")
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatal().Err(err).Msg("server")
        }
    }()

    // graceful shutdown
    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()
    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := srv.Shutdown(shutdownCtx); err != nil {
        log.Error().Err(err).Msg("shutdown")
    }
    log.Info().Msg("server stopped")
}
