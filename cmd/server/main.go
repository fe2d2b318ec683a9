package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/callbridge/callbridge/internal/adapters/httpapi"
	wssignal "github.com/callbridge/callbridge/internal/adapters/signal"
	"github.com/callbridge/callbridge/internal/app"
	"github.com/callbridge/callbridge/internal/audit"
	"github.com/callbridge/callbridge/internal/config"
	"github.com/callbridge/callbridge/internal/core"
	"github.com/callbridge/callbridge/internal/session"
	"github.com/callbridge/callbridge/internal/store"
	"github.com/callbridge/callbridge/internal/store/gormstore"
	"github.com/callbridge/callbridge/internal/store/memstore"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Secret == "" {
		log.Fatal().Msg("secret must be configured")
	}

	var st store.Store
	if cfg.DSN == "" {
		log.Warn().Msg("no dsn configured, using in-memory store")
		st = memstore.New()
	} else {
		gs, err := gormstore.Open(cfg.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open store")
		}
		st = gs
	}

	sessions := session.NewService(st)
	registry := app.NewRegistry()
	hub := core.NewHub()
	recorder := audit.NewRecorder(st.ConnectionLogs())
	relay := app.NewRelay(sessions, registry, hub, recorder)
	ws := wssignal.NewController(relay, cfg.ReadLimit, cfg.SendBuffer, cfg.PingPeriod)

	r := httpapi.SetupRouter(ctx, cfg, sessions, ws)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("signaling server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
