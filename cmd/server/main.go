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

	router "github.com/dkeye/pulse/internal/adapters/http"
	"github.com/dkeye/pulse/internal/adapters/store"
	"github.com/dkeye/pulse/internal/app"
	"github.com/dkeye/pulse/internal/app/orch"
	"github.com/dkeye/pulse/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Logger first so config.Load can report through it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		zerolog.SetGlobalLevel(lvl)
	}

	identityPolicy, err := app.ParseIdentityPolicy(cfg.IdentityPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("identity policy")
	}
	policy, err := app.ParsePolicy(cfg.SlowConsumer)
	if err != nil {
		log.Fatal().Err(err).Msg("slow consumer policy")
	}

	locStore, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("location store")
	}
	defer closeStore()

	bridge := app.NewLocationBridge(locStore, app.LocationConfig{
		QueueSize: cfg.Location.QueueSize,
		Workers:   cfg.Location.Workers,
		Timeout:   cfg.Location.Timeout,
	})
	bridge.Start(ctx)

	o := orch.New(app.NewRegistry(identityPolicy), policy, bridge)

	reader, _ := locStore.(app.LocationReader)
	r := router.SetupRouter(ctx, cfg, o, reader)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Str("identity_policy", identityPolicy.String()).Msg("pulse server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	bridge.Stop()
	log.Info().Int("connections", o.Registry.Len()).Msg("Server exited gracefully")
}
