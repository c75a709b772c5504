// main.go
//
// Entry point for the Odd One Out server.
// Loads configuration from the environment (and .env when present), wires the
// level generator, the session store and the HTTP server, then serves until
// SIGINT/SIGTERM.

package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/oddone/internal/config"
	"github.com/robalobadob/oddone/internal/httpserver"
	"github.com/robalobadob/oddone/internal/levelgen"
	"github.com/robalobadob/oddone/internal/session"
	"github.com/robalobadob/oddone/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := levelgen.New(ctx, levelgen.Config{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: cfg.LevelgenTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init level generator")
	}
	if !cfg.GenerationEnabled() {
		log.Warn().Msg("no API key configured, normal games use the built-in levels")
	}

	mem := store.NewMemoryStore()
	defer mem.Close()
	store.StartSweeper(ctx, mem, time.Minute, cfg.SessionIdle)

	srv := httpserver.New(httpserver.Options{
		Store: mem,
		NewSession: func(id string) *session.Session {
			return session.New(id, session.Options{
				Source:           src,
				Rand:             rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
				CelebrationDelay: cfg.CelebrationDelay,
			})
		},
		Secret:              []byte(cfg.SessionSecret),
		CookieName:          cfg.SessionCookie,
		CookieSecure:        cfg.CookieSecure,
		ClientOrigin:        cfg.ClientOrigin,
		PortraitPath:        cfg.PortraitPath,
		PortraitFallbackURL: cfg.PortraitFallbackURL,
	})

	hs := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("port", cfg.Port).Bool("generation", cfg.GenerationEnabled()).Msg("starting oddone server")
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}
