// main.go
//
// Entry point for the cooperative Minesweeper server.
// Responsibilities:
//   - Load configuration (.env + environment) and configure the global zerolog logger.
//   - Open the snapshot store and restore the most recent game into the engine.
//   - Wire engine listeners: websocket hub broadcast and asynchronous snapshot writer.
//   - Run hub, writer and HTTP server together; shut down cleanly on SIGINT/SIGTERM.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/coopsweeper/server/internal/config"
	"github.com/coopsweeper/server/internal/game"
	"github.com/coopsweeper/server/internal/httpserver"
	"github.com/coopsweeper/server/internal/hub"
	"github.com/coopsweeper/server/internal/leaderboard"
	"github.com/coopsweeper/server/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer closeStore()

	engine, err := game.New(cfg.Board)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create engine")
	}
	restoreLatest(ctx, engine, st)

	writer := store.NewWriter(st, cfg.WriteQueue)
	h := hub.New(engine, cfg.ClientOrigin)
	engine.AddListener(h.Listener())
	engine.AddListener(writer.Listener())

	srv := httpserver.New(cfg, engine, h, leaderboard.NewService(st))
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.Run(gctx) })
	g.Go(func() error { return writer.Run(gctx) })
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).
			Int("rows", cfg.Board.Rows).Int("cols", cfg.Board.Cols).Int("mines", cfg.Board.Mines).
			Msg("starting minesweeper server")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited")
		closeStore()
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

// setupLogging applies LOG_LEVEL and, in development, the human-readable console writer.
func setupLogging(cfg *config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown LOG_LEVEL, keeping default")
	}
	if cfg.Development() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// restoreLatest loads the most recent game so a restart resumes it. Failures start fresh.
func restoreLatest(ctx context.Context, engine *game.Engine, st store.Store) {
	lctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	snap, err := st.Latest(lctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Info().Msg("no saved game, waiting for first start")
		return
	case err != nil:
		log.Warn().Err(err).Msg("load latest game")
		return
	}
	if err := engine.Restore(snap); err != nil {
		log.Warn().Err(err).Str("gameId", snap.ID).Msg("saved game not restorable, waiting for first start")
		return
	}
	log.Info().Str("gameId", snap.ID).Str("status", string(snap.Status)).Msg("restored game")
}
