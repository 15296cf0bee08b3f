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

	"github.com/shizuo-kaji/markov-game/internal/api"
	"github.com/shizuo-kaji/markov-game/internal/config"
	"github.com/shizuo-kaji/markov-game/internal/engine"
	"github.com/shizuo-kaji/markov-game/internal/event"
	"github.com/shizuo-kaji/markov-game/internal/history"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	cfgPath := flag.String("config", "", "Path to YAML config (optional)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	// ── History stores ────────────────────────────────────────────────────────
	store := history.NewMemoryStore()
	var archive *history.Archive
	if cfg.History.SQLitePath != "" {
		archive, err = history.OpenArchive(cfg.History.SQLitePath)
		if err != nil {
			slog.Error("failed to open history archive", "err", err)
			os.Exit(1)
		}
		defer archive.Close()
		slog.Info("history archive enabled", "path", cfg.History.SQLitePath)
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := event.NewBus(cfg.Engine.EventBuffer)
	eng := engine.New(ctx, cfg, bus, store, archive)

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.Config) {
		if err := config.Validate(newCfg); err != nil {
			slog.Warn("hot-reload skipped: config invalid", "err", err)
			return
		}
		eng.SwapDefaults(newCfg.Game)
		slog.Info("room defaults hot-reloaded",
			"points_per_round", newCfg.Game.PointsPerRound,
			"max_rounds", newCfg.Game.MaxRounds)
	})
	if *cfgPath != "" {
		stopWatch, err := loader.Watch()
		if err != nil {
			slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
		} else {
			defer stopWatch()
		}
	}

	// ── Event log tap ─────────────────────────────────────────────────────────
	events, unsubscribe := bus.Subscribe("log")
	defer unsubscribe()
	go func() {
		for ev := range events {
			slog.Info("domain event", "type", ev.Type, "room", ev.RoomID)
		}
	}()

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.New(eng),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeoutMs)*time.Millisecond)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	eng.Shutdown()
	cancel()
	slog.Info("goodbye")
}
