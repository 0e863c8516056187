package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lanbix/live-interview/internal/adapters/assist"
	router "github.com/lanbix/live-interview/internal/adapters/http"
	"github.com/lanbix/live-interview/internal/adapters/signal"
	"github.com/lanbix/live-interview/internal/adapters/storage/memory"
	redisstore "github.com/lanbix/live-interview/internal/adapters/storage/redis"
	"github.com/lanbix/live-interview/internal/app"
	"github.com/lanbix/live-interview/internal/config"
	"github.com/lanbix/live-interview/internal/core"
)

func main() {
	ctx, cancel := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init session store")
	}

	reg := core.NewRegistry()
	bc := app.NewBroadcaster(reg)
	engine := app.NewEngine(store, reg, bc)
	engine.AutoCreate = cfg.AutoCreateRooms

	var assistant core.Assistant
	if cfg.Assist.Enabled {
		if cfg.Assist.BaseURL != "" {
			assistant = assist.NewClient(cfg.Assist.BaseURL, cfg.Assist.Timeout)
		} else {
			assistant = assist.NewStub()
		}
	}
	questions := app.NewQuestions(engine, assistant)
	relay := app.NewRelay(store, reg, bc)

	ctl := signal.NewController(engine, relay, questions, reg, bc, cfg.ReadLimit, cfg.PingPeriod)
	r := router.SetupRouter(ctx, cfg, ctl)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("live interview server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	// Close out sessions that are still live before the process dies.
	engine.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited gracefully")
}

func buildStore(ctx context.Context, cfg *config.Config) (core.SessionStore, error) {
	if cfg.Store.Backend != "redis" {
		return memory.NewStore(), nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Store.RedisAddr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info().Str("addr", cfg.Store.RedisAddr).Msg("connected to redis")
	return redisstore.NewStore(rdb, cfg.Store.TTL), nil
}
