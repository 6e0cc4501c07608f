package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	rand "math/rand/v2"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/hacobotdev/kart/cmd/kart/shared"
	"github.com/hacobotdev/kart/internal/randutil"
	"github.com/hacobotdev/kart/internal/server"
)

// ServerCmd contains core server configuration
type ServerCmd struct {
	Config        string `kong:"short='c',default='kart-server.hcl',help='Path to HCL configuration file'"`
	Addr          string `kong:"help='Listen address (overrides config)'"`
	Port          int    `kong:"help='Listen port (overrides config)'"`
	LogLevel      string `kong:"help='Log level (overrides config)'"`
	MaxPlayers    int    `kong:"help='Maximum players per room (overrides config)'"`
	Laps          int    `kong:"help='Laps required to win (overrides config)'"`
	TurnTimeoutMs int    `kong:"default='-1',help='Per-turn deadline in ms, 0 disables (overrides config)'"`
	Seed          *int64 `kong:"help='Deterministic RNG seed for the server (optional)'"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}

	// Apply command line overrides
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.MaxPlayers != 0 {
		cfg.Game.MaxPlayers = c.MaxPlayers
	}
	if c.Laps != 0 {
		cfg.Game.Laps = c.Laps
	}
	if c.TurnTimeoutMs >= 0 {
		cfg.Game.TurnTimeoutMs = c.TurnTimeoutMs
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := shared.SetupLogger(cfg.Server.LogLevel)

	var rng *rand.Rand
	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
		rng = randutil.New(seed)
		logger.Info("Using deterministic seed", "seed", seed)
	} else {
		rng, seed = randutil.NewFromTime()
		logger.Info("Using random seed", "seed", seed)
	}

	s := server.NewServer(cfg, rng, quartz.NewReal(), logger)

	logger.Info("Starting kart server",
		"addr", cfg.GetServerAddress(),
		"max_players", cfg.Game.MaxPlayers,
		"laps", cfg.Game.Laps,
		"track_length", cfg.Game.TrackLength,
		"turn_timeout_ms", cfg.Game.TurnTimeoutMs)

	ctx := shared.SetupSignalHandler(logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
