package main

import (
	"github.com/lox/robobot/internal/server"
	"github.com/lox/robobot/internal/stats"
)

// ServeCmd runs the HTTP server.
type ServeCmd struct {
	Addr    string `env:"ROBOBOT_ADDR" help:"Listen address, overriding the configured host and port"`
	Seed    *int64 `env:"ROBOBOT_SEED" help:"Deterministic decision seed (optional)"`
	NoStats bool   `name:"no-stats" help:"Disable the statistics endpoints"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	agent, err := g.agent(cfg, logger, c.Seed)
	if err != nil {
		return err
	}
	timeout, err := cfg.ShutdownTimeout()
	if err != nil {
		return err
	}

	addr := cfg.Addr()
	if c.Addr != "" {
		addr = c.Addr
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithShutdownTimeout(timeout),
	}
	if !c.NoStats {
		opts = append(opts, server.WithLedger(stats.NewLedger(cfg.Stats.File, logger)))
	}

	logger.Info().
		Str("address", addr).
		Str("default_strategy", agent.Table().Default().Name).
		Int("samples", cfg.Agent.Samples).
		Int("workers", cfg.Agent.Workers).
		Bool("stats", !c.NoStats).
		Str("stats_file", cfg.Stats.File).
		Msg("Starting robobot server")

	ctx, cancel := signalContext(logger)
	defer cancel()

	if err := server.New(addr, agent, opts...).Start(ctx); err != nil {
		logger.Error().Err(err).Msg("Server error")
		return err
	}
	logger.Info().Msg("Server stopped")
	return nil
}
