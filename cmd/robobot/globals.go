package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"

	"github.com/lox/robobot/internal/bot"
	"github.com/lox/robobot/internal/config"
	"github.com/lox/robobot/internal/evaluator"
)

// Globals are the flags shared by every command.
type Globals struct {
	Config  string `short:"c" default:"robobot.hcl" env:"ROBOBOT_CONFIG" help:"Configuration file (defaults apply when it does not exist)"`
	Debug   bool   `env:"ROBOBOT_DEBUG" help:"Enable debug logging"`
	NoColor bool   `name:"no-color" env:"ROBOBOT_NO_COLOR" help:"Disable colored output"`
}

// load reads and validates the configuration and builds the logger it
// describes.
func (g *Globals) load() (*config.Config, zerolog.Logger, error) {
	if g.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid config %s: %w", g.Config, err)
	}
	return cfg, g.logger(cfg.Log, os.Stderr), nil
}

// logger configures zerolog with pretty console output or structured JSON.
// --debug wins over the configured level.
func (g *Globals) logger(lc config.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if g.Debug {
		level = zerolog.DebugLevel
	}

	if lc.Format == "json" {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		return zerolog.New(w).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: g.NoColor}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// agent builds the decision agent described by cfg. A non-nil seed
// overrides the configured one.
func (g *Globals) agent(cfg *config.Config, logger zerolog.Logger, seed *int64) (*bot.Agent, error) {
	table, err := cfg.Table()
	if err != nil {
		return nil, err
	}
	opts := []bot.Option{
		bot.WithLogger(logger),
		bot.WithTable(table),
		bot.WithEvaluator(equity(cfg, 0)),
	}

	s := cfg.Agent.Seed
	if seed != nil {
		s = *seed
	}
	if s != 0 {
		logger.Info().Int64("seed", s).Msg("Using deterministic seed")
		opts = append(opts, bot.WithSeed(s))
	}
	return bot.New(opts...), nil
}

// equity builds the strength evaluator. samples overrides the configured
// count when positive.
func equity(cfg *config.Config, samples int) *evaluator.Equity {
	if samples <= 0 {
		samples = cfg.Agent.Samples
	}
	return evaluator.NewEquity(
		evaluator.WithSamples(samples),
		evaluator.WithWorkers(cfg.Agent.Workers),
	)
}

// signalContext creates a context that is cancelled on interrupt signals and
// logs the signal.
func signalContext(logger zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down gracefully")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
