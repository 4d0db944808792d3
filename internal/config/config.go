// Package config loads the robobot HCL configuration file.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"

	"github.com/lox/robobot/internal/evaluator"
	"github.com/lox/robobot/internal/stats"
	"github.com/lox/robobot/internal/strategy"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "robobot.hcl"

// Config is the complete configuration.
type Config struct {
	Server     ServerConfig
	Agent      AgentConfig
	Stats      StatsConfig
	Log        LogConfig
	Strategies []StrategyConfig
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	Address         string `hcl:"address,optional"`
	Port            int    `hcl:"port,optional"`
	ShutdownTimeout string `hcl:"shutdown_timeout,optional"`
}

// AgentConfig controls how decisions are made.
type AgentConfig struct {
	Seed            int64  `hcl:"seed,optional"` // 0 seeds from the clock
	Samples         int    `hcl:"samples,optional"`
	Workers         int    `hcl:"workers,optional"`
	DefaultStrategy string `hcl:"default_strategy,optional"`
}

// StatsConfig points at the winnings ledger.
type StatsConfig struct {
	File string `hcl:"file,optional"`
}

// LogConfig selects log verbosity and output format.
type LogConfig struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"` // console or json
}

// StrategyConfig overrides or adds a named strategy. Unset thresholds take
// the defaults of the kind.
type StrategyConfig struct {
	Name                 string   `hcl:"name,label"`
	Kind                 string   `hcl:"kind"`
	CallThreshold        *float64 `hcl:"call_threshold,optional"`
	RaiseThreshold       *float64 `hcl:"raise_threshold,optional"`
	PreflopCallThreshold *float64 `hcl:"preflop_call_threshold,optional"`
	BetUnit              int      `hcl:"bet_unit,optional"`
}

// fileConfig mirrors the file layout; every top-level block is optional.
type fileConfig struct {
	Server     *ServerConfig    `hcl:"server,block"`
	Agent      *AgentConfig     `hcl:"agent,block"`
	Stats      *StatsConfig     `hcl:"stats,block"`
	Log        *LogConfig       `hcl:"log,block"`
	Strategies []StrategyConfig `hcl:"strategy,block"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         "localhost",
			Port:            8080,
			ShutdownTimeout: "5s",
		},
		Agent: AgentConfig{
			Samples:         evaluator.DefaultSamples,
			DefaultStrategy: strategy.DefaultName,
		},
		Stats: StatsConfig{File: stats.DefaultFile},
		Log:   LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads filename. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}
	return decode(file.Body)
}

// Parse decodes configuration source. filename is only used in diagnostics.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}
	return decode(file.Body)
}

func decode(body hcl.Body) (*Config, error) {
	var fc fileConfig
	if diags := gohcl.DecodeBody(body, nil, &fc); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg := Default()
	if s := fc.Server; s != nil {
		if s.Address != "" {
			cfg.Server.Address = s.Address
		}
		if s.Port != 0 {
			cfg.Server.Port = s.Port
		}
		if s.ShutdownTimeout != "" {
			cfg.Server.ShutdownTimeout = s.ShutdownTimeout
		}
	}
	if a := fc.Agent; a != nil {
		cfg.Agent.Seed = a.Seed
		cfg.Agent.Workers = a.Workers
		if a.Samples != 0 {
			cfg.Agent.Samples = a.Samples
		}
		if a.DefaultStrategy != "" {
			cfg.Agent.DefaultStrategy = a.DefaultStrategy
		}
	}
	if s := fc.Stats; s != nil && s.File != "" {
		cfg.Stats.File = s.File
	}
	if l := fc.Log; l != nil {
		if l.Level != "" {
			cfg.Log.Level = l.Level
		}
		if l.Format != "" {
			cfg.Log.Format = l.Format
		}
	}
	cfg.Strategies = fc.Strategies
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := c.ShutdownTimeout(); err != nil {
		return err
	}
	if c.Agent.Samples <= 0 {
		return fmt.Errorf("agent samples must be positive, got %d", c.Agent.Samples)
	}
	if c.Agent.Workers < 0 {
		return fmt.Errorf("agent workers must not be negative, got %d", c.Agent.Workers)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format %q: expected console or json", c.Log.Format)
	}
	if c.Stats.File == "" {
		return fmt.Errorf("stats file must be set")
	}

	table, err := c.Table()
	if err != nil {
		return err
	}
	if _, ok := table.Lookup(c.Agent.DefaultStrategy); !ok {
		return fmt.Errorf("default strategy %q is not defined", c.Agent.DefaultStrategy)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Address, strconv.Itoa(c.Server.Port))
}

// ShutdownTimeout parses the configured graceful shutdown timeout.
func (c *Config) ShutdownTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdown timeout %q: %w", c.Server.ShutdownTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("shutdown timeout must not be negative")
	}
	return d, nil
}

// StrategyParams converts the strategy blocks into parameter sets.
func (c *Config) StrategyParams() ([]strategy.Params, error) {
	seen := make(map[string]bool, len(c.Strategies))
	params := make([]strategy.Params, 0, len(c.Strategies))
	for _, sc := range c.Strategies {
		if seen[sc.Name] {
			return nil, fmt.Errorf("strategy %s: defined twice", sc.Name)
		}
		seen[sc.Name] = true

		p, err := sc.params()
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", sc.Name, err)
		}
		params = append(params, p)
	}
	return params, nil
}

// Table builds the strategy table with the configured overrides and
// default.
func (c *Config) Table() (*strategy.Table, error) {
	params, err := c.StrategyParams()
	if err != nil {
		return nil, err
	}
	return strategy.NewTable(params...).WithDefault(c.Agent.DefaultStrategy), nil
}

func (sc StrategyConfig) params() (strategy.Params, error) {
	kind, err := strategy.ParseKind(sc.Kind)
	if err != nil {
		return strategy.Params{}, err
	}

	p := strategy.Params{Name: sc.Name, Kind: kind}
	switch kind {
	case strategy.KindThreshold:
		p.CallThreshold = value(sc.CallThreshold, 0.4)
		p.RaiseThreshold = value(sc.RaiseThreshold, 0.7)
		if p.CallThreshold > p.RaiseThreshold {
			return p, fmt.Errorf("call threshold %.2f above raise threshold %.2f", p.CallThreshold, p.RaiseThreshold)
		}
	case strategy.KindSmart, strategy.KindRandomizedSmart:
		p.RaiseThreshold = value(sc.RaiseThreshold, 0.6)
		p.PreflopCallThreshold = value(sc.PreflopCallThreshold, 0.4)
		p.BetUnit = sc.BetUnit
		if p.BetUnit == 0 {
			p.BetUnit = strategy.DefaultBetUnit
		}
		if p.BetUnit < 0 {
			return p, fmt.Errorf("bet unit must be positive, got %d", p.BetUnit)
		}
	}

	for name, v := range map[string]float64{
		"call_threshold":         p.CallThreshold,
		"raise_threshold":        p.RaiseThreshold,
		"preflop_call_threshold": p.PreflopCallThreshold,
	} {
		if v < 0 || v > 1 {
			return p, fmt.Errorf("%s must be within [0, 1], got %v", name, v)
		}
	}
	return p, nil
}

func value(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
