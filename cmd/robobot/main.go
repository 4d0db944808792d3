package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Globals

	Version    kong.VersionFlag `short:"v" help:"Show version"`
	Serve      ServeCmd         `cmd:"" help:"Serve decisions over HTTP and WebSocket"`
	Decide     DecideCmd        `cmd:"" help:"Decide a single action request"`
	Strength   StrengthCmd      `cmd:"" help:"Estimate the strength of a hand"`
	Strategies StrategiesCmd    `cmd:"" help:"List the available strategies"`
	Stats      StatsCmd         `cmd:"" help:"Record and show cumulative winnings"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("robobot"),
		kong.Description("Poker decision engine for robopoker tables"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(os.Stdin, (*io.Reader)(nil)),
		kong.BindTo(os.Stdout, (*io.Writer)(nil)),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
