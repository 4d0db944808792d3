package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/lox/robobot/internal/strategy"
)

// StrategiesCmd lists the strategy table, including configured overrides.
type StrategiesCmd struct{}

func (c *StrategiesCmd) Run(g *Globals, out io.Writer) error {
	cfg, _, err := g.load()
	if err != nil {
		return err
	}
	table, err := cfg.Table()
	if err != nil {
		return err
	}
	return printStrategies(out, table)
}

func printStrategies(w io.Writer, table *strategy.Table) error {
	def := table.Default().Name

	t := newTable("NAME", "KIND", "CALL", "RAISE", "PREFLOP CALL", "BET UNIT")
	for _, name := range table.Names() {
		p, _ := table.Lookup(name)
		label := p.Name
		if p.Name == def {
			label += " *"
		}
		t.Row(label, p.Kind.String(),
			threshold(p.Kind == strategy.KindThreshold, p.CallThreshold),
			threshold(p.Kind.NeedsStrength(), p.RaiseThreshold),
			threshold(p.Kind == strategy.KindSmart || p.Kind == strategy.KindRandomizedSmart, p.PreflopCallThreshold),
			betUnit(p),
		)
	}
	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}

	aliases := strategy.Aliases()
	for _, alias := range slices.Sorted(maps.Keys(aliases)) {
		if _, err := fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%s -> %s", alias, aliases[alias]))); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, dimStyle.Render("* default for unknown names"))
	return err
}

func threshold(used bool, v float64) string {
	if !used {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func betUnit(p strategy.Params) string {
	if p.BetUnit == 0 {
		return "-"
	}
	return strconv.Itoa(p.BetUnit)
}
