package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/lox/robobot/internal/snapshot"
	"github.com/lox/robobot/internal/stats"
)

// StatsCmd groups the winnings ledger commands.
type StatsCmd struct {
	Record StatsRecordCmd `cmd:"" help:"Add a completed hand's final snapshot to the ledger"`
	Show   StatsShowCmd   `cmd:"" help:"Show cumulative winnings"`
}

// LedgerFlags selects the ledger file.
type LedgerFlags struct {
	File string `short:"f" env:"ROBOBOT_STATS_FILE" help:"Ledger file, overriding the configured one"`
}

func (c *LedgerFlags) ledger(g *Globals) (*stats.Ledger, error) {
	cfg, logger, err := g.load()
	if err != nil {
		return nil, err
	}
	path := cfg.Stats.File
	if c.File != "" {
		path = c.File
	}
	return stats.NewLedger(path, logger), nil
}

// StatsRecordCmd reads one final snapshot and adds every player's net
// result to the ledger.
type StatsRecordCmd struct {
	LedgerFlags

	Snapshot string `arg:"" optional:"" default:"-" help:"Snapshot file, or - for stdin"`
}

func (c *StatsRecordCmd) Run(g *Globals, in io.Reader, out io.Writer) error {
	ledger, err := c.ledger(g)
	if err != nil {
		return err
	}

	var data []byte
	if c.Snapshot == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(c.Snapshot)
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	snap, err := snapshot.Parse(string(data))
	if err != nil {
		return err
	}
	totals, err := ledger.Record(snap)
	if err != nil {
		return err
	}

	for _, name := range slices.Sorted(maps.Keys(totals)) {
		if _, err := fmt.Fprintf(out, "%s %d\n", name, totals[name]); err != nil {
			return err
		}
	}
	return nil
}

// StatsShowCmd prints the standings table.
type StatsShowCmd struct {
	LedgerFlags
}

func (c *StatsShowCmd) Run(g *Globals, out io.Writer) error {
	ledger, err := c.ledger(g)
	if err != nil {
		return err
	}
	standings, err := ledger.Standings()
	if err != nil {
		return err
	}
	return printStandings(out, standings)
}

func printStandings(w io.Writer, standings []stats.Standing) error {
	if len(standings) == 0 {
		_, err := fmt.Fprintln(w, dimStyle.Render("no hands recorded"))
		return err
	}

	t := newTable("#", "PLAYER", "TOTAL", "HANDS", "MEAN", "STDDEV")
	for i, s := range standings {
		t.Row(
			strconv.Itoa(i+1),
			s.Name,
			signed(strconv.Itoa(s.Total), s.Total),
			strconv.Itoa(s.Hands),
			fmt.Sprintf("%.2f", s.Mean),
			fmt.Sprintf("%.2f", s.StdDev),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
