package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/lox/robobot/internal/bot"
	"github.com/lox/robobot/internal/deck"
)

// DecideCmd answers one action request from the command line.
type DecideCmd struct {
	Name     string `arg:"" help:"Bot name; selects the strategy"`
	Hole     string `arg:"" help:"Hole cards, e.g. 'AS KD'"`
	Actions  string `short:"a" default:"fold call raise" help:"Legal actions, space separated"`
	State    string `short:"s" help:"Game state snapshot XML, or @file to read it from a file"`
	Player   string `short:"p" help:"Seat name in the snapshot (defaults to the bot name)"`
	Strategy string `help:"Strategy to use instead of the one named after the bot"`
	Seed     *int64 `help:"Deterministic decision seed (optional)"`
	JSON     bool   `name:"json" help:"Print the full result as JSON"`
}

func (c *DecideCmd) Run(g *Globals, out io.Writer) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	agent, err := g.agent(cfg, logger, c.Seed)
	if err != nil {
		return err
	}
	state, err := readState(c.State)
	if err != nil {
		return err
	}

	res, err := agent.Decide(context.Background(), bot.Request{
		Name:     c.Name,
		Player:   c.Player,
		Strategy: c.Strategy,
		Hole:     c.Hole,
		Actions:  c.Actions,
		State:    state,
	})
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return printResult(out, res)
}

// readState returns s, or the contents of the named file when s starts
// with @.
func readState(s string) (string, error) {
	path, ok := strings.CutPrefix(s, "@")
	if !ok {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read state: %w", err)
	}
	return string(data), nil
}

func printResult(w io.Writer, res *bot.Result) error {
	exp := res.Explanation
	strategyName := res.Strategy
	if res.Fallback {
		strategyName += dimStyle.Render(" (fallback)")
	}

	lines := []string{
		field("action", actionStyle.Render(res.Action)),
		field("strategy", strategyName+" "+dimStyle.Render(exp.Kind)),
		field("round", res.Round),
		field("pot", fmt.Sprintf("%d, %d to call", res.Pot, res.ToCall)),
	}
	if !exp.StrengthSkipped {
		lines = append(lines, field("strength", fmt.Sprintf("%.4f", exp.Strength)))
	}
	if exp.Opponents > 0 || exp.PotOdds > 0 {
		lines = append(lines,
			field("adjusted", fmt.Sprintf("%.4f against %d opponents", exp.Adjusted, exp.Opponents)),
			field("pot odds", fmt.Sprintf("%.4f, reraise %.4f", exp.PotOdds, exp.ReraisePotOdds)),
		)
	}
	triplet := res.Triplet.String()
	if exp.Smoothed {
		triplet += dimStyle.Render(" smoothed from " + exp.SmoothedFrom.String())
	}
	lines = append(lines,
		field("branch", string(exp.Branch)),
		field("triplet", triplet),
		field("sampled", fmt.Sprintf("%s (draw %.4f)", res.Decision.Sampled, res.Decision.Draw)),
	)
	for _, step := range res.Decision.Steps {
		lines = append(lines, field("repair", fmt.Sprintf("%s -> %s (%s)", step.From, step.To, step.Reason)))
	}
	lines = append(lines, field("seed", fmt.Sprint(res.Seed)))

	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

// StrengthCmd prints the estimated hand strength.
type StrengthCmd struct {
	Hole    string `arg:"" help:"Hole cards, e.g. 'AS KD'"`
	Board   string `short:"b" help:"Community cards, e.g. '2C 7H TD'"`
	Samples int    `short:"n" help:"Monte Carlo samples before the river (defaults to the configured count)"`
}

func (c *StrengthCmd) Run(g *Globals, out io.Writer) error {
	cfg, _, err := g.load()
	if err != nil {
		return err
	}

	hole, err := deck.ParseCards(c.Hole)
	if err != nil {
		return fmt.Errorf("hole cards: %w", err)
	}
	if len(hole) != 2 {
		return fmt.Errorf("hole cards: expected 2, got %d", len(hole))
	}
	board, err := deck.ParseCards(c.Board)
	if err != nil {
		return fmt.Errorf("board: %w", err)
	}
	if len(board) > 5 {
		return fmt.Errorf("board: at most 5 cards, got %d", len(board))
	}
	if all := slices.Concat(hole, board); deck.NewCardSet(all).Len() != len(all) {
		return fmt.Errorf("duplicate cards in %s", deck.FormatCards(all))
	}

	strength := equity(cfg, c.Samples).Strength(hole, board)
	_, err = fmt.Fprintln(out, field("strength", fmt.Sprintf("%.4f", strength)))
	return err
}
