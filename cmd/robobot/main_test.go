package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/robobot/internal/bot"
	"github.com/lox/robobot/internal/config"
	"github.com/lox/robobot/internal/stats"
	"github.com/lox/robobot/internal/strategy"
)

const finalHand = `<game>
  <table>
    <player name="robot" stack="130" in_stack="100"/>
    <player name="bob" stack="70" in_stack="100"/>
  </table>
  <betting><round name="preflop"/><round name="flop"/><round name="turn"/><round name="river"/></betting>
</game>`

const flopHand = `<game>
  <table button="1">
    <player name="alice" stack="90" in_stack="100"/>
    <player name="bob" stack="80" in_stack="100"/>
  </table>
  <community>
    <card rank="K" suit="S"/>
    <card rank="9" suit="D"/>
    <card rank="A" suit="S"/>
  </community>
  <betting>
    <round name="preflop">
      <action type="call" player="alice" amount="10"/>
      <action type="call" player="bob" amount="10"/>
    </round>
    <round name="flop">
      <action type="bet" player="bob" amount="10"/>
    </round>
    <round name="turn"/>
    <round name="river"/>
  </betting>
</game>`

func testGlobals(t *testing.T) *Globals {
	t.Helper()
	return &Globals{
		Config:  filepath.Join(t.TempDir(), "missing.hcl"),
		NoColor: true,
	}
}

func TestCLIParses(t *testing.T) {
	tests := []struct {
		name string
		args []string
		cmd  string
	}{
		{name: "serve", args: []string{"serve", "--addr", ":9000"}, cmd: "serve"},
		{name: "decide", args: []string{"decide", "simple", "7D AC", "-a", "check bet fold"}, cmd: "decide"},
		{name: "strength", args: []string{"strength", "AS AD", "-b", "2C 7H TD"}, cmd: "strength"},
		{name: "strategies", args: []string{"strategies"}, cmd: "strategies"},
		{name: "stats record stdin", args: []string{"stats", "record"}, cmd: "stats record"},
		{name: "stats show", args: []string{"stats", "show", "-f", "other.json"}, cmd: "stats show"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cli CLI
			parser, err := kong.New(&cli, kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
			require.NoError(t, err)

			ctx, err := parser.Parse(tt.args)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(ctx.Command(), tt.cmd), ctx.Command())
		})
	}
}

func TestCLIDefaults(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Vars{"version": "test"})
	require.NoError(t, err)

	_, err = parser.Parse([]string{"stats", "record"})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultFile, cli.Config)
	assert.Equal(t, "-", cli.Stats.Record.Snapshot)

	_, err = parser.Parse([]string{"decide", "smart", "AS AD"})
	require.NoError(t, err)
	assert.Equal(t, "fold call raise", cli.Decide.Actions)
}

func TestLoggerFormat(t *testing.T) {
	g := &Globals{}
	var buf bytes.Buffer

	logger := g.logger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info().Msg("hidden")
	logger.Warn().Str("component", "test").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "test", entry["component"])

	buf.Reset()
	g.Debug = true
	logger = g.logger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robobot.hcl")
	require.NoError(t, os.WriteFile(path, []byte("server {\n  port = 70000\n}\n"), 0o644))

	g := &Globals{Config: path, NoColor: true}
	_, _, err := g.load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
}

func TestDecideCommand(t *testing.T) {
	g := testGlobals(t)
	seed := int64(7)

	var out bytes.Buffer
	cmd := &DecideCmd{Name: "simple", Hole: "7D AC", Actions: "check bet fold", Seed: &seed}
	require.NoError(t, cmd.Run(g, &out))
	assert.Contains(t, out.String(), "action: check")
	assert.Contains(t, out.String(), "repair: call -> check (call not legal)")

	out.Reset()
	cmd.JSON = true
	require.NoError(t, cmd.Run(g, &out))
	var res bot.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, "check", res.Action)
	assert.Equal(t, "simple", res.Strategy)
	assert.Equal(t, strategy.Call, res.Decision.Sampled)
	assert.Equal(t, "simple", res.Player)
}

func TestDecideCommandReadsStateFile(t *testing.T) {
	g := testGlobals(t)
	path := filepath.Join(t.TempDir(), "state.xml")
	require.NoError(t, os.WriteFile(path, []byte(flopHand), 0o644))

	var out bytes.Buffer
	cmd := &DecideCmd{Name: "passive", Player: "alice", Hole: "2C 7H", Actions: "fold call raise", State: "@" + path, JSON: true}
	require.NoError(t, cmd.Run(g, &out))

	var res bot.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, "passive-tight", res.Strategy)
	assert.Equal(t, "alice", res.Player)
	assert.Equal(t, "flop", res.Round)
	assert.Equal(t, 30, res.Pot)
	assert.Equal(t, 10, res.ToCall)

	_, err := readState("@" + filepath.Join(t.TempDir(), "nope.xml"))
	require.Error(t, err)
}

func TestDecideCommandRejectsBadHole(t *testing.T) {
	cmd := &DecideCmd{Name: "smart", Hole: "7D", Actions: "fold"}
	require.Error(t, cmd.Run(testGlobals(t), &bytes.Buffer{}))
}

func TestStrengthCommand(t *testing.T) {
	g := testGlobals(t)

	var out bytes.Buffer
	require.NoError(t, (&StrengthCmd{Hole: "AS KS", Board: "QS JS TS 2D 3C"}).Run(g, &out))
	assert.Equal(t, "strength: 1.0000\n", out.String())

	tests := []struct {
		name string
		cmd  StrengthCmd
	}{
		{name: "one hole card", cmd: StrengthCmd{Hole: "AS"}},
		{name: "bad card", cmd: StrengthCmd{Hole: "AS XX"}},
		{name: "long board", cmd: StrengthCmd{Hole: "AS KS", Board: "2C 3C 4C 5C 6C 7C"}},
		{name: "duplicate", cmd: StrengthCmd{Hole: "AS KS", Board: "AS 2C 3C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.cmd.Run(g, &bytes.Buffer{}))
		})
	}
}

func TestStrategiesCommand(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, (&StrategiesCmd{}).Run(testGlobals(t), &out))

	text := out.String()
	for _, name := range strategy.NewTable().Names() {
		assert.Contains(t, text, name)
	}
	assert.Contains(t, text, "smart *")
	assert.Contains(t, text, "agressive-loose -> aggressive-loose")
}

func TestStatsCommands(t *testing.T) {
	g := testGlobals(t)
	file := filepath.Join(t.TempDir(), "stats.json")

	var out bytes.Buffer
	record := &StatsRecordCmd{LedgerFlags: LedgerFlags{File: file}, Snapshot: "-"}
	require.NoError(t, record.Run(g, strings.NewReader(finalHand), &out))
	assert.Equal(t, "bob -30\nrobot 30\n", out.String())

	out.Reset()
	require.NoError(t, record.Run(g, strings.NewReader(finalHand), &out))
	assert.Equal(t, "bob -60\nrobot 60\n", out.String())

	require.Error(t, record.Run(g, strings.NewReader("<game>"), &bytes.Buffer{}))

	out.Reset()
	show := &StatsShowCmd{LedgerFlags: LedgerFlags{File: file}}
	require.NoError(t, show.Run(g, &out))
	text := out.String()
	assert.Contains(t, text, "robot")
	assert.Contains(t, text, "60")
	assert.Less(t, strings.Index(text, "robot"), strings.Index(text, "bob"))

	totals, err := stats.NewLedger(file, zerolog.Nop()).Totals()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"robot": 60, "bob": -60}, totals)
}

func TestStatsShowEmpty(t *testing.T) {
	var out bytes.Buffer
	show := &StatsShowCmd{LedgerFlags: LedgerFlags{File: filepath.Join(t.TempDir(), "stats.json")}}
	require.NoError(t, show.Run(testGlobals(t), &out))
	assert.Equal(t, "no hands recorded\n", out.String())
}
