// Package bot runs a single action request through the decision pipeline:
// snapshot decoding, hand-state derivation, strategy evaluation and the
// sampled, legality-repaired decision.
package bot

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/lox/robobot/internal/deck"
	"github.com/lox/robobot/internal/decision"
	"github.com/lox/robobot/internal/evaluator"
	"github.com/lox/robobot/internal/handstate"
	"github.com/lox/robobot/internal/randutil"
	"github.com/lox/robobot/internal/snapshot"
	"github.com/lox/robobot/internal/strategy"
)

// Request is one action request from the table.
type Request struct {
	Name     string `json:"name"`               // bot name; selects the strategy
	Player   string `json:"player,omitempty"`   // seat name, defaults to Name
	Strategy string `json:"strategy,omitempty"` // overrides the name lookup
	Hole     string `json:"hole"`
	Actions  string `json:"actions"`
	State    string `json:"state,omitempty"`
}

// Result is the chosen action and everything it was derived from.
type Result struct {
	Action      string               `json:"action"`
	Strategy    string               `json:"strategy"`
	Fallback    bool                 `json:"fallback,omitempty"`
	Player      string               `json:"player"`
	Round       string               `json:"round"`
	Pot         int                  `json:"pot"`
	ToCall      int                  `json:"to_call"`
	Triplet     strategy.Triplet     `json:"triplet"`
	Explanation strategy.Explanation `json:"explanation"`
	Decision    decision.Decision    `json:"decision"`
	Seed        int64                `json:"seed"`
}

// IsFatal reports whether err means the request itself was unusable.
func IsFatal(err error) bool {
	return errors.Is(err, deck.ErrInvalidCard) ||
		errors.Is(err, handstate.ErrInvalidHoleCards) ||
		errors.Is(err, snapshot.ErrMalformedSnapshot)
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the logger decisions are reported to.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithTable sets the strategy table.
func WithTable(table *strategy.Table) Option {
	return func(a *Agent) {
		a.table = table
	}
}

// WithEvaluator sets the hand-strength evaluator.
func WithEvaluator(eval evaluator.Evaluator) Option {
	return func(a *Agent) {
		a.eval = eval
	}
}

// WithSeed makes the sequence of decisions reproducible.
func WithSeed(seed int64) Option {
	return func(a *Agent) {
		a.seeds = randutil.NewSequence(seed)
	}
}

// Agent is safe for concurrent use. Every request gets its own hand state,
// parameter set and random source.
type Agent struct {
	table  *strategy.Table
	eval   evaluator.Evaluator
	seeds  *randutil.Sequence
	logger zerolog.Logger
}

// New creates an agent. Without WithSeed the seed is taken from the clock.
func New(opts ...Option) *Agent {
	a := &Agent{
		logger: zerolog.New(os.Stderr).With().Timestamp().Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.table == nil {
		a.table = strategy.NewTable()
	}
	if a.eval == nil {
		a.eval = evaluator.NewEquity()
	}
	if a.seeds == nil {
		a.seeds = randutil.NewSequence(time.Now().UnixNano())
	}
	a.logger = a.logger.With().Str("component", "agent").Logger()
	return a
}

// Table returns the strategy table the agent resolves names against.
func (a *Agent) Table() *strategy.Table { return a.table }

// Decide answers one action request.
func (a *Agent) Decide(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	player := req.Player
	if player == "" {
		player = req.Name
	}

	snap, err := snapshot.Parse(req.State)
	if err != nil {
		return nil, err
	}
	state, err := handstate.Derive(req.Hole, req.Actions, snap, player)
	if err != nil {
		return nil, err
	}

	name := req.Strategy
	if name == "" {
		name = req.Name
	}
	params, found := a.table.Lookup(name)
	if !found {
		a.logger.Debug().
			Str("requested", name).
			Str("strategy", params.Name).
			Msg("Unknown strategy, using default")
	}

	var strength float64
	if params.Kind.NeedsStrength() {
		strength = a.eval.Strength(state.HoleCards(), state.Community)
	}
	triplet, exp := strategy.Evaluate(params, state, strength)

	seed := a.seeds.Next()
	d := decision.NewEngine(randutil.New(seed)).Decide(triplet, state.LegalActions)

	for _, step := range d.Steps {
		a.logger.Debug().
			Str("from", step.From).
			Str("to", step.To).
			Str("reason", step.Reason).
			Msg("Repaired action")
	}
	a.logger.Info().
		Str("player", player).
		Str("strategy", params.Name).
		Str("round", state.Round.String()).
		Str("hole", deck.FormatCards(state.HoleCards())).
		Str("board", deck.FormatCards(state.Community)).
		Int("pot", state.Pot).
		Int("to_call", state.ToCall()).
		Float64("strength", strength).
		Float64("pot_odds", exp.PotOdds).
		Str("branch", string(exp.Branch)).
		Stringer("triplet", triplet).
		Stringer("sampled", d.Sampled).
		Str("action", d.Action).
		Strs("legal", state.LegalActions).
		Msg("Decision")

	return &Result{
		Action:      d.Action,
		Strategy:    params.Name,
		Fallback:    !found,
		Player:      player,
		Round:       state.Round.String(),
		Pot:         state.Pot,
		ToCall:      state.ToCall(),
		Triplet:     triplet,
		Explanation: exp,
		Decision:    d,
		Seed:        seed,
	}, nil
}
