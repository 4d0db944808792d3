package bot

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/robobot/internal/deck"
	"github.com/lox/robobot/internal/evaluator"
	"github.com/lox/robobot/internal/handstate"
	"github.com/lox/robobot/internal/snapshot"
	"github.com/lox/robobot/internal/strategy"
)

const flopState = `<game>
  <table>
    <player name="robot" stack="90" in_stack="100"/>
    <player name="bob" stack="80" in_stack="100"/>
  </table>
  <community><card rank="K" suit="S"/><card rank="9" suit="D"/><card rank="A" suit="S"/></community>
  <betting>
    <round name="preflop">
      <action type="call" player="robot" amount="10"/>
      <action type="raise" player="bob" amount="20"/>
    </round>
    <round name="flop"/>
    <round name="turn"/>
    <round name="river"/>
  </betting>
</game>`

func fixed(strength float64) evaluator.Evaluator {
	return evaluator.Func(func(hole, community []deck.Card) float64 { return strength })
}

func newTestAgent(opts ...Option) *Agent {
	base := []Option{WithLogger(zerolog.Nop()), WithSeed(1), WithEvaluator(fixed(0.5))}
	return New(append(base, opts...)...)
}

func TestSimpleChecksWhenCallIsIllegal(t *testing.T) {
	t.Parallel()

	res, err := newTestAgent().Decide(context.Background(), Request{
		Name:    "simple",
		Hole:    "7D AC",
		Actions: "check bet fold",
	})
	require.NoError(t, err)

	assert.Equal(t, "check", res.Action)
	assert.Equal(t, strategy.CallOnly, res.Triplet)
	assert.Equal(t, strategy.Call, res.Decision.Sampled)
	assert.True(t, res.Explanation.StrengthSkipped)
}

func TestSmartCallsWhenNothingToCall(t *testing.T) {
	t.Parallel()

	state := `<game><table><player name="robot" stack="80" in_stack="100"/><player name="bob" stack="80" in_stack="100"/></table>
<community><card rank="2" suit="S"/><card rank="7" suit="D"/><card rank="J" suit="C"/></community>
<betting><round name="preflop"/><round name="flop"/><round name="turn"/><round name="river"/></betting></game>`

	res, err := newTestAgent(WithEvaluator(fixed(0.3))).Decide(context.Background(), Request{
		Name:    "smart",
		Hole:    "4H 5H",
		Actions: "fold call raise",
		State:   state,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, res.ToCall)
	assert.Zero(t, res.Explanation.PotOdds)
	assert.Equal(t, strategy.CallOnly, res.Triplet)
	assert.Equal(t, "call", res.Action)
	assert.Equal(t, "flop", res.Round)
	assert.Equal(t, 40, res.Pot)
}

func TestPlayerDefaultsToName(t *testing.T) {
	t.Parallel()

	agent := newTestAgent()
	res, err := agent.Decide(context.Background(), Request{
		Name:    "robot",
		Hole:    "7D AC",
		Actions: "fold call raise",
		State:   flopState,
	})
	require.NoError(t, err)
	assert.Equal(t, "robot", res.Player)
	assert.Equal(t, 10, res.ToCall)
	assert.Equal(t, "smart", res.Strategy, "unknown bot names fall back to smart")
	assert.True(t, res.Fallback)

	res, err = agent.Decide(context.Background(), Request{
		Name:     "robot",
		Player:   "bob",
		Strategy: "agressive-tight",
		Hole:     "7D AC",
		Actions:  "fold check raise",
		State:    flopState,
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", res.Player)
	assert.Equal(t, 0, res.ToCall)
	assert.Equal(t, "aggressive-tight", res.Strategy)
	assert.False(t, res.Fallback)
}

func TestFatalErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		req    Request
		target error
	}{
		{name: "bad hole", req: Request{Name: "smart", Hole: "7D", Actions: "fold"}, target: handstate.ErrInvalidHoleCards},
		{name: "bad card", req: Request{Name: "smart", Hole: "7X AC", Actions: "fold"}, target: deck.ErrInvalidCard},
		{name: "bad snapshot", req: Request{Name: "smart", Hole: "7D AC", Actions: "fold", State: "<game>"}, target: snapshot.ErrMalformedSnapshot},
		{name: "missing betting", req: Request{Name: "smart", Hole: "7D AC", Actions: "fold", State: "<game><table/></game>"}, target: snapshot.ErrMalformedSnapshot},
	}
	agent := newTestAgent()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := agent.Decide(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.target)
			assert.True(t, IsFatal(err))
		})
	}

	assert.False(t, IsFatal(context.Canceled))
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestAgent().Decide(ctx, Request{Name: "simple", Hole: "7D AC", Actions: "call"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStrengthOnlyEvaluatedWhenNeeded(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	counting := evaluator.Func(func(hole, community []deck.Card) float64 {
		calls.Add(1)
		return 0.9
	})
	agent := newTestAgent(WithEvaluator(counting))

	for _, name := range []string{"simple", "random"} {
		_, err := agent.Decide(context.Background(), Request{Name: name, Hole: "7D AC", Actions: "fold call"})
		require.NoError(t, err)
	}
	assert.Zero(t, calls.Load())

	res, err := agent.Decide(context.Background(), Request{Name: "threshold", Hole: "7D AC", Actions: "fold call raise"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "raise", res.Action)
	assert.Equal(t, 0.9, res.Explanation.Strength)
}

func TestSeededAgentsReplay(t *testing.T) {
	t.Parallel()

	req := Request{Name: "random", Hole: "7D AC", Actions: "fold call raise"}
	a, b := newTestAgent(WithSeed(99)), newTestAgent(WithSeed(99))
	for range 20 {
		ra, err := a.Decide(context.Background(), req)
		require.NoError(t, err)
		rb, err := b.Decide(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, ra.Seed, rb.Seed)
		assert.Equal(t, ra.Action, rb.Action)
	}
}

func TestConcurrentDecisions(t *testing.T) {
	t.Parallel()

	agent := newTestAgent(WithEvaluator(evaluator.NewEquity(evaluator.WithSamples(100))))
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := []string{"smart", "randomized-smart", "passive-loose", "threshold"}[i%4]
			res, err := agent.Decide(context.Background(), Request{
				Name:    name,
				Player:  "robot",
				Hole:    "QH QD",
				Actions: "fold call raise",
				State:   flopState,
			})
			if assert.NoError(t, err) {
				assert.Contains(t, []string{"fold", "call", "raise"}, res.Action)
			}
		}()
	}
	wg.Wait()
}

func TestDefaultsAreFilledIn(t *testing.T) {
	t.Parallel()

	agent := New(WithLogger(zerolog.Nop()))
	assert.NotNil(t, agent.Table())
	assert.NotNil(t, agent.eval)
	assert.NotNil(t, agent.seeds)
}
