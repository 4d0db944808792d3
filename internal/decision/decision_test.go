package decision

import (
	"testing"

	"github.com/lox/robobot/internal/randutil"
	"github.com/lox/robobot/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSample(t *testing.T) {
	t.Parallel()

	tri := strategy.Triplet{Check: 0.2, Call: 0.3, Raise: 0.5}
	tests := []struct {
		u    float64
		want strategy.Label
	}{
		{0, strategy.Check},
		{0.19, strategy.Check},
		{0.2, strategy.Call},
		{0.49, strategy.Call},
		{0.5, strategy.Raise},
		{0.999, strategy.Raise},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sample(tri, tt.u), "u=%v", tt.u)
	}
}

func TestSampleNormalisesByTotal(t *testing.T) {
	t.Parallel()

	tri := strategy.Triplet{Check: 1, Call: 1, Raise: 2}
	assert.Equal(t, strategy.Check, Sample(tri, 0.24))
	assert.Equal(t, strategy.Call, Sample(tri, 0.26))
	assert.Equal(t, strategy.Raise, Sample(tri, 0.51))
}

func TestSampleSkipsZeroWeights(t *testing.T) {
	t.Parallel()

	for _, u := range []float64{0, 0.5, 0.999999} {
		assert.Equal(t, strategy.Call, Sample(strategy.CallOnly, u))
		assert.Equal(t, strategy.Raise, Sample(strategy.RaiseOnly, u))
	}
	assert.Equal(t, strategy.Raise, Sample(strategy.Triplet{Check: 0.5, Raise: 0.5}, 0.5))
	assert.Equal(t, strategy.Check, Sample(strategy.Triplet{}, 0.3))
}

func TestRepair(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		label strategy.Label
		legal []string
		want  string
		steps []string
	}{
		{name: "raise legal", label: strategy.Raise, legal: []string{"fold", "call", "raise"}, want: "raise"},
		{name: "raise becomes bet", label: strategy.Raise, legal: []string{"check", "bet", "fold"}, want: "bet", steps: []string{"raise>bet"}},
		{name: "bet preferred over raise", label: strategy.Raise, legal: []string{"fold", "bet", "raise"}, want: "bet", steps: []string{"raise>bet"}},
		{name: "raise becomes call", label: strategy.Raise, legal: []string{"fold", "call"}, want: "call", steps: []string{"raise>call"}},
		{name: "raise falls to check", label: strategy.Raise, legal: []string{"fold", "check"}, want: "check", steps: []string{"raise>call", "call>check"}},
		{name: "raise falls to fold", label: strategy.Raise, legal: []string{"fold"}, want: "fold", steps: []string{"raise>call", "call>check", "check>fold"}},
		{name: "call becomes check", label: strategy.Call, legal: []string{"fold", "check"}, want: "check", steps: []string{"call>check"}},
		{name: "call legal", label: strategy.Call, legal: []string{"fold", "call", "raise"}, want: "call"},
		{name: "check becomes fold", label: strategy.Check, legal: []string{"fold", "raise"}, want: "fold", steps: []string{"check>fold"}},
		{name: "check legal", label: strategy.Check, legal: []string{"check", "bet"}, want: "check"},
		{name: "fold even when unlisted", label: strategy.Check, legal: nil, want: "fold", steps: []string{"check>fold"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, steps := Repair(tt.label, tt.legal)
			assert.Equal(t, tt.want, got)

			var flat []string
			for _, s := range steps {
				assert.NotEmpty(t, s.Reason)
				flat = append(flat, s.From+">"+s.To)
			}
			assert.Equal(t, tt.steps, flat)
		})
	}
}

func TestEngineAlwaysReturnsLegalOrFold(t *testing.T) {
	t.Parallel()

	legalSets := [][]string{
		{"fold", "call", "raise"},
		{"check", "bet"},
		{"fold", "check"},
		{"fold"},
		{"fold", "call", "all-in"},
	}
	engine := NewEngine(randutil.New(7))
	for _, legal := range legalSets {
		for range 200 {
			d := engine.Decide(strategy.Uniform, legal)
			if d.Action != Fold {
				assert.Contains(t, legal, d.Action)
			}
			assert.GreaterOrEqual(t, d.Draw, 0.0)
			assert.Less(t, d.Draw, 1.0)
		}
	}
}

func TestEngineIsReproducible(t *testing.T) {
	t.Parallel()

	legal := []string{"fold", "call", "raise"}
	a, b := NewEngine(randutil.New(42)), NewEngine(randutil.New(42))
	for range 50 {
		require.Equal(t, a.Decide(strategy.Uniform, legal), b.Decide(strategy.Uniform, legal))
	}
}

func TestSimpleCallIllegalChecks(t *testing.T) {
	t.Parallel()

	d := NewEngine(randutil.New(1)).Decide(strategy.CallOnly, []string{"check", "bet", "fold"})
	assert.Equal(t, strategy.Call, d.Sampled)
	assert.Equal(t, Check, d.Action)
	require.Len(t, d.Steps, 1)
	assert.Equal(t, Step{From: Call, To: Check, Reason: "call not legal"}, d.Steps[0])
}
