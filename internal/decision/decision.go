// Package decision samples an intent from a strategy triplet and repairs it
// into an action the table will accept.
package decision

import (
	rand "math/rand/v2"
	"slices"

	"github.com/lox/robobot/internal/strategy"
)

// Wire action names.
const (
	Fold  = "fold"
	Check = "check"
	Call  = "call"
	Bet   = "bet"
	Raise = "raise"
)

// Step is one substitution made while repairing a sampled label.
type Step struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// Decision is the outcome of one draw.
type Decision struct {
	Sampled strategy.Label `json:"sampled"`
	Action  string         `json:"action"`
	Steps   []Step         `json:"steps,omitempty"`
	Draw    float64        `json:"draw"`
}

// Sample picks the label whose cumulative interval contains u, with weights
// normalised by the triplet total. Labels with zero weight are never chosen.
// An all-zero triplet yields Check.
func Sample(t strategy.Triplet, u float64) strategy.Label {
	total := t.Sum()
	if total <= 0 {
		return strategy.Check
	}

	last := strategy.Check
	var cumulative float64
	for _, l := range strategy.Labels {
		w := t.Weight(l)
		if w <= 0 {
			continue
		}
		last = l
		cumulative += w / total
		if u < cumulative {
			return l
		}
	}
	// rounding can leave the final bound just under 1
	return last
}

// Repair maps a sampled label onto the legal action set. The chain is fixed:
// raise becomes bet whenever bet is legal and call when neither is; call
// becomes check when call is illegal; anything still illegal becomes fold.
// Fold is returned even when it is not listed.
func Repair(label strategy.Label, legal []string) (string, []Step) {
	var steps []Step
	isLegal := func(a string) bool { return slices.Contains(legal, a) }

	candidate := label.String()
	if label == strategy.Raise {
		switch {
		case isLegal(Bet):
			steps = append(steps, Step{From: Raise, To: Bet, Reason: "bet is legal"})
			candidate = Bet
		case isLegal(Raise):
		default:
			steps = append(steps, Step{From: Raise, To: Call, Reason: "neither raise nor bet legal"})
			candidate = Call
		}
	}

	if candidate == Call && !isLegal(Call) {
		steps = append(steps, Step{From: Call, To: Check, Reason: "call not legal"})
		candidate = Check
	}

	if !isLegal(candidate) {
		steps = append(steps, Step{From: candidate, To: Fold, Reason: candidate + " not legal"})
		candidate = Fold
	}
	return candidate, steps
}

// Engine draws from its own random source. It is not safe for concurrent
// use; build one per request.
type Engine struct {
	rng *rand.Rand
}

// NewEngine creates an engine drawing from rng.
func NewEngine(rng *rand.Rand) *Engine {
	return &Engine{rng: rng}
}

// Decide samples t and repairs the result against legal. It never fails.
func (e *Engine) Decide(t strategy.Triplet, legal []string) Decision {
	u := e.rng.Float64()
	label := Sample(t, u)
	action, steps := Repair(label, legal)
	return Decision{
		Sampled: label,
		Action:  action,
		Steps:   steps,
		Draw:    u,
	}
}
