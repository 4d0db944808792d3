// Package strategy maps a hand state and a hand strength to a probability
// triplet over check, call and raise.
package strategy

import (
	"fmt"
	"math"
	"strings"

	"github.com/lox/robobot/internal/handstate"
	"github.com/lox/robobot/internal/snapshot"
)

// Label is one of the three abstract intents a strategy weighs.
type Label int

const (
	Check Label = iota // check, or fold when checking is not possible
	Call
	Raise
)

func (l Label) String() string {
	switch l {
	case Check:
		return "check"
	case Call:
		return "call"
	case Raise:
		return "raise"
	default:
		return fmt.Sprintf("label(%d)", int(l))
	}
}

// MarshalText encodes the label by name.
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a label name.
func (l *Label) UnmarshalText(text []byte) error {
	for _, candidate := range Labels {
		if candidate.String() == string(text) {
			*l = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown label %q", text)
}

// Labels lists the labels in sampling order.
var Labels = [...]Label{Check, Call, Raise}

// Triplet is a probability distribution over Labels.
type Triplet struct {
	Check float64 `json:"check"`
	Call  float64 `json:"call"`
	Raise float64 `json:"raise"`
}

var (
	CheckOnly = Triplet{Check: 1}
	CallOnly  = Triplet{Call: 1}
	RaiseOnly = Triplet{Raise: 1}
	Uniform   = Triplet{Check: 1.0 / 3, Call: 1.0 / 3, Raise: 1.0 / 3}
)

// Weight returns the component for l.
func (t Triplet) Weight(l Label) float64 {
	switch l {
	case Check:
		return t.Check
	case Call:
		return t.Call
	case Raise:
		return t.Raise
	default:
		return 0
	}
}

// Sum is the total weight.
func (t Triplet) Sum() float64 {
	return t.Check + t.Call + t.Raise
}

// Valid reports whether every component is non-negative and the total is
// within 0.01 of 1.
func (t Triplet) Valid() bool {
	if t.Check < 0 || t.Call < 0 || t.Raise < 0 {
		return false
	}
	return math.Abs(t.Sum()-1) <= 0.01
}

// OneHot reports whether t is exactly one of the pure vectors, and which.
func (t Triplet) OneHot() (Label, bool) {
	switch t {
	case CheckOnly:
		return Check, true
	case CallOnly:
		return Call, true
	case RaiseOnly:
		return Raise, true
	default:
		return 0, false
	}
}

func (t Triplet) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", t.Check, t.Call, t.Raise)
}

// Kind selects the evaluator a parameter set is run through.
type Kind int

const (
	KindSimple Kind = iota
	KindRandom
	KindThreshold
	KindSmart
	KindRandomizedSmart
)

var kindNames = map[Kind]string{
	KindSimple:          "simple",
	KindRandom:          "random",
	KindThreshold:       "threshold",
	KindSmart:           "smart",
	KindRandomizedSmart: "randomized-smart",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps a kind name to a Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown strategy kind %q", name)
}

// NeedsStrength reports whether the evaluator reads the hand strength.
func (k Kind) NeedsStrength() bool {
	return k == KindThreshold || k == KindSmart || k == KindRandomizedSmart
}

// Params is one named, immutable strategy configuration.
type Params struct {
	Name                 string
	Kind                 Kind
	CallThreshold        float64 // threshold kind only
	RaiseThreshold       float64
	PreflopCallThreshold float64 // smart kinds only
	BetUnit              int     // smart kinds only
}

// Branch names the rule that produced a triplet.
type Branch string

const (
	BranchConstant     Branch = "constant"
	BranchBelowCall    Branch = "below-call-threshold"
	BranchCall         Branch = "call"
	BranchRaise        Branch = "raise"
	BranchPreflopCall  Branch = "preflop-call"
	BranchCheckDefault Branch = "check-default"
)

// Explanation records the quantities a decision was based on.
type Explanation struct {
	Strategy        string  `json:"strategy"`
	Kind            string  `json:"kind"`
	Strength        float64 `json:"strength"`
	Adjusted        float64 `json:"adjusted_strength"`
	Opponents       int     `json:"opponents"`
	ToCall          int     `json:"to_call"`
	PotOdds         float64 `json:"pot_odds"`
	ReraisePotOdds  float64 `json:"reraise_pot_odds"`
	Branch          Branch  `json:"branch"`
	Smoothed        bool    `json:"smoothed,omitempty"`
	SmoothedFrom    Triplet `json:"smoothed_from,omitzero"`
	StrengthSkipped bool    `json:"strength_skipped,omitempty"`
}

// Evaluate runs the evaluator selected by p.Kind. strength is ignored by the
// kinds that do not need it.
func Evaluate(p Params, state *handstate.HandState, strength float64) (Triplet, Explanation) {
	exp := Explanation{
		Strategy:        p.Name,
		Kind:            p.Kind.String(),
		Strength:        strength,
		StrengthSkipped: !p.Kind.NeedsStrength(),
	}

	switch p.Kind {
	case KindSimple:
		exp.Branch = BranchConstant
		return CallOnly, exp
	case KindRandom:
		exp.Branch = BranchConstant
		return Uniform, exp
	case KindThreshold:
		return threshold(p, strength, exp)
	case KindRandomizedSmart:
		var t Triplet
		t, exp = smart(p, state, strength, exp)
		if smoothed, ok := Smooth(t); ok {
			exp.Smoothed = true
			exp.SmoothedFrom = t
			return smoothed, exp
		}
		return t, exp
	default:
		return smart(p, state, strength, exp)
	}
}

func threshold(p Params, strength float64, exp Explanation) (Triplet, Explanation) {
	switch {
	case strength >= p.RaiseThreshold:
		exp.Branch = BranchRaise
		return RaiseOnly, exp
	case strength >= p.CallThreshold:
		exp.Branch = BranchCall
		return CallOnly, exp
	default:
		exp.Branch = BranchBelowCall
		return CheckOnly, exp
	}
}

func smart(p Params, state *handstate.HandState, strength float64, exp Explanation) (Triplet, Explanation) {
	toCall := state.ToCall()
	pot := state.Pot
	unit := p.BetUnit

	var potOdds float64
	if toCall != 0 && pot+toCall != 0 {
		potOdds = float64(toCall) / float64(pot+toCall)
	}
	var reraise float64
	if d := pot + toCall + unit; d != 0 {
		reraise = float64(unit+toCall) / float64(d)
	}

	opponents := state.Opponents()
	adjusted := math.Pow(strength, float64(opponents))

	exp.ToCall = toCall
	exp.PotOdds = potOdds
	exp.ReraisePotOdds = reraise
	exp.Opponents = opponents
	exp.Adjusted = adjusted

	switch {
	case adjusted >= p.RaiseThreshold && reraise <= adjusted:
		exp.Branch = BranchRaise
		return RaiseOnly, exp
	case potOdds <= adjusted:
		exp.Branch = BranchCall
		return CallOnly, exp
	case state.Round == snapshot.Preflop && state.OwnBet > 0 && adjusted >= p.PreflopCallThreshold:
		exp.Branch = BranchPreflopCall
		return CallOnly, exp
	default:
		exp.Branch = BranchCheckDefault
		return CheckOnly, exp
	}
}

// Smooth replaces a pure vector with a mostly-that-action distribution. It
// reports false and returns t unchanged for anything else.
func Smooth(t Triplet) (Triplet, bool) {
	label, ok := t.OneHot()
	if !ok {
		return t, false
	}
	switch label {
	case Raise:
		return Triplet{Check: 0.1, Call: 0.2, Raise: 0.7}, true
	case Call:
		return Triplet{Check: 0.1, Call: 0.7, Raise: 0.2}, true
	default:
		return Triplet{Check: 0.7, Call: 0.2, Raise: 0.1}, true
	}
}
