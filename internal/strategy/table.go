package strategy

import (
	"maps"
	"slices"
	"strings"
)

// DefaultName is the strategy used when a name is not known.
const DefaultName = "smart"

// DefaultBetUnit is the fixed bet size the smart kinds use to price a raise.
const DefaultBetUnit = 20

var builtin = []Params{
	{Name: "simple", Kind: KindSimple},
	{Name: "random", Kind: KindRandom},
	{Name: "threshold", Kind: KindThreshold, CallThreshold: 0.4, RaiseThreshold: 0.7},
	smartParams("smart", KindSmart, 0.6, 0.4),
	smartParams("aggressive-loose", KindSmart, 0.5, 0.2),
	smartParams("aggressive-tight", KindSmart, 0.5, 0.6),
	smartParams("passive-loose", KindSmart, 0.7, 0.2),
	smartParams("passive-tight", KindSmart, 0.7, 0.6),
	smartParams("randomized-smart", KindRandomizedSmart, 0.6, 0.4),
}

// aliases are names used by older robopoker setups.
var aliases = map[string]string{
	"agressive-loose": "aggressive-loose",
	"agressive-tight": "aggressive-tight",
	"passive":         "passive-tight",
}

func smartParams(name string, kind Kind, raise, preflopCall float64) Params {
	return Params{
		Name:                 name,
		Kind:                 kind,
		RaiseThreshold:       raise,
		PreflopCallThreshold: preflopCall,
		BetUnit:              DefaultBetUnit,
	}
}

// Table is a read-only set of named parameter sets. The zero value is not
// usable; build one with NewTable.
type Table struct {
	params      map[string]Params
	defaultName string
}

// NewTable returns the built-in table with overrides applied on top. An
// override with a new name adds a strategy.
func NewTable(overrides ...Params) *Table {
	t := &Table{
		params:      make(map[string]Params, len(builtin)+len(overrides)),
		defaultName: DefaultName,
	}
	for _, p := range builtin {
		t.params[p.Name] = p
	}
	for _, p := range overrides {
		p.Name = normalize(p.Name)
		t.params[p.Name] = p
	}
	return t
}

// WithDefault returns a copy of t whose fallback is name. Unknown names are
// ignored.
func (t *Table) WithDefault(name string) *Table {
	resolved, ok := t.resolve(name)
	if !ok {
		return t
	}
	return &Table{params: t.params, defaultName: resolved}
}

// Default returns the fallback parameter set.
func (t *Table) Default() Params {
	return t.params[t.defaultName]
}

// Lookup returns the parameters registered under name or one of its aliases.
// Unknown names resolve to the default; found reports which happened.
func (t *Table) Lookup(name string) (p Params, found bool) {
	if resolved, ok := t.resolve(name); ok {
		return t.params[resolved], true
	}
	return t.Default(), false
}

// Names lists every registered strategy, sorted.
func (t *Table) Names() []string {
	return slices.Sorted(maps.Keys(t.params))
}

// Aliases returns the alias to canonical name mapping.
func Aliases() map[string]string {
	return maps.Clone(aliases)
}

func (t *Table) resolve(name string) (string, bool) {
	n := normalize(name)
	if _, ok := t.params[n]; ok {
		return n, true
	}
	if canonical, ok := aliases[n]; ok {
		if _, ok := t.params[canonical]; ok {
			return canonical, true
		}
	}
	return "", false
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
