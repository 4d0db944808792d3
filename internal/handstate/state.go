// Package handstate derives the normalized, round-aware view of a hand that
// strategies decide on.
package handstate

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/lox/robobot/internal/deck"
	"github.com/lox/robobot/internal/snapshot"
)

// ErrInvalidHoleCards is returned when the hole string does not hold exactly
// two distinct valid cards.
var ErrInvalidHoleCards = errors.New("invalid hole cards")

// HandState is the flattened, validated view of one decision point. It is
// built once per request and never mutated afterwards.
type HandState struct {
	Player        string
	Round         snapshot.Round
	Pot           int
	MaxBet        int
	OwnBet        int
	Hole          [2]deck.Card
	Community     []deck.Card
	Players       []snapshot.Player // every listed player, table order
	ActivePlayers []snapshot.Player // players without a fold, table order
	LegalActions  []string
	RaiseCount    int // bets and raises in the current round
}

// Derive builds the HandState for player from the hole string, the legal
// action list and a decoded snapshot. A nil snapshot yields a preflop state
// with no players and no money in the pot.
func Derive(hole, legalActions string, snap *snapshot.Snapshot, player string) (*HandState, error) {
	cards, err := ParseHole(hole)
	if err != nil {
		return nil, err
	}

	state := &HandState{
		Player:       player,
		Round:        snapshot.Preflop,
		Hole:         cards,
		LegalActions: ParseLegalActions(legalActions),
	}
	if snap == nil {
		return state, nil
	}

	if len(snap.Community) > snapshot.MaxCommunity {
		return nil, fmt.Errorf("%w: %d community cards", snapshot.ErrMalformedSnapshot, len(snap.Community))
	}
	round, err := snapshot.RoundForCommunity(len(snap.Community))
	if err != nil {
		return nil, err
	}
	state.Round = round
	state.Community = slices.Clone(snap.Community)
	state.Players = slices.Clone(snap.Players)

	for _, p := range snap.Players {
		committed := p.Committed()
		if committed < 0 {
			return nil, fmt.Errorf("%w: player %q has more chips than at hand start", snapshot.ErrMalformedSnapshot, p.Name)
		}
		state.Pot += committed
		state.MaxBet = max(state.MaxBet, committed)
		if p.Name == player {
			state.OwnBet = committed
		}
		if !snap.Folded(p.Name) {
			state.ActivePlayers = append(state.ActivePlayers, p)
		}
	}

	for _, a := range snap.RoundActions(round) {
		if a.Type.IsAggressive() {
			state.RaiseCount++
		}
	}
	return state, nil
}

// ParseHole parses the two hole cards. Order is preserved.
func ParseHole(hole string) ([2]deck.Card, error) {
	var out [2]deck.Card

	tokens := strings.Fields(hole)
	if len(tokens) != 2 {
		return out, fmt.Errorf("%w: expected 2 cards, got %d in %q", ErrInvalidHoleCards, len(tokens), hole)
	}
	for i, token := range tokens {
		c, err := deck.ParseCard(token)
		if err != nil {
			return out, fmt.Errorf("%w: %w", ErrInvalidHoleCards, err)
		}
		out[i] = c
	}
	if out[0] == out[1] {
		return out, fmt.Errorf("%w: %s held twice", ErrInvalidHoleCards, out[0])
	}
	return out, nil
}

// ParseLegalActions splits the whitespace separated action list, dropping
// duplicates. Unknown names are kept as given.
func ParseLegalActions(s string) []string {
	var actions []string
	for _, f := range strings.Fields(s) {
		if !slices.Contains(actions, f) {
			actions = append(actions, f)
		}
	}
	return actions
}

// ToCall is the amount still needed to match the largest commitment.
func (s *HandState) ToCall() int {
	return s.MaxBet - s.OwnBet
}

// IsLegal reports whether action is in the legal action list.
func (s *HandState) IsLegal(action string) bool {
	return slices.Contains(s.LegalActions, action)
}

// Opponents is the number of other players still contesting the pot. When
// the snapshot lists no players at all a single opponent is assumed.
func (s *HandState) Opponents() int {
	if len(s.Players) == 0 && len(s.ActivePlayers) == 0 {
		return 1
	}
	return max(len(s.ActivePlayers)-1, 0)
}

// HoleCards returns the hole cards as a slice.
func (s *HandState) HoleCards() []deck.Card {
	return s.Hole[:]
}
