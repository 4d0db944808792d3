// Package snapshot decodes the table snapshot sent with every action request
// into typed community cards, players and per-round betting actions.
package snapshot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lox/robobot/internal/deck"
)

// ErrMalformedSnapshot is returned when a non-empty snapshot is missing a
// required field or holds values that cannot describe a hand.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// MaxCommunity is the number of community cards on a complete board.
const MaxCommunity = 5

// Round is a betting round.
type Round int

const (
	Preflop Round = iota
	Flop
	Turn
	River
)

// Rounds lists the betting rounds in the order they are played.
var Rounds = [...]Round{Preflop, Flop, Turn, River}

var roundNames = [...]string{"preflop", "flop", "turn", "river"}

func (r Round) String() string {
	if r < Preflop || r > River {
		return "unknown"
	}
	return roundNames[r]
}

// ParseRound maps a round name to a Round.
func ParseRound(name string) (Round, bool) {
	for i, n := range roundNames {
		if strings.EqualFold(n, name) {
			return Round(i), true
		}
	}
	return 0, false
}

// RoundForCommunity returns the round implied by the number of community
// cards on the board.
func RoundForCommunity(n int) (Round, error) {
	switch n {
	case 0:
		return Preflop, nil
	case 3:
		return Flop, nil
	case 4:
		return Turn, nil
	case 5:
		return River, nil
	default:
		return 0, fmt.Errorf("%w: %d community cards", ErrMalformedSnapshot, n)
	}
}

// ActionType classifies a betting action.
type ActionType int

const (
	ActionOther ActionType = iota
	ActionFold
	ActionCheck
	ActionCall
	ActionBet
	ActionRaise
)

// ParseActionType classifies a wire action name. Unrecognised names map to
// ActionOther.
func ParseActionType(name string) ActionType {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fold":
		return ActionFold
	case "check":
		return ActionCheck
	case "call":
		return ActionCall
	case "bet":
		return ActionBet
	case "raise":
		return ActionRaise
	default:
		return ActionOther
	}
}

func (a ActionType) String() string {
	switch a {
	case ActionFold:
		return "fold"
	case ActionCheck:
		return "check"
	case ActionCall:
		return "call"
	case ActionBet:
		return "bet"
	case ActionRaise:
		return "raise"
	default:
		return "other"
	}
}

// IsAggressive reports whether the action puts new money in (bet or raise).
func (a ActionType) IsAggressive() bool {
	return a == ActionBet || a == ActionRaise
}

// Action is one betting action. Raw keeps the wire name so unknown types
// survive decoding.
type Action struct {
	Round  Round
	Player string
	Type   ActionType
	Raw    string
	Amount int
}

// Player is a seat at the table.
type Player struct {
	Name         string
	Stack        int // chips behind now
	InitialStack int // chips behind at hand start
}

// Committed is how many chips the player moved into the pot this hand.
func (p Player) Committed() int {
	return p.InitialStack - p.Stack
}

// Net is the player's result for the hand, positive when chips were won.
func (p Player) Net() int {
	return p.Stack - p.InitialStack
}

// Snapshot is the typed view of a decoded table snapshot.
type Snapshot struct {
	Community []deck.Card
	Players   []Player
	Rounds    [4][]Action
}

// RoundActions returns the actions of one round in chronological order.
func (s *Snapshot) RoundActions(r Round) []Action {
	if r < Preflop || r > River {
		return nil
	}
	return s.Rounds[r]
}

// AllActions returns every action of the hand in chronological order.
func (s *Snapshot) AllActions() []Action {
	var all []Action
	for _, actions := range s.Rounds {
		all = append(all, actions...)
	}
	return all
}

// Folded reports whether the named player folded in any round.
func (s *Snapshot) Folded(name string) bool {
	for _, actions := range s.Rounds {
		for _, a := range actions {
			if a.Type == ActionFold && a.Player == name {
				return true
			}
		}
	}
	return false
}

// Parse decodes snapshot text. Blank text is the legal "no snapshot" case and
// returns nil without error. Text starting with '{' is read as a JSON tree,
// anything else as markup.
func Parse(text string) (*Snapshot, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}

	var (
		tree Tree
		err  error
	)
	if strings.HasPrefix(trimmed, "{") {
		tree, err = ParseJSON([]byte(trimmed))
	} else {
		tree, err = ParseXML([]byte(trimmed))
	}
	if err != nil {
		return nil, err
	}
	return Decode(tree)
}

// Decode turns a generic tree into a Snapshot.
func Decode(tree Tree) (*Snapshot, error) {
	game, ok := child(tree, "game")
	if !ok {
		return nil, fmt.Errorf("%w: missing game element", ErrMalformedSnapshot)
	}

	community, err := decodeCommunity(game)
	if err != nil {
		return nil, err
	}
	players, err := decodePlayers(game)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Community: community, Players: players}
	if err := decodeBetting(game, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func decodeCommunity(game Tree) ([]deck.Card, error) {
	community, ok := child(game, "community")
	if !ok {
		return nil, nil
	}

	entries := List(community["card"])
	if len(entries) > MaxCommunity {
		return nil, fmt.Errorf("%w: %d community cards", ErrMalformedSnapshot, len(entries))
	}

	cards := make([]deck.Card, 0, len(entries))
	for i, entry := range entries {
		node, ok := asNode(entry)
		if !ok {
			return nil, fmt.Errorf("%w: community card %d is not an element", ErrMalformedSnapshot, i)
		}
		rank, rok := attr(node, "rank")
		suit, sok := attr(node, "suit")
		if !rok || !sok {
			return nil, fmt.Errorf("%w: community card %d needs rank and suit", ErrMalformedSnapshot, i)
		}
		card, err := deck.ParseCard(rank + suit)
		if err != nil {
			return nil, fmt.Errorf("%w: community card %d: %w", ErrMalformedSnapshot, i, err)
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func decodePlayers(game Tree) ([]Player, error) {
	table, ok := child(game, "table")
	if !ok {
		return nil, fmt.Errorf("%w: missing table element", ErrMalformedSnapshot)
	}

	entries := List(table["player"])
	players := make([]Player, 0, len(entries))
	for i, entry := range entries {
		node, ok := asNode(entry)
		if !ok {
			return nil, fmt.Errorf("%w: player %d is not an element", ErrMalformedSnapshot, i)
		}
		name, ok := attr(node, "name")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: player %d has no name", ErrMalformedSnapshot, i)
		}
		stack, err := intAttr(node, "stack")
		if err != nil {
			return nil, fmt.Errorf("player %q: %w", name, err)
		}
		initial, err := intAttr(node, "in_stack")
		if err != nil {
			return nil, fmt.Errorf("player %q: %w", name, err)
		}
		if stack < 0 || initial < 0 {
			return nil, fmt.Errorf("%w: player %q has a negative stack", ErrMalformedSnapshot, name)
		}
		players = append(players, Player{Name: name, Stack: stack, InitialStack: initial})
	}
	return players, nil
}

func decodeBetting(game Tree, snap *Snapshot) error {
	betting, ok := child(game, "betting")
	if !ok {
		return fmt.Errorf("%w: missing betting element", ErrMalformedSnapshot)
	}

	rounds := List(betting["round"])
	if len(rounds) != len(Rounds) {
		return fmt.Errorf("%w: expected %d betting rounds, got %d", ErrMalformedSnapshot, len(Rounds), len(rounds))
	}

	for i, entry := range rounds {
		want := Rounds[i]
		node, ok := asNode(entry)
		if !ok {
			return fmt.Errorf("%w: round %d is not an element", ErrMalformedSnapshot, i)
		}
		name, _ := attr(node, "name")
		if got, ok := ParseRound(name); !ok || got != want {
			return fmt.Errorf("%w: round %d is %q, expected %q", ErrMalformedSnapshot, i, name, want)
		}

		for j, raw := range List(node["action"]) {
			action, err := decodeAction(raw, want)
			if err != nil {
				return fmt.Errorf("%s action %d: %w", want, j, err)
			}
			snap.Rounds[want] = append(snap.Rounds[want], action)
		}
	}
	return nil
}

func decodeAction(raw any, round Round) (Action, error) {
	node, ok := asNode(raw)
	if !ok {
		return Action{}, fmt.Errorf("%w: not an element", ErrMalformedSnapshot)
	}
	typ, ok := attr(node, "type")
	if !ok {
		return Action{}, fmt.Errorf("%w: missing type", ErrMalformedSnapshot)
	}
	player, ok := attr(node, "player")
	if !ok {
		return Action{}, fmt.Errorf("%w: missing player", ErrMalformedSnapshot)
	}
	amount, err := optionalIntAttr(node, "amount")
	if err != nil {
		return Action{}, err
	}
	if amount < 0 {
		return Action{}, fmt.Errorf("%w: negative amount %d", ErrMalformedSnapshot, amount)
	}
	return Action{
		Round:  round,
		Player: player,
		Type:   ParseActionType(typ),
		Raw:    typ,
		Amount: amount,
	}, nil
}
