// Package deck holds the card model shared by the snapshot decoder, the hand
// state deriver and the strength evaluator.
package deck

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCard is returned when a rank or suit is outside its enumeration.
var ErrInvalidCard = errors.New("invalid card")

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

const suitChars = "SHDC"

// String returns the single-letter wire form of the suit.
func (s Suit) String() string {
	if !s.Valid() {
		return "?"
	}
	return string(suitChars[s])
}

// Name returns the long name used in logs.
func (s Suit) Name() string {
	switch s {
	case Spades:
		return "spades"
	case Hearts:
		return "hearts"
	case Diamonds:
		return "diamonds"
	case Clubs:
		return "clubs"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the four suits.
func (s Suit) Valid() bool {
	return s >= Spades && s <= Clubs
}

// Rank represents a card rank
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

const rankChars = "23456789TJQKA"

// String returns the single-character wire form of the rank.
func (r Rank) String() string {
	if !r.Valid() {
		return "?"
	}
	return string(rankChars[r-Two])
}

// Valid reports whether r is between Two and Ace.
func (r Rank) Valid() bool {
	return r >= Two && r <= Ace
}

// Card represents a playing card. Two cards are equal when both rank and suit
// match.
type Card struct {
	Rank Rank
	Suit Suit
}

// NewCard validates rank and suit and returns the card.
func NewCard(rank Rank, suit Suit) (Card, error) {
	if !rank.Valid() {
		return Card{}, fmt.Errorf("%w: rank %d", ErrInvalidCard, rank)
	}
	if !suit.Valid() {
		return Card{}, fmt.Errorf("%w: suit %d", ErrInvalidCard, suit)
	}
	return Card{Rank: rank, Suit: suit}, nil
}

// MustParseCard parses a token and panics on error (for tests and tables)
func MustParseCard(token string) Card {
	c, err := ParseCard(token)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseCard parses a two-character token such as "7D" or "TS".
func ParseCard(token string) (Card, error) {
	if len(token) != 2 {
		return Card{}, fmt.Errorf("%w: %q must be exactly 2 characters", ErrInvalidCard, token)
	}
	rank, ok := ParseRank(token[0])
	if !ok {
		return Card{}, fmt.Errorf("%w: unknown rank %q in %q", ErrInvalidCard, token[0], token)
	}
	suit, ok := ParseSuit(token[1])
	if !ok {
		return Card{}, fmt.Errorf("%w: unknown suit %q in %q", ErrInvalidCard, token[1], token)
	}
	return Card{Rank: rank, Suit: suit}, nil
}

// ParseRank maps a rank character (case-insensitive) to a Rank.
func ParseRank(c byte) (Rank, bool) {
	i := strings.IndexByte(rankChars, upper(c))
	if i < 0 {
		return 0, false
	}
	return Two + Rank(i), true
}

// ParseSuit maps a suit character (case-insensitive) to a Suit.
func ParseSuit(c byte) (Suit, bool) {
	i := strings.IndexByte(suitChars, upper(c))
	if i < 0 {
		return 0, false
	}
	return Suit(i), true
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// ParseCards parses whitespace-separated card tokens, e.g. "QC 8C 3S".
func ParseCards(s string) ([]Card, error) {
	fields := strings.Fields(s)
	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// String returns the two-character token, e.g. "7D".
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// Key is the ordering key of a card. Only the rank takes part in ordering.
func (c Card) Key() int {
	return int(c.Rank)
}

// Index returns a dense index in 0..51.
func (c Card) Index() int {
	return int(c.Rank-Two)*4 + int(c.Suit)
}

// Compare orders cards by Key: -1 if a sorts before b, 1 if after, 0 when the
// ranks are equal.
func Compare(a, b Card) int {
	switch ka, kb := a.Key(), b.Key(); {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	default:
		return 0
	}
}

// FormatCards joins the tokens with single spaces.
func FormatCards(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
