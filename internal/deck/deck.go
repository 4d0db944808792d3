package deck

import "math/bits"

// CardSet represents a set of cards using a bitset for fast operations.
// Each card maps to the bit at Card.Index.
type CardSet uint64

// NewCardSet creates a CardSet from a slice of cards
func NewCardSet(cards []Card) CardSet {
	var cs CardSet
	for _, c := range cards {
		cs.Add(c)
	}
	return cs
}

// Add adds a card to the set
func (cs *CardSet) Add(c Card) {
	*cs |= 1 << c.Index()
}

// Contains checks if a card is in the set
func (cs CardSet) Contains(c Card) bool {
	return cs&(1<<c.Index()) != 0
}

// Len returns the number of cards in the set.
func (cs CardSet) Len() int {
	return bits.OnesCount64(uint64(cs))
}

// Full returns the 52 cards in index order.
func Full() []Card {
	cards := make([]Card, 0, 52)
	for rank := Two; rank <= Ace; rank++ {
		for suit := Spades; suit <= Clubs; suit++ {
			cards = append(cards, Card{Rank: rank, Suit: suit})
		}
	}
	return cards
}

// Remaining returns the cards of a full deck that are not in used, in index
// order.
func Remaining(used CardSet) []Card {
	cards := make([]Card, 0, 52-used.Len())
	for _, c := range Full() {
		if !used.Contains(c) {
			cards = append(cards, c)
		}
	}
	return cards
}
