// Package evaluator estimates hand strength as showdown equity against a
// single random opponent hand.
package evaluator

import (
	rand "math/rand/v2"
	"runtime"

	"github.com/paulhankin/poker"
	"golang.org/x/sync/errgroup"

	"github.com/lox/robobot/internal/deck"
	"github.com/lox/robobot/internal/randutil"
)

// DefaultSamples is the Monte Carlo sample count used before the river.
const DefaultSamples = 2000

// Evaluator maps hole and community cards to a strength in [0,1]. Higher is
// stronger. Implementations must not depend on the order of either argument.
type Evaluator interface {
	Strength(hole, community []deck.Card) float64
}

// Func adapts a plain function to Evaluator.
type Func func(hole, community []deck.Card) float64

// Strength calls f.
func (f Func) Strength(hole, community []deck.Card) float64 { return f(hole, community) }

// Equity computes the probability of beating one uniformly random opponent
// hand, counting ties as half a win. On the river every opponent hand is
// enumerated; earlier streets are sampled. The sampler is seeded from the
// card sets, so the result is reproducible and order-insensitive.
type Equity struct {
	samples int
	workers int
}

// Option configures an Equity evaluator.
type Option func(*Equity)

// WithSamples sets the Monte Carlo sample count.
func WithSamples(n int) Option {
	return func(e *Equity) {
		if n > 0 {
			e.samples = n
		}
	}
}

// WithWorkers sets how many goroutines share the samples.
func WithWorkers(n int) Option {
	return func(e *Equity) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEquity creates an equity evaluator.
func NewEquity(opts ...Option) *Equity {
	e := &Equity{
		samples: DefaultSamples,
		workers: min(runtime.NumCPU(), 8),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Samples returns the configured Monte Carlo sample count.
func (e *Equity) Samples() int { return e.samples }

// Strength implements Evaluator. Invalid input (wrong card counts or a card
// seen twice) has strength 0.
func (e *Equity) Strength(hole, community []deck.Card) float64 {
	if len(hole) != 2 || len(community) > 5 {
		return 0
	}
	holeSet := deck.NewCardSet(hole)
	boardSet := deck.NewCardSet(community)
	if holeSet.Len() != 2 || boardSet.Len() != len(community) || holeSet&boardSet != 0 {
		return 0
	}

	if len(community) == 5 {
		return riverEquity(hole, community, holeSet|boardSet)
	}
	return e.sampledEquity(hole, community, holeSet, boardSet)
}

type tally struct {
	wins, ties, total int
}

func (t *tally) add(o tally) {
	t.wins += o.wins
	t.ties += o.ties
	t.total += o.total
}

func (t tally) equity() float64 {
	if t.total == 0 {
		return 0
	}
	return (float64(t.wins) + float64(t.ties)/2) / float64(t.total)
}

func (t *tally) record(hero, villain int16) {
	t.total++
	switch {
	case hero > villain:
		t.wins++
	case hero == villain:
		t.ties++
	}
}

// riverEquity enumerates every opponent hole pair.
func riverEquity(hole, board []deck.Card, used deck.CardSet) float64 {
	var hand [7]poker.Card
	for i, c := range board {
		hand[i+2] = toPoker(c)
	}
	hand[0], hand[1] = toPoker(hole[0]), toPoker(hole[1])
	hero := poker.Eval7(&hand)

	var t tally
	rest := deck.Remaining(used)
	for i := 0; i < len(rest); i++ {
		for j := i + 1; j < len(rest); j++ {
			hand[0], hand[1] = toPoker(rest[i]), toPoker(rest[j])
			t.record(hero, poker.Eval7(&hand))
		}
	}
	return t.equity()
}

func (e *Equity) sampledEquity(hole, board []deck.Card, holeSet, boardSet deck.CardSet) float64 {
	rng := randutil.NewPair(uint64(holeSet), uint64(boardSet))
	available := deck.Remaining(holeSet | boardSet)

	workers := max(1, min(e.workers, e.samples))
	perWorker := e.samples / workers
	remainder := e.samples % workers

	results := make([]tally, workers)
	var g errgroup.Group
	for w := range workers {
		n := perWorker
		if w < remainder {
			n++
		}
		seed := rng.Int64()
		g.Go(func() error {
			results[w] = simulate(hole, board, available, n, randutil.New(seed))
			return nil
		})
	}
	_ = g.Wait()

	var total tally
	for _, r := range results {
		total.add(r)
	}
	return total.equity()
}

// simulate deals n random opponent hands and board run-outs from available.
func simulate(hole, board, available []deck.Card, n int, rng *rand.Rand) tally {
	pool := make([]deck.Card, len(available))
	copy(pool, available)
	need := 5 - len(board)
	draw := 2 + need

	var hero, villain [7]poker.Card
	hero[0], hero[1] = toPoker(hole[0]), toPoker(hole[1])
	for i, c := range board {
		hero[2+i] = toPoker(c)
		villain[2+i] = hero[2+i]
	}

	var t tally
	for range n {
		// partial Fisher-Yates over the first draw slots
		for i := range draw {
			j := i + rng.IntN(len(pool)-i)
			pool[i], pool[j] = pool[j], pool[i]
		}
		villain[0], villain[1] = toPoker(pool[0]), toPoker(pool[1])
		for i := range need {
			c := toPoker(pool[2+i])
			hero[2+len(board)+i] = c
			villain[2+len(board)+i] = c
		}
		t.record(poker.Eval7(&hero), poker.Eval7(&villain))
	}
	return t
}

var pokerCards = func() [52]poker.Card {
	var table [52]poker.Card
	for _, c := range deck.Full() {
		var suit poker.Suit
		switch c.Suit {
		case deck.Spades:
			suit = poker.Spade
		case deck.Hearts:
			suit = poker.Heart
		case deck.Diamonds:
			suit = poker.Diamond
		default:
			suit = poker.Club
		}
		// the library numbers ranks 1..13 with the ace as 1
		rank := poker.Rank(c.Rank)
		if c.Rank == deck.Ace {
			rank = poker.Rank(1)
		}
		pc, err := poker.MakeCard(suit, rank)
		if err != nil {
			panic(err)
		}
		table[c.Index()] = pc
	}
	return table
}()

func toPoker(c deck.Card) poker.Card {
	return pokerCards[c.Index()]
}
