package cards

import (
	"math/rand"
	"time"
)

const (
	// ShuffleThreshold is the remaining-card count below which a shoe
	// must be rebuilt before dealing another hand.
	ShuffleThreshold = 15

	// MaxShoeAge is how long a shoe stays valid before it is rebuilt
	// regardless of how many cards remain.
	MaxShoeAge = time.Hour
)

// Shoe is a multi-deck dealing shoe that tracks the Hi-Lo running count
// of every card drawn from it. A shoe is not safe for concurrent use;
// callers serialize access per player.
type Shoe struct {
	cards     []Card
	count     int
	createdAt time.Time
	rng       *rand.Rand
}

// NewShoe builds a shuffled shoe of the given number of 52-card decks.
// The rng is injected so tests can deal deterministic shoes.
func NewShoe(decks int, rng *rand.Rand, now time.Time) *Shoe {
	s := &Shoe{
		cards:     make([]Card, 0, decks*52),
		createdAt: now,
		rng:       rng,
	}
	for d := 0; d < decks; d++ {
		for _, suit := range Suits {
			for _, rank := range Ranks {
				s.cards = append(s.cards, Card{Rank: rank, Suit: suit})
			}
		}
	}
	s.rng.Shuffle(len(s.cards), func(i, j int) {
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	})
	return s
}

// NewShoeFromCards builds a shoe dealing the given stack in order from
// the last element backwards. Used to script exact deals in tests.
func NewShoeFromCards(stack []Card, now time.Time) *Shoe {
	return &Shoe{
		cards:     append([]Card(nil), stack...),
		createdAt: now,
	}
}

// Draw removes and returns the top card, updating the running count.
// Callers must check Remaining before drawing from a shoe that may be
// exhausted.
func (s *Shoe) Draw() Card {
	card := s.cards[len(s.cards)-1]
	s.cards = s.cards[:len(s.cards)-1]
	s.count += card.CountValue()
	return card
}

// Remaining returns the number of undealt cards.
func (s *Shoe) Remaining() int {
	return len(s.cards)
}

// RunningCount returns the Hi-Lo running count of all cards drawn so far.
func (s *Shoe) RunningCount() int {
	return s.count
}

// TrueCount returns the running count divided by the number of decks
// remaining. An exhausted shoe has a true count of zero.
func (s *Shoe) TrueCount() float64 {
	if len(s.cards) == 0 {
		return 0
	}
	decksLeft := float64(len(s.cards)) / 52.0
	return float64(s.count) / decksLeft
}

// NeedsRefresh reports whether the shoe must be rebuilt before the next
// hand: too few cards left to guarantee a full deal, or too old.
func (s *Shoe) NeedsRefresh(now time.Time) bool {
	return len(s.cards) < ShuffleThreshold || now.Sub(s.createdAt) >= MaxShoeAge
}
