package cards

// Suit is one of the four playing card suits.
type Suit string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
)

// Suits lists all suits in a fixed order for shoe construction.
var Suits = []Suit{Spades, Hearts, Diamonds, Clubs}

// Ranks lists all ranks in a fixed order for shoe construction.
var Ranks = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// rankValues maps ranks to their blackjack values. Aces start at 11 and
// are demoted to 1 during hand valuation when they would bust the hand.
var rankValues = map[string]int{
	"A": 11, "2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7, "8": 8,
	"9": 9, "10": 10, "J": 10, "Q": 10, "K": 10,
}

// Card represents a single playing card.
type Card struct {
	Rank string
	Suit Suit
}

// Value returns the card's blackjack value (Ace counted high).
func (c Card) Value() int {
	return rankValues[c.Rank]
}

// IsAce reports whether the card is an Ace.
func (c Card) IsAce() bool {
	return c.Rank == "A"
}

// CountValue returns the card's Hi-Lo contribution: +1 for 2-6,
// -1 for tens and Aces, 0 for 7-9.
func (c Card) CountValue() int {
	switch c.Rank {
	case "2", "3", "4", "5", "6":
		return 1
	case "10", "J", "Q", "K", "A":
		return -1
	default:
		return 0
	}
}

// String returns the card as rank followed by suit, e.g. "K♠".
func (c Card) String() string {
	return c.Rank + string(c.Suit)
}
