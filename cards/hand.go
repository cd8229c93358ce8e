package cards

import "strings"

// Hand is an ordered collection of cards held by a player or the dealer.
type Hand struct {
	Cards []Card
}

// Add appends a card to the hand.
func (h *Hand) Add(card Card) {
	h.Cards = append(h.Cards, card)
}

// Value returns the blackjack value of the hand. Aces count as 11 and
// are demoted to 1 one at a time while the total would bust.
func (h *Hand) Value() int {
	total := 0
	aces := 0
	for _, c := range h.Cards {
		total += c.Value()
		if c.IsAce() {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsBlackjack reports whether the hand is a natural: exactly two cards
// totalling 21.
func (h *Hand) IsBlackjack() bool {
	return len(h.Cards) == 2 && h.Value() == 21
}

// IsBust reports whether the hand's value exceeds 21.
func (h *Hand) IsBust() bool {
	return h.Value() > 21
}

// CardValue returns the value a single card contributes on top of a
// running total, resolving an Ace to 11 unless that would bust. This is
// a per-card display heuristic; Hand.Value is authoritative.
func CardValue(c Card, runningTotal int) int {
	if c.IsAce() && runningTotal+11 > 21 {
		return 1
	}
	return c.Value()
}

// String renders the hand as space-separated cards, e.g. "K♠ 7♥".
func (h *Hand) String() string {
	parts := make([]string, len(h.Cards))
	for i, c := range h.Cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// StringHidden renders the hand with the first card masked, for showing
// the dealer's hand before the player stands.
func (h *Hand) StringHidden() string {
	if len(h.Cards) == 0 {
		return ""
	}
	parts := make([]string, len(h.Cards))
	parts[0] = "🃏"
	for i := 1; i < len(h.Cards); i++ {
		parts[i] = h.Cards[i].String()
	}
	return strings.Join(parts, " ")
}
