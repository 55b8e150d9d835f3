package game

import "strings"

const (
	// BlackjackPoints is the best possible total
	BlackjackPoints = 21

	// DealerStandPoints is the total at which the dealer stops drawing, soft totals included
	DealerStandPoints = 17
)

// Hand is an ordered list of cards held by the player or the dealer.
// Hands only grow by appending.
type Hand []Card

// Add returns the hand with the cards appended
func (h Hand) Add(cards ...Card) Hand {
	return append(h, cards...)
}

// Points calculates the best total of the hand. Every Ace starts at 11 and is
// recounted as 1, one at a time, while the total exceeds 21.
func (h Hand) Points() int {
	points, _ := h.evaluate()
	return points
}

// IsSoft reports whether the best total still counts an Ace as 11
func (h Hand) IsSoft() bool {
	_, soft := h.evaluate()
	return soft > 0
}

// IsBlackjack reports whether the hand is a natural: exactly two cards totaling 21
func (h Hand) IsBlackjack() bool {
	return len(h) == 2 && h.Points() == BlackjackPoints
}

// IsBust reports whether the hand total exceeds 21
func (h Hand) IsBust() bool {
	return h.Points() > BlackjackPoints
}

func (h Hand) evaluate() (points, softAces int) {
	for _, card := range h {
		if card.IsAce() {
			softAces++
		}
		points += card.Value()
	}

	for softAces > 0 && points > BlackjackPoints {
		points -= 10
		softAces--
	}
	return points, softAces
}

// String renders the hand as space separated cards
func (h Hand) String() string {
	labels := make([]string, len(h))
	for i, card := range h {
		labels[i] = card.String()
	}
	return strings.Join(labels, " ")
}
