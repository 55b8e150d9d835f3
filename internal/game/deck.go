package game

import "fmt"

// Source supplies uniformly distributed integers for shuffling.
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	// IntN returns a uniform int in [0, n)
	IntN(n int) int
}

// Deck is an ordered shoe of cards; the first card is the top of the shoe
type Deck struct {
	cards []Card
}

// NewDeck creates a deck holding exactly the given cards in order.
// Used for replaying a known shoe.
func NewDeck(cards ...Card) *Deck {
	return &Deck{cards: append([]Card(nil), cards...)}
}

// NewStandardDeck creates an unshuffled 52-card deck, one card per rank and suit
func NewStandardDeck() *Deck {
	deck := &Deck{cards: make([]Card, 0, len(Suits)*len(Ranks))}
	for _, suit := range Suits {
		for _, rank := range Ranks {
			deck.cards = append(deck.cards, NewCard(rank, suit))
		}
	}
	return deck
}

// Shuffle returns a new 52-card deck in a uniformly random order
func Shuffle(src Source) *Deck {
	deck := NewStandardDeck()

	// Fisher-Yates shuffle algorithm
	for i := len(deck.cards) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		deck.cards[i], deck.cards[j] = deck.cards[j], deck.cards[i]
	}
	return deck
}

// ShuffledDecks returns a DeckFactory that shuffles a fresh 52-card deck from src for every round
func ShuffledDecks(src Source) DeckFactory {
	return func() *Deck {
		return Shuffle(src)
	}
}

// Draw removes and returns the top n cards. The deck is left untouched
// when fewer than n cards remain.
func (d *Deck) Draw(n int) ([]Card, error) {
	if n < 0 || n > len(d.cards) {
		return nil, fmt.Errorf("draw %d of %d: %w", n, len(d.cards), ErrInsufficientCards)
	}

	drawn := make([]Card, n)
	copy(drawn, d.cards[:n])
	d.cards = d.cards[n:]
	return drawn, nil
}

// DrawCard removes and returns the top card
func (d *Deck) DrawCard() (Card, error) {
	cards, err := d.Draw(1)
	if err != nil {
		return Card{}, err
	}
	return cards[0], nil
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}
