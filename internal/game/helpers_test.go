package game

import (
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"
)

// card parses labels such as "10S", "AH", "QD"
func card(label string) Card {
	suits := map[byte]Suit{'S': Spades, 'H': Hearts, 'D': Diamonds, 'C': Clubs}
	ranks := map[string]Rank{"A": Ace, "J": Jack, "Q": Queen, "K": King}

	suit, ok := suits[label[len(label)-1]]
	if !ok {
		panic("bad suit in " + label)
	}
	short := strings.TrimSuffix(label, label[len(label)-1:])
	rank, ok := ranks[short]
	if !ok {
		rank = Rank(short)
	}
	return NewCard(rank, suit)
}

func hand(labels ...string) Hand {
	h := make(Hand, len(labels))
	for i, label := range labels {
		h[i] = card(label)
	}
	return h
}

// stacked deals the same ordered shoe every round: player, player, dealer up, dealer hole, then draws
func stacked(labels ...string) DeckFactory {
	cards := hand(labels...)
	return func() *Deck {
		return NewDeck(cards...)
	}
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func newTestSession(t *testing.T, balance int, deck DeckFactory) *Session {
	t.Helper()
	return NewSession(Options{
		Name:            "tester",
		StartingBalance: balance,
		Rules:           DefaultRules(),
		NewDeck:         deck,
		Clock:           quartz.NewMock(t),
		Logger:          testLogger(),
	})
}

func placeBet(t *testing.T, s *Session, amount int) Result {
	t.Helper()
	res, err := s.PlaceBet(amount)
	require.NoError(t, err)
	return res
}
