package game

import (
	"errors"

	"github.com/calvinwijaya/blackjack-be/internal/ledger"
)

var (
	// ErrIllegalAction is returned when an action is not permitted in the current round state
	ErrIllegalAction = errors.New("illegal action for current round state")

	// ErrInvalidBet is returned for a bet that is not a positive multiple of the table unit or exceeds the table maximum
	ErrInvalidBet = errors.New("invalid bet amount")

	// ErrInsufficientCards is returned when the shoe cannot supply the requested cards
	ErrInsufficientCards = errors.New("insufficient cards in deck")

	// ErrInsufficientChips is returned when a bet or side wager exceeds the balance
	ErrInsufficientChips = ledger.ErrInsufficientChips

	// ErrUnknownOutcome is returned when settling an outcome that has no payout rule
	ErrUnknownOutcome = errors.New("unknown outcome")
)
