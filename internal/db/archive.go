// Package db records settled rounds for history and statistics. Balances are
// never read back from the archive.
package db

import (
	"context"
	"errors"
	"time"

	"github.com/calvinwijaya/blackjack-be/internal/game"
)

// ErrNotFound is returned when the archive holds no record of a session
var ErrNotFound = errors.New("not found")

// SessionInfo describes a session when it is opened
type SessionInfo struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	StartingBalance int       `json:"startingBalance"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Stats aggregates the archived rounds of a session
type Stats struct {
	SessionID     string    `json:"sessionId"`
	Name          string    `json:"name"`
	RoundsPlayed  int       `json:"roundsPlayed"`
	RoundsWon     int       `json:"roundsWon"`
	RoundsLost    int       `json:"roundsLost"`
	Pushes        int       `json:"pushes"`
	Blackjacks    int       `json:"blackjacks"`
	TotalWagered  int       `json:"totalWagered"`
	TotalReturned int       `json:"totalReturned"`
	Net           int       `json:"net"`
	LastPlayed    time.Time `json:"lastPlayed,omitempty"`
}

// Archive stores round history
type Archive interface {
	// SaveSession records a newly opened session
	SaveSession(ctx context.Context, info SessionInfo) error

	// SaveRound records a settled round
	SaveRound(ctx context.Context, sessionID string, summary game.RoundSummary) error

	// GetRounds returns the settled rounds of a session, oldest first
	GetRounds(ctx context.Context, sessionID string) ([]game.RoundSummary, error)

	// GetStats aggregates the settled rounds of a session
	GetStats(ctx context.Context, sessionID string) (*Stats, error)

	Close() error
}

// roundResult classifies an outcome for the statistics
type roundResult int

const (
	resultLoss roundResult = iota
	resultWin
	resultPush
)

func classify(outcome game.Outcome) roundResult {
	switch outcome {
	case game.OutcomePlayerBlackjack, game.OutcomeDealerBust, game.OutcomePlayerWin:
		return resultWin
	case game.OutcomeBothBlackjack, game.OutcomeDraw, game.OutcomeVoid:
		return resultPush
	default:
		return resultLoss
	}
}

func (s *Stats) add(summary game.RoundSummary) {
	s.RoundsPlayed++
	switch classify(summary.Outcome) {
	case resultWin:
		s.RoundsWon++
	case resultPush:
		s.Pushes++
	default:
		s.RoundsLost++
	}
	if summary.Outcome == game.OutcomePlayerBlackjack {
		s.Blackjacks++
	}
	s.TotalWagered += summary.Wagered
	s.TotalReturned += summary.Returned
	s.Net += summary.Net
	if summary.SettledAt.After(s.LastPlayed) {
		s.LastPlayed = summary.SettledAt
	}
}

// Nop is an Archive that keeps nothing
type Nop struct{}

var _ Archive = Nop{}

func (Nop) SaveSession(context.Context, SessionInfo) error {
	return nil
}

func (Nop) SaveRound(context.Context, string, game.RoundSummary) error {
	return nil
}

func (Nop) GetRounds(context.Context, string) ([]game.RoundSummary, error) {
	return nil, ErrNotFound
}

func (Nop) GetStats(context.Context, string) (*Stats, error) {
	return nil, ErrNotFound
}

func (Nop) Close() error {
	return nil
}
