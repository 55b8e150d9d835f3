package store

import (
	"errors"

	"github.com/calvinwijaya/blackjack-be/internal/game"
)

// ErrSessionNotFound is returned when no live session has the given ID
var ErrSessionNotFound = errors.New("session not found")

// Store defines the interface for live session storage
type Store interface {
	// SaveSession registers a session
	SaveSession(s *game.Session) error

	// GetSession retrieves a session by ID
	GetSession(id string) (*game.Session, error)

	// DeleteSession removes a session
	DeleteSession(id string) error

	// ListSessions returns all live sessions
	ListSessions() ([]*game.Session, error)
}
