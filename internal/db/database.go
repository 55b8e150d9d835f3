package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/calvinwijaya/blackjack-be/internal/game"
)

// Database is a SQL archive backed by SQLite or PostgreSQL
type Database struct {
	db     *sql.DB
	driver string
	logger *log.Logger
}

var _ Archive = (*Database)(nil)

// NewDatabase opens the database and creates the tables if they don't exist.
// driver is "sqlite3" or "postgres".
func NewDatabase(ctx context.Context, driver, dsn string, logger *log.Logger) (*Database, error) {
	switch driver {
	case "sqlite3":
		// Create data directory if it doesn't exist
		if dir := filepath.Dir(dsn); dir != "." && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("error creating data directory: %w", err)
			}
		}
	case "postgres":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	// Set connection parameters
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	d := &Database{db: db, driver: driver, logger: logger.WithPrefix("db").With("driver", driver)}
	if err := d.initTables(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

// initTables creates the necessary tables if they don't exist
func (d *Database) initTables(ctx context.Context) error {
	// Sessions table
	_, err := d.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			starting_balance INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("error creating sessions table: %w", err)
	}

	// Rounds table
	_, err = d.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS rounds (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			number INTEGER NOT NULL,
			bet INTEGER NOT NULL,
			insurance INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			wagered INTEGER NOT NULL,
			returned INTEGER NOT NULL,
			net INTEGER NOT NULL,
			player_points INTEGER NOT NULL,
			dealer_points INTEGER NOT NULL,
			balance_after INTEGER NOT NULL,
			summary TEXT NOT NULL,
			settled_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("error creating rounds table: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS rounds_session_idx ON rounds (session_id, number)
	`)
	if err != nil {
		return fmt.Errorf("error creating rounds index: %w", err)
	}

	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// SaveSession records a newly opened session
func (d *Database) SaveSession(ctx context.Context, info SessionInfo) error {
	_, err := d.db.ExecContext(ctx, d.rebind(
		"INSERT INTO sessions (id, name, starting_balance, created_at) VALUES (?, ?, ?, ?)"),
		info.ID, info.Name, info.StartingBalance, info.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error saving session %s: %w", info.ID, err)
	}
	return nil
}

// SaveRound records a settled round
func (d *Database) SaveRound(ctx context.Context, sessionID string, summary game.RoundSummary) error {
	// Keep the full summary as JSON for history
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	_, err = d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO rounds (id, session_id, number, bet, insurance, outcome, wagered, returned, net,
			player_points, dealer_points, balance_after, summary, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		summary.RoundID, sessionID, summary.Number, summary.Bet, summary.Insurance, string(summary.Outcome),
		summary.Wagered, summary.Returned, summary.Net, summary.PlayerPoints, summary.DealerPoints,
		summary.BalanceAfter, string(data), summary.SettledAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error saving round %s: %w", summary.RoundID, err)
	}

	d.logger.Debug("round archived", "session", sessionID, "round", summary.Number, "outcome", summary.Outcome)
	return nil
}

// GetRounds returns the settled rounds of a session, oldest first
func (d *Database) GetRounds(ctx context.Context, sessionID string) ([]game.RoundSummary, error) {
	if err := d.sessionExists(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, d.rebind(`
		SELECT summary FROM rounds WHERE session_id = ? ORDER BY number
	`), sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rounds := []game.RoundSummary{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		var summary game.RoundSummary
		if err := json.Unmarshal([]byte(data), &summary); err != nil {
			return nil, err
		}
		rounds = append(rounds, summary)
	}

	return rounds, rows.Err()
}

// GetStats aggregates the settled rounds of a session
func (d *Database) GetStats(ctx context.Context, sessionID string) (*Stats, error) {
	stats := Stats{SessionID: sessionID}

	// Get session name
	err := d.db.QueryRowContext(ctx, d.rebind("SELECT name FROM sessions WHERE id = ?"), sessionID).Scan(&stats.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return nil, err
	}

	// Get totals
	err = d.db.QueryRowContext(ctx, d.rebind(`
		SELECT COUNT(*), COALESCE(SUM(wagered), 0), COALESCE(SUM(returned), 0), COALESCE(SUM(net), 0)
		FROM rounds WHERE session_id = ?
	`), sessionID).Scan(&stats.RoundsPlayed, &stats.TotalWagered, &stats.TotalReturned, &stats.Net)
	if err != nil {
		return nil, fmt.Errorf("error getting totals: %w", err)
	}

	// Count outcomes
	rows, err := d.db.QueryContext(ctx, d.rebind(`
		SELECT outcome, COUNT(*) FROM rounds WHERE session_id = ? GROUP BY outcome
	`), sessionID)
	if err != nil {
		return nil, fmt.Errorf("error counting outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		switch classify(game.Outcome(outcome)) {
		case resultWin:
			stats.RoundsWon += count
		case resultPush:
			stats.Pushes += count
		default:
			stats.RoundsLost += count
		}
		if game.Outcome(outcome) == game.OutcomePlayerBlackjack {
			stats.Blackjacks += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Get last played timestamp
	err = d.db.QueryRowContext(ctx, d.rebind(`
		SELECT settled_at FROM rounds WHERE session_id = ? ORDER BY settled_at DESC LIMIT 1
	`), sessionID).Scan(&stats.LastPlayed)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		d.logger.Warn("error getting last played", "err", err)
	}

	return &stats, nil
}

func (d *Database) sessionExists(ctx context.Context, sessionID string) error {
	var id string
	err := d.db.QueryRowContext(ctx, d.rebind("SELECT id FROM sessions WHERE id = ?"), sessionID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return err
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL
func (d *Database) rebind(query string) string {
	if d.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
