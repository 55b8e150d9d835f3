// Package ledger tracks a session's chip balance and keeps an append-only
// audit trail of every balance change and notable game event.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// ErrInsufficientChips is returned when a debit exceeds the balance
var ErrInsufficientChips = errors.New("insufficient chips")

// EntryKind classifies a log entry
type EntryKind string

const (
	KindDebit  EntryKind = "debit"
	KindCredit EntryKind = "credit"
	KindEvent  EntryKind = "event"
)

// Entry is an immutable, timestamped ledger record
type Entry struct {
	Seq     int       `json:"seq"`
	Time    time.Time `json:"time"`
	Kind    EntryKind `json:"kind"`
	Amount  int       `json:"amount,omitempty"`
	Balance int       `json:"balance"`
	Message string    `json:"message"`
}

// Ledger holds a non-negative chip balance
type Ledger struct {
	mu      sync.RWMutex
	balance int
	entries []Entry
	clock   quartz.Clock
	logger  *log.Logger
}

// New creates a ledger with an opening balance
func New(opening int, clock quartz.Clock, logger *log.Logger) *Ledger {
	if opening < 0 {
		opening = 0
	}
	l := &Ledger{
		balance: opening,
		clock:   clock,
		logger:  logger.WithPrefix("ledger"),
	}
	l.append(KindEvent, 0, fmt.Sprintf("Session opened with %d chips", opening))
	return l
}

// Balance returns the current chip balance
func (l *Ledger) Balance() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance
}

// Debit removes chips from the balance. Nothing is changed when the amount
// exceeds the balance.
func (l *Ledger) Debit(amount int, reason string) error {
	if amount < 0 {
		return fmt.Errorf("debit %d: negative amount", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if amount > l.balance {
		l.logger.Debug("debit rejected", "amount", amount, "balance", l.balance, "reason", reason)
		return fmt.Errorf("debit %d with balance %d: %w", amount, l.balance, ErrInsufficientChips)
	}

	l.balance -= amount
	l.append(KindDebit, amount, reason)
	return nil
}

// Credit adds chips to the balance
func (l *Ledger) Credit(amount int, reason string) {
	if amount <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.balance += amount
	l.append(KindCredit, amount, reason)
}

// Record appends an informational entry that does not touch the balance
func (l *Ledger) Record(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.append(KindEvent, 0, message)
}

// Entries returns a copy of the log in insertion order
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

// Since returns the entries with a sequence number greater than seq
func (l *Ledger) Since(seq int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if seq < 0 {
		seq = 0
	}
	if seq >= len(l.entries) {
		return []Entry{}
	}

	entries := make([]Entry, len(l.entries)-seq)
	copy(entries, l.entries[seq:])
	return entries
}

// append must be called with the lock held
func (l *Ledger) append(kind EntryKind, amount int, message string) {
	entry := Entry{
		Seq:     len(l.entries) + 1,
		Time:    l.clock.Now(),
		Kind:    kind,
		Amount:  amount,
		Balance: l.balance,
		Message: message,
	}
	l.entries = append(l.entries, entry)
	l.logger.Debug(message, "kind", kind, "amount", amount, "balance", l.balance)
}
