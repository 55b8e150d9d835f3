package game

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/calvinwijaya/blackjack-be/internal/ledger"
	"github.com/calvinwijaya/blackjack-be/internal/randutil"
)

// DefaultStartingBalance is the chip balance a new session opens with
const DefaultStartingBalance = 1000

// Options configure a new Session
type Options struct {
	Name            string
	StartingBalance int
	Rules           Rules
	// NewDeck supplies the shoe for each round
	NewDeck DeckFactory
	Clock   quartz.Clock
	Logger  *log.Logger
}

// Session is a single player's seat at the table: one ledger and the live round.
// All actions are serialised; an action arriving while another one is running
// waits and is then validated against the resulting state.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`

	mu      sync.Mutex
	ledger  *ledger.Ledger
	rules   Rules
	newDeck DeckFactory
	clock   quartz.Clock
	logger  *log.Logger

	round          *Round
	rounds         int
	openingBalance int
	last           *RoundSummary
}

// Result is returned by every session action
type Result struct {
	State     State         `json:"state"`
	Message   string        `json:"message,omitempty"`
	Snapshots []Snapshot    `json:"snapshots"`
	Summary   *RoundSummary `json:"summary,omitempty"`
}

// RoundSummary describes a settled round
type RoundSummary struct {
	RoundID         string    `json:"roundId"`
	Number          int       `json:"number"`
	Bet             int       `json:"bet"`
	Doubled         bool      `json:"doubled"`
	Insurance       int       `json:"insurance"`
	InsurancePayout int       `json:"insurancePayout"`
	Outcome         Outcome   `json:"outcome"`
	Label           string    `json:"label"`
	Payout          int       `json:"payout"`
	Wagered         int       `json:"wagered"`
	Returned        int       `json:"returned"`
	Net             int       `json:"net"`
	PlayerCards     Hand      `json:"playerCards"`
	DealerCards     Hand      `json:"dealerCards"`
	PlayerPoints    int       `json:"playerPoints"`
	DealerPoints    int       `json:"dealerPoints"`
	DealerRevealed  bool      `json:"dealerRevealed"`
	BalanceBefore   int       `json:"balanceBefore"`
	BalanceAfter    int       `json:"balanceAfter"`
	SettledAt       time.Time `json:"settledAt"`
}

// View is the read-only projection of a session
type View struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	State        State         `json:"state"`
	Bet          int           `json:"bet"`
	Insurance    int           `json:"insurance"`
	Balance      int           `json:"balance"`
	Player       HandView      `json:"player"`
	Dealer       HandView      `json:"dealer"`
	LegalActions []Action      `json:"legalActions"`
	Rounds       int           `json:"rounds"`
	Last         *RoundSummary `json:"last,omitempty"`
}

// NewSession creates a session with a fresh ledger and a round awaiting a bet
func NewSession(opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Rules.BetUnit <= 0 {
		opts.Rules = DefaultRules()
	}
	if opts.StartingBalance <= 0 {
		opts.StartingBalance = DefaultStartingBalance
	}
	if opts.NewDeck == nil {
		opts.NewDeck = ShuffledDecks(randutil.NewSecure())
	}

	id := uuid.New().String()
	logger := opts.Logger.WithPrefix("session").With("session", id[:8])

	s := &Session{
		ID:        id,
		Name:      opts.Name,
		CreatedAt: opts.Clock.Now(),
		ledger:    ledger.New(opts.StartingBalance, opts.Clock, logger),
		rules:     opts.Rules,
		newDeck:   opts.NewDeck,
		clock:     opts.Clock,
		logger:    logger,
	}
	s.round = s.nextRound()
	return s
}

// StartRound clears a settled round and waits for the next bet
func (s *Session) StartRound() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.round.State() {
	case AwaitingBet:
	case Settled:
		s.round = s.nextRound()
	default:
		err := s.round.illegal(ActionNewRound)
		return s.result(err), err
	}
	s.round.snapshot()
	return s.result(nil), nil
}

// PlaceBet starts the deal. A settled round is replaced by a new one first;
// a rejected bet leaves the session unchanged.
func (s *Session) PlaceBet(amount int) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	round := s.round
	if round.State() == Settled {
		round = s.nextRound()
	}

	opening := s.ledger.Balance()
	err := round.PlaceBet(amount)
	if err != nil && round.State() != Settled {
		// nothing was applied
		return s.result(err), err
	}

	s.round = round
	s.rounds++
	s.openingBalance = opening
	return s.settledResult(err)
}

// Hit draws a card for the player
func (s *Session) Hit() (Result, error) {
	return s.act((*Round).Hit)
}

// Stand ends the player's turn; the dealer plays to completion before it returns
func (s *Session) Stand() (Result, error) {
	return s.act((*Round).Stand)
}

// DoubleDown doubles the bet for one final card
func (s *Session) DoubleDown() (Result, error) {
	return s.act((*Round).DoubleDown)
}

// Surrender gives up the hand for half the bet
func (s *Session) Surrender() (Result, error) {
	return s.act((*Round).Surrender)
}

// ResolveInsurance takes or declines the insurance offer
func (s *Session) ResolveInsurance(take bool) (Result, error) {
	return s.act(func(r *Round) error {
		return r.ResolveInsurance(take)
	})
}

// Balance returns the chip balance
func (s *Session) Balance() int {
	return s.ledger.Balance()
}

// Log returns the audit trail
func (s *Session) Log() []ledger.Entry {
	return s.ledger.Entries()
}

// LogSince returns audit entries after the given sequence number
func (s *Session) LogSince(seq int) []ledger.Entry {
	return s.ledger.Since(seq)
}

// Rules returns the table limits
func (s *Session) Rules() Rules {
	return s.rules
}

// State returns the live round state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round.State()
}

// View projects the session for display
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return View{
		ID:           s.ID,
		Name:         s.Name,
		State:        s.round.State(),
		Bet:          s.round.Bet(),
		Insurance:    s.round.Insurance(),
		Balance:      s.ledger.Balance(),
		Player:       s.round.PlayerView(),
		Dealer:       s.round.DealerView(),
		LegalActions: s.round.LegalActions(),
		Rounds:       s.rounds,
		Last:         s.last,
	}
}

func (s *Session) act(apply func(*Round) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.round.State() == Settled {
		// nothing may change a settled round
		err := apply(s.round)
		return s.result(err), err
	}
	return s.settledResult(apply(s.round))
}

// settledResult builds the result and, when the action settled the round,
// its summary. Must be called with the lock held.
func (s *Session) settledResult(err error) (Result, error) {
	res := s.result(err)
	if settlement, ok := s.round.Settlement(); ok {
		summary := s.summarize(settlement)
		s.last = &summary
		res.Summary = &summary
		if err == nil {
			res.Message = summary.Label
		}
	}
	return res, err
}

func (s *Session) result(err error) Result {
	res := Result{
		State:     s.round.State(),
		Snapshots: s.round.DrainSnapshots(),
	}
	if res.Snapshots == nil {
		res.Snapshots = []Snapshot{}
	}
	if err != nil {
		res.Message = UserMessage(err)
	}
	return res
}

func (s *Session) summarize(settlement Settlement) RoundSummary {
	r := s.round
	summary := RoundSummary{
		RoundID:         r.ID,
		Number:          s.rounds,
		Bet:             r.Bet(),
		Doubled:         r.Doubled(),
		Insurance:       r.Insurance(),
		InsurancePayout: r.InsurancePayout(),
		Outcome:         settlement.Outcome,
		Label:           settlement.Label,
		Payout:          settlement.Payout,
		PlayerCards:     r.PlayerHand(),
		DealerCards:     r.DealerHand(),
		DealerRevealed:  r.HoleRevealed(),
		BalanceBefore:   s.openingBalance,
		BalanceAfter:    s.ledger.Balance(),
		SettledAt:       s.clock.Now(),
	}
	summary.PlayerPoints = summary.PlayerCards.Points()
	summary.DealerPoints = summary.DealerCards.Points()
	summary.Wagered = summary.Bet + summary.Insurance
	summary.Returned = summary.Payout + summary.InsurancePayout
	summary.Net = summary.Returned - summary.Wagered
	return summary
}

func (s *Session) nextRound() *Round {
	return NewRound(s.ledger, s.rules, s.newDeck, s.logger)
}

// UserMessage converts an action error into a short message for the player
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientChips):
		return "Not enough chips"
	case errors.Is(err, ErrInvalidBet):
		return "Invalid bet amount"
	case errors.Is(err, ErrIllegalAction):
		return "That action is not available right now"
	case errors.Is(err, ErrInsufficientCards):
		return "The shoe ran out of cards, bet returned"
	default:
		return "Something went wrong"
	}
}
