package game

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

type State string

const (
	AwaitingBet             State = "awaitingBet"
	Dealing                 State = "dealing"
	AwaitingInsuranceChoice State = "awaitingInsuranceChoice"
	PlayerTurn              State = "playerTurn"
	DealerTurn              State = "dealerTurn"
	Settled                 State = "settled"
)

type Action string

const (
	ActionBet              Action = "bet"
	ActionHit              Action = "hit"
	ActionStand            Action = "stand"
	ActionDoubleDown       Action = "double"
	ActionSurrender        Action = "surrender"
	ActionTakeInsurance    Action = "takeInsurance"
	ActionDeclineInsurance Action = "declineInsurance"
	ActionNewRound         Action = "newRound"
)

// Wallet is the chip balance a round draws its wagers from
type Wallet interface {
	Balance() int
	Debit(amount int, reason string) error
	Credit(amount int, reason string)
	Record(message string)
}

// Rules are the table limits applied to a bet
type Rules struct {
	// BetUnit is both the minimum bet and the bet step
	BetUnit int `json:"betUnit"`
	// MaxBet caps a single bet; zero means no cap
	MaxBet int `json:"maxBet"`
}

// DefaultRules returns the standard table limits
func DefaultRules() Rules {
	return Rules{BetUnit: 100}
}

// ValidateBet checks an amount against the table limits
func (r Rules) ValidateBet(amount int) error {
	unit := r.BetUnit
	if unit <= 0 {
		unit = 1
	}
	if amount <= 0 || amount%unit != 0 {
		return fmt.Errorf("bet %d must be a positive multiple of %d: %w", amount, unit, ErrInvalidBet)
	}
	if r.MaxBet > 0 && amount > r.MaxBet {
		return fmt.Errorf("bet %d exceeds table maximum %d: %w", amount, r.MaxBet, ErrInvalidBet)
	}
	return nil
}

// DeckFactory produces the fresh shuffled shoe for a round
type DeckFactory func() *Deck

// Round is the state machine for a single hand of Blackjack, from the bet
// to settlement. A Round is not safe for concurrent use; Session serialises access.
type Round struct {
	ID string

	state   State
	rules   Rules
	wallet  Wallet
	newDeck DeckFactory
	logger  *log.Logger

	deck         *Deck
	player       Hand
	dealer       Hand
	bet          int
	insurance    int
	holeRevealed bool
	doubled      bool

	insurancePayout int
	settlement      *Settlement
	snapshots       []Snapshot
}

// NewRound creates a round waiting for a bet
func NewRound(wallet Wallet, rules Rules, newDeck DeckFactory, logger *log.Logger) *Round {
	id := uuid.New().String()
	return &Round{
		ID:      id,
		state:   AwaitingBet,
		rules:   rules,
		wallet:  wallet,
		newDeck: newDeck,
		logger:  logger.With("round", id[:8]),
	}
}

// State returns the current round state
func (r *Round) State() State {
	return r.state
}

// Bet returns the main bet, including any double-down
func (r *Round) Bet() int {
	return r.bet
}

// Insurance returns the insurance wager taken this round
func (r *Round) Insurance() int {
	return r.insurance
}

// InsurancePayout returns the amount credited by the insurance wager
func (r *Round) InsurancePayout() int {
	return r.insurancePayout
}

// Doubled reports whether the player doubled down
func (r *Round) Doubled() bool {
	return r.doubled
}

// PlayerHand returns a copy of the player's cards
func (r *Round) PlayerHand() Hand {
	return append(Hand(nil), r.player...)
}

// DealerHand returns a copy of the dealer's cards, hole card included
func (r *Round) DealerHand() Hand {
	return append(Hand(nil), r.dealer...)
}

// HoleRevealed reports whether the dealer's second card is face up
func (r *Round) HoleRevealed() bool {
	return r.holeRevealed
}

// Settlement returns the main bet settlement once the round is settled
func (r *Round) Settlement() (Settlement, bool) {
	if r.settlement == nil {
		return Settlement{}, false
	}
	return *r.settlement, true
}

// LegalActions returns the actions accepted in the current state
func (r *Round) LegalActions() []Action {
	switch r.state {
	case AwaitingBet:
		return []Action{ActionBet}
	case AwaitingInsuranceChoice:
		return []Action{ActionTakeInsurance, ActionDeclineInsurance}
	case PlayerTurn:
		actions := make([]Action, 0, 4)
		if r.player.Points() < BlackjackPoints {
			actions = append(actions, ActionHit)
		}
		actions = append(actions, ActionStand)
		if len(r.player) == 2 {
			if r.wallet.Balance() >= r.bet {
				actions = append(actions, ActionDoubleDown)
			}
			actions = append(actions, ActionSurrender)
		}
		return actions
	case Settled:
		return []Action{ActionBet, ActionNewRound}
	default:
		return []Action{}
	}
}

// DrainSnapshots returns the snapshots recorded since the last call
func (r *Round) DrainSnapshots() []Snapshot {
	snapshots := r.snapshots
	r.snapshots = nil
	return snapshots
}

// PlaceBet debits the bet, shuffles a fresh shoe and deals two cards each to
// the player and the dealer.
func (r *Round) PlaceBet(amount int) error {
	if r.state != AwaitingBet {
		return r.illegal(ActionBet)
	}
	if err := r.rules.ValidateBet(amount); err != nil {
		return err
	}
	if err := r.wallet.Debit(amount, fmt.Sprintf("Bet placed: %d", amount)); err != nil {
		return err
	}

	r.bet = amount
	r.deck = r.newDeck()
	r.state = Dealing
	r.logger.Info("bet placed", "bet", amount, "balance", r.wallet.Balance())

	// player, player, dealer, dealer
	for _, toPlayer := range []bool{true, true, false, false} {
		card, err := r.draw()
		if err != nil {
			return err
		}
		if toPlayer {
			r.player = r.player.Add(card)
		} else {
			r.dealer = r.dealer.Add(card)
		}
		r.snapshot()
	}

	r.wallet.Record(fmt.Sprintf("Dealt player %s (%d), dealer shows %s",
		r.player, r.player.Points(), r.dealer[0]))

	return r.afterDeal()
}

// ResolveInsurance applies the player's insurance decision and continues the deal
func (r *Round) ResolveInsurance(take bool) error {
	if r.state != AwaitingInsuranceChoice {
		return r.illegal(ActionTakeInsurance)
	}

	if take {
		wager := InsuranceWager(r.bet)
		if err := r.wallet.Debit(wager, fmt.Sprintf("Insurance taken: %d", wager)); err != nil {
			return err
		}
		r.insurance = wager
	} else {
		r.wallet.Record("Insurance declined")
	}

	r.settleInsurance()
	return r.checkNaturals()
}

// Hit draws one card for the player
func (r *Round) Hit() error {
	if r.state != PlayerTurn || r.player.Points() >= BlackjackPoints {
		return r.illegal(ActionHit)
	}

	card, err := r.draw()
	if err != nil {
		return err
	}
	r.player = r.player.Add(card)
	r.wallet.Record(fmt.Sprintf("Player hits %s (%d)", card, r.player.Points()))

	if r.player.IsBust() {
		r.revealHole()
		return r.settle(OutcomePlayerBust)
	}
	r.snapshot()
	return nil
}

// Stand ends the player's turn and plays out the dealer's hand
func (r *Round) Stand() error {
	if r.state != PlayerTurn {
		return r.illegal(ActionStand)
	}

	r.wallet.Record(fmt.Sprintf("Player stands on %d", r.player.Points()))
	return r.playDealer()
}

// DoubleDown doubles the bet, draws exactly one card and stands
func (r *Round) DoubleDown() error {
	if r.state != PlayerTurn || len(r.player) != 2 {
		return r.illegal(ActionDoubleDown)
	}
	if err := r.wallet.Debit(r.bet, fmt.Sprintf("Double down: %d", r.bet)); err != nil {
		return err
	}

	r.bet *= 2
	r.doubled = true

	card, err := r.draw()
	if err != nil {
		return err
	}
	r.player = r.player.Add(card)
	r.wallet.Record(fmt.Sprintf("Player doubles to %d and draws %s (%d)", r.bet, card, r.player.Points()))

	if r.player.IsBust() {
		r.revealHole()
		return r.settle(OutcomePlayerBust)
	}
	r.snapshot()
	return r.playDealer()
}

// Surrender forfeits the hand for half the bet. The hole card stays hidden.
func (r *Round) Surrender() error {
	if r.state != PlayerTurn || len(r.player) != 2 {
		return r.illegal(ActionSurrender)
	}
	return r.settle(OutcomeSurrender)
}

func (r *Round) afterDeal() error {
	if r.dealer[0].IsAce() {
		wager := InsuranceWager(r.bet)
		switch {
		case wager == 0:
			r.wallet.Record("Insurance unavailable: bet too small, declined")
		case r.wallet.Balance() < wager:
			r.wallet.Record("Insurance unavailable: insufficient chips, declined")
		default:
			r.state = AwaitingInsuranceChoice
			r.snapshot()
			return nil
		}
	}
	return r.checkNaturals()
}

func (r *Round) settleInsurance() {
	dealerBJ := r.dealer.IsBlackjack()
	if r.insurance == 0 {
		return
	}

	r.insurancePayout = InsurancePayout(r.insurance, dealerBJ)
	if dealerBJ {
		r.wallet.Credit(r.insurancePayout, fmt.Sprintf("Insurance pays 2:1: %d", r.insurancePayout))
	} else {
		r.wallet.Record(fmt.Sprintf("Insurance lost: %d", r.insurance))
	}
}

func (r *Round) checkNaturals() error {
	if outcome := NaturalOutcome(r.player, r.dealer); outcome != OutcomeNone {
		r.revealHole()
		return r.settle(outcome)
	}

	r.state = PlayerTurn
	r.snapshot()
	return nil
}

func (r *Round) playDealer() error {
	r.state = DealerTurn
	r.revealHole()
	r.snapshot()

	for r.dealer.Points() < DealerStandPoints {
		card, err := r.draw()
		if err != nil {
			return err
		}
		r.dealer = r.dealer.Add(card)
		r.wallet.Record(fmt.Sprintf("Dealer draws %s (%d)", card, r.dealer.Points()))
		r.snapshot()
	}

	return r.settle(Compare(r.player, r.dealer))
}

func (r *Round) revealHole() {
	if r.holeRevealed || len(r.dealer) < 2 {
		return
	}
	r.holeRevealed = true
	r.wallet.Record(fmt.Sprintf("Dealer reveals %s (%d)", r.dealer, r.dealer.Points()))
}

// draw takes the next card. An exhausted shoe voids the round.
func (r *Round) draw() (Card, error) {
	card, err := r.deck.DrawCard()
	if err == nil {
		return card, nil
	}

	r.logger.Error("deck exhausted, voiding round", "err", err)
	if settleErr := r.settle(OutcomeVoid); settleErr != nil {
		return Card{}, errors.Join(err, settleErr)
	}
	return Card{}, err
}

// settle runs exactly once per round
func (r *Round) settle(outcome Outcome) error {
	if r.settlement != nil {
		return fmt.Errorf("round already settled as %s: %w", r.settlement.Outcome, ErrIllegalAction)
	}

	s, err := Settle(outcome, r.bet)
	if err != nil {
		return err
	}

	r.settlement = &s
	r.state = Settled
	if s.Payout > 0 {
		r.wallet.Credit(s.Payout, s.Label)
	} else {
		r.wallet.Record(s.Label)
	}
	r.logger.Info("round settled", "outcome", outcome, "bet", r.bet, "payout", s.Payout,
		"player", r.player.Points(), "dealer", r.dealer.Points(), "balance", r.wallet.Balance())
	r.snapshot()
	return nil
}

func (r *Round) illegal(action Action) error {
	return fmt.Errorf("%s during %s: %w", action, r.state, ErrIllegalAction)
}

func (r *Round) snapshot() {
	r.snapshots = append(r.snapshots, r.Snapshot())
}
