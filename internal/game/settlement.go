package game

import "fmt"

// Outcome is the terminal condition of a round
type Outcome string

const (
	OutcomeNone            Outcome = ""
	OutcomePlayerBlackjack Outcome = "playerBlackjack"
	OutcomeDealerBlackjack Outcome = "dealerBlackjack"
	OutcomeBothBlackjack   Outcome = "bothBlackjack"
	OutcomePlayerBust      Outcome = "playerBust"
	OutcomeDealerBust      Outcome = "dealerBust"
	OutcomePlayerWin       Outcome = "playerWin"
	OutcomeDealerWin       Outcome = "dealerWin"
	OutcomeDraw            Outcome = "draw"
	OutcomeSurrender       Outcome = "surrender"

	// OutcomeVoid ends a round the shoe could not finish; the bet is refunded
	OutcomeVoid Outcome = "void"
)

// Settlement is the result of settling the main bet
type Settlement struct {
	Outcome Outcome `json:"outcome"`
	Bet     int     `json:"bet"`
	// Payout is credited to the balance; the bet was debited when placed
	Payout int    `json:"payout"`
	Label  string `json:"label"`
}

// Net returns the chip change of the main bet over the whole round
func (s Settlement) Net() int {
	return s.Payout - s.Bet
}

// IsWin reports whether the player came out ahead on the main bet
func (s Settlement) IsWin() bool {
	return s.Net() > 0
}

// Settle maps a terminal outcome and the bet to the amount returned to the player.
// Fractional payouts round down.
func Settle(outcome Outcome, bet int) (Settlement, error) {
	s := Settlement{Outcome: outcome, Bet: bet}

	switch outcome {
	case OutcomeBothBlackjack:
		s.Payout = bet
		s.Label = "Both have Blackjack, push"
	case OutcomePlayerBlackjack:
		s.Payout = bet * 5 / 2
		s.Label = "Blackjack! Player wins 3:2"
	case OutcomeDealerBlackjack:
		s.Label = "Dealer has Blackjack, dealer wins"
	case OutcomePlayerBust:
		s.Label = "Player busts! Dealer wins"
	case OutcomeDealerBust:
		s.Payout = bet * 2
		s.Label = "Dealer busts! Player wins"
	case OutcomePlayerWin:
		s.Payout = bet * 2
		s.Label = "Player wins!"
	case OutcomeDealerWin:
		s.Label = "Dealer wins!"
	case OutcomeDraw:
		s.Payout = bet
		s.Label = "Push"
	case OutcomeSurrender:
		s.Payout = bet / 2
		s.Label = "Player surrenders, half the bet returned"
	case OutcomeVoid:
		s.Payout = bet
		s.Label = "Round void, bet returned"
	default:
		return Settlement{}, fmt.Errorf("settle %q: %w", outcome, ErrUnknownOutcome)
	}

	return s, nil
}

// Compare determines the outcome of two completed hands once the dealer has
// finished drawing. Naturals are settled before this point.
func Compare(player, dealer Hand) Outcome {
	playerPoints := player.Points()
	dealerPoints := dealer.Points()

	switch {
	case playerPoints > BlackjackPoints:
		return OutcomePlayerBust
	case dealerPoints > BlackjackPoints:
		return OutcomeDealerBust
	case playerPoints > dealerPoints:
		return OutcomePlayerWin
	case playerPoints < dealerPoints:
		return OutcomeDealerWin
	default:
		return OutcomeDraw
	}
}

// NaturalOutcome checks both opening hands for Blackjack.
// It returns OutcomeNone when neither hand is a natural.
func NaturalOutcome(player, dealer Hand) Outcome {
	switch playerBJ, dealerBJ := player.IsBlackjack(), dealer.IsBlackjack(); {
	case playerBJ && dealerBJ:
		return OutcomeBothBlackjack
	case playerBJ:
		return OutcomePlayerBlackjack
	case dealerBJ:
		return OutcomeDealerBlackjack
	default:
		return OutcomeNone
	}
}

// InsuranceWager returns the side wager offered against a dealer Ace
func InsuranceWager(bet int) int {
	return bet / 2
}

// InsurancePayout returns the amount credited for an insurance wager: the
// wager back plus 2:1 when the dealer holds Blackjack, nothing otherwise.
func InsurancePayout(wager int, dealerBlackjack bool) int {
	if !dealerBlackjack {
		return 0
	}
	return wager * 3
}
