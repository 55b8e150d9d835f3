package game

import (
	"testing"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerBlackjackPaysThreeToTwo(t *testing.T) {
	s := newTestSession(t, 1000, stacked("10S", "AH", "9D", "7C"))

	res := placeBet(t, s, 100)

	assert.Equal(t, Settled, res.State)
	require.NotNil(t, res.Summary)
	assert.Equal(t, OutcomePlayerBlackjack, res.Summary.Outcome)
	assert.Equal(t, 1150, s.Balance())
	assert.Equal(t, 150, res.Summary.Net)
}

func TestPlayerBustKeepsBetDebited(t *testing.T) {
	s := newTestSession(t, 1000, stacked("10S", "9H", "7C", "8D", "5D"))

	res := placeBet(t, s, 100)
	assert.Equal(t, PlayerTurn, res.State)

	res, err := s.Hit()
	require.NoError(t, err)
	assert.Equal(t, Settled, res.State)
	assert.Equal(t, OutcomePlayerBust, res.Summary.Outcome)
	assert.Equal(t, 24, res.Summary.PlayerPoints)
	assert.Equal(t, 900, s.Balance())
	assert.True(t, res.Summary.DealerRevealed)
}

func TestInsurancePaysWhenDealerHasBlackjack(t *testing.T) {
	s := newTestSession(t, 1000, stacked("10S", "9H", "AS", "KH"))

	res := placeBet(t, s, 100)
	assert.Equal(t, AwaitingInsuranceChoice, res.State)
	assert.Equal(t, 900, s.Balance())
	assert.ElementsMatch(t, []Action{ActionTakeInsurance, ActionDeclineInsurance}, s.View().LegalActions)

	res, err := s.ResolveInsurance(true)
	require.NoError(t, err)

	assert.Equal(t, Settled, res.State)
	assert.Equal(t, OutcomeDealerBlackjack, res.Summary.Outcome)
	assert.Equal(t, 50, res.Summary.Insurance)
	assert.Equal(t, 150, res.Summary.InsurancePayout)
	// 1000 - 100 bet - 50 insurance + 150 insurance payout + 0 main
	assert.Equal(t, 1000, s.Balance())
	assert.Equal(t, 0, res.Summary.Net)
}

func TestInsuranceCreditPrecedesMainSettlement(t *testing.T) {
	s := newTestSession(t, 1000, stacked("10S", "9H", "AS", "KH"))
	placeBet(t, s, 100)
	_, err := s.ResolveInsurance(true)
	require.NoError(t, err)

	entries := s.Log()
	insuranceAt, mainAt := -1, -1
	for i, e := range entries {
		switch e.Message {
		case "Insurance pays 2:1: 150":
			insuranceAt = i
		case "Dealer has Blackjack, dealer wins":
			mainAt = i
		}
	}
	require.NotEqual(t, -1, insuranceAt)
	require.NotEqual(t, -1, mainAt)
	assert.Less(t, insuranceAt, mainAt)
}

func TestInsuranceForfeitedWithoutDealerBlackjack(t *testing.T) {
	s := newTestSession(t, 1000, stacked("10S", "9H", "AS", "8C"))
	placeBet(t, s, 100)

	res, err := s.ResolveInsurance(true)
	require.NoError(t, err)
	assert.Equal(t, PlayerTurn, res.State)
	assert.Equal(t, 850, s.Balance())

	res, err = s.Stand()
	require.NoError(t, err)
	// dealer soft 19 stands, player 19 pushes
	assert.Equal(t, OutcomeDraw, res.Summary.Outcome)
	assert.Equal(t, 950, s.Balance())
	assert.Equal(t, -50, res.Summary.Net)
}

func TestInsuranceDeclined(t *testing.T) {
	s := newTestSession(t, 1000, stacked("10S", "9H", "AS", "KH"))
	placeBet(t, s, 100)

	res, err := s.ResolveInsurance(false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDealerBlackjack, res.Summary.Outcome)
	assert.Equal(t, 0, res.Summary.Insurance)
	assert.Equal(t, 900, s.Balance())
}

func TestInsuranceUnavailableWithoutChips(t *testing.T) {
	s := newTestSession(t, 100, stacked("10S", "9H", "AS", "8C"))

	res := placeBet(t, s, 100)
	assert.Equal(t, PlayerTurn, res.State, "no insurance offer when the wager cannot be covered")

	var declined bool
	for _, e := range s.Log() {
		if e.Message == "Insurance unavailable: insufficient chips, declined" {
			declined = true
		}
	}
	assert.True(t, declined)
}

func TestInsuranceUnavailableForSingleChipBet(t *testing.T) {
	s := NewSession(Options{
		StartingBalance: 10,
		Rules:           Rules{BetUnit: 1},
		NewDeck:         stacked("10S", "9H", "AS", "8C"),
		Clock:           quartz.NewMock(t),
		Logger:          testLogger(),
	})

	res := placeBet(t, s, 1)
	assert.Equal(t, PlayerTurn, res.State)

	var messages []string
	for _, e := range s.Log() {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "Insurance unavailable: bet too small, declined")
	assert.NotContains(t, messages, "Insurance unavailable: insufficient chips, declined")
}

func TestBothBlackjackPush(t *testing.T) {
	s := newTestSession(t, 1000, stacked("AS", "KH", "AD", "QC"))
	placeBet(t, s, 100)

	res, err := s.ResolveInsurance(false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBothBlackjack, res.Summary.Outcome)
	assert.Equal(t, 1000, s.Balance())
}

func TestPlayerBlackjackAgainstDealerAce(t *testing.T) {
	s := newTestSession(t, 1000, stacked("AS", "KH", "AD", "7C"))
	placeBet(t, s, 100)

	res, err := s.ResolveInsurance(false)
	require.NoError(t, err)
	assert.Equal(t, OutcomePlayerBlackjack, res.Summary.Outcome)
	assert.Equal(t, 1150, s.Balance())
}

func TestDealerBlackjackWithTenShowing(t *testing.T) {
	s := newTestSession(t, 1000, stacked("10S", "9H", "KD", "AC"))

	res := placeBet(t, s, 100)
	assert.Equal(t, Settled, res.State)
	assert.Equal(t, OutcomeDealerBlackjack, res.Summary.Outcome)
	assert.Equal(t, 900, s.Balance())
}

func TestDoubleDownWin(t *testing.T) {
	s := newTestSession(t, 500, stacked("5S", "6H", "10D", "7C", "10H"))
	placeBet(t, s, 100)
	assert.Contains(t, s.View().LegalActions, ActionDoubleDown)

	res, err := s.DoubleDown()
	require.NoError(t, err)

	assert.Equal(t, Settled, res.State)
	assert.Equal(t, OutcomePlayerWin, res.Summary.Outcome)
	assert.Equal(t, 200, res.Summary.Bet)
	assert.True(t, res.Summary.Doubled)
	assert.Len(t, res.Summary.PlayerCards, 3, "double down draws exactly one card")
	assert.Equal(t, 400, res.Summary.Payout)
	assert.Equal(t, 700, s.Balance())
}

func TestDoubleDownBust(t *testing.T) {
	s := newTestSession(t, 500, stacked("10S", "6H", "10D", "7C", "9H"))
	placeBet(t, s, 100)

	res, err := s.DoubleDown()
	require.NoError(t, err)
	assert.Equal(t, OutcomePlayerBust, res.Summary.Outcome)
	assert.Len(t, res.Summary.DealerCards, 2)
	assert.Equal(t, 300, s.Balance())
}

func TestDoubleDownInsufficientChips(t *testing.T) {
	s := newTestSession(t, 1000, stacked("5S", "6H", "10D", "7C", "10H"))
	placeBet(t, s, 600)
	assert.NotContains(t, s.View().LegalActions, ActionDoubleDown)

	_, err := s.DoubleDown()
	assert.ErrorIs(t, err, ErrInsufficientChips)
	assert.Equal(t, PlayerTurn, s.State())
	assert.Equal(t, 400, s.Balance())
	assert.Equal(t, 600, s.View().Bet)
}

func TestDoubleDownOnlyOnTwoCards(t *testing.T) {
	s := newTestSession(t, 1000, stacked("2S", "3H", "10D", "7C", "4H", "10H"))
	placeBet(t, s, 100)
	_, err := s.Hit()
	require.NoError(t, err)

	_, err = s.DoubleDown()
	assert.ErrorIs(t, err, ErrIllegalAction)
	_, err = s.Surrender()
	assert.ErrorIs(t, err, ErrIllegalAction)
	assert.Equal(t, 900, s.Balance())
}

func TestSurrender(t *testing.T) {
	s := newTestSession(t, 1000, stacked("10S", "6H", "9D", "8C"))
	placeBet(t, s, 100)

	res, err := s.Surrender()
	require.NoError(t, err)
	assert.Equal(t, OutcomeSurrender, res.Summary.Outcome)
	assert.Equal(t, 950, s.Balance())

	// the hole card stays hidden
	assert.False(t, res.Summary.DealerRevealed)
	dealer := s.View().Dealer
	require.Len(t, dealer.Cards, 2)
	assert.True(t, dealer.Cards[1].Hidden)
	assert.Empty(t, dealer.Cards[1].Rank)
	assert.Equal(t, 9, dealer.Points)
}

func TestDealerStandsOnSoft17(t *testing.T) {
	s := newTestSession(t, 1000, stacked("10S", "8H", "AS", "6H", "5C"))
	placeBet(t, s, 100)
	_, err := s.ResolveInsurance(false)
	require.NoError(t, err)

	res, err := s.Stand()
	require.NoError(t, err)
	assert.Len(t, res.Summary.DealerCards, 2)
	assert.Equal(t, 17, res.Summary.DealerPoints)
	assert.Equal(t, OutcomePlayerWin, res.Summary.Outcome)
}

func TestDealerDrawsBelow17(t *testing.T) {
	s := newTestSession(t, 1000, stacked("10S", "KH", "10D", "2C", "3H", "AD", "5S"))
	placeBet(t, s, 100)

	res, err := s.Stand()
	require.NoError(t, err)
	// 12 -> 15 -> 16 -> 21
	assert.Equal(t, 21, res.Summary.DealerPoints)
	assert.Len(t, res.Summary.DealerCards, 5)
	assert.Equal(t, OutcomeDealerWin, res.Summary.Outcome)
	assert.Equal(t, 900, s.Balance())
}

func TestDealerBusts(t *testing.T) {
	s := newTestSession(t, 1000, stacked("10S", "2H", "10D", "6C", "KH"))
	placeBet(t, s, 100)

	res, err := s.Stand()
	require.NoError(t, err)
	assert.Equal(t, OutcomeDealerBust, res.Summary.Outcome)
	assert.Equal(t, 1100, s.Balance())
}

func TestHitNotAllowedAt21(t *testing.T) {
	s := newTestSession(t, 1000, stacked("AS", "5H", "10D", "7C", "5D", "2C"))
	placeBet(t, s, 100)

	res, err := s.Hit()
	require.NoError(t, err)
	assert.Equal(t, PlayerTurn, res.State)
	assert.NotContains(t, s.View().LegalActions, ActionHit)

	_, err = s.Hit()
	assert.ErrorIs(t, err, ErrIllegalAction)

	res, err = s.Stand()
	require.NoError(t, err)
	assert.Equal(t, OutcomePlayerWin, res.Summary.Outcome)
}

func TestIllegalActionsLeaveStateUnchanged(t *testing.T) {
	s := newTestSession(t, 1000, stacked("10S", "9H", "7C", "8D", "5D"))

	for _, act := range []func() (Result, error){s.Hit, s.Stand, s.DoubleDown, s.Surrender} {
		res, err := act()
		assert.ErrorIs(t, err, ErrIllegalAction)
		assert.Equal(t, AwaitingBet, res.State)
		assert.NotEmpty(t, res.Message)
	}
	_, err := s.ResolveInsurance(true)
	assert.ErrorIs(t, err, ErrIllegalAction)
	assert.Equal(t, 1000, s.Balance())

	placeBet(t, s, 100)
	_, err = s.ResolveInsurance(true)
	assert.ErrorIs(t, err, ErrIllegalAction)

	_, err = s.Stand()
	require.NoError(t, err)
	balance := s.Balance()

	// settled rounds accept nothing but a new bet
	for _, act := range []func() (Result, error){s.Hit, s.Stand, s.DoubleDown, s.Surrender} {
		res, err := act()
		assert.ErrorIs(t, err, ErrIllegalAction)
		assert.Equal(t, Settled, res.State)
		assert.Nil(t, res.Summary)
	}
	assert.Equal(t, balance, s.Balance())
}

func TestRejectedBetDoesNotDebit(t *testing.T) {
	s := newTestSession(t, 1000, stacked("10S", "9H", "7C", "8D"))

	_, err := s.PlaceBet(1100)
	assert.ErrorIs(t, err, ErrInsufficientChips)

	_, err = s.PlaceBet(150)
	assert.ErrorIs(t, err, ErrInvalidBet)

	_, err = s.PlaceBet(0)
	assert.ErrorIs(t, err, ErrInvalidBet)

	_, err = s.PlaceBet(-100)
	assert.ErrorIs(t, err, ErrInvalidBet)

	assert.Equal(t, 1000, s.Balance())
	assert.Equal(t, AwaitingBet, s.State())
	assert.Equal(t, 0, s.View().Rounds)
}

func TestMaxBet(t *testing.T) {
	s := NewSession(Options{
		StartingBalance: 5000,
		Rules:           Rules{BetUnit: 10, MaxBet: 500},
		NewDeck:         stacked("10S", "9H", "7C", "8D"),
		Logger:          testLogger(),
	})

	_, err := s.PlaceBet(510)
	assert.ErrorIs(t, err, ErrInvalidBet)
	_, err = s.PlaceBet(500)
	assert.NoError(t, err)
}

func TestExhaustedDeckVoidsRound(t *testing.T) {
	s := newTestSession(t, 1000, stacked("10S", "5H", "9D", "7C"))
	placeBet(t, s, 100)

	res, err := s.Hit()
	assert.ErrorIs(t, err, ErrInsufficientCards)
	assert.Equal(t, Settled, res.State)
	require.NotNil(t, res.Summary)
	assert.Equal(t, OutcomeVoid, res.Summary.Outcome)
	assert.Equal(t, 1000, s.Balance())
}

func TestExhaustedDeckDuringDeal(t *testing.T) {
	s := newTestSession(t, 1000, stacked("10S", "5H", "9D"))

	res, err := s.PlaceBet(100)
	assert.ErrorIs(t, err, ErrInsufficientCards)
	assert.Equal(t, Settled, res.State)
	assert.Equal(t, OutcomeVoid, res.Summary.Outcome)
	assert.Equal(t, 1000, s.Balance())
}

func TestExhaustedDeckDuringDealerTurn(t *testing.T) {
	s := newTestSession(t, 1000, stacked("10S", "8H", "10D", "2C", "3H"))
	placeBet(t, s, 100)

	_, err := s.DoubleDown()
	assert.ErrorIs(t, err, ErrInsufficientCards)
	assert.Equal(t, Settled, s.State())
	// both halves of the doubled bet come back
	assert.Equal(t, 1000, s.Balance())
}

func TestLegalActions(t *testing.T) {
	s := newTestSession(t, 1000, stacked("10S", "6H", "9D", "8C", "2D"))
	assert.Equal(t, []Action{ActionBet}, s.View().LegalActions)

	placeBet(t, s, 100)
	assert.Equal(t, []Action{ActionHit, ActionStand, ActionDoubleDown, ActionSurrender}, s.View().LegalActions)

	_, err := s.Hit()
	require.NoError(t, err)
	assert.Equal(t, []Action{ActionHit, ActionStand}, s.View().LegalActions)

	_, err = s.Stand()
	require.NoError(t, err)
	assert.Equal(t, []Action{ActionBet, ActionNewRound}, s.View().LegalActions)
}
