package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlePayoutTable(t *testing.T) {
	tests := []struct {
		outcome Outcome
		payout  int
	}{
		{OutcomeBothBlackjack, 100},
		{OutcomePlayerBlackjack, 250},
		{OutcomeDealerBlackjack, 0},
		{OutcomePlayerBust, 0},
		{OutcomeDealerBust, 200},
		{OutcomePlayerWin, 200},
		{OutcomeDealerWin, 0},
		{OutcomeDraw, 100},
		{OutcomeSurrender, 50},
		{OutcomeVoid, 100},
	}

	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			s, err := Settle(tt.outcome, 100)
			require.NoError(t, err)
			assert.Equal(t, tt.payout, s.Payout)
			assert.Equal(t, tt.payout-100, s.Net())
			assert.NotEmpty(t, s.Label)
		})
	}
}

func TestSettleRoundsDown(t *testing.T) {
	s, err := Settle(OutcomePlayerBlackjack, 15)
	require.NoError(t, err)
	assert.Equal(t, 37, s.Payout)

	s, err = Settle(OutcomeSurrender, 15)
	require.NoError(t, err)
	assert.Equal(t, 7, s.Payout)
}

func TestSettleUnknownOutcome(t *testing.T) {
	_, err := Settle(Outcome("jackpot"), 100)
	assert.ErrorIs(t, err, ErrUnknownOutcome)

	_, err = Settle(OutcomeNone, 100)
	assert.ErrorIs(t, err, ErrUnknownOutcome)
}

func TestCompare(t *testing.T) {
	assert.Equal(t, OutcomePlayerBust, Compare(hand("10S", "9H", "5D"), hand("10D", "7C")))
	assert.Equal(t, OutcomeDealerBust, Compare(hand("10S", "8H"), hand("10D", "6C", "9H")))
	assert.Equal(t, OutcomePlayerWin, Compare(hand("10S", "9H"), hand("10D", "8C")))
	assert.Equal(t, OutcomeDealerWin, Compare(hand("10S", "7H"), hand("10D", "8C")))
	assert.Equal(t, OutcomeDraw, Compare(hand("10S", "8H"), hand("10D", "8C")))
	// three card 21 against two card 21 is a push once naturals are settled
	assert.Equal(t, OutcomeDraw, Compare(hand("7S", "7H", "7D"), hand("10D", "6C", "5H")))
}

func TestNaturalOutcome(t *testing.T) {
	assert.Equal(t, OutcomeBothBlackjack, NaturalOutcome(hand("AS", "KH"), hand("AD", "QC")))
	assert.Equal(t, OutcomePlayerBlackjack, NaturalOutcome(hand("AS", "KH"), hand("9D", "7C")))
	assert.Equal(t, OutcomeDealerBlackjack, NaturalOutcome(hand("10S", "9H"), hand("KD", "AC")))
	assert.Equal(t, OutcomeNone, NaturalOutcome(hand("10S", "9H"), hand("KD", "9C")))
}

func TestInsurance(t *testing.T) {
	assert.Equal(t, 50, InsuranceWager(100))
	assert.Equal(t, 150, InsurancePayout(50, true))
	assert.Equal(t, 0, InsurancePayout(50, false))
}
