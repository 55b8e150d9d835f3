package game

// CardView is a card as shown to the presentation layer. A hidden card
// carries neither rank nor suit.
type CardView struct {
	Rank   Rank   `json:"rank,omitempty"`
	Suit   Suit   `json:"suit,omitempty"`
	Label  string `json:"label,omitempty"`
	Hidden bool   `json:"hidden"`
}

// HandView is a hand as shown to the presentation layer. Points only count
// visible cards.
type HandView struct {
	Cards  []CardView `json:"cards"`
	Points int        `json:"points"`
}

// Snapshot is a read-only projection of a round at one point in time
type Snapshot struct {
	State     State    `json:"state"`
	Player    HandView `json:"player"`
	Dealer    HandView `json:"dealer"`
	Bet       int      `json:"bet"`
	Insurance int      `json:"insurance,omitempty"`
	Outcome   Outcome  `json:"outcome,omitempty"`
	Message   string   `json:"message,omitempty"`
}

func viewCard(c Card) CardView {
	return CardView{Rank: c.Rank, Suit: c.Suit, Label: c.String()}
}

func viewHand(h Hand) HandView {
	view := HandView{Cards: make([]CardView, len(h)), Points: h.Points()}
	for i, card := range h {
		view.Cards[i] = viewCard(card)
	}
	return view
}

// DealerView returns the dealer's hand with the hole card masked until revealed
func (r *Round) DealerView() HandView {
	if r.holeRevealed || len(r.dealer) < 2 {
		return viewHand(r.dealer)
	}

	view := HandView{Cards: make([]CardView, len(r.dealer))}
	visible := make(Hand, 0, len(r.dealer)-1)
	for i, card := range r.dealer {
		if i == 1 {
			view.Cards[i] = CardView{Hidden: true}
			continue
		}
		view.Cards[i] = viewCard(card)
		visible = append(visible, card)
	}
	view.Points = visible.Points()
	return view
}

// PlayerView returns the player's hand
func (r *Round) PlayerView() HandView {
	return viewHand(r.player)
}

// Snapshot projects the current round
func (r *Round) Snapshot() Snapshot {
	snap := Snapshot{
		State:     r.state,
		Player:    r.PlayerView(),
		Dealer:    r.DealerView(),
		Bet:       r.bet,
		Insurance: r.insurance,
	}
	if r.settlement != nil {
		snap.Outcome = r.settlement.Outcome
		snap.Message = r.settlement.Label
	}
	return snap
}
