package engine

import "fmt"

// suggest picks an action for the active seat of the active round.
func (g *Game) suggest() (Action, error) {
	r := g.ActiveRound()
	p := r.ActivePlayer()
	if p == nil {
		return nil, rejectf("no player is expected to act")
	}
	seat := r.seat(p.Identifier)

	switch r.Status() {
	case RoundBidding:
		return Bid{Identifier: p.Identifier, Amount: suggestBid(r, seat)}, nil
	case RoundTrumpSelection:
		suit, _ := bestSuit(p.Hand)
		return SelectTrump{Identifier: p.Identifier, Suit: suit}, nil
	case RoundDiscard:
		return Discard{Identifier: p.Identifier, Cards: suggestDiscard(p.Hand, r.Trump, r.DeckSize())}, nil
	case RoundTricks:
		return Play{Identifier: p.Identifier, Card: suggestPlay(p.Hand, r.currentTrick(), r.Trump)}, nil
	}
	return nil, rejectf(fmt.Sprintf("no suggestion in round status %s", r.Status()))
}

// bestSuit returns the suit that would make the strongest trump for hand and
// its value.
func bestSuit(hand []Card) (Suit, int) {
	best, bestValue := SelectableSuits[0], -1
	for _, s := range SelectableSuits {
		value := 0
		for _, c := range hand {
			if !c.IsTrump(s) {
				continue
			}
			value += 5
			if trumpRank(c, s) >= 94 {
				value += 5
			}
		}
		if value > bestValue {
			best, bestValue = s, value
		}
	}
	return best, bestValue
}

func suggestBid(r *Round, seat int) BidAmount {
	_, value := bestSuit(r.Players[seat].Hand)
	target := Pass
	switch {
	case value >= 35:
		target = Thirty
	case value >= 30:
		target = TwentyFive
	case value >= 25:
		target = Twenty
	case value >= 20:
		target = Fifteen
	}

	floor := r.minimumBid(seat)
	if target != Pass && target >= floor {
		return floor
	}
	if seat == r.dealer && r.highBid == Pass {
		return Fifteen
	}
	return Pass
}

func suggestDiscard(hand []Card, trump Suit, deckSize int) []Card {
	var out []Card
	for _, c := range hand {
		if len(out) == deckSize {
			break
		}
		if !c.IsTrump(trump) {
			out = append(out, c)
		}
	}
	return out
}

func suggestPlay(hand []Card, t *Trick, trump Suit) Card {
	legal := legalPlays(hand, t, trump)
	w, ok := t.WinningPlay(trump)
	if !ok {
		return strongest(legal, trump)
	}

	var winners []Card
	for _, c := range legal {
		if beats(c, w.Card, t.Plays[0].Card.Suit, trump) {
			winners = append(winners, c)
		}
	}
	if len(winners) > 0 {
		return weakest(winners, trump)
	}
	return weakest(legal, trump)
}

func strongest(cards []Card, trump Suit) Card {
	best := cards[0]
	for _, c := range cards[1:] {
		if strength(c, trump) > strength(best, trump) {
			best = c
		}
	}
	return best
}

func weakest(cards []Card, trump Suit) Card {
	low := cards[0]
	for _, c := range cards[1:] {
		if strength(c, trump) < strength(low, trump) {
			low = c
		}
	}
	return low
}
