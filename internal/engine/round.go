package engine

import "math/rand/v2"

// RoundStatus is the phase a round is in.
type RoundStatus string

const (
	RoundBidding            RoundStatus = "BIDDING"
	RoundTrumpSelection     RoundStatus = "TRUMP_SELECTION"
	RoundDiscard            RoundStatus = "DISCARD"
	RoundTricks             RoundStatus = "TRICKS"
	RoundCompleted          RoundStatus = "COMPLETED"
	RoundCompletedNoBidders RoundStatus = "COMPLETED_NO_BIDDERS"
)

// HandSize is the number of cards dealt to each player and the number of
// tricks in a round.
const HandSize = 5

// RoundPlayer is a seat within a single round.
type RoundPlayer struct {
	Identifier string
	Automate   bool
	Hand       []Card
	Prepassed  bool
}

// Trick is one card from each player.
type Trick struct {
	Plays    []Play
	Bleeding bool
}

// WinningPlay returns the play currently taking the trick.
func (t *Trick) WinningPlay(trump Suit) (Play, bool) {
	if len(t.Plays) == 0 {
		return Play{}, false
	}
	best := t.Plays[0]
	led := best.Card.Suit
	for _, p := range t.Plays[1:] {
		if beats(p.Card, best.Card, led, trump) {
			best = p
		}
	}
	return best, true
}

func beats(c, best Card, led, trump Suit) bool {
	ct, bt := c.IsTrump(trump), best.IsTrump(trump)
	switch {
	case ct && !bt:
		return true
	case !ct && bt:
		return false
	case ct && bt:
		return trumpRank(c, trump) > trumpRank(best, trump)
	}
	if c.Suit != led {
		return false
	}
	if best.Suit != led {
		return true
	}
	return offsuitRank(c) > offsuitRank(best)
}

// Round is a single deal: bidding, trump selection, discard and five tricks.
type Round struct {
	Players  []*RoundPlayer
	Bids     []Bid
	Trump    Suit
	Discards []Discard
	Tricks   []*Trick

	dealer  int
	active  int
	bidder  int
	highBid BidAmount
	out     []bool
	deck    []Card
	status  RoundStatus
	emit    func(Event)
}

func newRound(players []Player, dealer int, rng *rand.Rand, emit func(Event)) *Round {
	n := len(players)
	r := &Round{
		Players: make([]*RoundPlayer, n),
		dealer:  dealer,
		bidder:  -1,
		out:     make([]bool, n),
		status:  RoundBidding,
		emit:    emit,
	}
	for i, p := range players {
		r.Players[i] = &RoundPlayer{Identifier: p.Identifier, Automate: p.Automate}
	}

	deck := newDeck(rng)
	hands := make(map[string][]Card, n)
	for i := 0; i < n; i++ {
		seat := (dealer + 1 + i) % n
		hand := append([]Card(nil), deck[:HandSize]...)
		deck = deck[HandSize:]
		r.Players[seat].Hand = hand
		hands[r.Players[seat].Identifier] = append([]Card(nil), hand...)
	}
	r.deck = deck

	emit(RoundStart{Dealer: players[dealer].Identifier, Hands: hands})
	r.active = r.next(dealer)
	return r
}

// Status returns the phase of the round.
func (r *Round) Status() RoundStatus {
	return r.status
}

// Completed reports whether the round needs no further actions.
func (r *Round) Completed() bool {
	return r.status == RoundCompleted || r.status == RoundCompletedNoBidders
}

// Dealer returns the dealing seat.
func (r *Round) Dealer() *RoundPlayer {
	return r.Players[r.dealer]
}

// Bidder returns the seat holding the highest bid, if any.
func (r *Round) Bidder() *RoundPlayer {
	if r.bidder < 0 {
		return nil
	}
	return r.Players[r.bidder]
}

// HighBid returns the highest bid so far.
func (r *Round) HighBid() BidAmount {
	return r.highBid
}

// ActivePlayer returns the seat expected to act, or nil once completed.
func (r *Round) ActivePlayer() *RoundPlayer {
	if r.Completed() {
		return nil
	}
	return r.Players[r.active]
}

// Player returns the seat for identifier.
func (r *Round) Player(identifier string) *RoundPlayer {
	if s := r.seat(identifier); s >= 0 {
		return r.Players[s]
	}
	return nil
}

// DeckSize is the number of undealt cards.
func (r *Round) DeckSize() int {
	return len(r.deck)
}

func (r *Round) next(seat int) int {
	return (seat + 1) % len(r.Players)
}

func (r *Round) seat(identifier string) int {
	for i, p := range r.Players {
		if p.Identifier == identifier {
			return i
		}
	}
	return -1
}

func (r *Round) currentTrick() *Trick {
	if len(r.Tricks) == 0 {
		return nil
	}
	return r.Tricks[len(r.Tricks)-1]
}

// minimumBid is the smallest non-pass bid seat may make. The dealer may
// take the current bid by matching it.
func (r *Round) minimumBid(seat int) BidAmount {
	if seat == r.dealer && r.highBid > Pass {
		return r.highBid
	}
	for _, a := range BidAmounts {
		if a > r.highBid {
			return a
		}
	}
	return ShootTheMoon + 1
}

func (r *Round) bid(b Bid) error {
	if r.status != RoundBidding {
		return rejectf("bids are only allowed during bidding")
	}
	seat := r.seat(b.Identifier)
	if seat < 0 {
		return rejectf("unknown player " + b.Identifier)
	}
	if !b.Amount.Valid() {
		return rejectf("invalid bid amount")
	}

	p := r.Players[seat]
	if seat != r.active {
		// Passing out of turn queues the pass for when the turn arrives.
		if b.Amount != Pass || r.out[seat] || p.Prepassed {
			return rejectf("it is not your turn")
		}
		p.Prepassed = true
		return nil
	}
	if b.Amount != Pass && b.Amount < r.minimumBid(seat) {
		return rejectf("bid must be higher than the current bid")
	}

	r.recordBid(b, seat)
	r.advanceBidding()
	return nil
}

func (r *Round) recordBid(b Bid, seat int) {
	r.Bids = append(r.Bids, b)
	r.emit(b)
	if b.Amount == Pass {
		r.out[seat] = true
		return
	}
	r.highBid = b.Amount
	r.bidder = seat
}

func (r *Round) advanceBidding() {
	for {
		remaining, last := 0, -1
		for i, o := range r.out {
			if !o {
				remaining++
				last = i
			}
		}
		if remaining == 0 {
			r.status = RoundCompletedNoBidders
			return
		}
		if remaining == 1 && last == r.bidder {
			r.status = RoundTrumpSelection
			r.active = r.bidder
			return
		}

		next := r.next(r.active)
		for r.out[next] {
			next = r.next(next)
		}
		r.active = next

		p := r.Players[next]
		if !p.Prepassed {
			return
		}
		r.recordBid(Bid{Identifier: p.Identifier, Amount: Pass}, next)
	}
}

func (r *Round) unpass(u Unpass) error {
	if r.status != RoundBidding {
		return rejectf("unpassing is only allowed during bidding")
	}
	seat := r.seat(u.Identifier)
	if seat < 0 {
		return rejectf("unknown player " + u.Identifier)
	}
	p := r.Players[seat]
	if !p.Prepassed {
		return rejectf("you have not passed")
	}
	if r.out[seat] {
		return rejectf("your pass has already been applied")
	}
	p.Prepassed = false
	return nil
}

func (r *Round) selectTrump(s SelectTrump) error {
	if r.status != RoundTrumpSelection {
		return rejectf("trump can only be selected after bidding")
	}
	if r.seat(s.Identifier) != r.bidder {
		return rejectf("only the bidder can select trump")
	}
	if !s.Suit.Selectable() {
		return rejectf("invalid trump suit")
	}

	r.Trump = s.Suit
	r.emit(s)
	r.status = RoundDiscard
	r.active = r.next(r.bidder)
	return nil
}

func (r *Round) discard(d Discard) error {
	if r.status != RoundDiscard {
		return rejectf("discarding is only allowed after trump selection")
	}
	seat := r.seat(d.Identifier)
	if seat != r.active {
		return rejectf("it is not your turn")
	}
	p := r.Players[seat]
	for i, c := range d.Cards {
		if containsCard(p.Hand, c) == -1 {
			return rejectf("you can only discard cards in your hand")
		}
		if containsCard(d.Cards[:i], c) != -1 {
			return rejectf("cannot discard the same card twice")
		}
	}
	if len(d.Cards) > len(r.deck) {
		return rejectf("not enough cards left in the deck")
	}

	discarded := append([]Card(nil), d.Cards...)
	hand := removeCards(p.Hand, discarded)
	hand = append(hand, r.deck[:len(discarded)]...)
	r.deck = r.deck[len(discarded):]
	p.Hand = hand

	rec := Discard{Identifier: d.Identifier, Cards: discarded}
	r.Discards = append(r.Discards, rec)
	r.emit(rec)

	if seat == r.bidder {
		r.status = RoundTricks
		r.startTrick(r.next(r.bidder))
		return nil
	}
	r.active = r.next(seat)
	return nil
}

func (r *Round) startTrick(leader int) {
	r.Tricks = append(r.Tricks, &Trick{})
	r.emit(TrickStart{})
	r.active = leader
}

// legalPlays returns the cards in hand that may be played to trick. When
// trump is led, trump must be played if held; otherwise the led suit or
// trump must be played if held.
func legalPlays(hand []Card, t *Trick, trump Suit) []Card {
	if t == nil || len(t.Plays) == 0 {
		return append([]Card(nil), hand...)
	}
	lead := t.Plays[0].Card
	var follow []Card
	for _, c := range hand {
		if c.IsTrump(trump) || (!lead.IsTrump(trump) && c.Suit == lead.Suit) {
			follow = append(follow, c)
		}
	}
	if len(follow) == 0 {
		return append([]Card(nil), hand...)
	}
	return follow
}

func (r *Round) play(pl Play) error {
	if r.status != RoundTricks {
		return rejectf("cards can only be played during tricks")
	}
	seat := r.seat(pl.Identifier)
	if seat != r.active {
		return rejectf("it is not your turn")
	}
	p := r.Players[seat]
	if containsCard(p.Hand, pl.Card) == -1 {
		return rejectf("you can only play cards in your hand")
	}
	t := r.currentTrick()
	if containsCard(legalPlays(p.Hand, t, r.Trump), pl.Card) == -1 {
		return rejectf("you must follow suit or play trump")
	}

	p.Hand = removeCards(p.Hand, []Card{pl.Card})
	if len(t.Plays) == 0 && pl.Card.IsTrump(r.Trump) {
		t.Bleeding = true
	}
	t.Plays = append(t.Plays, pl)
	r.emit(pl)

	if len(t.Plays) < len(r.Players) {
		r.active = r.next(seat)
		return nil
	}

	win, _ := t.WinningPlay(r.Trump)
	r.emit(TrickEnd{Winner: win.Identifier})
	if len(r.Tricks) == HandSize {
		r.status = RoundCompleted
		return nil
	}
	r.startTrick(r.seat(win.Identifier))
	return nil
}

// score returns the change in score for every seat at the end of a completed
// round: five per trick plus five for the best card, with the bidder losing
// the bid when short of it.
func (r *Round) score() []Score {
	n := len(r.Players)
	points := make([]int, n)
	won := make([]int, n)

	var best Play
	found := false
	for _, t := range r.Tricks {
		w, ok := t.WinningPlay(r.Trump)
		if !ok {
			continue
		}
		s := r.seat(w.Identifier)
		points[s] += 5
		won[s]++
		if !found || strength(w.Card, r.Trump) > strength(best.Card, r.Trump) {
			best, found = w, true
		}
	}
	if found {
		points[r.seat(best.Identifier)] += 5
	}

	scores := make([]Score, n)
	for i, p := range r.Players {
		v := points[i]
		if i == r.bidder {
			switch {
			case r.highBid == ShootTheMoon && won[i] == HandSize:
				v = int(ShootTheMoon)
			case r.highBid == ShootTheMoon:
				v = -int(ShootTheMoon)
			case v < int(r.highBid):
				v = -int(r.highBid)
			}
		}
		scores[i] = Score{Identifier: p.Identifier, Value: v}
	}
	return scores
}
