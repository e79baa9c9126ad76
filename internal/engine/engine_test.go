package engine

import (
	"errors"
	"reflect"
	"testing"
)

func seats(ids ...string) []Player {
	out := make([]Player, len(ids))
	for i, id := range ids {
		out[i] = Player{Identifier: id}
	}
	return out
}

func mustNew(t *testing.T, players []Player, seed string, moves ...Action) *Game {
	t.Helper()
	g, err := New(players, seed, moves)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestNewDealsDeterministically(t *testing.T) {
	a := mustNew(t, seats("1", "2", "3", "4"), "seed")
	b := mustNew(t, seats("1", "2", "3", "4"), "seed")

	if !reflect.DeepEqual(a.Events(), b.Events()) {
		t.Fatalf("same seed produced different deals")
	}
	start, ok := a.Events()[1].(RoundStart)
	if !ok {
		t.Fatalf("second event = %T, want RoundStart", a.Events()[1])
	}
	if start.Dealer != "1" {
		t.Errorf("dealer = %q, want 1", start.Dealer)
	}
	for id, hand := range start.Hands {
		if len(hand) != HandSize {
			t.Errorf("hand of %s has %d cards", id, len(hand))
		}
	}
	if got := a.ActiveRound().DeckSize(); got != 53-4*HandSize {
		t.Errorf("deck size = %d", got)
	}
	if got := a.ActiveRound().ActivePlayer().Identifier; got != "2" {
		t.Errorf("first bidder = %q, want 2", got)
	}
}

func TestNewRejectsBadRosters(t *testing.T) {
	tests := []struct {
		name    string
		players []Player
	}{
		{"too few", seats("1")},
		{"duplicate", seats("1", "1")},
		{"empty id", seats("1", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.players, "seed", nil); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestRejectedActionLeavesStateUnchanged(t *testing.T) {
	g := mustNew(t, seats("1", "2", "3"), "seed")
	events := len(g.Events())

	err := g.Act(Bid{Identifier: "3", Amount: Fifteen})
	var rule *RuleError
	if !errors.As(err, &rule) {
		t.Fatalf("err = %v, want RuleError", err)
	}
	if len(g.Events()) != events || len(g.Moves()) != 0 {
		t.Fatalf("rejected action changed state")
	}

	if err := g.Act(Bid{Identifier: "2", Amount: BidAmount(17)}); err == nil {
		t.Fatalf("invalid amount accepted")
	}
	if err := g.Act(SelectTrump{Identifier: "2", Suit: Hearts}); err == nil {
		t.Fatalf("trump selection accepted during bidding")
	}
	if len(g.Events()) != events || len(g.Moves()) != 0 {
		t.Fatalf("rejected action changed state")
	}
}

func TestDealerMayMatchBid(t *testing.T) {
	g := mustNew(t, seats("a", "b"), "seed")

	steps := []Bid{
		{Identifier: "b", Amount: Fifteen},
		{Identifier: "a", Amount: Fifteen},
		{Identifier: "b", Amount: Pass},
	}
	for _, b := range steps {
		if err := g.Act(b); err != nil {
			t.Fatalf("bid %+v: %v", b, err)
		}
	}

	r := g.ActiveRound()
	if r.Status() != RoundTrumpSelection {
		t.Fatalf("status = %s", r.Status())
	}
	if r.Bidder().Identifier != "a" || r.HighBid() != Fifteen {
		t.Fatalf("bidder = %s at %d", r.Bidder().Identifier, r.HighBid())
	}
}

func TestNonDealerMustRaise(t *testing.T) {
	g := mustNew(t, seats("a", "b", "c"), "seed")
	if err := g.Act(Bid{Identifier: "b", Amount: Fifteen}); err != nil {
		t.Fatalf("bid: %v", err)
	}
	if err := g.Act(Bid{Identifier: "c", Amount: Fifteen}); err == nil {
		t.Fatalf("matching bid accepted from non-dealer")
	}
	if err := g.Act(Bid{Identifier: "c", Amount: Twenty}); err != nil {
		t.Fatalf("raise: %v", err)
	}
}

func TestPrepassIsAppliedOnTurn(t *testing.T) {
	g := mustNew(t, seats("a", "b", "c", "d"), "seed")

	if err := g.Act(Bid{Identifier: "c", Amount: Pass}); err != nil {
		t.Fatalf("prepass: %v", err)
	}
	if !g.ActiveRound().Player("c").Prepassed {
		t.Fatalf("c not marked prepassed")
	}
	before := len(g.Events())

	if err := g.Act(Bid{Identifier: "b", Amount: Fifteen}); err != nil {
		t.Fatalf("bid: %v", err)
	}
	events := g.Events()[before:]
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if pass, ok := events[1].(Bid); !ok || pass.Identifier != "c" || pass.Amount != Pass {
		t.Fatalf("second event = %+v, want pass from c", events[1])
	}
	if got := g.ActiveRound().ActivePlayer().Identifier; got != "d" {
		t.Fatalf("active = %s, want d", got)
	}

	events = g.Events()
	if err := g.Act(Unpass{Identifier: "c"}); err == nil {
		t.Fatalf("unpass accepted after the pass was applied")
	}
	if len(g.Events()) != len(events) {
		t.Fatalf("rejected unpass emitted events")
	}
}

func TestUnpass(t *testing.T) {
	g := mustNew(t, seats("a", "b", "c", "d"), "seed")

	if err := g.Act(Unpass{Identifier: "c"}); err == nil {
		t.Fatalf("unpass without prepass accepted")
	}
	if err := g.Act(Bid{Identifier: "c", Amount: Pass}); err != nil {
		t.Fatalf("prepass: %v", err)
	}
	if err := g.Act(Unpass{Identifier: "c"}); err != nil {
		t.Fatalf("unpass: %v", err)
	}
	if err := g.Act(Bid{Identifier: "b", Amount: Fifteen}); err != nil {
		t.Fatalf("bid: %v", err)
	}
	if got := g.ActiveRound().ActivePlayer().Identifier; got != "c" {
		t.Fatalf("active = %s, want c", got)
	}
}

func TestWinningPlay(t *testing.T) {
	card := func(s Suit, n CardNumber) Card { return Card{Suit: s, Number: n} }
	tests := []struct {
		name  string
		trump Suit
		plays []Card
		want  int
	}{
		{"red offsuit high wins", Spades, []Card{card(Hearts, Ten), card(Hearts, King)}, 1},
		{"black offsuit low wins", Spades, []Card{card(Clubs, Three), card(Clubs, Two)}, 1},
		{"off suit cannot win", Spades, []Card{card(Clubs, Two), card(Diamonds, King)}, 0},
		{"trump beats led suit", Spades, []Card{card(Clubs, King), card(Spades, Two)}, 1},
		{"ace of hearts over king of trump", Spades, []Card{card(Spades, King), card(Hearts, Ace)}, 1},
		{"five of trump over joker", Diamonds, []Card{card(Joker, JokerNumber), card(Diamonds, Five)}, 1},
		{"jack over joker", Clubs, []Card{card(Clubs, Jack), card(Joker, JokerNumber)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trick := &Trick{}
			for i, c := range tt.plays {
				trick.Plays = append(trick.Plays, Play{Identifier: string(rune('a' + i)), Card: c})
			}
			got, ok := trick.WinningPlay(tt.trump)
			if !ok || got != trick.Plays[tt.want] {
				t.Fatalf("winner = %+v, want %+v", got, trick.Plays[tt.want])
			}
		})
	}
}

func TestLegalPlays(t *testing.T) {
	hand := []Card{{Hearts, Two}, {Clubs, King}, {Spades, Three}}
	lead := func(c Card) *Trick { return &Trick{Plays: []Play{{Identifier: "x", Card: c}}} }

	if got := legalPlays(hand, lead(Card{Clubs, Four}), Spades); len(got) != 2 {
		t.Errorf("clubs led: %v", got)
	}
	if got := legalPlays(hand, lead(Card{Spades, Four}), Spades); len(got) != 1 || got[0] != (Card{Spades, Three}) {
		t.Errorf("trump led: %v", got)
	}
	if got := legalPlays(hand, lead(Card{Diamonds, Four}), Clubs); len(got) != 1 {
		t.Errorf("diamonds led with clubs trump: %v", got)
	}
	if got := legalPlays([]Card{{Hearts, Two}}, lead(Card{Diamonds, Four}), Clubs); len(got) != 1 {
		t.Errorf("nothing to follow: %v", got)
	}
}

func TestScore(t *testing.T) {
	play := func(id string, s Suit, n CardNumber) Play { return Play{Identifier: id, Card: Card{Suit: s, Number: n}} }
	round := func(highBid BidAmount, tricks ...[]Play) *Round {
		r := &Round{
			Players: []*RoundPlayer{{Identifier: "a"}, {Identifier: "b"}},
			Trump:   Hearts,
			bidder:  0,
			highBid: highBid,
			status:  RoundCompleted,
		}
		for _, p := range tricks {
			r.Tricks = append(r.Tricks, &Trick{Plays: p})
		}
		return r
	}

	short := round(Twenty,
		[]Play{play("b", Hearts, Five), play("a", Clubs, Two)},
		[]Play{play("b", Diamonds, Six), play("a", Hearts, Two)},
		[]Play{play("a", Hearts, Three), play("b", Spades, Two)},
		[]Play{play("a", Hearts, Four), play("b", Spades, Three)},
		[]Play{play("a", Clubs, Seven), play("b", Clubs, King)},
	)
	want := []Score{{"a", -20}, {"b", 15}}
	if got := short.score(); !reflect.DeepEqual(got, want) {
		t.Errorf("short bidder: got %+v, want %+v", got, want)
	}

	var all [][]Play
	for _, n := range []CardNumber{Five, Jack, King, Queen, Ten} {
		all = append(all, []Play{play("a", Hearts, n), play("b", Spades, Two)})
	}
	want = []Score{{"a", 60}, {"b", 0}}
	if got := round(ShootTheMoon, all...).score(); !reflect.DeepEqual(got, want) {
		t.Errorf("shoot the moon: got %+v, want %+v", got, want)
	}
}

func TestAutomatedGameReachesWinner(t *testing.T) {
	players := []Player{
		{Identifier: "1", Automate: true},
		{Identifier: "2", Automate: true},
		{Identifier: "3", Automate: true},
		{Identifier: "4", Automate: true},
	}
	g := mustNew(t, players, "bots")
	if err := g.RunAutomation(); err != nil {
		t.Fatalf("RunAutomation: %v", err)
	}

	winner, ok := g.Winner()
	if !ok {
		t.Fatalf("no winner")
	}
	events := g.Events()
	if end, ok := events[len(events)-1].(GameEnd); !ok || end.Winner != winner {
		t.Fatalf("last event = %+v", events[len(events)-1])
	}
	if g.Scores()[winner] < WinningScore {
		t.Fatalf("winner %s has %d", winner, g.Scores()[winner])
	}
	if err := g.Act(Bid{Identifier: "1", Amount: Pass}); err == nil {
		t.Fatalf("action accepted after game end")
	}

	replayed := mustNew(t, seats("1", "2", "3", "4"), "bots", g.Moves()...)
	if w, _ := replayed.Winner(); w != winner {
		t.Fatalf("replayed winner = %s, want %s", w, winner)
	}
	if !reflect.DeepEqual(replayed.Events(), events) {
		t.Fatalf("replay produced different events")
	}
}

func TestSuggestionIsAccepted(t *testing.T) {
	g := mustNew(t, seats("1", "2", "3"), "suggest")
	for i := 0; i < 40; i++ {
		if _, done := g.Winner(); done {
			break
		}
		a, err := g.Suggestion()
		if err != nil {
			t.Fatalf("Suggestion: %v", err)
		}
		if err := g.Act(a); err != nil {
			t.Fatalf("suggested %+v rejected: %v", a, err)
		}
	}
}
