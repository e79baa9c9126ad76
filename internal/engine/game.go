// Package engine implements the rules of Hundred and Ten: dealing, bidding,
// trump selection, discarding, trick play and scoring. A Game is built from a
// seed and an ordered player list; applying the same actions to a Game built
// from the same inputs always yields the same state.
package engine

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

const (
	MinPlayers   = 2
	MaxPlayers   = 10
	WinningScore = 110
)

// Player is a seat at the table.
type Player struct {
	Identifier string
	Automate   bool
}

// Game is the full state of one game of Hundred and Ten.
type Game struct {
	players []Player
	rng     *rand.Rand
	rounds  []*Round
	events  []Event
	moves   []Action
	scores  map[string]int
	winner  string
}

// New deals the first round and applies moves in order. Automated seats do
// not act during New; call RunAutomation for that.
func New(players []Player, seed string, moves []Action) (*Game, error) {
	if len(players) < MinPlayers || len(players) > MaxPlayers {
		return nil, rejectf(fmt.Sprintf("a game needs between %d and %d players", MinPlayers, MaxPlayers))
	}
	seen := make(map[string]bool, len(players))
	for _, p := range players {
		if p.Identifier == "" || seen[p.Identifier] {
			return nil, rejectf("player identifiers must be unique and non-empty")
		}
		seen[p.Identifier] = true
	}

	h := fnv.New64a()
	h.Write([]byte(seed))
	s := h.Sum64()

	g := &Game{
		players: append([]Player(nil), players...),
		rng:     rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15)),
		scores:  make(map[string]int, len(players)),
	}
	for _, p := range players {
		g.scores[p.Identifier] = 0
	}
	g.emit(GameStart{})
	g.startRound(0)

	for i, m := range moves {
		if err := g.apply(m); err != nil {
			return nil, fmt.Errorf("move %d (%T by %s): %w", i, m, m.Actor(), err)
		}
	}
	return g, nil
}

func (g *Game) emit(e Event) {
	g.events = append(g.events, e)
}

func (g *Game) startRound(dealer int) {
	g.rounds = append(g.rounds, newRound(g.players, dealer, g.rng, g.emit))
}

// Act applies a player's action and then lets automated seats respond.
func (g *Game) Act(a Action) error {
	if err := g.apply(a); err != nil {
		return err
	}
	return g.RunAutomation()
}

// RunAutomation makes moves for automated seats until a human must act or the
// game is won.
func (g *Game) RunAutomation() error {
	for g.winner == "" {
		p := g.ActiveRound().ActivePlayer()
		if p == nil || !g.automated(p.Identifier) {
			return nil
		}
		a, err := g.suggest()
		if err != nil {
			return err
		}
		if err := g.apply(a); err != nil {
			return fmt.Errorf("automated move for %s: %w", p.Identifier, err)
		}
	}
	return nil
}

func (g *Game) automated(identifier string) bool {
	for _, p := range g.players {
		if p.Identifier == identifier {
			return p.Automate
		}
	}
	return false
}

func (g *Game) apply(a Action) error {
	if g.winner != "" {
		return rejectf("the game is over")
	}
	r := g.ActiveRound()

	var err error
	switch a := a.(type) {
	case Bid:
		err = r.bid(a)
	case SelectTrump:
		err = r.selectTrump(a)
	case Discard:
		err = r.discard(a)
	case Play:
		err = r.play(a)
	case Unpass:
		err = r.unpass(a)
	default:
		return rejectf(fmt.Sprintf("unsupported action %T", a))
	}
	if err != nil {
		return err
	}

	g.moves = append(g.moves, a)
	if r.Completed() {
		g.finishRound(r)
	}
	return nil
}

func (g *Game) finishRound(r *Round) {
	scores := r.score()
	for _, s := range scores {
		g.scores[s.Identifier] += s.Value
	}
	g.emit(RoundEnd{Scores: scores})

	if w, ok := g.findWinner(r); ok {
		g.winner = w
		g.emit(GameEnd{Winner: w})
		return
	}
	g.startRound((r.dealer + 1) % len(g.players))
}

// findWinner picks the bidder if they reached the winning score, otherwise
// the highest score at or above it. Ties go to the earlier seat.
func (g *Game) findWinner(r *Round) (string, bool) {
	if b := r.Bidder(); b != nil && r.Status() == RoundCompleted && g.scores[b.Identifier] >= WinningScore {
		return b.Identifier, true
	}
	best, found := "", false
	for _, p := range g.players {
		v := g.scores[p.Identifier]
		if v < WinningScore {
			continue
		}
		if !found || v > g.scores[best] {
			best, found = p.Identifier, true
		}
	}
	return best, found
}

// Suggestion recommends an action for the active seat.
func (g *Game) Suggestion() (Action, error) {
	if g.winner != "" {
		return nil, rejectf("the game is over")
	}
	return g.suggest()
}

// Winner returns the winning identifier once the game is over.
func (g *Game) Winner() (string, bool) {
	return g.winner, g.winner != ""
}

// ActiveRound returns the round in progress, or the last round once won.
func (g *Game) ActiveRound() *Round {
	return g.rounds[len(g.rounds)-1]
}

// Rounds returns every round dealt so far.
func (g *Game) Rounds() []*Round {
	return append([]*Round(nil), g.rounds...)
}

// Scores returns the running total per identifier.
func (g *Game) Scores() map[string]int {
	out := make(map[string]int, len(g.scores))
	for k, v := range g.scores {
		out[k] = v
	}
	return out
}

// Events returns every event in the order it happened.
func (g *Game) Events() []Event {
	return append([]Event(nil), g.events...)
}

// Moves returns every accepted action, including automated ones.
func (g *Game) Moves() []Action {
	return append([]Action(nil), g.moves...)
}

// Players returns the seats in order.
func (g *Game) Players() []Player {
	return append([]Player(nil), g.players...)
}
