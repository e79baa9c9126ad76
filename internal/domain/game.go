package domain

import (
	"fmt"

	"github.com/hundredandten/server/internal/engine"
)

// Status is the derived phase of a lobby or game
type Status string

const (
	StatusWaitingForPlayers Status = "WAITING_FOR_PLAYERS"
	StatusBidding           Status = "BIDDING"
	StatusTrumpSelection    Status = "TRUMP_SELECTION"
	StatusDiscard           Status = "DISCARD"
	StatusTricks            Status = "TRICKS"
	StatusWon               Status = "WON"
)

// ParseStatus validates a client supplied status
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusWaitingForPlayers, StatusBidding, StatusTrumpSelection, StatusDiscard, StatusTricks, StatusWon:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, s)
}

// Game is a started game. Its progress lives only in the move log; the
// engine state is rebuilt by replay.
type Game struct {
	ID            string
	Name          string
	Seed          string
	Accessibility Accessibility
	People        *PersonGroup
	Revision      int64

	log   *MoveLog
	state *engine.Game
}

// OrderedPlayers is the seating order: PLAYER holders in insertion order
func (g *Game) OrderedPlayers() []engine.Player {
	people := g.People.ByRole(RolePlayer)
	out := make([]engine.Player, len(people))
	for i, p := range people {
		out[i] = engine.Player{Identifier: p.Identifier, Automate: p.Automate}
	}
	return out
}

// Act forwards action to the engine. On success the action, and any moves
// automated seats made in response, are appended to the move log. A
// rejected action changes nothing.
func (g *Game) Act(action engine.Action) error {
	err := g.state.Act(action)
	g.syncLog()
	return err
}

// Automate hands identifier's seat to the computer, replays with the new
// roster and lets automated seats act. Automating an automated seat only
// replays.
func (g *Game) Automate(identifier string) error {
	p, err := g.People.MustFind(identifier)
	if err != nil {
		return err
	}
	if !p.Has(RolePlayer) {
		return fmt.Errorf("%w: %s is not playing", ErrInvalidOperation, identifier)
	}
	p.Automate = true
	if err := g.replay(); err != nil {
		return err
	}
	return g.runAutomation()
}

// Suggestion returns the engine's recommended action for caller, who must be
// the seat expected to act.
func (g *Game) Suggestion(caller string) (engine.Action, error) {
	if g.Status() == StatusWon {
		return nil, fmt.Errorf("%w: the game is over", ErrInvalidOperation)
	}
	if active, ok := g.ActivePlayer(); !ok || active != caller {
		return nil, fmt.Errorf("%w: suggestions are only available on your turn", ErrAuthorizationDenied)
	}
	return g.state.Suggestion()
}

// Status is WON once there is a winner, otherwise the active round phase
func (g *Game) Status() Status {
	if _, ok := g.state.Winner(); ok {
		return StatusWon
	}
	switch g.state.ActiveRound().Status() {
	case engine.RoundBidding:
		return StatusBidding
	case engine.RoundTrumpSelection:
		return StatusTrumpSelection
	case engine.RoundDiscard:
		return StatusDiscard
	case engine.RoundTricks:
		return StatusTricks
	}
	return StatusWon
}

// Winner returns the winner once the game is over
func (g *Game) Winner() (string, bool) {
	return g.state.Winner()
}

// ActivePlayer returns whose turn it is
func (g *Game) ActivePlayer() (string, bool) {
	if g.Status() == StatusWon {
		return "", false
	}
	p := g.state.ActiveRound().ActivePlayer()
	if p == nil {
		return "", false
	}
	return p.Identifier, true
}

// Scores returns the running score per player
func (g *Game) Scores() map[string]int {
	return g.state.Scores()
}

// Events returns every event produced by replay
func (g *Game) Events() []engine.Event {
	return g.state.Events()
}

// ActiveRound returns the round in progress, or the final round once won
func (g *Game) ActiveRound() *engine.Round {
	return g.state.ActiveRound()
}

// Moves returns the move log contents
func (g *Game) Moves() []engine.Action {
	return g.log.Moves()
}

// MoveCount returns the length of the move log
func (g *Game) MoveCount() int {
	return g.log.Len()
}

// Summary returns the replay-derived properties used by search
func (g *Game) Summary() GameSummary {
	s := GameSummary{ID: g.ID, Revision: g.Revision, Status: g.Status()}
	s.ActivePlayer, _ = g.ActivePlayer()
	s.Winner, _ = g.Winner()
	return s
}

// Record converts the game to its stored form
func (g *Game) Record() (GameRecord, error) {
	moves, err := g.log.Records()
	if err != nil {
		return GameRecord{}, fmt.Errorf("game %s: %w", g.ID, err)
	}
	return GameRecord{
		ID:            g.ID,
		Kind:          KindGame,
		Name:          g.Name,
		Seed:          g.Seed,
		Accessibility: g.Accessibility,
		People:        encodePeople(g.People),
		Moves:         moves,
		Revision:      g.Revision,
	}, nil
}
