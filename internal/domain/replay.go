package domain

import (
	"fmt"

	"github.com/hundredandten/server/internal/engine"
)

// RestoreGame rebuilds a game from storage by replaying its moves.
// A stored move the engine refuses means the record is corrupt.
func RestoreGame(rec GameRecord) (*Game, error) {
	if rec.Kind != KindGame {
		return nil, fmt.Errorf("%w: game %s", ErrNotFound, rec.ID)
	}
	people, err := decodePeople(rec.People)
	if err != nil {
		return nil, fmt.Errorf("game %s: %w", rec.ID, err)
	}
	log, err := DecodeMoveLog(rec.Moves)
	if err != nil {
		return nil, fmt.Errorf("game %s: %w", rec.ID, err)
	}

	g := &Game{
		ID:            rec.ID,
		Name:          rec.Name,
		Seed:          rec.Seed,
		Accessibility: rec.Accessibility,
		People:        people,
		Revision:      rec.Revision,
		log:           log,
	}
	if err := g.replay(); err != nil {
		return nil, fmt.Errorf("%w: game %s: %v", ErrDecoding, rec.ID, err)
	}
	return g, nil
}

// Replay builds a fresh engine from the seed and ordered players and applies
// moves in order. Automated seats never act during replay.
func Replay(seed string, players []engine.Player, moves []engine.Action) (*engine.Game, error) {
	state, err := engine.New(players, seed, moves)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	return state, nil
}

func (g *Game) replay() error {
	state, err := Replay(g.Seed, g.OrderedPlayers(), g.log.Moves())
	if err != nil {
		return err
	}
	g.state = state
	return nil
}

// runAutomation lets automated seats act and records their moves
func (g *Game) runAutomation() error {
	err := g.state.RunAutomation()
	g.syncLog()
	return err
}

// syncLog appends moves the engine accepted that the log does not have yet
func (g *Game) syncLog() {
	moves := g.state.Moves()
	for _, m := range moves[g.log.Len():] {
		g.log.Append(m)
	}
}
