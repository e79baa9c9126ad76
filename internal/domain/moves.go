package domain

import (
	"fmt"

	"github.com/hundredandten/server/internal/engine"
)

// Move type tags as stored
const (
	MoveBid         = "bid"
	MoveSelectTrump = "select_trump"
	MoveDiscard     = "discard"
	MovePlay        = "play"
	MoveUnpass      = "unpass"
)

// MoveRecord is the stored form of one move
type MoveRecord struct {
	Type       string        `json:"type"`
	Identifier string        `json:"identifier"`
	Amount     *int          `json:"amount,omitempty"`
	Suit       engine.Suit   `json:"suit,omitempty"`
	Cards      []engine.Card `json:"cards,omitempty"`
	Card       *engine.Card  `json:"card,omitempty"`
}

// EncodeMove converts an accepted action to its stored form
func EncodeMove(a engine.Action) (MoveRecord, error) {
	switch m := a.(type) {
	case engine.Bid:
		amount := int(m.Amount)
		return MoveRecord{Type: MoveBid, Identifier: m.Identifier, Amount: &amount}, nil
	case engine.SelectTrump:
		return MoveRecord{Type: MoveSelectTrump, Identifier: m.Identifier, Suit: m.Suit}, nil
	case engine.Discard:
		return MoveRecord{Type: MoveDiscard, Identifier: m.Identifier, Cards: append([]engine.Card{}, m.Cards...)}, nil
	case engine.Play:
		card := m.Card
		return MoveRecord{Type: MovePlay, Identifier: m.Identifier, Card: &card}, nil
	case engine.Unpass:
		return MoveRecord{Type: MoveUnpass, Identifier: m.Identifier}, nil
	}
	return MoveRecord{}, fmt.Errorf("%w: unsupported move %T", ErrInternalError, a)
}

// DecodeMove converts a stored move back to an action. Unknown tags and
// missing fields fail with ErrDecoding.
func DecodeMove(r MoveRecord) (engine.Action, error) {
	if r.Identifier == "" {
		return nil, fmt.Errorf("%w: %s move without identifier", ErrDecoding, r.Type)
	}
	switch r.Type {
	case MoveBid:
		if r.Amount == nil {
			return nil, fmt.Errorf("%w: bid without amount", ErrDecoding)
		}
		return engine.Bid{Identifier: r.Identifier, Amount: engine.BidAmount(*r.Amount)}, nil
	case MoveSelectTrump:
		if r.Suit == "" {
			return nil, fmt.Errorf("%w: trump selection without suit", ErrDecoding)
		}
		return engine.SelectTrump{Identifier: r.Identifier, Suit: r.Suit}, nil
	case MoveDiscard:
		return engine.Discard{Identifier: r.Identifier, Cards: append([]engine.Card{}, r.Cards...)}, nil
	case MovePlay:
		if r.Card == nil {
			return nil, fmt.Errorf("%w: play without card", ErrDecoding)
		}
		return engine.Play{Identifier: r.Identifier, Card: *r.Card}, nil
	case MoveUnpass:
		return engine.Unpass{Identifier: r.Identifier}, nil
	}
	return nil, fmt.Errorf("%w: unknown move type %q", ErrDecoding, r.Type)
}

// MoveLog is the ordered record of every accepted action in a game
type MoveLog struct {
	moves []engine.Action
}

// NewMoveLog starts a log from previously accepted moves
func NewMoveLog(moves ...engine.Action) *MoveLog {
	return &MoveLog{moves: append([]engine.Action(nil), moves...)}
}

// Append adds an action the engine has already accepted
func (l *MoveLog) Append(a engine.Action) {
	l.moves = append(l.moves, a)
}

// Len returns the number of moves
func (l *MoveLog) Len() int {
	return len(l.moves)
}

// Moves returns a copy of the moves in order
func (l *MoveLog) Moves() []engine.Action {
	return append([]engine.Action(nil), l.moves...)
}

// Records encodes every move for storage
func (l *MoveLog) Records() ([]MoveRecord, error) {
	out := make([]MoveRecord, 0, len(l.moves))
	for i, m := range l.moves {
		rec, err := EncodeMove(m)
		if err != nil {
			return nil, fmt.Errorf("encoding move %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// DecodeMoveLog rebuilds a log from stored records
func DecodeMoveLog(records []MoveRecord) (*MoveLog, error) {
	log := &MoveLog{moves: make([]engine.Action, 0, len(records))}
	for i, r := range records {
		a, err := DecodeMove(r)
		if err != nil {
			return nil, fmt.Errorf("decoding move %d: %w", i, err)
		}
		log.moves = append(log.moves, a)
	}
	return log, nil
}
