package view

import (
	"fmt"
	"time"

	"github.com/hundredandten/server/internal/domain"
	"github.com/hundredandten/server/internal/engine"
)

// Event types
const (
	EventGameStart   = "GAME_START"
	EventRoundStart  = "ROUND_START"
	EventBid         = "BID"
	EventSelectTrump = "SELECT_TRUMP"
	EventDiscard     = "DISCARD"
	EventTrickStart  = "TRICK_START"
	EventPlay        = "PLAY"
	EventTrickEnd    = "TRICK_END"
	EventRoundEnd    = "ROUND_END"
	EventGameEnd     = "GAME_END"
)

// Hand is a dealt hand. Cards is only present for the owner.
type Hand struct {
	Count int           `json:"count"`
	Cards []engine.Card `json:"cards,omitempty"`
}

// Event is one entry of a game's results
type Event struct {
	Type       string          `json:"type"`
	Identifier string          `json:"identifier,omitempty"`
	Dealer     string          `json:"dealer,omitempty"`
	Hands      map[string]Hand `json:"hands,omitempty"`
	Amount     *int            `json:"amount,omitempty"`
	Suit       engine.Suit     `json:"suit,omitempty"`
	Cards      []engine.Card   `json:"cards,omitempty"`
	Count      *int            `json:"count,omitempty"`
	Card       *engine.Card    `json:"card,omitempty"`
	Winner     string          `json:"winner,omitempty"`
	Scores     []Score         `json:"scores,omitempty"`
}

// Events projects events[since:] for client. An empty client sees no cards
// other than those played face up.
func Events(events []engine.Event, client string, since int) []Event {
	if since < 0 {
		since = 0
	}
	out := []Event{}
	if since >= len(events) {
		return out
	}
	for _, e := range events[since:] {
		out = append(out, event(e, client))
	}
	return out
}

func event(e engine.Event, client string) Event {
	switch e := e.(type) {
	case engine.GameStart:
		return Event{Type: EventGameStart}
	case engine.RoundStart:
		hands := make(map[string]Hand, len(e.Hands))
		for id, cards := range e.Hands {
			h := Hand{Count: len(cards)}
			if id == client {
				h.Cards = append([]engine.Card{}, cards...)
			}
			hands[id] = h
		}
		return Event{Type: EventRoundStart, Dealer: e.Dealer, Hands: hands}
	case engine.Bid:
		amount := int(e.Amount)
		return Event{Type: EventBid, Identifier: e.Identifier, Amount: &amount}
	case engine.SelectTrump:
		return Event{Type: EventSelectTrump, Identifier: e.Identifier, Suit: e.Suit}
	case engine.Discard:
		out := Event{Type: EventDiscard, Identifier: e.Identifier}
		if e.Identifier == client {
			out.Cards = append([]engine.Card{}, e.Cards...)
		}
		count := len(e.Cards)
		out.Count = &count
		return out
	case engine.TrickStart:
		return Event{Type: EventTrickStart}
	case engine.Play:
		card := e.Card
		return Event{Type: EventPlay, Identifier: e.Identifier, Card: &card}
	case engine.TrickEnd:
		return Event{Type: EventTrickEnd, Winner: e.Winner}
	case engine.RoundEnd:
		scores := make([]Score, 0, len(e.Scores))
		for _, s := range e.Scores {
			scores = append(scores, Score{Identifier: s.Identifier, Value: s.Value})
		}
		return Event{Type: EventRoundEnd, Scores: scores}
	case engine.GameEnd:
		return Event{Type: EventGameEnd, Winner: e.Winner}
	}
	panic(fmt.Sprintf("view: unhandled event %T", e))
}

// Notification is the public message pushed to subscribers after a lobby or
// game changes
type Notification struct {
	GameID       string        `json:"game_id"`
	Kind         domain.Kind   `json:"kind"`
	Revision     int64         `json:"revision"`
	Status       domain.Status `json:"status"`
	ActivePlayer string        `json:"active_player,omitempty"`
	Winner       string        `json:"winner,omitempty"`
	EventCount   int           `json:"event_count"`
	Events       []Event       `json:"events,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// LobbyNotification describes a lobby change
func LobbyNotification(l *domain.Lobby) Notification {
	return Notification{
		GameID:    l.ID,
		Kind:      domain.KindLobby,
		Revision:  l.Revision,
		Status:    domain.StatusWaitingForPlayers,
		Timestamp: time.Now(),
	}
}

// GameNotification describes a game change with the public form of the
// events from since onwards
func GameNotification(g *domain.Game, since int) Notification {
	summary := g.Summary()
	events := g.Events()
	return Notification{
		GameID:       g.ID,
		Kind:         domain.KindGame,
		Revision:     g.Revision,
		Status:       summary.Status,
		ActivePlayer: summary.ActivePlayer,
		Winner:       summary.Winner,
		EventCount:   len(events),
		Events:       Events(events, "", since),
		Timestamp:    time.Now(),
	}
}
