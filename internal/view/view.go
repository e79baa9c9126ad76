// Package view maps lobbies and games to the JSON shapes clients see. Other
// players' cards are hidden: a client only ever sees its own hand and its
// own discards.
package view

import (
	"github.com/hundredandten/server/internal/domain"
	"github.com/hundredandten/server/internal/engine"
)

// Person is a participant as shown to clients
type Person struct {
	Identifier string `json:"identifier"`
	Automate   bool   `json:"automate"`
}

func person(p *domain.Person) Person {
	return Person{Identifier: p.Identifier, Automate: p.Automate}
}

func people(ps []*domain.Person) []Person {
	out := make([]Person, 0, len(ps))
	for _, p := range ps {
		out = append(out, person(p))
	}
	return out
}

// Lobby is a waiting game. Players excludes the organizer and invitees
// excludes people who already joined.
type Lobby struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Accessibility domain.Accessibility `json:"accessibility"`
	Status        domain.Status        `json:"status"`
	Organizer     Person               `json:"organizer"`
	Players       []Person             `json:"players"`
	Invitees      []Person             `json:"invitees"`
	Revision      int64                `json:"revision"`
}

// NewLobby projects a lobby
func NewLobby(l *domain.Lobby) Lobby {
	out := Lobby{
		ID:            l.ID,
		Name:          l.Name,
		Accessibility: l.Accessibility,
		Status:        domain.StatusWaitingForPlayers,
		Players:       []Person{},
		Invitees:      []Person{},
		Revision:      l.Revision,
	}
	organizer, _ := l.People.Organizer()
	if organizer != nil {
		out.Organizer = person(organizer)
	}
	for _, p := range l.People.ByRole(domain.RolePlayer) {
		if p != organizer {
			out.Players = append(out.Players, person(p))
		}
	}
	for _, p := range l.People.ByRole(domain.RoleInvitee) {
		if !p.Has(domain.RolePlayer) {
			out.Invitees = append(out.Invitees, person(p))
		}
	}
	return out
}

// NewLobbies projects a list of lobbies
func NewLobbies(ls []*domain.Lobby) []Lobby {
	out := make([]Lobby, 0, len(ls))
	for _, l := range ls {
		out = append(out, NewLobby(l))
	}
	return out
}

// Score is a per-player value
type Score struct {
	Identifier string `json:"identifier"`
	Value      int    `json:"value"`
}

// RoundPlayer is a seat in the active round. Hand and Prepassed are only
// set for the requesting client.
type RoundPlayer struct {
	Identifier string        `json:"identifier"`
	Automate   bool          `json:"automate"`
	HandSize   int           `json:"hand_size"`
	Hand       []engine.Card `json:"hand,omitempty"`
	Prepassed  *bool         `json:"prepassed,omitempty"`
}

// CardPlay is a card played to a trick
type CardPlay struct {
	Identifier string      `json:"identifier"`
	Card       engine.Card `json:"card"`
}

// Trick is a trick in the active round
type Trick struct {
	Bleeding    bool       `json:"bleeding"`
	Plays       []CardPlay `json:"plays"`
	WinningPlay *CardPlay  `json:"winning_play,omitempty"`
}

// Round is the active round
type Round struct {
	Status       engine.RoundStatus `json:"status"`
	Players      []RoundPlayer      `json:"players"`
	Dealer       string             `json:"dealer"`
	Bidder       string             `json:"bidder,omitempty"`
	Bid          *int               `json:"bid,omitempty"`
	Trump        engine.Suit        `json:"trump,omitempty"`
	Tricks       []Trick            `json:"tricks"`
	ActivePlayer string             `json:"active_player,omitempty"`
}

// Game is a started or completed game as seen by one client
type Game struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Accessibility domain.Accessibility `json:"accessibility"`
	Status        domain.Status        `json:"status"`
	Organizer     Person               `json:"organizer"`
	Players       []Person             `json:"players"`
	Round         *Round               `json:"round,omitempty"`
	Winner        *Person              `json:"winner,omitempty"`
	Scores        []Score              `json:"scores"`
	Results       []Event              `json:"results"`
	EventCount    int                  `json:"event_count"`
	Revision      int64                `json:"revision"`
}

// NewGame projects g for client with the events from index since onwards
func NewGame(g *domain.Game, client string, since int) Game {
	events := g.Events()
	out := Game{
		ID:            g.ID,
		Name:          g.Name,
		Accessibility: g.Accessibility,
		Status:        g.Status(),
		Players:       people(g.People.ByRole(domain.RolePlayer)),
		Scores:        scores(g),
		Results:       Events(events, client, since),
		EventCount:    len(events),
		Revision:      g.Revision,
	}
	if organizer, ok := g.People.Organizer(); ok {
		out.Organizer = person(organizer)
	}

	if winner, ok := g.Winner(); ok {
		if p, found := g.People.Find(winner); found {
			w := person(p)
			out.Winner = &w
		}
		return out
	}
	out.Round = round(g, client)
	return out
}

// NewSearchResults projects game search hits for client. Lobbies appear as
// Lobby and games as Game without events.
func NewSearchResults(results []domain.SearchResult, client string) []interface{} {
	out := make([]interface{}, 0, len(results))
	for _, r := range results {
		if r.Lobby != nil {
			out = append(out, NewLobby(r.Lobby))
			continue
		}
		v := NewGame(r.Game, client, 0)
		v.Results = []Event{}
		out = append(out, v)
	}
	return out
}

func scores(g *domain.Game) []Score {
	totals := g.Scores()
	players := g.OrderedPlayers()
	out := make([]Score, 0, len(players))
	for _, p := range players {
		out = append(out, Score{Identifier: p.Identifier, Value: totals[p.Identifier]})
	}
	return out
}

func round(g *domain.Game, client string) *Round {
	r := g.ActiveRound()
	out := &Round{
		Status:  r.Status(),
		Players: make([]RoundPlayer, 0, len(r.Players)),
		Dealer:  r.Dealer().Identifier,
		Trump:   r.Trump,
		Tricks:  make([]Trick, 0, len(r.Tricks)),
	}
	for _, p := range r.Players {
		rp := RoundPlayer{Identifier: p.Identifier, Automate: p.Automate, HandSize: len(p.Hand)}
		if member, ok := g.People.Find(p.Identifier); ok {
			rp.Automate = member.Automate
		}
		if p.Identifier == client {
			rp.Hand = append([]engine.Card{}, p.Hand...)
			prepassed := p.Prepassed
			rp.Prepassed = &prepassed
		}
		out.Players = append(out.Players, rp)
	}
	if b := r.Bidder(); b != nil {
		out.Bidder = b.Identifier
		amount := int(r.HighBid())
		out.Bid = &amount
	}
	for _, t := range r.Tricks {
		vt := Trick{Bleeding: t.Bleeding, Plays: make([]CardPlay, 0, len(t.Plays))}
		for _, p := range t.Plays {
			vt.Plays = append(vt.Plays, CardPlay{Identifier: p.Identifier, Card: p.Card})
		}
		if w, ok := t.WinningPlay(r.Trump); ok {
			vt.WinningPlay = &CardPlay{Identifier: w.Identifier, Card: w.Card}
		}
		out.Tricks = append(out.Tricks, vt)
	}
	if p := r.ActivePlayer(); p != nil {
		out.ActivePlayer = p.Identifier
	}
	return out
}

// Suggestion projects a suggested action in the same shape moves are stored
func Suggestion(a engine.Action) (domain.MoveRecord, error) {
	return domain.EncodeMove(a)
}
