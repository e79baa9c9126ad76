package domain

import (
	"fmt"
	"time"
)

// Accessibility controls who may join a lobby and who may see a game
type Accessibility string

const (
	Public  Accessibility = "PUBLIC"
	Private Accessibility = "PRIVATE"
)

// Valid reports whether a is a known accessibility
func (a Accessibility) Valid() bool {
	return a == Public || a == Private
}

// Kind discriminates lobbies from started games in storage
type Kind string

const (
	KindLobby Kind = "lobby"
	KindGame  Kind = "game"
)

// PersonRecord is the stored form of a person
type PersonRecord struct {
	Identifier string `json:"identifier"`
	Roles      []Role `json:"roles"`
	Automate   bool   `json:"automate"`
}

// GameRecord is the stored document for a lobby or a game. Moves are empty
// for lobbies. No engine state is ever stored.
type GameRecord struct {
	ID            string         `json:"id"`
	Kind          Kind           `json:"kind"`
	Name          string         `json:"name"`
	Seed          string         `json:"seed"`
	Accessibility Accessibility  `json:"accessibility"`
	People        []PersonRecord `json:"people"`
	Moves         []MoveRecord   `json:"moves"`
	Revision      int64          `json:"revision"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// HasPerson reports whether identifier appears in the record's people
func (r *GameRecord) HasPerson(identifier string) bool {
	for _, p := range r.People {
		if p.Identifier == identifier {
			return true
		}
	}
	return false
}

func encodePeople(g *PersonGroup) []PersonRecord {
	out := make([]PersonRecord, 0, g.Len())
	for _, p := range g.All() {
		out = append(out, PersonRecord{Identifier: p.Identifier, Roles: p.Roles(), Automate: p.Automate})
	}
	return out
}

func decodePeople(records []PersonRecord) (*PersonGroup, error) {
	people := make([]*Person, 0, len(records))
	for _, r := range records {
		if r.Identifier == "" {
			return nil, fmt.Errorf("%w: person without identifier", ErrDecoding)
		}
		for _, role := range r.Roles {
			if !role.Valid() {
				return nil, fmt.Errorf("%w: unknown role %q", ErrDecoding, role)
			}
		}
		people = append(people, NewPerson(r.Identifier, r.Automate, r.Roles...))
	}
	return NewPersonGroup(people...), nil
}
