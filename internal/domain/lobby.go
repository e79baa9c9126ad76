package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Lobby is a game that has not started yet
type Lobby struct {
	ID            string
	Name          string
	Seed          string
	Accessibility Accessibility
	People        *PersonGroup
	Revision      int64
}

// NewLobby creates a lobby organized by organizer, who is also its first player
func NewLobby(name string, accessibility Accessibility, organizer string) (*Lobby, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if !accessibility.Valid() {
		return nil, fmt.Errorf("%w: unknown accessibility %q", ErrInvalidRequest, accessibility)
	}
	if organizer == "" {
		return nil, fmt.Errorf("%w: organizer is required", ErrInvalidRequest)
	}

	return &Lobby{
		ID:            uuid.NewString(),
		Name:          name,
		Seed:          uuid.NewString(),
		Accessibility: accessibility,
		People:        NewPersonGroup(NewPerson(organizer, false, RoleOrganizer, RolePlayer)),
	}, nil
}

// Organizer returns the organizer's identifier
func (l *Lobby) Organizer() string {
	if p, ok := l.People.Organizer(); ok {
		return p.Identifier
	}
	return ""
}

// Join adds identifier as a player. Private lobbies admit only people who
// were invited or already play.
func (l *Lobby) Join(identifier string) error {
	if l.Accessibility == Private {
		p, ok := l.People.Find(identifier)
		if !ok || !(p.Has(RoleInvitee) || p.Has(RolePlayer)) {
			return fmt.Errorf("%w: cannot join private game without invitation", ErrAuthorizationDenied)
		}
	}
	l.People.AddRole(identifier, RolePlayer)
	return nil
}

// Leave removes identifier from the lobby. Leaving a lobby you are not in
// does nothing.
func (l *Lobby) Leave(identifier string) error {
	if identifier == l.Organizer() {
		return fmt.Errorf("%w: the organizer cannot leave the game", ErrInvalidOperation)
	}
	l.People.Remove(identifier)
	return nil
}

// Invite grants invitee the INVITEE role on behalf of inviter
func (l *Lobby) Invite(inviter, invitee string) error {
	p, ok := l.People.Find(inviter)
	if !ok || !(p.Has(RolePlayer) || p.Has(RoleOrganizer)) {
		return fmt.Errorf("%w: only players can invite", ErrAuthorizationDenied)
	}
	if invitee == "" {
		return fmt.Errorf("%w: invitee is required", ErrInvalidRequest)
	}
	l.People.AddRole(invitee, RoleInvitee)
	return nil
}

// FillWithComputers adds automated players until at least minPlayers play.
// Computer identifiers are their seat number.
func (l *Lobby) FillWithComputers(minPlayers int) {
	for n := len(l.People.ByRole(RolePlayer)); n < minPlayers; n = len(l.People.ByRole(RolePlayer)) {
		seat := n + 1
		id := strconv.Itoa(seat)
		for {
			if _, taken := l.People.Find(id); !taken {
				break
			}
			seat++
			id = strconv.Itoa(seat)
		}
		p := l.People.AddRole(id, RolePlayer)
		p.Automate = true
	}
}

// Start is the organizer-only path from lobby to game: empty seats up to
// minPlayers are filled with computers before promotion.
func (l *Lobby) Start(caller string, minPlayers int) (*Game, error) {
	if caller != l.Organizer() {
		return nil, fmt.Errorf("%w: only the organizer can start the game", ErrAuthorizationDenied)
	}
	l.FillWithComputers(minPlayers)
	return l.PromoteToGame()
}

// PromoteToGame turns the lobby into a game with the same id, name, seed,
// accessibility and people. Automated seats that act before any human have
// already moved in the returned game.
func (l *Lobby) PromoteToGame() (*Game, error) {
	if len(l.People.ByRole(RolePlayer)) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 players to start", ErrInvalidOperation)
	}

	g := &Game{
		ID:            l.ID,
		Name:          l.Name,
		Seed:          l.Seed,
		Accessibility: l.Accessibility,
		People:        l.People.Clone(),
		Revision:      l.Revision,
		log:           NewMoveLog(),
	}
	if err := g.replay(); err != nil {
		return nil, err
	}
	if err := g.runAutomation(); err != nil {
		return nil, err
	}
	return g, nil
}

// Summary returns the lobby's search summary
func (l *Lobby) Summary() GameSummary {
	return GameSummary{ID: l.ID, Revision: l.Revision, Status: StatusWaitingForPlayers}
}

// Record converts the lobby to its stored form
func (l *Lobby) Record() GameRecord {
	return GameRecord{
		ID:            l.ID,
		Kind:          KindLobby,
		Name:          l.Name,
		Seed:          l.Seed,
		Accessibility: l.Accessibility,
		People:        encodePeople(l.People),
		Moves:         []MoveRecord{},
		Revision:      l.Revision,
	}
}

// LobbyFromRecord rebuilds a lobby from storage
func LobbyFromRecord(rec GameRecord) (*Lobby, error) {
	if rec.Kind != KindLobby {
		return nil, fmt.Errorf("%w: lobby %s", ErrNotFound, rec.ID)
	}
	people, err := decodePeople(rec.People)
	if err != nil {
		return nil, fmt.Errorf("lobby %s: %w", rec.ID, err)
	}
	return &Lobby{
		ID:            rec.ID,
		Name:          rec.Name,
		Seed:          rec.Seed,
		Accessibility: rec.Accessibility,
		People:        people,
		Revision:      rec.Revision,
	}, nil
}
