package domain

import "strings"

// GameSummary holds the replay-derived properties search filters on
type GameSummary struct {
	ID           string `json:"id"`
	Revision     int64  `json:"revision"`
	Status       Status `json:"status"`
	ActivePlayer string `json:"active_player,omitempty"`
	Winner       string `json:"winner,omitempty"`
}

// LobbyCriteria selects lobbies visible to Client
type LobbyCriteria struct {
	Name   string
	Client string
}

// Query returns the storage query for the criteria
func (c LobbyCriteria) Query(limit int) RecordQuery {
	return RecordQuery{Kind: KindLobby, Name: c.Name, Client: c.Client, Limit: limit}
}

// GameCriteria selects games visible to Client. Statuses, ActivePlayer and
// Winner need a replay to evaluate.
type GameCriteria struct {
	Name         string
	Client       string
	Statuses     []Status
	ActivePlayer string
	Winner       string
}

// Query returns the storage query for the parts of the criteria storage
// can evaluate. Lobbies are included when one could match.
func (c GameCriteria) Query(limit int) RecordQuery {
	kind := KindGame
	if c.IncludesLobbies() {
		kind = ""
	}
	return RecordQuery{Kind: kind, Name: c.Name, Client: c.Client, Limit: limit}
}

// IncludesLobbies reports whether a lobby, which is always waiting for
// players, could satisfy the criteria
func (c GameCriteria) IncludesLobbies() bool {
	return c.MatchesSummary(GameSummary{Status: StatusWaitingForPlayers})
}

// NeedsReplay reports whether any criterion depends on replayed state
func (c GameCriteria) NeedsReplay() bool {
	return len(c.Statuses) > 0 || c.ActivePlayer != "" || c.Winner != ""
}

// MatchesSummary applies the replay-dependent criteria
func (c GameCriteria) MatchesSummary(s GameSummary) bool {
	if len(c.Statuses) > 0 {
		found := false
		for _, st := range c.Statuses {
			if st == s.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.ActivePlayer != "" && c.ActivePlayer != s.ActivePlayer {
		return false
	}
	if c.Winner != "" && c.Winner != s.Winner {
		return false
	}
	return true
}

// SearchResult is one game search hit. Exactly one of Lobby and Game is set.
type SearchResult struct {
	Lobby *Lobby
	Game  *Game
}

// RecordQuery is a storage query: kind, case-insensitive name substring,
// visibility to Client, and a keyset cursor over (name, id). An empty Kind
// matches lobbies and games.
type RecordQuery struct {
	Kind      Kind
	Name      string
	Client    string
	AfterName string
	AfterID   string
	Limit     int
}

// After returns the query continuing past rec
func (q RecordQuery) After(rec GameRecord) RecordQuery {
	q.AfterName, q.AfterID = rec.Name, rec.ID
	return q
}

// Matches evaluates the query against a record in memory
func (q RecordQuery) Matches(rec *GameRecord) bool {
	if q.Kind != "" && rec.Kind != q.Kind {
		return false
	}
	if q.Name != "" && !strings.Contains(strings.ToLower(rec.Name), strings.ToLower(q.Name)) {
		return false
	}
	if rec.Accessibility != Public && !rec.HasPerson(q.Client) {
		return false
	}
	if q.AfterID != "" {
		if rec.Name < q.AfterName || (rec.Name == q.AfterName && rec.ID <= q.AfterID) {
			return false
		}
	}
	return true
}

// RecordLess orders records by name then id
func RecordLess(a, b *GameRecord) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}
