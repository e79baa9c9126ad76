package domain

import (
	"errors"
	"reflect"
	"testing"

	"github.com/hundredandten/server/internal/engine"
)

func newLobby(t *testing.T, accessibility Accessibility) *Lobby {
	t.Helper()
	l, err := NewLobby("friday night", accessibility, "o")
	if err != nil {
		t.Fatalf("NewLobby: %v", err)
	}
	return l
}

func TestPersonGroup(t *testing.T) {
	g := NewPersonGroup()
	if _, ok := g.Organizer(); ok {
		t.Fatalf("empty group has an organizer")
	}

	g.AddRole("a", RolePlayer)
	g.AddRole("b", RoleInvitee)
	g.AddRole("b", RolePlayer)
	if g.Len() != 2 {
		t.Fatalf("len = %d, want 2", g.Len())
	}
	if p, _ := g.Organizer(); p.Identifier != "a" {
		t.Errorf("fallback organizer = %s, want a", p.Identifier)
	}
	g.AddRole("b", RoleOrganizer)
	if p, _ := g.Organizer(); p.Identifier != "b" {
		t.Errorf("organizer = %s, want b", p.Identifier)
	}

	b, _ := g.Find("b")
	if got := b.Roles(); !reflect.DeepEqual(got, []Role{RoleOrganizer, RolePlayer, RoleInvitee}) {
		t.Errorf("roles = %v", got)
	}
	g.RemoveRole("b", RoleInvitee)
	if b.Has(RoleInvitee) {
		t.Errorf("invitee role not removed")
	}

	if _, err := g.MustFind("zz"); !IsNotFoundError(err) {
		t.Errorf("MustFind unknown: %v", err)
	}
	if p := g.FindOrCreate("a", true); p.Automate {
		t.Errorf("FindOrCreate replaced existing person")
	}

	clone := g.Clone()
	clone.AddRole("a", RoleInvitee)
	if a, _ := g.Find("a"); a.Has(RoleInvitee) {
		t.Errorf("clone shares state with original")
	}

	if !g.Remove("a") || g.Remove("a") {
		t.Errorf("Remove reported wrong presence")
	}
}

func TestNewLobby(t *testing.T) {
	l := newLobby(t, Public)
	o, ok := l.People.Find("o")
	if !ok || !o.Has(RoleOrganizer) || !o.Has(RolePlayer) {
		t.Fatalf("creator roles = %v", o.Roles())
	}
	if l.ID == "" || l.Seed == "" || l.ID == l.Seed {
		t.Fatalf("id %q seed %q", l.ID, l.Seed)
	}

	if _, err := NewLobby(" ", Public, "o"); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("blank name: %v", err)
	}
	if _, err := NewLobby("x", Accessibility("SECRET"), "o"); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("bad accessibility: %v", err)
	}
}

func TestPublicLobbyPromotion(t *testing.T) {
	l := newLobby(t, Public)

	if err := l.Join("p1"); err != nil {
		t.Fatalf("join p1: %v", err)
	}
	p1, _ := l.People.Find("p1")
	if !reflect.DeepEqual(p1.Roles(), []Role{RolePlayer}) {
		t.Fatalf("p1 roles = %v", p1.Roles())
	}

	if err := l.Leave("o"); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("organizer leave: %v", err)
	}
	if err := l.Leave("nobody"); err != nil {
		t.Fatalf("non-member leave: %v", err)
	}
	if err := l.Leave("p1"); err != nil {
		t.Fatalf("leave p1: %v", err)
	}
	if _, err := l.PromoteToGame(); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("promote with one player: %v", err)
	}

	if err := l.Join("p2"); err != nil {
		t.Fatalf("join p2: %v", err)
	}
	g, err := l.PromoteToGame()
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if g.ID != l.ID || g.Seed != l.Seed || g.Name != l.Name || g.People.Len() != 2 {
		t.Fatalf("game does not carry lobby fields: %+v", g)
	}
	if g.MoveCount() != 0 {
		t.Fatalf("moves = %d, want 0", g.MoveCount())
	}
	if g.Status() != StatusBidding {
		t.Fatalf("status = %s", g.Status())
	}
}

func TestPrivateLobbyAdmission(t *testing.T) {
	l := newLobby(t, Private)

	if err := l.Join("x"); !errors.Is(err, ErrAuthorizationDenied) {
		t.Fatalf("uninvited join: %v", err)
	}
	if err := l.Invite("stranger", "x"); !errors.Is(err, ErrAuthorizationDenied) {
		t.Fatalf("invite by stranger: %v", err)
	}
	if err := l.Invite("o", "x"); err != nil {
		t.Fatalf("invite: %v", err)
	}
	if err := l.Join("x"); err != nil {
		t.Fatalf("invited join: %v", err)
	}
	x, _ := l.People.Find("x")
	if !x.Has(RolePlayer) || !x.Has(RoleInvitee) {
		t.Fatalf("x roles = %v", x.Roles())
	}

	if err := l.Invite("x", "o"); err != nil {
		t.Fatalf("player invite: %v", err)
	}
	o, _ := l.People.Find("o")
	if !o.Has(RolePlayer) || !o.Has(RoleOrganizer) {
		t.Fatalf("invite dropped existing roles: %v", o.Roles())
	}
}

func TestStartFillsComputers(t *testing.T) {
	l := newLobby(t, Public)
	if err := l.Join("p1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := l.Start("p1", 4); !errors.Is(err, ErrAuthorizationDenied) {
		t.Fatalf("non-organizer start: %v", err)
	}

	g, err := l.Start("o", 4)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	players := g.OrderedPlayers()
	want := []engine.Player{{Identifier: "o"}, {Identifier: "p1"}, {Identifier: "3", Automate: true}, {Identifier: "4", Automate: true}}
	if !reflect.DeepEqual(players, want) {
		t.Fatalf("players = %+v", players)
	}
	if active, _ := g.ActivePlayer(); active != "p1" {
		t.Fatalf("active = %s, want p1", active)
	}
}

func TestComputersActBeforeFirstHuman(t *testing.T) {
	l := newLobby(t, Public)
	g, err := l.Start("o", 4)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if g.MoveCount() != 3 {
		t.Fatalf("moves = %d, want 3", g.MoveCount())
	}
	if active, _ := g.ActivePlayer(); active != "o" {
		t.Fatalf("active = %s, want o", active)
	}
}

func TestActAppendsHumanMoveBeforeComputerMoves(t *testing.T) {
	l := newLobby(t, Public)
	g, err := l.Start("o", 4)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	before := g.MoveCount()
	pass := engine.Bid{Identifier: "o", Amount: engine.Pass}
	if err := g.Act(pass); err != nil {
		t.Fatalf("act: %v", err)
	}
	moves := g.Moves()
	if len(moves) <= before+1 {
		t.Fatalf("moves = %d, want computer moves after %d", len(moves), before+1)
	}
	if moves[before] != engine.Action(pass) {
		t.Fatalf("move %d = %+v, want %+v", before, moves[before], pass)
	}
	for i, m := range moves[before+1:] {
		if m.Actor() == "o" {
			t.Fatalf("move %d by o after its own action", before+1+i)
		}
	}
}

func startTwoPlayer(t *testing.T) *Game {
	t.Helper()
	l := newLobby(t, Public)
	if err := l.Join("p1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	g, err := l.PromoteToGame()
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	return g
}

func TestActAppendsOnlyAcceptedMoves(t *testing.T) {
	g := startTwoPlayer(t)

	err := g.Act(engine.Bid{Identifier: "o", Amount: engine.Fifteen})
	if !IsEngineRejection(err) {
		t.Fatalf("out of turn bid: %v", err)
	}
	if g.MoveCount() != 0 {
		t.Fatalf("rejected act appended a move")
	}

	pass := engine.Bid{Identifier: "p1", Amount: engine.Pass}
	if err := g.Act(pass); err != nil {
		t.Fatalf("act: %v", err)
	}
	moves := g.Moves()
	if len(moves) != 1 || moves[0] != engine.Action(pass) {
		t.Fatalf("moves = %+v", moves)
	}
	if active, _ := g.ActivePlayer(); active != "o" {
		t.Fatalf("active = %s, want o", active)
	}
}

func TestAutomateIsIdempotent(t *testing.T) {
	g := startTwoPlayer(t)

	if err := g.Automate("p1"); err != nil {
		t.Fatalf("automate: %v", err)
	}
	status, moves := g.Status(), g.MoveCount()
	if moves == 0 {
		t.Fatalf("automated seat did not act")
	}

	if err := g.Automate("p1"); err != nil {
		t.Fatalf("automate again: %v", err)
	}
	p1, _ := g.People.Find("p1")
	if !p1.Automate {
		t.Fatalf("automate flag cleared")
	}
	if g.Status() != status || g.MoveCount() != moves {
		t.Fatalf("second automate changed state: %s/%d vs %s/%d", g.Status(), g.MoveCount(), status, moves)
	}

	if err := g.Automate("ghost"); !IsNotFoundError(err) {
		t.Fatalf("automate unknown: %v", err)
	}
}

func TestSuggestionRequiresTurn(t *testing.T) {
	g := startTwoPlayer(t)

	if _, err := g.Suggestion("o"); !errors.Is(err, ErrAuthorizationDenied) {
		t.Fatalf("out of turn suggestion: %v", err)
	}
	a, err := g.Suggestion("p1")
	if err != nil {
		t.Fatalf("suggestion: %v", err)
	}
	if a.Actor() != "p1" {
		t.Fatalf("suggestion for %s", a.Actor())
	}
}

func TestRestoreGameReplaysDeterministically(t *testing.T) {
	g := startTwoPlayer(t)
	for i := 0; i < 6; i++ {
		active, _ := g.ActivePlayer()
		a, err := g.Suggestion(active)
		if err != nil {
			t.Fatalf("suggestion: %v", err)
		}
		if err := g.Act(a); err != nil {
			t.Fatalf("act: %v", err)
		}
	}

	rec, err := g.Record()
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	restored, err := RestoreGame(rec)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	again, err := RestoreGame(rec)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if !reflect.DeepEqual(restored.Events(), g.Events()) || !reflect.DeepEqual(again.Events(), restored.Events()) {
		t.Fatalf("replay produced different events")
	}
	if restored.Status() != g.Status() || !reflect.DeepEqual(restored.Scores(), g.Scores()) {
		t.Fatalf("replay produced different state")
	}
	if restored.MoveCount() != g.MoveCount() {
		t.Fatalf("replay appended moves")
	}

	if _, err := LobbyFromRecord(rec); !IsNotFoundError(err) {
		t.Fatalf("game record loaded as lobby: %v", err)
	}
}

func TestRestoreGameRejectsCorruptMoves(t *testing.T) {
	g := startTwoPlayer(t)
	rec, err := g.Record()
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	rec.Moves = []MoveRecord{{Type: "shuffle", Identifier: "o"}}
	if _, err := RestoreGame(rec); !errors.Is(err, ErrDecoding) {
		t.Fatalf("unknown tag: %v", err)
	}

	fifteen := int(engine.Fifteen)
	rec.Moves = []MoveRecord{{Type: MoveBid, Identifier: "o", Amount: &fifteen}}
	_, err = RestoreGame(rec)
	if !errors.Is(err, ErrDecoding) || IsEngineRejection(err) {
		t.Fatalf("illegal stored move: %v", err)
	}
}

func TestMoveCodec(t *testing.T) {
	card := engine.Card{Suit: engine.Hearts, Number: engine.Ace}
	moves := []engine.Action{
		engine.Bid{Identifier: "a", Amount: engine.Pass},
		engine.SelectTrump{Identifier: "a", Suit: engine.Clubs},
		engine.Discard{Identifier: "a", Cards: []engine.Card{card}},
		engine.Discard{Identifier: "a", Cards: []engine.Card{}},
		engine.Play{Identifier: "a", Card: card},
		engine.Unpass{Identifier: "a"},
	}
	for _, m := range moves {
		rec, err := EncodeMove(m)
		if err != nil {
			t.Fatalf("encode %T: %v", m, err)
		}
		back, err := DecodeMove(rec)
		if err != nil {
			t.Fatalf("decode %T: %v", m, err)
		}
		if !reflect.DeepEqual(back, m) {
			t.Errorf("got %+v, want %+v", back, m)
		}
	}

	if _, err := DecodeMove(MoveRecord{Type: MoveBid, Identifier: "a"}); !errors.Is(err, ErrDecoding) {
		t.Errorf("bid without amount: %v", err)
	}
}

func TestRecordQueryMatches(t *testing.T) {
	rec := &GameRecord{
		ID:            "g2",
		Kind:          KindGame,
		Name:          "Friday Night",
		Accessibility: Private,
		People:        []PersonRecord{{Identifier: "o", Roles: []Role{RoleOrganizer, RolePlayer}}},
	}
	tests := []struct {
		name  string
		query RecordQuery
		want  bool
	}{
		{"member", RecordQuery{Kind: KindGame, Name: "night", Client: "o"}, true},
		{"outsider", RecordQuery{Kind: KindGame, Client: "x"}, false},
		{"wrong kind", RecordQuery{Kind: KindLobby, Client: "o"}, false},
		{"any kind", RecordQuery{Client: "o"}, true},
		{"name miss", RecordQuery{Kind: KindGame, Name: "monday", Client: "o"}, false},
		{"after cursor", RecordQuery{Kind: KindGame, Client: "o", AfterName: "Friday Night", AfterID: "g1"}, true},
		{"at cursor", RecordQuery{Kind: KindGame, Client: "o", AfterName: "Friday Night", AfterID: "g2"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(rec); got != tt.want {
				t.Fatalf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGameCriteriaMatchesSummary(t *testing.T) {
	s := GameSummary{Status: StatusBidding, ActivePlayer: "a"}
	tests := []struct {
		name     string
		criteria GameCriteria
		want     bool
	}{
		{"no filters", GameCriteria{}, true},
		{"status", GameCriteria{Statuses: []Status{StatusTricks, StatusBidding}}, true},
		{"status miss", GameCriteria{Statuses: []Status{StatusWon}}, false},
		{"active player", GameCriteria{ActivePlayer: "a"}, true},
		{"active player miss", GameCriteria{ActivePlayer: "b"}, false},
		{"winner miss", GameCriteria{Winner: "a"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.criteria.MatchesSummary(s); got != tt.want {
				t.Fatalf("MatchesSummary = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGameCriteriaQueryKind(t *testing.T) {
	tests := []struct {
		name     string
		criteria GameCriteria
		want     Kind
	}{
		{"no filters", GameCriteria{}, ""},
		{"waiting", GameCriteria{Statuses: []Status{StatusWaitingForPlayers}}, ""},
		{"bidding", GameCriteria{Statuses: []Status{StatusBidding}}, KindGame},
		{"active player", GameCriteria{ActivePlayer: "a"}, KindGame},
		{"winner", GameCriteria{Winner: "a"}, KindGame},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.criteria.Query(10).Kind; got != tt.want {
				t.Fatalf("Kind = %q, want %q", got, tt.want)
			}
		})
	}
}
