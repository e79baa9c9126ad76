package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/form3tech-oss/jwt-go"
	gorillaws "github.com/gorilla/websocket"
	"github.com/hundredandten/server/internal/auth"
	"github.com/hundredandten/server/internal/config"
	"github.com/hundredandten/server/internal/domain"
	"github.com/hundredandten/server/internal/engine"
	"github.com/hundredandten/server/internal/memstore"
	"github.com/hundredandten/server/internal/service"
	"github.com/hundredandten/server/internal/websocket"
)

const testSecret = "handler-secret"

type testServer struct {
	t      *testing.T
	server *httptest.Server
	hub    *websocket.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Game.MinPlayers = 2
	cfg.Auth.Secret = testSecret
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memstore.New()
	hub := websocket.NewHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)
	games := service.NewGameService(store, nil, hub, &cfg.Game, logger)
	users := service.NewUserService(store, nil, &cfg.Game, logger)
	lobbies := service.NewLobbyService(store, games, users, hub, &cfg.Game, logger)
	verifier, err := auth.NewVerifier(&cfg.Auth)
	if err != nil {
		t.Fatal(err)
	}

	h := NewHandler(lobbies, games, users, verifier, hub, logger, store)
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return &testServer{t: t, server: srv, hub: hub}
}

func token(t *testing.T, sub, name string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  sub,
		"name": name,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	return signed
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// do sends a request as user (no token when empty) and decodes the envelope
func (s *testServer) do(method, path, user string, body interface{}) (int, envelope) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			s.t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	if err != nil {
		s.t.Fatal(err)
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(s.t, user, "Name "+user))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		s.t.Fatalf("%s %s: decoding response: %v", method, path, err)
	}
	return resp.StatusCode, env
}

func (s *testServer) ok(method, path, user string, body, out interface{}) {
	s.t.Helper()
	status, env := s.do(method, path, user, body)
	if status != http.StatusOK || !env.Success {
		s.t.Fatalf("%s %s: status %d error %q", method, path, status, env.Error)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			s.t.Fatalf("%s %s: decoding data: %v", method, path, err)
		}
	}
}

func (s *testServer) expect(want int, method, path, user string, body interface{}) envelope {
	s.t.Helper()
	status, env := s.do(method, path, user, body)
	if status != want || env.Success {
		s.t.Fatalf("%s %s: status %d (%q), want %d", method, path, status, env.Error, want)
	}
	return env
}

type gameView struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	Results    []json.RawMessage `json:"results"`
	EventCount int               `json:"event_count"`
}

func TestGameFlow(t *testing.T) {
	s := newTestServer(t)

	s.expect(http.StatusUnauthorized, "POST", "/api/v1/lobbies", "", map[string]string{"name": "x"})

	var lobby struct {
		ID        string `json:"id"`
		Organizer struct {
			Identifier string `json:"identifier"`
		} `json:"organizer"`
	}
	s.ok("POST", "/api/v1/lobbies", "a", map[string]string{"name": "friday"}, &lobby)
	if lobby.ID == "" || lobby.Organizer.Identifier != "a" {
		t.Fatalf("lobby = %+v", lobby)
	}

	s.ok("POST", "/api/v1/lobbies/"+lobby.ID+"/join", "b", nil, nil)
	s.expect(http.StatusForbidden, "POST", "/api/v1/lobbies/"+lobby.ID+"/start", "b", nil)

	var lobbies []json.RawMessage
	s.ok("POST", "/api/v1/lobbies/search", "c", map[string]interface{}{"searchText": "FRI"}, &lobbies)
	if len(lobbies) != 1 {
		t.Fatalf("search found %d lobbies", len(lobbies))
	}

	var started gameView
	s.ok("POST", "/api/v1/lobbies/"+lobby.ID+"/start", "a", nil, &started)
	if started.ID != lobby.ID || started.Status != string(domain.StatusBidding) {
		t.Fatalf("started = %+v", started)
	}
	s.expect(http.StatusBadRequest, "POST", "/api/v1/lobbies/"+lobby.ID+"/join", "c", nil)
	s.expect(http.StatusNotFound, "GET", "/api/v1/lobbies/"+lobby.ID, "a", nil)

	gamePath := "/api/v1/games/" + lobby.ID
	env := s.expect(http.StatusBadRequest, "POST", gamePath+"/bid", "a", map[string]int{"amount": 15})
	if env.Error == "" {
		t.Fatal("rule rejection without message")
	}
	s.expect(http.StatusBadRequest, "POST", gamePath+"/bid", "b", map[string]int{"amount": 17})
	s.expect(http.StatusForbidden, "GET", gamePath+"/suggestion", "a", nil)

	var suggestion domain.MoveRecord
	s.ok("GET", gamePath+"/suggestion", "b", nil, &suggestion)
	if suggestion.Type != "bid" || suggestion.Identifier != "b" {
		t.Fatalf("suggestion = %+v", suggestion)
	}

	var afterBid gameView
	s.ok("POST", gamePath+"/bid", "b", map[string]int{"amount": int(engine.Fifteen)}, &afterBid)
	if len(afterBid.Results) != 1 || afterBid.EventCount != started.EventCount+1 {
		t.Fatalf("bid produced %d events, count %d -> %d", len(afterBid.Results), started.EventCount, afterBid.EventCount)
	}

	var full gameView
	s.ok("GET", gamePath, "c", nil, &full)
	if len(full.Results) != full.EventCount {
		t.Fatalf("full view has %d of %d events", len(full.Results), full.EventCount)
	}
	var tail gameView
	s.ok("GET", fmt.Sprintf("%s?events_since=%d", gamePath, full.EventCount-1), "c", nil, &tail)
	if len(tail.Results) != 1 {
		t.Fatalf("tail has %d events", len(tail.Results))
	}
	s.expect(http.StatusBadRequest, "GET", gamePath+"?events_since=-1", "c", nil)

	var players []domain.User
	s.ok("GET", gamePath+"/players", "a", nil, &players)
	if len(players) != 2 {
		t.Fatalf("players = %+v", players)
	}

	var games []gameView
	s.ok("POST", "/api/v1/games/search", "c", map[string]interface{}{"statuses": []string{"BIDDING"}, "activePlayer": "a"}, &games)
	if len(games) != 1 {
		t.Fatalf("game search found %d", len(games))
	}
	s.expect(http.StatusBadRequest, "POST", "/api/v1/games/search", "c", map[string]interface{}{"statuses": []string{"PAUSED"}})

	s.ok("POST", gamePath+"/leave", "a", nil, nil)
	s.expect(http.StatusNotFound, "GET", "/api/v1/games/missing", "a", nil)
}

func TestPrivateLobbyIsHidden(t *testing.T) {
	s := newTestServer(t)

	var lobby struct {
		ID string `json:"id"`
	}
	s.ok("POST", "/api/v1/lobbies", "a", map[string]string{"name": "secret", "accessibility": "PRIVATE"}, &lobby)

	s.expect(http.StatusNotFound, "GET", "/api/v1/lobbies/"+lobby.ID, "b", nil)
	s.expect(http.StatusForbidden, "POST", "/api/v1/lobbies/"+lobby.ID+"/join", "b", nil)
	s.expect(http.StatusBadRequest, "POST", "/api/v1/lobbies/"+lobby.ID+"/invite", "a", map[string][]string{"invitees": {}})

	s.ok("POST", "/api/v1/lobbies/"+lobby.ID+"/invite", "a", map[string][]string{"invitees": {"b", "c"}}, nil)
	var view struct {
		Invitees []struct {
			Identifier string `json:"identifier"`
		} `json:"invitees"`
	}
	s.ok("POST", "/api/v1/lobbies/"+lobby.ID+"/join", "b", nil, &view)
	if len(view.Invitees) != 1 || view.Invitees[0].Identifier != "c" {
		t.Fatalf("invitees = %+v", view.Invitees)
	}
}

// dial opens a websocket as user, passing the token as a query parameter
func (s *testServer) dial(user string) (*gorillaws.Conn, *http.Response, error) {
	s.t.Helper()
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
	if user != "" {
		url += "?token=" + token(s.t, user, "Name "+user)
	}
	return gorillaws.DefaultDialer.Dial(url, nil)
}

// readFrame reads one frame, which may carry several newline separated messages
func readFrame(t *testing.T, conn *gorillaws.Conn, wait time.Duration) ([]websocket.Message, error) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(wait))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var out []websocket.Message
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		var msg websocket.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			t.Fatalf("decoding %s: %v", line, err)
		}
		out = append(out, msg)
	}
	return out, nil
}

func subscribe(t *testing.T, conn *gorillaws.Conn, gameID string) string {
	t.Helper()
	if err := conn.WriteJSON(websocket.ClientMessage{Type: websocket.MessageTypeSubscribe, GameID: gameID}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	msgs, err := readFrame(t, conn, 2*time.Second)
	if err != nil {
		t.Fatalf("subscribe reply: %v", err)
	}
	return msgs[0].Type
}

func TestWebSocketHidesPrivateGames(t *testing.T) {
	s := newTestServer(t)

	var lobby struct {
		ID string `json:"id"`
	}
	s.ok("POST", "/api/v1/lobbies", "a", map[string]string{"name": "back room", "accessibility": "PRIVATE"}, &lobby)
	s.ok("POST", "/api/v1/lobbies/"+lobby.ID+"/invite", "a", map[string][]string{"invitees": {"b"}}, nil)
	s.ok("POST", "/api/v1/lobbies/"+lobby.ID+"/join", "b", nil, nil)

	if _, resp, err := s.dial(""); err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous dial: err %v, resp %+v", err, resp)
	}

	member, _, err := s.dial("b")
	if err != nil {
		t.Fatalf("member dial: %v", err)
	}
	defer member.Close()
	stranger, _, err := s.dial("x")
	if err != nil {
		t.Fatalf("stranger dial: %v", err)
	}
	defer stranger.Close()

	if got := subscribe(t, stranger, lobby.ID); got != websocket.MessageTypeError {
		t.Fatalf("stranger subscribe = %s", got)
	}
	if got := subscribe(t, member, lobby.ID); got != "subscribed" {
		t.Fatalf("member subscribe = %s", got)
	}
	deadline := time.Now().Add(2 * time.Second)
	for s.hub.GetSubscriberCount(lobby.ID) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d", s.hub.GetSubscriberCount(lobby.ID))
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.ok("POST", "/api/v1/lobbies/"+lobby.ID+"/start", "a", nil, nil)

	msgs, err := readFrame(t, member, 2*time.Second)
	if err != nil {
		t.Fatalf("member read: %v", err)
	}
	if msgs[0].Type != websocket.MessageTypeNotification || msgs[0].GameID != lobby.ID {
		t.Fatalf("member received %+v", msgs[0])
	}
	if msgs, err := readFrame(t, stranger, 200*time.Millisecond); err == nil {
		t.Fatalf("stranger received %+v", msgs)
	}
}

func TestUsers(t *testing.T) {
	s := newTestServer(t)

	var created domain.User
	s.ok("POST", "/api/v1/users/self", "u1", nil, &created)
	if created.Identifier != "u1" || created.Name != "Name u1" {
		t.Fatalf("created = %+v", created)
	}

	var kept domain.User
	s.ok("POST", "/api/v1/users/self", "u1", map[string]string{"name": "Other"}, &kept)
	if kept.Name != "Name u1" {
		t.Fatalf("POST replaced existing profile: %+v", kept)
	}

	s.ok("PUT", "/api/v1/users/self", "u1", map[string]string{"name": "Ada", "picture_url": "p.png"}, nil)

	var found []domain.User
	s.ok("GET", "/api/v1/users?searchText=ad", "u2", nil, &found)
	if len(found) != 1 || found[0].Name != "Ada" || found[0].PictureURL != "p.png" {
		t.Fatalf("found = %+v", found)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	s.ok("GET", "/health", "", nil, nil)
	s.ok("GET", "/ready", "", nil, nil)

	var stats websocket.Stats
	s.ok("GET", "/api/v1/ws/stats", "", nil, &stats)
	if stats.Connections != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("getting game: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrAuthorizationDenied, http.StatusForbidden},
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("saving: %w", domain.ErrConflict), http.StatusConflict},
		{domain.ErrInvalidRequest, http.StatusBadRequest},
		{domain.ErrInvalidOperation, http.StatusBadRequest},
		{&engine.RuleError{Msg: "not your turn"}, http.StatusBadRequest},
		{domain.ErrDecoding, http.StatusInternalServerError},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
