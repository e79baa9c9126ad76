package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hundredandten/server/internal/domain"
	"github.com/hundredandten/server/internal/engine"
	"github.com/hundredandten/server/internal/view"
)

// SearchGamesRequest is the body of POST /games/search
type SearchGamesRequest struct {
	SearchText   string   `json:"searchText"`
	Max          int      `json:"max"`
	Statuses     []string `json:"statuses"`
	ActivePlayer string   `json:"activePlayer"`
	Winner       string   `json:"winner"`
}

// BidRequest is the body of POST /games/{id}/bid
type BidRequest struct {
	Amount int `json:"amount"`
}

// SelectTrumpRequest is the body of POST /games/{id}/select-trump
type SelectTrumpRequest struct {
	Suit engine.Suit `json:"suit"`
}

// DiscardRequest is the body of POST /games/{id}/discard
type DiscardRequest struct {
	Cards []engine.Card `json:"cards"`
}

// PlayRequest is the body of POST /games/{id}/play
type PlayRequest struct {
	Card engine.Card `json:"card"`
}

// SearchGames lists lobbies and games visible to the caller
func (h *Handler) SearchGames(w http.ResponseWriter, r *http.Request) {
	var req SearchGamesRequest
	if err := decodeBody(r, &req, true); err != nil {
		h.writeError(w, err)
		return
	}

	caller := identityFrom(r).ID
	criteria := domain.GameCriteria{
		Name:         req.SearchText,
		Client:       caller,
		ActivePlayer: req.ActivePlayer,
		Winner:       req.Winner,
	}
	for _, s := range req.Statuses {
		status, err := domain.ParseStatus(s)
		if err != nil {
			h.writeError(w, err)
			return
		}
		criteria.Statuses = append(criteria.Statuses, status)
	}

	results, err := h.games.Search(r.Context(), criteria, req.Max)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, view.NewSearchResults(results, caller))
}

// GetGame returns a game with the events from events_since onwards
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	since := 0
	if s := r.URL.Query().Get("events_since"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.writeError(w, fmt.Errorf("%w: events_since must be a non-negative integer", domain.ErrInvalidRequest))
			return
		}
		since = n
	}

	caller := identityFrom(r).ID
	game, err := h.games.Get(r.Context(), caller, chi.URLParam(r, "gameID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, view.NewGame(game, caller, since))
}

// GetGamePlayers returns the profiles of a game's players in seat order
func (h *Handler) GetGamePlayers(w http.ResponseWriter, r *http.Request) {
	ids, err := h.games.PlayerIDs(r.Context(), identityFrom(r).ID, chi.URLParam(r, "gameID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeProfiles(w, r, ids)
}

// GetSuggestion returns the move a computer would make for the caller
func (h *Handler) GetSuggestion(w http.ResponseWriter, r *http.Request) {
	action, err := h.games.Suggestion(r.Context(), identityFrom(r).ID, chi.URLParam(r, "gameID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	suggestion, err := view.Suggestion(action)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, suggestion)
}

// Bid places a bid for the caller
func (h *Handler) Bid(w http.ResponseWriter, r *http.Request) {
	var req BidRequest
	if err := decodeBody(r, &req, false); err != nil {
		h.writeError(w, err)
		return
	}
	amount := engine.BidAmount(req.Amount)
	if !amount.Valid() {
		h.writeError(w, fmt.Errorf("%w: %d is not a bid amount", domain.ErrInvalidRequest, req.Amount))
		return
	}

	caller := identityFrom(r).ID
	game, before, err := h.games.Bid(r.Context(), caller, chi.URLParam(r, "gameID"), amount)
	h.writeGame(w, caller, game, before, err)
}

// SelectTrump selects the trump suit for the caller
func (h *Handler) SelectTrump(w http.ResponseWriter, r *http.Request) {
	var req SelectTrumpRequest
	if err := decodeBody(r, &req, false); err != nil {
		h.writeError(w, err)
		return
	}

	caller := identityFrom(r).ID
	game, before, err := h.games.SelectTrump(r.Context(), caller, chi.URLParam(r, "gameID"), req.Suit)
	h.writeGame(w, caller, game, before, err)
}

// Discard discards cards for the caller
func (h *Handler) Discard(w http.ResponseWriter, r *http.Request) {
	var req DiscardRequest
	if err := decodeBody(r, &req, false); err != nil {
		h.writeError(w, err)
		return
	}

	caller := identityFrom(r).ID
	game, before, err := h.games.Discard(r.Context(), caller, chi.URLParam(r, "gameID"), req.Cards)
	h.writeGame(w, caller, game, before, err)
}

// Play plays a card for the caller
func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	var req PlayRequest
	if err := decodeBody(r, &req, false); err != nil {
		h.writeError(w, err)
		return
	}

	caller := identityFrom(r).ID
	game, before, err := h.games.Play(r.Context(), caller, chi.URLParam(r, "gameID"), req.Card)
	h.writeGame(w, caller, game, before, err)
}

// Unpass withdraws the caller's advance pass
func (h *Handler) Unpass(w http.ResponseWriter, r *http.Request) {
	caller := identityFrom(r).ID
	game, before, err := h.games.Unpass(r.Context(), caller, chi.URLParam(r, "gameID"))
	h.writeGame(w, caller, game, before, err)
}

// LeaveGame hands the caller's seat to the computer
func (h *Handler) LeaveGame(w http.ResponseWriter, r *http.Request) {
	caller := identityFrom(r).ID
	game, before, err := h.games.Leave(r.Context(), caller, chi.URLParam(r, "gameID"))
	h.writeGame(w, caller, game, before, err)
}

// writeGame writes the result of a game mutation with the events it produced
func (h *Handler) writeGame(w http.ResponseWriter, caller string, game *domain.Game, before int, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, view.NewGame(game, caller, before))
}
