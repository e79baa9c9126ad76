package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hundredandten/server/internal/domain"
	"github.com/hundredandten/server/internal/view"
)

// CreateLobbyRequest is the body of POST /lobbies
type CreateLobbyRequest struct {
	Name          string               `json:"name"`
	Accessibility domain.Accessibility `json:"accessibility"`
}

// SearchLobbiesRequest is the body of POST /lobbies/search
type SearchLobbiesRequest struct {
	SearchText string `json:"searchText"`
	Max        int    `json:"max"`
}

// InviteRequest is the body of POST /lobbies/{id}/invite
type InviteRequest struct {
	Invitees []string `json:"invitees"`
}

// CreateLobby opens a lobby organized by the caller
func (h *Handler) CreateLobby(w http.ResponseWriter, r *http.Request) {
	var req CreateLobbyRequest
	if err := decodeBody(r, &req, false); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Accessibility == "" {
		req.Accessibility = domain.Public
	}

	lobby, err := h.lobbies.Create(r.Context(), identityFrom(r).ID, req.Name, req.Accessibility)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, view.NewLobby(lobby))
}

// SearchLobbies lists lobbies visible to the caller whose name contains the
// search text
func (h *Handler) SearchLobbies(w http.ResponseWriter, r *http.Request) {
	var req SearchLobbiesRequest
	if err := decodeBody(r, &req, true); err != nil {
		h.writeError(w, err)
		return
	}

	criteria := domain.LobbyCriteria{Name: req.SearchText, Client: identityFrom(r).ID}
	lobbies, err := h.lobbies.Search(r.Context(), criteria, req.Max)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, view.NewLobbies(lobbies))
}

// GetLobby returns a lobby
func (h *Handler) GetLobby(w http.ResponseWriter, r *http.Request) {
	lobby, err := h.lobbies.Get(r.Context(), identityFrom(r).ID, chi.URLParam(r, "lobbyID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, view.NewLobby(lobby))
}

// GetLobbyPlayers returns the profiles of a lobby's players
func (h *Handler) GetLobbyPlayers(w http.ResponseWriter, r *http.Request) {
	ids, err := h.lobbies.PlayerIDs(r.Context(), identityFrom(r).ID, chi.URLParam(r, "lobbyID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeProfiles(w, r, ids)
}

// InviteToLobby invites people to a lobby
func (h *Handler) InviteToLobby(w http.ResponseWriter, r *http.Request) {
	var req InviteRequest
	if err := decodeBody(r, &req, false); err != nil {
		h.writeError(w, err)
		return
	}
	if len(req.Invitees) == 0 {
		h.writeError(w, fmt.Errorf("%w: invitees are required", domain.ErrInvalidRequest))
		return
	}

	lobby, err := h.lobbies.Invite(r.Context(), identityFrom(r).ID, chi.URLParam(r, "lobbyID"), req.Invitees...)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, view.NewLobby(lobby))
}

// JoinLobby adds the caller as a player
func (h *Handler) JoinLobby(w http.ResponseWriter, r *http.Request) {
	lobby, err := h.lobbies.Join(r.Context(), identityFrom(r).ID, chi.URLParam(r, "lobbyID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, view.NewLobby(lobby))
}

// LeaveLobby removes the caller from a lobby
func (h *Handler) LeaveLobby(w http.ResponseWriter, r *http.Request) {
	lobby, err := h.lobbies.Leave(r.Context(), identityFrom(r).ID, chi.URLParam(r, "lobbyID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, view.NewLobby(lobby))
}

// StartGame promotes a lobby to a game. Only the organizer may start.
func (h *Handler) StartGame(w http.ResponseWriter, r *http.Request) {
	caller := identityFrom(r).ID
	game, err := h.lobbies.Start(r.Context(), caller, chi.URLParam(r, "lobbyID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, view.NewGame(game, caller, 0))
}

// writeProfiles writes the user profiles of ids in order
func (h *Handler) writeProfiles(w http.ResponseWriter, r *http.Request, ids []string) {
	users, err := h.users.Profiles(r.Context(), ids)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, users)
}
