package handler

import (
	"net/http"

	"github.com/hundredandten/server/internal/domain"
)

// UserRequest is the body of POST and PUT /users/self
type UserRequest struct {
	Name       string `json:"name"`
	PictureURL string `json:"picture_url"`
}

// SearchUsers lists users whose name contains searchText
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.Search(r.Context(), r.URL.Query().Get("searchText"), 0)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	h.writeSuccess(w, users)
}

// CreateSelf stores the caller's profile unless one exists
func (h *Handler) CreateSelf(w http.ResponseWriter, r *http.Request) {
	user, ok := h.selfFromRequest(w, r)
	if !ok {
		return
	}
	stored, err := h.users.Create(r.Context(), user)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, stored)
}

// PutSelf replaces the caller's profile
func (h *Handler) PutSelf(w http.ResponseWriter, r *http.Request) {
	user, ok := h.selfFromRequest(w, r)
	if !ok {
		return
	}
	stored, err := h.users.Put(r.Context(), user)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSuccess(w, stored)
}

// selfFromRequest builds the caller's profile from the body, falling back to
// the token's name and picture
func (h *Handler) selfFromRequest(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	var req UserRequest
	if err := decodeBody(r, &req, true); err != nil {
		h.writeError(w, err)
		return domain.User{}, false
	}

	id := identityFrom(r)
	user := domain.User{Identifier: id.ID, Name: req.Name, PictureURL: req.PictureURL}
	if user.Name == "" {
		user.Name = id.Name
	}
	if user.PictureURL == "" {
		user.PictureURL = id.Picture
	}
	return user, true
}
