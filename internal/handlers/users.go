package handlers

import (
	"net/http"

	"awsugmdu-backend/internal/service/user"
	"awsugmdu-backend/pkg/api"

	"github.com/go-chi/chi/v5"
)

// UserHandler handles /users requests.
type UserHandler struct {
	base
	users user.Service
}

func NewUserHandler(users user.Service, b base) *UserHandler {
	return &UserHandler{base: b, users: users}
}

func (h *UserHandler) Routes(r chi.Router) {
	r.Get("/{userID}", h.Get)
	r.Put("/{userID}", h.UpdateProfile)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, u)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in user.UpdateProfileInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	u, err := h.users.UpdateProfile(r.Context(), chi.URLParam(r, "userID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, u)
}
