package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Eldan-star/ResearchCollab/internal/application/account"
	"github.com/Eldan-star/ResearchCollab/internal/domain"
	"github.com/Eldan-star/ResearchCollab/internal/pkg/validate"
	"github.com/Eldan-star/ResearchCollab/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// UserHandler handles registration and profile endpoints.
type UserHandler struct {
	svc account.Service
}

func NewUserHandler(svc account.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.SignUp(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	msg := "account created"
	if result.ConfirmationRequired {
		msg = "account created, email confirmation required"
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{Message: msg})
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// Anonymous profiles hide identifying fields from everyone but the owner.
	if p.IsAnonymous {
		if claims, ok := middleware.ClaimsFromContext(r.Context()); !ok || claims.UserID != p.UserID {
			p.FullName = "Anonymous"
			p.Institution = ""
			p.PhotoKey = nil
		}
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateProfile applies a partial update to the caller's own profile and
// returns the authoritative row.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	targetID := chi.URLParam(r, "id")
	if claims.UserID != targetID && claims.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "cannot update another user's profile")
		return
	}
	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.svc.UpdateProfile(r.Context(), targetID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
