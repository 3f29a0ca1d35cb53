package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Eldan-star/ResearchCollab/internal/application/account"
)

// EmailConfirmHandler completes the sign-up email confirmation flow.
type EmailConfirmHandler struct {
	svc account.Service
}

func NewEmailConfirmHandler(svc account.Service) *EmailConfirmHandler {
	return &EmailConfirmHandler{svc: svc}
}

func (h *EmailConfirmHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Token  string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.Token == "" {
		writeError(w, http.StatusBadRequest, "user_id and token required")
		return
	}
	if err := h.svc.ConfirmEmail(r.Context(), req.UserID, req.Token); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "email confirmed"})
}
