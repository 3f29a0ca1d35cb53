package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Eldan-star/ResearchCollab/internal/application/account"
)

// PasswordRecoveryHandler drives the email-OTP password reset flow.
type PasswordRecoveryHandler struct {
	svc account.Service
}

func NewPasswordRecoveryHandler(svc account.Service) *PasswordRecoveryHandler {
	return &PasswordRecoveryHandler{svc: svc}
}

// Request mails a recovery OTP. The response does not reveal whether the
// email is registered.
func (h *PasswordRecoveryHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}
	_ = h.svc.ResetPasswordForEmail(r.Context(), req.Email)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "if the email is registered, an OTP was sent"})
}

func (h *PasswordRecoveryHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		OTP         string `json:"otp"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.OTP == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "email, otp, and new_password required")
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if err := h.svc.ChangePasswordWithOTP(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password changed"})
}
