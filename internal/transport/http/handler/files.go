package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/Eldan-star/ResearchCollab/internal/application/upload"
	"github.com/Eldan-star/ResearchCollab/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// FileHandler handles profile photo and project attachment endpoints.
type FileHandler struct {
	svc upload.Service
}

func NewFileHandler(svc upload.Service) *FileHandler { return &FileHandler{svc: svc} }

// UploadPhoto accepts a multipart form with a "file" part and stores it as
// the caller's profile photo.
func (h *FileHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart 'file' part required")
		return
	}
	defer file.Close()
	f, err := h.svc.UploadPhoto(r.Context(), claims.UserID, header.Filename, file)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// UploadAttachment stores a project attachment; the caller must be a project
// participant.
func (h *FileHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart 'file' part required")
		return
	}
	defer file.Close()
	f, err := h.svc.UploadAttachment(r.Context(), claims.UserID, chi.URLParam(r, "id"), header.Filename, file)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rc, f, err := h.svc.Download(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", f.Type)
	w.Header().Set("Content-Disposition", `attachment; filename="`+f.Name+`"`)
	_, _ = io.Copy(w, rc)
}

// SignedURL returns a time-limited S3 URL for direct download.
func (h *FileHandler) SignedURL(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	url, err := h.svc.PresignedURL(r.Context(), claims.UserID, chi.URLParam(r, "id"), 15*time.Minute)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Delete(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "file deleted"})
}
