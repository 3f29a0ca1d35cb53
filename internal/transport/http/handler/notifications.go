package handler

import (
	"net/http"
	"strconv"

	"github.com/Eldan-star/ResearchCollab/internal/application/notification"
	"github.com/Eldan-star/ResearchCollab/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// NotificationHandler serves the paged notification feed and read-marking.
type NotificationHandler struct {
	svc      notification.Service
	pageSize int
}

func NewNotificationHandler(svc notification.Service, pageSize int) *NotificationHandler {
	return &NotificationHandler{svc: svc, pageSize: pageSize}
}

// List returns one page, newest first, plus the independently queried unread
// count. ?page= is 1-based.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	items, err := h.svc.ListPage(r.Context(), claims.UserID, page, h.pageSize)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	unread, err := h.svc.CountUnread(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NotificationPageEnvelope{
		Page:    page,
		PerPage: h.pageSize,
		HasMore: len(items) == h.pageSize,
		Unread:  unread,
		Data:    items,
	})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	unread, err := h.svc.CountUnread(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": unread})
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.MarkRead(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "marked read"})
}

func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.MarkAllRead(r.Context(), claims.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "all marked read"})
}
