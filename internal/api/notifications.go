package api

import (
	"net/http"
	"strconv"

	"github.com/erazemk/najdeno/internal/notify"
)

// NotificationsHandler serves the caller's own notifications.
type NotificationsHandler struct {
	Feed *notify.Feed
}

// List handles GET /api/notifications?unread=.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	actor, _ := ActorFrom(r.Context())

	list, err := h.Feed.List(r.Context(), actor.ID, unread)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonData(w, http.StatusOK, list, "")
}

// MarkRead handles PUT /api/notifications/{id}/read.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(r)
	if !valid {
		jsonError(w, http.StatusBadRequest, "validation", "invalid notification id")
		return
	}
	actor, _ := ActorFrom(r.Context())
	if err := h.Feed.MarkRead(r.Context(), actor.ID, id); err != nil {
		writeError(w, r, err)
		return
	}
	jsonData(w, http.StatusOK, nil, "notification marked read")
}

// MarkAllRead handles PUT /api/notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	n, err := h.Feed.MarkAllRead(r.Context(), actor.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonData(w, http.StatusOK, map[string]int64{"updated": n}, "notifications marked read")
}

// UnreadCount handles GET /api/notifications/unread-count.
func (h *NotificationsHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	n, err := h.Feed.UnreadCount(r.Context(), actor.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonData(w, http.StatusOK, map[string]int{"count": n}, "")
}
