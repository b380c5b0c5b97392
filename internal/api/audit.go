package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/najdeno/internal/audit"
	"github.com/erazemk/najdeno/internal/model"
)

// AuditHandler lists moderation history.
type AuditHandler struct {
	DB *sql.DB
}

// List handles GET /api/audit?moderator_id=&action=&target_type=&target_id=.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.AuditFilter{
		Action:     model.AuditAction(q.Get("action")),
		TargetType: q.Get("target_type"),
		TargetID:   q.Get("target_id"),
	}
	if v := q.Get("moderator_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "validation", "invalid moderator_id")
			return
		}
		f.ModeratorID = id
	}

	entries, err := audit.List(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonData(w, http.StatusOK, entries, "")
}
