package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/najdeno/internal/claims"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/validate"
)

// ClaimsHandler handles claim filing, review and analytics.
type ClaimsHandler struct {
	Claims    *claims.Service
	Validator *validate.Validator
}

type fileClaimRequest struct {
	ItemKind   string `json:"item_kind" validate:"itemkind"`
	ItemID     int64  `json:"item_id" validate:"required,min=1"`
	Proof      string `json:"proof" validate:"notblank,max=4000"`
	EvidenceID string `json:"evidence_id" validate:"omitempty,uuid"`
}

type reviewRequest struct {
	Decision string `json:"decision" validate:"decision"`
	Notes    string `json:"notes" validate:"max=2000"`
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// File handles POST /api/claims.
func (h *ClaimsHandler) File(w http.ResponseWriter, r *http.Request) {
	var req fileClaimRequest
	if !bind(w, r, h.Validator, &req) {
		return
	}

	actor, _ := ActorFrom(r.Context())
	c, err := h.Claims.File(r.Context(), claims.FileRequest{
		Item:       model.ItemRef{Kind: model.ItemKind(req.ItemKind), ID: req.ItemID},
		ClaimantID: actor.ID,
		Proof:      req.Proof,
		EvidenceID: req.EvidenceID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonData(w, http.StatusCreated, c, "claim filed")
}

// List handles GET /api/claims?status=&claimant_id=&item=. Users other than
// moderators only ever see their own claims.
func (h *ClaimsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.ClaimFilter{Status: model.ClaimStatus(q.Get("status"))}

	if v := q.Get("claimant_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "validation", "invalid claimant_id")
			return
		}
		f.ClaimantID = id
	}
	if v := q.Get("item"); v != "" {
		ref, err := model.ParseItemRef(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "validation", err.Error())
			return
		}
		f.Item = &ref
	}

	actor, _ := ActorFrom(r.Context())
	if !actor.IsModerator() {
		f.ClaimantID = actor.ID
	}

	list, err := h.Claims.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonData(w, http.StatusOK, list, "")
}

// Get handles GET /api/claims/{id}. The claimant, the item owner and
// moderators may read a claim.
func (h *ClaimsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(r)
	if !valid {
		jsonError(w, http.StatusBadRequest, "validation", "invalid claim id")
		return
	}

	c, err := h.Claims.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	owner := c.Item != nil && c.Item.OwnerID == actor.ID
	if c.ClaimantID != actor.ID && !owner && !actor.IsModerator() {
		jsonError(w, http.StatusForbidden, "forbidden", "you cannot view this claim")
		return
	}
	jsonData(w, http.StatusOK, c, "")
}

// Review handles PUT /api/claims/{id}/review.
func (h *ClaimsHandler) Review(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(r)
	if !valid {
		jsonError(w, http.StatusBadRequest, "validation", "invalid claim id")
		return
	}

	var req reviewRequest
	if !bind(w, r, h.Validator, &req) {
		return
	}

	actor, _ := ActorFrom(r.Context())
	c, err := h.Claims.Resolve(r.Context(), claims.ResolveRequest{
		ClaimID:  id,
		Decision: model.ClaimStatus(req.Decision),
		Reviewer: actor,
		Notes:    req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonData(w, http.StatusOK, c, "claim "+req.Decision)
}

// Withdraw handles DELETE /api/claims/{id}.
func (h *ClaimsHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(r)
	if !valid {
		jsonError(w, http.StatusBadRequest, "validation", "invalid claim id")
		return
	}

	actor, _ := ActorFrom(r.Context())
	if err := h.Claims.Withdraw(r.Context(), id, actor); err != nil {
		writeError(w, r, err)
		return
	}
	jsonData(w, http.StatusOK, nil, "claim withdrawn")
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, v)
}

// Analytics handles GET /api/claims/analytics?from=&to=&status=.
func (h *ClaimsHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var rng claims.Range
	for key, dst := range map[string]*time.Time{"from": &rng.From, "to": &rng.To} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		t, err := parseTime(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "validation", key+" must be a date or RFC 3339 timestamp")
			return
		}
		*dst = t
	}

	a, err := h.Claims.Analytics(r.Context(), rng, model.ClaimStatus(q.Get("status")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonData(w, http.StatusOK, a, "")
}
