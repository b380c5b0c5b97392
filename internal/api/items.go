package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/erazemk/najdeno/internal/claims"
	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
	"github.com/erazemk/najdeno/internal/validate"
)

// ItemsHandler handles lost and found item endpoints.
type ItemsHandler struct {
	Claims    *claims.Service
	Validator *validate.Validator
}

type createItemRequest struct {
	Kind        string `json:"kind" validate:"itemkind"`
	Title       string `json:"title" validate:"notblank,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Category    string `json:"category" validate:"max=64"`
	Location    string `json:"location" validate:"max=200"`
}

// pathRef reads {ref} as "kind:id" or as a bare legacy id.
func (h *ItemsHandler) pathRef(r *http.Request) (model.ItemRef, error) {
	return h.Claims.ResolveRef(r.Context(), r.PathValue("ref"))
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if !bind(w, r, h.Validator, &req) {
		return
	}

	actor, _ := ActorFrom(r.Context())
	item, err := h.Claims.PostItem(r.Context(), actor, store.NewItem{
		Kind:        model.ItemKind(req.Kind),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonData(w, http.StatusCreated, item, "item posted")
}

// List handles GET /api/items?kind=&status=&category=&owner_id=.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := model.ItemKind(q.Get("kind"))
	if !kind.Valid() {
		jsonError(w, http.StatusBadRequest, "validation", "kind must be lost or found")
		return
	}

	f := store.ItemFilter{
		Status:   model.ItemStatus(q.Get("status")),
		Category: q.Get("category"),
	}
	if v := q.Get("owner_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "validation", "invalid owner_id")
			return
		}
		f.OwnerID = id
	}

	items, err := h.Claims.Items(r.Context(), kind, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonData(w, http.StatusOK, items, "")
}

// Get handles GET /api/items/{ref}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ref, err := h.pathRef(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.Claims.Item(r.Context(), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonData(w, http.StatusOK, item, "")
}

type ownerFunc func(ctx context.Context, ref model.ItemRef, actor model.Actor) (*model.Item, error)

// ownerAction adapts an owner-only service call to a handler for
// POST /api/items/{ref}/archive, /restore and /return.
func (h *ItemsHandler) ownerAction(action ownerFunc, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := h.pathRef(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		actor, _ := ActorFrom(r.Context())
		item, err := action(r.Context(), ref, actor)
		if err != nil {
			writeError(w, r, err)
			return
		}
		jsonData(w, http.StatusOK, item, message)
	}
}

// Delete handles DELETE /api/items/{ref}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ref, err := h.pathRef(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	actor, _ := ActorFrom(r.Context())
	if err := h.Claims.DeleteItem(r.Context(), ref, actor); err != nil {
		writeError(w, r, err)
		return
	}
	jsonData(w, http.StatusOK, nil, "item deleted")
}

// UploadEvidence handles POST /api/evidence.
func (h *ItemsHandler) UploadEvidence(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "validation", "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", "image file required")
		return
	}
	defer file.Close()

	actor, _ := ActorFrom(r.Context())
	ev, err := h.Claims.UploadEvidence(r.Context(), actor, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonData(w, http.StatusCreated, ev, "evidence uploaded")
}

// GetEvidence handles GET /api/evidence/{id}.
func (h *ItemsHandler) GetEvidence(w http.ResponseWriter, r *http.Request) {
	data, mime, err := h.Claims.Evidence(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
