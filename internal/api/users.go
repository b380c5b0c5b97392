package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
	"github.com/erazemk/najdeno/internal/validate"
)

// UsersHandler handles user management endpoints (admin only).
type UsersHandler struct {
	DB        *sql.DB
	Validator *validate.Validator
}

type createUserRequest struct {
	Username string `json:"username" validate:"notblank,max=64"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"role"`
}

type updateUserRequest struct {
	Role string `json:"role" validate:"role"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonData(w, http.StatusOK, users, "")
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !bind(w, r, h.Validator, &req) {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Username, string(hash), req.Role)
	if store.IsUniqueViolation(err) {
		jsonError(w, http.StatusBadRequest, "conflict", "username already exists")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	slog.InfoContext(r.Context(), "user created", "user", actor.Username, "new_user", req.Username, "role", req.Role)
	jsonData(w, http.StatusCreated, user, "user created")
}

// Update handles PUT /api/users/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", "invalid user id")
		return
	}

	var req updateUserRequest
	if !bind(w, r, h.Validator, &req) {
		return
	}

	if err := store.UpdateUser(r.Context(), h.DB, id, req.Role); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}

	actor, _ := ActorFrom(r.Context())
	slog.InfoContext(r.Context(), "user role updated", "user", actor.Username, "target_user", user.Username, "new_role", req.Role)
	jsonData(w, http.StatusOK, user, "user updated")
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", "invalid user id")
		return
	}

	// Prevent self-deletion.
	actor, _ := ActorFrom(r.Context())
	if actor.ID == id {
		jsonError(w, http.StatusBadRequest, "validation", "cannot delete yourself")
		return
	}

	target, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if target == nil || target.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "user deleted", "user", actor.Username, "deleted_user", target.Username)
	jsonData(w, http.StatusOK, nil, "user deleted")
}
