package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/claims"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/notify"
	"github.com/erazemk/najdeno/internal/validate"
)

// Deps are the collaborators the API needs.
type Deps struct {
	DB     *sql.DB
	Claims *claims.Service
	Tokens *auth.Issuer
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()
	v := validate.New()

	now := d.Claims.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	authHandler := &AuthHandler{DB: d.DB, Tokens: d.Tokens, Validator: v}
	usersHandler := &UsersHandler{DB: d.DB, Validator: v}
	itemsHandler := &ItemsHandler{Claims: d.Claims, Validator: v}
	claimsHandler := &ClaimsHandler{Claims: d.Claims, Validator: v}
	notificationsHandler := &NotificationsHandler{Feed: &notify.Feed{DB: d.DB, Now: now}}
	auditHandler := &AuditHandler{DB: d.DB}

	authMW := AuthMiddleware(d.Tokens, d.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireModerator := RequireRole(model.RoleModerator)

	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Items: anyone may post; owner checks happen in the service.
	mux.Handle("POST /api/items", authed(itemsHandler.Create))
	mux.Handle("GET /api/items", authed(itemsHandler.List))
	mux.Handle("GET /api/items/{ref}", authed(itemsHandler.Get))
	mux.Handle("POST /api/items/{ref}/archive", authed(itemsHandler.ownerAction(d.Claims.Archive, "item archived")))
	mux.Handle("POST /api/items/{ref}/restore", authed(itemsHandler.ownerAction(d.Claims.Restore, "item restored")))
	mux.Handle("POST /api/items/{ref}/return", authed(itemsHandler.ownerAction(d.Claims.MarkReturned, "item marked returned")))
	mux.Handle("DELETE /api/items/{ref}", authed(itemsHandler.Delete))

	// Evidence images.
	mux.Handle("POST /api/evidence", authed(itemsHandler.UploadEvidence))
	mux.Handle("GET /api/evidence/{id}", authed(itemsHandler.GetEvidence))

	// Claims.
	mux.Handle("POST /api/claims", authed(claimsHandler.File))
	mux.Handle("GET /api/claims", authed(claimsHandler.List))
	mux.Handle("GET /api/claims/analytics", authMW(requireModerator(http.HandlerFunc(claimsHandler.Analytics))))
	mux.Handle("GET /api/claims/{id}", authed(claimsHandler.Get))
	mux.Handle("PUT /api/claims/{id}/review", authMW(requireModerator(http.HandlerFunc(claimsHandler.Review))))
	mux.Handle("DELETE /api/claims/{id}", authed(claimsHandler.Withdraw))

	// Notifications (own only).
	mux.Handle("GET /api/notifications", authed(notificationsHandler.List))
	mux.Handle("GET /api/notifications/unread-count", authed(notificationsHandler.UnreadCount))
	mux.Handle("PUT /api/notifications/read-all", authed(notificationsHandler.MarkAllRead))
	mux.Handle("PUT /api/notifications/{id}/read", authed(notificationsHandler.MarkRead))

	// Audit log (moderator+).
	mux.Handle("GET /api/audit", authMW(requireModerator(http.HandlerFunc(auditHandler.List))))

	return mux
}
