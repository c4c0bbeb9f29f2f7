package auth

import (
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/finance-dashboard/internal"
	"github.com/frahmantamala/finance-dashboard/internal/transport"
)

// RBACAuthorization gates routes on the principal's role flags. It must be
// mounted behind AuthMiddleware.
type RBACAuthorization struct {
	*transport.BaseHandler
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{BaseHandler: transport.NewBaseHandler(logger)}
}

// RequireAdmin lets administrators through and answers 403 ADMIN_REQUIRED
// for everyone else.
func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.require(func(u *User) bool { return u.IsAdmin }, errors.ErrAdminRequired)
}

func (ra *RBACAuthorization) require(allowed func(*User) bool, denied error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				ra.Logger.Warn("RBAC: no principal on request", "path", r.URL.Path)
				ra.HandleServiceError(w, errors.ErrInvalidToken)
				return
			}
			if !allowed(user) {
				ra.Logger.WarnContext(r.Context(), "RBAC: access denied", "user_id", user.ID, "path", r.URL.Path)
				ra.HandleServiceError(w, denied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
