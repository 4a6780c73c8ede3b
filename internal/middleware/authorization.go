package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// RequireAdmin rejects requests whose identity is not an authenticated
// admin. It must run after AuthMiddleware.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r.Context())
			if err := identity.RequireAdmin(); err != nil {
				logger.Warn("Admin route denied",
					zap.String("user_id", identity.UserID.String()),
					zap.String("role", string(identity.Role)),
					zap.String("path", r.URL.Path),
				)
				RespondWithDomainError(w, err, logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
