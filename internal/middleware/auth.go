package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"clothes-shop/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	IdentityKey contextKey = "identity"
)

// AuthMiddleware validates JWT tokens and stores the caller identity in the
// request context
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract token from Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("Missing authorization header")
				RespondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			// Check for Bearer token format
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			identity, err := parseIdentity(parts[1], jwtSecret)
			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				if errors.Is(err, jwt.ErrTokenExpired) {
					RespondWithError(w, http.StatusUnauthorized, "token expired")
				} else {
					RespondWithError(w, http.StatusUnauthorized, "invalid token")
				}
				return
			}

			logger.Debug("User authenticated",
				zap.String("user_id", identity.UserID.String()),
				zap.String("role", string(identity.Role)),
				zap.Bool("superuser", identity.Superuser),
			)

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var errInvalidClaims = errors.New("invalid token claims")

func parseIdentity(tokenString, jwtSecret string) (domain.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return domain.Identity{}, err
	}
	if !token.Valid {
		return domain.Identity{}, jwt.ErrTokenSignatureInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Identity{}, errInvalidClaims
	}

	rawID, ok := claims["user_id"].(string)
	if !ok {
		return domain.Identity{}, errInvalidClaims
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return domain.Identity{}, errInvalidClaims
	}

	role, ok := claims["role"].(string)
	if !ok {
		return domain.Identity{}, errInvalidClaims
	}

	// Absent on tokens of regular accounts
	superuser, _ := claims["superuser"].(bool)

	return domain.Identity{
		UserID:    userID,
		Role:      domain.Role(role),
		Superuser: superuser,
	}, nil
}

// GetIdentity returns the authenticated caller, or the zero identity on
// routes without AuthMiddleware
func GetIdentity(ctx context.Context) domain.Identity {
	identity, _ := ctx.Value(IdentityKey).(domain.Identity)
	return identity
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	identity, ok := ctx.Value(IdentityKey).(domain.Identity)
	return identity.UserID, ok && identity.Authenticated()
}
