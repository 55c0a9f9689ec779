package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jeevandhara/bloodbank/internal/auth"
	"github.com/jeevandhara/bloodbank/internal/models"
	"github.com/jeevandhara/bloodbank/pkg/logger"
)

// Context keys for user information.
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// UserEmailKey is the context key for the authenticated user email.
	UserEmailKey contextKey = "user_email"
	// UserRoleKey is the context key for the authenticated user role.
	UserRoleKey contextKey = "user_role"
)

// GetUserID extracts the user ID from the request context.
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(UserIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetUserEmail extracts the user email from the request context.
func GetUserEmail(ctx context.Context) string {
	if v := ctx.Value(UserEmailKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetUserRole extracts the user role from the request context.
func GetUserRole(ctx context.Context) models.Role {
	if v := ctx.Value(UserRoleKey); v != nil {
		return v.(models.Role)
	}
	return ""
}

// AuthMiddleware validates bearer tokens and enforces roles.
type AuthMiddleware struct {
	authService *auth.Service
	logger      *slog.Logger
}

// NewAuthMiddleware creates an authentication middleware.
func NewAuthMiddleware(authService *auth.Service, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		logger:      logger,
	}
}

// Authenticate validates the JWT in the Authorization header and stores the
// identity in the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeUnauthorized(w, "Missing authentication")
			return
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			m.logger.Debug("token validation failed", "error", err)
			if errors.Is(err, auth.ErrExpiredToken) {
				writeUnauthorized(w, "Token has expired")
				return
			}
			writeUnauthorized(w, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
		ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
		// downstream log lines pick the user up via logger.WithContext
		ctx = logger.ContextWithUserID(ctx, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole returns a middleware admitting only the given roles. It must
// run after Authenticate.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := allowed[GetUserRole(r.Context())]; !ok {
				writeForbidden(w, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"code":"unauthorized","message":"` + message + `"}`))
}

func writeForbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"code":"forbidden","message":"` + message + `"}`))
}
