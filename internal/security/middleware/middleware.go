package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/reservespace/backend/internal/security/audit"
	"github.com/reservespace/backend/internal/security/auth"
	"github.com/reservespace/backend/internal/security/ratelimit"
)

type ClaimsContextKey struct{}

// isPublicPath lists endpoints reachable without a token: auth, the public
// space catalogue, health, and metrics.
func isPublicPath(path string) bool {
	switch path {
	case "/api/health", "/readyz", "/metrics",
		"/api/auth/login", "/api/auth/register",
		"/api/spaces", "/api/spaces/available":
		return true
	// Browsers cannot set headers on WebSocket requests; the stream handler
	// validates its token query parameter itself.
	case "/ws/notifications":
		return true
	}
	// GET /api/spaces/{id} is public; deeper space paths (slots) are not.
	if strings.HasPrefix(path, "/api/spaces/") {
		rest := strings.TrimPrefix(path, "/api/spaces/")
		return !strings.Contains(rest, "/")
	}
	return false
}

func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// A presented token is always validated, even on public paths,
			// so admin checks further down see the caller's claims. Only the
			// absence of a token is tolerated on public paths.
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if isPublicPath(r.URL.Path) {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				log.Debug("token rejected", slog.String("error", err.Error()))
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			var userID int64
			if claims := GetClaimsFromContext(r.Context()); claims != nil {
				userID = claims.UserID
			}

			if !limiter.AllowUser(userID) {
				log.Warn("rate limit exceeded", slog.Int64("user_id", userID))
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var userID int64
			if claims := GetClaimsFromContext(r.Context()); claims != nil {
				userID = claims.UserID
			}

			if r.Method == http.MethodPost && r.URL.Path == "/api/reservations" {
				auditLog.LogAction(r.Context(), userID, "book", "reservation", 0, "initiated", "")
			}
			if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/cancel") {
				auditLog.LogAction(r.Context(), userID, "cancel", "reservation", 0, "initiated", "")
			}
			if r.Method == http.MethodDelete {
				auditLog.LogAction(r.Context(), userID, "delete", "resource", 0, "initiated", r.URL.Path)
			}

			next.ServeHTTP(w, r)
		})
	}
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c := ctx.Value(ClaimsContextKey{}); c != nil {
		return c.(*auth.Claims)
	}
	return nil
}
