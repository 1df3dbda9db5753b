package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/code-compass/internal/model"
)

// contextKey is an unexported type used for context keys in this package,
// so no other package can read or shadow the stored Identity.
type contextKey string

const identityKey contextKey = "identity"

// ErrMissingToken is returned by TokenFromRequest when no credential was sent.
var ErrMissingToken = errors.New("auth: no token provided")

// RequireAuth rejects requests without a valid bearer token. Missing or
// invalid tokens get 401 UNAUTHORIZED, expired tokens 401 TOKEN_EXPIRED.
// On success the Identity is stored in the request context.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := Authenticate(r, tokens)
			if err != nil {
				writeAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuth stores the Identity when a valid token is present and lets
// anonymous requests through untouched.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, err := Authenticate(r, tokens); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole must run after RequireAuth. It answers 403 FORBIDDEN when
// the authenticated identity does not hold role.
func RequireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Access denied. No token provided.")
				return
			}
			if id.Role != role {
				writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "You do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate extracts and validates the request's token.
func Authenticate(r *http.Request, tokens *TokenService) (Identity, error) {
	raw, err := TokenFromRequest(r)
	if err != nil {
		return Identity{}, err
	}
	return tokens.Validate(raw)
}

// TokenFromRequest reads "Authorization: Bearer <jwt>", falling back to the
// "token" query parameter for websocket handshakes, where browsers cannot
// set headers.
func TokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", ErrInvalidToken
		}
		return strings.TrimSpace(token), nil
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// UserIDFromContext retrieves the authenticated user's ID from the request context.
// Returns ("", false) if the request is anonymous.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := IdentityFromContext(ctx)
	return id.UserID, ok
}

func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTokenExpired):
		writeJSONError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token expired")
	case errors.Is(err, ErrMissingToken):
		writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Access denied. No token provided.")
	default:
		writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
	}
}

// writeJSONError writes the API error envelope. It lives here rather than
// in the handler package so that the middleware has no upward import.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error": map[string]string{
			"message": message,
			"code":    code,
		},
	})
}
