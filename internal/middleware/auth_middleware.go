package middleware

import (
	"context"
	"net/http"
	"strings"

	"boulder-editor/pkg/jwt"
	"boulder-editor/pkg/response"
)

type contextKey string

const EditorIDKey contextKey = "editorID"

// TokenValidator checks an access token. Enabled reports whether the guard
// is active at all.
type TokenValidator interface {
	Enabled() bool
	ValidateToken(token string) (*jwt.Claims, error)
}

func AuthMiddleware(auth TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Enabled() || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := auth.ValidateToken(parts[1])
			if err != nil {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), EditorIDKey, claims.EditorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetEditorID(r *http.Request) string {
	editorID, ok := r.Context().Value(EditorIDKey).(string)
	if !ok {
		return ""
	}
	return editorID
}
