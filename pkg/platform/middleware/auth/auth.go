// Package auth verifies bearer tokens on approver-facing endpoints and places
// the caller's identity in the request context. Token issuance is out of
// scope; this service only verifies signatures and extracts the subject.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "orgportal/pkg/domain"
)

type contextKeyUserID struct{}

// GetUserID retrieves the authenticated caller's user ID from the context.
// Returns the zero value if the request was not authenticated.
func GetUserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(contextKeyUserID{}).(id.UserID); ok {
		return userID
	}
	return ""
}

// WithUserID returns a context carrying the given user ID. Exported for tests
// exercising handlers below the middleware.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, contextKeyUserID{}, userID)
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireToken rejects requests without a valid HS256 bearer token and stores
// the token subject in the context as the caller's user ID.
func RequireToken(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := callerFromRequest(r, signingKey)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access", "error", err, "path", r.URL.Path)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "valid bearer token required")
				return
			}

			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func callerFromRequest(r *http.Request, signingKey string) (id.UserID, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", fmt.Errorf("authorization header is not a bearer token")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(signingKey), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("token has no subject")
	}

	userID, err := id.ParseUserID(subject)
	if err != nil {
		return "", fmt.Errorf("invalid subject: %w", err)
	}
	return userID, nil
}
