package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/readypay/backend/internal/auth"
	"github.com/readypay/backend/internal/services"
)

type contextKey string

const claimsKey contextKey = "claims"

const unauthorizedMessage = "unauthorized access"

// Auth rejects requests without a valid bearer token and stores the decoded
// claims in the request context.
func Auth(issuer auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				services.SendErrorResponse(w, unauthorizedMessage, http.StatusUnauthorized, nil)
				return
			}

			claims, err := issuer.Verify(r.Context(), token)
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, auth.ErrExpiredToken) && !errors.Is(err, auth.ErrRevokedToken) {
					log.Printf("[AUTH] Token verification failed: %v", err)
				}
				services.SendErrorResponse(w, unauthorizedMessage, http.StatusUnauthorized, nil)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// Claims returns the claims stored by Auth, or nil outside a guarded route.
func Claims(ctx context.Context) jwt.MapClaims {
	claims, _ := ctx.Value(claimsKey).(jwt.MapClaims)
	return claims
}

// UserID returns the userId claim of the authenticated caller.
func UserID(ctx context.Context) string {
	return auth.UserID(Claims(ctx))
}
