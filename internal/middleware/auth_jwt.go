package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer   = "bookforge"
	tokenAudience = "bookforge-clients"
	tokenTTL      = 24 * time.Hour
)

// SessionClaims are the claims carried by a session token. Sub is the
// profile ID.
type SessionClaims struct {
	Plan string `json:"plan"`
	jwt.RegisteredClaims
}

type profileKey string

const profileIDKey profileKey = "profile_id"

// SignSession issues an HS256 session token for a profile.
func SignSession(secret, profileID, plan string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Plan: plan,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profileID,
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseSession validates a session token and returns its claims.
func ParseSession(secret, token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}

// Auth requires a valid Bearer session token and stores the profile ID in
// the request context.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			claims, err := ParseSession(secret, strings.TrimSpace(token))
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithProfileID(r.Context(), claims.Subject)))
		})
	}
}

// WithProfileID stamps the authenticated profile ID onto a context.
func WithProfileID(ctx context.Context, profileID string) context.Context {
	return context.WithValue(ctx, profileIDKey, profileID)
}

// ProfileIDFromContext returns the authenticated profile ID, or "" when the
// request carried no valid session.
func ProfileIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(profileIDKey).(string); ok {
		return v
	}
	return ""
}
