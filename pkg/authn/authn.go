// Package authn resolves the caller identity from a bearer token. The
// platform's session issuer mints the tokens; this service only verifies
// them and extracts the subject and role.
package authn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kaeptnchris246/eut-v1-sub002/pkg/httpx"
)

var ErrUnauthorized = errors.New("unauthorized")

const (
	RoleInvestor   = "investor"
	RoleAdmin      = "admin"
	RoleSPVManager = "spv_manager"
)

type Identity struct {
	UserID string
	Role   string
}

// FromBearer verifies an Authorization header value and returns the caller
// identity. Tokens must be HS256-signed with the shared secret; the subject
// claim is the user id, the role claim defaults to investor.
func FromBearer(authorization, secret string) (*Identity, error) {
	token, ok := parseBearerToken(authorization)
	if !ok || secret == "" {
		return nil, ErrUnauthorized
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return nil, ErrUnauthorized
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrUnauthorized
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrUnauthorized
	}
	role, _ := claims["role"].(string)
	if role == "" {
		role = RoleInvestor
	}
	return &Identity{UserID: sub, Role: role}, nil
}

func parseBearerToken(authorization string) (string, bool) {
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(*Identity)
	return id, ok
}

// Middleware authenticates every request on the wrapped routes and stores
// the identity in the request context.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := FromBearer(r.Header.Get("Authorization"), secret)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
