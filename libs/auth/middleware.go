package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/dentalcare/libs/httpx"
)

type ctxKey int

const ctxKeyClaims ctxKey = iota

func ContextWithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ctxKeyClaims, c)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKeyClaims).(*Claims)
	return c, ok && c != nil
}

// Authenticator verifies bearer tokens for the routes it wraps.
type Authenticator struct {
	secret string
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: secret}
}

// Require rejects requests without a valid token (401) or whose role is not
// in roles (403). An empty roles list admits any authenticated caller.
func (a *Authenticator) Require(roles ...string) httpx.Middleware {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if !strings.HasPrefix(header, "Bearer ") || token == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
				return
			}
			claims, err := ParseAndVerifyHS256(token, a.secret)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if len(allowed) > 0 {
				if _, ok := allowed[claims.Role]; !ok {
					httpx.WriteError(w, http.StatusForbidden, "forbidden")
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}
