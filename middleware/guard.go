package middleware

import (
	"context"
	"net/http"
	"strings"

	goGate "github.com/MrEthical07/goGate"
)

type claimsContextKey struct{}

type tokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (goGate.TokenClaims, error)
}

// ClaimsFromContext returns the claims attached by Guard.
func ClaimsFromContext(ctx context.Context) (goGate.TokenClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(goGate.TokenClaims)
	return claims, ok
}

// Guard rejects requests without a valid bearer access token and attaches
// the verified claims to the request context.
func Guard(engine *goGate.Engine) func(http.Handler) http.Handler {
	return guard(engine, false)
}

// RequireSuperuser is Guard that additionally requires the superuser claim.
func RequireSuperuser(engine *goGate.Engine) func(http.Handler) http.Handler {
	return guard(engine, true)
}

func guard(engine tokenValidator, superuser bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := engine.ValidateAccessToken(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if superuser && !claims.Superuser {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
