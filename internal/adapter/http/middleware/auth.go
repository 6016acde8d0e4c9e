package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/iho/escrowledger/internal/domain"
	"github.com/iho/escrowledger/internal/infrastructure/auth"
)

// AccountHeader names the caller's account when authentication is disabled.
const AccountHeader = "X-Ledger-Account"

// Authenticate attaches the identity proven by a bearer token to the request
// context. Requests without credentials pass through anonymously; a bad token
// is rejected.
func Authenticate(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized,
					fmt.Errorf("%w: invalid authorization header format", domain.ErrUnauthorized))
				return
			}

			claims, err := jwtManager.Verify(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, err)
				return
			}

			ctx := withIdentity(r.Context(), claims.Identity())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TrustAccountHeader takes the caller identity from AccountHeader. It is only
// mounted when authentication is disabled.
func TrustAccountHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get(AccountHeader)
		if name == "" {
			next.ServeHTTP(w, r)
			return
		}

		if err := domain.ValidateAccountName(name); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		ctx := withIdentity(r.Context(), &domain.Identity{Name: name})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
