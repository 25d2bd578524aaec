/*
auth.go - Bearer-token authentication middleware

PURPOSE:
  Resolves the Authorization header to a promo.User and stashes it in the
  request context. Every /api route runs behind this; handlers read the
  caller back with CallerFrom and feed it to the policy predicates.

STATUS MAPPING:
  Missing or unknown token -> 401 (unauthenticated)
  Known caller, denied op  -> 403 (handlers, via policy checks)

SEE ALSO:
  - promo/policy.go: Authorization predicates
  - server.go: Middleware wiring
*/
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/loyaltyworks/promo-ledger/promo"
)

type ctxKey int

const callerKey ctxKey = iota

// Authenticator resolves bearer tokens against the user store.
func Authenticator(users promo.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Authentication required", nil)
				return
			}

			caller, err := users.GetUserByToken(r.Context(), token)
			if err != nil {
				if promo.IsNotFound(err) {
					writeError(w, http.StatusUnauthorized, "Invalid token", nil)
					return
				}
				writeError(w, http.StatusInternalServerError, "Failed to authenticate", err)
				return
			}

			ctx := context.WithValue(r.Context(), callerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// CallerFrom returns the authenticated caller placed by Authenticator.
// Nil only if the middleware did not run (programming error).
func CallerFrom(ctx context.Context) *promo.User {
	caller, _ := ctx.Value(callerKey).(*promo.User)
	return caller
}
