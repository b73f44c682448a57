package http

import (
	"context"
	"net/http"
	"strings"

	"expenseflow/internal/core"
	"expenseflow/internal/log"
)

type ctxKey int

const userKey ctxKey = iota

// Authenticator resolves a session token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (core.User, error)
}

// bearerToken reads "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// requireAuth rejects requests without a valid session and stores the
// session user in the request context.
func requireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.Authenticate(r.Context(), bearerToken(r))
			if err != nil {
				writeError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, user.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// currentUser returns the user stored by requireAuth.
func currentUser(ctx context.Context) (core.User, bool) {
	u, ok := ctx.Value(userKey).(core.User)
	return u, ok
}
