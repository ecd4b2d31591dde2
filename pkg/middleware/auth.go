// Package middleware provides the HTTP middleware chain for the API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sesamoshop/tienda/app/models"
	"github.com/sesamoshop/tienda/internal/session"
	"github.com/sesamoshop/tienda/pkg/response"
)

type userKey struct{}

// Auth returns a middleware that requires a valid Bearer token issued by
// the session registry. The authenticated user is injected into the
// request context for CurrentUser.
func Auth(reg *session.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")
			if token == "" || token == header {
				response.Error(w, http.StatusUnauthorized, "Token requerido")
				return
			}

			user, err := reg.Validate(token)
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "Sesión inválida o expirada")
				return
			}

			ctx := context.WithValue(r.Context(), userKey{}, &user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUser returns the authenticated user injected by Auth, or nil when
// the request did not pass through it.
func CurrentUser(ctx context.Context) *models.PublicUser {
	u, _ := ctx.Value(userKey{}).(*models.PublicUser)
	return u
}
