package auth

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// LoadSession attaches the visitor's session claims, if any, to the request context.
func (m *SessionManager) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.Current(r)
		if err != nil {
			if _, cerr := r.Cookie(SessionCookieName); cerr == nil {
				log.Debug().Err(err).Msg("Ignoring invalid session cookie")
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSession redirects anonymous visitors to loginPath.
func RequireSession(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := ClaimsFromContext(r.Context()); !ok {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
