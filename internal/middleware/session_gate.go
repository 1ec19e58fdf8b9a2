package middleware

import (
	"net/http"

	"github.com/mkovacevic/shopfront/internal/auth"

	log "github.com/sirupsen/logrus"
)

// SessionGate protects mutating and identity-revealing routes. It runs
// strictly before the wrapped handler: an unauthenticated request is
// redirected to the login page without any handler side effect. A
// missing, forged and expired session all look the same to the client.
func SessionGate(authService *auth.Service, cookies *auth.CookieCodec) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := cookies.Read(r)
			if !ok {
				log.Tracef("[missing session] unauthenticated => %s", r.URL.Path)
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			principal, err := authService.Authorize(r.Context(), token)
			if err != nil {
				log.Tracef("[invalid session] unauthenticated => %s", r.URL.Path)
				cookies.Clear(w)
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			ctx := auth.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
