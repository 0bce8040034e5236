package middleware

import (
	"context"
	"net/http"

	goTMDB "github.com/MrEthical07/goTMDB"
)

// DefaultSessionCookie is the cookie RequireSessionCookie reads when name is empty.
const DefaultSessionCookie = "gotmdb_session"

// RequireSessionCookie admits requests whose cookie holds the handle of a live
// stored session. Every request reads the session store.
func RequireSessionCookie(engine *goTMDB.Engine, name string) func(http.Handler) http.Handler {
	if name == "" {
		name = DefaultSessionCookie
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			cookie, err := r.Cookie(name)
			if err != nil || cookie.Value == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			sess, err := engine.SessionByHandle(r.Context(), cookie.Value)
			if err != nil {
				writeGuardError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
