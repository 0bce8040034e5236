package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	goTMDB "github.com/MrEthical07/goTMDB"
)

type sessionContextKey struct{}

// SessionFromContext returns the session attached by a guard.
func SessionFromContext(ctx context.Context) (*goTMDB.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*goTMDB.Session)
	return sess, ok
}

// Guard admits requests carrying a valid handoff ticket as a bearer token.
func Guard(engine *goTMDB.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ticket, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			sess, err := engine.ValidateTicket(r.Context(), ticket)
			if err != nil {
				writeGuardError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeGuardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, goTMDB.ErrTicketInvalid), errors.Is(err, goTMDB.ErrSessionNotFound):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, goTMDB.ErrTicketDisabled):
		http.Error(w, "tickets disabled", http.StatusInternalServerError)
	default:
		http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
