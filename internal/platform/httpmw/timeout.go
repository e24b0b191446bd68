package httpmw

import (
	"context"
	"net/http"
	"time"
)

// timeoutGrace is how long a handler may keep writing after its context
// deadline before the JSON 503 backstop answers instead.
const timeoutGrace = 250 * time.Millisecond

// Timeout enforces a per-request deadline unless the request already carries
// one. Handlers that honor ctx answer with their own response; a handler still
// running timeoutGrace past the deadline gets the client a JSON 503.
func Timeout(d time.Duration, next http.Handler) http.Handler {
	if d <= 0 {
		return next
	}

	th := http.TimeoutHandler(next, d+timeoutGrace, errorBody(http.StatusServiceUnavailable))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); ok {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		th.ServeHTTP(w, r.WithContext(ctx))
	})
}
