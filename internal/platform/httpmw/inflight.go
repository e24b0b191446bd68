package httpmw

import (
	"net/http"
)

// InFlightLimit bounds concurrent in-flight requests and answers 503 with
// Retry-After once the bound is reached instead of queueing.
func InFlightLimit(max int, next http.Handler) http.Handler {
	if max <= 0 {
		return next
	}

	sem := make(chan struct{}, max)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
			next.ServeHTTP(w, r)
		default:
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable)
		}
	})
}
