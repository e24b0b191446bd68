package httpmw

import (
	"net/http"
	"strings"

	"dbcheck/internal/platform/authctx"
	"dbcheck/internal/platform/authjwt"
)

// TokenParser is satisfied by *authjwt.Service.
type TokenParser interface {
	Parse(token string) (*authjwt.Claims, error)
}

// AuthBearer validates an Authorization: Bearer <token> header and stores the
// token subject in context.
func AuthBearer(tokens TokenParser, next http.Handler) http.Handler {
	if tokens == nil {
		// If misconfigured, fail closed.
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusServiceUnavailable)
		})
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearer(r.Header.Get("Authorization"))
		if !ok {
			unauthorized(w)
			return
		}
		claims, err := tokens.Parse(tok)
		if err != nil {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(authctx.WithSubject(r.Context(), claims.Subject)))
	})
}

// WithAuth adapts AuthBearer into a Middleware. A nil parser disables auth.
func WithAuth(tokens TokenParser) Middleware {
	if tokens == nil {
		return nil
	}
	return func(next http.Handler) http.Handler {
		return AuthBearer(tokens, next)
	}
}

func bearer(h string) (string, bool) {
	const prefix = "bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="dbcheck"`)
	writeError(w, http.StatusUnauthorized)
}
