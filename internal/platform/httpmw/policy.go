package httpmw

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Middleware is a standard net/http middleware signature.
type Middleware func(http.Handler) http.Handler

// Chain applies its first element outermost. Nil entries are skipped, so
// optional middleware (WithAuth(nil), WithRateLimit(nil)) can sit in a literal.
type Chain []Middleware

func (c Chain) Then(h http.Handler) http.Handler {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i] != nil {
			h = c[i](h)
		}
	}
	return h
}

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxInFlight = 512
)

// EdgePolicy describes the middleware stack of a public listener.
type EdgePolicy struct {
	// ServiceName names the otelhttp server spans.
	ServiceName string

	Timeout     time.Duration // zero means 30s
	MaxInFlight int           // zero means 512

	// Outer runs before RequestID. Use sparingly.
	Outer Chain

	// Leaf runs closest to the handler, inside the edge chain. Rate limiting
	// and auth belong here when they apply to every route.
	Leaf Chain
}

// BuildEdgeHandler wraps next in, outer to inner:
//
//	Outer..., RequestID, Wrap, Recover, SecurityHeaders, Timeout, InFlightLimit, Leaf..., next
//
// RequestID sits outside Wrap so the access log and the request logger carry it.
func BuildEdgeHandler(log *zap.Logger, p EdgePolicy, next http.Handler) http.Handler {
	if p.ServiceName == "" {
		p.ServiceName = "service"
	}
	if p.Timeout <= 0 {
		p.Timeout = defaultTimeout
	}
	if p.MaxInFlight <= 0 {
		p.MaxInFlight = defaultMaxInFlight
	}

	h := p.Leaf.Then(next)
	h = InFlightLimit(p.MaxInFlight, h)
	h = Timeout(p.Timeout, h)
	h = SecurityHeaders(h)
	h = Recover(log, h)
	h = Wrap(p.ServiceName, log, h)
	h = RequestID(h)
	return p.Outer.Then(h)
}
