package authctx

import "context"

type ctxKey struct{}

// WithSubject stores the authenticated token subject in ctx.
func WithSubject(ctx context.Context, subject string) context.Context {
	if subject == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, subject)
}

// Subject returns the authenticated token subject, if present.
func Subject(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxKey{}).(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
