// Package actor carries the identity of whoever started a request through
// its context.
package actor

import "context"

type contextKey struct{}

// Header is the HTTP header API clients use to name themselves.
const Header = "X-Conductor-Actor"

// WithActor returns a context that carries the given actor ID, such as an
// API client name or a CLI user. An empty ID leaves ctx unchanged.
func WithActor(ctx context.Context, actorID string) context.Context {
	if actorID == "" {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, actorID)
}

// Actor returns the actor ID from the context, or empty string if not set.
func Actor(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(contextKey{}).(string)
	return s
}
