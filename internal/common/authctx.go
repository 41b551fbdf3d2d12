package common

import "context"

type ctxKey string

const actorKey ctxKey = "auth/actor"

// Actor is the authenticated caller attached to a request.
type Actor struct {
	UserID string
	Roles  []string
	Admin  bool
}

// WithActor stores the authenticated actor on the provided context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom extracts the authenticated actor from the context if present.
func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	if !ok || actor.UserID == "" {
		return Actor{}, false
	}
	return actor, true
}

// WithUserID stores a non-admin actor with the given identifier.
func WithUserID(ctx context.Context, id string) context.Context {
	return WithActor(ctx, Actor{UserID: id})
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	actor, ok := ActorFrom(ctx)
	return actor.UserID, ok
}
