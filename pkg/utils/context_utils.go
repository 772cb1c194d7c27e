package utils

import (
	"context"

	"crm-system/internal/authz"
	"crm-system/pkg/contextkeys"
	apperrors "crm-system/pkg/errors"
)

// WithActor stores the authenticated actor; called once by the auth middleware.
func WithActor(ctx context.Context, actor authz.Actor) context.Context {
	return context.WithValue(ctx, contextkeys.ActorKey, actor)
}

func GetActorFromCtx(ctx context.Context) (authz.Actor, error) {
	actor, ok := ctx.Value(contextkeys.ActorKey).(authz.Actor)
	if !ok || actor.ID == "" {
		return authz.Actor{}, apperrors.ErrActorNotFoundInContext
	}
	return actor, nil
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextkeys.RequestIDKey, requestID)
}

// RequestIDFromCtx returns "" outside an HTTP request.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(contextkeys.RequestIDKey).(string)
	return id
}
