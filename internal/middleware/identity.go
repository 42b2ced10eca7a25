package middleware

import (
	"context"

	"clinic-booking/internal/model"
)

type ctxKey string

const identityKey ctxKey = "identity"

// Identity is the authenticated actor of a request.
type Identity struct {
	AccountID string
	Role      model.Role
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.AccountID != ""
}
