package common

import "context"

type ctxKey string

const identityKey ctxKey = "auth/identity"

// Identity is the verified caller attached by the auth gate.
type Identity struct {
	UID   string
	Email string
}

// WithIdentity stores the authenticated identity on the provided context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom extracts the authenticated identity from the context if present.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	v := ctx.Value(identityKey)
	if v == nil {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok && id.UID != ""
}
