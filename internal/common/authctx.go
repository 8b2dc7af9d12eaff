package common

import "context"

// userIDKey is unexported so only this package can write the value.
type userIDKey struct{}

// WithUserID stores the authenticated user's id string on the context.
// Handlers that need attribution (cart created_by, settlement closed_by)
// read it back with UserID.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserID returns the authenticated user id, if the auth middleware ran.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok
}
