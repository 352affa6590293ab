package identity

import (
	"context"
	"errors"
)

var ErrUnauthenticated = errors.New("unauthenticated")

type Identity struct {
	UserID      string
	DisplayName string
}

// Resolver looks a caller's identity up from the external session store.
// Implementations return ErrUnauthenticated for unknown or expired tokens.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}
