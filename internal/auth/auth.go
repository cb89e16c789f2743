// Package auth defines the authentication capability the handlers depend
// on. Real credential verification is not implemented, the handlers are
// wired with the Static development stand-in which accepts every request.
package auth

import (
	"context"
	"errors"
)

// ErrUnauthenticated the credential could not be verified
var ErrUnauthenticated = errors.New("credential could not be verified")

// Identity the verified caller
type Identity struct {
	ID   string
	Role string
}

// Authenticator verifies a bearer credential and resolves the caller.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (*Identity, error)
}

// Static is a development stand-in which accepts any credential and
// reports a fixed identity. It must never ship as the default in a real
// deployment.
type Static struct {
	Identity Identity
}

// Authenticate always succeeds
func (s Static) Authenticate(_ context.Context, _ string) (*Identity, error) {
	id := s.Identity
	return &id, nil
}
