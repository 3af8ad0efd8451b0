package auth

import "context"

var _ Checker = (*Service)(nil)

// Checker resolves a session token to its session.
type Checker interface {
	Session(ctx context.Context, token string) (*Session, error)
}
