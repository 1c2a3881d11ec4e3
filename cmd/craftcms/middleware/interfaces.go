package middleware

import (
	"context"
)

// SessionValidator resolves a session token to the user holding it
type SessionValidator interface {
	SessionUser(ctx context.Context, token string) (uint, bool, error)
}
