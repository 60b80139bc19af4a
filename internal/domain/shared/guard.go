package shared

import (
	"context"
	"time"
)

// CreationGuard prevents a second concurrent invoice-creation attempt for the
// same wizard session. Acquire returns false when an attempt is already in
// flight; Release clears the flag once the attempt finishes either way.
type CreationGuard interface {
	// Acquire marks a creation attempt in flight for the session key.
	// Returns true if this caller holds the flag, false if another attempt
	// already does.
	Acquire(ctx context.Context, sessionKey string, ttl time.Duration) (bool, error)

	// Release clears the in-flight flag for the session key
	Release(ctx context.Context, sessionKey string) error
}
