// Package lock serializes work per key with a bounded wait.
package lock

import (
	"context"
	"errors"
	"time"
)

var ErrTimeout = errors.New("lock: wait timed out")

// Locker hands out exclusive per-key leases. Acquire waits at most wait and
// returns ErrTimeout after that; release is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string, wait time.Duration) (release func(), err error)
}
