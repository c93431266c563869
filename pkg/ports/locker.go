package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes events of one session across gateway replicas
// sharing a session store. The in-process per-session lock is taken first,
// so a replica contends only with other replicas.
type DistributedLocker interface {
	// Lock waits until key is free or ctx is done. The lock expires after ttl
	// if its holder dies; the returned UnlockFunc must always be called.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)

	// TryLock makes a single acquisition attempt and returns domain.ErrSessionBusy
	// when the key is held elsewhere.
	TryLock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
