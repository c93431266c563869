package ports

import (
	"context"
	"time"

	"github.com/aretw0/ussdflow/pkg/domain"
)

// SessionStore defines the interface for persisting sessions.
type SessionStore interface {
	// Save persists the session under sess.ID, replacing any previous value.
	Save(ctx context.Context, sess *domain.Session) error

	// Load retrieves the session for a given ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Session, error)

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// Expired lists the IDs of sessions whose deadline is at or before now.
	// The result is a candidate set; callers re-check under lock before evicting.
	Expired(ctx context.Context, now time.Time) ([]string, error)
}
