package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract is a reusable test suite that verifies if an adapter complies with ports.SessionStore.
func RunSessionStoreContract(t *testing.T, store ports.SessionStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	cfg := domain.SessionConfig{TimeoutSeconds: 60, MaxInactivitySeconds: 30}

	t.Run("Save and Load", func(t *testing.T) {
		sess := domain.NewSession("contract-save", "PAY", "+22500000001", "MAIN", cfg, base)
		sess.Variables["amount"] = "500"

		require.NoError(t, store.Save(ctx, sess))

		loaded, err := store.Load(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, "MAIN", loaded.CurrentStateID)
		assert.Equal(t, "500", loaded.Variables["amount"])
		assert.Equal(t, domain.StatusAwaitingInput, loaded.Status)
		assert.True(t, loaded.CreatedAt.Equal(base))
		assert.Equal(t, 30*time.Second, loaded.IdleTimeout)
		assert.Equal(t, time.Minute, loaded.MaxLifetime)
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		sess := domain.NewSession("contract-copy", "PAY", "", "MAIN", cfg, base)
		require.NoError(t, store.Save(ctx, sess))

		loaded, err := store.Load(ctx, sess.ID)
		require.NoError(t, err)
		loaded.Variables["leak"] = "x"

		again, err := store.Load(ctx, sess.ID)
		require.NoError(t, err)
		assert.NotContains(t, again.Variables, "leak")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "contract-missing")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		sess := domain.NewSession("contract-delete", "PAY", "", "MAIN", cfg, base)
		require.NoError(t, store.Save(ctx, sess))

		require.NoError(t, store.Delete(ctx, sess.ID))
		_, err := store.Load(ctx, sess.ID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sess.ID), "Delete is idempotent")
	})

	t.Run("Expired", func(t *testing.T) {
		idle := domain.NewSession("contract-idle", "PAY", "", "MAIN", cfg, base)
		fresh := domain.NewSession("contract-fresh", "PAY", "", "MAIN", cfg, base)
		fresh.Touch(base.Add(25 * time.Second))
		old := domain.NewSession("contract-old", "PAY", "", "MAIN", cfg, base.Add(-50*time.Second))
		old.Touch(base.Add(20 * time.Second))
		for _, s := range []*domain.Session{idle, fresh, old} {
			require.NoError(t, store.Save(ctx, s))
		}
		defer func() {
			for _, s := range []*domain.Session{idle, fresh, old} {
				_ = store.Delete(ctx, s.ID)
			}
		}()

		ids, err := store.Expired(ctx, base.Add(31*time.Second))
		require.NoError(t, err)
		assert.Contains(t, ids, idle.ID, "idle for more than 30s")
		assert.Contains(t, ids, old.ID, "older than 60s")
		assert.NotContains(t, ids, fresh.ID)
	})

	t.Run("Save refreshes deadline", func(t *testing.T) {
		sess := domain.NewSession("contract-refresh", "PAY", "", "MAIN", cfg, base)
		require.NoError(t, store.Save(ctx, sess))
		defer func() { _ = store.Delete(ctx, sess.ID) }()

		sess.Touch(base.Add(20 * time.Second))
		require.NoError(t, store.Save(ctx, sess))

		ids, err := store.Expired(ctx, base.Add(35*time.Second))
		require.NoError(t, err)
		assert.NotContains(t, ids, sess.ID)
	})
}
