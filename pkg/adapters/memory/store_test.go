package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/ussdflow/pkg/adapters/memory"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/ports/tests"
)

func TestMemoryStore_Contract(t *testing.T) {
	tests.RunSessionStoreContract(t, memory.NewStore())
}

func TestMemoryStore_SingleShardContract(t *testing.T) {
	tests.RunSessionStoreContract(t, memory.NewShardedStore(0))
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	cfg := domain.SessionConfig{TimeoutSeconds: 60, MaxInactivitySeconds: 30}

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s-%d", i)
			sess := domain.NewSession(id, "PAY", "", "MAIN", cfg, time.Now())
			sess.Variables["n"] = fmt.Sprint(i)
			assert.NoError(t, store.Save(ctx, sess))
			got, err := store.Load(ctx, id)
			if assert.NoError(t, err) {
				assert.Equal(t, fmt.Sprint(i), got.Variables["n"])
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 64, store.Len())
}
