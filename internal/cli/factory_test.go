package cli

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/ussdflow/internal/config"
	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/pkg/adapters/memory"
	"github.com/aretw0/ussdflow/pkg/domain"
)

const transferDef = "../../pkg/definition/testdata/transfer.yaml"

func TestBuild_Memory(t *testing.T) {
	cfg := config.Default()
	cfg.Definitions = []string{transferDef}

	stack, err := Build(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	defer stack.Close()

	assert.IsType(t, &memory.Store{}, stack.Store)
	require.Len(t, stack.Gateway.Services(), 1)
	assert.Equal(t, "TRANSFER", stack.Gateway.Services()[0].ServiceCode)
}

func TestBuild_RedisWithEncryption(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Definitions = []string{transferDef}
	cfg.Store.Backend = config.StoreRedis
	cfg.Store.Redis.Addr = mr.Addr()
	cfg.Store.Redis.Prefix = "test:"
	cfg.Store.EncryptionKey = base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))

	ctx := context.Background()
	stack, err := Build(ctx, cfg, logging.NewNop())
	require.NoError(t, err)
	defer stack.Close()

	resp, err := stack.Gateway.Handle(ctx, domain.Event{SessionID: "s1", ServiceCode: "TRANSFER", PhoneNumber: "+22500000009"})
	require.NoError(t, err)
	assert.Equal(t, "Numero du beneficiaire", resp.Message)

	raw, err := mr.Get("test:session:s1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "+22500000009", "phone number is sealed at rest")

	sess, err := stack.Store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "+22500000009", sess.PhoneNumber)
}

func TestBuild_Errors(t *testing.T) {
	cfg := config.Default()
	cfg.Definitions = []string{"does-not-exist.yaml"}
	_, err := Build(context.Background(), cfg, logging.NewNop())
	assert.Error(t, err)

	cfg = config.Default()
	cfg.Store.Backend = config.StoreRedis
	cfg.Store.Redis.Addr = "127.0.0.1:1"
	_, err = Build(context.Background(), cfg, logging.NewNop())
	assert.ErrorContains(t, err, "connect to redis")
}
