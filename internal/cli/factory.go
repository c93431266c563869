// Package cli wires configuration into a running gateway for the ussdflow command.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/ussdflow"
	"github.com/aretw0/ussdflow/internal/config"
	"github.com/aretw0/ussdflow/internal/runtime"
	"github.com/aretw0/ussdflow/pkg/action"
	"github.com/aretw0/ussdflow/pkg/adapters/httpclient"
	"github.com/aretw0/ussdflow/pkg/adapters/memory"
	"github.com/aretw0/ussdflow/pkg/adapters/redis"
	"github.com/aretw0/ussdflow/pkg/observability"
	"github.com/aretw0/ussdflow/pkg/persistence/middleware"
	"github.com/aretw0/ussdflow/pkg/ports"
	"github.com/aretw0/ussdflow/pkg/session"
)

const lockGrace = 5 * time.Second

// Stack is a fully wired gateway and its supporting parts.
type Stack struct {
	Gateway *ussdflow.Gateway
	Metrics *observability.Metrics
	Sweeper *session.Sweeper
	Store   ports.SessionStore

	closers []func() error
}

// Close releases backend connections.
func (s *Stack) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build creates the session store, executor and gateway described by cfg
// and loads every configured definition.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Stack, error) {
	stack := &Stack{Metrics: observability.NewMetrics(prometheus.NewRegistry())}

	store, locker, err := stack.openStore(ctx, cfg.Store)
	if err != nil {
		_ = stack.Close()
		return nil, err
	}
	stack.Store = store

	managerOpts := []session.Option{
		session.WithLogger(logger),
		session.WithEvictHook(stack.Metrics.OnEvict),
	}
	if locker != nil {
		// A lock must outlive the slowest turn.
		managerOpts = append(managerOpts,
			session.WithLocker(locker),
			session.WithLockTTL(cfg.Engine.EventTimeout+lockGrace),
		)
	}
	sessions := session.NewManager(store, managerOpts...)
	stack.Sweeper = session.NewSweeper(sessions,
		session.WithInterval(cfg.Engine.SweepInterval),
		session.WithSweepLogger(logger),
	)

	client := httpclient.New(cfg.Client.ConnectTimeout,
		httpclient.WithMaxBodyBytes(cfg.Client.MaxBodyBytes),
		httpclient.WithLogger(logger),
	)
	executor := action.NewExecutor(client,
		action.WithLogger(logger),
		action.WithBackoff(cfg.Client.BackoffBase, cfg.Client.BackoffMax),
	)

	hooks := stack.Metrics.Hooks()
	if logger.Enabled(ctx, slog.LevelDebug) {
		hooks = observability.Chain(hooks, observability.LogHooks(logger))
	}

	stack.Gateway = ussdflow.New(sessions, executor,
		ussdflow.WithLogger(logger),
		ussdflow.WithLifecycleHooks(hooks),
		ussdflow.WithMessages(ussdflow.Messages{
			InvalidChoice: cfg.Engine.Messages.InvalidChoice,
			GenericError:  cfg.Engine.Messages.GenericError,
			Goodbye:       cfg.Engine.Messages.Goodbye,
		}),
		ussdflow.WithEngineOptions(
			runtime.WithEventTimeout(cfg.Engine.EventTimeout),
			runtime.WithMaxHops(cfg.Engine.MaxHops),
		),
	)

	for _, path := range cfg.Definitions {
		if _, err := stack.Gateway.LoadFile(path); err != nil {
			_ = stack.Close()
			return nil, fmt.Errorf("load definition: %w", err)
		}
	}
	return stack, nil
}

func (s *Stack) openStore(ctx context.Context, cfg config.StoreConfig) (ports.SessionStore, ports.DistributedLocker, error) {
	var (
		store  ports.SessionStore
		locker ports.DistributedLocker
	)
	switch cfg.Backend {
	case config.StoreRedis:
		opts := []redis.Option{}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		if err := rs.Client().Ping(ctx).Err(); err != nil {
			_ = rs.Client().Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		s.closers = append(s.closers, rs.Client().Close)
		store, locker = rs, redis.NewLocker(rs.Client(), rs.Prefix())
	default:
		store = memory.NewStore()
	}

	active, fallback, err := cfg.Keys()
	if err != nil {
		return nil, nil, err
	}
	if active != nil {
		store = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})(store)
	}
	return store, locker, nil
}
