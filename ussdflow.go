package ussdflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/internal/runtime"
	"github.com/aretw0/ussdflow/pkg/definition"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/ports"
	"github.com/aretw0/ussdflow/pkg/registry"
	"github.com/aretw0/ussdflow/pkg/session"
)

// Messages are the texts the engine shows on its own behalf.
type Messages = runtime.Messages

// Gateway is the high-level entry point of the library.
// It routes events to the engine of their service and shares one session
// manager and one action executor between all services.
type Gateway struct {
	registry   *registry.Registry
	sessions   *session.Manager
	executor   ports.ActionExecutor
	logger     *slog.Logger
	messages   Messages
	engineOpts []runtime.Option
}

// Option defines a functional option for configuring the Gateway.
type Option func(*Gateway)

// WithLifecycleHooks registers observability hooks on every loaded service.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(g *Gateway) {
		g.engineOpts = append(g.engineOpts, runtime.WithLifecycleHooks(hooks))
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMessages overrides the built-in texts.
func WithMessages(m Messages) Option {
	return func(g *Gateway) {
		g.engineOpts = append(g.engineOpts, runtime.WithMessages(m))
		if m.GenericError != "" {
			g.messages.GenericError = m.GenericError
		}
	}
}

// WithEngineOptions passes options to every engine the gateway creates.
func WithEngineOptions(opts ...runtime.Option) Option {
	return func(g *Gateway) {
		g.engineOpts = append(g.engineOpts, opts...)
	}
}

// New creates a gateway with no services loaded.
func New(sessions *session.Manager, executor ports.ActionExecutor, opts ...Option) *Gateway {
	g := &Gateway{
		registry: registry.NewRegistry(),
		sessions: sessions,
		executor: executor,
		logger:   logging.NewNop(),
		messages: runtime.DefaultMessages(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Load registers def, replacing any service with the same code.
func (g *Gateway) Load(def *domain.Definition) error {
	opts := append([]runtime.Option{runtime.WithLogger(g.logger)}, g.engineOpts...)
	eng := runtime.NewEngine(def, g.sessions, g.executor, opts...)
	if err := g.registry.Register(eng); err != nil {
		return fmt.Errorf("register %s: %w", def.ServiceCode, err)
	}
	g.logger.Info("service loaded", "service", def.ServiceCode, "ussd_code", def.USSDCode, "states", len(def.States()))
	return nil
}

// LoadFile loads, checks and registers the definition at path.
// Lint findings are logged as warnings.
func (g *Gateway) LoadFile(path string) (*domain.Definition, error) {
	def, err := definition.Load(path)
	if err != nil {
		return nil, err
	}
	for _, w := range definition.Lint(def) {
		g.logger.Warn("definition lint", "service", def.ServiceCode, "path", path, "warning", w)
	}
	return def, g.Load(def)
}

// Handle routes ev to its service. An ongoing session stays with the
// service that started it unless the event names another one.
func (g *Gateway) Handle(ctx context.Context, ev domain.Event) (domain.Response, error) {
	svc, err := g.route(ctx, ev)
	if err != nil {
		g.logger.Warn("event not routed", "session_id", ev.SessionID, "ussd_code", ev.USSDCode, "err", err)
		return domain.Response{SessionID: ev.SessionID, Message: g.messages.GenericError, Terminated: true}, err
	}
	return svc.Handle(ctx, ev)
}

func (g *Gateway) route(ctx context.Context, ev domain.Event) (registry.Service, error) {
	if ev.SessionID == "" {
		return nil, fmt.Errorf("event without session id")
	}
	if ev.ServiceCode == "" {
		sess, err := g.sessions.Get(ctx, ev.SessionID)
		switch {
		case err == nil:
			if svc, err := g.registry.Lookup(sess.ServiceCode); err == nil {
				return svc, nil
			}
		case !errors.Is(err, domain.ErrSessionNotFound):
			return nil, fmt.Errorf("load session: %w", err)
		}
	}
	return g.registry.Resolve(ev)
}

// Abort ends sessionID, as when the network releases the dialogue.
func (g *Gateway) Abort(ctx context.Context, sessionID string) error {
	sess, err := g.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	svc, err := g.registry.Lookup(sess.ServiceCode)
	if err != nil {
		// The service was unloaded; drop the orphan.
		return g.sessions.Delete(ctx, sessionID)
	}
	return svc.Abort(ctx, sessionID)
}

// Services returns the loaded definitions ordered by service code.
func (g *Gateway) Services() []*domain.Definition {
	svcs := g.registry.Services()
	out := make([]*domain.Definition, len(svcs))
	for i, svc := range svcs {
		out[i] = svc.Definition()
	}
	return out
}

// Sessions exposes the session manager, e.g. to run a sweeper.
func (g *Gateway) Sessions() *session.Manager { return g.sessions }
