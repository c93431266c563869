package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/ports"
	"github.com/aretw0/ussdflow/pkg/session"
	"github.com/aretw0/ussdflow/pkg/validation"
)

const (
	// DefaultEventTimeout caps the time spent on actions for one inbound event.
	DefaultEventTimeout = 30 * time.Second
	// DefaultMaxHops bounds automatic PROCESSING chains within one event.
	DefaultMaxHops = 32
)

// PhoneNumberVar is the session variable seeded with the subscriber MSISDN.
const PhoneNumberVar = "phoneNumber"

// Messages are the engine's own user-facing texts.
type Messages struct {
	// InvalidChoice is prepended to the prompt when no transition matches.
	InvalidChoice string
	// GenericError replaces internal failures the definition does not handle.
	GenericError string
	// Goodbye is shown when a transition targets END without a message.
	Goodbye string
}

// DefaultMessages returns the built-in texts.
func DefaultMessages() Messages {
	return Messages{
		InvalidChoice: "Choix invalide.",
		GenericError:  "Erreur lors de l'opération",
		Goodbye:       "Merci d'avoir utilisé notre service.",
	}
}

// Engine interprets one definition against a stream of events.
// It is safe for concurrent use: events of one session are serialized by
// the session manager, events of different sessions run in parallel.
type Engine struct {
	def       *domain.Definition
	sessions  *session.Manager
	executor  ports.ActionExecutor
	validator *validation.Validator

	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	messages     Messages
	eventTimeout time.Duration
	maxHops      int
	now          func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(h domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// WithValidator replaces the input validator.
func WithValidator(v *validation.Validator) Option {
	return func(e *Engine) {
		if v != nil {
			e.validator = v
		}
	}
}

// WithMessages overrides the built-in texts. Empty fields keep their default.
func WithMessages(m Messages) Option {
	return func(e *Engine) {
		if m.InvalidChoice != "" {
			e.messages.InvalidChoice = m.InvalidChoice
		}
		if m.GenericError != "" {
			e.messages.GenericError = m.GenericError
		}
		if m.Goodbye != "" {
			e.messages.Goodbye = m.Goodbye
		}
	}
}

// WithEventTimeout sets the per-event ceiling on action execution.
func WithEventTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.eventTimeout = d
		}
	}
}

// WithMaxHops bounds how many states one event may traverse.
func WithMaxHops(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxHops = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine for def.
func NewEngine(def *domain.Definition, sessions *session.Manager, executor ports.ActionExecutor, opts ...Option) *Engine {
	e := &Engine{
		def:          def,
		sessions:     sessions,
		executor:     executor,
		validator:    validation.New(),
		logger:       logging.NewNop(),
		messages:     DefaultMessages(),
		eventTimeout: DefaultEventTimeout,
		maxHops:      DefaultMaxHops,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("service", def.ServiceCode)
	return e
}

// Definition returns the automaton this engine runs.
func (e *Engine) Definition() *domain.Definition { return e.def }

// Handle applies one inbound event and returns the message for the subscriber.
// The returned error is reserved for infrastructure failures (store, lock);
// the response then carries the generic error message and terminates.
func (e *Engine) Handle(ctx context.Context, ev domain.Event) (domain.Response, error) {
	start := e.now()
	resp := domain.Response{SessionID: ev.SessionID}
	if ev.SessionID == "" {
		return resp, fmt.Errorf("event without session id")
	}

	t := &turn{
		event: ev,
		log:   e.logger.With("session_id", ev.SessionID),
	}

	err := e.sessions.WithLock(ctx, ev.SessionID, func(ctx context.Context, tx *session.Tx) error {
		budget, cancel := context.WithTimeout(ctx, e.eventTimeout)
		defer cancel()
		t.tx, t.budget = tx, budget
		var err error
		resp, err = e.handleLocked(ctx, t)
		return err
	})
	if err != nil {
		t.outcome = outcomeError
		t.log.Error("event handling failed", "err", err)
		resp = domain.Response{SessionID: ev.SessionID, Message: e.messages.GenericError, Terminated: true}
	}

	if e.hooks.OnEvent != nil {
		e.hooks.OnEvent(ctx, &domain.HandledEvent{
			EventBase: e.eventBase(domain.EventHandled, ev.SessionID),
			Outcome:   t.outcome,
			Duration:  e.now().Sub(start),
		})
	}
	return resp, err
}

// Abort ends a session on behalf of the network (user hung up, release).
func (e *Engine) Abort(ctx context.Context, sessionID string) error {
	return e.sessions.WithLock(ctx, sessionID, func(ctx context.Context, tx *session.Tx) error {
		sess, err := tx.Get(ctx)
		if err != nil {
			return err
		}
		if err := tx.Delete(ctx); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		e.emitSessionEnd(ctx, sess, domain.EndAborted)
		return nil
	})
}

// loadActive returns the live session for the turn, or an error explaining
// why a new dialogue must start.
func (e *Engine) loadActive(ctx context.Context, t *turn) (*domain.Session, error) {
	sess, err := t.tx.Get(ctx)
	if err != nil {
		return nil, err
	}
	switch {
	case sess.Status == domain.StatusTerminated:
		err = domain.ErrSessionTerminated
	case sess.Expired(e.now()):
		e.emitSessionEnd(ctx, sess, domain.EndExpired)
		err = fmt.Errorf("session expired at %s: %w", sess.Deadline().Format(time.RFC3339), domain.ErrSessionTerminated)
	case sess.ServiceCode != e.def.ServiceCode:
		err = fmt.Errorf("session belongs to service %q: %w", sess.ServiceCode, domain.ErrSessionTerminated)
	default:
		return sess, nil
	}
	if derr := t.tx.Delete(ctx); derr != nil {
		return nil, fmt.Errorf("discard stale session: %w", derr)
	}
	return nil, err
}

func (e *Engine) handleLocked(ctx context.Context, t *turn) (domain.Response, error) {
	sess, err := e.loadActive(ctx, t)
	switch {
	case err == nil:
		t.sess = sess
		return e.continueDialogue(ctx, t)
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSessionTerminated):
		if !errors.Is(err, domain.ErrSessionNotFound) {
			t.log.Debug("starting over", "reason", err)
		}
		return e.startDialogue(ctx, t)
	default:
		return domain.Response{}, fmt.Errorf("load session: %w", err)
	}
}

func (e *Engine) eventBase(typ domain.EventType, sessionID string) domain.EventBase {
	return domain.EventBase{
		Timestamp:   e.now(),
		Type:        typ,
		ServiceCode: e.def.ServiceCode,
		SessionID:   sessionID,
	}
}

func (e *Engine) emitStateEnter(ctx context.Context, sess *domain.Session, st domain.State) {
	if e.hooks.OnStateEnter == nil {
		return
	}
	e.hooks.OnStateEnter(ctx, &domain.StateEvent{
		EventBase: e.eventBase(domain.EventStateEnter, sess.ID),
		StateID:   st.Base().ID,
		StateType: st.Kind(),
	})
}

func (e *Engine) emitSessionEnd(ctx context.Context, sess *domain.Session, reason domain.EndReason) {
	if e.hooks.OnSessionEnd == nil {
		return
	}
	e.hooks.OnSessionEnd(ctx, &domain.SessionEndEvent{
		EventBase: e.eventBase(domain.EventSessionEnd, sess.ID),
		StateID:   sess.CurrentStateID,
		Reason:    reason,
	})
}
