package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/ussdflow/pkg/domain"
)

// Chain returns hooks that call every non-nil hook of hs in order.
func Chain(hs ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hs {
		out.OnEvent = chain(out.OnEvent, h.OnEvent)
		out.OnStateEnter = chain(out.OnStateEnter, h.OnStateEnter)
		out.OnActionCall = chain(out.OnActionCall, h.OnActionCall)
		out.OnActionReturn = chain(out.OnActionReturn, h.OnActionReturn)
		out.OnSessionEnd = chain(out.OnSessionEnd, h.OnSessionEnd)
	}
	return out
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}

// LogHooks writes an audit trail of the dialogue at debug level, and
// failed actions and ended sessions at info level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter: func(ctx context.Context, e *domain.StateEvent) {
			logger.DebugContext(ctx, "state_enter",
				"service", e.ServiceCode,
				"session_id", e.SessionID,
				"state", e.StateID,
				"type", e.StateType)
		},
		OnActionReturn: func(ctx context.Context, e *domain.ActionEvent) {
			level := slog.LevelDebug
			if e.Status != domain.APISuccess {
				level = slog.LevelInfo
			}
			logger.Log(ctx, level, "action_return",
				"service", e.ServiceCode,
				"session_id", e.SessionID,
				"state", e.StateID,
				"method", e.Method,
				"endpoint", e.Endpoint,
				"status", e.Status,
				"attempts", e.Attempts,
				"duration", e.Duration)
		},
		OnSessionEnd: func(ctx context.Context, e *domain.SessionEndEvent) {
			logger.InfoContext(ctx, "session_end",
				"service", e.ServiceCode,
				"session_id", e.SessionID,
				"state", e.StateID,
				"reason", e.Reason)
		},
	}
}
