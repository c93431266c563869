package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/aretw0/ussdflow/pkg/condition"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/session"
	"github.com/aretw0/ussdflow/pkg/validation"
)

// Outcome labels reported through the OnEvent hook.
const (
	outcomeStarted      = "started"
	outcomePrompted     = "prompted"
	outcomeInvalidInput = "invalid_input"
	outcomeNoMatch      = "no_match"
	outcomeCompleted    = "completed"
	outcomeFailed       = "failed"
	outcomeError        = "error"
)

// Synthetic inputs matched by the transitions of a PROCESSING state.
const (
	inputSuccess = "success"
	inputError   = "error"
)

// turn is the state of one event while it holds the session lock.
type turn struct {
	event   domain.Event
	tx      *session.Tx
	sess    *domain.Session
	log     *slog.Logger
	outcome string

	// budget bounds the actions of this event. It starts once the lock is held.
	budget context.Context

	// transient values are visible to templates for this event only.
	transient map[string]string
	// actionFailed is set when the last action of the turn did not succeed.
	actionFailed bool
}

func (e *Engine) startDialogue(ctx context.Context, t *turn) (domain.Response, error) {
	initial := e.def.InitialState()
	sess := domain.NewSession(t.event.SessionID, e.def.ServiceCode, t.event.PhoneNumber, initial.Base().ID, e.def.Session, e.now())
	if t.event.PhoneNumber != "" {
		sess.Variables[PhoneNumberVar] = t.event.PhoneNumber
	}
	t.sess = sess
	t.outcome = outcomeStarted
	t.log.Debug("session started", "state", initial.Base().ID)

	if e.isDialString(t.event.Text) || !domain.AwaitsInput(initial) {
		return e.enter(ctx, t, initial.Base().ID, "")
	}

	// Gateways that pass the first menu choice along with the dial string
	// land here: the text is the answer to the initial prompt.
	e.emitStateEnter(ctx, sess, initial)
	return e.answer(ctx, t, initial)
}

func (e *Engine) continueDialogue(ctx context.Context, t *turn) (domain.Response, error) {
	st, ok := e.def.State(t.sess.CurrentStateID)
	if !ok || !domain.AwaitsInput(st) {
		t.log.Warn("session positioned on a state that cannot take input, restarting", "state", t.sess.CurrentStateID)
		if err := t.tx.Delete(ctx); err != nil {
			return domain.Response{}, fmt.Errorf("discard session: %w", err)
		}
		return e.startDialogue(ctx, t)
	}
	return e.answer(ctx, t, st)
}

func (e *Engine) isDialString(text string) bool {
	return text == "" || (e.def.USSDCode != "" && text == e.def.USSDCode)
}

// answer applies the event text to st, a state awaiting input.
func (e *Engine) answer(ctx context.Context, t *turn, st domain.State) (domain.Response, error) {
	text := t.event.Text
	vars := maps.Clone(t.sess.Variables)

	var storeAs, value string
	if in, ok := st.(*domain.InputState); ok {
		v, err := e.validator.Validate(text, in.Validation)
		if err != nil {
			var verr *validation.ValidationError
			if errors.As(err, &verr) {
				t.log.Debug("input rejected", "state", in.ID, "rule", verr.RuleType, "reason", verr.Reason)
			}
			t.outcome = outcomeInvalidInput
			return e.pause(ctx, t, st, "", "")
		}
		storeAs, value = in.StoreAs, v
		vars[storeAs] = value
	}

	tr, ok := selectTransition(st, text, scopeOf(vars, text))
	if !ok {
		t.log.Debug("no transition matched", "state", st.Base().ID, "err", domain.ErrNoMatchingTransition)
		t.outcome = outcomeNoMatch
		return e.pause(ctx, t, st, "", e.messages.InvalidChoice)
	}
	if storeAs != "" {
		t.sess.Variables[storeAs] = value
	}
	return e.enter(ctx, t, tr.NextState, tr.Message)
}

// enter walks from nextID until the dialogue pauses or ends.
func (e *Engine) enter(ctx context.Context, t *turn, nextID, override string) (domain.Response, error) {
	for hops := 0; ; hops++ {
		if hops >= e.maxHops {
			t.log.Error("too many automatic transitions", "limit", e.maxHops, "state", t.sess.CurrentStateID)
			return e.finish(ctx, t, e.messages.GenericError, domain.EndFailed)
		}
		if nextID == domain.EndStateID {
			msg := override
			if msg == "" {
				msg = e.messages.Goodbye
			}
			return e.finish(ctx, t, e.render(t, msg), e.endReason(t))
		}

		st, ok := e.def.State(nextID)
		if !ok {
			return domain.Response{}, fmt.Errorf("state %q is not defined", nextID)
		}
		t.sess.CurrentStateID = nextID
		e.emitStateEnter(ctx, t.sess, st)

		switch s := st.(type) {
		case *domain.EndState:
			msg := override
			if msg == "" {
				msg = s.Message
			}
			return e.finish(ctx, t, e.render(t, msg), e.endReason(t))
		case *domain.InputState, *domain.MenuState:
			return e.pause(ctx, t, st, override, "")
		case *domain.ProcessingState:
			tr, msg, done := e.process(ctx, t, s)
			if done {
				return e.finish(ctx, t, msg, domain.EndFailed)
			}
			nextID, override = tr.NextState, tr.Message
		default:
			return domain.Response{}, fmt.Errorf("state %q has unsupported type %s", nextID, st.Kind())
		}
	}
}

// process runs the action of s and selects the transition it leads to.
// done reports that no transition applies and the dialogue ends with msg.
func (e *Engine) process(ctx context.Context, t *turn, s *domain.ProcessingState) (next domain.Transition, msg string, done bool) {
	t.sess.Status = domain.StatusProcessing
	act := s.Action
	if e.hooks.OnActionCall != nil {
		e.hooks.OnActionCall(ctx, &domain.ActionEvent{
			EventBase: e.eventBase(domain.EventActionCall, t.sess.ID),
			StateID:   s.ID,
			Method:    act.Method,
			Endpoint:  act.Endpoint,
		})
	}

	out := e.executor.Execute(t.budget, act, t.sess.Variables, e.def.API)

	if e.hooks.OnActionReturn != nil {
		e.hooks.OnActionReturn(ctx, &domain.ActionEvent{
			EventBase: e.eventBase(domain.EventActionReturn, t.sess.ID),
			StateID:   s.ID,
			Method:    act.Method,
			Endpoint:  act.Endpoint,
			Status:    out.Status,
			Attempts:  out.Attempts,
			Duration:  out.Duration,
		})
	}

	input := inputSuccess
	if out.Success {
		maps.Copy(t.sess.Variables, out.Variables)
		t.actionFailed = false
		delete(t.transient, inputError)
	} else {
		input = inputError
		t.actionFailed = true
		t.setTransient(inputError, out.Message)
		t.log.Warn("action failed", "state", s.ID, "status", out.Status, "attempts", out.Attempts, "err", out.Err)
	}

	scope := scopeOf(t.sess.Variables, t.event.Text)
	scope[inputSuccess] = condition.Bool(out.Success)
	scope["failure"] = condition.Bool(!out.Success)
	maps.Copy(scope, condition.ScopeFrom(t.transient))

	if tr, ok := selectTransition(s, input, scope); ok {
		return tr, "", false
	}
	if !out.Success {
		msg = out.Message
		if msg == "" {
			msg = e.messages.GenericError
		}
		return domain.Transition{}, e.render(t, msg), true
	}
	t.log.Error("no transition for successful action", "state", s.ID, "err", domain.ErrNoMatchingTransition)
	return domain.Transition{}, e.messages.GenericError, true
}

// pause persists the session at st and prompts the subscriber.
// prefix, when set, is shown on its own line before the prompt.
func (e *Engine) pause(ctx context.Context, t *turn, st domain.State, override, prefix string) (domain.Response, error) {
	msg := override
	if msg == "" {
		msg = st.Base().Message
	}
	msg = e.render(t, msg)
	if prefix != "" {
		msg = prefix + "\n" + msg
	}

	t.sess.CurrentStateID = st.Base().ID
	t.sess.Status = domain.StatusAwaitingInput
	t.sess.Touch(e.now())
	if err := t.tx.Put(ctx, t.sess); err != nil {
		return domain.Response{}, fmt.Errorf("save session: %w", err)
	}
	if t.outcome == "" {
		t.outcome = outcomePrompted
	}
	return domain.Response{SessionID: t.sess.ID, Message: msg}, nil
}

// finish terminates the dialogue with msg and removes the session.
func (e *Engine) finish(ctx context.Context, t *turn, msg string, reason domain.EndReason) (domain.Response, error) {
	t.sess.Status = domain.StatusTerminated
	t.sess.Touch(e.now())
	if err := t.tx.Delete(ctx); err != nil {
		return domain.Response{}, fmt.Errorf("delete session: %w", err)
	}
	e.emitSessionEnd(ctx, t.sess, reason)

	t.outcome = outcomeCompleted
	if reason == domain.EndFailed {
		t.outcome = outcomeFailed
	}
	t.log.Debug("session ended", "state", t.sess.CurrentStateID, "reason", reason)
	return domain.Response{SessionID: t.sess.ID, Message: msg, Terminated: true}, nil
}

func (e *Engine) endReason(t *turn) domain.EndReason {
	if t.actionFailed {
		return domain.EndFailed
	}
	return domain.EndCompleted
}

func (t *turn) setTransient(name, value string) {
	if t.transient == nil {
		t.transient = make(map[string]string)
	}
	t.transient[name] = value
}

// selectTransition returns the first transition of st accepting input.
func selectTransition(st domain.State, input string, scope condition.Scope) (domain.Transition, bool) {
	for _, tr := range st.Base().Transitions {
		if tr.Matches(input, scope) {
			return tr, true
		}
	}
	return domain.Transition{}, false
}

func scopeOf(vars map[string]string, input string) condition.Scope {
	scope := condition.ScopeFrom(vars)
	scope["input"] = condition.String(input)
	return scope
}
