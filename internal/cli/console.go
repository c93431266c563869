package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/aretw0/ussdflow/pkg/domain"
)

// quitCommand ends a simulated dialogue as if the subscriber hung up.
const quitCommand = "/quit"

// Handler is the part of the gateway a console drives.
type Handler interface {
	Handle(ctx context.Context, ev domain.Event) (domain.Response, error)
	Abort(ctx context.Context, sessionID string) error
}

// ConsoleOptions describe the simulated subscriber.
type ConsoleOptions struct {
	ServiceCode string
	PhoneNumber string
	// Dial is sent as the text of the first event, usually the service dial string.
	Dial      string
	SessionID string
}

// RunConsole plays one dialogue: it sends the dial event, prints every
// response to out and feeds each line of in as the next input until the
// session terminates, in is exhausted or the subscriber types /quit.
func RunConsole(ctx context.Context, h Handler, in io.Reader, out io.Writer, opts ConsoleOptions) error {
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	scanner := bufio.NewScanner(in)

	text := opts.Dial
	for {
		resp, err := h.Handle(ctx, domain.Event{
			SessionID:   opts.SessionID,
			Text:        text,
			PhoneNumber: opts.PhoneNumber,
			ServiceCode: opts.ServiceCode,
			USSDCode:    opts.Dial,
		})
		if err != nil {
			return fmt.Errorf("handle event: %w", err)
		}
		fmt.Fprintln(out, resp.Message)
		if resp.Terminated {
			fmt.Fprintln(out, "[session ended]")
			return nil
		}

		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return hangUp(ctx, h, opts.SessionID, scanner.Err())
		}
		text = strings.TrimSpace(scanner.Text())
		if text == quitCommand {
			return hangUp(ctx, h, opts.SessionID, nil)
		}
		if ctx.Err() != nil {
			return hangUp(context.WithoutCancel(ctx), h, opts.SessionID, ctx.Err())
		}
	}
}

func hangUp(ctx context.Context, h Handler, sessionID string, cause error) error {
	if err := h.Abort(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return errors.Join(cause, fmt.Errorf("abort session: %w", err))
	}
	return cause
}
