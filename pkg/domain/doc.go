/*
Package domain contains the core domain models of the USSD automaton engine.

It defines the immutable automaton Definition (states, transitions, validation
rules and API actions), the mutable Session that tracks one subscriber's
dialogue, and the request/response shapes exchanged with the transport layer
and the external API client. This package is kept pure and free of I/O or
persistence concerns, following Hexagonal Architecture principles.

# Key Entities

  - Definition: the read-only automaton for one USSD service, shared by every session.
  - State: a sum type with one variant per behaviour (InputState, MenuState, ProcessingState, EndState).
  - Transition: an ordered (input AND condition) rule leading to the next state or END.
  - Session: the per-subscriber runtime snapshot (current state, variables, timestamps).
  - Event / Response: the narrow interface to the transport layer.
  - APIRequest / APIResponse: the narrow interface to the external API client.
*/
package domain
