/*
Package ports defines the driven ports (interfaces) of the USSD engine.

These interfaces decouple the interpreter from its storage backends, the
external API transport and cross-replica coordination.

# Key Interfaces

  - SessionStore: persists sessions and reports those past their deadline.
  - DistributedLocker: coordinates session access across replicas.
  - APIClient: performs one HTTP exchange and classifies its outcome.
  - ActionExecutor: runs an Action with retries and maps the result.
*/
package ports
