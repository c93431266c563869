package ports

import (
	"context"

	"github.com/aretw0/ussdflow/pkg/domain"
)

// APIClient performs a single HTTP exchange with a backend API.
// It never returns an error: transport failures are classified into the response status.
type APIClient interface {
	Invoke(ctx context.Context, req domain.APIRequest) domain.APIResponse
}

// ActionExecutor runs an action against a read-only view of the session variables.
type ActionExecutor interface {
	Execute(ctx context.Context, action domain.Action, vars map[string]string, cfg domain.APIConfig) domain.ActionOutcome
}
