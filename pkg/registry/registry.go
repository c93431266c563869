// Package registry indexes the loaded services by service code and dial string.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/ussdflow/pkg/domain"
)

// Service is one runnable automaton.
type Service interface {
	Definition() *domain.Definition
	Handle(ctx context.Context, ev domain.Event) (domain.Response, error)
	Abort(ctx context.Context, sessionID string) error
}

// Registry manages the available services.
type Registry struct {
	mu     sync.RWMutex
	byCode map[string]Service
	byDial map[string]string
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byCode: make(map[string]Service),
		byDial: make(map[string]string),
	}
}

// Register adds a service to the registry.
// If a service with the same code exists, it is replaced. A dial string
// already claimed by another service is an error.
func (r *Registry) Register(svc Service) error {
	def := svc.Definition()
	r.mu.Lock()
	defer r.mu.Unlock()

	if def.USSDCode != "" {
		if owner, ok := r.byDial[def.USSDCode]; ok && owner != def.ServiceCode {
			return fmt.Errorf("dial string %s already used by service %s", def.USSDCode, owner)
		}
	}
	if prev, ok := r.byCode[def.ServiceCode]; ok {
		if code := prev.Definition().USSDCode; code != "" {
			delete(r.byDial, code)
		}
	}
	r.byCode[def.ServiceCode] = svc
	if def.USSDCode != "" {
		r.byDial[def.USSDCode] = def.ServiceCode
	}
	return nil
}

// Lookup returns the service registered under serviceCode.
func (r *Registry) Lookup(serviceCode string) (Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.byCode[serviceCode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownService, serviceCode)
	}
	return svc, nil
}

// Resolve picks the service for a new dialogue: by explicit service code,
// then by dial string (USSDCode, or the text of a first event). With a
// single registered service, that service is the default.
func (r *Registry) Resolve(ev domain.Event) (Service, error) {
	if ev.ServiceCode != "" {
		return r.Lookup(ev.ServiceCode)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, dial := range []string{ev.USSDCode, ev.Text} {
		if code, ok := r.byDial[dial]; ok && dial != "" {
			return r.byCode[code], nil
		}
	}
	if len(r.byCode) == 1 {
		for _, svc := range r.byCode {
			return svc, nil
		}
	}
	return nil, fmt.Errorf("%w: no service for dial string %q", domain.ErrUnknownService, ev.USSDCode)
}

// Services lists the registered services ordered by service code.
func (r *Registry) Services() []Service {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Service, 0, len(r.byCode))
	for _, svc := range r.byCode {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Definition().ServiceCode < out[j].Definition().ServiceCode
	})
	return out
}
