package provider

import (
	"fmt"
	"sort"

	"github.com/waabox/shipwatch/internal/domain"
)

// Registry maps provider kinds (e.g., "amplify") to DeploymentProvider implementations.
type Registry struct {
	providers map[string]domain.DeploymentProvider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]domain.DeploymentProvider)}
}

// Register associates a provider kind with a provider. A later registration replaces an earlier one.
func (r *Registry) Register(kind string, p domain.DeploymentProvider) {
	r.providers[kind] = p
}

// Lookup returns the provider registered for kind.
// Returns an error if no matching provider is registered.
func (r *Registry) Lookup(kind string) (domain.DeploymentProvider, error) {
	p, ok := r.providers[kind]
	if !ok {
		return nil, fmt.Errorf("no provider registered for kind: %s", kind)
	}
	return p, nil
}

// ForTarget returns the provider serving target.
func (r *Registry) ForTarget(target domain.Target) (domain.DeploymentProvider, error) {
	p, err := r.Lookup(target.Provider)
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", target.ID, err)
	}
	return p, nil
}

// Kinds lists the registered provider kinds in sorted order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.providers))
	for k := range r.providers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
