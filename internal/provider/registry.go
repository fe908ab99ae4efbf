// Package provider implements context extraction for target applications.
// Each target app (Numbers, Excel) has its own provider knowing how to read
// live state out of it.
package provider

import (
	"go.uber.org/zap"

	"github.com/ambientworks/companiond/internal/domain"
)

// Registry holds context providers in registration order. Lookup is
// first-match-wins, so registration order is significant. Registration
// happens once during setup; the registry is read-only afterwards.
type Registry struct {
	providers []domain.ContextProvider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry creates a registry with the built-in providers.
func NewDefaultRegistry(logger *zap.Logger) *Registry {
	r := NewRegistry()
	r.Register(NewNumbersProvider(logger))
	r.Register(NewExcelProvider(logger))
	return r
}

// Register appends a provider. Must only be called during setup, before
// the monitor loop or any session handler is running.
func (r *Registry) Register(p domain.ContextProvider) {
	r.providers = append(r.providers, p)
}

// Resolve returns the first registered provider matching appName, or nil
// if the app is not a target.
func (r *Registry) Resolve(appName string) domain.ContextProvider {
	if appName == "" {
		return nil
	}
	for _, p := range r.providers {
		if p.Match(appName) {
			return p
		}
	}
	return nil
}

// Names returns the names of all registered providers, in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

var _ domain.ProviderResolver = (*Registry)(nil)
