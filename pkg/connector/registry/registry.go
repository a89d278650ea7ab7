// Package registry holds the static connector capability table: the mapping
// from backend type tag to its operation set and connection lifecycle.
// Connectors self-register from init() in their packages; callers blank-import
// the connector packages they want available.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/core"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/dberrors"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/logger"
)

// Registry manages capability registration and lookup
type Registry struct {
	capabilities map[string]*core.Capability
	mu           sync.RWMutex
	logger       *zap.Logger
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new capability registry
func NewRegistry() *Registry {
	return &Registry{
		capabilities: make(map[string]*core.Capability),
		logger:       logger.Get().With(zap.String("component", "connector_registry")),
	}
}

// Register adds a backend capability to the table
func (r *Registry) Register(cap *core.Capability) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.capabilities[cap.Type]; exists {
		return dberrors.New(dberrors.ErrorTypeInternal,
			fmt.Sprintf("connector type %s already registered", cap.Type))
	}

	r.capabilities[cap.Type] = cap
	r.logger.Info("connector registered",
		zap.String("type", cap.Type),
		zap.Int("operations", len(cap.Operations)))
	return nil
}

// Lookup returns the capability for a backend type
func (r *Registry) Lookup(dbType string) (*core.Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cap, ok := r.capabilities[dbType]
	return cap, ok
}

// Types returns the registered backend type tags, sorted
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.capabilities))
	for t := range r.capabilities {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// List returns all registered capabilities in type order
func (r *Registry) List() []*core.Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps := make([]*core.Capability, 0, len(r.capabilities))
	for _, c := range r.capabilities {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i].Type < caps[j].Type })
	return caps
}

// Known implements config.TypeSet
func (r *Registry) Known(dbType string) bool {
	_, ok := r.Lookup(dbType)
	return ok
}

// RequiredParams implements config.TypeSet
func (r *Registry) RequiredParams(dbType string) []string {
	cap, ok := r.Lookup(dbType)
	if !ok {
		return nil
	}
	return cap.Required
}

// Clear removes all registered capabilities (mainly for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities = make(map[string]*core.Capability)
}

// Global registry functions

// Register adds a capability to the global table. Panics on duplicate
// registration since that is a programming error in an init() chain.
func Register(cap *core.Capability) {
	if err := globalRegistry.Register(cap); err != nil {
		panic(err)
	}
}

// Lookup returns a capability from the global table
func Lookup(dbType string) (*core.Capability, bool) {
	return globalRegistry.Lookup(dbType)
}

// Types returns the backend types registered in the global table
func Types() []string {
	return globalRegistry.Types()
}

// List returns all capabilities from the global table
func List() []*core.Capability {
	return globalRegistry.List()
}

// GetRegistry returns the global registry instance, which also serves as the
// config.TypeSet used during load validation.
func GetRegistry() *Registry {
	return globalRegistry
}
