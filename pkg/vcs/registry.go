package vcs

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// System is a version control system implementation.
type System interface {
	Connect(spec Spec) (RepositoryConnection, error)
}

type registry map[string]System

var (
	registryMu      sync.RWMutex
	defaultRegistry = make(registry)
)

// RegisteredSystems returns the sorted kinds of all registered systems.
func RegisteredSystems() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	kinds := make([]string, 0, len(defaultRegistry))
	for kind := range defaultRegistry {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func GetSystem(kind string) (System, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	sys, ok := defaultRegistry[kind]
	return sys, ok
}

// RegisterSystem registers a system for a kind. Implementations call it
// from init().
func RegisterSystem(kind string, sys System) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, ok := defaultRegistry[kind]; ok {
		return fmt.Errorf("failed to register version control system %q: already registered", kind)
	}
	defaultRegistry[kind] = sys
	return nil
}

// Factory connects to repositories through the registered systems.
type Factory struct{}

var _ ConnectionFactory = Factory{}

func (Factory) Connect(spec Spec) (RepositoryConnection, error) {
	sys, ok := GetSystem(spec.Kind())
	if !ok {
		return nil, fmt.Errorf("no version control system registered for %q (%s), known systems: %s",
			spec.Kind(), spec.DisplayName(), strings.Join(RegisteredSystems(), ", "))
	}
	return sys.Connect(spec)
}
