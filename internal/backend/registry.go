package backend

import (
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-bench/pkg/errors"
)

// Factory builds an Engine rooted at path.
type Factory func(path string, opts Options) (Engine, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes an engine available by name. It panics if Register is
// called twice with the same name or if factory is nil.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("backend: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("backend: Register called twice for engine " + name)
	}
	registry[name] = factory
}

// Open builds the named engine.
func Open(name string, path string, opts Options) (Engine, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrUnknownEngine, "unknown engine %q (available: %v)", name, Engines())
	}
	engine, err := factory(path, opts)
	if err != nil {
		return nil, fmt.Errorf("opening engine %s: %w", name, err)
	}
	return engine, nil
}

// Engines lists registered engine names in sorted order.
func Engines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModuleVersion reports the version of a dependency linked into the running
// binary, or "(devel)" when build info is unavailable.
func ModuleVersion(modulePath string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "(devel)"
	}
	if info.Main.Path == modulePath {
		return info.Main.Version
	}
	for _, dep := range info.Deps {
		if dep.Path != modulePath {
			continue
		}
		if dep.Replace != nil {
			return dep.Replace.Version
		}
		return dep.Version
	}
	return "(devel)"
}
