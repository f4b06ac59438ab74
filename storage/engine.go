/*
	This file supports registration and selection of storage engines.
	Each engine self-registers in its package init and is selected by the
	Engine name in a tomo.StoreConfig.
*/

package storage

import (
	"fmt"
	"sync"

	"github.com/blang/semver"

	"github.com/tomoverse/tomocat/tomo"
)

// Engine is a storage technology that can create backends from a
// store-specific configuration.
type Engine interface {
	fmt.Stringer

	// GetName returns the engine identifier used in configurations.
	GetName() string

	// GetDescription returns a human-readable description.
	GetDescription() string

	// GetSemVer returns the engine's current version.
	GetSemVer() semver.Version

	// IsDistributed returns true if the engine is networked rather than
	// embedded or local.
	IsDistributed() bool

	// NewBackend returns a backend for the given configuration.
	NewBackend(config tomo.StoreConfig) (Backend, error)
}

var (
	enginesMu sync.Mutex
	engines   = map[string]Engine{}
)

// RegisterEngine registers an engine under its name.  Duplicate
// registration is a programming error.
func RegisterEngine(e Engine) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	name := e.GetName()
	if _, found := engines[name]; found {
		panic(fmt.Sprintf("storage engine %q registered twice", name))
	}
	tomo.Debugf("Registered storage engine %s\n", e)
	engines[name] = e
}

// EnabledEngines returns the names of all registered engines.
func EnabledEngines() []string {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	return names
}

// NewBackend creates a backend using the engine named in the store
// configuration.  A true "readonly" setting wraps the backend so every
// mutation fails with tomo.ErrReadOnly.
func NewBackend(config tomo.StoreConfig) (Backend, error) {
	enginesMu.Lock()
	e, found := engines[config.Engine]
	enginesMu.Unlock()
	if !found {
		return nil, fmt.Errorf("storage engine %q is not available (enabled: %v)",
			config.Engine, EnabledEngines())
	}
	backend, err := e.NewBackend(config)
	if err != nil {
		return nil, err
	}
	readonly, found, err := config.GetBool("readonly")
	if err != nil {
		return nil, err
	}
	if found && readonly {
		return ReadOnlyBackend(backend), nil
	}
	return backend, nil
}

// ReadOnlyBackend wraps a backend so that every mutation fails with
// tomo.ErrReadOnly and every listed descriptor is stamped read-only.
func ReadOnlyBackend(b Backend) Backend {
	if b.ReadOnly() {
		return b
	}
	return &roBackend{b}
}

type roBackend struct {
	Backend
}

func (ro *roBackend) String() string {
	return ro.Backend.String() + " (read-only)"
}

func (ro *roBackend) List(kind Kind, scope Scope) ([]Descriptor, error) {
	descs, err := ro.Backend.List(kind, scope)
	for i := range descs {
		descs[i].ReadOnly = true
	}
	return descs, err
}

func (ro *roBackend) Write(desc Descriptor, payload []byte) error {
	return fmt.Errorf("cannot write %s: %w", desc, tomo.ErrReadOnly)
}

func (ro *roBackend) Delete(desc Descriptor) error {
	return fmt.Errorf("cannot delete %s: %w", desc, tomo.ErrReadOnly)
}

func (ro *roBackend) ReadOnly() bool {
	return true
}
