/*
	Package memstore implements an in-memory backend used by tests and as
	a scratch overlay.  Entities are stored in a map keyed by the canonical
	entity path; a memstore can be created read-only to stand in for a
	static source.
*/

package memstore

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blang/semver"
	"github.com/twinj/uuid"

	"github.com/tomoverse/tomocat/storage"
	"github.com/tomoverse/tomocat/tomo"
)

func init() {
	ver, err := semver.Make("0.1.0")
	if err != nil {
		tomo.Errorf("Unable to make semver in memstore: %v\n", err)
	}
	storage.RegisterEngine(Engine{"memstore", "In-memory entity store", ver})
}

// --- Engine Implementation ------

type Engine struct {
	name   string
	desc   string
	semver semver.Version
}

func (e Engine) GetName() string {
	return e.name
}

func (e Engine) GetDescription() string {
	return e.desc
}

func (e Engine) IsDistributed() bool {
	return false
}

func (e Engine) GetSemVer() semver.Version {
	return e.semver
}

func (e Engine) String() string {
	return fmt.Sprintf("%s [%s]", e.name, e.semver)
}

// NewBackend returns an in-memory backend.  No settings are required.
func (e Engine) NewBackend(config tomo.StoreConfig) (storage.Backend, error) {
	return New(), nil
}

// --- Backend Implementation ------

type entry struct {
	desc    storage.Descriptor
	payload []byte
}

// MemStore is a map-backed Backend safe for concurrent use.
type MemStore struct {
	id      string
	mu      sync.RWMutex
	entries map[string]entry
}

// New returns an empty writable in-memory backend.
func New() *MemStore {
	return &MemStore{
		id:      uuid.NewV4().String(),
		entries: make(map[string]entry),
	}
}

// String carries the instance id so two in-memory stores under one root
// never alias in path-keyed caches.
func (m *MemStore) String() string {
	return "memstore @ " + m.id
}

func (m *MemStore) List(kind storage.Kind, scope storage.Scope) ([]storage.Descriptor, error) {
	dir, err := storage.ScopeDir(kind, scope)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Direct children only: either stored entries in the scope directory
	// or, for container kinds, path segments implied by deeper entries.
	seen := make(map[string]bool)
	var descs []storage.Descriptor
	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		if desc, ok := storage.ParseEntry(kind, scope, name); ok {
			descs = append(descs, desc)
		}
	}
	prefix := dir + "/"
	for path := range m.entries {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := path[len(prefix):]
		if i := strings.Index(rest, "/"); i >= 0 {
			if storage.IsContainer(kind) {
				add(rest[:i])
			}
			continue
		}
		add(rest)
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Key() < descs[j].Key() })
	return descs, nil
}

func (m *MemStore) Read(desc storage.Descriptor) ([]byte, error) {
	path, err := storage.Path(desc)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, found := m.entries[path]
	if !found {
		if storage.IsContainer(desc.Kind) && m.hasChildLocked(path) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", desc, tomo.ErrNotFound)
	}
	out := make([]byte, len(e.payload))
	copy(out, e.payload)
	return out, nil
}

func (m *MemStore) Write(desc storage.Descriptor, payload []byte) error {
	path, err := storage.Path(desc)
	if err != nil {
		return err
	}
	stored := make([]byte, len(payload))
	copy(stored, payload)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[path] = entry{desc: desc, payload: stored}
	return nil
}

func (m *MemStore) Delete(desc storage.Descriptor) error {
	path, err := storage.Path(desc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, found := m.entries[path]; !found {
		if !storage.IsContainer(desc.Kind) || !m.hasChildLocked(path) {
			return fmt.Errorf("%s: %w", desc, tomo.ErrNotFound)
		}
	}
	delete(m.entries, path)
	if storage.IsContainer(desc.Kind) {
		prefix := path + "/"
		for p := range m.entries {
			if strings.HasPrefix(p, prefix) {
				delete(m.entries, p)
			}
		}
	}
	return nil
}

func (m *MemStore) hasChildLocked(path string) bool {
	prefix := path + "/"
	for p := range m.entries {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func (m *MemStore) ReadOnly() bool {
	return false
}

func (m *MemStore) Close() {}
