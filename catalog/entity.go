/*
	This file defines the generic entity handle shared by all typed
	catalog nodes.  A handle couples a descriptor with the backend it was
	discovered in, so reads and mutations route to the right source.
*/

package catalog

import (
	"fmt"

	"github.com/tomoverse/tomocat/storage"
	"github.com/tomoverse/tomocat/tomo"
	"github.com/tomoverse/tomocat/uri"
)

// Entity is a resolved handle on one catalog entity in one source.
type Entity struct {
	desc storage.Descriptor
	root *Root
	src  storage.Backend
}

// Descriptor returns the entity's identity descriptor.
func (e *Entity) Descriptor() storage.Descriptor {
	return e.desc
}

// Kind returns the entity kind.
func (e *Entity) Kind() storage.Kind {
	return e.desc.Kind
}

// RunName returns the name of the run the entity belongs to, or the run's
// own name for run entities.
func (e *Entity) RunName() string {
	if e.desc.Kind == storage.RunKind {
		return e.desc.Name
	}
	return e.desc.Scope.Run
}

// URI serializes the entity back into its canonical addressing string.
func (e *Entity) URI() (string, error) {
	return uri.Serialize(e.desc)
}

// ReadOnly reports whether the entity rejects mutation: true for anything
// discovered in the static source and for entities of a globally
// read-only overlay.
func (e *Entity) ReadOnly() bool {
	return e.desc.ReadOnly || e.src.ReadOnly()
}

// Read returns the entity payload, consulting the root's payload cache
// before the backend.
func (e *Entity) Read() ([]byte, error) {
	return e.root.readPayload(e.src, e.desc)
}

// Write replaces the entity payload.
func (e *Entity) Write(payload []byte) error {
	if e.ReadOnly() {
		return fmt.Errorf("cannot write %s: %w", e.desc, tomo.ErrReadOnly)
	}
	return e.root.writePayload(e.src, e.desc, payload)
}

// Delete removes the entity payload from its backend.  Typed parents
// override this with cascading deletes.
func (e *Entity) Delete() error {
	if e.ReadOnly() {
		return fmt.Errorf("cannot delete %s: %w", e.desc, tomo.ErrReadOnly)
	}
	return e.root.deletePayload(e.src, e.desc)
}

func (e *Entity) String() string {
	return e.desc.String()
}
