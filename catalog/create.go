/*
	This file creates entities from descriptors, the path used by batch
	copy/move/sync when fanning out over resolved matches.
*/

package catalog

import (
	"errors"
	"fmt"

	"github.com/twinj/uuid"

	"github.com/tomoverse/tomocat/storage"
	"github.com/tomoverse/tomocat/tomo"
)

// NewSessionID returns a fresh human-session identifier, guaranteed not
// to collide with the reserved tool session marker.
func NewSessionID() string {
	return uuid.NewV4().String()
}

// EnsureRun returns the named run, creating its overlay container if it
// does not exist in either source.
func (r *Root) EnsureRun(name string) (*Run, error) {
	run, err := r.Run(name)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, tomo.ErrNotFound) {
		return nil, err
	}
	return r.NewRun(name)
}

// CreateEntity writes a new entity addressed by the descriptor into the
// overlay.  An existing entity with the same identity is a
// ValidationError unless overwrite is set; a static entity with the same
// identity can never be overwritten.
func (r *Root) CreateEntity(desc storage.Descriptor, payload []byte, overwrite bool) (*Entity, error) {
	if err := r.validateDescriptor(desc); err != nil {
		return nil, err
	}
	run, err := r.EnsureRun(desc.Scope.Run)
	if err != nil {
		return nil, err
	}
	existing, err := r.mergedList(desc.Kind, desc.Scope)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if e.desc.Key() != desc.Key() {
			continue
		}
		if e.ReadOnly() {
			return nil, fmt.Errorf("cannot overwrite static %s: %w", e.desc, tomo.ErrReadOnly)
		}
		if !overwrite {
			return nil, tomo.Invalidf(desc.Kind.String(),
				"%s %q already exists in run %q; pass overwrite to replace it",
				desc.Kind, desc.Key(), desc.Scope.Run)
		}
		break
	}
	entity := &Entity{desc: desc, root: r, src: r.overlay}
	if err := entity.Write(payload); err != nil {
		return nil, err
	}
	run.Invalidate()
	return entity, nil
}

// validateDescriptor applies the kind-specific identity rules before any
// backend mutation.
func (r *Root) validateDescriptor(desc storage.Descriptor) error {
	if desc.Scope.Run == "" {
		return tomo.Invalidf("run", "descriptor for %s lacks a run scope", desc.Kind)
	}
	switch desc.Kind {
	case storage.PicksKind, storage.MeshKind:
		if _, found := r.ObjectByName(desc.Name); !found {
			return tomo.Invalidf("objectName", "object %q is not defined", desc.Name)
		}
		return validateAttribution(desc.Attributor, desc.Session)
	case storage.SegmentationKind:
		if !desc.Multilabel {
			if _, found := r.ObjectByName(desc.Name); !found {
				return tomo.Invalidf("name", "segmentation %q does not reference a defined object", desc.Name)
			}
		}
		if _, err := storage.ParseSpacing(desc.Spacing); err != nil {
			return err
		}
		return validateAttribution(desc.Attributor, desc.Session)
	case storage.VolumeKind:
		_, err := storage.ParseSpacing(desc.Spacing)
		return err
	case storage.FeatureMapKind:
		if _, err := storage.ParseSpacing(desc.Spacing); err != nil {
			return err
		}
		if desc.Feature == "" {
			return tomo.Invalidf("featureType", "feature type is required")
		}
		return nil
	default:
		return tomo.Invalidf("kind", "cannot create entities of kind %s", desc.Kind)
	}
}
