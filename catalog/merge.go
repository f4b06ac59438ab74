/*
	This file implements the overlay merge engine: given the static and
	overlay listings of one parent scope, produce the merged entity list
	under the precedence policy of the entity kind.
*/

package catalog

import (
	"fmt"

	"github.com/tomoverse/tomocat/storage"
	"github.com/tomoverse/tomocat/tomo"
)

// MergePolicy selects how static and overlay listings combine.
type MergePolicy uint8

const (
	// StaticWins drops any overlay item whose identity key duplicates a
	// static item.  Used for kinds keyed only by value.
	StaticWins MergePolicy = iota

	// Concatenate returns both listings, rejecting cross-source identity
	// collisions with a ConflictError.
	Concatenate

	// OverlayWins drops any static item shadowed by an overlay item.
	OverlayWins
)

func (p MergePolicy) String() string {
	switch p {
	case StaticWins:
		return "static-wins"
	case Concatenate:
		return "concatenate"
	case OverlayWins:
		return "overlay-wins"
	default:
		return "unknown"
	}
}

// PolicyFor returns the merge policy of an entity kind.  Runs and voxel
// spacings are keyed only by value, so the published side takes priority;
// all annotation kinds have structurally disjoint identity tuples and are
// concatenated.
func PolicyFor(kind storage.Kind) MergePolicy {
	switch kind {
	case storage.RunKind, storage.VoxelSpacingKind:
		return StaticWins
	default:
		return Concatenate
	}
}

// mergedList queries both sources for one parent scope and applies the
// kind's merge policy.  Every static descriptor must be stamped read-only
// by its backend; a violation is a programming error, not a data error.
func (r *Root) mergedList(kind storage.Kind, scope storage.Scope) ([]*Entity, error) {
	var static []storage.Descriptor
	if !r.singleSource() {
		var err error
		static, err = r.static.List(kind, scope)
		if err != nil {
			return nil, fmt.Errorf("static list of %s failed: %w", kind, err)
		}
		for _, desc := range static {
			if !desc.ReadOnly {
				panic(fmt.Sprintf("static source %s produced writable descriptor %s", r.static, desc))
			}
		}
	}
	overlay, err := r.overlay.List(kind, scope)
	if err != nil {
		return nil, fmt.Errorf("overlay list of %s failed: %w", kind, err)
	}

	var merged []*Entity
	add := func(descs []storage.Descriptor, src storage.Backend) {
		for _, desc := range descs {
			merged = append(merged, &Entity{desc: desc, root: r, src: src})
		}
	}
	switch PolicyFor(kind) {
	case StaticWins:
		add(static, r.static)
		keys := keySet(static)
		for _, desc := range overlay {
			if !keys[desc.Key()] {
				merged = append(merged, &Entity{desc: desc, root: r, src: r.overlay})
			}
		}
	case OverlayWins:
		add(overlay, r.overlay)
		keys := keySet(overlay)
		for _, desc := range static {
			if !keys[desc.Key()] {
				merged = append(merged, &Entity{desc: desc, root: r, src: r.static})
			}
		}
	case Concatenate:
		keys := keySet(static)
		for _, desc := range overlay {
			if keys[desc.Key()] {
				return nil, tomo.ConflictError{Kind: kind.String(), Key: desc.Key()}
			}
		}
		add(static, r.static)
		add(overlay, r.overlay)
	}
	return merged, nil
}

func keySet(descs []storage.Descriptor) map[string]bool {
	keys := make(map[string]bool, len(descs))
	for _, desc := range descs {
		keys[desc.Key()] = true
	}
	return keys
}
