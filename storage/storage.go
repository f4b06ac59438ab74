/*
	Package storage provides a unified interface to a number of storage
	backends holding catalog entities.  Each backend must implement the
	Backend contract: enumerate entities of one kind under a parent scope,
	read/write/delete a single entity's payload, and report whether it is
	read-only.  Payloads are simply []byte at this level; interpretation
	happens above the storage layer.
*/

package storage

import (
	"fmt"
	"strings"

	"github.com/tomoverse/tomocat/tomo"
)

// Kind enumerates the entity types a backend can hold.
type Kind uint8

const (
	UnknownKind Kind = iota
	RunKind
	VoxelSpacingKind
	VolumeKind
	FeatureMapKind
	PicksKind
	MeshKind
	SegmentationKind
)

func (k Kind) String() string {
	switch k {
	case RunKind:
		return "run"
	case VoxelSpacingKind:
		return "voxelspacing"
	case VolumeKind:
		return "volume"
	case FeatureMapKind:
		return "featuremap"
	case PicksKind:
		return "picks"
	case MeshKind:
		return "mesh"
	case SegmentationKind:
		return "segmentation"
	default:
		return "unknown"
	}
}

// KindFromString returns the Kind for a user-supplied tag.
func KindFromString(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "run":
		return RunKind, nil
	case "voxelspacing":
		return VoxelSpacingKind, nil
	case "volume", "tomogram":
		return VolumeKind, nil
	case "featuremap", "features":
		return FeatureMapKind, nil
	case "picks":
		return PicksKind, nil
	case "mesh", "meshes":
		return MeshKind, nil
	case "segmentation", "segmentations":
		return SegmentationKind, nil
	default:
		return UnknownKind, tomo.Invalidf("entity type", "unknown entity type %q", s)
	}
}

// Scope addresses the parent under which entities of a kind are listed.
// Fields above the kind's own level are set; the rest are empty.
type Scope struct {
	Run     string
	Spacing string // canonical spacing string, e.g. "10.000"
	Volume  string // volume type name, set when listing feature maps
}

// Descriptor identifies one entity within a backend.  Which identity
// fields are meaningful depends on Kind:
//
//	RunKind           Name (run name)
//	VoxelSpacingKind  Spacing
//	VolumeKind        Name (volume type), Spacing
//	FeatureMapKind    Name (volume type), Spacing, Feature
//	PicksKind         Name (object), Attributor, Session
//	MeshKind          Name (object), Attributor, Session
//	SegmentationKind  Name, Attributor, Session, Spacing, Multilabel
type Descriptor struct {
	Kind       Kind
	Scope      Scope
	Name       string
	Attributor string
	Session    string
	Spacing    string
	Feature    string
	Multilabel bool

	// ReadOnly is stamped by the backend that produced this descriptor.
	ReadOnly bool
}

// Key returns the identity tuple of the descriptor as a single string,
// unique per kind within one source for a given parent scope.
func (d Descriptor) Key() string {
	switch d.Kind {
	case RunKind:
		return d.Name
	case VoxelSpacingKind:
		return d.Spacing
	case VolumeKind:
		return d.Spacing + "/" + d.Name
	case FeatureMapKind:
		return d.Spacing + "/" + d.Name + ":" + d.Feature
	case PicksKind, MeshKind:
		return d.Name + ":" + d.Attributor + "/" + d.Session
	case SegmentationKind:
		return fmt.Sprintf("%s:%s/%s@%s?multilabel=%t",
			d.Name, d.Attributor, d.Session, d.Spacing, d.Multilabel)
	default:
		return ""
	}
}

// Field returns the descriptor attribute matching a URI field name.
func (d Descriptor) Field(name string) (string, bool) {
	switch name {
	case "objectName", "name":
		return d.Name, true
	case "typeName":
		return d.Name, true
	case "attributorId":
		return d.Attributor, true
	case "sessionId":
		return d.Session, true
	case "spacing":
		return d.Spacing, true
	case "featureType":
		return d.Feature, true
	case "multilabel":
		return fmt.Sprintf("%t", d.Multilabel), true
	}
	return "", false
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s %s (run %q)", d.Kind, d.Key(), d.Scope.Run)
}

// Backend is the minimal capability contract a storage technology must
// fulfill to serve as a static or overlay source.
type Backend interface {
	fmt.Stringer

	// List enumerates existing entities of one kind under a parent scope.
	// It is side-effect-free and returns an empty slice, not an error,
	// when zero entities exist.
	List(kind Kind, scope Scope) ([]Descriptor, error)

	// Read returns the entity's payload.  Fails with tomo.ErrNotFound if
	// the payload does not exist.
	Read(desc Descriptor) ([]byte, error)

	// Write creates or replaces the entity's payload, creating parent
	// containers as needed.  Fails with tomo.ErrReadOnly on a read-only
	// backend.
	Write(desc Descriptor, payload []byte) error

	// Delete removes the entity's payload.  Fails with tomo.ErrNotFound
	// if absent and tomo.ErrReadOnly on a read-only backend.
	Delete(desc Descriptor) error

	// ReadOnly reports whether the backend rejects all mutation.
	ReadOnly() bool

	// Close releases any resources held by the backend.
	Close()
}
