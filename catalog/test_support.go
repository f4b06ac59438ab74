/*
	This file provides fixtures for tests in this package and in packages
	building on the catalog (uri round-trips, batch operations).  It is
	compiled into the normal build but only exercised by tests.
*/

package catalog

import (
	"github.com/tomoverse/tomocat/storage"
	"github.com/tomoverse/tomocat/storage/memstore"
	"github.com/tomoverse/tomocat/tomo"
)

// TestObjects is the object-definition set used by fixtures.
func TestObjects() []ObjectDefinition {
	return []ObjectDefinition{
		{Name: "ribosome", IsParticle: true, Label: 1, Color: []int32{0, 255, 0, 255}, Radius: 150},
		{Name: "proteasome", IsParticle: true, Label: 2, Color: []int32{255, 0, 0, 255}},
		{Name: "membrane", IsParticle: false, Label: 3},
	}
}

// TestFixture couples a root with direct handles on its two in-memory
// sources, so tests can seed the static side before it is read through
// the read-only wrapper.
type TestFixture struct {
	Root    *Root
	Static  *memstore.MemStore
	Overlay *memstore.MemStore
}

// NewTestFixture returns an empty dual-source in-memory catalog.
func NewTestFixture() (*TestFixture, error) {
	static := memstore.New()
	overlay := memstore.New()
	root, err := NewRoot(static, overlay, TestObjects())
	if err != nil {
		return nil, err
	}
	return &TestFixture{Root: root, Static: static, Overlay: overlay}, nil
}

// SeedRun writes a run container into one source.
func (f *TestFixture) SeedRun(src *memstore.MemStore, run string) error {
	return src.Write(storage.Descriptor{Kind: storage.RunKind, Name: run}, nil)
}

// SeedPicks writes a picks payload into one source.
func (f *TestFixture) SeedPicks(src *memstore.MemStore, run, object, attributor, session string, points []PickPoint) error {
	payload, err := EncodePicks(points)
	if err != nil {
		return err
	}
	return src.Write(storage.Descriptor{
		Kind:       storage.PicksKind,
		Scope:      storage.Scope{Run: run},
		Name:       object,
		Attributor: attributor,
		Session:    session,
	}, payload)
}

// SeedVolume writes a voxel-spacing container and a volume payload into
// one source.
func (f *TestFixture) SeedVolume(src *memstore.MemStore, run string, spacing float64, typeName string, payload []byte) error {
	canonical := storage.CanonicalSpacing(spacing)
	err := src.Write(storage.Descriptor{
		Kind:    storage.VoxelSpacingKind,
		Scope:   storage.Scope{Run: run},
		Spacing: canonical,
	}, nil)
	if err != nil {
		return err
	}
	return src.Write(storage.Descriptor{
		Kind:    storage.VolumeKind,
		Scope:   storage.Scope{Run: run, Spacing: canonical},
		Name:    typeName,
		Spacing: canonical,
	}, payload)
}

// SeedSegmentation writes a segmentation payload into one source.
func (f *TestFixture) SeedSegmentation(src *memstore.MemStore, run, name, attributor, session string, spacing float64, multilabel bool, payload []byte) error {
	return src.Write(storage.Descriptor{
		Kind:       storage.SegmentationKind,
		Scope:      storage.Scope{Run: run},
		Name:       name,
		Attributor: attributor,
		Session:    session,
		Spacing:    storage.CanonicalSpacing(spacing),
		Multilabel: multilabel,
	}, payload)
}

// TestPoints returns n distinct pick points.
func TestPoints(n int) []PickPoint {
	points := make([]PickPoint, n)
	for i := range points {
		points[i] = PickPoint{
			Location:   tomo.Point3D{X: float64(i) * 10, Y: float64(i) * 20, Z: float64(i) * 30},
			InstanceID: i,
			Score:      1.0 - float64(i)*0.1,
		}
	}
	return points
}
