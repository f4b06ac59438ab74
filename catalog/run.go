/*
	This file defines runs and their child collections.  Each child list
	is cached on first access and only re-queried on an explicit refresh;
	a run's caches have a single logical owner (see the concurrency notes
	on batch.MapRuns).
*/

package catalog

import (
	"fmt"
	"strings"

	"github.com/tomoverse/tomocat/storage"
	"github.com/tomoverse/tomocat/tomo"
)

// ToolSessionID is the reserved session id marking tool or algorithm
// provenance; any other session id denotes a human session.
const ToolSessionID = "0"

// Run is one experimental acquisition within the catalog.
type Run struct {
	Entity

	spacings       []*VoxelSpacing
	spacingsLoaded bool

	picks       []*Picks
	picksLoaded bool

	meshes       []*Mesh
	meshesLoaded bool

	segmentations []*Segmentation
	segsLoaded    bool
}

// Name returns the run name, unique within the root.
func (run *Run) Name() string {
	return run.desc.Name
}

func (run *Run) scope() storage.Scope {
	return storage.Scope{Run: run.Name()}
}

// validateAttribution checks attributor and session ids.  Underscores are
// reserved as separators in backend entry names.
func validateAttribution(attributor, session string) error {
	if attributor == "" || strings.ContainsRune(attributor, '_') {
		return tomo.Invalidf("attributorId", "must be non-empty without underscores, got %q", attributor)
	}
	if session == "" || strings.ContainsRune(session, '_') {
		return tomo.Invalidf("sessionId", "must be non-empty without underscores, got %q", session)
	}
	return nil
}

// --- voxel spacings ------

// VoxelSpacings returns the merged voxel-spacing list, loading it on
// first access.
func (run *Run) VoxelSpacings() ([]*VoxelSpacing, error) {
	if !run.spacingsLoaded {
		if err := run.refreshVoxelSpacings(); err != nil {
			return nil, err
		}
	}
	return run.spacings, nil
}

func (run *Run) refreshVoxelSpacings() error {
	entities, err := run.root.mergedList(storage.VoxelSpacingKind, run.scope())
	if err != nil {
		return err
	}
	spacings := make([]*VoxelSpacing, len(entities))
	for i, e := range entities {
		spacings[i] = &VoxelSpacing{Entity: *e, run: run}
	}
	run.spacings = spacings
	run.spacingsLoaded = true
	return nil
}

// VoxelSpacing returns the spacing entry for a value or tomo.ErrNotFound.
func (run *Run) VoxelSpacing(value float64) (*VoxelSpacing, error) {
	canonical := storage.CanonicalSpacing(value)
	spacings, err := run.VoxelSpacings()
	if err != nil {
		return nil, err
	}
	for _, vs := range spacings {
		if vs.desc.Spacing == canonical {
			return vs, nil
		}
	}
	return nil, fmt.Errorf("voxel spacing %s in run %q: %w", canonical, run.Name(), tomo.ErrNotFound)
}

// NewVoxelSpacing creates a voxel-spacing container in the overlay.
func (run *Run) NewVoxelSpacing(value float64) (*VoxelSpacing, error) {
	canonical := storage.CanonicalSpacing(value)
	if _, err := run.VoxelSpacing(value); err == nil {
		return nil, tomo.Invalidf("spacing", "voxel spacing %s already exists in run %q", canonical, run.Name())
	}
	desc := storage.Descriptor{
		Kind:    storage.VoxelSpacingKind,
		Scope:   run.scope(),
		Spacing: canonical,
	}
	if err := run.root.overlay.Write(desc, nil); err != nil {
		return nil, err
	}
	vs := &VoxelSpacing{Entity: Entity{desc: desc, root: run.root, src: run.root.overlay}, run: run}
	if run.spacingsLoaded {
		run.spacings = append(run.spacings, vs)
	}
	return vs, nil
}

// --- picks ------

// PicksList returns the merged picks collections, loading on first access.
func (run *Run) PicksList() ([]*Picks, error) {
	if !run.picksLoaded {
		if err := run.refreshPicks(); err != nil {
			return nil, err
		}
	}
	return run.picks, nil
}

func (run *Run) refreshPicks() error {
	entities, err := run.root.mergedList(storage.PicksKind, run.scope())
	if err != nil {
		return err
	}
	picks := make([]*Picks, len(entities))
	for i, e := range entities {
		picks[i] = &Picks{Entity: *e, run: run}
	}
	run.picks = picks
	run.picksLoaded = true
	return nil
}

// NewPicks creates an empty picks collection attributed to one
// attributor and session.  The object name must be defined at the root.
func (run *Run) NewPicks(objectName, attributor, session string) (*Picks, error) {
	if _, found := run.root.ObjectByName(objectName); !found {
		return nil, tomo.Invalidf("objectName", "object %q is not defined", objectName)
	}
	if err := validateAttribution(attributor, session); err != nil {
		return nil, err
	}
	desc := storage.Descriptor{
		Kind:       storage.PicksKind,
		Scope:      run.scope(),
		Name:       objectName,
		Attributor: attributor,
		Session:    session,
	}
	entity, err := run.createAnnotation(desc)
	if err != nil {
		return nil, err
	}
	payload, err := EncodePicks(nil)
	if err != nil {
		return nil, err
	}
	if err := entity.Write(payload); err != nil {
		return nil, err
	}
	picks := &Picks{Entity: *entity, run: run}
	if run.picksLoaded {
		run.picks = append(run.picks, picks)
	}
	return picks, nil
}

// --- meshes ------

// Meshes returns the merged mesh collections, loading on first access.
func (run *Run) Meshes() ([]*Mesh, error) {
	if !run.meshesLoaded {
		if err := run.refreshMeshes(); err != nil {
			return nil, err
		}
	}
	return run.meshes, nil
}

func (run *Run) refreshMeshes() error {
	entities, err := run.root.mergedList(storage.MeshKind, run.scope())
	if err != nil {
		return err
	}
	meshes := make([]*Mesh, len(entities))
	for i, e := range entities {
		meshes[i] = &Mesh{Entity: *e, run: run}
	}
	run.meshes = meshes
	run.meshesLoaded = true
	return nil
}

// NewMesh creates a mesh entity with the given geometry payload.
func (run *Run) NewMesh(objectName, attributor, session string, geometry []byte) (*Mesh, error) {
	if _, found := run.root.ObjectByName(objectName); !found {
		return nil, tomo.Invalidf("objectName", "object %q is not defined", objectName)
	}
	if err := validateAttribution(attributor, session); err != nil {
		return nil, err
	}
	desc := storage.Descriptor{
		Kind:       storage.MeshKind,
		Scope:      run.scope(),
		Name:       objectName,
		Attributor: attributor,
		Session:    session,
	}
	entity, err := run.createAnnotation(desc)
	if err != nil {
		return nil, err
	}
	if err := entity.Write(geometry); err != nil {
		return nil, err
	}
	mesh := &Mesh{Entity: *entity, run: run}
	if run.meshesLoaded {
		run.meshes = append(run.meshes, mesh)
	}
	return mesh, nil
}

// --- segmentations ------

// Segmentations returns the merged segmentations, loading on first access.
func (run *Run) Segmentations() ([]*Segmentation, error) {
	if !run.segsLoaded {
		if err := run.refreshSegmentations(); err != nil {
			return nil, err
		}
	}
	return run.segmentations, nil
}

func (run *Run) refreshSegmentations() error {
	entities, err := run.root.mergedList(storage.SegmentationKind, run.scope())
	if err != nil {
		return err
	}
	segs := make([]*Segmentation, len(entities))
	for i, e := range entities {
		segs[i] = &Segmentation{Entity: *e, run: run}
	}
	run.segmentations = segs
	run.segsLoaded = true
	return nil
}

// NewSegmentation creates a segmentation entity.  Non-multilabel
// segmentations must reference a defined object name.
func (run *Run) NewSegmentation(name, attributor, session string, spacing float64, multilabel bool, voxels []byte) (*Segmentation, error) {
	if !multilabel {
		if _, found := run.root.ObjectByName(name); !found {
			return nil, tomo.Invalidf("name", "segmentation %q does not reference a defined object", name)
		}
	}
	if err := validateAttribution(attributor, session); err != nil {
		return nil, err
	}
	desc := storage.Descriptor{
		Kind:       storage.SegmentationKind,
		Scope:      run.scope(),
		Name:       name,
		Attributor: attributor,
		Session:    session,
		Spacing:    storage.CanonicalSpacing(spacing),
		Multilabel: multilabel,
	}
	entity, err := run.createAnnotation(desc)
	if err != nil {
		return nil, err
	}
	if err := entity.Write(voxels); err != nil {
		return nil, err
	}
	seg := &Segmentation{Entity: *entity, run: run}
	if run.segsLoaded {
		run.segmentations = append(run.segmentations, seg)
	}
	return seg, nil
}

// createAnnotation checks identity uniqueness across the merged namespace
// and returns a handle bound to the overlay.
func (run *Run) createAnnotation(desc storage.Descriptor) (*Entity, error) {
	existing, err := run.root.mergedList(desc.Kind, desc.Scope)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if e.desc.Key() == desc.Key() {
			return nil, tomo.Invalidf(desc.Kind.String(), "%s %q already exists in run %q",
				desc.Kind, desc.Key(), run.Name())
		}
	}
	return &Entity{desc: desc, root: run.root, src: run.root.overlay}, nil
}

// --- lifecycle ------

// Refresh re-queries every loaded child list.
func (run *Run) Refresh() error {
	if run.spacingsLoaded {
		if err := run.refreshVoxelSpacings(); err != nil {
			return err
		}
	}
	if run.picksLoaded {
		if err := run.refreshPicks(); err != nil {
			return err
		}
	}
	if run.meshesLoaded {
		if err := run.refreshMeshes(); err != nil {
			return err
		}
	}
	if run.segsLoaded {
		if err := run.refreshSegmentations(); err != nil {
			return err
		}
	}
	return nil
}

// Invalidate drops all cached child lists.
func (run *Run) Invalidate() {
	run.spacings, run.spacingsLoaded = nil, false
	run.picks, run.picksLoaded = nil, false
	run.meshes, run.meshesLoaded = nil, false
	run.segmentations, run.segsLoaded = nil, false
}

// Delete cascades deletion to all children before removing the run's own
// container, then drops the root's cached run list.
func (run *Run) Delete() error {
	if run.ReadOnly() {
		return fmt.Errorf("cannot delete run %q: %w", run.Name(), tomo.ErrReadOnly)
	}
	spacings, err := run.VoxelSpacings()
	if err != nil {
		return err
	}
	for _, vs := range spacings {
		if err := vs.Delete(); err != nil {
			return err
		}
	}
	picks, err := run.PicksList()
	if err != nil {
		return err
	}
	for _, p := range picks {
		if err := p.Entity.Delete(); err != nil {
			return err
		}
	}
	meshes, err := run.Meshes()
	if err != nil {
		return err
	}
	for _, m := range meshes {
		if err := m.Entity.Delete(); err != nil {
			return err
		}
	}
	segs, err := run.Segmentations()
	if err != nil {
		return err
	}
	for _, s := range segs {
		if err := s.Entity.Delete(); err != nil {
			return err
		}
	}
	if err := run.Entity.Delete(); err != nil {
		return err
	}
	run.Invalidate()
	run.root.InvalidateRuns()
	return nil
}
