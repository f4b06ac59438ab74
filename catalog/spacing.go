/*
	This file defines voxel spacings, the volumes they own, and the
	feature maps derived from volumes.
*/

package catalog

import (
	"fmt"
	"strings"

	"github.com/tomoverse/tomocat/storage"
	"github.com/tomoverse/tomocat/tomo"
)

// VoxelSpacing groups the volumes of one run sampled at one spacing,
// identified by the spacing value rounded to three decimals.
type VoxelSpacing struct {
	Entity
	run *Run

	volumes       []*Volume
	volumesLoaded bool

	features       []*FeatureMap
	featuresLoaded bool
}

// Spacing returns the canonical spacing string, e.g. "10.000".
func (vs *VoxelSpacing) Spacing() string {
	return vs.desc.Spacing
}

// Value returns the numeric spacing value.
func (vs *VoxelSpacing) Value() (float64, error) {
	return storage.ParseSpacing(vs.desc.Spacing)
}

func (vs *VoxelSpacing) scope() storage.Scope {
	return storage.Scope{Run: vs.run.Name(), Spacing: vs.desc.Spacing}
}

// Volumes returns the merged volume list at this spacing, loading it on
// first access.
func (vs *VoxelSpacing) Volumes() ([]*Volume, error) {
	if !vs.volumesLoaded {
		if err := vs.refreshVolumes(); err != nil {
			return nil, err
		}
	}
	return vs.volumes, nil
}

func (vs *VoxelSpacing) refreshVolumes() error {
	entities, err := vs.root.mergedList(storage.VolumeKind, vs.scope())
	if err != nil {
		return err
	}
	volumes := make([]*Volume, len(entities))
	for i, e := range entities {
		volumes[i] = &Volume{Entity: *e, spacing: vs}
	}
	vs.volumes = volumes
	vs.volumesLoaded = true
	return nil
}

// Volume returns the volume of one type name or tomo.ErrNotFound.
func (vs *VoxelSpacing) Volume(typeName string) (*Volume, error) {
	volumes, err := vs.Volumes()
	if err != nil {
		return nil, err
	}
	for _, v := range volumes {
		if v.desc.Name == typeName {
			return v, nil
		}
	}
	return nil, fmt.Errorf("volume %q at spacing %s: %w", typeName, vs.Spacing(), tomo.ErrNotFound)
}

// NewVolume creates a volume of the given type name with its payload.
func (vs *VoxelSpacing) NewVolume(typeName string, payload []byte) (*Volume, error) {
	typeName, err := tomo.SanitizeName(typeName)
	if err != nil {
		return nil, err
	}
	if _, err := vs.Volume(typeName); err == nil {
		return nil, tomo.Invalidf("typeName", "volume %q already exists at spacing %s", typeName, vs.Spacing())
	}
	desc := storage.Descriptor{
		Kind:    storage.VolumeKind,
		Scope:   vs.scope(),
		Name:    typeName,
		Spacing: vs.desc.Spacing,
	}
	entity := &Entity{desc: desc, root: vs.root, src: vs.root.overlay}
	if err := entity.Write(payload); err != nil {
		return nil, err
	}
	volume := &Volume{Entity: *entity, spacing: vs}
	if vs.volumesLoaded {
		vs.volumes = append(vs.volumes, volume)
	}
	return volume, nil
}

// FeatureMaps returns every feature map at this spacing (across all
// volume types), loading on first access.
func (vs *VoxelSpacing) FeatureMaps() ([]*FeatureMap, error) {
	if !vs.featuresLoaded {
		if err := vs.refreshFeatureMaps(); err != nil {
			return nil, err
		}
	}
	return vs.features, nil
}

func (vs *VoxelSpacing) refreshFeatureMaps() error {
	entities, err := vs.root.mergedList(storage.FeatureMapKind, vs.scope())
	if err != nil {
		return err
	}
	features := make([]*FeatureMap, len(entities))
	for i, e := range entities {
		features[i] = &FeatureMap{Entity: *e, spacing: vs}
	}
	vs.features = features
	vs.featuresLoaded = true
	return nil
}

// Refresh re-queries the loaded child lists at this spacing.
func (vs *VoxelSpacing) Refresh() error {
	if vs.volumesLoaded {
		if err := vs.refreshVolumes(); err != nil {
			return err
		}
	}
	if vs.featuresLoaded {
		return vs.refreshFeatureMaps()
	}
	return nil
}

// Delete cascades to all volumes (and their feature maps) before removing
// the spacing container itself.
func (vs *VoxelSpacing) Delete() error {
	if vs.ReadOnly() {
		return fmt.Errorf("cannot delete voxel spacing %s: %w", vs.Spacing(), tomo.ErrReadOnly)
	}
	volumes, err := vs.Volumes()
	if err != nil {
		return err
	}
	for _, v := range volumes {
		if err := v.Delete(); err != nil {
			return err
		}
	}
	if err := vs.Entity.Delete(); err != nil {
		return err
	}
	vs.volumes, vs.volumesLoaded = nil, false
	vs.features, vs.featuresLoaded = nil, false
	vs.run.spacings, vs.run.spacingsLoaded = nil, false
	return nil
}

// Volume is a typed 3-D array at one voxel spacing, identified by
// (spacing, type name).
type Volume struct {
	Entity
	spacing *VoxelSpacing
}

// TypeName returns the volume's type name, e.g. "wbp" or "denoised".
func (v *Volume) TypeName() string {
	return v.desc.Name
}

// FeatureMaps returns the feature maps derived from this volume.
func (v *Volume) FeatureMaps() ([]*FeatureMap, error) {
	all, err := v.spacing.FeatureMaps()
	if err != nil {
		return nil, err
	}
	var mine []*FeatureMap
	for _, fm := range all {
		if fm.desc.Name == v.desc.Name {
			mine = append(mine, fm)
		}
	}
	return mine, nil
}

// NewFeatureMap creates a feature map derived from this volume.  Feature
// type names may not contain underscores.
func (v *Volume) NewFeatureMap(featureType string, payload []byte) (*FeatureMap, error) {
	if featureType == "" || strings.ContainsRune(featureType, '_') {
		return nil, tomo.Invalidf("featureType", "must be non-empty without underscores, got %q", featureType)
	}
	existing, err := v.FeatureMaps()
	if err != nil {
		return nil, err
	}
	for _, fm := range existing {
		if fm.desc.Feature == featureType {
			return nil, tomo.Invalidf("featureType", "feature map %q already exists on volume %q", featureType, v.TypeName())
		}
	}
	desc := storage.Descriptor{
		Kind:    storage.FeatureMapKind,
		Scope:   v.spacing.scope(),
		Name:    v.desc.Name,
		Spacing: v.desc.Spacing,
		Feature: featureType,
	}
	entity := &Entity{desc: desc, root: v.root, src: v.root.overlay}
	if err := entity.Write(payload); err != nil {
		return nil, err
	}
	fm := &FeatureMap{Entity: *entity, spacing: v.spacing}
	if v.spacing.featuresLoaded {
		v.spacing.features = append(v.spacing.features, fm)
	}
	return fm, nil
}

// Delete cascades to the volume's feature maps before removing the
// volume payload.
func (v *Volume) Delete() error {
	if v.ReadOnly() {
		return fmt.Errorf("cannot delete volume %q: %w", v.TypeName(), tomo.ErrReadOnly)
	}
	features, err := v.FeatureMaps()
	if err != nil {
		return err
	}
	for _, fm := range features {
		if err := fm.Entity.Delete(); err != nil {
			return err
		}
	}
	if err := v.Entity.Delete(); err != nil {
		return err
	}
	v.spacing.volumes, v.spacing.volumesLoaded = nil, false
	v.spacing.features, v.spacing.featuresLoaded = nil, false
	return nil
}

// FeatureMap is a derived per-voxel feature array, identified by
// (volume type name, feature type name).
type FeatureMap struct {
	Entity
	spacing *VoxelSpacing
}

// VolumeType returns the type name of the volume the features derive from.
func (fm *FeatureMap) VolumeType() string {
	return fm.desc.Name
}

// FeatureType returns the feature type name.
func (fm *FeatureMap) FeatureType() string {
	return fm.desc.Feature
}
