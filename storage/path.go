/*
	This file defines the canonical hierarchical layout used by the
	file-oriented backends (filestore, swiftstore) and flattened into keys
	by the key-value backends (badgerstore, memstore).  Paths use forward
	slashes; filestore converts to native separators.

	runs/<run>/                                       run container
	runs/<run>/VoxelSpacing<spacing>/                 voxel-spacing container
	runs/<run>/VoxelSpacing<spacing>/<type>.vol       volume
	runs/<run>/VoxelSpacing<spacing>/<type>_<ft>.feat feature map
	runs/<run>/Picks/<attr>_<sess>_<obj>.json         picks
	runs/<run>/Meshes/<attr>_<sess>_<obj>.glb         mesh
	runs/<run>/Segmentations/<sp>_<attr>_<sess>_<name>.seg[.multi]

	Attributor and session ids may not contain underscores so entries can
	be parsed back into identity tuples; object and type names may.
	Feature-type names may not contain underscores for the same reason.
*/

package storage

import (
	"strconv"
	"strings"

	"github.com/tomoverse/tomocat/tomo"
)

const (
	runsDir          = "runs"
	spacingPrefix    = "VoxelSpacing"
	picksDir         = "Picks"
	meshesDir        = "Meshes"
	segmentationsDir = "Segmentations"

	volumeExt   = ".vol"
	featureExt  = ".feat"
	picksExt    = ".json"
	meshExt     = ".glb"
	segExt      = ".seg"
	multiSegExt = ".seg.multi"
)

// CanonicalSpacing formats a voxel spacing rounded to three decimals, the
// identity form used in keys, paths, and URIs.
func CanonicalSpacing(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// ParseSpacing parses a spacing string back into its numeric value.
func ParseSpacing(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, tomo.Invalidf("spacing", "cannot parse %q: %v", s, err)
	}
	return v, nil
}

// IsContainer returns true for kinds stored as containers (directories)
// rather than payload files.
func IsContainer(kind Kind) bool {
	return kind == RunKind || kind == VoxelSpacingKind
}

// ScopeDir returns the directory containing entities of kind under scope.
func ScopeDir(kind Kind, scope Scope) (string, error) {
	switch kind {
	case RunKind:
		return runsDir, nil
	case VoxelSpacingKind:
		if scope.Run == "" {
			return "", tomo.Invalidf("scope", "voxel-spacing listing requires a run")
		}
		return runsDir + "/" + scope.Run, nil
	case VolumeKind, FeatureMapKind:
		if scope.Run == "" || scope.Spacing == "" {
			return "", tomo.Invalidf("scope", "%s listing requires run and spacing", kind)
		}
		return runsDir + "/" + scope.Run + "/" + spacingPrefix + scope.Spacing, nil
	case PicksKind:
		if scope.Run == "" {
			return "", tomo.Invalidf("scope", "picks listing requires a run")
		}
		return runsDir + "/" + scope.Run + "/" + picksDir, nil
	case MeshKind:
		if scope.Run == "" {
			return "", tomo.Invalidf("scope", "mesh listing requires a run")
		}
		return runsDir + "/" + scope.Run + "/" + meshesDir, nil
	case SegmentationKind:
		if scope.Run == "" {
			return "", tomo.Invalidf("scope", "segmentation listing requires a run")
		}
		return runsDir + "/" + scope.Run + "/" + segmentationsDir, nil
	default:
		return "", tomo.Invalidf("kind", "no layout for kind %d", kind)
	}
}

// EntryName returns the file or directory name of the descriptor inside
// its scope directory.
func EntryName(d Descriptor) (string, error) {
	switch d.Kind {
	case RunKind:
		return d.Name, nil
	case VoxelSpacingKind:
		return spacingPrefix + d.Spacing, nil
	case VolumeKind:
		return d.Name + volumeExt, nil
	case FeatureMapKind:
		return d.Name + "_" + d.Feature + featureExt, nil
	case PicksKind:
		return d.Attributor + "_" + d.Session + "_" + d.Name + picksExt, nil
	case MeshKind:
		return d.Attributor + "_" + d.Session + "_" + d.Name + meshExt, nil
	case SegmentationKind:
		base := d.Spacing + "_" + d.Attributor + "_" + d.Session + "_" + d.Name
		if d.Multilabel {
			return base + multiSegExt, nil
		}
		return base + segExt, nil
	default:
		return "", tomo.Invalidf("kind", "no entry name for kind %d", d.Kind)
	}
}

// Path returns the full slash-separated path of the descriptor.
func Path(d Descriptor) (string, error) {
	dir, err := ScopeDir(d.Kind, d.Scope)
	if err != nil {
		return "", err
	}
	entry, err := EntryName(d)
	if err != nil {
		return "", err
	}
	return dir + "/" + entry, nil
}

// ParseEntry reconstructs a descriptor from a scope-directory entry name.
// It returns ok == false for entries that do not belong to the kind, so
// listings can share directories (volumes and feature maps) without error.
func ParseEntry(kind Kind, scope Scope, entry string) (d Descriptor, ok bool) {
	d = Descriptor{Kind: kind, Scope: scope, Spacing: scope.Spacing}
	switch kind {
	case RunKind:
		d.Name = entry
		d.Scope = Scope{}
		d.Spacing = ""
		return d, entry != ""
	case VoxelSpacingKind:
		if !strings.HasPrefix(entry, spacingPrefix) {
			return d, false
		}
		s := strings.TrimPrefix(entry, spacingPrefix)
		v, err := ParseSpacing(s)
		if err != nil {
			return d, false
		}
		d.Spacing = CanonicalSpacing(v)
		return d, true
	case VolumeKind:
		if !strings.HasSuffix(entry, volumeExt) {
			return d, false
		}
		d.Name = strings.TrimSuffix(entry, volumeExt)
		return d, d.Name != ""
	case FeatureMapKind:
		if !strings.HasSuffix(entry, featureExt) {
			return d, false
		}
		base := strings.TrimSuffix(entry, featureExt)
		i := strings.LastIndex(base, "_")
		if i <= 0 || i == len(base)-1 {
			return d, false
		}
		d.Name, d.Feature = base[:i], base[i+1:]
		return d, true
	case PicksKind, MeshKind:
		ext := picksExt
		if kind == MeshKind {
			ext = meshExt
		}
		if !strings.HasSuffix(entry, ext) {
			return d, false
		}
		parts := strings.SplitN(strings.TrimSuffix(entry, ext), "_", 3)
		if len(parts) != 3 {
			return d, false
		}
		d.Attributor, d.Session, d.Name = parts[0], parts[1], parts[2]
		return d, d.Name != ""
	case SegmentationKind:
		base := entry
		switch {
		case strings.HasSuffix(entry, multiSegExt):
			base = strings.TrimSuffix(entry, multiSegExt)
			d.Multilabel = true
		case strings.HasSuffix(entry, segExt):
			base = strings.TrimSuffix(entry, segExt)
		default:
			return d, false
		}
		parts := strings.SplitN(base, "_", 4)
		if len(parts) != 4 {
			return d, false
		}
		v, err := ParseSpacing(parts[0])
		if err != nil {
			return d, false
		}
		d.Spacing = CanonicalSpacing(v)
		d.Attributor, d.Session, d.Name = parts[1], parts[2], parts[3]
		return d, d.Name != ""
	default:
		return d, false
	}
}
