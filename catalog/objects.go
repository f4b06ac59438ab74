/*
	This file defines the object definitions owned by a catalog root:
	the pickable particle species and segmentable regions that annotation
	entities reference by name.
*/

package catalog

import (
	"fmt"

	"github.com/tomoverse/tomocat/tomo"
)

// ObjectDefinition describes one pickable or segmentable object class.
type ObjectDefinition struct {
	// Name is the object identifier referenced by picks, meshes, and
	// non-multilabel segmentations.  It must survive tomo.SanitizeName.
	Name string `json:"name" toml:"name"`

	// IsParticle is true for point-pickable species, false for regions.
	IsParticle bool `json:"is_particle" toml:"is_particle"`

	// Label is the numeric voxel label, non-zero and unique across the set.
	Label int32 `json:"label" toml:"label"`

	// Color is the RGBA display color, four components in [0, 255].
	// A non-byte element type keeps JSON marshaling as a number array
	// rather than a base64 string.
	Color []int32 `json:"color,omitempty" toml:"color"`

	// External identifiers, when the object maps to a published structure.
	EMDBID string `json:"emdb_id,omitempty" toml:"emdb_id"`
	PDBID  string `json:"pdb_id,omitempty" toml:"pdb_id"`

	// Radius is the physical particle radius in angstroms, if known.
	Radius float64 `json:"radius,omitempty" toml:"radius"`

	// Metadata is free-form per-object data.
	Metadata tomo.Config `json:"metadata,omitempty" toml:"metadata"`
}

// ValidateObjects sanitizes every object name in place and checks the
// label and color constraints of the whole set.
func ValidateObjects(objects []ObjectDefinition) error {
	names := make(map[string]bool, len(objects))
	labels := make(map[int32]bool, len(objects))
	for i := range objects {
		obj := &objects[i]
		name, err := tomo.SanitizeName(obj.Name)
		if err != nil {
			return err
		}
		obj.Name = name
		if names[name] {
			return tomo.Invalidf("name", "duplicate object name %q", name)
		}
		names[name] = true
		if obj.Label == 0 {
			return tomo.Invalidf("label", "object %q must have a non-zero label", name)
		}
		if labels[obj.Label] {
			return tomo.Invalidf("label", "duplicate label %d on object %q", obj.Label, name)
		}
		labels[obj.Label] = true
		if len(obj.Color) != 0 && len(obj.Color) != 4 {
			return tomo.Invalidf("color", "object %q color must be RGBA (4 values), got %d", name, len(obj.Color))
		}
		for _, component := range obj.Color {
			if component < 0 || component > 255 {
				return tomo.Invalidf("color", "object %q color component %d out of [0, 255]", name, component)
			}
		}
	}
	return nil
}

func (o ObjectDefinition) String() string {
	kind := "region"
	if o.IsParticle {
		kind = "particle"
	}
	return fmt.Sprintf("%s %q (label %d)", kind, o.Name, o.Label)
}
