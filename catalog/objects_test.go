package catalog

import "testing"

func TestValidateObjects(t *testing.T) {
	objects := []ObjectDefinition{
		{Name: "large ribosome", IsParticle: true, Label: 1, Color: []int32{0, 255, 0, 255}},
		{Name: "membrane", Label: 2},
	}
	if err := ValidateObjects(objects); err != nil {
		t.Fatalf("ValidateObjects: %v", err)
	}
	if objects[0].Name != "large_ribosome" {
		t.Errorf("name not sanitized in place: %q", objects[0].Name)
	}

	bad := [][]ObjectDefinition{
		{{Name: "a", Label: 1}, {Name: "a", Label: 2}},             // duplicate name
		{{Name: "a", Label: 1}, {Name: "b", Label: 1}},             // duplicate label
		{{Name: "a", Label: 0}},                                    // zero label
		{{Name: "a", Label: 1, Color: []int32{1, 2, 3}}},           // non-RGBA color
		{{Name: "a", Label: 1, Color: []int32{0, 0, 0, 256}}},      // component out of range
		{{Name: "///", Label: 1}},                                  // unsanitizable name
	}
	for i, objects := range bad {
		if err := ValidateObjects(objects); err == nil {
			t.Errorf("case %d should fail validation", i)
		}
	}
}
