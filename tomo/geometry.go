package tomo

import "fmt"

// Point3D is a location in physical (angstrom) space.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p Point3D) String() string {
	return fmt.Sprintf("(%g,%g,%g)", p.X, p.Y, p.Z)
}

// Transform is a 4x4 rigid or affine transform in row-major order.  The
// last row of any valid transform is exactly [0, 0, 0, 1].
type Transform [4][4]float64

// IdentityTransform returns the 4x4 identity.
func IdentityTransform() Transform {
	var t Transform
	for i := 0; i < 4; i++ {
		t[i][i] = 1
	}
	return t
}

// Validate returns a ValidationError unless the last row is [0,0,0,1].
func (t Transform) Validate() error {
	if t[3][0] != 0 || t[3][1] != 0 || t[3][2] != 0 || t[3][3] != 1 {
		return Invalidf("transform", "last row must be [0,0,0,1], got %v", t[3])
	}
	return nil
}
