/*
	This file defines the typed run-level annotation entities: picks,
	meshes, and segmentations.
*/

package catalog

// Picks is an ordered collection of picked points for one object,
// identified by (object name, attributor id, session id).
type Picks struct {
	Entity
	run *Run
}

// ObjectName returns the picked object's name.
func (p *Picks) ObjectName() string {
	return p.desc.Name
}

// Attributor returns the attributor id of the collection.
func (p *Picks) Attributor() string {
	return p.desc.Attributor
}

// Session returns the session id; ToolSessionID marks tool provenance.
func (p *Picks) Session() string {
	return p.desc.Session
}

// FromTool reports whether the collection carries tool/algorithm
// provenance rather than a human session.
func (p *Picks) FromTool() bool {
	return p.desc.Session == ToolSessionID
}

// Load reads and decodes the ordered point list.
func (p *Picks) Load() ([]PickPoint, error) {
	payload, err := p.Read()
	if err != nil {
		return nil, err
	}
	return DecodePicks(payload)
}

// Store encodes and writes the ordered point list.
func (p *Picks) Store(points []PickPoint) error {
	payload, err := EncodePicks(points)
	if err != nil {
		return err
	}
	return p.Write(payload)
}

// Mesh is a lazily loaded geometry payload for one object, identified by
// (object name, attributor id, session id).
type Mesh struct {
	Entity
	run *Run
}

// ObjectName returns the meshed object's name.
func (m *Mesh) ObjectName() string {
	return m.desc.Name
}

// Geometry reads the mesh payload.
func (m *Mesh) Geometry() ([]byte, error) {
	return m.Read()
}

// Segmentation is a voxel label map, identified by (spacing, attributor
// id, session id, name, multilabel flag).
type Segmentation struct {
	Entity
	run *Run
}

// Name returns the segmentation name.  For non-multilabel segmentations
// this references a defined object; multilabel names are arbitrary.
func (s *Segmentation) Name() string {
	return s.desc.Name
}

// Multilabel reports whether the map encodes multiple object classes.
func (s *Segmentation) Multilabel() bool {
	return s.desc.Multilabel
}

// Spacing returns the canonical voxel spacing of the label map.
func (s *Segmentation) Spacing() string {
	return s.desc.Spacing
}
