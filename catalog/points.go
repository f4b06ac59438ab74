/*
	This file defines the point-record payload of picks collections.  The
	payload is a JSON document; every transform carried by a point must
	have [0,0,0,1] as its last row, checked on both encode and decode.
*/

package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/tomoverse/tomocat/tomo"
)

// PickPoint is one picked particle location.
type PickPoint struct {
	Location   tomo.Point3D    `json:"location"`
	Transform  *tomo.Transform `json:"transform,omitempty"`
	InstanceID int             `json:"instance_id"`
	Score      float64         `json:"score"`
}

type pickDocument struct {
	Points []PickPoint `json:"points"`
}

func validatePoints(points []PickPoint) error {
	for i, p := range points {
		if p.Transform == nil {
			continue
		}
		if err := p.Transform.Validate(); err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
	}
	return nil
}

// EncodePicks serializes an ordered point list into a picks payload.
func EncodePicks(points []PickPoint) ([]byte, error) {
	if err := validatePoints(points); err != nil {
		return nil, err
	}
	if points == nil {
		points = []PickPoint{}
	}
	return json.Marshal(pickDocument{Points: points})
}

// DecodePicks parses a picks payload back into its ordered point list.
func DecodePicks(payload []byte) ([]PickPoint, error) {
	var doc pickDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, tomo.Invalidf("picks", "cannot parse payload: %v", err)
	}
	if err := validatePoints(doc.Points); err != nil {
		return nil, err
	}
	return doc.Points, nil
}
