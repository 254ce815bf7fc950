package plan

import (
	"encoding/json"
	"fmt"
	"os"
)

// ParsePlanFile reads and parses a FloorPlan JSON file
func ParsePlanFile(path string) (*FloorPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return ParsePlanJSON(data)
}

// ParsePlanJSON parses a candidate FloorPlan and validates it. Both a bare
// plan and an envelope of the form {"floorPlan": {...}} are accepted.
func ParsePlanJSON(data []byte) (*FloorPlan, error) {
	var envelope struct {
		FloorPlan *FloorPlan `json:"floorPlan"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if envelope.FloorPlan != nil {
		return ValidateCandidate(envelope.FloorPlan), nil
	}

	var p FloorPlan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return ValidateCandidate(&p), nil
}

// ValidateCandidate cleans an untrusted candidate in place: degenerate
// walls are dropped, missing room areas are derived from the polygon or
// rectangle and nil collections become empty. The plan is returned for
// chaining.
func ValidateCandidate(p *FloorPlan) *FloorPlan {
	if p == nil {
		return nil
	}

	walls := make([]Wall, 0, len(p.Walls))
	for _, w := range p.Walls {
		if !w.Degenerate() {
			walls = append(walls, w)
		}
	}
	p.Walls = walls

	for i := range p.Rooms {
		r := &p.Rooms[i]
		if r.Area <= 0 {
			r.Area = round2(r.EffectiveArea())
		}
		if r.Position == (Rect{}) && len(r.Polygon) >= 3 {
			r.Position = Bounds(r.Polygon)
		}
	}

	if p.Rooms == nil {
		p.Rooms = []Room{}
	}
	if p.Doors == nil {
		p.Doors = []Door{}
	}
	if p.Windows == nil {
		p.Windows = []Window{}
	}
	return p
}

// ParseCaptureFile reads and parses a capture JSON file
func ParseCaptureFile(path string) (*Capture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return ParseCaptureJSON(data)
}

// ParseCaptureJSON parses a capture. Structural checks are left to
// ValidateCapture so that absent and empty lists stay distinguishable.
func ParseCaptureJSON(data []byte) (*Capture, error) {
	var c Capture
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return &c, nil
}

// SavePlan writes p as indented JSON
func SavePlan(path string, p *FloorPlan) error {
	return writeJSON(path, p)
}

// writeJSON marshals v with indentation and writes it to path
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
