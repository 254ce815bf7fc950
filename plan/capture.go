package plan

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCapture is wrapped by every capture validation failure
var ErrInvalidCapture = errors.New("invalid capture")

// ValidationError describes a structural precondition a capture violated
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidCapture
}

// Vector3 is a capture-space vector in meters
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// CaptureElement is an oriented box from a room capture: a wall, door,
// window or object. Dimensions are width (x), height (y) and depth (z).
type CaptureElement struct {
	Identifier       string    `json:"identifier"`
	Category         string    `json:"category,omitempty"`
	Dimensions       Vector3   `json:"dimensions"`
	Transform        []float64 `json:"transform"`
	Attributes       []string  `json:"attributes,omitempty"`
	ParentIdentifier string    `json:"parentIdentifier,omitempty"`
}

// FloorCorner is a floor polygon vertex on the horizontal capture plane
type FloorCorner struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// CaptureFloor is one floor polygon of a capture
type CaptureFloor struct {
	Identifier     string        `json:"identifier"`
	PolygonCorners []FloorCorner `json:"polygonCorners"`
}

// CaptureSection is a labeled region reported by the capture device
type CaptureSection struct {
	Identifier string   `json:"identifier"`
	Label      string   `json:"label,omitempty"`
	Center     *Vector3 `json:"center,omitempty"`
}

// Capture is a 3D LiDAR room capture in the RoomPlan CapturedRoom shape.
// Walls and Floors are required; the other lists may be absent.
type Capture struct {
	Identifier string           `json:"identifier,omitempty"`
	Walls      []CaptureElement `json:"walls"`
	Doors      []CaptureElement `json:"doors"`
	Windows    []CaptureElement `json:"windows"`
	Objects    []CaptureElement `json:"objects"`
	Floors     []CaptureFloor   `json:"floors"`
	Sections   []CaptureSection `json:"sections,omitempty"`
	RowMajor   bool             `json:"rowMajor,omitempty"`
}

// CaptureResult is a normalized capture plus the objects that are not
// installed fixtures.
type CaptureResult struct {
	FloorPlan  *FloorPlan         `json:"floorPlan"`
	Furniture  []ScannedFurniture `json:"furniture"`
	Confidence float64            `json:"confidence"`
	Method     string             `json:"method"`
	Warnings   []string           `json:"warnings"`
}

const (
	captureMethod     = "roomplan_lidar"
	captureConfidence = 0.85

	defaultCaptureWallLength    = 1.0
	defaultCaptureWallThickness = 0.12
	defaultCaptureDoorWidth     = 0.9
	defaultCaptureWindowWidth   = 1.0
	defaultCaptureWindowHeight  = 1.2
	defaultCaptureObjectExtent  = 0.5
)

// objectFixtures maps capture object categories to installed fixture types.
// Categories not listed are furniture.
var objectFixtures = map[string]FixtureType{
	"toilet":     FixtureToilet,
	"sink":       FixtureSink,
	"bathtub":    FixtureBathtub,
	"washer":     FixtureToilet,
	"stove":      FixtureStove,
	"oven":       FixtureStove,
	"dishwasher": FixtureKitchenSink,
}

// sectionRoomTypes maps capture section labels to room types
var sectionRoomTypes = map[string]RoomType{
	"livingroom": RoomLiving,
	"diningroom": RoomLiving,
	"bedroom":    RoomBed,
	"bathroom":   RoomBathroom,
	"kitchen":    RoomKitchen,
}

// ValidateCapture checks the structural preconditions of a capture. It is
// the only fatal step of normalization.
func ValidateCapture(c *Capture) error {
	if c == nil {
		return &ValidationError{Field: "capture", Reason: "missing"}
	}
	if c.Walls == nil {
		return &ValidationError{Field: "walls", Reason: "list is required"}
	}
	if c.Floors == nil {
		return &ValidationError{Field: "floors", Reason: "list is required"}
	}
	if len(c.Floors) == 0 {
		return &ValidationError{Field: "floors", Reason: "at least one floor polygon is required"}
	}
	for i, f := range c.Floors {
		if len(f.PolygonCorners) < 3 {
			return &ValidationError{
				Field:  fmt.Sprintf("floors[%d]", i),
				Reason: fmt.Sprintf("polygon has %d corners, need at least 3", len(f.PolygonCorners)),
			}
		}
	}
	groups := []struct {
		name  string
		items []CaptureElement
	}{
		{"walls", c.Walls}, {"doors", c.Doors}, {"windows", c.Windows}, {"objects", c.Objects},
	}
	for _, g := range groups {
		for i, e := range g.items {
			if len(e.Transform) != 16 {
				return &ValidationError{
					Field:  fmt.Sprintf("%s[%d].transform", g.name, i),
					Reason: fmt.Sprintf("has %d elements, want 16", len(e.Transform)),
				}
			}
		}
	}
	return nil
}

// NormalizeCapture converts a 3D capture into a 2D FloorPlan. Capture X
// stays X and capture Z becomes plan Y; heights are dropped.
func NormalizeCapture(c *Capture) (*CaptureResult, error) {
	if err := ValidateCapture(c); err != nil {
		return nil, err
	}

	walls, wallIDs := normalizeWalls(c)
	rooms := normalizeFloors(c)
	nearestWalls := newWallIndex(walls)

	doors := make([]Door, 0, len(c.Doors))
	for i, d := range c.Doors {
		t, _ := ParseTransform(d.Transform, c.RowMajor)
		pos := t.PlanPosition()
		wallID := wallIDs[d.ParentIdentifier]
		if wallID == "" {
			wallID = nearestWalls.nearest(pos)
		}
		doors = append(doors, Door{
			ID:             fmt.Sprintf("door-%d", i),
			Position:       pos,
			Width:          orDefault(d.Dimensions.X, defaultCaptureDoorWidth),
			Rotation:       t.YawDegrees(),
			Type:           captureDoorType(d.Attributes),
			ConnectedRooms: [2]string{"", ""},
			WallID:         wallID,
		})
	}

	windows := make([]Window, 0, len(c.Windows))
	for i, w := range c.Windows {
		t, _ := ParseTransform(w.Transform, c.RowMajor)
		pos := t.PlanPosition()
		wallID := wallIDs[w.ParentIdentifier]
		if wallID == "" {
			wallID = nearestWalls.nearest(pos)
		}
		windows = append(windows, Window{
			ID:       fmt.Sprintf("win-%d", i),
			Position: pos,
			Width:    orDefault(w.Dimensions.X, defaultCaptureWindowWidth),
			Height:   orDefault(w.Dimensions.Y, defaultCaptureWindowHeight),
			Rotation: t.YawDegrees(),
			WallID:   wallID,
		})
	}

	fixtures := make([]Fixture, 0)
	furniture := make([]ScannedFurniture, 0)
	for i, o := range c.Objects {
		t, _ := ParseTransform(o.Transform, c.RowMajor)
		pos := t.PlanPosition()
		width := orDefault(o.Dimensions.X, defaultCaptureObjectExtent)
		depth := orDefault(o.Dimensions.Z, defaultCaptureObjectExtent)
		roomID := ContainingRoom(pos, rooms)

		if ft, ok := objectFixtures[strings.ToLower(o.Category)]; ok {
			fixtures = append(fixtures, Fixture{
				ID:       fmt.Sprintf("fix-%d", i),
				Type:     ft,
				Position: Rect{X: pos.X - width/2, Y: pos.Y - depth/2, Width: width, Height: depth},
				RoomID:   roomID,
			})
			continue
		}
		furniture = append(furniture, ScannedFurniture{
			ID:            fmt.Sprintf("furn-%d", i),
			Category:      o.Category,
			RoomID:        roomID,
			Position:      pos,
			Width:         width,
			Depth:         depth,
			Height:        orDefault(o.Dimensions.Y, defaultCaptureObjectExtent),
			KeepOrReplace: "undecided",
		})
	}

	total := 0.0
	for _, r := range rooms {
		total += r.Area
	}

	var warnings []string
	if len(walls) == 0 {
		warnings = append(warnings, "no walls captured")
	}

	return &CaptureResult{
		FloorPlan: &FloorPlan{
			TotalArea: round2(total),
			Rooms:     rooms,
			Walls:     walls,
			Doors:     doors,
			Windows:   windows,
			Fixtures:  fixtures,
		},
		Furniture:  furniture,
		Confidence: captureConfidence,
		Method:     captureMethod,
		Warnings:   warnings,
	}, nil
}

// normalizeWalls projects capture walls onto the plan and returns them
// with a lookup from capture identifier to wall id.
func normalizeWalls(c *Capture) ([]Wall, map[string]string) {
	walls := make([]Wall, 0, len(c.Walls))
	ids := make(map[string]string, len(c.Walls))
	for i, w := range c.Walls {
		t, _ := ParseTransform(w.Transform, c.RowMajor)
		start, end := t.SegmentEndpoints(orDefault(w.Dimensions.X, defaultCaptureWallLength))
		id := fmt.Sprintf("wall-%d", i)
		if w.Identifier != "" {
			ids[w.Identifier] = id
		}
		walls = append(walls, Wall{
			ID:        id,
			Start:     start,
			End:       end,
			Thickness: orDefault(w.Dimensions.Z, defaultCaptureWallThickness),
			// Captures cannot tell exterior from interior walls.
			IsExterior: false,
		})
	}
	return walls, ids
}

// normalizeFloors turns floor polygons into typed rooms. The single
// largest bedroom is promoted to master bedroom.
func normalizeFloors(c *Capture) []Room {
	rooms := make([]Room, 0, len(c.Floors))
	for i, f := range c.Floors {
		poly := make(Polygon, len(f.PolygonCorners))
		for j, corner := range f.PolygonCorners {
			poly[j] = Point{X: corner.X, Y: corner.Z}
		}
		area := PolygonArea(poly)
		roomType := classifyByArea(area)
		if labeled, ok := sectionTypeFor(poly, c.Sections); ok {
			roomType = labeled
		}
		rooms = append(rooms, Room{
			ID:       fmt.Sprintf("room-%d", i),
			Type:     roomType,
			Area:     round2(area),
			Position: Bounds(poly),
			Polygon:  poly,
		})
	}

	master := -1
	for i, r := range rooms {
		if r.Type == RoomBed && (master < 0 || r.Area > rooms[master].Area) {
			master = i
		}
	}
	if master >= 0 {
		rooms[master].Type = RoomMasterBed
	}

	counts := make(map[RoomType]int)
	totals := make(map[RoomType]int)
	for _, r := range rooms {
		totals[r.Type]++
	}
	for i := range rooms {
		t := rooms[i].Type
		counts[t]++
		if totals[t] > 1 {
			rooms[i].Name = fmt.Sprintf("%s %d", t.DisplayName(), counts[t])
		} else {
			rooms[i].Name = t.DisplayName()
		}
	}
	return rooms
}

// classifyByArea infers a room type from its floor area in m²
func classifyByArea(area float64) RoomType {
	switch {
	case area > 15:
		return RoomLiving
	case area > 8:
		return RoomBed
	case area > 5:
		return RoomKitchen
	case area > 3:
		return RoomBathroom
	case area > 2:
		return RoomEntrance
	default:
		return RoomUtility
	}
}

// sectionTypeFor returns the type of the first labeled section whose
// center falls inside poly.
func sectionTypeFor(poly Polygon, sections []CaptureSection) (RoomType, bool) {
	for _, s := range sections {
		if s.Center == nil {
			continue
		}
		t, ok := sectionRoomTypes[strings.ToLower(s.Label)]
		if !ok {
			continue
		}
		if PointInPolygon(Point{X: s.Center.X, Y: s.Center.Z}, poly) {
			return t, true
		}
	}
	return "", false
}

func captureDoorType(attributes []string) DoorType {
	for _, a := range attributes {
		switch strings.ToLower(a) {
		case "sliding":
			return DoorSliding
		case "folding":
			return DoorFolding
		}
	}
	return DoorSwing
}

// orDefault substitutes def for a zero extent
func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
