package plan

import "slices"

// Point represents a 2D coordinate in meters (millimeters once adapted)
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polygon is an implicitly closed ring of at least three points
type Polygon []Point

// Rect is an axis-aligned rectangle anchored at its minimum corner
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of the rectangle
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies inside r, edges included
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Expand grows the rectangle by d on every side
func (r Rect) Expand(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// RoomType is the semantic classification of a room
type RoomType string

const (
	RoomLiving    RoomType = "LIVING"
	RoomKitchen   RoomType = "KITCHEN"
	RoomMasterBed RoomType = "MASTER_BED"
	RoomBed       RoomType = "BED"
	RoomBathroom  RoomType = "BATHROOM"
	RoomEntrance  RoomType = "ENTRANCE"
	RoomBalcony   RoomType = "BALCONY"
	RoomUtility   RoomType = "UTILITY"
	RoomCorridor  RoomType = "CORRIDOR"
	RoomDressRoom RoomType = "DRESSROOM"
)

// RoomTypes lists every known room type in display order
var RoomTypes = []RoomType{
	RoomLiving, RoomKitchen, RoomMasterBed, RoomBed, RoomBathroom,
	RoomEntrance, RoomBalcony, RoomUtility, RoomCorridor, RoomDressRoom,
}

// Valid reports whether t is one of the known room types
func (t RoomType) Valid() bool {
	for _, known := range RoomTypes {
		if t == known {
			return true
		}
	}
	return false
}

var roomTypeNames = map[RoomType]string{
	RoomLiving:    "Living Room",
	RoomKitchen:   "Kitchen",
	RoomMasterBed: "Master Bedroom",
	RoomBed:       "Bedroom",
	RoomBathroom:  "Bathroom",
	RoomEntrance:  "Entrance",
	RoomBalcony:   "Balcony",
	RoomUtility:   "Utility Room",
	RoomCorridor:  "Corridor",
	RoomDressRoom: "Dress Room",
}

// DisplayName returns a human-readable label for the room type
func (t RoomType) DisplayName() string {
	if name, ok := roomTypeNames[t]; ok {
		return name
	}
	return string(t)
}

// Room is a single enclosed space of the dwelling
type Room struct {
	ID       string    `json:"id"`
	Type     RoomType  `json:"type"`
	Name     string    `json:"name"`
	Area     float64   `json:"area"` // m², authoritative when > 0
	Position Rect      `json:"position"`
	Polygon  Polygon   `json:"polygon,omitempty"`
	Holes    []Polygon `json:"holes,omitempty"`
	Center   *Point    `json:"center,omitempty"`
	Material string    `json:"material,omitempty"` // "wood", "tile", "unknown"
}

// EffectiveArea returns the stated area, falling back to the polygon
// and then to the position rectangle when no area was supplied.
func (r Room) EffectiveArea() float64 {
	if r.Area > 0 {
		return r.Area
	}
	if len(r.Polygon) >= 3 {
		return PolygonArea(r.Polygon)
	}
	return r.Position.Width * r.Position.Height
}

// Wall is a single straight wall segment
type Wall struct {
	ID         string  `json:"id"`
	Start      Point   `json:"start"`
	End        Point   `json:"end"`
	Thickness  float64 `json:"thickness"`
	IsExterior bool    `json:"isExterior"`
	WallType   string  `json:"wallType,omitempty"` // "exterior", "interior", "partition"
}

// Midpoint returns the center of the wall segment
func (w Wall) Midpoint() Point {
	return Point{X: (w.Start.X + w.End.X) / 2, Y: (w.Start.Y + w.End.Y) / 2}
}

// Length returns the wall length in plan units
func (w Wall) Length() float64 {
	return Distance(w.Start, w.End)
}

// Degenerate reports whether the wall collapses to a single point
func (w Wall) Degenerate() bool {
	return w.Start == w.End
}

// DoorType is the opening mechanism of a door
type DoorType string

const (
	DoorSwing   DoorType = "swing"
	DoorSliding DoorType = "sliding"
	DoorFolding DoorType = "folding"
)

// Door connects two rooms; an empty second room means exterior
type Door struct {
	ID             string    `json:"id"`
	Position       Point     `json:"position"`
	Width          float64   `json:"width"`
	Rotation       float64   `json:"rotation"` // degrees
	Type           DoorType  `json:"type"`
	ConnectedRooms [2]string `json:"connectedRooms"`
	WallID         string    `json:"wallId,omitempty"`
}

// Window is an opening attached to a wall
type Window struct {
	ID       string  `json:"id"`
	Position Point   `json:"position"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
	WallID   string  `json:"wallId"`
}

// FixtureType is the kind of installed fixture
type FixtureType string

const (
	FixtureToilet      FixtureType = "toilet"
	FixtureSink        FixtureType = "sink"
	FixtureKitchenSink FixtureType = "kitchen_sink"
	FixtureBathtub     FixtureType = "bathtub"
	FixtureStove       FixtureType = "stove"
)

// Fixture is an installed fixture with its footprint
type Fixture struct {
	ID       string      `json:"id"`
	Type     FixtureType `json:"type"`
	Position Rect        `json:"position"`
	RoomID   string      `json:"roomId,omitempty"`
}

// Dimension is a measured annotation; it never constrains geometry
type Dimension struct {
	ID      string  `json:"id"`
	Start   Point   `json:"startPoint"`
	End     Point   `json:"endPoint"`
	ValueMM float64 `json:"valueMm"`
	Label   string  `json:"label"`
}

// FloorPlan is the normalized model of one dwelling
type FloorPlan struct {
	TotalArea  float64     `json:"totalArea"`
	Rooms      []Room      `json:"rooms"`
	Walls      []Wall      `json:"walls"`
	Doors      []Door      `json:"doors"`
	Windows    []Window    `json:"windows"`
	Fixtures   []Fixture   `json:"fixtures,omitempty"`
	Dimensions []Dimension `json:"dimensions,omitempty"`
}

// Clone returns a deep copy that shares no slices with p
func (p *FloorPlan) Clone() *FloorPlan {
	if p == nil {
		return nil
	}
	c := &FloorPlan{TotalArea: p.TotalArea}
	c.Rooms = slices.Clone(p.Rooms)
	for i, r := range c.Rooms {
		c.Rooms[i] = r.clone()
	}
	c.Walls = slices.Clone(p.Walls)
	c.Doors = slices.Clone(p.Doors)
	c.Windows = slices.Clone(p.Windows)
	c.Fixtures = slices.Clone(p.Fixtures)
	c.Dimensions = slices.Clone(p.Dimensions)
	return c
}

func (r Room) clone() Room {
	c := r
	c.Polygon = slices.Clone(r.Polygon)
	c.Holes = slices.Clone(r.Holes)
	for i, h := range c.Holes {
		c.Holes[i] = slices.Clone(h)
	}
	if r.Center != nil {
		center := *r.Center
		c.Center = &center
	}
	return c
}

// RoomArea sums the effective area of every room
func (p *FloorPlan) RoomArea() float64 {
	total := 0.0
	for _, r := range p.Rooms {
		total += r.EffectiveArea()
	}
	return total
}

// RoomTypeCounts returns how many rooms of each type the plan holds
func (p *FloorPlan) RoomTypeCounts() map[RoomType]int {
	counts := make(map[RoomType]int)
	for _, r := range p.Rooms {
		counts[r.Type]++
	}
	return counts
}

// QualityReport itemizes how far a plan can be trusted
type QualityReport struct {
	WallClosure      float64  `json:"wallClosure"`
	AreaAccuracy     float64  `json:"areaAccuracy"`
	RoomDetection    float64  `json:"roomDetection"`
	FixtureDetection float64  `json:"fixtureDetection"`
	Overall          float64  `json:"overall"`
	Warnings         []string `json:"warnings"`
}

// TemplateMatchResult is the outcome of a template library lookup
type TemplateMatchResult struct {
	Matched    bool       `json:"matched"`
	TemplateID *string    `json:"templateId"`
	Score      float64    `json:"matchScore"`
	FloorPlan  *FloorPlan `json:"floorPlan"`
	Method     string     `json:"method"`
}

// ScannedFurniture is a captured object that is not an installed fixture
type ScannedFurniture struct {
	ID            string  `json:"id"`
	Category      string  `json:"category"`
	RoomID        string  `json:"roomId"`
	Position      Point   `json:"position"`
	Width         float64 `json:"width"`
	Depth         float64 `json:"depth"`
	Height        float64 `json:"height"`
	KeepOrReplace string  `json:"keepOrReplace"` // "keep", "replace", "undecided"
}
