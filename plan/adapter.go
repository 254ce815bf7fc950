package plan

import (
	"math"
	"strings"
)

// Adapter defaults, all in millimeters
const (
	DefaultCeilingHeightMM = 2700
	DefaultWallHeightMM    = 2700
	DefaultDoorHeightMM    = 2100
	DefaultWindowHeightM   = 1.2
	DefaultWindowSillMM    = 900
	WetAreaFloorOffsetMM   = -50

	defaultWallThicknessM = 0.2
	defaultDoorWidthM     = 0.9
	defaultWindowWidthM   = 1.8

	// boundaryTolerance is how far, in meters, a wall midpoint may sit
	// outside a room's rectangle and still bound it.
	boundaryTolerance = 0.5
)

// Renovation status of a project element
const (
	StatusExisting = "EXISTING"
	StatusNew      = "NEW"
)

// ToMM converts meters to whole millimeters
func ToMM(m float64) int {
	return int(math.Round(m * 1000))
}

// FromMM converts millimeters back to meters
func FromMM(mm int) float64 {
	return float64(mm) / 1000
}

// PointMM is a plan coordinate in millimeters
type PointMM struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// BoxMM is an axis-aligned rectangle in millimeters
type BoxMM struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Baseboard is the skirting specification of a room
type Baseboard struct {
	HeightMM int    `json:"height"`
	Material string `json:"material"`
}

// ProjectRoom is a room in the construction model
type ProjectRoom struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Type             string      `json:"type"`
	Polygon          []PointMM   `json:"polygon"`
	Holes            [][]PointMM `json:"holes,omitempty"`
	Center           *PointMM    `json:"center,omitempty"`
	AreaM2           float64     `json:"area"`
	CeilingHeightMM  int         `json:"ceilingHeight"`
	FloorLevelOffset int         `json:"floorLevelOffset"`
	IsWetArea        bool        `json:"isWetArea"`
	FloorMaterial    string      `json:"floorMaterial,omitempty"`
	HeatingType      string      `json:"heatingType"`
	Baseboard        Baseboard   `json:"baseboard"`
	BoundaryWallIDs  []string    `json:"boundaryWallIds"`
}

// ProjectWall is a wall in the construction model
type ProjectWall struct {
	ID          string  `json:"id"`
	Start       PointMM `json:"start"`
	End         PointMM `json:"end"`
	ThicknessMM int     `json:"thickness"`
	HeightMM    int     `json:"height"`
	Material    string  `json:"material"`
	WallType    string  `json:"wallType"`
	IsExterior  bool    `json:"isExterior"`
	Status      string  `json:"status"`
}

// Opening is a door or window attached to a wall
type Opening struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"` // DOOR or WINDOW
	Type           string    `json:"type"`
	WallID         string    `json:"wallId"`
	Position       PointMM   `json:"position"`
	WidthMM        int       `json:"width"`
	HeightMM       int       `json:"height"`
	SillHeightMM   int       `json:"sillHeight"`
	Rotation       float64   `json:"rotation"`
	ConnectedRooms [2]string `json:"connectedRooms,omitempty"`
	Status         string    `json:"status"`
}

// UtilityNeeds lists the services a fixture must be connected to
type UtilityNeeds struct {
	Water      bool `json:"water"`
	Drain      bool `json:"drain"`
	Gas        bool `json:"gas"`
	Electrical bool `json:"electrical"`
}

// ProjectFixture is an installed fixture in the construction model
type ProjectFixture struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	RoomID      string       `json:"roomId"`
	BoundingBox BoxMM        `json:"boundingBox"`
	Utilities   UtilityNeeds `json:"requiresUtilities"`
	Status      string       `json:"status"`
}

// Project is the millimeter construction model handed to quantity and
// cost estimation.
type Project struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	TotalAreaM2 float64          `json:"totalArea"`
	Rooms       []ProjectRoom    `json:"rooms"`
	Walls       []ProjectWall    `json:"walls"`
	Openings    []Opening        `json:"openings"`
	Fixtures    []ProjectFixture `json:"fixtures"`
}

var projectRoomTypes = map[RoomType]string{
	RoomLiving:    "LIVING_ROOM",
	RoomMasterBed: "MASTER_BEDROOM",
	RoomBed:       "BEDROOM",
}

var projectDoorTypes = map[DoorType]string{
	DoorSwing:   "SINGLE_DOOR",
	DoorSliding: "SLIDING_DOOR",
	DoorFolding: "FOLDING_DOOR",
}

var projectFixtureTypes = map[FixtureType]string{
	FixtureToilet:      "TOILET",
	FixtureSink:        "BASIN",
	FixtureKitchenSink: "KITCHEN_SINK",
	FixtureBathtub:     "BATHTUB",
	FixtureStove:       "GAS_RANGE",
}

var (
	waterFixtures = map[string]bool{
		"TOILET": true, "BASIN": true, "BATHTUB": true, "KITCHEN_SINK": true,
		"SHOWER_BOOTH": true, "SHOWER_HEAD": true, "BIDET": true, "BASIN_CABINET": true,
	}
	drainFixtures = map[string]bool{
		"TOILET": true, "BASIN": true, "BATHTUB": true, "KITCHEN_SINK": true,
		"SHOWER_BOOTH": true, "BIDET": true, "BASIN_CABINET": true,
	}
	gasFixtures        = map[string]bool{"GAS_RANGE": true, "BOILER": true}
	electricalFixtures = map[string]bool{"INDUCTION": true, "RANGE_HOOD": true, "AC_INDOOR": true, "BOILER": true}
)

// ProjectRoomType maps a plan room type onto the construction taxonomy
func ProjectRoomType(t RoomType) string {
	if mapped, ok := projectRoomTypes[t]; ok {
		return mapped
	}
	return string(t)
}

// IsWetArea reports whether rooms of type t need waterproofed floors
func IsWetArea(t RoomType) bool {
	return t == RoomBathroom
}

// Adapt converts a final plan into a millimeter construction project.
// Every input id is preserved and nothing is dropped. Walls and windows
// are kept as existing; doors and fixtures are always replaced.
func Adapt(p *FloorPlan, projectID, projectName string) *Project {
	if p == nil {
		p = &FloorPlan{}
	}
	walls := newWallIndex(p.Walls)

	proj := &Project{
		ID:          projectID,
		Name:        projectName,
		TotalAreaM2: p.TotalArea,
		Rooms:       make([]ProjectRoom, 0, len(p.Rooms)),
		Walls:       make([]ProjectWall, 0, len(p.Walls)),
		Openings:    make([]Opening, 0, len(p.Doors)+len(p.Windows)),
		Fixtures:    make([]ProjectFixture, 0, len(p.Fixtures)),
	}

	for _, r := range p.Rooms {
		proj.Rooms = append(proj.Rooms, adaptRoom(r, p.Walls))
	}
	for _, w := range p.Walls {
		proj.Walls = append(proj.Walls, adaptWall(w))
	}
	for _, d := range p.Doors {
		wallID := d.WallID
		if wallID == "" {
			wallID = walls.nearest(d.Position)
		}
		proj.Openings = append(proj.Openings, Opening{
			ID:             d.ID,
			Kind:           "DOOR",
			Type:           doorProjectType(d.Type),
			WallID:         wallID,
			Position:       pointMM(d.Position),
			WidthMM:        ToMM(orDefault(d.Width, defaultDoorWidthM)),
			HeightMM:       DefaultDoorHeightMM,
			SillHeightMM:   0,
			Rotation:       d.Rotation,
			ConnectedRooms: d.ConnectedRooms,
			Status:         StatusNew,
		})
	}
	for _, w := range p.Windows {
		wallID := w.WallID
		if wallID == "" {
			wallID = walls.nearest(w.Position)
		}
		proj.Openings = append(proj.Openings, Opening{
			ID:           w.ID,
			Kind:         "WINDOW",
			Type:         "WINDOW",
			WallID:       wallID,
			Position:     pointMM(w.Position),
			WidthMM:      ToMM(orDefault(w.Width, defaultWindowWidthM)),
			HeightMM:     ToMM(orDefault(w.Height, DefaultWindowHeightM)),
			SillHeightMM: DefaultWindowSillMM,
			Rotation:     w.Rotation,
			Status:       StatusExisting,
		})
	}
	for _, f := range p.Fixtures {
		proj.Fixtures = append(proj.Fixtures, adaptFixture(f))
	}
	return proj
}

func adaptRoom(r Room, walls []Wall) ProjectRoom {
	wet := IsWetArea(r.Type)
	name := r.Name
	if name == "" {
		name = r.Type.DisplayName()
	}

	pr := ProjectRoom{
		ID:              r.ID,
		Name:            name,
		Type:            ProjectRoomType(r.Type),
		AreaM2:          r.EffectiveArea(),
		CeilingHeightMM: DefaultCeilingHeightMM,
		IsWetArea:       wet,
		FloorMaterial:   r.Material,
		HeatingType:     "ONDOL",
		Baseboard:       Baseboard{HeightMM: 80, Material: "PVC"},
		BoundaryWallIDs: boundaryWalls(r, walls),
	}
	if wet {
		pr.FloorLevelOffset = WetAreaFloorOffsetMM
		pr.Baseboard = Baseboard{HeightMM: 100, Material: "TILE"}
	}

	if len(r.Polygon) >= 3 {
		pr.Polygon = polygonMM(r.Polygon)
	} else {
		pr.Polygon = polygonMM(rectPolygon(r.Position))
	}
	for _, h := range r.Holes {
		pr.Holes = append(pr.Holes, polygonMM(h))
	}
	if r.Center != nil {
		c := pointMM(*r.Center)
		pr.Center = &c
	}
	return pr
}

// boundaryWalls returns, in wall order, the walls whose midpoint lies in
// the room rectangle grown by boundaryTolerance.
func boundaryWalls(r Room, walls []Wall) []string {
	area := r.Position
	if len(r.Polygon) >= 3 && area.Width == 0 && area.Height == 0 {
		area = Bounds(r.Polygon)
	}
	area = area.Expand(boundaryTolerance)

	ids := []string{}
	for _, w := range walls {
		if area.Contains(w.Midpoint()) {
			ids = append(ids, w.ID)
		}
	}
	return ids
}

func adaptWall(w Wall) ProjectWall {
	material := "BLOCK"
	wallType := "interior"
	if w.IsExterior {
		material = "CONCRETE"
		wallType = "exterior"
	}
	if w.WallType != "" {
		wallType = w.WallType
	}
	return ProjectWall{
		ID:          w.ID,
		Start:       pointMM(w.Start),
		End:         pointMM(w.End),
		ThicknessMM: ToMM(orDefault(w.Thickness, defaultWallThicknessM)),
		HeightMM:    DefaultWallHeightMM,
		Material:    material,
		WallType:    wallType,
		IsExterior:  w.IsExterior,
		Status:      StatusExisting,
	}
}

func adaptFixture(f Fixture) ProjectFixture {
	kind := fixtureProjectType(f.Type)
	return ProjectFixture{
		ID:     f.ID,
		Type:   kind,
		RoomID: f.RoomID,
		BoundingBox: BoxMM{
			X:      ToMM(f.Position.X),
			Y:      ToMM(f.Position.Y),
			Width:  ToMM(f.Position.Width),
			Height: ToMM(f.Position.Height),
		},
		Utilities: UtilityNeeds{
			Water:      waterFixtures[kind],
			Drain:      drainFixtures[kind],
			Gas:        gasFixtures[kind],
			Electrical: electricalFixtures[kind],
		},
		Status: StatusNew,
	}
}

func doorProjectType(t DoorType) string {
	if mapped, ok := projectDoorTypes[t]; ok {
		return mapped
	}
	return projectDoorTypes[DoorSwing]
}

func fixtureProjectType(t FixtureType) string {
	if mapped, ok := projectFixtureTypes[t]; ok {
		return mapped
	}
	return strings.ToUpper(string(t))
}

func pointMM(p Point) PointMM {
	return PointMM{X: ToMM(p.X), Y: ToMM(p.Y)}
}

func polygonMM(poly Polygon) []PointMM {
	out := make([]PointMM, len(poly))
	for i, p := range poly {
		out[i] = pointMM(p)
	}
	return out
}
