package plan

import (
	"errors"
	"math"
	"testing"
)

func floor(id string, corners ...FloorCorner) CaptureFloor {
	return CaptureFloor{Identifier: id, PolygonCorners: corners}
}

func box(x0, z0, x1, z1 float64) []FloorCorner {
	return []FloorCorner{{x0, z0}, {x1, z0}, {x1, z1}, {x0, z1}}
}

// sampleCapture is a 4x3 m bedroom next to a 2x2 m bathroom
func sampleCapture() *Capture {
	return &Capture{
		Identifier: "scan-1",
		Walls: []CaptureElement{
			{Identifier: "w-south", Category: "wall", Dimensions: Vector3{X: 4, Y: 2.4, Z: 0.15}, Transform: yawTransform(0, 2, 1.2, 0)},
			{Identifier: "w-east", Category: "wall", Dimensions: Vector3{X: 3, Y: 2.4}, Transform: yawTransform(90, 4, 1.2, 1.5)},
			{Identifier: "w-north", Category: "wall", Dimensions: Vector3{X: 4, Y: 2.4}, Transform: yawTransform(180, 2, 1.2, 3)},
			{Identifier: "w-west", Category: "wall", Dimensions: Vector3{X: 3, Y: 2.4}, Transform: yawTransform(-90, 0, 1.2, 1.5)},
		},
		Doors: []CaptureElement{
			{Identifier: "door-a", Dimensions: Vector3{X: 0.8, Y: 2.0}, Transform: yawTransform(90, 4, 1, 1), ParentIdentifier: "w-east", Attributes: []string{"Sliding"}},
		},
		Windows: []CaptureElement{
			{Identifier: "win-a", Dimensions: Vector3{X: 1.5}, Transform: yawTransform(0, 2, 1.5, 2.95)},
		},
		Objects: []CaptureElement{
			{Identifier: "o1", Category: "toilet", Dimensions: Vector3{X: 0.4, Y: 0.8, Z: 0.7}, Transform: yawTransform(0, 5, 0.4, 1)},
			{Identifier: "o2", Category: "bed", Dimensions: Vector3{X: 1.6, Y: 0.5, Z: 2.0}, Transform: yawTransform(0, 2, 0.25, 1.5)},
			{Identifier: "o3", Category: "Oven", Transform: yawTransform(0, 1, 0.4, 0.5)},
		},
		Floors: []CaptureFloor{
			floor("f-bed", box(0, 0, 4, 3)...),
			floor("f-bath", box(4, 0, 6, 2)...),
		},
	}
}

func TestValidateCapture(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Capture)
		field  string
	}{
		{"nil walls", func(c *Capture) { c.Walls = nil }, "walls"},
		{"nil floors", func(c *Capture) { c.Floors = nil }, "floors"},
		{"empty floors", func(c *Capture) { c.Floors = []CaptureFloor{} }, "floors"},
		{"short polygon", func(c *Capture) { c.Floors[1].PolygonCorners = box(0, 0, 1, 1)[:2] }, "floors[1]"},
		{"short transform", func(c *Capture) { c.Objects[2].Transform = make([]float64, 12) }, "objects[2].transform"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := sampleCapture()
			tt.mutate(c)
			err := ValidateCapture(c)
			if !errors.Is(err, ErrInvalidCapture) {
				t.Fatalf("ValidateCapture() error = %v, want ErrInvalidCapture", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("Field = %v, want %q", verr, tt.field)
			}
		})
	}

	if err := ValidateCapture(nil); !errors.Is(err, ErrInvalidCapture) {
		t.Errorf("ValidateCapture(nil) = %v", err)
	}
	if err := ValidateCapture(sampleCapture()); err != nil {
		t.Errorf("valid capture rejected: %v", err)
	}

	if _, err := NormalizeCapture(&Capture{Walls: []CaptureElement{}}); !errors.Is(err, ErrInvalidCapture) {
		t.Errorf("NormalizeCapture without floors = %v, want ErrInvalidCapture", err)
	}
}

func TestNormalizeCapture(t *testing.T) {
	res, err := NormalizeCapture(sampleCapture())
	if err != nil {
		t.Fatalf("NormalizeCapture() error = %v", err)
	}
	p := res.FloorPlan

	if res.Method != "roomplan_lidar" || res.Confidence != 0.85 {
		t.Errorf("method/confidence = %s/%v", res.Method, res.Confidence)
	}
	if p.TotalArea != 16 {
		t.Errorf("TotalArea = %v, want 16", p.TotalArea)
	}

	if len(p.Rooms) != 2 {
		t.Fatalf("len(Rooms) = %d, want 2", len(p.Rooms))
	}
	if p.Rooms[0].Type != RoomMasterBed || p.Rooms[0].Area != 12 {
		t.Errorf("room 0 = %s %.2f m², want MASTER_BED 12", p.Rooms[0].Type, p.Rooms[0].Area)
	}
	if p.Rooms[1].Type != RoomBathroom || p.Rooms[1].Name != "Bathroom" {
		t.Errorf("room 1 = %s %q, want BATHROOM", p.Rooms[1].Type, p.Rooms[1].Name)
	}
	if p.Rooms[0].Position != (Rect{X: 0, Y: 0, Width: 4, Height: 3}) {
		t.Errorf("room 0 position = %+v", p.Rooms[0].Position)
	}

	if len(p.Walls) != 4 {
		t.Fatalf("len(Walls) = %d, want 4", len(p.Walls))
	}
	south := p.Walls[0]
	if Distance(south.Start, Point{0, 0}) > 1e-9 || Distance(south.End, Point{4, 0}) > 1e-9 {
		t.Errorf("south wall = %+v -> %+v", south.Start, south.End)
	}
	if south.Thickness != 0.15 || p.Walls[1].Thickness != 0.12 {
		t.Errorf("thickness = %v, %v; want 0.15 and default 0.12", south.Thickness, p.Walls[1].Thickness)
	}
	for _, w := range p.Walls {
		if w.IsExterior {
			t.Errorf("wall %s marked exterior", w.ID)
		}
	}

	if len(p.Doors) != 1 {
		t.Fatalf("len(Doors) = %d, want 1", len(p.Doors))
	}
	d := p.Doors[0]
	if d.WallID != "wall-1" || d.Type != DoorSliding || d.Width != 0.8 {
		t.Errorf("door = %+v, want sliding 0.8 m on wall-1", d)
	}
	if math.Abs(NormalizeAngle(d.Rotation)-90) > 1e-6 {
		t.Errorf("door rotation = %v, want 90", d.Rotation)
	}

	if len(p.Windows) != 1 || p.Windows[0].WallID != "wall-2" || p.Windows[0].Height != 1.2 {
		t.Errorf("windows = %+v, want one on wall-2 with default height", p.Windows)
	}

	if len(p.Fixtures) != 2 {
		t.Fatalf("len(Fixtures) = %d, want 2", len(p.Fixtures))
	}
	toilet := p.Fixtures[0]
	if toilet.Type != FixtureToilet || toilet.RoomID != "room-1" {
		t.Errorf("toilet = %+v, want in room-1", toilet)
	}
	if c := toilet.Position.Center(); !approx(c.X, 5) || !approx(c.Y, 1) || toilet.Position.Width != 0.4 {
		t.Errorf("toilet footprint = %+v", toilet.Position)
	}
	if p.Fixtures[1].Type != FixtureStove || p.Fixtures[1].Position.Width != 0.5 {
		t.Errorf("oven = %+v, want stove with default extent", p.Fixtures[1])
	}

	if len(res.Furniture) != 1 || res.Furniture[0].Category != "bed" || res.Furniture[0].RoomID != "room-0" {
		t.Errorf("furniture = %+v, want bed in room-0", res.Furniture)
	}
}

func TestNormalizeCapture_SectionLabelsOverrideArea(t *testing.T) {
	c := sampleCapture()
	c.Sections = []CaptureSection{
		{Identifier: "s1", Label: "kitchen", Center: &Vector3{X: 5, Z: 1}},
		{Identifier: "s2", Label: "garage", Center: &Vector3{X: 1, Z: 1}},
		{Identifier: "s3", Label: "bedroom"},
	}

	res, err := NormalizeCapture(c)
	if err != nil {
		t.Fatalf("NormalizeCapture() error = %v", err)
	}
	if got := res.FloorPlan.Rooms[1].Type; got != RoomKitchen {
		t.Errorf("labeled room type = %s, want KITCHEN", got)
	}
	if got := res.FloorPlan.Rooms[0].Type; got != RoomMasterBed {
		t.Errorf("unlabeled room type = %s, want MASTER_BED", got)
	}
}

func TestNormalizeCapture_MasterPromotion(t *testing.T) {
	c := sampleCapture()
	c.Walls = []CaptureElement{}
	c.Doors, c.Windows, c.Objects = nil, nil, nil
	c.Floors = []CaptureFloor{
		floor("a", box(0, 0, 3, 3)...),   // 9
		floor("b", box(10, 0, 14, 3)...), // 12
		floor("c", box(20, 0, 24, 3)...), // 12, tie keeps the first
		floor("d", box(30, 0, 35, 4)...), // 20
	}

	res, err := NormalizeCapture(c)
	if err != nil {
		t.Fatalf("NormalizeCapture() error = %v", err)
	}
	var types []RoomType
	for _, r := range res.FloorPlan.Rooms {
		types = append(types, r.Type)
	}
	want := []RoomType{RoomBed, RoomMasterBed, RoomBed, RoomLiving}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("types = %v, want %v", types, want)
			break
		}
	}
	if res.FloorPlan.Rooms[0].Name != "Bedroom 1" || res.FloorPlan.Rooms[2].Name != "Bedroom 2" {
		t.Errorf("names = %q, %q", res.FloorPlan.Rooms[0].Name, res.FloorPlan.Rooms[2].Name)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %v, want no-walls warning", res.Warnings)
	}
}

func TestClassifyByArea(t *testing.T) {
	tests := []struct {
		area float64
		want RoomType
	}{
		{20, RoomLiving}, {15, RoomBed}, {10, RoomBed}, {8, RoomKitchen},
		{6, RoomKitchen}, {4, RoomBathroom}, {3, RoomEntrance}, {2.5, RoomEntrance}, {1, RoomUtility},
	}
	for _, tt := range tests {
		if got := classifyByArea(tt.area); got != tt.want {
			t.Errorf("classifyByArea(%v) = %s, want %s", tt.area, got, tt.want)
		}
	}
}
