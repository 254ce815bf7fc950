package plan

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"strings"
	"testing"
)

func geometricCandidate() *FloorPlan {
	return &FloorPlan{
		Walls: []Wall{
			wall("vw-1", 0, 0, 9.02, 0),
			wall("vw-2", 9.02, 0, 9.02, 7.3),
			wall("vw-3", 9.02, 7.3, 0, 7.3),
			wall("vw-4", 0, 7.3, 0, 0),
		},
		Doors: []Door{
			{ID: "gd1", Position: Point{X: 5.8, Y: 3.62}, Width: 0.9},
			{ID: "gd2", Position: Point{X: 4.5, Y: 6.0}, Width: 0.8},
		},
		Windows: []Window{
			{ID: "gw1", Position: Point{X: 2.3, Y: 0}, Width: 1.8},
		},
		Dimensions: []Dimension{
			{ID: "vd-1", Start: Point{X: 0, Y: -0.5}, End: Point{X: 9, Y: -0.5}, ValueMM: 9000},
		},
	}
}

func TestFuse_NoCandidates(t *testing.T) {
	_, err := Fuse(nil, nil, FusionOptions{})
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("Fuse(nil, nil) error = %v, want ErrNoCandidates", err)
	}
}

func TestFuse_SingleCandidatePassesThrough(t *testing.T) {
	sem := apartment59()
	geo := geometricCandidate()

	tests := []struct {
		name     string
		semantic *FloorPlan
		geometry *FloorPlan
		want     *FloorPlan
		source   Source
	}{
		{"semantic only", sem, nil, sem, SourceSemantic},
		{"geometric only", nil, geo, geo, SourceGeometric},
		{"semantic without rooms", &FloorPlan{Walls: sem.Walls}, &FloorPlan{Rooms: sem.Rooms}, nil, SourceGeometric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Fuse(tt.semantic, tt.geometry, FusionOptions{})
			if err != nil {
				t.Fatalf("Fuse() error = %v", err)
			}
			want := tt.want
			if want == nil {
				want = tt.geometry
			}
			if res.FloorPlan != want {
				t.Errorf("FloorPlan pointer changed; want the candidate itself")
			}
			if res.Sources.Rooms != tt.source || res.Sources.Walls != tt.source || res.Sources.Doors != tt.source {
				t.Errorf("Sources = %+v, want all %s", res.Sources, tt.source)
			}
		})
	}
}

func TestFuse_MergesCandidates(t *testing.T) {
	sem := apartment59()
	geo := geometricCandidate()
	semBefore := sem.Clone()
	geoBefore := geo.Clone()

	res, err := Fuse(sem, geo, FusionOptions{NewID: sequentialIDs()})
	if err != nil {
		t.Fatalf("Fuse() error = %v", err)
	}
	fused := res.FloorPlan

	if !reflect.DeepEqual(fused.Rooms, sem.Rooms) {
		t.Errorf("rooms should come from the semantic candidate")
	}
	if fused.TotalArea != 59 {
		t.Errorf("TotalArea = %v, want 59", fused.TotalArea)
	}
	if !reflect.DeepEqual(fused.Walls, geo.Walls) || res.Sources.Walls != SourceGeometric {
		t.Errorf("walls should come from the geometric candidate, sources=%+v", res.Sources)
	}

	// gd1 is 0.05 m from d1 and dropped; gd2 is new.
	if len(fused.Doors) != 4 {
		t.Fatalf("len(Doors) = %d, want 4", len(fused.Doors))
	}
	for i, d := range sem.Doors {
		if fused.Doors[i].ID != d.ID {
			t.Errorf("Doors[%d].ID = %q, want semantic %q first", i, fused.Doors[i].ID, d.ID)
		}
	}
	if got := fused.Doors[3]; got.ID != "door-new-1" || got.Position != (Point{X: 4.5, Y: 6.0}) {
		t.Errorf("appended door = %+v, want door-new-1 at (4.5, 6)", got)
	}

	// gw1 is 0.05 m from win1.
	if len(fused.Windows) != 2 {
		t.Errorf("len(Windows) = %d, want 2", len(fused.Windows))
	}
	if len(fused.Fixtures) != len(sem.Fixtures) {
		t.Errorf("len(Fixtures) = %d, want %d", len(fused.Fixtures), len(sem.Fixtures))
	}
	if len(fused.Dimensions) != 1 || fused.Dimensions[0].ID != "vd-1" {
		t.Errorf("Dimensions = %+v, want geometric vd-1 only", fused.Dimensions)
	}

	if res.Stats.DuplicatesDropped != 2 {
		t.Errorf("DuplicatesDropped = %d, want 2", res.Stats.DuplicatesDropped)
	}
	if res.Stats.SemanticRooms != 8 || res.Stats.GeometricWalls != 4 || res.Stats.TotalDoors != 4 {
		t.Errorf("Stats = %+v", res.Stats)
	}

	if !reflect.DeepEqual(sem, semBefore) || !reflect.DeepEqual(geo, geoBefore) {
		t.Errorf("Fuse mutated its inputs")
	}

	// Output must not alias the inputs.
	fused.Rooms[0].Name = "changed"
	if sem.Rooms[0].Name == "changed" {
		t.Errorf("fused rooms alias the semantic candidate")
	}
}

func TestFuse_WallsFallBackToSemantic(t *testing.T) {
	sem := apartment59()
	geo := &FloorPlan{Dimensions: []Dimension{{ID: "vd-1", ValueMM: 3000}}}

	res, err := Fuse(sem, geo, FusionOptions{})
	if err != nil {
		t.Fatalf("Fuse() error = %v", err)
	}
	if res.Sources.Walls != SourceSemantic || len(res.FloorPlan.Walls) != len(sem.Walls) {
		t.Errorf("walls source = %s (%d walls), want semantic", res.Sources.Walls, len(res.FloorPlan.Walls))
	}
}

func TestFuse_DedupBoundary(t *testing.T) {
	tests := []struct {
		name   string
		dx     float64
		merged int
	}{
		{"well inside", 0.1, 1},
		{"just inside", 0.49, 1},
		{"exactly at distance", 0.5, 2},
		{"outside", 0.75, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sem := &FloorPlan{
				Rooms: []Room{{ID: "r", Type: RoomLiving, Area: 10}},
				Doors: []Door{{ID: "a", Position: Point{X: 2, Y: 2}}},
			}
			geo := &FloorPlan{
				Doors: []Door{{ID: "b", Position: Point{X: 2 + tt.dx, Y: 2}}},
			}
			res, err := Fuse(sem, geo, FusionOptions{})
			if err != nil {
				t.Fatalf("Fuse() error = %v", err)
			}
			if got := len(res.FloorPlan.Doors); got != tt.merged {
				t.Errorf("len(Doors) = %d, want %d", got, tt.merged)
			}
		})
	}
}

func TestFuse_DimensionsNeedEqualValues(t *testing.T) {
	sem := &FloorPlan{
		Rooms: []Room{{ID: "r", Type: RoomLiving, Area: 10}},
		Dimensions: []Dimension{
			{ID: "s1", Start: Point{X: 0.2, Y: 0}, ValueMM: 4200},
			{ID: "s2", Start: Point{X: 0.3, Y: 0}, ValueMM: 3000},
		},
	}
	geo := &FloorPlan{
		Dimensions: []Dimension{{ID: "g1", Start: Point{X: 0, Y: 0}, ValueMM: 4200}},
	}

	res, err := Fuse(sem, geo, FusionOptions{NewID: sequentialIDs()})
	if err != nil {
		t.Fatalf("Fuse() error = %v", err)
	}
	var ids []string
	for _, d := range res.FloorPlan.Dimensions {
		ids = append(ids, d.ID)
	}
	if got := strings.Join(ids, ","); got != "g1,dim-new-1" {
		t.Errorf("dimension ids = %s, want g1,dim-new-1", got)
	}
}

func TestFuse_DefaultIDsAreUnique(t *testing.T) {
	sem := &FloorPlan{Rooms: []Room{{ID: "r", Type: RoomLiving, Area: 10}}}
	geo := &FloorPlan{Windows: []Window{
		{ID: "w", Position: Point{X: 0, Y: 0}},
		{ID: "w", Position: Point{X: 5, Y: 0}},
	}}

	res, err := Fuse(sem, geo, FusionOptions{})
	if err != nil {
		t.Fatalf("Fuse() error = %v", err)
	}
	a, b := res.FloorPlan.Windows[0].ID, res.FloorPlan.Windows[1].ID
	if a == b || !strings.HasPrefix(a, "win-") || !strings.HasPrefix(b, "win-") {
		t.Errorf("window ids = %q, %q; want distinct win- ids", a, b)
	}
}

// Secondary fixtures jittered within 0.1 m of a primary are always dropped,
// and ones placed 1.5 m away are always kept.
func TestFuse_FixtureDedupRandomized(t *testing.T) {
	rng := rand.New(rand.NewPCG(59, 84))

	for round := 0; round < 50; round++ {
		const n = 12
		primary := make([]Fixture, n)
		for i := range primary {
			// 3 m grid keeps primaries far apart
			x, y := float64(i%4)*3, float64(i/4)*3
			primary[i] = Fixture{ID: "p", Type: FixtureSink, Position: rect(x, y, 0.4, 0.4)}
		}

		var secondary []Fixture
		wantDropped := 0
		for _, i := range rng.Perm(n)[:8] {
			c := primary[i].Position
			if rng.IntN(2) == 0 {
				dx := (rng.Float64()*2 - 1) * 0.07
				dy := (rng.Float64()*2 - 1) * 0.07
				secondary = append(secondary, Fixture{Type: FixtureSink, Position: rect(c.X+dx, c.Y+dy, 0.4, 0.4)})
				wantDropped++
			} else {
				secondary = append(secondary, Fixture{Type: FixtureToilet, Position: rect(c.X+1.5, c.Y, 0.4, 0.4)})
			}
		}

		sem := &FloorPlan{Rooms: []Room{{ID: "r", Type: RoomBathroom, Area: 4}}, Fixtures: primary}
		geo := &FloorPlan{Fixtures: secondary}
		res, err := Fuse(sem, geo, FusionOptions{NewID: sequentialIDs()})
		if err != nil {
			t.Fatalf("round %d: Fuse() error = %v", round, err)
		}
		if res.Stats.DuplicatesDropped != wantDropped {
			t.Errorf("round %d: dropped %d, want %d", round, res.Stats.DuplicatesDropped, wantDropped)
		}
		if got, want := len(res.FloorPlan.Fixtures), n+len(secondary)-wantDropped; got != want {
			t.Errorf("round %d: %d fixtures, want %d", round, got, want)
		}
	}
}

// randomOpenings scatters n points on a jittered 3 m grid so any two are
// at least 2 m apart.
func randomOpenings(rng *rand.Rand, n int) []Point {
	pts := make([]Point, n)
	for i := range pts {
		pts[i] = Point{
			X: float64(i%5)*3 + rng.Float64() - 0.5,
			Y: float64(i/5)*3 + rng.Float64() - 0.5,
		}
	}
	return pts
}

// farFrom returns a random point at least minDist from every point in pts
func farFrom(rng *rand.Rand, pts []Point, minDist float64) Point {
	for {
		c := Point{X: rng.Float64()*18 - 2, Y: rng.Float64()*12 - 2}
		ok := true
		for _, p := range pts {
			if Distance(c, p) < minDist {
				ok = false
				break
			}
		}
		if ok {
			return c
		}
	}
}

func TestFuse_OpeningDedupRandomized(t *testing.T) {
	rng := rand.New(rand.NewPCG(84, 59))

	// jittered returns p moved by at most 0.1 m on each axis
	jittered := func(p Point) Point {
		return Point{X: p.X + (rng.Float64()*2-1)*0.1, Y: p.Y + (rng.Float64()*2-1)*0.1}
	}

	for round := 0; round < 50; round++ {
		sem := &FloorPlan{}
		for i := range 1 + rng.IntN(6) {
			x, y := rng.Float64()*10, rng.Float64()*10
			sem.Rooms = append(sem.Rooms, Room{
				ID: fmt.Sprintf("r%d", i), Type: RoomBed, Area: 9, Position: rect(x, y, 3, 3),
			})
		}
		geo := &FloorPlan{}
		for i := range 3 + rng.IntN(8) {
			x, y := rng.Float64()*12, rng.Float64()*9
			geo.Walls = append(geo.Walls, wall(fmt.Sprintf("g%d", i), x, y, x+1+rng.Float64()*4, y))
		}

		doorPts := randomOpenings(rng, 3+rng.IntN(8))
		windowPts := randomOpenings(rng, 2+rng.IntN(8))
		for i, p := range doorPts {
			sem.Doors = append(sem.Doors, Door{ID: fmt.Sprintf("d%d", i), Position: p, Width: 0.9, Type: DoorSwing})
		}
		for i, p := range windowPts {
			sem.Windows = append(sem.Windows, Window{ID: fmt.Sprintf("w%d", i), Position: p, Width: 1.2, Height: 1.2})
		}

		wantDropped, keptDoors, keptWindows := 0, len(doorPts), len(windowPts)
		for range 2 + rng.IntN(10) {
			if rng.IntN(2) == 0 {
				geo.Doors = append(geo.Doors, Door{Position: jittered(doorPts[rng.IntN(len(doorPts))]), Width: 0.9})
				wantDropped++
			} else {
				p := farFrom(rng, doorPts, 1.0)
				doorPts = append(doorPts, p)
				geo.Doors = append(geo.Doors, Door{Position: p, Width: 0.9})
				keptDoors++
			}
		}
		for range 2 + rng.IntN(10) {
			if rng.IntN(2) == 0 {
				geo.Windows = append(geo.Windows, Window{Position: jittered(windowPts[rng.IntN(len(windowPts))]), Width: 1.2})
				wantDropped++
			} else {
				p := farFrom(rng, windowPts, 1.0)
				windowPts = append(windowPts, p)
				geo.Windows = append(geo.Windows, Window{Position: p, Width: 1.2})
				keptWindows++
			}
		}

		res, err := Fuse(sem, geo, FusionOptions{NewID: sequentialIDs()})
		if err != nil {
			t.Fatalf("round %d: Fuse() error = %v", round, err)
		}
		if res.Stats.DuplicatesDropped != wantDropped {
			t.Errorf("round %d: dropped %d, want %d", round, res.Stats.DuplicatesDropped, wantDropped)
		}
		if got := len(res.FloorPlan.Doors); got != keptDoors {
			t.Errorf("round %d: %d doors, want %d", round, got, keptDoors)
		}
		if got := len(res.FloorPlan.Windows); got != keptWindows {
			t.Errorf("round %d: %d windows, want %d", round, got, keptWindows)
		}
		for i, d := range res.FloorPlan.Doors[:len(sem.Doors)] {
			if d.ID != sem.Doors[i].ID {
				t.Errorf("round %d: semantic door %s replaced by %s", round, sem.Doors[i].ID, d.ID)
			}
		}
		for _, d := range res.FloorPlan.Doors[len(sem.Doors):] {
			if !strings.HasPrefix(d.ID, "door-new-") {
				t.Errorf("round %d: appended door id %q", round, d.ID)
			}
		}
	}
}
