package plan

import (
	"math"
	"slices"
	"strings"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluateQuality_Apartment59(t *testing.T) {
	report := EvaluateQuality(apartment59(), QualityOptions{})

	if report.RoomDetection < 0.9 {
		t.Errorf("RoomDetection = %.3f, want >= 0.9", report.RoomDetection)
	}
	if report.FixtureDetection < 0.8 {
		t.Errorf("FixtureDetection = %.3f, want >= 0.8", report.FixtureDetection)
	}
	if !approx(report.AreaAccuracy, 1.0) {
		t.Errorf("AreaAccuracy = %.3f, want 1.0", report.AreaAccuracy)
	}
	if slices.Contains(report.Warnings, WarnRoomDetection) {
		t.Errorf("unexpected room detection warning: %v", report.Warnings)
	}
}

func TestEvaluateQuality_EmptyPlan(t *testing.T) {
	for _, p := range []*FloorPlan{nil, {}} {
		report := EvaluateQuality(p, DefaultQualityOptions())
		if report.WallClosure != 0 || report.AreaAccuracy != 0 || report.RoomDetection != 0 {
			t.Errorf("empty plan scored %+v, want zeros", report)
		}
		if !approx(report.FixtureDetection, 0.2) {
			t.Errorf("FixtureDetection = %.3f, want 0.2 for no rooms and no fixtures", report.FixtureDetection)
		}
		if !approx(report.Overall, 0.04) {
			t.Errorf("Overall = %.3f, want 0.04", report.Overall)
		}
		if len(report.Warnings) != 4 {
			t.Errorf("Warnings = %v, want all four", report.Warnings)
		}
	}
}

func TestWallClosureScore(t *testing.T) {
	square := []Wall{
		wall("a", 0, 0, 4, 0),
		wall("b", 4, 0, 4, 4),
		wall("c", 4, 4, 0, 4),
		wall("d", 0, 4, 0, 0),
	}

	tests := []struct {
		name  string
		walls []Wall
		want  float64
	}{
		{"closed square", square, 1.0},
		{"two walls", square[:2], 0},
		{"open square", square[:3], 4.0 / 6.0},
		{
			name: "gaps within tolerance",
			walls: []Wall{
				wall("a", 0, 0, 4, 0),
				wall("b", 4.1, 0, 4.1, 4),
				wall("c", 4.1, 4.1, 0, 4.1),
				wall("d", 0, 4.05, 0, 0.1),
			},
			want: 1.0,
		},
		{
			name: "same wall endpoints do not count",
			walls: []Wall{
				wall("a", 0, 0, 0.1, 0),
				wall("b", 10, 0, 14, 0),
				wall("c", 20, 0, 24, 0),
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wallClosureScore(tt.walls, 0.15)
			if !approx(got, tt.want) {
				t.Errorf("wallClosureScore() = %.4f, want %.4f", got, tt.want)
			}
		})
	}
}

func TestAreaAccuracyScore(t *testing.T) {
	opts := DefaultQualityOptions()
	room := func(area float64) Room { return Room{Type: RoomBed, Area: area} }

	tests := []struct {
		name string
		plan *FloorPlan
		want float64
	}{
		{
			name: "ratio inside band gets full credit",
			plan: &FloorPlan{TotalArea: 20, Rooms: []Room{room(10), room(12)}},
			want: 1.0,
		},
		{
			name: "ratio 1.5 decays",
			plan: &FloorPlan{TotalArea: 20, Rooms: []Room{room(15), room(15)}},
			want: 0.25*0.5 + 0.3 + 0.2,
		},
		{
			name: "no total area",
			plan: &FloorPlan{Rooms: []Room{room(10)}},
			want: 0.3 + 0.2,
		},
		{
			name: "small median gets half credit",
			plan: &FloorPlan{TotalArea: 4.4, Rooms: []Room{room(2), room(2.4)}},
			want: 0.5 + 0.3 + 0.1,
		},
		{
			name: "implausible rooms",
			plan: &FloorPlan{TotalArea: 240, Rooms: []Room{room(0.2), room(120), room(120)}},
			want: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := areaAccuracyScore(tt.plan, opts)
			if !approx(got, tt.want) {
				t.Errorf("areaAccuracyScore() = %.4f, want %.4f", got, tt.want)
			}
		})
	}
}

func TestAreaAccuracyScore_ConfigurableMedianBand(t *testing.T) {
	p := &FloorPlan{TotalArea: 70, Rooms: []Room{{Area: 35}, {Area: 35}}}

	if got := areaAccuracyScore(p, DefaultQualityOptions()); !approx(got, 0.8) {
		t.Errorf("default band: got %.3f, want 0.8", got)
	}

	opts := DefaultQualityOptions()
	opts.MedianMaxArea = 40
	if got := areaAccuracyScore(p, opts); !approx(got, 1.0) {
		t.Errorf("widened band: got %.3f, want 1.0", got)
	}
}

func TestRoomDetectionScore(t *testing.T) {
	tests := []struct {
		name  string
		types []RoomType
		want  float64
	}{
		{"none", nil, 0},
		{"single living", []RoomType{RoomLiving}, 0.3*0.25 + 0.3*0.25 + 0.4*0.35},
		{"master counts as essential", []RoomType{RoomMasterBed, RoomBathroom}, 0.3*0.5 + 0.3*0.5 + 0.4*0.6},
		{
			"all essentials",
			[]RoomType{RoomLiving, RoomKitchen, RoomBathroom, RoomEntrance},
			1.0,
		},
		{
			"repeated type",
			[]RoomType{RoomBed, RoomBed, RoomBed, RoomBed},
			0.3 + 0.3*0.25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rooms := make([]Room, len(tt.types))
			for i, rt := range tt.types {
				rooms[i] = Room{ID: string(rt), Type: rt}
			}
			if got := roomDetectionScore(rooms); !approx(got, tt.want) {
				t.Errorf("roomDetectionScore() = %.4f, want %.4f", got, tt.want)
			}
		})
	}
}

func TestFixtureDetectionScore(t *testing.T) {
	bath := Room{ID: "bath", Type: RoomBathroom}
	kitchen := Room{ID: "kitchen", Type: RoomKitchen}
	living := Room{ID: "living", Type: RoomLiving}

	tests := []struct {
		name     string
		rooms    []Room
		fixtures []Fixture
		want     float64
	}{
		{"no rooms no fixtures", nil, nil, 0.2},
		{"rooms but no fixtures", []Room{bath}, nil, 0},
		{
			"toilet in wrong room",
			[]Room{bath, living},
			[]Fixture{{ID: "t", Type: FixtureToilet, RoomID: "living"}},
			0.2 * 0.4,
		},
		{
			"sink or kitchen sink satisfies kitchen",
			[]Room{kitchen},
			[]Fixture{{ID: "s", Type: FixtureSink, RoomID: "kitchen"}},
			0.6 + 0.2*0.4,
		},
		{
			"no checkable rooms",
			[]Room{living},
			[]Fixture{{ID: "s", Type: FixtureStove}, {ID: "t", Type: FixtureBathtub}},
			0.4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fixtureDetectionScore(tt.rooms, tt.fixtures); !approx(got, tt.want) {
				t.Errorf("fixtureDetectionScore() = %.4f, want %.4f", got, tt.want)
			}
		})
	}
}

func TestFixtureDetection_MonotonicOnBathroomToilet(t *testing.T) {
	p := apartment59()
	// Strip bath2's toilet, then add it back.
	p.Fixtures = slices.DeleteFunc(p.Fixtures, func(f Fixture) bool { return f.ID == "f3" })
	before := EvaluateQuality(p, QualityOptions{}).FixtureDetection

	p.Fixtures = append(p.Fixtures, Fixture{ID: "f3", Type: FixtureToilet, Position: rect(7.1, 2.1, 0.4, 0.7), RoomID: "bath2"})
	after := EvaluateQuality(p, QualityOptions{}).FixtureDetection

	if after < before {
		t.Errorf("adding a bathroom toilet lowered fixtureDetection: %.3f -> %.3f", before, after)
	}
	if after <= before {
		t.Errorf("expected a strict increase, got %.3f -> %.3f", before, after)
	}
}

func TestEvaluateQuality_OverallRounded(t *testing.T) {
	report := EvaluateQuality(apartment59(), QualityOptions{})
	want := math.Round((0.25*report.WallClosure+0.25*report.AreaAccuracy+
		0.30*report.RoomDetection+0.20*report.FixtureDetection)*100) / 100
	if report.Overall != want {
		t.Errorf("Overall = %v, want %v", report.Overall, want)
	}
}

func TestEvaluateQuality_AreaMismatch(t *testing.T) {
	square := func(x, y, side float64) Polygon {
		return Polygon{{x, y}, {x + side, y}, {x + side, y + side}, {x, y + side}}
	}

	tests := []struct {
		name string
		edit func(p *FloorPlan)
		opts QualityOptions
		want []string
	}{
		{
			name: "no polygons",
			edit: func(p *FloorPlan) {},
		},
		{
			name: "living room polygon far too small",
			edit: func(p *FloorPlan) { p.Rooms[0].Polygon = square(0, 0, 1) },
			want: []string{"room living: stated area 18.00 m² differs from polygon area 1.00 m²"},
		},
		{
			name: "consistent polygon",
			edit: func(p *FloorPlan) {
				p.Rooms[0].Polygon = Polygon{{0, 0}, {4.5, 0}, {4.5, 4}, {0, 4}}
			},
		},
		{
			name: "hole counts against the polygon",
			edit: func(p *FloorPlan) {
				p.Rooms[0].Polygon = square(0, 0, 6)
				p.Rooms[0].Holes = []Polygon{square(1, 1, 4.24)}
			},
		},
		{
			name: "within default tolerance",
			edit: func(p *FloorPlan) { p.Rooms[1].Polygon = square(4.5, 0, 2.5) },
		},
		{
			name: "tighter tolerance flags the same room",
			edit: func(p *FloorPlan) { p.Rooms[1].Polygon = square(4.5, 0, 2.5) },
			opts: QualityOptions{AreaMismatchTolerance: 0.05},
			want: []string{"room kitchen: stated area 7.00 m² differs from polygon area 6.25 m²"},
		},
		{
			name: "unstated area is not checked",
			edit: func(p *FloorPlan) {
				p.Rooms[0].Area = 0
				p.Rooms[0].Polygon = square(0, 0, 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := apartment59()
			baseline := EvaluateQuality(p, tt.opts)
			tt.edit(p)
			report := EvaluateQuality(p, tt.opts)

			var got []string
			for _, w := range report.Warnings {
				if strings.HasPrefix(w, "room ") {
					got = append(got, w)
				}
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("mismatch warnings = %q, want %q", got, tt.want)
			}
			if tt.name != "unstated area is not checked" && report.AreaAccuracy != baseline.AreaAccuracy {
				t.Errorf("AreaAccuracy changed %.3f -> %.3f; stated areas stay authoritative",
					baseline.AreaAccuracy, report.AreaAccuracy)
			}
		})
	}
}
