package plan

import (
	"fmt"
	"math"
	"sort"
)

// QualityOptions holds the tunable bands used by EvaluateQuality. Zero
// values fall back to DefaultQualityOptions.
type QualityOptions struct {
	EndpointTolerance float64 `yaml:"endpointTolerance" json:"endpointTolerance"` // meters
	RatioLow          float64 `yaml:"ratioLow" json:"ratioLow"`
	RatioHigh         float64 `yaml:"ratioHigh" json:"ratioHigh"`
	PlausibleMinArea  float64 `yaml:"plausibleMinArea" json:"plausibleMinArea"` // m²
	PlausibleMaxArea  float64 `yaml:"plausibleMaxArea" json:"plausibleMaxArea"`
	MedianMinArea     float64 `yaml:"medianMinArea" json:"medianMinArea"`
	MedianMaxArea     float64 `yaml:"medianMaxArea" json:"medianMaxArea"`
	MedianFloorArea   float64 `yaml:"medianFloorArea" json:"medianFloorArea"` // half credit from here up to MedianMinArea

	// AreaMismatchTolerance is the relative gap allowed between a room's
	// stated area and the area of its polygon before a warning is raised.
	AreaMismatchTolerance float64 `yaml:"areaMismatchTolerance" json:"areaMismatchTolerance"`
}

// DefaultQualityOptions returns the standard scoring bands
func DefaultQualityOptions() QualityOptions {
	return QualityOptions{
		EndpointTolerance: 0.15,
		RatioLow:          0.8,
		RatioHigh:         1.2,
		PlausibleMinArea:  0.5,
		PlausibleMaxArea:  100,
		MedianMinArea:     3,
		MedianMaxArea:     30,
		MedianFloorArea:   1,

		AreaMismatchTolerance: 0.2,
	}
}

func (o QualityOptions) withDefaults() QualityOptions {
	d := DefaultQualityOptions()
	fill := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&o.EndpointTolerance, d.EndpointTolerance)
	fill(&o.RatioLow, d.RatioLow)
	fill(&o.RatioHigh, d.RatioHigh)
	fill(&o.PlausibleMinArea, d.PlausibleMinArea)
	fill(&o.PlausibleMaxArea, d.PlausibleMaxArea)
	fill(&o.MedianMinArea, d.MedianMinArea)
	fill(&o.MedianMaxArea, d.MedianMaxArea)
	fill(&o.MedianFloorArea, d.MedianFloorArea)
	fill(&o.AreaMismatchTolerance, d.AreaMismatchTolerance)

	// Inverted bands fall back as a pair.
	if o.RatioHigh <= o.RatioLow {
		o.RatioLow, o.RatioHigh = d.RatioLow, d.RatioHigh
	}
	if o.PlausibleMaxArea <= o.PlausibleMinArea {
		o.PlausibleMinArea, o.PlausibleMaxArea = d.PlausibleMinArea, d.PlausibleMaxArea
	}
	if o.MedianMaxArea <= o.MedianMinArea {
		o.MedianMinArea, o.MedianMaxArea = d.MedianMinArea, d.MedianMaxArea
	}
	if o.MedianFloorArea > o.MedianMinArea {
		o.MedianFloorArea = o.MedianMinArea
	}
	return o
}

// Warning messages attached to low sub-scores
const (
	WarnWallClosure      = "walls not well connected"
	WarnAreaAccuracy     = "room areas inconsistent with total area"
	WarnRoomDetection    = "essential rooms missing or too few rooms detected"
	WarnFixtureDetection = "fixtures missing or not assigned to wet rooms"
)

const lowScore = 0.5

// EvaluateQuality scores how far a plan can be trusted. It never fails;
// missing data lowers the score.
func EvaluateQuality(p *FloorPlan, opts QualityOptions) QualityReport {
	if p == nil {
		p = &FloorPlan{}
	}
	opts = opts.withDefaults()

	report := QualityReport{
		WallClosure:      wallClosureScore(p.Walls, opts.EndpointTolerance),
		AreaAccuracy:     areaAccuracyScore(p, opts),
		RoomDetection:    roomDetectionScore(p.Rooms),
		FixtureDetection: fixtureDetectionScore(p.Rooms, p.Fixtures),
		Warnings:         []string{},
	}
	report.Overall = round2(0.25*report.WallClosure +
		0.25*report.AreaAccuracy +
		0.30*report.RoomDetection +
		0.20*report.FixtureDetection)

	if report.WallClosure < lowScore {
		report.Warnings = append(report.Warnings, WarnWallClosure)
	}
	if report.AreaAccuracy < lowScore {
		report.Warnings = append(report.Warnings, WarnAreaAccuracy)
	}
	if report.RoomDetection < lowScore {
		report.Warnings = append(report.Warnings, WarnRoomDetection)
	}
	if report.FixtureDetection < lowScore {
		report.Warnings = append(report.Warnings, WarnFixtureDetection)
	}
	report.Warnings = append(report.Warnings, areaMismatchWarnings(p.Rooms, opts.AreaMismatchTolerance)...)
	return report
}

// areaMismatchWarnings names every room whose stated area differs from
// its polygon area (holes removed) by more than tol of the stated area.
// Rooms without a stated area or a polygon are not checked. The scores
// keep trusting the stated area.
func areaMismatchWarnings(rooms []Room, tol float64) []string {
	var warnings []string
	for _, r := range rooms {
		if r.Area <= 0 || len(r.Polygon) < 3 {
			continue
		}
		geom := PolygonArea(r.Polygon)
		for _, h := range r.Holes {
			if len(h) >= 3 {
				geom -= PolygonArea(h)
			}
		}
		if math.Abs(r.Area-geom) > tol*r.Area {
			warnings = append(warnings, fmt.Sprintf("room %s: stated area %.2f m² differs from polygon area %.2f m²",
				r.ID, r.Area, geom))
		}
	}
	return warnings
}

// wallClosureScore is the share of wall endpoints lying within tol of an
// endpoint of a different wall. Fewer than three walls score 0.
func wallClosureScore(walls []Wall, tol float64) float64 {
	if len(walls) < 3 {
		return 0
	}
	endpoints := NewPointIndex()
	owner := make([]int, 0, 2*len(walls))
	for i, w := range walls {
		endpoints.Insert(w.Start)
		endpoints.Insert(w.End)
		owner = append(owner, i, i)
	}

	connected := 0
	for i, w := range walls {
		other := func(idx int) bool { return owner[idx] != i }
		for _, pt := range []Point{w.Start, w.End} {
			if endpoints.AnyWithin(pt, tol, other) {
				connected++
			}
		}
	}
	return float64(connected) / float64(2*len(walls))
}

// areaAccuracyScore blends the room-sum/total ratio (50%), the share of
// plausibly sized rooms (30%) and the median room size band (20%).
func areaAccuracyScore(p *FloorPlan, opts QualityOptions) float64 {
	if len(p.Rooms) == 0 {
		return 0
	}

	areas := make([]float64, len(p.Rooms))
	sum := 0.0
	for i, r := range p.Rooms {
		areas[i] = r.EffectiveArea()
		sum += areas[i]
	}

	ratioScore := 0.0
	if p.TotalArea > 0 {
		ratio := sum / p.TotalArea
		if ratio >= opts.RatioLow && ratio <= opts.RatioHigh {
			ratioScore = 1
		} else {
			ratioScore = math.Max(0, 0.5-math.Abs(ratio-1)*0.5)
		}
	}

	plausible := 0
	for _, a := range areas {
		if a >= opts.PlausibleMinArea && a <= opts.PlausibleMaxArea {
			plausible++
		}
	}
	plausibleScore := float64(plausible) / float64(len(areas))

	sort.Float64s(areas)
	median := areas[len(areas)/2]
	medianScore := 0.0
	switch {
	case median >= opts.MedianMinArea && median <= opts.MedianMaxArea:
		medianScore = 1
	case median >= opts.MedianFloorArea && median < opts.MedianMinArea:
		medianScore = 0.5
	}

	return ratioScore*0.5 + plausibleScore*0.3 + medianScore*0.2
}

// roomDetectionScore blends room count (30%), type diversity (30%) and
// presence of essential spaces (40%).
func roomDetectionScore(rooms []Room) float64 {
	types := make(map[RoomType]bool)
	for _, r := range rooms {
		types[r.Type] = true
	}

	countScore := math.Min(float64(len(rooms))/4, 1)
	diversityScore := math.Min(float64(len(types))/4, 1)

	essentials := 0.0
	if types[RoomLiving] || types[RoomMasterBed] {
		essentials += 0.35
	}
	if types[RoomBathroom] {
		essentials += 0.25
	}
	if types[RoomEntrance] {
		essentials += 0.2
	}
	if types[RoomKitchen] {
		essentials += 0.2
	}

	return countScore*0.3 + diversityScore*0.3 + essentials*0.4
}

// fixtureDetectionScore cross-checks bathrooms for toilets and kitchens for
// sinks (60%) against a capped fixture count (40%). With no fixtures the
// score is 0, or 0.2 when there are no rooms either.
func fixtureDetectionScore(rooms []Room, fixtures []Fixture) float64 {
	if len(fixtures) == 0 {
		if len(rooms) == 0 {
			return 0.2
		}
		return 0
	}

	byRoom := make(map[string][]FixtureType)
	for _, f := range fixtures {
		byRoom[f.RoomID] = append(byRoom[f.RoomID], f.Type)
	}
	has := func(roomID string, want ...FixtureType) bool {
		for _, t := range byRoom[roomID] {
			for _, w := range want {
				if t == w {
					return true
				}
			}
		}
		return false
	}

	checks, passed := 0, 0
	for _, r := range rooms {
		switch r.Type {
		case RoomBathroom:
			checks++
			if has(r.ID, FixtureToilet) {
				passed++
			}
		case RoomKitchen:
			checks++
			if has(r.ID, FixtureSink, FixtureKitchenSink) {
				passed++
			}
		}
	}

	countScore := math.Min(float64(len(fixtures))/5, 1)
	if checks == 0 {
		return countScore
	}
	return float64(passed)/float64(checks)*0.6 + countScore*0.4
}
