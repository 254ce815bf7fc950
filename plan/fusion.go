package plan

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNoCandidates is returned by Fuse when neither candidate is present
var ErrNoCandidates = errors.New("no candidate plans to fuse")

// Source names the candidate an entity set was taken from
type Source string

const (
	SourceSemantic  Source = "semantic"
	SourceGeometric Source = "geometric"
	SourceFused     Source = "fused"
)

const (
	// DefaultOpeningDedupDistance is the distance in meters under which two
	// doors or two windows are the same object.
	DefaultOpeningDedupDistance = 0.5
	// DefaultFixtureDedupDistance applies to fixture footprint centers.
	DefaultFixtureDedupDistance = 0.5
	// DefaultDimensionDedupDistance applies to dimension start points with
	// equal values.
	DefaultDimensionDedupDistance = 1.0
)

// FusionOptions tunes deduplication. Zero distances fall back to the
// defaults.
type FusionOptions struct {
	OpeningDedupDistance   float64 `yaml:"openingDedupDistance" json:"openingDedupDistance"`
	FixtureDedupDistance   float64 `yaml:"fixtureDedupDistance" json:"fixtureDedupDistance"`
	DimensionDedupDistance float64 `yaml:"dimensionDedupDistance" json:"dimensionDedupDistance"`

	// NewID assigns ids to appended secondary entities. Defaults to
	// prefix-<uuid>.
	NewID func(prefix string) string `yaml:"-" json:"-"`
}

// DefaultFusionOptions returns the standard dedup thresholds
func DefaultFusionOptions() FusionOptions {
	return FusionOptions{
		OpeningDedupDistance:   DefaultOpeningDedupDistance,
		FixtureDedupDistance:   DefaultFixtureDedupDistance,
		DimensionDedupDistance: DefaultDimensionDedupDistance,
	}
}

func (o FusionOptions) withDefaults() FusionOptions {
	if o.OpeningDedupDistance <= 0 {
		o.OpeningDedupDistance = DefaultOpeningDedupDistance
	}
	if o.FixtureDedupDistance <= 0 {
		o.FixtureDedupDistance = DefaultFixtureDedupDistance
	}
	if o.DimensionDedupDistance <= 0 {
		o.DimensionDedupDistance = DefaultDimensionDedupDistance
	}
	if o.NewID == nil {
		o.NewID = func(prefix string) string { return prefix + "-" + uuid.NewString() }
	}
	return o
}

// FusionSources records which candidate each entity set came from
type FusionSources struct {
	Rooms      Source `json:"rooms"`
	Walls      Source `json:"walls"`
	Doors      Source `json:"doors"`
	Windows    Source `json:"windows"`
	Fixtures   Source `json:"fixtures"`
	Dimensions Source `json:"dimensions"`
}

// FusionStats counts entities per candidate and in the fused result
type FusionStats struct {
	SemanticRooms     int `json:"semanticRooms"`
	GeometricRooms    int `json:"geometricRooms"`
	SemanticWalls     int `json:"semanticWalls"`
	GeometricWalls    int `json:"geometricWalls"`
	TotalDoors        int `json:"totalDoors"`
	TotalWindows      int `json:"totalWindows"`
	TotalFixtures     int `json:"totalFixtures"`
	TotalDimensions   int `json:"totalDimensions"`
	DuplicatesDropped int `json:"duplicatesDropped"`
}

// FusionResult is a fused plan plus provenance
type FusionResult struct {
	FloorPlan *FloorPlan    `json:"floorPlan"`
	Sources   FusionSources `json:"sources"`
	Stats     FusionStats   `json:"stats"`
}

// Fuse merges a semantic and a geometric candidate plan.
//
//   - one candidate only: returned as is, tagged with its source
//   - semantic has no rooms but geometric does: geometric returned as is
//   - otherwise rooms and totalArea come from semantic; walls from
//     geometric when it has any, else semantic; doors, windows and fixtures
//     are the semantic-first union; dimensions the geometric-first union
//
// Union members from the second list that lie within the dedup distance of
// an already kept entry are dropped; the rest get fresh ids.
func Fuse(semantic, geometric *FloorPlan, opts FusionOptions) (*FusionResult, error) {
	switch {
	case semantic == nil && geometric == nil:
		return nil, ErrNoCandidates
	case geometric == nil:
		return passThrough(semantic, SourceSemantic), nil
	case semantic == nil:
		return passThrough(geometric, SourceGeometric), nil
	case len(semantic.Rooms) == 0 && len(geometric.Rooms) > 0:
		return passThrough(geometric, SourceGeometric), nil
	}

	opts = opts.withDefaults()
	sem := semantic.Clone()
	geo := geometric.Clone()

	fused := &FloorPlan{
		TotalArea: sem.TotalArea,
		Rooms:     sem.Rooms,
	}
	sources := FusionSources{
		Rooms:      SourceSemantic,
		Doors:      SourceFused,
		Windows:    SourceFused,
		Fixtures:   SourceFused,
		Dimensions: SourceFused,
	}
	if len(geo.Walls) > 0 {
		fused.Walls, sources.Walls = geo.Walls, SourceGeometric
	} else {
		fused.Walls, sources.Walls = sem.Walls, SourceSemantic
	}

	var dropped, n int
	fused.Doors, n = mergeDoors(sem.Doors, geo.Doors, opts)
	dropped += n
	fused.Windows, n = mergeWindows(sem.Windows, geo.Windows, opts)
	dropped += n
	fused.Fixtures, n = mergeFixtures(sem.Fixtures, geo.Fixtures, opts)
	dropped += n
	fused.Dimensions, n = mergeDimensions(geo.Dimensions, sem.Dimensions, opts)
	dropped += n

	return &FusionResult{
		FloorPlan: fused,
		Sources:   sources,
		Stats: FusionStats{
			SemanticRooms:     len(semantic.Rooms),
			GeometricRooms:    len(geometric.Rooms),
			SemanticWalls:     len(semantic.Walls),
			GeometricWalls:    len(geometric.Walls),
			TotalDoors:        len(fused.Doors),
			TotalWindows:      len(fused.Windows),
			TotalFixtures:     len(fused.Fixtures),
			TotalDimensions:   len(fused.Dimensions),
			DuplicatesDropped: dropped,
		},
	}, nil
}

// passThrough wraps a single candidate without copying it
func passThrough(p *FloorPlan, src Source) *FusionResult {
	stats := FusionStats{
		TotalDoors:      len(p.Doors),
		TotalWindows:    len(p.Windows),
		TotalFixtures:   len(p.Fixtures),
		TotalDimensions: len(p.Dimensions),
	}
	if src == SourceSemantic {
		stats.SemanticRooms, stats.SemanticWalls = len(p.Rooms), len(p.Walls)
	} else {
		stats.GeometricRooms, stats.GeometricWalls = len(p.Rooms), len(p.Walls)
	}
	return &FusionResult{
		FloorPlan: p,
		Sources: FusionSources{
			Rooms: src, Walls: src, Doors: src, Windows: src, Fixtures: src, Dimensions: src,
		},
		Stats: stats,
	}
}

// mergeByPosition keeps every primary entry and appends secondary entries
// that are not within radius of anything kept so far. same may narrow the
// match further; relabel assigns the appended entry its fresh id.
func mergeByPosition[T any](primary, secondary []T, radius float64, at func(T) Point, same func(a, b T) bool, relabel func(T) T) ([]T, int) {
	merged := make([]T, 0, len(primary)+len(secondary))
	index := NewPointIndex()
	for _, p := range primary {
		merged = append(merged, p)
		index.Insert(at(p))
	}

	dropped := 0
	for _, s := range secondary {
		var match func(int) bool
		if same != nil {
			match = func(i int) bool { return same(merged[i], s) }
		}
		if index.AnyWithin(at(s), radius, match) {
			dropped++
			continue
		}
		merged = append(merged, relabel(s))
		index.Insert(at(s))
	}
	return merged, dropped
}

func mergeDoors(primary, secondary []Door, opts FusionOptions) ([]Door, int) {
	return mergeByPosition(primary, secondary, opts.OpeningDedupDistance,
		func(d Door) Point { return d.Position },
		nil,
		func(d Door) Door { d.ID = opts.NewID("door"); return d })
}

func mergeWindows(primary, secondary []Window, opts FusionOptions) ([]Window, int) {
	return mergeByPosition(primary, secondary, opts.OpeningDedupDistance,
		func(w Window) Point { return w.Position },
		nil,
		func(w Window) Window { w.ID = opts.NewID("win"); return w })
}

func mergeFixtures(primary, secondary []Fixture, opts FusionOptions) ([]Fixture, int) {
	return mergeByPosition(primary, secondary, opts.FixtureDedupDistance,
		func(f Fixture) Point { return f.Position.Center() },
		nil,
		func(f Fixture) Fixture { f.ID = opts.NewID("fix"); return f })
}

func mergeDimensions(primary, secondary []Dimension, opts FusionOptions) ([]Dimension, int) {
	return mergeByPosition(primary, secondary, opts.DimensionDedupDistance,
		func(d Dimension) Point { return d.Start },
		func(a, b Dimension) bool { return a.ValueMM == b.ValueMM },
		func(d Dimension) Dimension { d.ID = opts.NewID("dim"); return d })
}
