package plan

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// RepairOptions tunes RepairTopology. Zero values fall back to
// DefaultRepairOptions.
type RepairOptions struct {
	Disabled          bool    `yaml:"disabled" json:"disabled"`
	SnapDistance      float64 `yaml:"snapDistance" json:"snapDistance"`           // meters
	AlignTolerance    float64 `yaml:"alignTolerance" json:"alignTolerance"`       // meters
	CollinearCos      float64 `yaml:"collinearCos" json:"collinearCos"`           // |cos| at or above which a vertex is dropped
	AdjacencyDistance float64 `yaml:"adjacencyDistance" json:"adjacencyDistance"` // meters
	UniformSizeCV     float64 `yaml:"uniformSizeCV" json:"uniformSizeCV"`         // room sizes below this look grid-like
	CorrectionCV      float64 `yaml:"correctionCV" json:"correctionCV"`           // polygons are rescaled below this
	MinCorrectionArea float64 `yaml:"minCorrectionArea" json:"minCorrectionArea"` // m²; known areas at or below are never corrected
}

// DefaultRepairOptions returns the standard repair thresholds
func DefaultRepairOptions() RepairOptions {
	return RepairOptions{
		SnapDistance:      0.15,
		AlignTolerance:    0.1,
		CollinearCos:      0.97,
		AdjacencyDistance: 0.5,
		UniformSizeCV:     0.3,
		CorrectionCV:      0.4,
		MinCorrectionArea: 30,
	}
}

func (o RepairOptions) withDefaults() RepairOptions {
	d := DefaultRepairOptions()
	fill := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&o.SnapDistance, d.SnapDistance)
	fill(&o.AlignTolerance, d.AlignTolerance)
	fill(&o.CollinearCos, d.CollinearCos)
	fill(&o.AdjacencyDistance, d.AdjacencyDistance)
	fill(&o.UniformSizeCV, d.UniformSizeCV)
	fill(&o.CorrectionCV, d.CorrectionCV)
	fill(&o.MinCorrectionArea, d.MinCorrectionArea)
	if o.CollinearCos > 1 {
		o.CollinearCos = d.CollinearCos
	}
	return o
}

// RepairReport counts what RepairTopology changed and what it found
type RepairReport struct {
	SnappedVertices int      `json:"snappedVertices"`
	AlignedCoords   int      `json:"alignedCoordinates"`
	RemovedVertices int      `json:"removedVertices"`
	Gaps            int      `json:"gaps"`
	Connected       bool     `json:"connected"`
	Corrected       bool     `json:"corrected"`
	SizeCV          float64  `json:"sizeCV"`
	Warnings        []string `json:"warnings"`
}

// gapMinDistance separates a real gap from rooms that already touch
const gapMinDistance = 0.05

// roomAreaShares is the typical share of the total area per room type,
// used to rescale grid-like recognitions.
var roomAreaShares = map[RoomType]float64{
	RoomLiving:    0.12,
	RoomKitchen:   0.08,
	RoomMasterBed: 0.09,
	RoomBed:       0.06,
	RoomBathroom:  0.035,
	RoomEntrance:  0.055,
	RoomBalcony:   0.02,
	RoomUtility:   0.02,
	RoomCorridor:  0.05,
	RoomDressRoom: 0.02,
}

const defaultAreaShare = 0.05

// RepairTopology cleans up the room polygons of a recognized plan.
// Vertices of different rooms closer than SnapDistance are merged and
// near equal coordinates shared by several rooms are aligned. Collinear or
// repeated vertices are then removed. The report counts small gaps
// between rooms and warns when rooms do not form one connected group or
// their sizes look implausible. When knownArea exceeds MinCorrectionArea
// and room sizes are nearly uniform, polygons are rescaled to typical
// shares of knownArea.
//
// Only rooms with a polygon take part. With fewer than two such rooms, or
// when disabled, p is returned unchanged; otherwise the result is a
// repaired copy. Stated room areas are kept unless the polygon is
// rescaled.
func RepairTopology(p *FloorPlan, knownArea float64, opts RepairOptions) (*FloorPlan, RepairReport) {
	report := RepairReport{Connected: true, Warnings: []string{}}
	if p == nil || opts.Disabled {
		return p, report
	}
	opts = opts.withDefaults()

	var idx []int
	for i, r := range p.Rooms {
		if len(r.Polygon) >= 3 {
			idx = append(idx, i)
		}
	}
	if len(idx) < 2 {
		return p, report
	}

	out := p.Clone()
	rooms := out.Rooms

	report.SnappedVertices = snapVertices(rooms, idx, opts.SnapDistance)
	report.AlignedCoords = alignAxis(rooms, idx, opts.AlignTolerance,
		func(pt Point) float64 { return pt.X }, func(pt *Point, v float64) { pt.X = v })
	report.AlignedCoords += alignAxis(rooms, idx, opts.AlignTolerance,
		func(pt Point) float64 { return pt.Y }, func(pt *Point, v float64) { pt.Y = v })
	for _, i := range idx {
		before := len(rooms[i].Polygon)
		rooms[i].Polygon = simplifyRing(rooms[i].Polygon, opts.CollinearCos)
		report.RemovedVertices += before - len(rooms[i].Polygon)
		refreshRoomGeometry(&rooms[i])
	}

	report.Gaps = countGaps(rooms, idx, opts.AdjacencyDistance)
	if unreached := unconnectedRooms(rooms, idx, out.Doors, opts.AdjacencyDistance); len(unreached) > 0 {
		report.Connected = false
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("rooms not connected to the rest of the plan: %s", strings.Join(unreached, ", ")))
	}
	report.Warnings = append(report.Warnings, proportionWarnings(rooms, idx, knownArea, opts)...)

	if knownArea > opts.MinCorrectionArea {
		report.Corrected = correctProportions(rooms, idx, knownArea, opts.CorrectionCV)
	}
	report.SizeCV = round2(sizeCV(areasOf(rooms, idx)))
	return out, report
}

// vertexRef addresses one polygon vertex
type vertexRef struct {
	room, vertex int
}

// snapVertices moves each cluster of vertices from different rooms lying
// within dist of a seed vertex to the cluster mean. Clusters are seeded in
// room order and each vertex joins at most one. It returns the number of
// vertices moved.
func snapVertices(rooms []Room, idx []int, dist float64) int {
	var refs []vertexRef
	var pts []Point
	index := NewPointIndex()
	for _, ri := range idx {
		for vi, pt := range rooms[ri].Polygon {
			refs = append(refs, vertexRef{ri, vi})
			pts = append(pts, pt)
			index.Insert(pt)
		}
	}

	merged := make([]bool, len(refs))
	moved := 0
	for i, ref := range refs {
		if merged[i] {
			continue
		}
		cluster := []int{i}
		for _, j := range index.Within(pts[i], dist) {
			if j <= i || merged[j] || refs[j].room == ref.room {
				continue
			}
			cluster = append(cluster, j)
		}
		if len(cluster) < 2 {
			continue
		}

		var mid Point
		for _, k := range cluster {
			mid.X += pts[k].X
			mid.Y += pts[k].Y
		}
		n := float64(len(cluster))
		mid = Point{X: round3(mid.X / n), Y: round3(mid.Y / n)}
		for _, k := range cluster {
			merged[k] = true
			if pts[k] != mid {
				rooms[refs[k].room].Polygon[refs[k].vertex] = mid
				moved++
			}
		}
	}
	return moved
}

// coordRef is one coordinate of a polygon vertex along a single axis
type coordRef struct {
	vertexRef
	value float64
}

// alignAxis groups vertex coordinates that lie within tol of the smallest
// member of their group. Groups spanning two or more rooms are set to the
// group mean. It returns the number of coordinates changed.
func alignAxis(rooms []Room, idx []int, tol float64, get func(Point) float64, set func(*Point, float64)) int {
	var coords []coordRef
	for _, ri := range idx {
		for vi, pt := range rooms[ri].Polygon {
			coords = append(coords, coordRef{vertexRef{ri, vi}, get(pt)})
		}
	}
	sort.SliceStable(coords, func(a, b int) bool { return coords[a].value < coords[b].value })

	aligned := 0
	for i := 0; i < len(coords); {
		j := i + 1
		for j < len(coords) && coords[j].value-coords[i].value < tol {
			j++
		}
		group := coords[i:j]
		i = j

		if !spansRooms(group) {
			continue
		}
		sum := 0.0
		for _, c := range group {
			sum += c.value
		}
		avg := round3(sum / float64(len(group)))
		for _, c := range group {
			pt := &rooms[c.room].Polygon[c.vertex]
			if get(*pt) != avg {
				set(pt, avg)
				aligned++
			}
		}
	}
	return aligned
}

func spansRooms(group []coordRef) bool {
	for _, c := range group[1:] {
		if c.room != group[0].room {
			return true
		}
	}
	return false
}

// simplifyRing drops repeated vertices, then vertices whose neighbours
// make |cos| >= cosLimit with it. Rings that would fall below three
// vertices are returned unchanged.
func simplifyRing(poly Polygon, cosLimit float64) Polygon {
	if len(poly) <= 3 {
		return poly
	}
	distinct := make(Polygon, 0, len(poly))
	for i, pt := range poly {
		if Distance(pt, poly[(i+1)%len(poly)]) >= 0.001 {
			distinct = append(distinct, pt)
		}
	}

	n := len(distinct)
	out := make(Polygon, 0, n)
	for i, cur := range distinct {
		prev, next := distinct[(i-1+n)%n], distinct[(i+1)%n]
		v1x, v1y := prev.X-cur.X, prev.Y-cur.Y
		v2x, v2y := next.X-cur.X, next.Y-cur.Y
		l1, l2 := math.Hypot(v1x, v1y), math.Hypot(v2x, v2y)
		if l1 < 0.001 || l2 < 0.001 {
			continue
		}
		if cos := (v1x*v2x + v1y*v2y) / (l1 * l2); math.Abs(cos) < cosLimit {
			out = append(out, cur)
		}
	}
	if len(out) < 3 {
		return poly
	}
	return out
}

// refreshRoomGeometry recomputes the bounding box and center of a repaired
// room. A missing area is derived from the polygon.
func refreshRoomGeometry(r *Room) {
	b := Bounds(r.Polygon)
	r.Position = Rect{X: round3(b.X), Y: round3(b.Y), Width: round3(b.Width), Height: round3(b.Height)}
	if r.Center != nil {
		c := Centroid(r.Polygon)
		r.Center = &Point{X: round3(c.X), Y: round3(c.Y)}
	}
	if r.Area <= 0 {
		r.Area = round2(PolygonArea(r.Polygon))
	}
}

// countGaps counts room pairs whose closest edge midpoints are apart by
// more than gapMinDistance but less than adjacency.
func countGaps(rooms []Room, idx []int, adjacency float64) int {
	gaps := 0
	for a := 0; a < len(idx); a++ {
		for b := a + 1; b < len(idx); b++ {
			d := minEdgeMidpointDistance(rooms[idx[a]].Polygon, rooms[idx[b]].Polygon)
			if d > gapMinDistance && d < adjacency {
				gaps++
			}
		}
	}
	return gaps
}

func minEdgeMidpointDistance(p, q Polygon) float64 {
	mids := NewPointIndex()
	for i := range q {
		mids.Insert(edgeMidpoint(q, i))
	}
	best := math.Inf(1)
	for i := range p {
		if _, d, ok := mids.Nearest(edgeMidpoint(p, i)); ok && d < best {
			best = d
		}
	}
	return best
}

func edgeMidpoint(poly Polygon, i int) Point {
	a, b := poly[i], poly[(i+1)%len(poly)]
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// unconnectedRooms returns the ids of rooms not reachable from the first
// repaired room. Rooms are adjacent when their bounding boxes come within
// touch of each other or a door connects them.
func unconnectedRooms(rooms []Room, idx []int, doors []Door, touch float64) []string {
	pos := make(map[string]int, len(idx))
	for k, i := range idx {
		pos[rooms[i].ID] = k
	}
	adj := make([][]int, len(idx))
	link := func(a, b int) {
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}
	for a := 0; a < len(idx); a++ {
		for b := a + 1; b < len(idx); b++ {
			if boxesTouch(rooms[idx[a]].Position, rooms[idx[b]].Position, touch) {
				link(a, b)
			}
		}
	}
	for _, d := range doors {
		a, okA := pos[d.ConnectedRooms[0]]
		b, okB := pos[d.ConnectedRooms[1]]
		if okA && okB && a != b {
			link(a, b)
		}
	}

	visited := make([]bool, len(idx))
	visited[0] = true
	queue := []int{0}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	var unreached []string
	for k, ok := range visited {
		if !ok {
			unreached = append(unreached, rooms[idx[k]].ID)
		}
	}
	return unreached
}

func boxesTouch(a, b Rect, touch float64) bool {
	return a.X < b.X+b.Width+touch && b.X < a.X+a.Width+touch &&
		a.Y < b.Y+b.Height+touch && b.Y < a.Y+a.Height+touch
}

func areasOf(rooms []Room, idx []int) []float64 {
	areas := make([]float64, len(idx))
	for k, i := range idx {
		areas[k] = rooms[i].EffectiveArea()
	}
	return areas
}

// sizeCV is the coefficient of variation of areas, 0 when the mean is not
// positive.
func sizeCV(areas []float64) float64 {
	if len(areas) == 0 {
		return 0
	}
	mean := 0.0
	for _, a := range areas {
		mean += a
	}
	mean /= float64(len(areas))
	if mean <= 0 {
		return 0
	}
	variance := 0.0
	for _, a := range areas {
		variance += (a - mean) * (a - mean)
	}
	return math.Sqrt(variance/float64(len(areas))) / mean
}

// proportionWarnings flags size distributions typical of grid-like
// recognitions.
func proportionWarnings(rooms []Room, idx []int, knownArea float64, opts RepairOptions) []string {
	if len(idx) < 3 {
		return nil
	}
	areas := areasOf(rooms, idx)
	var warnings []string
	if cv := sizeCV(areas); cv < opts.UniformSizeCV && len(idx) >= 4 {
		warnings = append(warnings, fmt.Sprintf("room sizes nearly uniform (cv %.2f); grid-like recognition suspected", cv))
	}
	if knownArea <= opts.MinCorrectionArea {
		return warnings
	}

	for k, i := range idx {
		if rooms[i].Type != RoomLiving {
			continue
		}
		if ratio := areas[k] / knownArea; ratio < 0.15 {
			warnings = append(warnings, fmt.Sprintf("living room is %.0f%% of the total area, expected 25-35%%", ratio*100))
		}
		break
	}

	lo, hi := areas[0], areas[0]
	for _, a := range areas[1:] {
		lo, hi = math.Min(lo, a), math.Max(hi, a)
	}
	if lo > 0 && hi/lo < 2 {
		warnings = append(warnings, fmt.Sprintf("largest room %.1f m² is only %.1fx the smallest %.1f m², expected 4-8x", hi, hi/lo, lo))
	}
	return warnings
}

// correctProportions rescales every repaired room about its vertex mean so
// its area becomes its typical share of knownArea, normalized so the
// shares sum to knownArea. It only acts on four or more rooms whose size
// CV is below cvLimit.
func correctProportions(rooms []Room, idx []int, knownArea, cvLimit float64) bool {
	if len(idx) < 4 || sizeCV(areasOf(rooms, idx)) >= cvLimit {
		return false
	}

	targets := make([]float64, len(idx))
	total := 0.0
	beds := 0
	for k, i := range idx {
		share, ok := roomAreaShares[rooms[i].Type]
		if !ok {
			share = defaultAreaShare
		}
		if rooms[i].Type == RoomBed {
			beds++
			if beds > 1 {
				share *= 0.85
			}
		}
		targets[k] = knownArea * share
		total += targets[k]
	}
	norm := knownArea / total

	for k, i := range idx {
		r := &rooms[i]
		current := r.EffectiveArea()
		if current <= 0 {
			continue
		}
		target := targets[k] * norm
		scale := math.Sqrt(target / current)

		var c Point
		for _, pt := range r.Polygon {
			c.X += pt.X
			c.Y += pt.Y
		}
		c.X /= float64(len(r.Polygon))
		c.Y /= float64(len(r.Polygon))

		r.Polygon = scaleAbout(r.Polygon, c, scale)
		for h := range r.Holes {
			r.Holes[h] = scaleAbout(r.Holes[h], c, scale)
		}
		r.Area = round2(target)
		refreshRoomGeometry(r)
	}
	return true
}

func scaleAbout(poly Polygon, c Point, scale float64) Polygon {
	out := make(Polygon, len(poly))
	for i, pt := range poly {
		out[i] = Point{X: round3(c.X + (pt.X-c.X)*scale), Y: round3(c.Y + (pt.Y-c.Y)*scale)}
	}
	return out
}
