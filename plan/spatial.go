package plan

import (
	"math"
	"slices"

	"github.com/dhconnelly/rtreego"
)

const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50

	// pointExtent is the half-size of the box that stands in for a point
	pointExtent = 1e-9
)

// indexedPoint is one entry of a PointIndex
type indexedPoint struct {
	index int
	at    Point
	rect  rtreego.Rect
}

func (ip *indexedPoint) Bounds() rtreego.Rect {
	return ip.rect
}

// PointIndex is an R-tree over plan points supporting radius and
// nearest-neighbour queries. Entries keep their insertion index so ties
// resolve to the earliest point.
type PointIndex struct {
	tree *rtreego.Rtree
	size int
}

// NewPointIndex returns an index pre-loaded with pts in order
func NewPointIndex(pts ...Point) *PointIndex {
	ix := &PointIndex{tree: rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren)}
	for _, p := range pts {
		ix.Insert(p)
	}
	return ix
}

// Len returns the number of indexed points
func (ix *PointIndex) Len() int {
	return ix.size
}

// Insert adds p and returns its index
func (ix *PointIndex) Insert(p Point) int {
	item := &indexedPoint{index: ix.size, at: p, rect: pointRect(p, pointExtent)}
	ix.tree.Insert(item)
	ix.size++
	return item.index
}

// AnyWithin reports whether some indexed point lies strictly closer than
// radius to p. When match is non-nil it must also accept the point's
// index.
func (ix *PointIndex) AnyWithin(p Point, radius float64, match func(index int) bool) bool {
	if ix.size == 0 || radius <= 0 {
		return false
	}
	found := false
	ix.tree.SearchIntersect(pointRect(p, radius), func(_ []rtreego.Spatial, obj rtreego.Spatial) (bool, bool) {
		item := obj.(*indexedPoint)
		if Distance(item.at, p) < radius && (match == nil || match(item.index)) {
			found = true
			return false, true
		}
		return true, false
	})
	return found
}

// Within returns the indices of every point strictly closer than radius
// to p, in insertion order.
func (ix *PointIndex) Within(p Point, radius float64) []int {
	if ix.size == 0 || radius <= 0 {
		return nil
	}
	var hits []int
	for _, obj := range ix.tree.SearchIntersect(pointRect(p, radius)) {
		item := obj.(*indexedPoint)
		if Distance(item.at, p) < radius {
			hits = append(hits, item.index)
		}
	}
	slices.Sort(hits)
	return hits
}

// Nearest returns the index of the point closest to p and its distance.
// Equidistant points resolve to the lowest index. ok is false when the
// index is empty.
func (ix *PointIndex) Nearest(p Point) (index int, dist float64, ok bool) {
	if ix.size == 0 {
		return 0, 0, false
	}
	first, isPoint := ix.tree.NearestNeighbor(rtreego.Point{p.X, p.Y}).(*indexedPoint)
	if !isPoint {
		return 0, 0, false
	}
	best := first.index
	bestDist := Distance(first.at, p)

	// Sweep the tie band so ordering does not depend on tree layout.
	reach := bestDist + 1e-9
	for _, obj := range ix.tree.SearchIntersect(pointRect(p, reach)) {
		item := obj.(*indexedPoint)
		d := Distance(item.at, p)
		if d < bestDist-1e-12 || (math.Abs(d-bestDist) <= 1e-12 && item.index < best) {
			best, bestDist = item.index, d
		}
	}
	return best, bestDist, true
}

// pointRect returns the square of half-size r centered on p
func pointRect(p Point, r float64) rtreego.Rect {
	if r <= 0 {
		r = pointExtent
	}
	rect, err := rtreego.NewRect(rtreego.Point{p.X - r, p.Y - r}, []float64{2 * r, 2 * r})
	if err != nil {
		// Only reachable with non-finite coordinates.
		rect, _ = rtreego.NewRect(rtreego.Point{0, 0}, []float64{pointExtent, pointExtent})
	}
	return rect
}

// NearestWall returns the id of the wall whose midpoint is closest to p,
// or "" when there are no walls.
func NearestWall(p Point, walls []Wall) string {
	if len(walls) == 0 {
		return ""
	}
	return newWallIndex(walls).nearest(p)
}

// wallIndex maps wall midpoints to wall ids
type wallIndex struct {
	points *PointIndex
	ids    []string
}

func newWallIndex(walls []Wall) *wallIndex {
	wi := &wallIndex{points: NewPointIndex(), ids: make([]string, 0, len(walls))}
	for _, w := range walls {
		wi.points.Insert(w.Midpoint())
		wi.ids = append(wi.ids, w.ID)
	}
	return wi
}

// nearest returns the closest wall id, or "" for an empty index
func (wi *wallIndex) nearest(p Point) string {
	i, _, ok := wi.points.Nearest(p)
	if !ok {
		return ""
	}
	return wi.ids[i]
}
