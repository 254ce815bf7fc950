package plan

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// toOrb converts a plan point to an orb point
func toOrb(p Point) orb.Point {
	return orb.Point{p.X, p.Y}
}

// orbRing converts a polygon to a closed orb ring
func orbRing(poly Polygon) orb.Ring {
	ring := make(orb.Ring, 0, len(poly)+1)
	for _, p := range poly {
		ring = append(ring, toOrb(p))
	}
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}

// Distance returns the Euclidean distance between a and b
func Distance(a, b Point) float64 {
	return planar.Distance(toOrb(a), toOrb(b))
}

// PolygonArea returns the unsigned shoelace area of poly.
// Fewer than three vertices yields 0.
func PolygonArea(poly Polygon) float64 {
	if len(poly) < 3 {
		return 0
	}
	return math.Abs(planar.Area(orbRing(poly)))
}

// PointInPolygon reports whether p lies strictly inside poly using ray casting.
// Points exactly on an edge may fall either way.
func PointInPolygon(p Point, poly Polygon) bool {
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := poly[i].X, poly[i].Y
		xj, yj := poly[j].X, poly[j].Y
		if (yi > p.Y) != (yj > p.Y) && p.X < (xj-xi)*(p.Y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// Bounds returns the axis-aligned bounding rectangle of poly
func Bounds(poly Polygon) Rect {
	if len(poly) == 0 {
		return Rect{}
	}
	b := orbRing(poly).Bound()
	return Rect{X: b.Min[0], Y: b.Min[1], Width: b.Max[0] - b.Min[0], Height: b.Max[1] - b.Min[1]}
}

// Centroid returns the area centroid of poly, or the vertex mean for
// degenerate rings.
func Centroid(poly Polygon) Point {
	if len(poly) == 0 {
		return Point{}
	}
	if PolygonArea(poly) == 0 {
		var sx, sy float64
		for _, p := range poly {
			sx += p.X
			sy += p.Y
		}
		n := float64(len(poly))
		return Point{X: sx / n, Y: sy / n}
	}
	c, _ := planar.CentroidArea(orbRing(poly))
	return Point{X: c[0], Y: c[1]}
}

// Translate returns poly shifted by (dx, dy)
func (poly Polygon) Translate(dx, dy float64) Polygon {
	out := make(Polygon, len(poly))
	for i, p := range poly {
		out[i] = Point{X: p.X + dx, Y: p.Y + dy}
	}
	return out
}

// RoomContains reports whether p falls inside the room's polygon, or
// its position rectangle when the polygon is missing.
func RoomContains(r Room, p Point) bool {
	if len(r.Polygon) > 2 {
		return PointInPolygon(p, r.Polygon)
	}
	return r.Position.Contains(p)
}

// ContainingRoom returns the id of the first room that contains p.
// When none does, the first room's id is returned; an empty room list
// yields "".
func ContainingRoom(p Point, rooms []Room) string {
	for _, r := range rooms {
		if RoomContains(r, p) {
			return r.ID
		}
	}
	if len(rooms) > 0 {
		return rooms[0].ID
	}
	return ""
}

// round2 rounds to two decimal places
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
