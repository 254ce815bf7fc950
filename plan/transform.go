package plan

import (
	"fmt"
	"math"
)

// RigidTransform is a 4x4 homogeneous transform stored as m[row][col].
// Capture records carry position and yaw; pitch and roll are ignored.
type RigidTransform struct {
	m [4][4]float64
}

// ParseTransform reads a 16-element matrix in column-major order (the
// RoomPlan layout) or row-major order when rowMajor is set.
func ParseTransform(values []float64, rowMajor bool) (RigidTransform, error) {
	if len(values) != 16 {
		return RigidTransform{}, fmt.Errorf("transform has %d elements, want 16", len(values))
	}
	var t RigidTransform
	for i, v := range values {
		if rowMajor {
			t.m[i/4][i%4] = v
		} else {
			t.m[i%4][i/4] = v
		}
	}
	return t, nil
}

// IdentityTransform returns a transform that leaves points in place
func IdentityTransform() RigidTransform {
	var t RigidTransform
	for i := range 4 {
		t.m[i][i] = 1
	}
	return t
}

// Translation returns the translation column (x, y, z)
func (t RigidTransform) Translation() (x, y, z float64) {
	return t.m[0][3], t.m[1][3], t.m[2][3]
}

// Yaw returns the rotation about the vertical axis in radians, recovered
// as atan2(m02, m00). A matrix with both entries zero yields 0.
func (t RigidTransform) Yaw() float64 {
	m00, m02 := t.m[0][0], t.m[0][2]
	if m00 == 0 && m02 == 0 {
		return 0
	}
	return math.Atan2(m02, m00)
}

// YawDegrees returns Yaw in degrees
func (t RigidTransform) YawDegrees() float64 {
	return t.Yaw() * 180 / math.Pi
}

// PlanPosition projects the translation onto the floor plane. Capture Z
// becomes plan Y.
func (t RigidTransform) PlanPosition() Point {
	x, _, z := t.Translation()
	return Point{X: x, Y: z}
}

// SegmentEndpoints returns the endpoints of a segment of the given length
// centered on the transform's position and oriented along its yaw.
func (t RigidTransform) SegmentEndpoints(length float64) (Point, Point) {
	center := t.PlanPosition()
	yaw := t.Yaw()
	half := length / 2
	dx, dy := half*math.Cos(yaw), half*math.Sin(yaw)
	return Point{X: center.X - dx, Y: center.Y - dy}, Point{X: center.X + dx, Y: center.Y + dy}
}

// NormalizeAngle normalizes an angle in degrees to the range [0, 360).
func NormalizeAngle(degrees float64) float64 {
	degrees = math.Mod(degrees, 360)
	if degrees < 0 {
		degrees += 360
	}
	return degrees
}

// TranslatePlan returns a copy of p with every coordinate shifted by
// (dx, dy). Areas and topology are unchanged.
func TranslatePlan(p *FloorPlan, dx, dy float64) *FloorPlan {
	out := p.Clone()
	if out == nil {
		return nil
	}
	shift := func(pt Point) Point { return Point{X: pt.X + dx, Y: pt.Y + dy} }
	for i := range out.Rooms {
		r := &out.Rooms[i]
		r.Position.X += dx
		r.Position.Y += dy
		if r.Polygon != nil {
			r.Polygon = r.Polygon.Translate(dx, dy)
		}
		for j, h := range r.Holes {
			r.Holes[j] = h.Translate(dx, dy)
		}
		if r.Center != nil {
			c := shift(*r.Center)
			r.Center = &c
		}
	}
	for i := range out.Walls {
		out.Walls[i].Start = shift(out.Walls[i].Start)
		out.Walls[i].End = shift(out.Walls[i].End)
	}
	for i := range out.Doors {
		out.Doors[i].Position = shift(out.Doors[i].Position)
	}
	for i := range out.Windows {
		out.Windows[i].Position = shift(out.Windows[i].Position)
	}
	for i := range out.Fixtures {
		out.Fixtures[i].Position.X += dx
		out.Fixtures[i].Position.Y += dy
	}
	for i := range out.Dimensions {
		out.Dimensions[i].Start = shift(out.Dimensions[i].Start)
		out.Dimensions[i].End = shift(out.Dimensions[i].End)
	}
	return out
}
