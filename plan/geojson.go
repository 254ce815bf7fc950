package plan

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature kinds written to the "kind" property
const (
	FeatureRoom      = "room"
	FeatureWall      = "wall"
	FeatureDoor      = "door"
	FeatureWindow    = "window"
	FeatureFixture   = "fixture"
	FeatureDimension = "dimension"
)

// ToFeatureCollection exports p as GeoJSON in plan meters. Rooms and
// fixtures are polygons, walls and dimensions line strings, and openings
// points. Every feature carries its entity id and a "kind" property.
func ToFeatureCollection(p *FloorPlan) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if p == nil {
		return fc
	}

	for _, r := range p.Rooms {
		outline := r.Polygon
		if len(outline) < 3 {
			outline = rectPolygon(r.Position)
		}
		poly := orb.Polygon{orbRing(outline)}
		for _, h := range r.Holes {
			if len(h) >= 3 {
				poly = append(poly, orbRing(h))
			}
		}
		f := newFeature(r.ID, FeatureRoom, poly)
		f.Properties["type"] = string(r.Type)
		f.Properties["name"] = r.Name
		f.Properties["area"] = round2(r.EffectiveArea())
		if r.Material != "" {
			f.Properties["material"] = r.Material
		}
		fc.Append(f)
	}

	for _, w := range p.Walls {
		f := newFeature(w.ID, FeatureWall, orb.LineString{toOrb(w.Start), toOrb(w.End)})
		f.Properties["thickness"] = w.Thickness
		f.Properties["isExterior"] = w.IsExterior
		if w.WallType != "" {
			f.Properties["wallType"] = w.WallType
		}
		fc.Append(f)
	}

	for _, d := range p.Doors {
		f := newFeature(d.ID, FeatureDoor, toOrb(d.Position))
		f.Properties["type"] = string(d.Type)
		f.Properties["width"] = d.Width
		f.Properties["rotation"] = d.Rotation
		f.Properties["connectedRooms"] = []string{d.ConnectedRooms[0], d.ConnectedRooms[1]}
		fc.Append(f)
	}

	for _, w := range p.Windows {
		f := newFeature(w.ID, FeatureWindow, toOrb(w.Position))
		f.Properties["width"] = w.Width
		f.Properties["height"] = w.Height
		f.Properties["rotation"] = w.Rotation
		f.Properties["wallId"] = w.WallID
		fc.Append(f)
	}

	for _, fx := range p.Fixtures {
		f := newFeature(fx.ID, FeatureFixture, orb.Polygon{orbRing(rectPolygon(fx.Position))})
		f.Properties["type"] = string(fx.Type)
		f.Properties["roomId"] = fx.RoomID
		fc.Append(f)
	}

	for _, d := range p.Dimensions {
		f := newFeature(d.ID, FeatureDimension, orb.LineString{toOrb(d.Start), toOrb(d.End)})
		f.Properties["valueMm"] = d.ValueMM
		f.Properties["label"] = d.Label
		fc.Append(f)
	}

	return fc
}

// MarshalGeoJSON returns the GeoJSON encoding of p
func MarshalGeoJSON(p *FloorPlan) ([]byte, error) {
	data, err := ToFeatureCollection(p).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshaling GeoJSON: %w", err)
	}
	return data, nil
}

func newFeature(id, kind string, g orb.Geometry) *geojson.Feature {
	f := geojson.NewFeature(g)
	f.ID = id
	f.Properties["id"] = id
	f.Properties["kind"] = kind
	return f
}

// rectPolygon returns the corners of r counter-clockwise from its minimum
func rectPolygon(r Rect) Polygon {
	return Polygon{
		{X: r.X, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y + r.Height},
		{X: r.X, Y: r.Y + r.Height},
	}
}
