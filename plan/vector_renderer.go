package plan

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// RoomColors is the fill used for each room type in previews
var RoomColors = map[RoomType]color.NRGBA{
	RoomLiving:    {0xE3, 0xF2, 0xFD, 0xFF},
	RoomKitchen:   {0xFF, 0xF3, 0xE0, 0xFF},
	RoomMasterBed: {0xF3, 0xE5, 0xF5, 0xFF},
	RoomBed:       {0xE8, 0xEA, 0xF6, 0xFF},
	RoomBathroom:  {0xE0, 0xF7, 0xFA, 0xFF},
	RoomEntrance:  {0xFB, 0xE9, 0xE7, 0xFF},
	RoomBalcony:   {0xE8, 0xF5, 0xE9, 0xFF},
	RoomUtility:   {0xF5, 0xF5, 0xF5, 0xFF},
	RoomCorridor:  {0xEC, 0xEF, 0xF1, 0xFF},
	RoomDressRoom: {0xFC, 0xE4, 0xEC, 0xFF},
}

var (
	wallColor    = color.NRGBA{0x37, 0x47, 0x4F, 0xFF}
	doorColor    = color.NRGBA{0x8D, 0x6E, 0x63, 0xFF}
	windowColor  = color.NRGBA{0x42, 0xA5, 0xF5, 0xFF}
	fixtureColor = color.NRGBA{0x90, 0xA4, 0xAE, 0xC0}
)

// nrgbaToRGBA converts color.NRGBA to premultiplied color.RGBA
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	a := uint32(c.A)
	return color.RGBA{
		R: uint8(uint32(c.R) * a / 255),
		G: uint8(uint32(c.G) * a / 255),
		B: uint8(uint32(c.B) * a / 255),
		A: c.A,
	}
}

// PlanRenderer draws a floor plan preview as SVG or PNG. Plan Y grows
// downward on the page, as on a printed drawing.
type PlanRenderer struct {
	Plan       *FloorPlan
	Scale      float64           // canvas millimeters per plan meter
	Padding    float64           // plan meters around the drawing
	Resolution canvas.Resolution // PNG output only
	Labels     bool              // room names on PNG output
}

// NewPlanRenderer returns a renderer at 1:100 with 300 DPI PNG output
func NewPlanRenderer(p *FloorPlan) *PlanRenderer {
	return &PlanRenderer{
		Plan:       p,
		Scale:      10,
		Padding:    0.5,
		Resolution: canvas.DPI(300),
		Labels:     true,
	}
}

// canvasRenderer is implemented by the svg and rasterizer renderers
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// pageFrame maps plan meters to canvas millimeters
type pageFrame struct {
	minX, minY    float64
	scale, pad    float64
	width, height float64
}

func (f pageFrame) toCanvas(p Point) (float64, float64) {
	x := (p.X - f.minX + f.pad) * f.scale
	y := f.height - (p.Y-f.minY+f.pad)*f.scale
	return x, y
}

// RenderToSVG writes the plan as SVG
func (r *PlanRenderer) RenderToSVG(w io.Writer) error {
	frame := r.frame()
	out := svg.New(w, frame.width, frame.height, nil)
	r.renderToCanvas(out, frame)
	return out.Close()
}

// RenderToPNG writes the plan as PNG
func (r *PlanRenderer) RenderToPNG(w io.Writer) error {
	frame := r.frame()
	res := r.Resolution
	if res == 0 {
		res = canvas.DPI(300)
	}
	rast := rasterizer.New(frame.width, frame.height, res, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, frame)
	if r.Labels {
		r.drawLabels(rast, frame, res)
	}
	return png.Encode(w, rast)
}

func (r *PlanRenderer) frame() pageFrame {
	scale := r.Scale
	if scale <= 0 {
		scale = 10
	}
	pad := math.Max(r.Padding, 0)

	minX, minY, maxX, maxY := planBounds(r.Plan)
	return pageFrame{
		minX:   minX,
		minY:   minY,
		scale:  scale,
		pad:    pad,
		width:  (maxX - minX + 2*pad) * scale,
		height: (maxY - minY + 2*pad) * scale,
	}
}

// planBounds returns the extent of every drawn entity, or a unit square
// for an empty plan.
func planBounds(p *FloorPlan) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	add := func(pt Point) {
		minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
		minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
	}

	if p != nil {
		for _, room := range p.Rooms {
			for _, pt := range roomOutline(room) {
				add(pt)
			}
		}
		for _, w := range p.Walls {
			add(w.Start)
			add(w.End)
		}
		for _, d := range p.Doors {
			add(d.Position)
		}
		for _, w := range p.Windows {
			add(w.Position)
		}
		for _, f := range p.Fixtures {
			for _, pt := range rectPolygon(f.Position) {
				add(pt)
			}
		}
	}

	if math.IsInf(minX, 1) {
		return 0, 0, 1, 1
	}
	if maxX == minX {
		maxX = minX + 1
	}
	if maxY == minY {
		maxY = minY + 1
	}
	return minX, minY, maxX, maxY
}

func roomOutline(r Room) Polygon {
	if len(r.Polygon) >= 3 {
		return r.Polygon
	}
	return rectPolygon(r.Position)
}

func (r *PlanRenderer) renderToCanvas(out canvasRenderer, f pageFrame) {
	bg := canvas.DefaultStyle
	bg.Fill = canvas.Paint{Color: canvas.White}
	bg.Stroke = canvas.Paint{Color: canvas.Transparent}
	out.RenderPath(canvas.Rectangle(f.width, f.height), bg, canvas.Identity)

	p := r.Plan
	if p == nil {
		return
	}

	for _, room := range p.Rooms {
		fill, ok := RoomColors[room.Type]
		if !ok {
			fill = RoomColors[RoomUtility]
		}
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: nrgbaToRGBA(fill)}
		style.Stroke = canvas.Paint{Color: canvas.Gray}
		style.StrokeWidth = 0.2
		out.RenderPath(polygonPath(roomOutline(room), f), style, canvas.Identity)
	}

	for _, fx := range p.Fixtures {
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: nrgbaToRGBA(fixtureColor)}
		style.Stroke = canvas.Paint{Color: canvas.Transparent}
		out.RenderPath(polygonPath(rectPolygon(fx.Position), f), style, canvas.Identity)
	}

	for _, w := range p.Walls {
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: canvas.Transparent}
		style.Stroke = canvas.Paint{Color: nrgbaToRGBA(wallColor)}
		style.StrokeWidth = math.Max(orDefault(w.Thickness, 0.12)*f.scale, 0.3)
		if !w.IsExterior {
			style.StrokeWidth *= 0.7
		}
		out.RenderPath(segmentPath(w.Start, w.End, f), style, canvas.Identity)
	}

	for _, w := range p.Windows {
		half := orDefault(w.Width, 1.0) / 2
		rad := w.Rotation * math.Pi / 180
		dx, dy := half*math.Cos(rad), half*math.Sin(rad)
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: canvas.Transparent}
		style.Stroke = canvas.Paint{Color: nrgbaToRGBA(windowColor)}
		style.StrokeWidth = 0.8
		out.RenderPath(segmentPath(
			Point{X: w.Position.X - dx, Y: w.Position.Y - dy},
			Point{X: w.Position.X + dx, Y: w.Position.Y + dy}, f), style, canvas.Identity)
	}

	for _, d := range p.Doors {
		cx, cy := f.toCanvas(d.Position)
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: canvas.Transparent}
		style.Stroke = canvas.Paint{Color: nrgbaToRGBA(doorColor)}
		style.StrokeWidth = 0.3
		if d.Type == DoorSliding {
			style.Dashes = []float64{1, 1}
		}
		radius := orDefault(d.Width, 0.9) / 2 * f.scale
		out.RenderPath(canvas.Circle(radius).Translate(cx, cy), style, canvas.Identity)
	}
}

func polygonPath(poly Polygon, f pageFrame) *canvas.Path {
	cp := &canvas.Path{}
	for i, pt := range poly {
		x, y := f.toCanvas(pt)
		if i == 0 {
			cp.MoveTo(x, y)
		} else {
			cp.LineTo(x, y)
		}
	}
	cp.Close()
	return cp
}

func segmentPath(a, b Point, f pageFrame) *canvas.Path {
	cp := &canvas.Path{}
	x1, y1 := f.toCanvas(a)
	x2, y2 := f.toCanvas(b)
	cp.MoveTo(x1, y1)
	cp.LineTo(x2, y2)
	return cp
}

// drawLabels writes room names at room centroids. Raster rows grow
// downward from the top of the page.
func (r *PlanRenderer) drawLabels(img draw.Image, f pageFrame, res canvas.Resolution) {
	if r.Plan == nil {
		return
	}
	dpmm := res.DPMM()
	for _, room := range r.Plan.Rooms {
		label := room.Name
		if label == "" {
			label = room.Type.DisplayName()
		}
		at := Centroid(roomOutline(room))
		if room.Center != nil {
			at = *room.Center
		}
		cx, cy := f.toCanvas(at)
		px := int(cx*dpmm) - len(label)*7/2
		py := int((f.height-cy)*dpmm) + 4
		drawText(img, px, py, label, color.RGBA{0, 0, 0, 255})
	}
}

// drawText renders text onto an image at the specified position
func drawText(img draw.Image, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
