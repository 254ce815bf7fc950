package plan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultVectorTimeout bounds one extractor run
	DefaultVectorTimeout = 30 * time.Second

	// DefaultVectorScale is meters per PDF point when the extractor could
	// not calibrate.
	DefaultVectorScale = 0.0035

	interpreterCheckTimeout = 5 * time.Second
)

// Wall line categories assigned by the extractor
const (
	LineExteriorWall  = "exterior_wall"
	LineInteriorWall  = "interior_wall"
	LineDimensionLine = "dimension_line"
	LineHatch         = "hatch"
	LineFurniture     = "furniture"
	LineUnknown       = "unknown"
)

// WallLine is a stroked segment in PDF points
type WallLine struct {
	Start    [2]float64 `json:"start"`
	End      [2]float64 `json:"end"`
	Width    float64    `json:"width"`
	Category string     `json:"category"`
	LengthM  float64    `json:"lengthM"`
}

// DimensionText is a parsed dimension annotation
type DimensionText struct {
	Text    string  `json:"text"`
	ValueMM float64 `json:"value_mm"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// PageText is a free text token from the page
type PageText struct {
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize float64 `json:"fontSize"`
}

// PageSize is the page extent in points
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// VectorHints are the vector-graphics observations of one page. They are
// hints only and never an authoritative plan.
type VectorHints struct {
	WallLines      []WallLine      `json:"wallLines"`
	DimensionTexts []DimensionText `json:"dimensionTexts"`
	AllTexts       []PageText      `json:"allTexts"`
	PageSize       PageSize        `json:"pageSize"`
	Scale          float64         `json:"scale"` // meters per point
	Offset         Point           `json:"offset"`
}

// VectorResult is the full extractor output
type VectorResult struct {
	FloorPlan  *FloorPlan     `json:"floorPlan"`
	Method     string         `json:"method"`
	Confidence float64        `json:"confidence"`
	Warnings   []string       `json:"warnings"`
	Stats      map[string]any `json:"stats"`
	Hints      *VectorHints   `json:"vectorHints"`
}

// GeometricCandidate returns a validated copy of the extractor's own plan
// when it found any structure, else a plan rebuilt from the raw hints.
// The extractor's output is never returned as is.
func (r *VectorResult) GeometricCandidate() *FloorPlan {
	if r == nil {
		return nil
	}
	if r.FloorPlan != nil {
		own := ValidateCandidate(r.FloorPlan.Clone())
		if len(own.Walls) > 0 || len(own.Rooms) > 0 {
			return own
		}
	}
	return r.Hints.ToCandidate()
}

// ToMeters converts a page coordinate into plan meters
func (h *VectorHints) ToMeters(x, y float64) Point {
	scale := h.Scale
	if scale <= 0 {
		scale = DefaultVectorScale
	}
	return Point{
		X: round3((x - h.Offset.X) * scale),
		Y: round3((y - h.Offset.Y) * scale),
	}
}

// ToCandidate turns wall-category lines and dimension texts into a
// geometric candidate plan. Nil hints give a nil plan.
func (h *VectorHints) ToCandidate() *FloorPlan {
	if h == nil {
		return nil
	}
	scale := h.Scale
	if scale <= 0 {
		scale = DefaultVectorScale
	}

	p := &FloorPlan{
		Rooms:   []Room{},
		Walls:   []Wall{},
		Doors:   []Door{},
		Windows: []Window{},
	}
	for _, l := range h.WallLines {
		if l.Category != LineExteriorWall && l.Category != LineInteriorWall {
			continue
		}
		w := Wall{
			ID:         fmt.Sprintf("vw-%d", len(p.Walls)+1),
			Start:      h.ToMeters(l.Start[0], l.Start[1]),
			End:        h.ToMeters(l.End[0], l.End[1]),
			Thickness:  round3(l.Width * scale),
			IsExterior: l.Category == LineExteriorWall,
		}
		if w.IsExterior {
			w.WallType = "exterior"
		} else {
			w.WallType = "interior"
		}
		if w.Degenerate() {
			continue
		}
		p.Walls = append(p.Walls, w)
	}
	for i, d := range h.DimensionTexts {
		if d.ValueMM <= 0 {
			continue
		}
		at := h.ToMeters(d.X, d.Y)
		p.Dimensions = append(p.Dimensions, Dimension{
			ID:      fmt.Sprintf("vd-%d", i+1),
			Start:   at,
			End:     at,
			ValueMM: d.ValueMM,
			Label:   d.Text,
		})
	}
	return p
}

// DimensionHints returns the dimension values in millimeters as strings,
// for forwarding to the vision service.
func (h *VectorHints) DimensionHints() []string {
	if h == nil {
		return nil
	}
	out := make([]string, 0, len(h.DimensionTexts))
	for _, d := range h.DimensionTexts {
		if d.ValueMM > 0 {
			out = append(out, strconv.FormatFloat(d.ValueMM, 'f', -1, 64))
		}
	}
	return out
}

// VectorExtractor runs the external vector-graphics extraction script
type VectorExtractor struct {
	Interpreters []string
	Script       string
	Timeout      time.Duration
	TempDir      string // "" uses os.TempDir
}

// NewVectorExtractor returns an extractor for script using python3 or
// python, whichever answers first.
func NewVectorExtractor(script string) *VectorExtractor {
	return &VectorExtractor{
		Interpreters: []string{"python3", "python"},
		Script:       script,
		Timeout:      DefaultVectorTimeout,
	}
}

// Extract runs the script over one page of pdf. Any failure, including a
// timeout or a missing interpreter, is logged and reported as ok=false.
// The temporary input file is always removed.
func (e *VectorExtractor) Extract(ctx context.Context, pdf []byte, knownArea float64, page int) (*VectorResult, bool) {
	if e == nil || e.Script == "" {
		return nil, false
	}

	interpreter, ok := e.findInterpreter(ctx)
	if !ok {
		log.Printf("Warning: vector extraction skipped: no python interpreter found")
		return nil, false
	}

	tmp, err := os.CreateTemp(e.TempDir, "planfuse-*.pdf")
	if err != nil {
		log.Printf("Warning: vector extraction: creating temp file: %v", err)
		return nil, false
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(pdf); err != nil {
		tmp.Close()
		log.Printf("Warning: vector extraction: writing temp file: %v", err)
		return nil, false
	}
	if err := tmp.Close(); err != nil {
		log.Printf("Warning: vector extraction: closing temp file: %v", err)
		return nil, false
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultVectorTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{e.Script, tmp.Name(), "--page", strconv.Itoa(page)}
	if knownArea > 0 {
		args = append(args, "--known-area", strconv.FormatFloat(knownArea, 'f', -1, 64))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, interpreter, args...)
	cmd.Env = append(os.Environ(), "PYTHONIOENCODING=utf-8")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err = cmd.Run()
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		log.Printf("vector extractor stderr: %s", msg)
	}
	if runCtx.Err() == context.DeadlineExceeded {
		log.Printf("Warning: vector extraction timed out after %v", timeout)
		return nil, false
	}
	if err != nil {
		log.Printf("Warning: vector extraction failed: %v", err)
		return nil, false
	}

	var result VectorResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		log.Printf("Warning: vector extraction returned invalid JSON: %v", err)
		return nil, false
	}
	if result.Hints == nil && result.FloorPlan == nil {
		log.Printf("Warning: vector extraction returned no hints")
		return nil, false
	}
	return &result, true
}

// findInterpreter returns the first interpreter that answers --version
func (e *VectorExtractor) findInterpreter(ctx context.Context) (string, bool) {
	for _, candidate := range e.Interpreters {
		checkCtx, cancel := context.WithTimeout(ctx, interpreterCheckTimeout)
		err := exec.CommandContext(checkCtx, candidate, "--version").Run()
		cancel()
		if err == nil {
			return candidate, true
		}
	}
	return "", false
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
