package plan

import (
	"context"
	"fmt"
	"log"
)

// MimePDF is the document type the vector extractor understands
const MimePDF = "application/pdf"

// Result methods besides the capture and template ones
const (
	MethodFused     = "fused"
	MethodSemantic  = "semantic"
	MethodGeometric = "geometric"
)

// VisionSource produces a semantic candidate plan for a document
type VisionSource interface {
	Recognize(ctx context.Context, doc []byte, mimeType string, knownArea float64, hints *VectorHints) (*FloorPlan, error)
}

// HintSource produces vector-graphics hints for a PDF page
type HintSource interface {
	Extract(ctx context.Context, pdf []byte, knownArea float64, page int) (*VectorResult, bool)
}

// ResultPublisher receives finished results
type ResultPublisher interface {
	PublishResult(r *Result) error
}

// Document is one unit of work: either a drawing to recognize or a
// LiDAR capture to normalize.
type Document struct {
	ID          string
	Content     []byte
	MimeType    string
	KnownArea   float64 // m², 0 when unknown
	Page        int
	Capture     *Capture
	ProjectID   string // Adapt is skipped when empty
	ProjectName string
}

// Result is the outcome of processing one document
type Result struct {
	DocumentID  string               `json:"documentId"`
	Method      string               `json:"method"`
	FloorPlan   *FloorPlan           `json:"floorPlan"`
	Quality     QualityReport        `json:"quality"`
	Fingerprint string               `json:"fingerprint"`
	Sources     *FusionSources       `json:"sources,omitempty"`
	Stats       *FusionStats         `json:"stats,omitempty"`
	Repair      *RepairReport        `json:"repair,omitempty"`
	Template    *TemplateMatchResult `json:"template,omitempty"`
	Furniture   []ScannedFurniture   `json:"furniture,omitempty"`
	Project     *Project             `json:"project,omitempty"`
}

// Pipeline wires the recognition sources, fusion, scoring and the
// template fallback. Vision, Vector, Matcher and Publisher are optional.
type Pipeline struct {
	Config    *Config
	Vision    VisionSource
	Vector    HintSource
	Matcher   *Matcher
	Publisher ResultPublisher
}

// NewPipeline builds a pipeline from config. Sources with no configured
// endpoint or script are left nil.
func NewPipeline(config *Config) *Pipeline {
	if config == nil {
		config = DefaultConfig()
	}
	p := &Pipeline{
		Config:  config,
		Matcher: NewMatcher(NewLibraryFromConfig(config.Templates), config.Templates.Threshold),
	}
	if config.Vision.URL != "" {
		opts := []VisionOption{WithTimeout(config.Vision.Timeout)}
		if config.Vision.APIKey != "" {
			opts = append(opts, WithAPIKey(config.Vision.APIKey))
		}
		p.Vision = NewVisionClient(config.Vision.URL, opts...)
	}
	if config.Vector.Script != "" {
		p.Vector = &VectorExtractor{
			Interpreters: config.Vector.Interpreters,
			Script:       config.Vector.Script,
			Timeout:      config.Vector.Timeout,
		}
	}
	return p
}

// Process runs one document through the pipeline. The only errors are a
// structurally invalid capture and ErrNoCandidates when no source
// produced a plan.
func (p *Pipeline) Process(ctx context.Context, doc Document) (*Result, error) {
	config := p.Config
	if config == nil {
		config = DefaultConfig()
	}

	if doc.Capture != nil {
		captured, err := NormalizeCapture(doc.Capture)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		for _, w := range captured.Warnings {
			log.Printf("Warning: document %s: %s", doc.ID, w)
		}
		res := &Result{
			DocumentID: doc.ID,
			Method:     captured.Method,
			FloorPlan:  captured.FloorPlan,
			Furniture:  captured.Furniture,
		}
		return p.finish(doc, res, config), nil
	}

	var hints *VectorHints
	var geometric *FloorPlan
	if p.Vector != nil && doc.MimeType == MimePDF {
		page := doc.Page
		if page <= 0 {
			page = config.Vector.Page
		}
		if vr, ok := p.Vector.Extract(ctx, doc.Content, doc.KnownArea, page); ok {
			hints = vr.Hints
			geometric = vr.GeometricCandidate()
		}
	}

	var semantic *FloorPlan
	var repair *RepairReport
	if p.Vision != nil {
		sp, err := p.Vision.Recognize(ctx, doc.Content, doc.MimeType, doc.KnownArea, hints)
		if err != nil {
			log.Printf("Warning: document %s: vision recognition failed: %v", doc.ID, err)
		} else {
			semantic = sp
		}
	}
	if semantic != nil && !config.Repair.Disabled {
		repaired, report := RepairTopology(semantic, doc.KnownArea, config.Repair)
		for _, w := range report.Warnings {
			log.Printf("Warning: document %s: %s", doc.ID, w)
		}
		semantic, repair = repaired, &report
	}

	fused, err := Fuse(semantic, geometric, config.Fusion)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", doc.ID, err)
	}

	res := &Result{
		DocumentID: doc.ID,
		Method:     fusionMethod(fused.Sources),
		FloorPlan:  fused.FloorPlan,
		Sources:    &fused.Sources,
		Stats:      &fused.Stats,
		Repair:     repair,
	}
	return p.finish(doc, res, config), nil
}

// finish scores the plan, consults the template library when recognition
// is weak, then fingerprints, adapts and publishes.
func (p *Pipeline) finish(doc Document, res *Result, config *Config) *Result {
	res.Quality = EvaluateQuality(res.FloorPlan, config.Quality)

	weak := res.Quality.Overall < config.Pipeline.MatchScoreThreshold ||
		res.Quality.RoomDetection < config.Pipeline.RoomDetectionThreshold
	if weak && doc.KnownArea > 0 && p.Matcher != nil {
		match := p.Matcher.Match(res.FloorPlan.Rooms, doc.KnownArea)
		if match.Matched {
			log.Printf("Document %s: replaced weak recognition (overall %.2f) with template %s (score %.2f)",
				doc.ID, res.Quality.Overall, *match.TemplateID, match.Score)
			res.Template = &match
			res.FloorPlan = match.FloorPlan
			res.Method = MethodTemplateMatch
			res.Quality = EvaluateQuality(res.FloorPlan, config.Quality)
		}
	}

	res.Fingerprint = Fingerprint(res.FloorPlan)
	if doc.ProjectID != "" {
		res.Project = Adapt(res.FloorPlan, doc.ProjectID, doc.ProjectName)
	}

	if p.Publisher != nil {
		if err := p.Publisher.PublishResult(res); err != nil {
			log.Printf("Warning: publishing result for %s: %v", doc.ID, err)
		}
	}
	return res
}

func fusionMethod(s FusionSources) string {
	switch {
	case s.Rooms == SourceSemantic && s.Doors == SourceSemantic:
		return MethodSemantic
	case s.Rooms == SourceGeometric && s.Doors == SourceGeometric:
		return MethodGeometric
	default:
		return MethodFused
	}
}
