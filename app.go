package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kwv/planfuse/plan"
)

// App encapsulates the application state and dependencies
type App struct {
	Config *plan.Config
	Out    io.Writer

	// NewMQTTClient builds the client used by --publish
	NewMQTTClient func(plan.MQTTConfig) mqtt.Client

	// CLI Flags (effectively dependencies)
	ConfigFile  string
	Input       string
	Semantic    string
	Geometric   string
	LibraryDir  string
	OutputFile  string
	Format      string
	KnownArea   float64
	Page        int
	Threshold   float64
	DocumentID  string
	ProjectID   string
	ProjectName string
	Publish     bool
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{
		Out:           os.Stdout,
		NewMQTTClient: plan.NewMQTTClient,
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.Input = opts.Input
	a.Semantic = opts.Semantic
	a.Geometric = opts.Geometric
	a.LibraryDir = opts.LibraryDir
	a.OutputFile = opts.OutputFile
	a.Format = opts.Format
	a.KnownArea = opts.KnownArea
	a.Page = opts.Page
	a.Threshold = opts.Threshold
	a.DocumentID = opts.DocumentID
	a.ProjectID = opts.ProjectID
	a.ProjectName = opts.ProjectName
	a.Publish = opts.Publish
}

// loadConfig returns the configuration, reading the config file on first
// use. A missing file yields the defaults.
func (a *App) loadConfig() (*plan.Config, error) {
	if a.Config != nil {
		return a.Config, nil
	}
	if a.ConfigFile == "" {
		a.Config = plan.DefaultConfig()
		return a.Config, nil
	}
	if _, err := os.Stat(a.ConfigFile); err != nil {
		log.Printf("No config file at %s, using defaults", a.ConfigFile)
		a.Config = plan.DefaultConfig()
		return a.Config, nil
	}
	config, err := plan.LoadConfig(a.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", a.ConfigFile, err)
	}
	log.Printf("Loaded config from %s", a.ConfigFile)
	a.Config = config
	return config, nil
}

func (a *App) requireInput() error {
	if a.Input == "" {
		return fmt.Errorf("--input is required")
	}
	return nil
}

func (a *App) loadInputPlan() (*plan.FloorPlan, error) {
	if err := a.requireInput(); err != nil {
		return nil, err
	}
	p, err := plan.ParsePlanFile(a.Input)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// documentID returns the --doc-id flag or the input file name without
// its extension.
func (a *App) documentID() string {
	if a.DocumentID != "" {
		return a.DocumentID
	}
	base := filepath.Base(a.Input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// writeOutput writes data to --output, or to Out when no file is set
func (a *App) writeOutput(data []byte) error {
	if a.OutputFile == "" {
		_, err := a.Out.Write(data)
		return err
	}
	if err := os.WriteFile(a.OutputFile, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", a.OutputFile, err)
	}
	log.Printf("Created: %s", a.OutputFile)
	return nil
}

func (a *App) writeJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return a.writeOutput(append(data, '\n'))
}

// RunProcess runs the full pipeline on one drawing or capture
func (a *App) RunProcess() error {
	if err := a.requireInput(); err != nil {
		return err
	}
	config, err := a.loadConfig()
	if err != nil {
		return err
	}

	doc, err := a.buildDocument()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline := plan.NewPipeline(config)
	if a.Publish {
		client := a.NewMQTTClient(config.MQTT)
		if client == nil {
			return fmt.Errorf("--publish needs an MQTT broker (config mqtt.broker or MQTT_BROKER)")
		}
		if err := plan.ConnectMQTT(ctx, client); err != nil {
			return err
		}
		defer client.Disconnect(250)
		pipeline.Publisher = plan.NewPublisherFromConfig(client, config.MQTT)
	}

	res, err := pipeline.Process(ctx, doc)
	if err != nil {
		return err
	}
	log.Printf("Document %s: method=%s overall=%.2f fingerprint=%s",
		res.DocumentID, res.Method, res.Quality.Overall, res.Fingerprint)
	for _, w := range res.Quality.Warnings {
		log.Printf("Warning: %s", w)
	}
	return a.writeJSON(res)
}

// buildDocument reads --input as a capture when it is JSON and as a
// drawing otherwise.
func (a *App) buildDocument() (plan.Document, error) {
	doc := plan.Document{
		ID:          a.documentID(),
		KnownArea:   a.KnownArea,
		Page:        a.Page,
		ProjectID:   a.ProjectID,
		ProjectName: a.ProjectName,
	}

	ext := strings.ToLower(filepath.Ext(a.Input))
	if ext == ".json" {
		capture, err := plan.ParseCaptureFile(a.Input)
		if err != nil {
			return doc, err
		}
		doc.Capture = capture
		return doc, nil
	}

	content, err := os.ReadFile(a.Input)
	if err != nil {
		return doc, fmt.Errorf("reading document: %w", err)
	}
	doc.Content = content
	doc.MimeType = mime.TypeByExtension(ext)
	if ext == ".pdf" {
		doc.MimeType = plan.MimePDF
	}
	if doc.MimeType == "" {
		doc.MimeType = "application/octet-stream"
	}
	return doc, nil
}

// RunFuse merges a semantic and a geometric candidate file
func (a *App) RunFuse() error {
	if a.Semantic == "" && a.Geometric == "" {
		return fmt.Errorf("--fuse needs --semantic, --geometric or both")
	}
	config, err := a.loadConfig()
	if err != nil {
		return err
	}

	var semantic, geometric *plan.FloorPlan
	if a.Semantic != "" {
		if semantic, err = plan.ParsePlanFile(a.Semantic); err != nil {
			return err
		}
	}
	if a.Geometric != "" {
		if geometric, err = plan.ParsePlanFile(a.Geometric); err != nil {
			return err
		}
	}

	res, err := plan.Fuse(semantic, geometric, config.Fusion)
	if err != nil {
		return err
	}
	log.Printf("Fused: rooms=%s walls=%s doors=%s duplicates dropped=%d",
		res.Sources.Rooms, res.Sources.Walls, res.Sources.Doors, res.Stats.DuplicatesDropped)
	return a.writeJSON(res)
}

// RunScore prints the quality report of a plan
func (a *App) RunScore() error {
	p, err := a.loadInputPlan()
	if err != nil {
		return err
	}
	config, err := a.loadConfig()
	if err != nil {
		return err
	}
	return a.writeJSON(plan.EvaluateQuality(p, config.Quality))
}

// RunFingerprint prints the structural fingerprint of a plan
func (a *App) RunFingerprint() error {
	p, err := a.loadInputPlan()
	if err != nil {
		return err
	}
	return a.writeOutput([]byte(plan.Fingerprint(p) + "\n"))
}

// SimilarReport is the output of --similar
type SimilarReport struct {
	Fingerprint string              `json:"fingerprint"`
	Duplicate   bool                `json:"duplicate"`
	Matches     []plan.SimilarMatch `json:"matches"`
}

// RunSimilar compares a plan against every plan file in a directory
func (a *App) RunSimilar() error {
	if a.LibraryDir == "" {
		return fmt.Errorf("--similar needs --library")
	}
	target, err := a.loadInputPlan()
	if err != nil {
		return err
	}

	files, err := filepath.Glob(filepath.Join(a.LibraryDir, "*.json"))
	if err != nil {
		return fmt.Errorf("listing %s: %w", a.LibraryDir, err)
	}

	var entries []plan.LibraryEntry
	var fingerprints []string
	inputAbs, _ := filepath.Abs(a.Input)
	for _, file := range files {
		if abs, _ := filepath.Abs(file); abs == inputAbs {
			continue
		}
		p, err := plan.ParsePlanFile(file)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", file, err)
			continue
		}
		base := filepath.Base(file)
		entries = append(entries, plan.LibraryEntry{ID: strings.TrimSuffix(base, filepath.Ext(base)), FloorPlan: p})
		fingerprints = append(fingerprints, plan.Fingerprint(p))
	}
	log.Printf("Compared against %d plan(s) in %s", len(entries), a.LibraryDir)

	fp := plan.Fingerprint(target)
	report := SimilarReport{
		Fingerprint: fp,
		Duplicate:   plan.IsLikelyDuplicate(fp, fingerprints),
		Matches:     plan.FindSimilar(target, entries, a.Threshold),
	}
	if report.Matches == nil {
		report.Matches = []plan.SimilarMatch{}
	}
	return a.writeJSON(report)
}

// RunCapture normalizes a 3D room capture
func (a *App) RunCapture() error {
	if err := a.requireInput(); err != nil {
		return err
	}
	capture, err := plan.ParseCaptureFile(a.Input)
	if err != nil {
		return err
	}
	res, err := plan.NormalizeCapture(capture)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		log.Printf("Warning: %s", w)
	}
	return a.writeJSON(res)
}

// RunMatch matches the rooms of a plan against the template library.
// The plan's own total area is used when --known-area is not given.
func (a *App) RunMatch() error {
	p, err := a.loadInputPlan()
	if err != nil {
		return err
	}
	config, err := a.loadConfig()
	if err != nil {
		return err
	}

	area := a.KnownArea
	if area <= 0 {
		area = p.TotalArea
	}
	matcher := plan.NewMatcher(plan.NewLibraryFromConfig(config.Templates), config.Templates.Threshold)
	res := matcher.Match(p.Rooms, area)
	if res.Matched {
		log.Printf("Matched template %s (score %.2f)", *res.TemplateID, res.Score)
	} else {
		log.Printf("No template matched (best score %.2f)", res.Score)
	}
	return a.writeJSON(res)
}

// RunAdapt converts a plan into the millimeter quantity model
func (a *App) RunAdapt() error {
	p, err := a.loadInputPlan()
	if err != nil {
		return err
	}
	id := a.ProjectID
	if id == "" {
		id = a.documentID()
	}
	return a.writeJSON(plan.Adapt(p, id, a.ProjectName))
}

// RunRender writes an SVG or PNG preview of a plan
func (a *App) RunRender() error {
	if a.OutputFile == "" {
		return fmt.Errorf("--render needs --output")
	}
	p, err := a.loadInputPlan()
	if err != nil {
		return err
	}

	format := strings.ToLower(a.Format)
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(a.OutputFile)), ".")
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("invalid format: %s (must be svg or png)", format)
	}

	outFile, err := os.Create(a.OutputFile)
	if err != nil {
		return fmt.Errorf("creating output file %s: %w", a.OutputFile, err)
	}
	defer func() {
		if err := outFile.Close(); err != nil {
			log.Printf("Warning: error closing output file %s: %v", a.OutputFile, err)
		}
	}()

	renderer := plan.NewPlanRenderer(p)
	if format == "svg" {
		err = renderer.RenderToSVG(outFile)
	} else {
		err = renderer.RenderToPNG(outFile)
	}
	if err != nil {
		return fmt.Errorf("rendering %s: %w", format, err)
	}
	log.Printf("Created %s: %s", strings.ToUpper(format), a.OutputFile)
	return nil
}

// RunGeoJSON exports a plan as a GeoJSON FeatureCollection
func (a *App) RunGeoJSON() error {
	p, err := a.loadInputPlan()
	if err != nil {
		return err
	}
	data, err := plan.MarshalGeoJSON(p)
	if err != nil {
		return err
	}
	return a.writeOutput(append(data, '\n'))
}
