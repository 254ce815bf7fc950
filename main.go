package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the parsed command line
type AppOptions struct {
	ConfigFile string
	Input      string
	Semantic   string
	Geometric  string
	LibraryDir string
	OutputFile string
	Format     string

	KnownArea   float64
	Page        int
	Threshold   float64
	DocumentID  string
	ProjectID   string
	ProjectName string

	Process     bool
	Fuse        bool
	Score       bool
	Fingerprint bool
	Similar     bool
	Capture     bool
	Match       bool
	Adapt       bool
	Render      bool
	GeoJSON     bool
	Publish     bool
}

// Application is the set of CLI modes
type Application interface {
	ApplyOptions(opts AppOptions)
	RunProcess() error
	RunFuse() error
	RunScore() error
	RunFingerprint() error
	RunSimilar() error
	RunCapture() error
	RunMatch() error
	RunAdapt() error
	RunRender() error
	RunGeoJSON() error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("Error: %v", err)
	}
}

// run parses args and dispatches to the first selected mode
func run(args []string, out io.Writer, app Application) error {
	fs := flag.NewFlagSet("planfuse", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file")
	fs.StringVar(&opts.Input, "input", "", "Input file: drawing, capture JSON or FloorPlan JSON depending on mode")
	fs.StringVar(&opts.Semantic, "semantic", "", "Semantic candidate FloorPlan JSON for --fuse")
	fs.StringVar(&opts.Geometric, "geometric", "", "Geometric candidate FloorPlan JSON for --fuse")
	fs.StringVar(&opts.LibraryDir, "library", "", "Directory of FloorPlan JSON files for --similar")
	fs.StringVar(&opts.OutputFile, "output", "", "Output file (default stdout; required for --render)")
	fs.StringVar(&opts.Format, "format", "", "Render format: svg or png (default from --output extension)")
	fs.Float64Var(&opts.KnownArea, "known-area", 0, "Known total area in m²")
	fs.IntVar(&opts.Page, "page", 0, "PDF page for vector extraction (default from config)")
	fs.Float64Var(&opts.Threshold, "threshold", 0, "Similarity threshold for --similar (default 0.85)")
	fs.StringVar(&opts.DocumentID, "doc-id", "", "Document id (default input file name)")
	fs.StringVar(&opts.ProjectID, "project", "", "Project id; enables the quantity model in --process")
	fs.StringVar(&opts.ProjectName, "project-name", "", "Project display name")

	fs.BoolVar(&opts.Process, "process", false, "Run the full pipeline on --input")
	fs.BoolVar(&opts.Fuse, "fuse", false, "Fuse --semantic and --geometric candidates")
	fs.BoolVar(&opts.Score, "score", false, "Score the FloorPlan in --input")
	fs.BoolVar(&opts.Fingerprint, "fingerprint", false, "Print the structural fingerprint of --input")
	fs.BoolVar(&opts.Similar, "similar", false, "Find plans in --library similar to --input")
	fs.BoolVar(&opts.Capture, "capture", false, "Normalize the 3D capture in --input")
	fs.BoolVar(&opts.Match, "match", false, "Match the rooms of --input against the template library")
	fs.BoolVar(&opts.Adapt, "adapt", false, "Convert --input into the millimeter quantity model")
	fs.BoolVar(&opts.Render, "render", false, "Render --input as SVG or PNG to --output")
	fs.BoolVar(&opts.GeoJSON, "geojson", false, "Export --input as GeoJSON")
	fs.BoolVar(&opts.Publish, "publish", false, "Publish --process results over MQTT")

	if err := fs.Parse(args); err != nil {
		return err
	}
	app.ApplyOptions(opts)

	switch {
	case opts.Process:
		return app.RunProcess()
	case opts.Fuse:
		return app.RunFuse()
	case opts.Score:
		return app.RunScore()
	case opts.Fingerprint:
		return app.RunFingerprint()
	case opts.Similar:
		return app.RunSimilar()
	case opts.Capture:
		return app.RunCapture()
	case opts.Match:
		return app.RunMatch()
	case opts.Adapt:
		return app.RunAdapt()
	case opts.Render:
		return app.RunRender()
	case opts.GeoJSON:
		return app.RunGeoJSON()
	}

	_, _ = fmt.Fprintf(out, "planfuse version: %s\n", Version)
	_, _ = fmt.Fprintln(out, "Use --process --input=FILE to run the full pipeline (add --publish for MQTT)")
	_, _ = fmt.Fprintln(out, "Use --fuse --semantic=FILE --geometric=FILE to fuse two candidates")
	_, _ = fmt.Fprintln(out, "Use --score, --fingerprint, --match, --adapt or --geojson with --input=PLAN")
	_, _ = fmt.Fprintln(out, "Use --similar --input=PLAN --library=DIR to find near-duplicates")
	_, _ = fmt.Fprintln(out, "Use --capture --input=CAPTURE to normalize a 3D room capture")
	_, _ = fmt.Fprintln(out, "Use --render --input=PLAN --output=FILE.svg|png for a preview")
	_, _ = fmt.Fprintln(out, "\nConfiguration:")
	_, _ = fmt.Fprintln(out, "  config.yaml - pipeline, vision, vector, template and MQTT settings")
	return nil
}
