// Command cutout cuts a polygon out of an NG image and pastes it onto an OK
// image without the GUI.
//
// Usage:
//
//	cutout -source ng.png -target ok.png -poly "10,10 90,10 90,90 10,90" \
//	    -at 120,80 -at 300,200 -scale 1.5 -rotate 30 -o out.png
package main

import (
	"flag"
	"fmt"
	"os"

	"defect-synth/internal/app"
	"defect-synth/internal/codec"
	"defect-synth/internal/config"
	"defect-synth/internal/cvbridge"
)

func main() {
	source := flag.String("source", "", "NG image the polygon is cut from")
	target := flag.String("target", "", "OK image the cut-out is pasted onto")
	poly := flag.String("poly", "", `Polygon vertices in source pixels, "x,y x,y x,y ..."`)
	var at pointList
	flag.Var(&at, "at", "Centre of a pasted copy in target pixels (repeatable, default: image centre)")
	scale := flag.Float64("scale", 1, "Scale factor applied to every copy")
	rotate := flag.Float64("rotate", 0, "Clockwise rotation in degrees applied to every copy")
	output := flag.String("o", "", "Output image (.png, .jpg, .bmp, .tif)")
	size := flag.String("size", "", "Resize the result to WxH before writing")
	configPath := flag.String("config", config.DefaultPath(), "Path to config.toml")
	flag.Parse()

	if *source == "" || *target == "" || *poly == "" || *output == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -source <ng> -target <ok> -poly \"x,y x,y x,y\" -o <out> [-at x,y]... [-scale s] [-rotate deg] [-size WxH]\n", os.Args[0])
		os.Exit(1)
	}

	j := job{
		source:   *source,
		target:   *target,
		poly:     *poly,
		at:       at,
		scale:    *scale,
		rotate:   *rotate,
		output:   *output,
		sizeSpec: *size,
	}
	if err := run(*configPath, j); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *output)
}

// job is one cut-and-paste request.
type job struct {
	source, target string
	poly           string
	at             pointList
	scale, rotate  float64
	output         string
	sizeSpec       string // "WxH" or empty
}

func run(configPath string, j job) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}
	opts := []app.Option{app.WithConfig(cfg)}
	if cfg.Engine == config.EngineOpenCV {
		opts = append(opts, cvbridge.StateOptions()...)
	}
	state := app.NewState(opts...)

	vertices, err := parsePolygon(j.poly)
	if err != nil {
		return err
	}
	width, height, err := parseSize(j.sizeSpec)
	if err != nil {
		return err
	}
	if err := state.LoadSourceFile(j.source); err != nil {
		return err
	}
	if err := state.LoadTargetFile(j.target); err != nil {
		return err
	}
	src := state.SourceLayer()
	for _, v := range vertices {
		if !state.AddSourceVertex(v) {
			return fmt.Errorf("vertex %g,%g is outside the %dx%d source", v.X, v.Y, src.Width(), src.Height())
		}
	}

	first, err := state.FinalizePolygon()
	if err != nil {
		return err
	}
	if err := adjust(state, j.scale, j.rotate); err != nil {
		return err
	}
	fmt.Printf("Cut %dx%d region %s\n", int(first.Size().Width), int(first.Size().Height), first.ID())

	for i, p := range j.at {
		if i == 0 {
			if err := state.MoveActive(p); err != nil {
				return err
			}
			continue
		}
		if _, err := state.Place(first.Seed(), p); err != nil {
			return err
		}
		if err := adjust(state, j.scale, j.rotate); err != nil {
			return err
		}
	}

	if width == 0 {
		return state.ExportFile(j.output)
	}
	return exportResized(state, j.output, width, height)
}

// exportResized renders the result, scales it to width x height and writes
// it in the format named by the output extension.
func exportResized(state *app.State, output string, width, height int) error {
	format := codec.FormatFromPath(output)
	if format == codec.FormatUnknown {
		return fmt.Errorf("%w: %s", codec.ErrUnsupportedFormat, output)
	}
	if len(state.Regions()) == 0 {
		return app.ErrEmptyComposite
	}
	out, err := state.Render()
	if err != nil {
		return err
	}
	out, err = out.Resize(width, height)
	if err != nil {
		return err
	}
	data, err := codec.Encode(out, format, codec.Options{JPEGQuality: state.Config().JPEGQuality})
	if err != nil {
		return err
	}
	return os.WriteFile(output, data, 0o644)
}

// adjust applies the requested scale and rotation to the active region.
func adjust(state *app.State, scale, rotate float64) error {
	if scale != 1 {
		if err := state.ScaleActive(scale); err != nil {
			return fmt.Errorf("scale %g: %w", scale, err)
		}
	}
	if rotate != 0 {
		if err := state.NudgeRotation(rotate); err != nil {
			return err
		}
	}
	return nil
}
