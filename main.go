package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/milkru/go-tracer/pkg/imageio"
	"github.com/milkru/go-tracer/pkg/integrator"
	"github.com/milkru/go-tracer/pkg/renderer"
	"github.com/milkru/go-tracer/pkg/scene"
)

// options holds the parsed command line
type options struct {
	sceneType string
	width     int
	spp       int
	depth     int
	seed      int64
	workers   int
	format    string
	output    string
	scenesDir string
	list      bool
	help      bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("go-tracer", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.sceneType, "scene", "random", "Scene: 'random', 'default', 'single' or a path to a .json scene file")
	fs.IntVar(&opts.width, "width", 0, "Image width in pixels (0 = scene default; height follows the camera aspect ratio)")
	fs.IntVar(&opts.spp, "spp", 0, "Samples per pixel (0 = scene default)")
	fs.IntVar(&opts.depth, "depth", -1, "Maximum ray bounce depth (-1 = scene default)")
	fs.Int64Var(&opts.seed, "seed", 1, "Random seed; the same seed renders the same image")
	fs.IntVar(&opts.workers, "workers", 0, "Number of parallel workers (0 = number of CPUs)")
	fs.StringVar(&opts.format, "format", "ppm", "Output format: 'ppm' (plain P3) or 'png'")
	fs.StringVar(&opts.output, "out", "", "Output file (default: standard output)")
	fs.StringVar(&opts.scenesDir, "scenes", "scenes", "Directory searched for .json scenes by -list")
	fs.BoolVar(&opts.list, "list", false, "List available scenes and exit")
	fs.BoolVar(&opts.help, "help", false, "Show help information")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.help {
		fmt.Fprintln(stderr, "Path Tracer")
		fmt.Fprintln(stderr, "Usage: go-tracer [options] > image.ppm")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}
	return opts, nil
}

// createScene creates a scene by name and applies the command line overrides
func createScene(opts options) (*scene.Scene, error) {
	s, err := scene.Create(opts.sceneType, opts.seed)
	if err != nil {
		return nil, err
	}

	if opts.width > 0 {
		s.SetImageWidth(opts.width)
	}
	if opts.spp > 0 {
		s.SamplingConfig.SamplesPerPixel = opts.spp
	}
	if opts.depth >= 0 {
		s.SamplingConfig.MaxDepth = opts.depth
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func listScenes(w io.Writer, dir string) error {
	fmt.Fprintln(w, "Built-in scenes:")
	for _, info := range scene.ListBuiltinScenes() {
		fmt.Fprintf(w, "  %-10s %s\n", info.ID, info.Description)
	}

	files, err := scene.ListJSONScenes(dir)
	if err != nil {
		return err
	}
	if len(files) > 0 {
		fmt.Fprintf(w, "Scene files in %s:\n", dir)
		for _, info := range files {
			fmt.Fprintf(w, "  %s\n", info.FilePath)
		}
	}
	return nil
}

// run renders according to args. Image data goes to stdout unless -out is set;
// progress and diagnostics go to stderr. Cancelling ctx aborts the render.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.help {
		return nil
	}
	if opts.list {
		return listScenes(stdout, opts.scenesDir)
	}

	format, err := imageio.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	selectedScene, err := createScene(opts)
	if err != nil {
		return fmt.Errorf("failed to create scene: %w", err)
	}

	logger := renderer.NewWriterLogger(stderr)
	cfg := selectedScene.SamplingConfig
	logger.Printf("Scene %q: %d spheres, %dx%d, %d spp, depth %d\n",
		opts.sceneType, selectedScene.GetPrimitiveCount(), cfg.Width, cfg.Height, cfg.SamplesPerPixel, cfg.MaxDepth)

	out := stdout
	if opts.output != "" {
		file, createErr := os.Create(opts.output)
		if createErr != nil {
			return fmt.Errorf("failed to create output file: %w", createErr)
		}
		defer func() {
			err = errors.Join(err, file.Close())
		}()
		out = file
	}

	writer, err := imageio.NewWriter(format, out, cfg.Width, cfg.Height)
	if err != nil {
		return err
	}

	raytracer := renderer.NewRaytracer(
		selectedScene,
		integrator.NewPathTracingIntegrator(),
		renderer.RenderConfig{NumWorkers: opts.workers, Seed: opts.seed},
		logger,
	)
	if _, err := raytracer.Stream(ctx, writer); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return err
	}

	if opts.output != "" {
		logger.Printf("Render saved as %s\n", opts.output)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
