package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/milkru/go-tracer/pkg/core"
	"github.com/milkru/go-tracer/pkg/integrator"
	"github.com/milkru/go-tracer/pkg/scene"
)

// errPoolClosed is reported when the worker pool stops before every scanline arrived
var errPoolClosed = errors.New("worker pool closed before all scanlines were rendered")

// RenderConfig contains configuration for parallel rendering
type RenderConfig struct {
	NumWorkers int   // Number of parallel workers (0 = use CPU count)
	Seed       int64 // Base seed; every scanline derives its own generator from it
}

// ScanlineWriter consumes finished scanlines in raster order, top row first
type ScanlineWriter interface {
	WriteScanline(pixels []color.RGBA) error
}

// Raytracer handles the rendering process
type Raytracer struct {
	scene        *scene.Scene
	integrator   integrator.Integrator
	width        int
	height       int
	config       scene.SamplingConfig
	renderConfig RenderConfig
	logger       core.Logger
}

// NewRaytracer creates a new raytracer for the given scene
func NewRaytracer(s *scene.Scene, integ integrator.Integrator, renderConfig RenderConfig, logger core.Logger) *Raytracer {
	if logger == nil {
		logger = NopLogger{}
	}
	return &Raytracer{
		scene:        s,
		integrator:   integ,
		width:        s.SamplingConfig.Width,
		height:       s.SamplingConfig.Height,
		config:       s.SamplingConfig,
		renderConfig: renderConfig,
		logger:       logger,
	}
}

// Width returns the output width in pixels
func (rt *Raytracer) Width() int { return rt.width }

// Height returns the output height in pixels
func (rt *Raytracer) Height() int { return rt.height }

// SamplePixel averages SamplesPerPixel radiance estimates for one pixel.
// x is the column; y is the row counted from the bottom of the image.
// The result is linear and unclamped.
func (rt *Raytracer) SamplePixel(x, y int, sampler core.Sampler) core.Vec3 {
	var ps PixelStats
	uDenom := float64(max(rt.width-1, 1))
	vDenom := float64(max(rt.height-1, 1))

	for ps.SampleCount < rt.config.SamplesPerPixel {
		u := (float64(x) + sampler.Get1D()) / uDenom
		v := (float64(y) + sampler.Get1D()) / vDenom
		ray := rt.scene.Camera.GetRay(u, v, sampler)
		ps.AddSample(rt.integrator.RayColor(ray, rt.scene, sampler))
	}

	return ps.GetColor()
}

// RenderScanline renders output row `row` (0 = top) into 8-bit pixels
func (rt *Raytracer) RenderScanline(row int, sampler core.Sampler) []color.RGBA {
	pixels := make([]color.RGBA, rt.width)
	y := rt.height - 1 - row
	for x := 0; x < rt.width; x++ {
		pixels[x] = ToColor(rt.SamplePixel(x, y, sampler))
	}
	return pixels
}

// scanlineSeed derives the generator seed of one row from the base seed
func (rt *Raytracer) scanlineSeed(row int) int64 {
	return rt.renderConfig.Seed ^ (int64(row+1) * 0x5851F42D4C957F2D)
}

// Stream renders every scanline in parallel and hands them to w in raster order.
// A row is written as soon as it and all rows above it are finished.
// Cancelling ctx stops the render: rows still queued are skipped and
// Stream returns ctx.Err().
func (rt *Raytracer) Stream(ctx context.Context, w ScanlineWriter) (RenderStats, error) {
	start := time.Now()

	if err := rt.scene.Validate(); err != nil {
		return RenderStats{}, fmt.Errorf("cannot render scene: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return RenderStats{}, err
	}

	pool := NewWorkerPool(rt, rt.renderConfig.NumWorkers, rt.height)
	pool.Start()
	defer pool.Stop()

	for row := 0; row < rt.height; row++ {
		pool.SubmitTask(ScanlineTask{Row: row, Seed: rt.scanlineSeed(row)})
	}

	stats := RenderStats{
		SamplesPerPixel: rt.config.SamplesPerPixel,
		NumWorkers:      pool.GetNumWorkers(),
	}

	g, ctx := errgroup.WithContext(ctx)
	ordered := make(chan ScanlineResult)

	// Producer: restore raster order from completion order
	g.Go(func() error {
		defer close(ordered)
		pending := make(map[int]ScanlineResult)
		next := 0
		for next < rt.height {
			result, err := pool.GetResult(ctx)
			if err != nil {
				return err
			}
			pending[result.Row] = result

			for {
				r, ready := pending[next]
				if !ready {
					break
				}
				delete(pending, next)
				select {
				case ordered <- r:
				case <-ctx.Done():
					return ctx.Err()
				}
				next++
			}
		}
		return nil
	})

	// Consumer: the writer only ever sees the next row in sequence
	g.Go(func() error {
		for r := range ordered {
			rt.logger.Printf("Remaining scanlines: %d\n", rt.height-r.Row)
			if err := w.WriteScanline(r.Pixels); err != nil {
				return fmt.Errorf("failed to write scanline %d: %w", r.Row, err)
			}
			stats.Scanlines++
			stats.TotalPixels += len(r.Pixels)
		}
		return nil
	})

	err := g.Wait()
	stats.TotalSamples = stats.TotalPixels * stats.SamplesPerPixel
	stats.Elapsed = time.Since(start)
	if err != nil {
		return stats, err
	}

	rt.logger.Printf("Rendered %dx%d, %d samples in %v using %d workers\n",
		rt.width, rt.height, stats.TotalSamples, stats.Elapsed, stats.NumWorkers)
	return stats, nil
}

// imageCollector is a ScanlineWriter that fills an in-memory image
type imageCollector struct {
	img *image.RGBA
	row int
}

func (c *imageCollector) WriteScanline(pixels []color.RGBA) error {
	for x, p := range pixels {
		c.img.SetRGBA(x, c.row, p)
	}
	c.row++
	return nil
}

// RenderImage renders the whole scene into an image
func (rt *Raytracer) RenderImage(ctx context.Context) (*image.RGBA, RenderStats, error) {
	collector := &imageCollector{img: image.NewRGBA(image.Rect(0, 0, rt.width, rt.height))}
	stats, err := rt.Stream(ctx, collector)
	if err != nil {
		return nil, stats, err
	}
	return collector.img, stats, nil
}

// ToColor gamma-corrects a linear color (gamma 2), clamps each channel to
// [0, 0.999] and quantises it to 8 bits by truncating 256*c.
// NaN or negative channels map to 0.
func ToColor(linear core.Vec3) color.RGBA {
	c := linear.GammaCorrect(2.0).Clamp(0.0, 0.999)
	return color.RGBA{
		R: quantize(c.X),
		G: quantize(c.Y),
		B: quantize(c.Z),
		A: 255,
	}
}

func quantize(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	return uint8(256.0 * v)
}
