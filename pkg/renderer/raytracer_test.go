package renderer

import (
	"context"
	"errors"
	"image/color"
	"math"
	"math/rand"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/milkru/go-tracer/pkg/core"
	"github.com/milkru/go-tracer/pkg/geometry"
	"github.com/milkru/go-tracer/pkg/integrator"
	"github.com/milkru/go-tracer/pkg/scene"
)

// newTestRaytracer wires a scene to the path tracing integrator
func newTestRaytracer(s *scene.Scene, config RenderConfig) *Raytracer {
	return NewRaytracer(s, integrator.NewPathTracingIntegrator(), config, NopLogger{})
}

// createSkyScene creates an empty scene seen through a wide pinhole camera
func createSkyScene(width int) *scene.Scene {
	cameraConfig := geometry.CameraConfig{
		Center:      core.NewVec3(0, 0, 0),
		LookAt:      core.NewVec3(0, 0, -1),
		Up:          core.NewVec3(0, 1, 0),
		Width:       width,
		AspectRatio: 1.0,
		VFov:        90.0,
	}
	return scene.New(cameraConfig, 4, 5)
}

// recordingWriter keeps every scanline it receives
type recordingWriter struct {
	rows   [][]color.RGBA
	failAt int
	err    error
}

func (w *recordingWriter) WriteScanline(pixels []color.RGBA) error {
	if w.err != nil && len(w.rows) == w.failAt {
		return w.err
	}
	w.rows = append(w.rows, pixels)
	return nil
}

func TestToColor(t *testing.T) {
	tests := []struct {
		name     string
		linear   core.Vec3
		expected color.RGBA
	}{
		{"black", core.NewVec3(0, 0, 0), color.RGBA{0, 0, 0, 255}},
		{"white saturates below 256", core.NewVec3(1, 1, 1), color.RGBA{255, 255, 255, 255}},
		{"gamma 2", core.NewVec3(0.25, 0.5, 0.01), color.RGBA{128, 181, 25, 255}},
		{"overbright clamps", core.NewVec3(4, 100, math.Inf(1)), color.RGBA{255, 255, 255, 255}},
		{"negative clamps to zero", core.NewVec3(-0.5, 0.25, 0), color.RGBA{0, 128, 0, 255}},
		{"NaN maps to zero", core.NewVec3(math.NaN(), 0.25, math.NaN()), color.RGBA{0, 128, 0, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToColor(tt.linear); got != tt.expected {
				t.Errorf("ToColor(%v) = %v, expected %v", tt.linear, got, tt.expected)
			}
		})
	}
}

func TestPixelStats(t *testing.T) {
	var ps PixelStats
	if got := ps.GetColor(); got != (core.Vec3{}) {
		t.Errorf("Empty pixel should be black, got %v", got)
	}

	ps.AddSample(core.NewVec3(1, 0, 0))
	ps.AddSample(core.NewVec3(0, 1, 0))
	if got, want := ps.GetColor(), core.NewVec3(0.5, 0.5, 0); got != want {
		t.Errorf("Expected average %v, got %v", want, got)
	}
}

func TestRenderScanlineTopRowLooksUp(t *testing.T) {
	s := createSkyScene(8)
	rt := newTestRaytracer(s, RenderConfig{})
	sampler := core.NewSeededSampler(1)

	top := rt.RenderScanline(0, sampler)
	bottom := rt.RenderScanline(rt.Height()-1, sampler)

	if len(top) != 8 || len(bottom) != 8 {
		t.Fatalf("Expected 8 pixels per row, got %d and %d", len(top), len(bottom))
	}
	// The top is white and the bottom fades toward the warm horizon color
	if top[4].B <= bottom[4].B {
		t.Errorf("Top row should be bluer than bottom row: top %v, bottom %v", top[4], bottom[4])
	}
	if top[4].R < bottom[4].R {
		t.Errorf("Top row should not be darker in red: top %v, bottom %v", top[4], bottom[4])
	}
}

func TestRenderZeroDepthIsBlack(t *testing.T) {
	s := scene.NewSingleSphereScene(core.NewVec3(0.5, 0.5, 0.5), geometry.CameraConfig{Width: 12})
	s.SamplingConfig.MaxDepth = 0
	rt := newTestRaytracer(s, RenderConfig{NumWorkers: 2, Seed: 3})

	img, _, err := rt.RenderImage(context.Background())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	for y := 0; y < rt.Height(); y++ {
		for x := 0; x < rt.Width(); x++ {
			if got := img.RGBAAt(x, y); got != (color.RGBA{0, 0, 0, 255}) {
				t.Fatalf("Pixel (%d,%d) should be black at depth 0, got %v", x, y, got)
			}
		}
	}
}

func TestStreamPreservesOrder(t *testing.T) {
	s := scene.NewSingleSphereScene(core.NewVec3(0.7, 0.3, 0.2), geometry.CameraConfig{Width: 10})
	s.SamplingConfig.SamplesPerPixel = 2
	rt := newTestRaytracer(s, RenderConfig{NumWorkers: 4, Seed: 11})

	w := &recordingWriter{}
	stats, err := rt.Stream(context.Background(), w)
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if len(w.rows) != rt.Height() {
		t.Fatalf("Expected %d scanlines, got %d", rt.Height(), len(w.rows))
	}
	// Each delivered row must equal that row rendered on its own
	for row := range w.rows {
		expected := rt.RenderScanline(row, core.NewSeededSampler(rt.scanlineSeed(row)))
		for x := range expected {
			if w.rows[row][x] != expected[x] {
				t.Fatalf("Row %d pixel %d: got %v, expected %v", row, x, w.rows[row][x], expected[x])
			}
		}
	}

	if stats.Scanlines != rt.Height() || stats.TotalPixels != rt.Width()*rt.Height() {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.TotalSamples != stats.TotalPixels*2 {
		t.Errorf("Expected %d samples, got %d", stats.TotalPixels*2, stats.TotalSamples)
	}
}

func TestStreamDeterministicAcrossWorkerCounts(t *testing.T) {
	render := func(workers int) []uint8 {
		s := scene.NewDefaultScene(geometry.CameraConfig{Width: 24})
		s.SamplingConfig.SamplesPerPixel = 2
		rt := newTestRaytracer(s, RenderConfig{NumWorkers: workers, Seed: 99})
		img, _, err := rt.RenderImage(context.Background())
		if err != nil {
			t.Fatalf("Render with %d workers failed: %v", workers, err)
		}
		return img.Pix
	}

	single := render(1)
	for _, workers := range []int{2, 5} {
		multi := render(workers)
		if len(multi) != len(single) {
			t.Fatalf("Image sizes differ: %d vs %d", len(single), len(multi))
		}
		for i := range single {
			if single[i] != multi[i] {
				t.Fatalf("Byte %d differs between 1 and %d workers", i, workers)
			}
		}
	}
}

func TestStreamWriterError(t *testing.T) {
	s := createSkyScene(6)
	rt := newTestRaytracer(s, RenderConfig{NumWorkers: 3})

	errDiskFull := errors.New("disk full")
	w := &recordingWriter{failAt: 2, err: errDiskFull}
	stats, err := rt.Stream(context.Background(), w)
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("Expected writer error to propagate, got %v", err)
	}
	if stats.Scanlines != 2 {
		t.Errorf("Expected 2 scanlines before the failure, got %d", stats.Scanlines)
	}
}

func TestStreamRejectsInvalidScene(t *testing.T) {
	s := createSkyScene(6)
	s.SamplingConfig.SamplesPerPixel = 0
	rt := newTestRaytracer(s, RenderConfig{})

	if _, err := rt.Stream(context.Background(), &recordingWriter{}); !errors.Is(err, scene.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

// expectedMatteColor is the mean color of a convex matte sphere under the
// gradient sky: every bounce escapes and the up/down halves average out.
func expectedMatteColor(s *scene.Scene, albedo core.Vec3) core.Vec3 {
	return albedo.MultiplyVec(s.TopColor.Add(s.BottomColor).Multiply(0.5))
}

func TestSamplePixelConvergesOnMatteSphere(t *testing.T) {
	albedo := core.NewVec3(0.5, 0.5, 0.5)
	s := scene.NewSingleSphereScene(albedo)
	s.SamplingConfig.SamplesPerPixel = 4000
	rt := newTestRaytracer(s, RenderConfig{})

	center := rt.SamplePixel(rt.Width()/2, rt.Height()/2, core.NewRandomSampler(rand.New(rand.NewSource(42))))
	expected := expectedMatteColor(s, albedo)

	const tolerance = 0.03
	if math.Abs(center.X-expected.X) > tolerance ||
		math.Abs(center.Y-expected.Y) > tolerance ||
		math.Abs(center.Z-expected.Z) > tolerance {
		t.Errorf("Center pixel %v did not converge to %v", center, expected)
	}
}

func TestSamplePixelMeanIndependentOfSampleCount(t *testing.T) {
	albedo := core.NewVec3(0.8, 0.6, 0.4)
	expected := expectedMatteColor(scene.NewSingleSphereScene(albedo), albedo)

	for _, spp := range []int{1, 2, 8} {
		s := scene.NewSingleSphereScene(albedo)
		s.SamplingConfig.SamplesPerPixel = spp
		rt := newTestRaytracer(s, RenderConfig{})

		// Same total sample budget for every spp
		runs := 4000 / spp
		var mean core.Vec3
		for seed := 0; seed < runs; seed++ {
			sampler := core.NewSeededSampler(int64(seed) + 1000*int64(spp))
			mean = mean.Add(rt.SamplePixel(rt.Width()/2, rt.Height()/2, sampler))
		}
		mean = mean.Multiply(1.0 / float64(runs))

		const tolerance = 0.03
		if math.Abs(mean.X-expected.X) > tolerance ||
			math.Abs(mean.Y-expected.Y) > tolerance ||
			math.Abs(mean.Z-expected.Z) > tolerance {
			t.Errorf("spp %d: mean %v differs from %v", spp, mean, expected)
		}
	}
}

func TestWorkerPool(t *testing.T) {
	s := createSkyScene(4)
	rt := newTestRaytracer(s, RenderConfig{})
	ctx := context.Background()

	pool := NewWorkerPool(rt, 0, rt.Height())
	if pool.GetNumWorkers() != runtime.NumCPU() {
		t.Errorf("Expected %d workers, got %d", runtime.NumCPU(), pool.GetNumWorkers())
	}

	pool.Start()
	for row := 0; row < rt.Height(); row++ {
		pool.SubmitTask(ScanlineTask{Row: row, Seed: int64(row)})
	}

	seen := make(map[int]bool)
	for i := 0; i < rt.Height(); i++ {
		result, err := pool.GetResult(ctx)
		if err != nil {
			t.Fatalf("GetResult failed: %v", err)
		}
		if seen[result.Row] {
			t.Errorf("Row %d delivered twice", result.Row)
		}
		seen[result.Row] = true
		if len(result.Pixels) != rt.Width() {
			t.Errorf("Row %d has %d pixels", result.Row, len(result.Pixels))
		}
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := pool.GetResult(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled while waiting, got %v", err)
	}

	pool.Stop()
	if _, err := pool.GetResult(ctx); !errors.Is(err, errPoolClosed) {
		t.Errorf("Expected errPoolClosed after Stop, got %v", err)
	}
}

// countingIntegrator counts primary rays and slows each one down
type countingIntegrator struct {
	inner integrator.Integrator
	delay time.Duration
	rays  atomic.Int64
}

func (c *countingIntegrator) RayColor(ray core.Ray, s *scene.Scene, sampler core.Sampler) core.Vec3 {
	c.rays.Add(1)
	time.Sleep(c.delay)
	return c.inner.RayColor(ray, s, sampler)
}

// cancellingWriter cancels the render after the first scanline
type cancellingWriter struct {
	cancel context.CancelFunc
	rows   int
}

func (w *cancellingWriter) WriteScanline([]color.RGBA) error {
	w.rows++
	w.cancel()
	return nil
}

func TestStreamCancellation(t *testing.T) {
	tests := []struct {
		name      string
		preCancel bool
		maxRows   int // upper bound on scanlines traced before Stream returns
	}{
		{"cancelled before start", true, 0},
		{"cancelled after first row", false, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createSkyScene(64)
			s.SamplingConfig.SamplesPerPixel = 1
			counter := &countingIntegrator{inner: integrator.NewPathTracingIntegrator(), delay: 200 * time.Microsecond}
			rt := NewRaytracer(s, counter, RenderConfig{NumWorkers: 2, Seed: 5}, NopLogger{})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.preCancel {
				cancel()
			}
			w := &cancellingWriter{cancel: cancel}

			stats, err := rt.Stream(ctx, w)
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("Expected context.Canceled, got %v", err)
			}
			if stats.Scanlines >= rt.Height() {
				t.Errorf("Expected a partial render, wrote %d of %d scanlines", stats.Scanlines, rt.Height())
			}

			// Stream has stopped the pool, so no worker is still tracing
			traced := int(counter.rays.Load()) / rt.Width()
			if traced > tt.maxRows {
				t.Errorf("Expected at most %d scanlines traced, got %d of %d", tt.maxRows, traced, rt.Height())
			}
			if after := counter.rays.Load(); after != int64(traced*rt.Width()) {
				t.Errorf("Expected whole scanlines only, got %d rays", after)
			}
		})
	}
}
