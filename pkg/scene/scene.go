package scene

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/milkru/go-tracer/pkg/core"
	"github.com/milkru/go-tracer/pkg/geometry"
)

// ErrInvalidConfig is returned when a scene cannot be rendered as configured
var ErrInvalidConfig = errors.New("invalid scene configuration")

var (
	// DefaultTopColor is the background color seen straight up
	DefaultTopColor = core.NewVec3(1.0, 1.0, 1.0)
	// DefaultBottomColor is the warm horizon color seen straight down
	DefaultBottomColor = core.NewVec3(251.0/256.0, 193.0/256.0, 155.0/256.0)
)

// Scene contains all the elements needed for rendering.
// After setup a Scene is read-only and shared by all render goroutines.
type Scene struct {
	Camera         *geometry.Camera
	Shapes         geometry.HittableList // Objects in the scene
	TopColor       core.Vec3             // Background color straight up
	BottomColor    core.Vec3             // Background color straight down
	SamplingConfig SamplingConfig
	CameraConfig   geometry.CameraConfig
}

// SamplingConfig contains rendering configuration
type SamplingConfig struct {
	Width           int // Image width
	Height          int // Image height
	SamplesPerPixel int // Number of rays per pixel
	MaxDepth        int // Maximum ray bounce depth (0 renders black)
}

// Validate rejects configurations the renderer cannot run
func (c SamplingConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: image size must be positive, got %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.SamplesPerPixel <= 0 {
		return fmt.Errorf("%w: samples per pixel must be positive, got %d", ErrInvalidConfig, c.SamplesPerPixel)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("%w: max depth must not be negative, got %d", ErrInvalidConfig, c.MaxDepth)
	}
	return nil
}

// New builds a scene around the given camera configuration and shapes.
// The image size is derived from the camera's width and aspect ratio.
func New(cameraConfig geometry.CameraConfig, samplesPerPixel, maxDepth int, shapes ...geometry.Shape) *Scene {
	return &Scene{
		Camera:      geometry.NewCamera(cameraConfig),
		Shapes:      geometry.NewHittableList(shapes...),
		TopColor:    DefaultTopColor,
		BottomColor: DefaultBottomColor,
		SamplingConfig: SamplingConfig{
			Width:           cameraConfig.Width,
			Height:          cameraConfig.ImageHeight(),
			SamplesPerPixel: samplesPerPixel,
			MaxDepth:        maxDepth,
		},
		CameraConfig: cameraConfig,
	}
}

// Validate checks the scene is complete before any ray is traced.
// A scene without shapes is legal and renders the background only.
func (s *Scene) Validate() error {
	if err := s.CameraConfig.Validate(); err != nil {
		return err
	}
	if err := s.SamplingConfig.Validate(); err != nil {
		return err
	}
	if s.Camera == nil {
		return fmt.Errorf("%w: scene has no camera", ErrInvalidConfig)
	}
	return nil
}

// SetImageWidth changes the output width, keeping the camera's aspect ratio
func (s *Scene) SetImageWidth(width int) {
	s.CameraConfig.Width = width
	s.SamplingConfig.Width = width
	s.SamplingConfig.Height = s.CameraConfig.ImageHeight()
}

// GetPrimitiveCount returns the total number of primitive objects in the scene
func (s *Scene) GetPrimitiveCount() int {
	return len(s.Shapes)
}

// ColorFromRGBA converts an 8-bit color (such as a colornames entry) to a [0,1] Vec3
func ColorFromRGBA(c color.RGBA) core.Vec3 {
	return core.NewVec3(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0)
}
