package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/milkru/go-tracer/pkg/core"
)

// ErrInvalidCamera is returned when a camera configuration cannot produce rays
var ErrInvalidCamera = errors.New("invalid camera configuration")

// CameraConfig contains all camera configuration parameters
type CameraConfig struct {
	Center        core.Vec3 // Camera position (look-from)
	LookAt        core.Vec3 // Point the camera is looking at
	Up            core.Vec3 // Up direction (usually (0,1,0))
	Width         int       // Image width in pixels
	AspectRatio   float64   // Width / height ratio
	VFov          float64   // Vertical field of view in degrees
	Aperture      float64   // Lens aperture diameter (0 = pinhole, no depth of field)
	FocusDistance float64   // Distance to focus plane (0 = distance to LookAt)
}

// ImageHeight returns the image height implied by Width and AspectRatio
func (c CameraConfig) ImageHeight() int {
	return int(float64(c.Width) / c.AspectRatio)
}

// Validate reports whether the configuration describes a usable camera
func (c CameraConfig) Validate() error {
	if c.Width <= 0 {
		return fmt.Errorf("%w: width must be positive, got %d", ErrInvalidCamera, c.Width)
	}
	if c.AspectRatio <= 0 || math.IsNaN(c.AspectRatio) || math.IsInf(c.AspectRatio, 0) {
		return fmt.Errorf("%w: aspect ratio must be positive, got %g", ErrInvalidCamera, c.AspectRatio)
	}
	if c.ImageHeight() <= 0 {
		return fmt.Errorf("%w: width %d and aspect ratio %g give an empty image", ErrInvalidCamera, c.Width, c.AspectRatio)
	}
	if c.VFov <= 0 || c.VFov >= 180 {
		return fmt.Errorf("%w: vertical fov must be in (0, 180), got %g", ErrInvalidCamera, c.VFov)
	}
	if c.Aperture < 0 {
		return fmt.Errorf("%w: aperture must not be negative, got %g", ErrInvalidCamera, c.Aperture)
	}
	if c.FocusDistance < 0 {
		return fmt.Errorf("%w: focus distance must not be negative, got %g", ErrInvalidCamera, c.FocusDistance)
	}

	viewDir := c.Center.Subtract(c.LookAt)
	if viewDir.NearZero() {
		return fmt.Errorf("%w: center and look-at coincide at %v", ErrInvalidCamera, c.Center)
	}
	if c.Up.Cross(viewDir).NearZero() {
		return fmt.Errorf("%w: up %v is parallel to the view direction", ErrInvalidCamera, c.Up)
	}
	return nil
}

// MergeCameraConfig returns base with every non-zero field of override applied.
// A zero field means "not set", so an override cannot select the values that
// coincide with zero: a pinhole camera (Aperture 0), automatic focus
// (FocusDistance 0) or a camera placed at the origin. Set those on the merged
// config instead.
func MergeCameraConfig(base, override CameraConfig) CameraConfig {
	result := base
	zero := core.Vec3{}

	if override.Center != zero {
		result.Center = override.Center
	}
	if override.LookAt != zero {
		result.LookAt = override.LookAt
	}
	if override.Up != zero {
		result.Up = override.Up
	}
	if override.Width != 0 {
		result.Width = override.Width
	}
	if override.AspectRatio != 0 {
		result.AspectRatio = override.AspectRatio
	}
	if override.VFov != 0 {
		result.VFov = override.VFov
	}
	if override.Aperture != 0 {
		result.Aperture = override.Aperture
	}
	if override.FocusDistance != 0 {
		result.FocusDistance = override.FocusDistance
	}
	return result
}

// Camera generates primary rays through a thin lens.
// It is immutable once built and safe to share between render goroutines.
type Camera struct {
	origin          core.Vec3
	lowerLeftCorner core.Vec3
	horizontal      core.Vec3
	vertical        core.Vec3
	u, v            core.Vec3 // Lens plane axes
	lensRadius      float64
}

// NewCamera creates a camera from the given configuration.
// The configuration is expected to have passed Validate.
func NewCamera(config CameraConfig) *Camera {
	theta := config.VFov * math.Pi / 180.0
	viewportHeight := 2.0 * math.Tan(theta/2)
	viewportWidth := config.AspectRatio * viewportHeight

	focusDistance := config.FocusDistance
	if focusDistance == 0 {
		focusDistance = config.Center.Subtract(config.LookAt).Length()
	}

	// w points from the look-at point back toward the camera
	w := config.Center.Subtract(config.LookAt).Normalize()
	u := config.Up.Cross(w).Normalize()
	v := w.Cross(u)

	horizontal := u.Multiply(focusDistance * viewportWidth)
	vertical := v.Multiply(focusDistance * viewportHeight)
	lowerLeftCorner := config.Center.
		Subtract(horizontal.Multiply(0.5)).
		Subtract(vertical.Multiply(0.5)).
		Subtract(w.Multiply(focusDistance))

	return &Camera{
		origin:          config.Center,
		lowerLeftCorner: lowerLeftCorner,
		horizontal:      horizontal,
		vertical:        vertical,
		u:               u,
		v:               v,
		lensRadius:      config.Aperture / 2,
	}
}

// GetRay generates a ray for image-plane coordinates (s, t) where 0 <= s,t <= 1,
// with (0, 0) at the lower-left corner.
func (c *Camera) GetRay(s, t float64, sampler core.Sampler) core.Ray {
	var offset core.Vec3
	if c.lensRadius > 0 {
		rd := core.RandomInUnitDisk(sampler).Multiply(c.lensRadius)
		offset = c.u.Multiply(rd.X).Add(c.v.Multiply(rd.Y))
	}

	origin := c.origin.Add(offset)
	direction := c.lowerLeftCorner.
		Add(c.horizontal.Multiply(s)).
		Add(c.vertical.Multiply(t)).
		Subtract(origin)

	return core.NewRay(origin, direction)
}
