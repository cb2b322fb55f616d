package integrator

import (
	"math"

	"github.com/milkru/go-tracer/pkg/core"
	"github.com/milkru/go-tracer/pkg/scene"
)

// ShadowAcneEpsilon is the minimum hit distance accepted for a bounce,
// so a ray leaving a surface does not immediately re-hit it.
const ShadowAcneEpsilon = 0.001

// PathTracingIntegrator implements unidirectional path tracing with pure
// material sampling and a background gradient as the only light source.
// It is stateless; the bounce limit comes from the scene being rendered.
type PathTracingIntegrator struct{}

// NewPathTracingIntegrator creates a new path tracing integrator
func NewPathTracingIntegrator() *PathTracingIntegrator {
	return &PathTracingIntegrator{}
}

// RayColor computes the color for a single ray, following at most
// scene.SamplingConfig.MaxDepth bounces
func (pt *PathTracingIntegrator) RayColor(ray core.Ray, scene *scene.Scene, sampler core.Sampler) core.Vec3 {
	return pt.Color(ray, scene, sampler, scene.SamplingConfig.MaxDepth)
}

// Color returns the radiance along ray, following at most depth bounces
func (pt *PathTracingIntegrator) Color(ray core.Ray, scene *scene.Scene, sampler core.Sampler, depth int) core.Vec3 {
	// If we've exceeded the ray bounce limit, no more light is gathered
	if depth <= 0 {
		return core.Vec3{X: 0, Y: 0, Z: 0}
	}

	hit, isHit := scene.Shapes.Hit(ray, ShadowAcneEpsilon, math.Inf(1))
	if !isHit {
		return BackgroundGradient(ray, scene.TopColor, scene.BottomColor)
	}

	scatter, didScatter := hit.Material.Scatter(ray, *hit, sampler)
	if !didScatter {
		return core.Vec3{X: 0, Y: 0, Z: 0} // Material absorbed the ray
	}

	return scatter.Attenuation.MultiplyVec(
		pt.Color(scatter.Scattered, scene, sampler, depth-1))
}

// BackgroundGradient returns a gradient color based on ray direction
func BackgroundGradient(r core.Ray, topColor, bottomColor core.Vec3) core.Vec3 {
	// Normalize the ray direction to get consistent results
	unitDirection := r.Direction.Normalize()

	// Use the y-component to create a gradient (map from -1,1 to 0,1)
	t := 0.5 * (unitDirection.Y + 1.0)

	// Linear interpolation: (1-t)*bottom + t*top
	return bottomColor.Multiply(1.0 - t).Add(topColor.Multiply(t))
}
