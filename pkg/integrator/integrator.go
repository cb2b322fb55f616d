package integrator

import (
	"github.com/milkru/go-tracer/pkg/core"
	"github.com/milkru/go-tracer/pkg/scene"
)

// Integrator defines the interface for light transport algorithms
type Integrator interface {
	// RayColor computes the linear radiance carried back along a primary ray
	RayColor(ray core.Ray, scene *scene.Scene, sampler core.Sampler) core.Vec3
}
