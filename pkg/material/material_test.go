package material

import (
	"github.com/milkru/go-tracer/pkg/core"
)

// fixedSampler returns the same values on every call
type fixedSampler struct {
	value1D float64
	value2D core.Vec2
	value3D core.Vec3
}

func (f fixedSampler) Get1D() float64   { return f.value1D }
func (f fixedSampler) Get2D() core.Vec2 { return f.value2D }
func (f fixedSampler) Get3D() core.Vec3 { return f.value3D }

// countingSampler records how many values a material draws
type countingSampler struct {
	fixedSampler
	draws int
}

func (c *countingSampler) Get1D() float64   { c.draws++; return c.fixedSampler.Get1D() }
func (c *countingSampler) Get2D() core.Vec2 { c.draws++; return c.fixedSampler.Get2D() }
func (c *countingSampler) Get3D() core.Vec3 { c.draws++; return c.fixedSampler.Get3D() }
