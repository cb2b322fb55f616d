package material

import (
	"github.com/milkru/go-tracer/pkg/core"
)

// Metal reflects rays about the surface normal, optionally blurred by a fuzz radius
type Metal struct {
	Albedo core.Vec3 // Reflected color
	Fuzz   float64   // Radius of the reflection blur in [0, 1]; 0 is a mirror
}

// NewMetal creates a metal material. fuzz is clamped to [0, 1].
func NewMetal(albedo core.Vec3, fuzz float64) *Metal {
	return &Metal{Albedo: albedo, Fuzz: min(max(fuzz, 0.0), 1.0)}
}

// Scatter reflects the incoming direction and offsets it by a point in the
// unit ball scaled by Fuzz. A mirror (Fuzz 0) draws no random numbers.
func (m *Metal) Scatter(rayIn core.Ray, hit HitRecord, sampler core.Sampler) (ScatterResult, bool) {
	reflected := rayIn.Direction.Normalize().Reflect(hit.Normal)
	if m.Fuzz > 0 {
		reflected = reflected.Add(core.RandomInUnitSphere(sampler).Multiply(m.Fuzz))
	}

	scattered := core.NewRay(hit.Point, reflected)

	// Rays pushed below the surface by the fuzz are absorbed
	scatters := scattered.Direction.Dot(hit.Normal) > 0

	return ScatterResult{
		Scattered:   scattered,
		Attenuation: m.Albedo,
	}, scatters
}
