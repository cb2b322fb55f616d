package scene

import (
	"github.com/milkru/go-tracer/pkg/core"
	"github.com/milkru/go-tracer/pkg/geometry"
	"github.com/milkru/go-tracer/pkg/material"
)

// NewRandomScene creates the classic "many small spheres" cover scene: a huge
// ground sphere, a 23x23 grid of randomly placed small spheres with a random
// material mix, and three large feature spheres.
func NewRandomScene(sampler core.Sampler, cameraOverrides ...geometry.CameraConfig) *Scene {
	defaultCameraConfig := geometry.CameraConfig{
		Center:        core.NewVec3(-1, 2, -13),
		LookAt:        core.NewVec3(1.5, 0.5, 0),
		Up:            core.NewVec3(0, 1, 0),
		Width:         1280,
		AspectRatio:   3.0 / 2.0,
		VFov:          20.0,
		Aperture:      0.1,
		FocusDistance: 10.0,
	}

	cameraConfig := defaultCameraConfig
	if len(cameraOverrides) > 0 {
		cameraConfig = geometry.MergeCameraConfig(defaultCameraConfig, cameraOverrides[0])
	}

	s := New(cameraConfig, 512, 5)

	ground := material.NewLambertian(core.NewVec3(139.0/256.0, 175.0/256.0, 197.0/256.0))
	s.Shapes.Add(geometry.NewSphere(core.NewVec3(0, -1000, 0), 1000, ground))

	// One glass material is shared by every small glass sphere
	glass := material.NewDielectric(1.5)

	for i := -11; i <= 11; i++ {
		for j := -11; j <= 11; j++ {
			chooseMaterial := sampler.Get1D()
			center := core.NewVec3(
				float64(i)+core.RandomRange(sampler, 0, 0.9),
				0.2,
				float64(j)+core.RandomRange(sampler, 0, 0.9),
			)

			var mat material.Material
			switch {
			case chooseMaterial < 0.8:
				albedo := core.RandomVec3(sampler, 0, 1).MultiplyVec(core.RandomVec3(sampler, 0, 1))
				mat = material.NewLambertian(albedo)
			case chooseMaterial < 0.95:
				albedo := core.RandomVec3(sampler, 0.4, 1)
				fuzz := core.RandomRange(sampler, 0, 0.5)
				mat = material.NewMetal(albedo, fuzz)
			default:
				mat = glass
			}
			s.Shapes.Add(geometry.NewSphere(center, 0.2, mat))
		}
	}

	s.Shapes.Add(
		geometry.NewSphere(core.NewVec3(0, 1, 0), 1.0, glass),
		geometry.NewSphere(core.NewVec3(1.5, 1, 2), 1.0, material.NewLambertian(core.NewVec3(0.2, 0.4, 0.8))),
		geometry.NewSphere(core.NewVec3(3, 1, 0), 1.0, material.NewMetal(core.NewVec3(0.7, 0.6, 0.5), 0.0)),
	)

	return s
}
