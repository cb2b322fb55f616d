package scene

import (
	"golang.org/x/image/colornames"

	"github.com/milkru/go-tracer/pkg/core"
	"github.com/milkru/go-tracer/pkg/geometry"
	"github.com/milkru/go-tracer/pkg/material"
)

// NewDefaultScene creates a small scene with matte, metal and glass spheres
// on a large ground sphere. It renders quickly and exercises every material.
func NewDefaultScene(cameraOverrides ...geometry.CameraConfig) *Scene {
	defaultCameraConfig := geometry.CameraConfig{
		Center:        core.NewVec3(0, 0.75, 2), // Position camera higher and farther back
		LookAt:        core.NewVec3(0, 0.5, -1), // Look at the sphere center
		Up:            core.NewVec3(0, 1, 0),
		Width:         400,
		AspectRatio:   16.0 / 9.0,
		VFov:          40.0,
		Aperture:      0.05,
		FocusDistance: 0.0, // Auto-calculate focus distance
	}

	cameraConfig := defaultCameraConfig
	if len(cameraOverrides) > 0 {
		cameraConfig = geometry.MergeCameraConfig(defaultCameraConfig, cameraOverrides[0])
	}

	s := New(cameraConfig, 100, 50)

	lambertianGround := material.NewLambertian(ColorFromRGBA(colornames.Darkkhaki).Multiply(0.6))
	lambertianBlue := material.NewLambertian(ColorFromRGBA(colornames.Steelblue))
	lambertianRed := material.NewLambertian(ColorFromRGBA(colornames.Indianred))
	metalSilver := material.NewMetal(ColorFromRGBA(colornames.Silver), 0.0)
	metalGold := material.NewMetal(ColorFromRGBA(colornames.Goldenrod), 0.3)
	materialGlass := material.NewDielectric(1.5)

	s.Shapes.Add(
		geometry.NewSphere(core.NewVec3(0, -1000, -1), 1000, lambertianGround),
		geometry.NewSphere(core.NewVec3(0, 0.5, -1), 0.5, lambertianRed),
		geometry.NewSphere(core.NewVec3(-1, 0.5, -1), 0.5, metalSilver),
		geometry.NewSphere(core.NewVec3(1, 0.5, -1), 0.5, metalGold),
		geometry.NewSphere(core.NewVec3(0.5, 0.25, -0.5), 0.25, materialGlass),
		// Hollow glass sphere with a blue sphere inside
		geometry.NewSphere(core.NewVec3(-0.5, 0.25, -0.5), 0.25, materialGlass),
		geometry.NewSphere(core.NewVec3(-0.5, 0.25, -0.5), -0.24, materialGlass),
		geometry.NewSphere(core.NewVec3(-0.5, 0.25, -0.5), 0.20, lambertianBlue),
	)

	return s
}

// NewSingleSphereScene creates one matte sphere lit only by the background.
// With nothing else to bounce off, the expected color at the sphere's center
// is the albedo times the average background over the scattered directions.
func NewSingleSphereScene(albedo core.Vec3, cameraOverrides ...geometry.CameraConfig) *Scene {
	defaultCameraConfig := geometry.CameraConfig{
		Center:      core.NewVec3(0, 0, 3),
		LookAt:      core.NewVec3(0, 0, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       200,
		AspectRatio: 1.0,
		VFov:        40.0,
	}

	cameraConfig := defaultCameraConfig
	if len(cameraOverrides) > 0 {
		cameraConfig = geometry.MergeCameraConfig(defaultCameraConfig, cameraOverrides[0])
	}

	return New(cameraConfig, 64, 10,
		geometry.NewSphere(core.NewVec3(0, 0, 0), 1.0, material.NewLambertian(albedo)))
}
