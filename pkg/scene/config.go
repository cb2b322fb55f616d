package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/milkru/go-tracer/pkg/core"
	"github.com/milkru/go-tracer/pkg/geometry"
	"github.com/milkru/go-tracer/pkg/material"
)

// Vec is a JSON [x, y, z] triple
type Vec [3]float64

// Vec3 converts to a core vector
func (v Vec) Vec3() core.Vec3 {
	return core.NewVec3(v[0], v[1], v[2])
}

// Color is a JSON color: either an [r, g, b] triple in [0,1] or a CSS color name
type Color core.Vec3

// UnmarshalJSON accepts "name" or [r, g, b]
func (c *Color) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		rgba, ok := colornames.Map[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("unknown color name %q", name)
		}
		*c = Color(ColorFromRGBA(rgba))
		return nil
	}

	var v Vec
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("color must be a name or [r, g, b]: %w", err)
	}
	*c = Color(v.Vec3())
	return nil
}

// ImageCfg configures output size and sampling
type ImageCfg struct {
	Width           int `json:"width"`
	SamplesPerPixel int `json:"samplesPerPixel"`
	MaxDepth        int `json:"maxDepth"`
}

// CameraCfg configures the thin-lens camera
type CameraCfg struct {
	LookFrom      Vec     `json:"lookFrom"`
	LookAt        Vec     `json:"lookAt"`
	Up            *Vec    `json:"up,omitempty"` // defaults to +Y
	VFov          float64 `json:"vfov"`
	AspectRatio   float64 `json:"aspectRatio"`
	Aperture      float64 `json:"aperture,omitempty"`
	FocusDistance float64 `json:"focusDistance,omitempty"`
}

// BackgroundCfg overrides the background gradient
type BackgroundCfg struct {
	Top    *Color `json:"top,omitempty"`
	Bottom *Color `json:"bottom,omitempty"`
}

// MaterialCfg describes one named material
type MaterialCfg struct {
	Type            string  `json:"type"` // lambertian, metal or dielectric
	Albedo          *Color  `json:"albedo,omitempty"`
	Fuzz            float64 `json:"fuzz,omitempty"`
	RefractiveIndex float64 `json:"refractiveIndex,omitempty"`
}

// SphereCfg places a sphere with a named material
type SphereCfg struct {
	Center   Vec     `json:"center"`
	Radius   float64 `json:"radius"`
	Material string  `json:"material"`
}

// Config is the on-disk description of a scene
type Config struct {
	Image      ImageCfg               `json:"image"`
	Camera     CameraCfg              `json:"camera"`
	Background BackgroundCfg          `json:"background"`
	Materials  map[string]MaterialCfg `json:"materials"`
	Spheres    []SphereCfg            `json:"spheres"`
}

// LoadScene reads a JSON scene file and builds a validated scene
func LoadScene(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scene file: %w", err)
	}
	defer f.Close()

	s, err := ReadScene(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ReadScene decodes a JSON scene description and builds a validated scene
func ReadScene(r io.Reader) (*Scene, error) {
	var cfg Config
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode scene: %w", err)
	}
	return cfg.Build()
}

// Build constructs the scene. Each named material is created once and shared
// by every sphere that references it.
func (cfg Config) Build() (*Scene, error) {
	materials := make(map[string]material.Material, len(cfg.Materials))
	for name, mc := range cfg.Materials {
		m, err := mc.Build()
		if err != nil {
			return nil, fmt.Errorf("material %q: %w", name, err)
		}
		materials[name] = m
	}

	up := core.NewVec3(0, 1, 0)
	if cfg.Camera.Up != nil {
		up = cfg.Camera.Up.Vec3()
	}
	cameraConfig := geometry.CameraConfig{
		Center:        cfg.Camera.LookFrom.Vec3(),
		LookAt:        cfg.Camera.LookAt.Vec3(),
		Up:            up,
		Width:         cfg.Image.Width,
		AspectRatio:   cfg.Camera.AspectRatio,
		VFov:          cfg.Camera.VFov,
		Aperture:      cfg.Camera.Aperture,
		FocusDistance: cfg.Camera.FocusDistance,
	}
	// The camera basis is undefined for a bad config, so check before building it
	if err := cameraConfig.Validate(); err != nil {
		return nil, err
	}

	shapes := make([]geometry.Shape, 0, len(cfg.Spheres))
	for i, sc := range cfg.Spheres {
		m, ok := materials[sc.Material]
		if !ok {
			return nil, fmt.Errorf("%w: sphere %d references unknown material %q", ErrInvalidConfig, i, sc.Material)
		}
		if sc.Radius == 0 {
			return nil, fmt.Errorf("%w: sphere %d has zero radius", ErrInvalidConfig, i)
		}
		shapes = append(shapes, geometry.NewSphere(sc.Center.Vec3(), sc.Radius, m))
	}

	s := New(cameraConfig, cfg.Image.SamplesPerPixel, cfg.Image.MaxDepth, shapes...)
	if cfg.Background.Top != nil {
		s.TopColor = core.Vec3(*cfg.Background.Top)
	}
	if cfg.Background.Bottom != nil {
		s.BottomColor = core.Vec3(*cfg.Background.Bottom)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Build creates the material described by the config
func (mc MaterialCfg) Build() (material.Material, error) {
	albedo := func() (core.Vec3, error) {
		if mc.Albedo == nil {
			return core.Vec3{}, fmt.Errorf("%w: %s material needs an albedo", ErrInvalidConfig, mc.Type)
		}
		return core.Vec3(*mc.Albedo), nil
	}

	switch strings.ToLower(mc.Type) {
	case "lambertian", "diffuse":
		a, err := albedo()
		if err != nil {
			return nil, err
		}
		return material.NewLambertian(a), nil
	case "metal":
		a, err := albedo()
		if err != nil {
			return nil, err
		}
		return material.NewMetal(a, mc.Fuzz), nil
	case "dielectric", "glass":
		if mc.RefractiveIndex <= 0 {
			return nil, fmt.Errorf("%w: dielectric needs a positive refractive index, got %g", ErrInvalidConfig, mc.RefractiveIndex)
		}
		return material.NewDielectric(mc.RefractiveIndex), nil
	default:
		return nil, fmt.Errorf("%w: unknown material type %q", ErrInvalidConfig, mc.Type)
	}
}
