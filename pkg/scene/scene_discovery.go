package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/milkru/go-tracer/pkg/core"
)

// SceneInfo represents a discovered scene with its metadata
type SceneInfo struct {
	ID          string `json:"id"`          // Name accepted by Create
	DisplayName string `json:"displayName"` // Human readable name
	Description string `json:"description"` // Optional description
	Type        string `json:"type"`        // "builtin" or "json"
	FilePath    string `json:"filePath"`    // Path to the scene file (json type only)
}

// builtinScenes lists the scenes constructed in code
var builtinScenes = []SceneInfo{
	{ID: "random", DisplayName: "Random Spheres", Description: "Ground sphere, 23x23 grid of random small spheres and three feature spheres", Type: "builtin"},
	{ID: "default", DisplayName: "Default", Description: "Matte, metal and glass spheres, quick to render", Type: "builtin"},
	{ID: "single", DisplayName: "Single Sphere", Description: "One matte sphere lit by the sky", Type: "builtin"},
}

// ListBuiltinScenes returns the scenes that can be created by name
func ListBuiltinScenes() []SceneInfo {
	return append([]SceneInfo(nil), builtinScenes...)
}

// ListJSONScenes scans dir for *.json scene files
func ListJSONScenes(dir string) ([]SceneInfo, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan scenes directory: %w", err)
	}

	scenes := make([]SceneInfo, 0, len(files))
	for _, filePath := range files {
		name := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
		scenes = append(scenes, SceneInfo{
			ID:          filePath,
			DisplayName: name,
			Type:        "json",
			FilePath:    filePath,
		})
	}

	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].DisplayName < scenes[j].DisplayName
	})
	return scenes, nil
}

// Create builds the named scene. Names ending in .json are loaded from disk;
// seed drives the random scene layout.
func Create(name string, seed int64) (*Scene, error) {
	if strings.HasSuffix(strings.ToLower(name), ".json") {
		if _, err := os.Stat(name); err != nil {
			return nil, fmt.Errorf("scene file %s: %w", name, err)
		}
		return LoadScene(name)
	}

	switch name {
	case "random":
		return NewRandomScene(core.NewSeededSampler(seed)), nil
	case "default":
		return NewDefaultScene(), nil
	case "single":
		return NewSingleSphereScene(core.NewVec3(0.5, 0.5, 0.5)), nil
	default:
		return nil, fmt.Errorf("unknown scene %q", name)
	}
}
