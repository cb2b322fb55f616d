package main

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateScene(t *testing.T) {
	tests := []struct {
		name        string
		sceneType   string
		expectError bool
	}{
		// Built-in scenes
		{"random scene", "random", false},
		{"default scene", "default", false},
		{"single scene", "single", false},

		// JSON scenes (by path)
		{"json scene", "scenes/three-spheres.json", false},

		// Invalid scenes
		{"unknown scene", "nonexistent", true},
		{"invalid json path", "scenes/nonexistent.json", true},
		{"empty scene name", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene, err := createScene(options{sceneType: tt.sceneType, depth: -1, seed: 1})

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error for scene type '%s', but got none", tt.sceneType)
				}
				if scene != nil {
					t.Errorf("Expected nil scene for invalid scene type '%s', got %T", tt.sceneType, scene)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error for scene type '%s': %v", tt.sceneType, err)
			}
			if scene.CameraConfig.Width <= 0 {
				t.Errorf("Scene camera width should be positive, got %d", scene.CameraConfig.Width)
			}
			if scene.SamplingConfig.SamplesPerPixel <= 0 {
				t.Errorf("Scene should recommend samples per pixel, got %d", scene.SamplingConfig.SamplesPerPixel)
			}
		})
	}
}

func TestCreateSceneOverrides(t *testing.T) {
	s, err := createScene(options{sceneType: "random", width: 300, spp: 3, depth: 0, seed: 5})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.SamplingConfig.Width != 300 || s.SamplingConfig.Height != 200 {
		t.Errorf("Expected 300x200, got %dx%d", s.SamplingConfig.Width, s.SamplingConfig.Height)
	}
	if s.SamplingConfig.SamplesPerPixel != 3 || s.SamplingConfig.MaxDepth != 0 {
		t.Errorf("Overrides not applied: %+v", s.SamplingConfig)
	}
}

func TestRunWritesPPMToStdout(t *testing.T) {
	var stdout, stderr bytes.Buffer
	args := []string{"-scene", "single", "-width", "8", "-spp", "2", "-depth", "3", "-workers", "2"}
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run failed: %v\nstderr: %s", err, stderr.String())
	}

	lines := strings.Split(strings.TrimSuffix(stdout.String(), "\n"), "\n")
	if len(lines) != 3+8*8 {
		t.Fatalf("Expected header plus 64 pixel lines, got %d lines", len(lines))
	}
	if lines[0] != "P3" || lines[1] != "8 8" || lines[2] != "255" {
		t.Errorf("Unexpected header %q", lines[:3])
	}
	if !strings.Contains(stderr.String(), "Remaining scanlines: 8") {
		t.Errorf("Expected progress on stderr, got:\n%s", stderr.String())
	}
}

func TestRunSameSeedSameImage(t *testing.T) {
	render := func(workers string) []byte {
		var stdout bytes.Buffer
		args := []string{"-scene", "default", "-width", "16", "-spp", "2", "-seed", "7", "-workers", workers}
		if err := run(context.Background(), args, &stdout, io.Discard); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		return stdout.Bytes()
	}

	if !bytes.Equal(render("1"), render("4")) {
		t.Error("Same seed should render identical images regardless of worker count")
	}
}

func TestRunWritesPNGFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "render.png")
	args := []string{"-scene", "single", "-width", "6", "-spp", "1", "-format", "png", "-out", out}
	if err := run(context.Background(), args, io.Discard, io.Discard); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	file, err := os.Open(out)
	if err != nil {
		t.Fatalf("Failed to open render: %v", err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		t.Fatalf("Failed to decode render: %v", err)
	}
	if img.Bounds().Dx() != 6 || img.Bounds().Dy() != 6 {
		t.Errorf("Expected 6x6 png, got %v", img.Bounds())
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout bytes.Buffer
	err := run(ctx, []string{"-scene", "single", "-width", "8", "-spp", "1"}, &stdout, io.Discard)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("Expected no image after cancellation, got %q", stdout.String())
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"-bogus"}},
		{"unknown format", []string{"-format", "gif"}},
		{"unknown scene", []string{"-scene", "nope"}},
		{"bad output path", []string{"-scene", "single", "-width", "2", "-spp", "1", "-out", filepath.Join(os.DevNull, "x", "y.ppm")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := run(context.Background(), tt.args, io.Discard, io.Discard); err == nil {
				t.Errorf("Expected error for args %v", tt.args)
			}
		})
	}
}

func TestRunListScenes(t *testing.T) {
	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"-list"}, &stdout, io.Discard); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, want := range []string{"random", "default", "single", "three-spheres.json"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("Expected listing to mention %q, got:\n%s", want, stdout.String())
		}
	}
}
