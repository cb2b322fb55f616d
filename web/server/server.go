package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/milkru/go-tracer/pkg/imageio"
	"github.com/milkru/go-tracer/pkg/integrator"
	"github.com/milkru/go-tracer/pkg/renderer"
	"github.com/milkru/go-tracer/pkg/scene"
)

const (
	maxWidth   = 2000
	maxSamples = 10000
	maxDepth   = 1000
)

// errUnknownScene is returned for scene names the server does not offer
var errUnknownScene = errors.New("unknown scene")

// Server handles web requests for the path tracer
type Server struct {
	port      int
	scenesDir string
	renders   atomic.Int64
}

// NewServer creates a new web server offering the built-in scenes plus the
// .json scenes found in scenesDir
func NewServer(port int, scenesDir string) *Server {
	return &Server{port: port, scenesDir: scenesDir}
}

// RenderRequest represents a render request from the client
type RenderRequest struct {
	Scene           string         `json:"scene"`           // Scene ID (see /api/scenes)
	Width           int            `json:"width"`           // Image width, 0 = scene default
	SamplesPerPixel int            `json:"samplesPerPixel"` // 0 = scene default
	MaxDepth        int            `json:"maxDepth"`        // -1 = scene default
	Seed            int64          `json:"seed"`            // Random seed
	Format          imageio.Format `json:"format"`          // ppm or png
}

// RenderResult is the final event of a render sent via SSE
type RenderResult struct {
	ImageData string `json:"imageData"` // Base64 encoded PNG
	Stats     Stats  `json:"stats"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Stats represents render statistics
type Stats struct {
	Width           int   `json:"width"`
	Height          int   `json:"height"`
	TotalPixels     int   `json:"totalPixels"`
	TotalSamples    int64 `json:"totalSamples"`
	SamplesPerPixel int   `json:"samplesPerPixel"`
	NumWorkers      int   `json:"numWorkers"`
}

// Handler returns the server's routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/render", s.handleRender)
	mux.HandleFunc("/api/render-events", s.handleRenderEvents)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/scenes", s.handleScenes)
	mux.HandleFunc("/api/scene-config", s.handleSceneConfig)
	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("Starting web server on http://localhost%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists every scene a client may request
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := s.listScenes()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, scenes)
}

// handleRender renders a scene and streams the encoded image as the response body
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRenderRequest(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	sceneObj, err := s.createScene(req)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	cfg := sceneObj.SamplingConfig
	writer, err := imageio.NewWriter(req.Format, w, cfg.Width, cfg.Height)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	renderID := s.nextRenderID()
	logger := NewWebLogger(renderID, nil)
	w.Header().Set("Content-Type", contentType(req.Format))
	w.Header().Set("Access-Control-Allow-Origin", "*")

	raytracer := renderer.NewRaytracer(sceneObj, integrator.NewPathTracingIntegrator(),
		renderer.RenderConfig{Seed: req.Seed}, logger)

	// Headers may already be on the wire, so failures can only be logged
	if _, err := raytracer.Stream(r.Context(), writer); err != nil {
		logger.Printf("Render error: %v\n", err)
		return
	}
	if err := writer.Close(); err != nil {
		logger.Printf("Encode error: %v\n", err)
	}
}

// handleRenderEvents renders a scene, streaming progress lines via SSE and
// finishing with the image as a base64 PNG
func (s *Server) handleRenderEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	req, err := s.parseRenderRequest(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}
	sceneObj, err := s.createScene(req)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	consoleChan := make(chan ConsoleMessage, 64)
	cfg := sceneObj.SamplingConfig
	raytracer := renderer.NewRaytracer(sceneObj, integrator.NewPathTracingIntegrator(),
		renderer.RenderConfig{Seed: req.Seed}, NewWebLogger(s.nextRenderID(), consoleChan))

	type outcome struct {
		img   *image.RGBA
		stats renderer.RenderStats
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		img, stats, err := raytracer.RenderImage(r.Context())
		done <- outcome{img: img, stats: stats, err: err}
	}()

	for {
		select {
		case msg := <-consoleChan:
			if err := s.sendSSEJSON(w, flusher, "console", msg); err != nil {
				return
			}
		case res := <-done:
			if res.err != nil {
				s.sendSSEEvent(w, flusher, "error", fmt.Sprintf("Render error: %v", res.err))
				return
			}
			imageData, err := imageToBase64PNG(res.img)
			if err != nil {
				s.sendSSEEvent(w, flusher, "error", fmt.Sprintf("failed to encode image: %v", err))
				return
			}
			s.sendSSEJSON(w, flusher, "complete", RenderResult{
				ImageData: imageData,
				Stats: Stats{
					Width:           cfg.Width,
					Height:          cfg.Height,
					TotalPixels:     res.stats.TotalPixels,
					TotalSamples:    int64(res.stats.TotalSamples),
					SamplesPerPixel: res.stats.SamplesPerPixel,
					NumWorkers:      res.stats.NumWorkers,
				},
				ElapsedMs: res.stats.Elapsed.Milliseconds(),
			})
			return
		case <-r.Context().Done():
			// Client went away; the render shares its context and stops
			<-done
			return
		}
	}
}

// parseRenderRequest parses request parameters
func (s *Server) parseRenderRequest(r *http.Request) (*RenderRequest, error) {
	query := r.URL.Query()
	req := &RenderRequest{Scene: "default"}
	if name := query.Get("scene"); name != "" {
		req.Scene = name
	}

	var err error
	if req.Width, err = parseIntParam(query, "width", 0, 1, maxWidth); err != nil {
		return nil, err
	}
	if req.SamplesPerPixel, err = parseIntParam(query, "spp", 0, 1, maxSamples); err != nil {
		return nil, err
	}
	if req.MaxDepth, err = parseIntParam(query, "depth", -1, 0, maxDepth); err != nil {
		return nil, err
	}
	if value := query.Get("seed"); value != "" {
		if req.Seed, err = strconv.ParseInt(value, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid seed: %s", value)
		}
	}

	format := "png"
	if value := query.Get("format"); value != "" {
		format = value
	}
	if req.Format, err = imageio.ParseFormat(format); err != nil {
		return nil, err
	}

	return req, nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// listScenes returns the built-in scenes followed by the scene files
func (s *Server) listScenes() ([]scene.SceneInfo, error) {
	scenes := scene.ListBuiltinScenes()
	files, err := scene.ListJSONScenes(s.scenesDir)
	if err != nil {
		return nil, err
	}
	return append(scenes, files...), nil
}

// createScene creates the requested scene and applies the request overrides.
// Only listed scenes may be loaded, so clients cannot read arbitrary files.
func (s *Server) createScene(req *RenderRequest) (*scene.Scene, error) {
	scenes, err := s.listScenes()
	if err != nil {
		return nil, err
	}
	known := false
	for _, info := range scenes {
		if info.ID == req.Scene {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", errUnknownScene, req.Scene)
	}

	sceneObj, err := scene.Create(req.Scene, req.Seed)
	if err != nil {
		return nil, err
	}
	if req.Width > 0 {
		sceneObj.SetImageWidth(req.Width)
	}
	if req.SamplesPerPixel > 0 {
		sceneObj.SamplingConfig.SamplesPerPixel = req.SamplesPerPixel
	}
	if req.MaxDepth >= 0 {
		sceneObj.SamplingConfig.MaxDepth = req.MaxDepth
	}
	if err := sceneObj.Validate(); err != nil {
		return nil, err
	}
	return sceneObj, nil
}

func (s *Server) nextRenderID() string {
	return fmt.Sprintf("render-%d", s.renders.Add(1))
}

func statusFor(err error) int {
	if errors.Is(err, errUnknownScene) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func contentType(format imageio.Format) string {
	if format == imageio.FormatPPM {
		return "image/x-portable-pixmap"
	}
	return "image/png"
}

// imageToBase64PNG converts an image to base64-encoded PNG
func imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// sendSSEJSON sends a JSON-encoded SSE event
func (s *Server) sendSSEJSON(w http.ResponseWriter, flusher http.Flusher, event string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.sendSSEEvent(w, flusher, event, string(data))
}

// sendSSEEvent sends a generic SSE event; data must not contain newlines
func (s *Server) sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event, data string) error {
	data = strings.ReplaceAll(data, "\n", " ")
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// handleSceneConfig returns the default configuration for a scene
func (s *Server) handleSceneConfig(w http.ResponseWriter, r *http.Request) {
	sceneName := r.URL.Query().Get("scene")
	if sceneName == "" {
		sceneName = "default"
	}

	sceneObj, err := s.createScene(&RenderRequest{Scene: sceneName, MaxDepth: -1})
	if err != nil {
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}

	config := sceneObj.SamplingConfig
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scene": sceneName,
		"defaults": map[string]interface{}{
			"width":           config.Width,
			"height":          config.Height,
			"samplesPerPixel": config.SamplesPerPixel,
			"maxDepth":        config.MaxDepth,
			"primitives":      sceneObj.GetPrimitiveCount(),
		},
		"limits": map[string]interface{}{
			"width": map[string]int{"min": 1, "max": maxWidth},
			"spp":   map[string]int{"min": 1, "max": maxSamples},
			"depth": map[string]int{"min": 0, "max": maxDepth},
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
