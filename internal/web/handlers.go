package web

import (
	"context"
	"encoding/json"
	"errors"
	"image/jpeg"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cjeanneret/GoVimba/internal/acquisition"
	"github.com/cjeanneret/GoVimba/internal/app"
	"github.com/cjeanneret/GoVimba/internal/camera"
	"github.com/cjeanneret/GoVimba/internal/debug"
	"github.com/cjeanneret/GoVimba/internal/feature"
	"github.com/cjeanneret/GoVimba/internal/vimba"
)

// maxBodyBytes caps request bodies; feature writes are tiny.
const maxBodyBytes = 1 << 16

// Backend is the camera host behind the HTTP API. app.Host implements it.
type Backend interface {
	Cameras() []app.CameraInfo
	Start(id string) error
	Stop(id string) error
	Frame(id string) (*acquisition.Image, error)
	Features(ctx context.Context, id string) ([]feature.Info, error)
	SetFeature(ctx context.Context, id, name string, value any) (any, error)
}

// FeatureWrite is the body of PUT /cameras/{id}/features/{name}.
type FeatureWrite struct {
	Value any `json:"value"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Backend     Backend
	Broadcaster *StatusBroadcaster
	Hub         *FrameHub
	JPEGQuality int
	staticFS    fs.FS
	upgrader    websocket.Upgrader
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(backend Backend, broadcaster *StatusBroadcaster, hub *FrameHub, jpegQuality int, staticFS fs.FS) *Handlers {
	if jpegQuality <= 0 {
		jpegQuality = jpeg.DefaultQuality
	}
	return &Handlers{
		Backend:     backend,
		Broadcaster: broadcaster,
		Hub:         hub,
		JPEGQuality: jpegQuality,
		staticFS:    staticFS,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug.Verbose("web: write response: %v", err)
	}
}

// writeError maps err onto an HTTP status.
func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusOf(err))
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, app.ErrUnknownCamera),
		errors.Is(err, app.ErrUnknownFeature),
		errors.Is(err, vimba.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrNoFrame),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, camera.ErrAlreadyAcquiring),
		errors.Is(err, vimba.ErrorInvalidAccess),
		errors.Is(err, vimba.ErrorInvalidCall):
		return http.StatusConflict
	case errors.Is(err, feature.ErrInvalidValue),
		errors.Is(err, feature.ErrEnumIndex),
		errors.Is(err, feature.ErrUnknownEnumEntry),
		errors.Is(err, vimba.ErrorInvalidValue),
		errors.Is(err, vimba.ErrorWrongType),
		errors.Is(err, vimba.ErrorBadParameter):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handlers) knownCamera(id string) bool {
	for _, c := range h.Backend.Cameras() {
		if c.ID == id {
			return true
		}
	}
	return false
}

// ServeIndex serves the viewer page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleCameras handles GET /cameras.
func (h *Handlers) HandleCameras(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Backend.Cameras())
}

// HandleStart handles POST /cameras/{id}/start.
func (h *Handlers) HandleStart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Backend.Start(id); err != nil {
		writeError(w, err)
		return
	}
	h.Broadcaster.BroadcastCamera("info", id, "acquisition started")
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// HandleStop handles POST /cameras/{id}/stop.
func (h *Handlers) HandleStop(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Backend.Stop(id); err != nil {
		writeError(w, err)
		return
	}
	h.Broadcaster.BroadcastCamera("info", id, "acquisition stopped")
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// HandleFrame handles GET /cameras/{id}/frame.jpg with the latest frame.
func (h *Handlers) HandleFrame(w http.ResponseWriter, r *http.Request) {
	img, err := h.Backend.Frame(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Id", strconv.FormatUint(img.FrameID, 10))
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: h.JPEGQuality}); err != nil {
		debug.Verbose("web: encode frame: %v", err)
	}
}

// HandleFeatures handles GET /cameras/{id}/features.
func (h *Handlers) HandleFeatures(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	infos, err := h.Backend.Features(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if infos == nil {
		infos = []feature.Info{}
	}
	writeJSON(w, http.StatusOK, infos)
}

// HandleSetFeature handles PUT /cameras/{id}/features/{name} with a body
// {"value": ...} and answers with the value the camera applied.
func (h *Handlers) HandleSetFeature(w http.ResponseWriter, r *http.Request) {
	id, name := r.PathValue("id"), r.PathValue("name")

	var body FeatureWrite
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if body.Value == nil {
		http.Error(w, "value is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	applied, err := h.Backend.SetFeature(ctx, id, name, body.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	h.Broadcaster.BroadcastCamera("info", id, name+" = "+strconv.Quote(toString(applied)))
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "value": applied})
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
