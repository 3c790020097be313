package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cjeanneret/GoVimba/internal/acquisition"
	"github.com/cjeanneret/GoVimba/internal/debug"
	"github.com/cjeanneret/GoVimba/internal/wire"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = (pongWait * 9) / 10
)

// FrameHub fans frames out to websocket clients, at most one frame per
// camera per interval. It is a sink of the host loop.
type FrameHub struct {
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
	subs map[string]map[chan []byte]struct{}
}

// NewFrameHub returns a hub sending at most one frame per interval and camera.
func NewFrameHub(interval time.Duration) *FrameHub {
	return &FrameHub{
		interval: interval,
		now:      time.Now,
		last:     make(map[string]time.Time),
		subs:     make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe registers a client for cameraID's frames. Each message is an
// encoded wire.Frame. A slow client only ever sees the newest frame.
func (h *FrameHub) Subscribe(cameraID string) (<-chan []byte, func()) {
	ch := make(chan []byte, 1)
	h.mu.Lock()
	if h.subs[cameraID] == nil {
		h.subs[cameraID] = make(map[chan []byte]struct{})
	}
	h.subs[cameraID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[cameraID], ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of clients watching cameraID.
func (h *FrameHub) Subscribers(cameraID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[cameraID])
}

// Publish encodes img and hands it to every subscriber of cameraID. Frames
// arriving faster than the interval, or with nobody watching, are skipped.
func (h *FrameHub) Publish(cameraID string, img *acquisition.Image) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subs[cameraID]) == 0 {
		return nil
	}
	now := h.now()
	if last, ok := h.last[cameraID]; ok && now.Sub(last) < h.interval {
		return nil
	}
	h.last[cameraID] = now

	payload, err := wire.Encode(wire.FromImage(cameraID, img))
	if err != nil {
		return err
	}
	for ch := range h.subs[cameraID] {
		select {
		case <-ch:
			// replace the frame the client has not picked up yet
		default:
		}
		ch <- payload
	}
	return nil
}

// HandleFrameStream handles GET /cameras/{id}/ws: binary CBOR frames until
// the client goes away.
func (h *Handlers) HandleFrameStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.knownCamera(id) {
		http.Error(w, "unknown camera "+id, http.StatusNotFound)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(1 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	frames, unsub := h.Hub.Subscribe(id)
	defer unsub()
	debug.Verbose("web: frame stream for %s opened by %s", id, r.RemoteAddr)

	writeMu := &sync.Mutex{}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case payload, ok := <-frames:
				if !ok {
					return
				}
				if err := writeMessage(conn, writeMu, websocket.BinaryMessage, payload); err != nil {
					_ = conn.Close()
					return
				}
			case <-ticker.C:
				if err := writeMessage(conn, writeMu, websocket.PingMessage, nil); err != nil {
					_ = conn.Close()
					return
				}
			}
		}
	}()
	defer close(done)

	// clients only send control frames; reading keeps the pong handler running
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			debug.Verbose("web: frame stream for %s closed: %v", id, err)
			return
		}
	}
}

func writeMessage(conn *websocket.Conn, writeMu *sync.Mutex, messageType int, payload []byte) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, payload)
}
