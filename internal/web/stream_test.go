package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cjeanneret/GoVimba/internal/acquisition"
	"github.com/cjeanneret/GoVimba/internal/wire"
)

func rgbImage(id uint64) *acquisition.Image {
	return &acquisition.Image{Width: 1, Height: 1, Format: acquisition.FormatRGB24, Pix: []byte{1, 2, 3}, FrameID: id}
}

func TestFrameHub_SkipsWithoutSubscribers(t *testing.T) {
	h := NewFrameHub(0)
	if err := h.Publish("A", rgbImage(1)); err != nil {
		t.Fatal(err)
	}
	ch, unsub := h.Subscribe("A")
	defer unsub()
	if len(ch) != 0 {
		t.Error("frame published before subscription was kept")
	}
}

func TestFrameHub_RateLimitAndLatestWins(t *testing.T) {
	now := time.Unix(100, 0)
	h := NewFrameHub(100 * time.Millisecond)
	h.now = func() time.Time { return now }
	ch, unsub := h.Subscribe("A")
	defer unsub()

	_ = h.Publish("A", rgbImage(1))
	now = now.Add(50 * time.Millisecond)
	_ = h.Publish("A", rgbImage(2)) // too soon
	now = now.Add(60 * time.Millisecond)
	_ = h.Publish("A", rgbImage(3)) // replaces 1, never read

	if len(ch) != 1 {
		t.Fatalf("queued = %d", len(ch))
	}
	f, err := wire.Decode(<-ch)
	if err != nil {
		t.Fatal(err)
	}
	if f.FrameID != 3 {
		t.Errorf("frame = %d, want 3", f.FrameID)
	}
}

func TestFrameHub_PerCamera(t *testing.T) {
	h := NewFrameHub(0)
	a, unsubA := h.Subscribe("A")
	defer unsubA()
	_, unsubB := h.Subscribe("B")

	_ = h.Publish("B", rgbImage(1))
	if len(a) != 0 {
		t.Error("camera A subscriber got camera B frame")
	}
	unsubB()
	unsubB()
	if h.Subscribers("B") != 0 || h.Subscribers("A") != 1 {
		t.Errorf("subscribers A=%d B=%d", h.Subscribers("A"), h.Subscribers("B"))
	}
	if err := h.Publish("B", rgbImage(2)); err != nil {
		t.Errorf("publish after unsubscribe: %v", err)
	}
}

func TestHandleFrameStream(t *testing.T) {
	s, _ := newTestServer(&fakeBackend{})
	hub := s.handlers.Hub
	srv := httptest.NewServer(s.Mux())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	if _, resp, err := websocket.DefaultDialer.Dial(url+"/cameras/Z/ws", nil); err == nil {
		t.Error("unknown camera accepted")
	} else if resp != nil && resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", resp.StatusCode)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url+"/cameras/A/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for hub.Subscribers("A") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := hub.Publish("A", rgbImage(9)); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	typ, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != websocket.BinaryMessage {
		t.Errorf("message type = %d", typ)
	}
	f, err := wire.Decode(payload)
	if err != nil {
		t.Fatal(err)
	}
	if f.Camera != "A" || f.FrameID != 9 {
		t.Errorf("frame = %+v", f)
	}

	conn.Close()
	deadline = time.Now().Add(5 * time.Second)
	for hub.Subscribers("A") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not released after close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
