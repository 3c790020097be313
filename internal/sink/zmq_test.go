package sink

import (
	"errors"
	"syscall"
	"testing"

	"github.com/cjeanneret/GoVimba/internal/acquisition"
	"github.com/cjeanneret/GoVimba/internal/wire"
)

// recordingSocket keeps the multipart messages sent to it.
type recordingSocket struct {
	parts  [][]interface{}
	err    error
	closed bool
}

func (s *recordingSocket) SendMessageDontwait(parts ...interface{}) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.parts = append(s.parts, parts)
	return 0, nil
}

func (s *recordingSocket) Close() error {
	s.closed = true
	return nil
}

func testImage() *acquisition.Image {
	return &acquisition.Image{Width: 1, Height: 1, Format: "RGB24", Pix: []byte{1, 2, 3}, FrameID: 5}
}

func TestZMQ_PublishTopicAndPayload(t *testing.T) {
	sock := &recordingSocket{}
	z := &ZMQ{sock: sock, endpoint: "inproc://test"}

	if err := z.Publish("DEV_A", testImage()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(sock.parts) != 1 || len(sock.parts[0]) != 2 {
		t.Fatalf("sent = %v", sock.parts)
	}
	if topic := sock.parts[0][0]; topic != "DEV_A" {
		t.Errorf("topic = %v", topic)
	}
	f, err := wire.Decode(sock.parts[0][1].([]byte))
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if f.FrameID != 5 || f.Camera != "DEV_A" {
		t.Errorf("decoded = %+v", f)
	}
	if sent, dropped := z.Counts(); sent != 1 || dropped != 0 {
		t.Errorf("counts = %d/%d", sent, dropped)
	}
}

func TestZMQ_FullQueueIsADrop(t *testing.T) {
	z := &ZMQ{sock: &recordingSocket{err: syscall.EAGAIN}}
	if err := z.Publish("A", testImage()); err != nil {
		t.Errorf("EAGAIN should not be an error: %v", err)
	}
	if _, dropped := z.Counts(); dropped != 1 {
		t.Errorf("dropped = %d", dropped)
	}
}

func TestZMQ_SendError(t *testing.T) {
	z := &ZMQ{sock: &recordingSocket{err: errors.New("boom")}}
	if err := z.Publish("A", testImage()); err == nil {
		t.Error("expected error")
	}
}

func TestZMQ_Close(t *testing.T) {
	sock := &recordingSocket{}
	z := &ZMQ{sock: sock}
	if err := z.Close(); err != nil || !sock.closed {
		t.Fatalf("Close: %v closed=%v", err, sock.closed)
	}
	if err := z.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := z.Publish("A", testImage()); err == nil {
		t.Error("publish after close should fail")
	}
}
