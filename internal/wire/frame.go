// Package wire defines the CBOR envelope used to publish frames over the
// websocket stream and the ZeroMQ sink.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/cjeanneret/GoVimba/internal/acquisition"
)

// Frame is one published image.
type Frame struct {
	Type      string `cbor:"type"`
	Camera    string `cbor:"camera"`
	Session   string `cbor:"session,omitempty"`
	TraceID   string `cbor:"trace_id"`
	FrameID   uint64 `cbor:"frame_id"`
	Timestamp int64  `cbor:"ts_ns"`
	Width     int    `cbor:"width"`
	Height    int    `cbor:"height"`
	Format    string `cbor:"format"`
	Data      []byte `cbor:"data"`
}

const typeImage = "image"

// FromImage wraps img for publication. Data aliases img.Pix.
func FromImage(cameraID string, img *acquisition.Image) Frame {
	return Frame{
		Type:      typeImage,
		Camera:    cameraID,
		Session:   img.Session,
		TraceID:   uuid.NewString(),
		FrameID:   img.FrameID,
		Timestamp: img.Received.UnixNano(),
		Width:     img.Width,
		Height:    img.Height,
		Format:    img.Format,
		Data:      img.Pix,
	}
}

// Encode marshals f.
func Encode(f Frame) ([]byte, error) {
	return cbor.Marshal(f)
}

// Decode unmarshals a frame and checks that its payload matches its size.
func Decode(b []byte) (Frame, error) {
	var f Frame
	if err := cbor.Unmarshal(b, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Type != typeImage {
		return Frame{}, fmt.Errorf("decode frame: unexpected type %q", f.Type)
	}
	if f.Width < 0 || f.Height < 0 || len(f.Data) != f.Width*f.Height*3 {
		return Frame{}, fmt.Errorf("decode frame: %d bytes for %dx%d", len(f.Data), f.Width, f.Height)
	}
	return f, nil
}
