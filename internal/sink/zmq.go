// Package sink publishes frames outside the process.
package sink

import (
	"fmt"
	"sync"
	"syscall"

	"github.com/pebbe/zmq4"

	"github.com/cjeanneret/GoVimba/internal/acquisition"
	"github.com/cjeanneret/GoVimba/internal/debug"
	"github.com/cjeanneret/GoVimba/internal/wire"
)

// sendHWM caps queued outgoing messages per subscriber; older frames are
// dropped by ZeroMQ past it.
const sendHWM = 8

// socket is the part of a ZeroMQ socket the publisher uses.
type socket interface {
	SendMessageDontwait(parts ...interface{}) (int, error)
	Close() error
}

// ZMQ publishes CBOR frame envelopes on a PUB socket. The topic of each
// message is the camera ID.
type ZMQ struct {
	mu       sync.Mutex
	sock     socket
	endpoint string
	sent     uint64
	dropped  uint64
}

// NewZMQ binds a PUB socket to endpoint (e.g. "tcp://*:5556").
func NewZMQ(endpoint string) (*ZMQ, error) {
	s, err := zmq4.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("zmq socket: %w", err)
	}
	if err := s.SetSndhwm(sendHWM); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("zmq sndhwm: %w", err)
	}
	if err := s.Bind(endpoint); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("zmq bind %s: %w", endpoint, err)
	}
	debug.Info("publishing frames on %s", endpoint)
	return &ZMQ{sock: s, endpoint: endpoint}, nil
}

// Publish sends img without blocking. A full queue counts as a drop, not
// an error.
func (z *ZMQ) Publish(cameraID string, img *acquisition.Image) error {
	payload, err := wire.Encode(wire.FromImage(cameraID, img))
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	z.mu.Lock()
	defer z.mu.Unlock()
	if z.sock == nil {
		return fmt.Errorf("zmq sink %s is closed", z.endpoint)
	}
	if _, err := z.sock.SendMessageDontwait(cameraID, payload); err != nil {
		if zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN) {
			z.dropped++
			debug.Trace("zmq: dropped frame %d of %s", img.FrameID, cameraID)
			return nil
		}
		return fmt.Errorf("zmq send: %w", err)
	}
	z.sent++
	debug.Trace("zmq: sent frame %d of %s (%d bytes)", img.FrameID, cameraID, len(payload))
	return nil
}

// Counts returns how many frames were sent and dropped.
func (z *ZMQ) Counts() (sent, dropped uint64) {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.sent, z.dropped
}

func (z *ZMQ) Close() error {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.sock == nil {
		return nil
	}
	err := z.sock.Close()
	z.sock = nil
	return err
}
