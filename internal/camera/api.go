package camera

import (
	"fmt"
	"sync"
	"time"

	"github.com/cjeanneret/GoVimba/internal/debug"
	"github.com/cjeanneret/GoVimba/internal/feature"
	"github.com/cjeanneret/GoVimba/internal/vimba"
)

const (
	defaultPacketSizeTimeout = 2 * time.Second
	packetSizePoll           = 5 * time.Millisecond
)

// API is the process-wide entry point to the SDK.
type API struct {
	sys               vimba.System
	packetSizeTimeout time.Duration

	mu      sync.Mutex
	started bool
}

// APIOption configures an API.
type APIOption func(*API)

// WithPacketSizeTimeout bounds how long Camera waits for the GigE packet
// size negotiation to finish.
func WithPacketSizeTimeout(d time.Duration) APIOption {
	return func(a *API) {
		if d > 0 {
			a.packetSizeTimeout = d
		}
	}
}

func NewAPI(sys vimba.System, opts ...APIOption) *API {
	a := &API{sys: sys, packetSizeTimeout: defaultPacketSizeTimeout}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Startup initializes the SDK.
func (a *API) Startup() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.sys.Startup(); err != nil {
		return vimba.Wrap("Startup", err)
	}
	a.started = true
	debug.Info("Vimba %s started", a.sys.Version())
	return nil
}

// Shutdown releases the SDK. Calling it more than once is harmless.
func (a *API) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return nil
	}
	a.started = false
	debug.Info("Vimba shutdown")
	return vimba.Wrap("Shutdown", a.sys.Shutdown())
}

// Close shuts the SDK down if the caller has not.
func (a *API) Close() error { return a.Shutdown() }

// Version returns the SDK version string.
func (a *API) Version() string { return a.sys.Version() }

// CameraList returns the detected cameras. Enumeration failures are
// logged and yield an empty list.
func (a *API) CameraList() []vimba.Camera {
	cams, err := a.sys.Cameras()
	if err != nil {
		debug.Errorf("could not list cameras: %v", vimba.Wrap("CameraList", err))
		return []vimba.Camera{}
	}
	return cams
}

// Camera opens id with full access, negotiates the packet size when the
// camera supports it, and sets Width and Height to their even maximum.
func (a *API) Camera(id string, opts ...Option) (*Controller, error) {
	cam, err := a.sys.OpenCamera(id, vimba.AccessFull)
	if err != nil {
		return nil, fmt.Errorf("open camera %s: %w", id, vimba.Wrap("OpenCamera", err))
	}

	a.adjustPacketSize(id, cam)

	for _, name := range []string{"Width", "Height"} {
		if err := setEvenMax(cam, name); err != nil {
			_ = cam.Close()
			return nil, fmt.Errorf("camera %s: %w", id, err)
		}
	}

	ctrl, err := NewController(cam, a.sys.Transformer(), opts...)
	if err != nil {
		_ = cam.Close()
		return nil, err
	}
	debug.Info("camera %s opened (%s %s)", id, ctrl.Name(), ctrl.Model())
	return ctrl, nil
}

// adjustPacketSize runs GVSPAdjustPacketSize and waits for it. Cameras
// without the command (non-GigE) are left alone.
func (a *API) adjustPacketSize(id string, cam vimba.Camera) {
	f, err := cam.FeatureByName("GVSPAdjustPacketSize")
	if err != nil {
		debug.Verbose("camera %s: no packet size negotiation", id)
		return
	}
	if err := feature.RunCommand(f); err != nil {
		debug.Warn("camera %s: packet size negotiation failed: %v", id, err)
		return
	}
	deadline := time.Now().Add(a.packetSizeTimeout)
	for {
		done, err := feature.IsCommandDone(f)
		if err != nil {
			debug.Warn("camera %s: packet size negotiation: %v", id, err)
			return
		}
		if done {
			break
		}
		if time.Now().After(deadline) {
			debug.Warn("camera %s: packet size negotiation timed out after %s", id, a.packetSizeTimeout)
			return
		}
		time.Sleep(packetSizePoll)
	}
	if size, err := cam.FeatureByName("GVSPPacketSize"); err == nil {
		if v, err := feature.GetValue[int64](size); err == nil {
			debug.Verbose("camera %s: packet size %d", id, v)
		}
	}
}

// setEvenMax sets an integer feature to its maximum rounded down to even.
func setEvenMax(cam vimba.Camera, name string) error {
	f, err := cam.FeatureByName(name)
	if err != nil {
		return fmt.Errorf("feature %s: %w", name, vimba.Wrap("FeatureByName", err))
	}
	hi, err := feature.Max[int64](f)
	if err != nil {
		return fmt.Errorf("feature %s: %w", name, err)
	}
	v := (hi >> 1) << 1
	if err := feature.SetValue(f, v); err != nil {
		return fmt.Errorf("feature %s: %w", name, err)
	}
	debug.Verbose("%s set to %d", name, v)
	return nil
}
