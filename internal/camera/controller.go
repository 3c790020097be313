// Package camera owns opened cameras: the SDK lifecycle, pre-flight
// configuration, and continuous acquisition into a latest-frame slot.
package camera

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/GoVimba/internal/acquisition"
	"github.com/cjeanneret/GoVimba/internal/debug"
	"github.com/cjeanneret/GoVimba/internal/vimba"
)

// DefaultFrameBuffers is the number of frames announced to the SDK.
const DefaultFrameBuffers = 4

var (
	// ErrAlreadyAcquiring is returned when starting a running controller.
	ErrAlreadyAcquiring = errors.New("acquisition already running")
	// ErrFrameBufferCount is returned when fewer than two frame buffers
	// are configured.
	ErrFrameBufferCount = errors.New("frame buffer count must be at least 2")
)

// Option configures a Controller.
type Option func(*Controller)

// WithFrameBuffers sets how many frames are announced on start.
func WithFrameBuffers(n int) Option {
	return func(c *Controller) { c.buffers = n }
}

func WithColorProcessing(p acquisition.ColorProcessing) Option {
	return func(c *Controller) { c.color = p }
}

func WithLogMode(l acquisition.LogMode) Option {
	return func(c *Controller) { c.logMode = l }
}

// WithClock sets the clock used to timestamp frames.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller owns one opened camera. The newest decoded frame is kept in
// a single slot; consumers poll CheckNewFrame and GetCurrentFrame.
type Controller struct {
	cam   vimba.Camera
	tr    vimba.Transformer
	id    string
	name  string
	model string
	now   func() time.Time

	acqMu     sync.Mutex
	buffers   int
	color     acquisition.ColorProcessing
	logMode   acquisition.LogMode
	observer  *acquisition.Observer
	session   string
	lastStats acquisition.Stats

	// frameMu guards frame; flagMu guards newFrame. The producer takes
	// frameMu then flagMu, consumers take one or the other.
	frameMu  sync.Mutex
	frame    *acquisition.Image
	flagMu   sync.Mutex
	newFrame bool
}

// NewController wraps an opened camera. tr performs the pixel transform.
func NewController(cam vimba.Camera, tr vimba.Transformer, opts ...Option) (*Controller, error) {
	if cam == nil || tr == nil {
		return nil, vimba.Errorf("NewController", vimba.ErrorBadParameter, "camera and transformer are required")
	}
	c := &Controller{cam: cam, tr: tr, buffers: DefaultFrameBuffers, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	var err error
	if c.id, err = cam.ID(); err != nil {
		return nil, vimba.Wrap("CameraID", err)
	}
	// name and model are informational
	c.name, _ = cam.Name()
	c.model, _ = cam.Model()
	return c, nil
}

func (c *Controller) ID() string    { return c.id }
func (c *Controller) Name() string  { return c.name }
func (c *Controller) Model() string { return c.model }

// Camera returns the raw vendor handle.
func (c *Controller) Camera() vimba.Camera { return c.cam }

// StartContinuousImageAcquisition announces the frame buffers and starts
// streaming into the current-frame slot.
func (c *Controller) StartContinuousImageAcquisition() error {
	c.acqMu.Lock()
	defer c.acqMu.Unlock()

	if c.observer != nil {
		return fmt.Errorf("camera %s: %w", c.id, ErrAlreadyAcquiring)
	}
	if c.buffers < 2 {
		return fmt.Errorf("camera %s: %w (got %d)", c.id, ErrFrameBufferCount, c.buffers)
	}

	session := uuid.NewString()
	obs := acquisition.NewObserver(c.cam, c.tr, c.frameObserved,
		acquisition.WithColorProcessing(c.color),
		acquisition.WithLogMode(c.logMode),
		acquisition.WithSession(session),
		acquisition.WithClock(c.now),
	)
	if err := c.cam.StartContinuousAcquisition(c.buffers, obs); err != nil {
		return vimba.Wrap("StartContinuousImageAcquisition", err)
	}
	c.observer, c.session = obs, session
	debug.Info("camera %s: acquisition started (session %s, %d buffers)", c.id, session, c.buffers)
	return nil
}

// StopContinuousImageAcquisition stops streaming. It is a no-op when
// idle. The observer is released even if the SDK reports an error.
func (c *Controller) StopContinuousImageAcquisition() error {
	c.acqMu.Lock()
	defer c.acqMu.Unlock()

	if c.observer == nil {
		return nil
	}
	err := c.cam.StopContinuousAcquisition()
	c.lastStats = c.observer.Stats()
	debug.Info("camera %s: acquisition stopped (session %s, %d frames)", c.id, c.session, c.lastStats.Received)
	c.observer, c.session = nil, ""
	if err != nil {
		return vimba.Wrap("StopContinuousImageAcquisition", err)
	}
	return nil
}

// Acquiring reports whether an acquisition is running.
func (c *Controller) Acquiring() bool {
	c.acqMu.Lock()
	defer c.acqMu.Unlock()
	return c.observer != nil
}

// Session returns the running acquisition's ID, or "" when idle.
func (c *Controller) Session() string {
	c.acqMu.Lock()
	defer c.acqMu.Unlock()
	return c.session
}

// Stats returns the live observer's counters, or those of the last run.
func (c *Controller) Stats() acquisition.Stats {
	c.acqMu.Lock()
	defer c.acqMu.Unlock()
	if c.observer != nil {
		return c.observer.Stats()
	}
	return c.lastStats
}

func (c *Controller) ColorProcessing() acquisition.ColorProcessing {
	c.acqMu.Lock()
	defer c.acqMu.Unlock()
	return c.color
}

// SetColorProcessing applies to the running acquisition and later ones.
func (c *Controller) SetColorProcessing(p acquisition.ColorProcessing) {
	c.acqMu.Lock()
	defer c.acqMu.Unlock()
	c.color = p
	if c.observer != nil {
		c.observer.SetColorProcessing(p)
	}
}

func (c *Controller) LogMode() acquisition.LogMode {
	c.acqMu.Lock()
	defer c.acqMu.Unlock()
	return c.logMode
}

// SetLogMode applies to the running acquisition and later ones.
func (c *Controller) SetLogMode(l acquisition.LogMode) {
	c.acqMu.Lock()
	defer c.acqMu.Unlock()
	c.logMode = l
	if c.observer != nil {
		c.observer.SetLogMode(l)
	}
}

// GetCurrentFrame returns the most recent decoded frame, or nil before
// the first one. The image must not be modified.
func (c *Controller) GetCurrentFrame() *acquisition.Image {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	return c.frame
}

// CheckNewFrame reports whether a frame arrived since the last call and
// clears the flag.
func (c *Controller) CheckNewFrame() bool {
	c.flagMu.Lock()
	defer c.flagMu.Unlock()
	v := c.newFrame
	c.newFrame = false
	return v
}

// frameObserved runs on the SDK goroutine.
func (c *Controller) frameObserved(img *acquisition.Image) {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	c.frame = img
	c.flagMu.Lock()
	c.newFrame = true
	c.flagMu.Unlock()
}

// Features lists the camera's features.
func (c *Controller) Features() ([]vimba.Feature, error) {
	fs, err := c.cam.Features()
	if err != nil {
		return nil, vimba.Wrap("Features", err)
	}
	return fs, nil
}

// FeatureByName looks a feature up by name.
func (c *Controller) FeatureByName(name string) (vimba.Feature, error) {
	f, err := c.cam.FeatureByName(name)
	if err != nil {
		return nil, fmt.Errorf("feature %s: %w", name, vimba.Wrap("FeatureByName", err))
	}
	return f, nil
}

// Close stops any acquisition and closes the camera.
func (c *Controller) Close() error {
	stopErr := c.StopContinuousImageAcquisition()
	closeErr := vimba.Wrap("CloseCamera", c.cam.Close())
	return errors.Join(stopErr, closeErr)
}
