package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/cjeanneret/GoVimba/internal/acquisition"
	"github.com/cjeanneret/GoVimba/internal/debug"
	"github.com/cjeanneret/GoVimba/internal/feature"
)

var (
	// ErrUnknownCamera is returned for a camera ID the host does not own.
	ErrUnknownCamera = errors.New("unknown camera")
	// ErrUnknownFeature is returned for a feature that is not polled.
	ErrUnknownFeature = errors.New("unknown feature")
	// ErrNoFrame is returned before a camera has delivered its first frame.
	ErrNoFrame = errors.New("no frame yet")
)

// Camera is what the host needs from a camera controller.
type Camera interface {
	Source
	Name() string
	Model() string
	StartContinuousImageAcquisition() error
	StopContinuousImageAcquisition() error
	Acquiring() bool
	Session() string
	Stats() acquisition.Stats
}

// CameraInfo describes one camera for display.
type CameraInfo struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Model     string            `json:"model"`
	Acquiring bool              `json:"acquiring"`
	Session   string            `json:"session,omitempty"`
	Stats     acquisition.Stats `json:"stats"`
}

// Host ties cameras to their feature pollers and the loop that owns them.
type Host struct {
	loop    *Loop
	cams    map[string]Camera
	pollers map[string]*feature.Poller
}

// NewHost registers cams. pollers is keyed by camera ID; the same pollers
// must be ticked by loop.
func NewHost(loop *Loop, cams []Camera, pollers map[string]*feature.Poller) *Host {
	h := &Host{loop: loop, cams: make(map[string]Camera, len(cams)), pollers: pollers}
	for _, c := range cams {
		h.cams[c.ID()] = c
	}
	if h.pollers == nil {
		h.pollers = make(map[string]*feature.Poller)
	}
	return h
}

func (h *Host) camera(id string) (Camera, error) {
	c, ok := h.cams[id]
	if !ok {
		return nil, fmt.Errorf("camera %s: %w", id, ErrUnknownCamera)
	}
	return c, nil
}

// Cameras lists the cameras sorted by ID.
func (h *Host) Cameras() []CameraInfo {
	out := make([]CameraInfo, 0, len(h.cams))
	for _, c := range h.cams {
		out = append(out, CameraInfo{
			ID:        c.ID(),
			Name:      c.Name(),
			Model:     c.Model(),
			Acquiring: c.Acquiring(),
			Session:   c.Session(),
			Stats:     c.Stats(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (h *Host) Start(id string) error {
	c, err := h.camera(id)
	if err != nil {
		return err
	}
	if err := c.StartContinuousImageAcquisition(); err != nil {
		return err
	}
	debug.Info("camera %s: acquisition started (session %s)", id, c.Session())
	return nil
}

func (h *Host) Stop(id string) error {
	c, err := h.camera(id)
	if err != nil {
		return err
	}
	if err := c.StopContinuousImageAcquisition(); err != nil {
		return err
	}
	debug.Info("camera %s: acquisition stopped", id)
	return nil
}

// StartAll starts every camera and joins the failures.
func (h *Host) StartAll() error {
	var errs []error
	for _, info := range h.Cameras() {
		if err := h.Start(info.ID); err != nil {
			errs = append(errs, fmt.Errorf("camera %s: %w", info.ID, err))
		}
	}
	return errors.Join(errs...)
}

// StopAll stops every camera and joins the failures.
func (h *Host) StopAll() error {
	var errs []error
	for _, info := range h.Cameras() {
		if err := h.Stop(info.ID); err != nil {
			errs = append(errs, fmt.Errorf("camera %s: %w", info.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Frame returns the latest frame of a camera without consuming the
// new-frame flag.
func (h *Host) Frame(id string) (*acquisition.Image, error) {
	c, err := h.camera(id)
	if err != nil {
		return nil, err
	}
	img := c.GetCurrentFrame()
	if img == nil {
		return nil, fmt.Errorf("camera %s: %w", id, ErrNoFrame)
	}
	return img, nil
}

// Features snapshots the polled features of a camera on the loop goroutine.
func (h *Host) Features(ctx context.Context, id string) ([]feature.Info, error) {
	p, err := h.poller(id)
	if err != nil {
		return nil, err
	}
	var out []feature.Info
	err = h.loop.Do(ctx, func() error {
		for _, c := range p.Containers() {
			out = append(out, feature.Describe(c))
		}
		return nil
	})
	return out, err
}

// SetFeature writes value to a polled feature on the loop goroutine and
// returns the value the camera applied. value is a JSON-decoded number or
// string: doubles take any number, ints take integral numbers, enums take
// an entry name or an index.
func (h *Host) SetFeature(ctx context.Context, id, name string, value any) (any, error) {
	p, err := h.poller(id)
	if err != nil {
		return nil, err
	}
	var applied any
	err = h.loop.Do(ctx, func() error {
		c, ok := p.Lookup(name)
		if !ok {
			return fmt.Errorf("camera %s feature %s: %w", id, name, ErrUnknownFeature)
		}
		v, serr := setContainer(c, value)
		applied = v
		return serr
	})
	if err != nil {
		return nil, err
	}
	debug.Live("camera %s: %s set to %v", id, name, applied)
	return applied, nil
}

func (h *Host) poller(id string) (*feature.Poller, error) {
	if _, err := h.camera(id); err != nil {
		return nil, err
	}
	p, ok := h.pollers[id]
	if !ok {
		return feature.NewPoller(), nil
	}
	return p, nil
}

func setContainer(c feature.Container, value any) (any, error) {
	switch fc := c.(type) {
	case *feature.Double:
		v, ok := value.(float64)
		if !ok {
			return nil, fmt.Errorf("%s wants a number, got %T: %w", c.Name(), value, feature.ErrInvalidValue)
		}
		return fc.SetValue(v)
	case *feature.Int:
		v, ok := integral(value)
		if !ok {
			return nil, fmt.Errorf("%s wants an integer, got %v: %w", c.Name(), value, feature.ErrInvalidValue)
		}
		return fc.SetValue(v)
	case *feature.Enum:
		switch v := value.(type) {
		case string:
			return fc.SetValue(v)
		case float64:
			i, ok := integral(v)
			if !ok {
				return nil, fmt.Errorf("%s index %v: %w", c.Name(), v, feature.ErrEnumIndex)
			}
			if _, err := fc.SetIndex(int(i)); err != nil {
				return nil, err
			}
			return fc.Value(), nil
		}
		return nil, fmt.Errorf("%s wants an entry name or index, got %T: %w", c.Name(), value, feature.ErrInvalidValue)
	}
	return nil, fmt.Errorf("%s: %w", c.Name(), feature.ErrInvalidValue)
}

func integral(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || math.Abs(v) > 1<<53 {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}
