// Package sim is an in-memory implementation of the vendor SDK surface.
// It stands in for the real transport layer during development and tests.
package sim

import (
	"fmt"
	"sync"

	"github.com/cjeanneret/GoVimba/internal/debug"
	"github.com/cjeanneret/GoVimba/internal/vimba"
)

const version = "sim 1.9.0"

// System is the simulated SDK singleton.
type System struct {
	mu      sync.Mutex
	started bool
	cams    []*Camera
	byID    map[string]*Camera
	tr      Transform
}

// NewSystem builds a system exposing one camera per spec. With no specs a
// single BayerRG8 camera called "DEV_SIM0" is created.
func NewSystem(specs ...CameraSpec) *System {
	if len(specs) == 0 {
		specs = []CameraSpec{{ID: "DEV_SIM0"}}
	}
	s := &System{byID: make(map[string]*Camera)}
	for i, spec := range specs {
		if spec.ID == "" {
			spec.ID = fmt.Sprintf("DEV_SIM%d", i)
		}
		c := newCamera(spec)
		s.cams = append(s.cams, c)
		s.byID[spec.ID] = c
	}
	return s
}

func (s *System) Startup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	debug.Verbose("sim: startup, %d camera(s)", len(s.cams))
	return nil
}

// Shutdown stops every stream and closes every camera. Calling it twice
// is harmless.
func (s *System) Shutdown() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cams := s.cams
	s.mu.Unlock()

	for _, c := range cams {
		_ = c.StopContinuousAcquisition()
		c.mu.Lock()
		c.open = false
		c.mu.Unlock()
	}
	debug.Verbose("sim: shutdown")
	return nil
}

func (s *System) running() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return vimba.ErrorApiNotStarted
	}
	return nil
}

func (s *System) Cameras() ([]vimba.Camera, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	out := make([]vimba.Camera, len(s.cams))
	for i, c := range s.cams {
		out[i] = c
	}
	return out, nil
}

func (s *System) OpenCamera(id string, mode vimba.AccessMode) (vimba.Camera, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	if mode == vimba.AccessNone {
		return nil, vimba.ErrorInvalidAccess
	}
	c, ok := s.byID[id]
	if !ok {
		return nil, vimba.ErrorNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		return nil, vimba.ErrorInvalidAccess
	}
	c.open = true
	debug.Verbose("sim: camera %s opened", id)
	return c, nil
}

func (s *System) Transformer() vimba.Transformer { return s.tr }
func (s *System) Version() string                { return version }

// Camera returns the simulated device behind id, for wiring inputs such
// as the trigger line.
func (s *System) Camera(id string) (*Camera, bool) {
	c, ok := s.byID[id]
	return c, ok
}
