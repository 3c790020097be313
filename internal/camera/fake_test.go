package camera

import (
	"sync"

	"github.com/cjeanneret/GoVimba/internal/vimba"
)

// intFeature is a minimal integer feature recording writes.
type intFeature struct {
	vimba.Feature
	name     string
	value    int64
	min, max int64
	writes   []int64
	setErr   error
}

func (f *intFeature) Name() (string, error)                    { return f.name, nil }
func (f *intFeature) DataType() (vimba.FeatureDataType, error) { return vimba.FeatureDataInt, nil }
func (f *intFeature) Int() (int64, error)                      { return f.value, nil }
func (f *intFeature) IntRange() (int64, int64, error)          { return f.min, f.max, nil }

func (f *intFeature) SetInt(v int64) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.writes = append(f.writes, v)
	f.value = v
	return nil
}

// commandFeature completes after pending polls.
type commandFeature struct {
	vimba.Feature
	runs    int
	pending int
	runErr  error
}

func (f *commandFeature) RunCommand() error {
	f.runs++
	return f.runErr
}

func (f *commandFeature) IsCommandDone() (bool, error) {
	if f.pending > 0 {
		f.pending--
		return false, nil
	}
	return true, nil
}

type fakeCamera struct {
	id       string
	features map[string]vimba.Feature

	mu       sync.Mutex
	obs      vimba.FrameObserver
	buffers  int
	starts   int
	stops    int
	closed   bool
	startErr error
	stopErr  error
	queued   int
}

func newFakeCamera(id string, w, h int64) *fakeCamera {
	return &fakeCamera{id: id, features: map[string]vimba.Feature{
		"Width":  &intFeature{name: "Width", value: 640, min: 8, max: w},
		"Height": &intFeature{name: "Height", value: 480, min: 8, max: h},
	}}
}

func (c *fakeCamera) ID() (string, error)    { return c.id, nil }
func (c *fakeCamera) Name() (string, error)  { return "Fake " + c.id, nil }
func (c *fakeCamera) Model() (string, error) { return "FAKE", nil }

func (c *fakeCamera) Close() error {
	c.closed = true
	return nil
}

func (c *fakeCamera) Features() ([]vimba.Feature, error) {
	var out []vimba.Feature
	for _, f := range c.features {
		out = append(out, f)
	}
	return out, nil
}

func (c *fakeCamera) FeatureByName(name string) (vimba.Feature, error) {
	f, ok := c.features[name]
	if !ok {
		return nil, vimba.ErrorNotFound
	}
	return f, nil
}

func (c *fakeCamera) StartContinuousAcquisition(n int, obs vimba.FrameObserver) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	if c.startErr != nil {
		return c.startErr
	}
	c.obs, c.buffers = obs, n
	return nil
}

func (c *fakeCamera) StopContinuousAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	c.obs = nil
	return c.stopErr
}

func (c *fakeCamera) QueueFrame(vimba.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queued++
	return nil
}

// deliver plays the SDK thread.
func (c *fakeCamera) deliver(f vimba.Frame) {
	c.mu.Lock()
	obs := c.obs
	c.mu.Unlock()
	if obs != nil {
		obs.FrameReceived(f)
	}
}

type monoFrame struct{ id uint64 }

func (f monoFrame) FrameID() (uint64, error)                  { return f.id, nil }
func (f monoFrame) ReceiveStatus() (vimba.FrameStatus, error) { return vimba.FrameStatusComplete, nil }
func (f monoFrame) Width() (int, error)                       { return 2, nil }
func (f monoFrame) Height() (int, error)                      { return 2, nil }
func (f monoFrame) PixelFormat() (vimba.PixelFormat, error)   { return vimba.PixelFormatMono8, nil }
func (f monoFrame) Buffer() ([]byte, error)                   { return []byte{1, 2, 3, 4}, nil }

type greyTransformer struct{}

func (greyTransformer) Transform(src vimba.SourceImage, _ string, _ *vimba.Matrix3x3) ([]byte, error) {
	out := make([]byte, 0, len(src.Data)*3)
	for _, v := range src.Data {
		out = append(out, v, v, v)
	}
	return out, nil
}

type fakeSystem struct {
	cams      map[string]*fakeCamera
	listErr   error
	openErr   error
	startups  int
	shutdowns int
}

func (s *fakeSystem) Startup() error { s.startups++; return nil }

func (s *fakeSystem) Shutdown() error { s.shutdowns++; return nil }

func (s *fakeSystem) Cameras() ([]vimba.Camera, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []vimba.Camera
	for _, c := range s.cams {
		out = append(out, c)
	}
	return out, nil
}

func (s *fakeSystem) OpenCamera(id string, _ vimba.AccessMode) (vimba.Camera, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	c, ok := s.cams[id]
	if !ok {
		return nil, vimba.ErrorNotFound
	}
	return c, nil
}

func (s *fakeSystem) Transformer() vimba.Transformer { return greyTransformer{} }
func (s *fakeSystem) Version() string                { return "fake" }
