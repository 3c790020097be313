package sim

import (
	"math"
	"sync"
	"time"

	"github.com/cjeanneret/GoVimba/internal/debug"
	"github.com/cjeanneret/GoVimba/internal/vimba"
)

// CameraSpec describes a simulated camera.
type CameraSpec struct {
	ID           string
	Name         string
	Model        string
	SensorWidth  int64
	SensorHeight int64
	PixelFormat  string
	FrameRate    float64
	// IncompleteEvery marks every Nth delivered frame Incomplete (0 = never).
	IncompleteEvery uint64
}

func (s CameraSpec) withDefaults() CameraSpec {
	if s.Name == "" {
		s.Name = "Simulated " + s.ID
	}
	if s.Model == "" {
		s.Model = "SIM-1"
	}
	if s.SensorWidth <= 0 {
		s.SensorWidth = 1936
	}
	if s.SensorHeight <= 0 {
		s.SensorHeight = 1216
	}
	if _, ok := vimba.ParsePixelFormat(s.PixelFormat); !ok {
		s.PixelFormat = vimba.PixelFormatBayerRG8.String()
	}
	if s.FrameRate <= 0 {
		s.FrameRate = 30
	}
	return s
}

// Stats counts buffer traffic for one camera.
type Stats struct {
	Delivered uint64
	Dropped   uint64
	Requeued  uint64
	// Outstanding is the number of frames handed to the observer and not
	// yet queued back.
	Outstanding int
}

// Camera is a simulated device. Once opened it can stream frames on its
// own goroutine, the way the vendor SDK calls observers from its threads.
type Camera struct {
	spec CameraSpec

	features []*feature
	byName   map[string]*feature

	mu        sync.Mutex
	open      bool
	streaming bool
	obs       vimba.FrameObserver
	free      chan *frame
	owned     map[*frame]bool
	trigger   chan struct{}
	stop      chan struct{}
	done      chan struct{}
	nextID    uint64
	stats     Stats
	line      bool
}

func newCamera(spec CameraSpec) *Camera {
	c := &Camera{spec: spec.withDefaults(), byName: make(map[string]*feature)}
	c.buildFeatures()
	return c
}

func (c *Camera) add(f *feature) {
	c.features = append(c.features, f)
	c.byName[f.name] = f
}

func (c *Camera) isStreaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

func (c *Camera) buildFeatures() {
	s := c.spec
	pf, _ := vimba.ParsePixelFormat(s.PixelFormat)

	c.add(&feature{name: "Width", typ: vimba.FeatureDataInt, unit: "px",
		i: s.SensorWidth, iMin: 8, iMax: s.SensorWidth, inc: 1, locked: c.isStreaming,
		tooltip: "Width of the image provided by the device."})
	c.add(&feature{name: "Height", typ: vimba.FeatureDataInt, unit: "px",
		i: s.SensorHeight, iMin: 8, iMax: s.SensorHeight, inc: 1, locked: c.isStreaming,
		tooltip: "Height of the image provided by the device."})
	c.add(&feature{name: "PixelFormat", typ: vimba.FeatureDataEnum,
		enum: pf.String(), locked: c.isStreaming,
		entries: []vimba.EnumEntry{
			{Name: "Mono8", DisplayName: "Mono8", Value: int64(vimba.PixelFormatMono8)},
			{Name: "BayerGR8", DisplayName: "BayerGR8", Value: int64(vimba.PixelFormatBayerGR8)},
			{Name: "BayerRG8", DisplayName: "BayerRG8", Value: int64(vimba.PixelFormatBayerRG8)},
			{Name: "RGB8Packed", DisplayName: "RGB8Packed", Value: int64(vimba.PixelFormatRGB8)},
			{Name: "BGR8Packed", DisplayName: "BGR8Packed", Value: int64(vimba.PixelFormatBGR8)},
		}})
	c.add(&feature{name: "ExposureTimeAbs", display: "Exposure Time", typ: vimba.FeatureDataFloat,
		unit: "us", f: 15000, fMin: 41, fMax: 153000000,
		description: "Sensor integration time."})
	c.add(&feature{name: "Gain", typ: vimba.FeatureDataFloat, unit: "dB", f: 0, fMin: 0, fMax: 32})
	c.add(&feature{name: "AcquisitionFrameRateAbs", display: "Frame Rate", typ: vimba.FeatureDataFloat,
		unit: "Hz", f: s.FrameRate, fMin: 1, fMax: math.Max(s.FrameRate, 60)})
	c.add(&feature{name: "TriggerMode", typ: vimba.FeatureDataEnum, enum: "Off",
		entries: entries("Off", "On")})
	c.add(&feature{name: "TriggerSource", typ: vimba.FeatureDataEnum, enum: "Freerun",
		entries: entries("Freerun", "Line1", "Software", "FixedRate")})
	c.add(&feature{name: "TriggerSoftware", typ: vimba.FeatureDataCommand,
		run: func() int { c.fire("Software"); return 0 }})

	packet := &feature{name: "GVSPPacketSize", typ: vimba.FeatureDataInt, unit: "B",
		i: 1500, iMin: 500, iMax: 9000, inc: 4, locked: c.isStreaming}
	c.add(packet)
	c.add(&feature{name: "GVSPAdjustPacketSize", typ: vimba.FeatureDataCommand,
		run: func() int {
			packet.mu.Lock()
			packet.i = 8228
			packet.mu.Unlock()
			return 3
		}})

	start := time.Now()
	c.add(&feature{name: "DeviceTemperature", typ: vimba.FeatureDataFloat, unit: "C",
		pollMs: 5000, f: 38, fMin: -40, fMax: 100, readOnly: true,
		onRead: func(f *feature) {
			f.f = 38 + 2*math.Sin(time.Since(start).Seconds()/60)
		}})
	c.add(&feature{name: "DeviceModelName", typ: vimba.FeatureDataString, s: s.Model, readOnly: true})
}

func (c *Camera) ID() (string, error)    { return c.spec.ID, nil }
func (c *Camera) Name() (string, error)  { return c.spec.Name, nil }
func (c *Camera) Model() (string, error) { return c.spec.Model, nil }

func (c *Camera) Close() error {
	if err := c.StopContinuousAcquisition(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return vimba.ErrorDeviceNotOpen
	}
	c.open = false
	debug.Verbose("sim: camera %s closed", c.spec.ID)
	return nil
}

func (c *Camera) opened() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return vimba.ErrorDeviceNotOpen
	}
	return nil
}

func (c *Camera) Features() ([]vimba.Feature, error) {
	if err := c.opened(); err != nil {
		return nil, err
	}
	out := make([]vimba.Feature, len(c.features))
	for i, f := range c.features {
		out[i] = f
	}
	return out, nil
}

func (c *Camera) FeatureByName(name string) (vimba.Feature, error) {
	if err := c.opened(); err != nil {
		return nil, err
	}
	f, ok := c.byName[name]
	if !ok {
		return nil, vimba.ErrorNotFound
	}
	return f, nil
}

func (c *Camera) StartContinuousAcquisition(bufferCount int, obs vimba.FrameObserver) error {
	if bufferCount < 1 || obs == nil {
		return vimba.ErrorBadParameter
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return vimba.ErrorDeviceNotOpen
	}
	if c.streaming {
		return vimba.ErrorInvalidCall
	}

	c.free = make(chan *frame, bufferCount)
	c.owned = make(map[*frame]bool, bufferCount)
	for i := 0; i < bufferCount; i++ {
		fr := &frame{cam: c}
		c.owned[fr] = false
		c.free <- fr
	}
	c.obs = obs
	c.trigger = make(chan struct{}, 1)
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.streaming = true

	debug.Verbose("sim: camera %s streaming with %d buffers", c.spec.ID, bufferCount)
	go c.deliver(c.stop, c.done, c.trigger)
	return nil
}

// StopContinuousAcquisition waits for the delivery goroutine, so no
// observer callback runs once it returns.
func (c *Camera) StopContinuousAcquisition() error {
	c.mu.Lock()
	if !c.streaming {
		c.mu.Unlock()
		return nil
	}
	stop, done := c.stop, c.done
	c.stop = nil
	c.mu.Unlock()

	if stop == nil {
		// another caller is already stopping
		<-done
		return nil
	}
	close(stop)
	<-done

	c.mu.Lock()
	c.streaming = false
	c.obs = nil
	c.free = nil
	c.owned = nil
	c.mu.Unlock()
	debug.Verbose("sim: camera %s stopped", c.spec.ID)
	return nil
}

func (c *Camera) QueueFrame(f vimba.Frame) error {
	fr, ok := f.(*frame)
	if !ok || fr == nil {
		return vimba.ErrorBadHandle
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.streaming {
		return vimba.ErrorInvalidCall
	}
	out, known := c.owned[fr]
	if !known {
		return vimba.ErrorBadHandle
	}
	if !out {
		// already queued
		return vimba.ErrorInvalidCall
	}
	c.owned[fr] = false
	c.stats.Requeued++
	c.stats.Outstanding--
	c.free <- fr
	return nil
}

// Stats returns buffer traffic counters.
func (c *Camera) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// SetLine drives the camera's Line1 input. A rising edge triggers a frame
// when TriggerMode is On and TriggerSource is Line1.
func (c *Camera) SetLine(high bool) {
	c.mu.Lock()
	rising := high && !c.line
	c.line = high
	c.mu.Unlock()
	if rising {
		c.fire("Line1")
	}
}

func (c *Camera) fire(source string) {
	if c.byName["TriggerMode"].enumValue() != "On" || c.byName["TriggerSource"].enumValue() != source {
		return
	}
	c.mu.Lock()
	ch := c.trigger
	c.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
		// a trigger is already pending
	}
}

func (c *Camera) triggered() bool {
	if c.byName["TriggerMode"].enumValue() != "On" {
		return false
	}
	src := c.byName["TriggerSource"].enumValue()
	return src != "Freerun" && src != "FixedRate"
}

func (c *Camera) framePeriod() time.Duration {
	fps := c.byName["AcquisitionFrameRateAbs"].floatValue()
	if fps <= 0 {
		fps = 1
	}
	return time.Duration(float64(time.Second) / fps)
}

func (c *Camera) deliver(stop <-chan struct{}, done chan<- struct{}, trigger <-chan struct{}) {
	defer close(done)

	timer := time.NewTimer(c.framePeriod())
	defer timer.Stop()

	for {
		if c.triggered() {
			select {
			case <-stop:
				return
			case <-trigger:
			case <-timer.C:
				// re-check the trigger configuration periodically
				timer.Reset(c.framePeriod())
				continue
			}
		} else {
			select {
			case <-stop:
				return
			case <-timer.C:
			}
			timer.Reset(c.framePeriod())
		}
		c.deliverOne()
	}
}

func (c *Camera) deliverOne() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	var fr *frame
	select {
	case fr = <-c.free:
	default:
	}
	if fr == nil {
		c.stats.Dropped++
		c.mu.Unlock()
		debug.Trace("sim: camera %s dropped frame %d (no free buffer)", c.spec.ID, id)
		return
	}
	c.owned[fr] = true
	c.stats.Delivered++
	c.stats.Outstanding++
	obs := c.obs
	c.mu.Unlock()

	w := int(c.byName["Width"].intValue())
	h := int(c.byName["Height"].intValue())
	pf, _ := vimba.ParsePixelFormat(c.byName["PixelFormat"].enumValue())
	gain := c.byName["Gain"].floatValue()
	exposure := c.byName["ExposureTimeAbs"].floatValue()

	status := vimba.FrameStatusComplete
	if n := c.spec.IncompleteEvery; n > 0 && (id+1)%n == 0 {
		status = vimba.FrameStatusIncomplete
	}
	fr.fill(id, status, w, h, pf, brightness(exposure, gain))
	obs.FrameReceived(fr)
}
