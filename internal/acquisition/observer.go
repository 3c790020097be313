package acquisition

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cjeanneret/GoVimba/internal/debug"
	"github.com/cjeanneret/GoVimba/internal/vimba"
)

// correctionMatrix is applied in ColorMatrix mode.
var correctionMatrix = vimba.Matrix3x3{
	0.6, 0.3, 0.1,
	0.6, 0.3, 0.1,
	0.6, 0.3, 0.1,
}

// Stats summarizes what an observer has seen. Counters are cumulative.
type Stats struct {
	Received        uint64  `json:"received"`
	Complete        uint64  `json:"complete"`
	NotComplete     uint64  `json:"not_complete"` // Incomplete, TooSmall or Invalid
	StatusErrors    uint64  `json:"status_errors"`
	Missing         uint64  `json:"missing"`
	NilFrames       uint64  `json:"nil_frames"`
	TransformErrors uint64  `json:"transform_errors"`
	RequeueErrors   uint64  `json:"requeue_errors"`
	FPS             float64 `json:"fps"`
}

// Observer is the vendor callback target for one camera. FrameReceived
// runs on the vendor's goroutine; the setters are safe from any goroutine.
type Observer struct {
	cam     vimba.Camera
	tr      vimba.Transformer
	cb      func(*Image)
	now     func() time.Time
	session string

	color   atomic.Int32
	logMode atomic.Int32

	mu       sync.Mutex
	stats    Stats
	lastID   uint64
	lastTime time.Time
	haveLast bool
}

// Option customizes an Observer.
type Option func(*Observer)

func WithColorProcessing(c ColorProcessing) Option {
	return func(o *Observer) { o.color.Store(int32(c)) }
}

func WithLogMode(l LogMode) Option {
	return func(o *Observer) { o.logMode.Store(int32(l)) }
}

// WithClock replaces time.Now for receive timestamps and FPS.
func WithClock(now func() time.Time) Option {
	return func(o *Observer) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSession tags produced images with an acquisition session ID.
func WithSession(id string) Option {
	return func(o *Observer) { o.session = id }
}

// NewObserver returns an observer that requeues every frame on cam and
// hands complete, transformed frames to cb.
func NewObserver(cam vimba.Camera, tr vimba.Transformer, cb func(*Image), opts ...Option) *Observer {
	o := &Observer{cam: cam, tr: tr, cb: cb, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Observer) SetColorProcessing(c ColorProcessing) { o.color.Store(int32(c)) }
func (o *Observer) ColorProcessing() ColorProcessing     { return ColorProcessing(o.color.Load()) }
func (o *Observer) SetLogMode(l LogMode)                 { o.logMode.Store(int32(l)) }
func (o *Observer) LogMode() LogMode                     { return LogMode(o.logMode.Load()) }

// Stats returns a snapshot of the counters.
func (o *Observer) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// FrameReceived handles one delivered frame. The frame is always handed
// back to the camera unless it is nil.
func (o *Observer) FrameReceived(f vimba.Frame) {
	if f == nil {
		o.mu.Lock()
		o.stats.NilFrames++
		o.mu.Unlock()
		o.logf(LogErrors, "frame observer: received nil frame")
		return
	}

	received := o.now()
	o.track(f, received)

	status, err := f.ReceiveStatus()
	if err == nil && status == vimba.FrameStatusComplete {
		img, err := o.transform(f, received)
		if err != nil {
			o.mu.Lock()
			o.stats.TransformErrors++
			o.mu.Unlock()
			o.logf(LogErrors, "frame observer: %v", err)
		} else if o.cb != nil {
			o.cb(img)
		}
	}

	if err := o.cam.QueueFrame(f); err != nil {
		o.mu.Lock()
		o.stats.RequeueErrors++
		o.mu.Unlock()
		o.logf(LogErrors, "frame observer: %v", vimba.Wrap("QueueFrame", err))
	}
}

// track updates counters and emits the per-frame log lines.
func (o *Observer) track(f vimba.Frame, received time.Time) {
	id, idErr := f.FrameID()
	status, statusErr := f.ReceiveStatus()

	o.mu.Lock()
	o.stats.Received++
	var missing uint64
	fps := -1.0
	if idErr == nil {
		if o.haveLast && id > o.lastID {
			missing = id - o.lastID - 1
		}
		if o.haveLast && missing == 0 && id > o.lastID {
			if dt := received.Sub(o.lastTime); dt > 0 {
				fps = 1 / dt.Seconds()
				o.stats.FPS = fps
			}
		}
		o.stats.Missing += missing
		o.lastID, o.lastTime, o.haveLast = id, received, true
	} else {
		// an unreadable id breaks the sequence
		o.haveLast = false
	}
	switch {
	case statusErr != nil:
		o.stats.StatusErrors++
	case status == vimba.FrameStatusComplete:
		o.stats.Complete++
	default:
		o.stats.NotComplete++
	}
	o.mu.Unlock()

	if o.LogMode() == LogOff {
		return
	}
	if idErr != nil {
		o.logf(LogErrors, "frame observer: %v", vimba.Wrap("FrameID", idErr))
	}
	if statusErr != nil {
		o.logf(LogErrors, "frame observer: %v", vimba.Wrap("ReceiveStatus", statusErr))
	}
	if missing > 0 {
		o.logf(LogWarnings, "frame %d: %d missing frame(s) before it", id, missing)
	}
	if statusErr == nil && status != vimba.FrameStatusComplete {
		o.logf(LogWarnings, "frame %d: status %s", id, status)
	}
	if o.LogMode() >= LogShow {
		o.logf(LogShow, "frame %s status=%s size=%s format=%s fps=%s",
			fieldOr(idErr, id), fieldOr(statusErr, status), sizeOf(f), formatOf(f), fpsString(fps))
	}
}

func fieldOr(err error, v any) string {
	if err != nil {
		return "?"
	}
	return fmt.Sprint(v)
}

func sizeOf(f vimba.Frame) string {
	w, errW := f.Width()
	h, errH := f.Height()
	return fieldOr(errW, w) + "x" + fieldOr(errH, h)
}

func formatOf(f vimba.Frame) string {
	pf, err := f.PixelFormat()
	if err != nil {
		return "?"
	}
	return fmt.Sprintf("0x%x", uint32(pf))
}

func fpsString(fps float64) string {
	if fps < 0 {
		return "?"
	}
	return fmt.Sprintf("%.2f", fps)
}

func (o *Observer) transform(f vimba.Frame, received time.Time) (*Image, error) {
	const op = "Transform"
	id, _ := f.FrameID()
	w, err := f.Width()
	if err != nil {
		return nil, vimba.Wrap(op, err)
	}
	h, err := f.Height()
	if err != nil {
		return nil, vimba.Wrap(op, err)
	}
	pf, err := f.PixelFormat()
	if err != nil {
		return nil, vimba.Wrap(op, err)
	}
	buf, err := f.Buffer()
	if err != nil {
		return nil, vimba.Wrap(op, err)
	}

	var dst string
	var m *vimba.Matrix3x3
	switch mode := o.ColorProcessing(); mode {
	case ColorOff:
		dst = FormatRGB24
	case ColorMatrix:
		dst = FormatBGR24
		mat := correctionMatrix
		m = &mat
	default:
		return nil, vimba.Errorf(op, vimba.ErrorBadParameter, "unknown color processing %s", mode)
	}

	out, err := o.tr.Transform(vimba.SourceImage{Format: pf, Width: w, Height: h, Data: buf}, dst, m)
	if err != nil {
		return nil, vimba.Wrap(op, err)
	}
	if len(out) < w*h*3 {
		return nil, vimba.Errorf(op, vimba.ErrorStructSize, "transform returned %d bytes for %dx%d", len(out), w, h)
	}
	return &Image{
		Width:    w,
		Height:   h,
		Format:   dst,
		Pix:      out,
		FrameID:  id,
		Received: received,
		Session:  o.session,
	}, nil
}

func (o *Observer) logf(level LogMode, format string, args ...any) {
	if o.LogMode() < level {
		return
	}
	switch level {
	case LogErrors:
		debug.Errorf(format, args...)
	case LogWarnings:
		debug.Warn(format, args...)
	default:
		debug.Info(format, args...)
	}
}
