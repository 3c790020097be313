// Package vimba describes the camera vendor SDK surface the rest of the
// module is written against: the system singleton, cameras, typed
// features, asynchronous frame delivery and the image transform routine.
//
// Implementations return bare ErrorCode values (or any error) from their
// methods; the wrapper packages translate them into *Error.
package vimba

// AccessMode selects how a camera is opened.
type AccessMode int

const (
	AccessNone AccessMode = iota
	AccessFull
	AccessRead
	AccessConfig
)

// System is the process-wide SDK handle.
type System interface {
	Startup() error
	// Shutdown must tolerate being called more than once.
	Shutdown() error
	Cameras() ([]Camera, error)
	OpenCamera(id string, mode AccessMode) (Camera, error)
	Transformer() Transformer
	Version() string
}

// Camera is an opened (or enumerated) device.
type Camera interface {
	ID() (string, error)
	Name() (string, error)
	Model() (string, error)
	Close() error

	Features() ([]Feature, error)
	FeatureByName(name string) (Feature, error)

	// StartContinuousAcquisition announces bufferCount frames, queues them
	// and starts streaming. obs is called from an SDK-owned goroutine.
	StartContinuousAcquisition(bufferCount int, obs FrameObserver) error
	// StopContinuousAcquisition returns once no further callbacks run.
	StopContinuousAcquisition() error
	// QueueFrame hands a delivered frame back to the SDK.
	QueueFrame(f Frame) error
}

// FrameObserver receives frames from the SDK. The frame buffer is only
// valid until it is queued again.
type FrameObserver interface {
	FrameReceived(f Frame)
}

// Frame is one delivered buffer plus metadata. Every getter can fail.
type Frame interface {
	FrameID() (uint64, error)
	ReceiveStatus() (FrameStatus, error)
	Width() (int, error)
	Height() (int, error)
	PixelFormat() (PixelFormat, error)
	Buffer() ([]byte, error)
}

// Feature is a named, typed camera parameter.
type Feature interface {
	Name() (string, error)
	DisplayName() (string, error)
	DataType() (FeatureDataType, error)
	// PollingTime is the suggested refresh interval in milliseconds.
	PollingTime() (uint32, error)
	Unit() (string, error)
	ToolTip() (string, error)
	Description() (string, error)

	Float() (float64, error)
	SetFloat(v float64) error
	FloatRange() (min, max float64, err error)
	FloatIncrement() (float64, error)

	Int() (int64, error)
	SetInt(v int64) error
	IntRange() (min, max int64, err error)
	IntIncrement() (int64, error)

	HasIncrement() (bool, error)

	Enum() (string, error)
	SetEnum(v string) error
	EnumEntries() ([]EnumEntry, error)

	Str() (string, error)
	SetStr(v string) error

	Bool() (bool, error)
	SetBool(v bool) error

	RunCommand() error
	IsCommandDone() (bool, error)
}

// SourceImage describes a raw buffer handed to the transform routine.
type SourceImage struct {
	Format PixelFormat
	Width  int
	Height int
	Data   []byte
}

// Matrix3x3 is a row-major colour-correction matrix.
type Matrix3x3 [9]float32

// Transformer is the SDK image transform. dstFormat is passed verbatim
// ("RGB24", "BGR24"). The returned buffer is newly allocated and owned by
// the caller. matrix may be nil.
type Transformer interface {
	Transform(src SourceImage, dstFormat string, matrix *Matrix3x3) ([]byte, error)
}
