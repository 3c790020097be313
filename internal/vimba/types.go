package vimba

import "fmt"

// FeatureDataType is the declared type of a feature.
type FeatureDataType int

const (
	FeatureDataUnknown FeatureDataType = iota
	FeatureDataInt
	FeatureDataFloat
	FeatureDataEnum
	FeatureDataString
	FeatureDataBool
	FeatureDataCommand
	FeatureDataRaw
	FeatureDataNone
)

func (t FeatureDataType) String() string {
	switch t {
	case FeatureDataInt:
		return "INT"
	case FeatureDataFloat:
		return "FLOAT64 (double)"
	case FeatureDataEnum:
		return "ENUM"
	case FeatureDataString:
		return "STRING"
	case FeatureDataBool:
		return "BOOL"
	case FeatureDataCommand:
		return "COMMAND"
	case FeatureDataRaw:
		return "RAW"
	case FeatureDataNone:
		return "NONE"
	case FeatureDataUnknown:
		return "UNKNOWN"
	default:
		return "UNDEFINED"
	}
}

// FrameStatus is the receive status of a delivered frame.
type FrameStatus int

const (
	FrameStatusComplete FrameStatus = iota
	FrameStatusIncomplete
	FrameStatusTooSmall
	FrameStatusInvalid
)

func (s FrameStatus) String() string {
	switch s {
	case FrameStatusComplete:
		return "Complete"
	case FrameStatusIncomplete:
		return "Incomplete"
	case FrameStatusTooSmall:
		return "Too small"
	case FrameStatusInvalid:
		return "Invalid"
	default:
		return "unknown frame status"
	}
}

// PixelFormat is a GenICam PFNC pixel format code.
type PixelFormat uint32

const (
	PixelFormatMono8    PixelFormat = 0x01080001
	PixelFormatBayerGR8 PixelFormat = 0x01080008
	PixelFormatBayerRG8 PixelFormat = 0x01080009
	PixelFormatRGB8     PixelFormat = 0x02180014
	PixelFormatBGR8     PixelFormat = 0x02180015
)

var pixelFormatNames = map[PixelFormat]string{
	PixelFormatMono8:    "Mono8",
	PixelFormatBayerGR8: "BayerGR8",
	PixelFormatBayerRG8: "BayerRG8",
	PixelFormatRGB8:     "RGB8Packed",
	PixelFormatBGR8:     "BGR8Packed",
}

func (p PixelFormat) String() string {
	if name, ok := pixelFormatNames[p]; ok {
		return name
	}
	return fmt.Sprintf("0x%x", uint32(p))
}

// ParsePixelFormat maps an enum entry name to its code.
func ParsePixelFormat(name string) (PixelFormat, bool) {
	for code, n := range pixelFormatNames {
		if n == name {
			return code, true
		}
	}
	return 0, false
}

// BitsPerPixel reports the storage size of one pixel.
func (p PixelFormat) BitsPerPixel() int {
	return int((uint32(p) >> 16) & 0xff)
}

// EnumEntry is one selectable value of an enum feature.
type EnumEntry struct {
	Name        string
	DisplayName string
	Value       int64
}
