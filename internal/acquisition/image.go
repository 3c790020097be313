// Package acquisition turns vendor frame callbacks into owned images.
package acquisition

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"
)

// Output pixel layouts handed to the vendor transform.
const (
	FormatRGB24 = "RGB24"
	FormatBGR24 = "BGR24"
)

// Image is a decoded frame in packed 24-bit RGB or BGR. It owns Pix.
type Image struct {
	Width    int
	Height   int
	Format   string
	Pix      []byte
	FrameID  uint64
	Received time.Time
	// Session identifies the acquisition run that produced the frame.
	Session string
}

func (m *Image) ColorModel() color.Model { return color.RGBAModel }

func (m *Image) Bounds() image.Rectangle { return image.Rect(0, 0, m.Width, m.Height) }

func (m *Image) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return color.RGBA{}
	}
	i := (y*m.Width + x) * 3
	if i+2 >= len(m.Pix) {
		return color.RGBA{}
	}
	r, g, b := m.Pix[i], m.Pix[i+1], m.Pix[i+2]
	if m.Format == FormatBGR24 {
		r, b = b, r
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// ColorProcessing selects the transform applied to complete frames.
type ColorProcessing int32

const (
	// ColorOff converts to RGB24 with no correction.
	ColorOff ColorProcessing = iota
	// ColorMatrix converts to BGR24 through the correction matrix.
	ColorMatrix
)

func (c ColorProcessing) String() string {
	switch c {
	case ColorOff:
		return "off"
	case ColorMatrix:
		return "matrix"
	}
	return fmt.Sprintf("ColorProcessing(%d)", int32(c))
}

// ParseColorProcessing accepts "off" and "matrix".
func ParseColorProcessing(s string) (ColorProcessing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off":
		return ColorOff, nil
	case "matrix":
		return ColorMatrix, nil
	}
	return ColorOff, fmt.Errorf("unknown color processing %q (want off or matrix)", s)
}

// LogMode controls how much the observer reports per frame.
type LogMode int32

const (
	LogOff LogMode = iota
	LogErrors
	LogWarnings
	LogShow
)

func (l LogMode) String() string {
	switch l {
	case LogOff:
		return "off"
	case LogErrors:
		return "errors"
	case LogWarnings:
		return "warnings"
	case LogShow:
		return "show"
	}
	return fmt.Sprintf("LogMode(%d)", int32(l))
}

// ParseLogMode accepts off, errors, warnings and show.
func ParseLogMode(s string) (LogMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off":
		return LogOff, nil
	case "errors", "error":
		return LogErrors, nil
	case "warnings", "warning":
		return LogWarnings, nil
	case "show", "all":
		return LogShow, nil
	}
	return LogOff, fmt.Errorf("unknown frame logging mode %q (want off, errors, warnings or show)", s)
}
