package sim

import (
	"math"

	"github.com/cjeanneret/GoVimba/internal/vimba"
)

// frame is one announced buffer. It is refilled in place each time the
// camera delivers into it, like a vendor-owned DMA buffer.
type frame struct {
	cam    *Camera
	id     uint64
	status vimba.FrameStatus
	width  int
	height int
	format vimba.PixelFormat
	buf    []byte
}

func (f *frame) FrameID() (uint64, error)                  { return f.id, nil }
func (f *frame) ReceiveStatus() (vimba.FrameStatus, error) { return f.status, nil }
func (f *frame) Width() (int, error)                       { return f.width, nil }
func (f *frame) Height() (int, error)                      { return f.height, nil }
func (f *frame) PixelFormat() (vimba.PixelFormat, error)   { return f.format, nil }
func (f *frame) Buffer() ([]byte, error)                   { return f.buf, nil }

func (f *frame) fill(id uint64, status vimba.FrameStatus, w, h int, pf vimba.PixelFormat, gain float64) {
	f.id, f.status, f.width, f.height, f.format = id, status, w, h, pf
	size := w * h * pf.BitsPerPixel() / 8
	if cap(f.buf) < size {
		f.buf = make([]byte, size)
	}
	f.buf = f.buf[:size]
	drawPattern(f.buf, w, h, pf, id, gain)
	if status == vimba.FrameStatusIncomplete {
		// lost packets leave the tail of the buffer stale
		clear(f.buf[size/2:])
	}
}

// brightness converts exposure (us) and gain (dB) into a linear factor
// relative to the default 15 ms exposure.
func brightness(exposureUs, gainDB float64) float64 {
	return exposureUs / 15000 * math.Pow(10, gainDB/20)
}

func scale(v int, k float64) byte {
	s := float64(v) * k
	if s > 255 {
		return 255
	}
	if s < 0 {
		return 0
	}
	return byte(s)
}

// drawPattern paints a diagonal colour ramp that scrolls with the frame ID.
func drawPattern(buf []byte, w, h int, pf vimba.PixelFormat, id uint64, k float64) {
	shift := int(id*4) & 0xff
	rgb := func(x, y int) (byte, byte, byte) {
		r := (x*255/max(w-1, 1) + shift) & 0xff
		g := (y*255/max(h-1, 1) + shift) & 0xff
		b := (255 - r + g) / 2 & 0xff
		return scale(r, k), scale(g, k), scale(b, k)
	}

	switch pf {
	case vimba.PixelFormatMono8:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, b := rgb(x, y)
				buf[y*w+x] = byte((int(r)*3 + int(g)*6 + int(b)) / 10)
			}
		}
	case vimba.PixelFormatRGB8, vimba.PixelFormatBGR8:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, b := rgb(x, y)
				i := (y*w + x) * 3
				if pf == vimba.PixelFormatBGR8 {
					r, b = b, r
				}
				buf[i], buf[i+1], buf[i+2] = r, g, b
			}
		}
	case vimba.PixelFormatBayerRG8, vimba.PixelFormatBayerGR8:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, b := rgb(x, y)
				buf[y*w+x] = bayerPick(pf, x, y, r, g, b)
			}
		}
	}
}

// bayerPick returns the channel the mosaic samples at (x, y).
func bayerPick(pf vimba.PixelFormat, x, y int, r, g, b byte) byte {
	evenRow, evenCol := y%2 == 0, x%2 == 0
	if pf == vimba.PixelFormatBayerGR8 {
		evenCol = !evenCol
	}
	switch {
	case evenRow && evenCol:
		return r
	case !evenRow && !evenCol:
		return b
	default:
		return g
	}
}
