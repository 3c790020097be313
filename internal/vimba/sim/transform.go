package sim

import (
	"github.com/cjeanneret/GoVimba/internal/vimba"
)

// Transform converts raw camera buffers to packed 24-bit RGB or BGR. It
// supports the formats the simulated cameras produce and demosaics Bayer
// data by 2x2 nearest neighbour.
type Transform struct{}

func (Transform) Transform(src vimba.SourceImage, dstFormat string, m *vimba.Matrix3x3) ([]byte, error) {
	var swap bool
	switch dstFormat {
	case "RGB24":
	case "BGR24":
		swap = true
	default:
		return nil, vimba.ErrorBadParameter
	}
	w, h := src.Width, src.Height
	if w <= 0 || h <= 0 {
		return nil, vimba.ErrorBadParameter
	}
	bpp := src.Format.BitsPerPixel()
	if bpp == 0 || len(src.Data) < w*h*bpp/8 {
		return nil, vimba.ErrorStructSize
	}

	out := make([]byte, w*h*3)
	var px func(x, y int) (r, g, b byte)
	d := src.Data

	switch src.Format {
	case vimba.PixelFormatMono8:
		px = func(x, y int) (byte, byte, byte) {
			v := d[y*w+x]
			return v, v, v
		}
	case vimba.PixelFormatRGB8:
		px = func(x, y int) (byte, byte, byte) {
			i := (y*w + x) * 3
			return d[i], d[i+1], d[i+2]
		}
	case vimba.PixelFormatBGR8:
		px = func(x, y int) (byte, byte, byte) {
			i := (y*w + x) * 3
			return d[i+2], d[i+1], d[i]
		}
	case vimba.PixelFormatBayerRG8, vimba.PixelFormatBayerGR8:
		px = func(x, y int) (byte, byte, byte) {
			return demosaic(d, w, h, x, y, src.Format)
		}
	default:
		return nil, vimba.ErrorNotSupported
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := px(x, y)
			if m != nil {
				r, g, b = applyMatrix(m, r, g, b)
			}
			i := (y*w + x) * 3
			if swap {
				r, b = b, r
			}
			out[i], out[i+1], out[i+2] = r, g, b
		}
	}
	return out, nil
}

// demosaic samples the 2x2 cell containing (x, y).
func demosaic(d []byte, w, h, x, y int, pf vimba.PixelFormat) (byte, byte, byte) {
	x0, y0 := x&^1, y&^1
	at := func(xx, yy int) byte {
		xx, yy = min(xx, w-1), min(yy, h-1)
		return d[yy*w+xx]
	}
	tl, tr := at(x0, y0), at(x0+1, y0)
	bl, br := at(x0, y0+1), at(x0+1, y0+1)
	if pf == vimba.PixelFormatBayerGR8 {
		return tr, byte((int(tl) + int(br)) / 2), bl
	}
	return tl, byte((int(tr) + int(bl)) / 2), br
}

func applyMatrix(m *vimba.Matrix3x3, r, g, b byte) (byte, byte, byte) {
	fr, fg, fb := float32(r), float32(g), float32(b)
	row := func(i int) byte {
		v := m[i]*fr + m[i+1]*fg + m[i+2]*fb
		switch {
		case v < 0:
			return 0
		case v > 255:
			return 255
		}
		return byte(v + 0.5)
	}
	return row(0), row(3), row(6)
}
