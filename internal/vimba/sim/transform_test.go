package sim

import (
	"errors"
	"testing"

	"github.com/cjeanneret/GoVimba/internal/vimba"
)

func TestTransform_Formats(t *testing.T) {
	var tr Transform

	cases := []struct {
		name string
		src  vimba.SourceImage
		dst  string
		want []byte
	}{
		{
			name: "mono_to_rgb",
			src:  vimba.SourceImage{Format: vimba.PixelFormatMono8, Width: 2, Height: 1, Data: []byte{10, 200}},
			dst:  "RGB24",
			want: []byte{10, 10, 10, 200, 200, 200},
		},
		{
			name: "rgb_to_bgr",
			src:  vimba.SourceImage{Format: vimba.PixelFormatRGB8, Width: 1, Height: 1, Data: []byte{1, 2, 3}},
			dst:  "BGR24",
			want: []byte{3, 2, 1},
		},
		{
			name: "bgr_to_rgb",
			src:  vimba.SourceImage{Format: vimba.PixelFormatBGR8, Width: 1, Height: 1, Data: []byte{1, 2, 3}},
			dst:  "RGB24",
			want: []byte{3, 2, 1},
		},
		{
			name: "bayer_rg",
			// R G
			// G B
			src:  vimba.SourceImage{Format: vimba.PixelFormatBayerRG8, Width: 2, Height: 2, Data: []byte{100, 50, 70, 30}},
			dst:  "RGB24",
			want: []byte{100, 60, 30, 100, 60, 30, 100, 60, 30, 100, 60, 30},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tr.Transform(tc.src, tc.dst, nil)
			if err != nil {
				t.Fatalf("Transform: %v", err)
			}
			if string(got) != string(tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTransform_Matrix(t *testing.T) {
	m := vimba.Matrix3x3{0.6, 0.3, 0.1, 0.6, 0.3, 0.1, 0.6, 0.3, 0.1}
	src := vimba.SourceImage{Format: vimba.PixelFormatRGB8, Width: 1, Height: 1, Data: []byte{100, 200, 50}}
	got, err := Transform{}.Transform(src, "BGR24", &m)
	if err != nil {
		t.Fatal(err)
	}
	// 0.6*100 + 0.3*200 + 0.1*50 = 125 on every channel
	for i, v := range got {
		if v != 125 {
			t.Errorf("channel %d = %d, want 125", i, v)
		}
	}
}

func TestTransform_Errors(t *testing.T) {
	var tr Transform
	ok := vimba.SourceImage{Format: vimba.PixelFormatMono8, Width: 2, Height: 2, Data: make([]byte, 4)}

	if _, err := tr.Transform(ok, "YUV", nil); !errors.Is(err, vimba.ErrorBadParameter) {
		t.Errorf("bad dst err = %v", err)
	}
	short := ok
	short.Data = short.Data[:3]
	if _, err := tr.Transform(short, "RGB24", nil); !errors.Is(err, vimba.ErrorStructSize) {
		t.Errorf("short buffer err = %v", err)
	}
	odd := ok
	odd.Format = vimba.PixelFormat(0x01100003)
	odd.Data = make([]byte, 8)
	if _, err := tr.Transform(odd, "RGB24", nil); !errors.Is(err, vimba.ErrorNotSupported) {
		t.Errorf("unsupported src err = %v", err)
	}
}

func TestDrawPattern_Sizes(t *testing.T) {
	for _, pf := range []vimba.PixelFormat{
		vimba.PixelFormatMono8, vimba.PixelFormatRGB8, vimba.PixelFormatBGR8,
		vimba.PixelFormatBayerRG8, vimba.PixelFormatBayerGR8,
	} {
		var f frame
		f.fill(7, vimba.FrameStatusComplete, 5, 3, pf, 1)
		if want := 5 * 3 * pf.BitsPerPixel() / 8; len(f.buf) != want {
			t.Errorf("%s: buffer %d bytes, want %d", pf, len(f.buf), want)
		}
		if _, err := (Transform{}).Transform(vimba.SourceImage{Format: pf, Width: 5, Height: 3, Data: f.buf}, "RGB24", nil); err != nil {
			t.Errorf("%s: transform: %v", pf, err)
		}
	}
}
