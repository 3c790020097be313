package feature

import (
	"errors"
	"testing"

	"github.com/cjeanneret/GoVimba/internal/vimba"
)

func TestGetValue_Typed(t *testing.T) {
	f := newFloatFeature("Gain", 4.5, 0, 10)
	v, err := GetValue[float64](f)
	if err != nil || v != 4.5 {
		t.Errorf("GetValue[float64] = %g, %v", v, err)
	}

	if _, err := GetValue[int64](f); !errors.Is(err, vimba.ErrorWrongType) {
		t.Errorf("GetValue[int64] on float feature err = %v", err)
	}
}

func TestGetValue_StringReadsEnum(t *testing.T) {
	f := newEnumFeature("PixelFormat", "Mono8", "Mono8", "RGB8Packed")
	v, err := GetValue[string](f)
	if err != nil || v != "Mono8" {
		t.Errorf("GetValue[string] = %q, %v", v, err)
	}
	if err := SetValue(f, "RGB8Packed"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if f.enum != "RGB8Packed" {
		t.Errorf("enum = %q", f.enum)
	}
}

func TestAccessor_ErrorCarriesOp(t *testing.T) {
	f := newIntFeature("Width", 640, 8, 1280)
	f.rangeErr = vimba.ErrorInvalidAccess

	_, err := Max[int64](f)
	var ve *vimba.Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *vimba.Error, got %T", err)
	}
	if ve.Op != "Range" || ve.Code != vimba.ErrorInvalidAccess {
		t.Errorf("error = %+v", ve)
	}
}

func TestRangeAndIncrement(t *testing.T) {
	f := newIntFeature("Height", 480, 2, 1025)
	f.inc = 2
	lo, hi, err := Range[int64](f)
	if err != nil || lo != 2 || hi != 1025 {
		t.Errorf("Range = %d..%d, %v", lo, hi, err)
	}
	has, err := HasIncrement(f)
	if err != nil || !has {
		t.Errorf("HasIncrement = %v, %v", has, err)
	}
	inc, err := Increment[int64](f)
	if err != nil || inc != 2 {
		t.Errorf("Increment = %d, %v", inc, err)
	}
}

func TestDataTypeString(t *testing.T) {
	s, err := DataTypeString(newEnumFeature("PixelFormat", "Mono8", "Mono8"))
	if err != nil || s != "ENUM" {
		t.Errorf("DataTypeString = %q, %v", s, err)
	}
}
