package feature

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cjeanneret/GoVimba/internal/vimba"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func fixedClock() func() time.Time { return func() time.Time { return epoch } }

// ---------- construction ----------

func TestNewDouble_ReadsValueAndRange(t *testing.T) {
	f := newFloatFeature("ExposureTimeAbs", 15000, 41, 153000000)
	d, err := NewDouble(f, WithClock(fixedClock()))
	if err != nil {
		t.Fatalf("NewDouble: %v", err)
	}
	if d.Value() != 15000 || d.Min() != 41 || d.Max() != 153000000 {
		t.Errorf("got value=%g min=%g max=%g", d.Value(), d.Min(), d.Max())
	}
	if d.Name() != "ExposureTimeAbs" {
		t.Errorf("Name = %q", d.Name())
	}
}

func TestConstruction_WrongTypeAlwaysFails(t *testing.T) {
	floatF := newFloatFeature("Gain", 0, 0, 10)
	intF := newIntFeature("Width", 640, 8, 1280)
	enumF := newEnumFeature("PixelFormat", "Mono8", "Mono8", "RGB8Packed")

	cases := []struct {
		name  string
		build func() error
	}{
		{"double_from_int", func() error { _, err := NewDouble(intF); return err }},
		{"double_from_enum", func() error { _, err := NewDouble(enumF); return err }},
		{"int_from_float", func() error { _, err := NewInt(floatF); return err }},
		{"int_from_enum", func() error { _, err := NewInt(enumF); return err }},
		{"enum_from_float", func() error { _, err := NewEnum(floatF); return err }},
		{"enum_from_int", func() error { _, err := NewEnum(intF); return err }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.build()
			if err == nil {
				t.Fatal("expected construction error, got nil")
			}
			if !errors.Is(err, vimba.ErrorWrongType) {
				t.Errorf("expected WrongType code, got %v", err)
			}
		})
	}
}

func TestNew_DispatchesOnType(t *testing.T) {
	c, err := New(newIntFeature("Height", 480, 2, 1024))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.(*Int); !ok {
		t.Errorf("New(int) = %T, want *Int", c)
	}

	cmd := &fakeFeature{name: "AcquisitionStart", typ: vimba.FeatureDataCommand}
	if _, err := New(cmd); !errors.Is(err, vimba.ErrorWrongType) {
		t.Errorf("New(command) err = %v, want WrongType", err)
	}
}

func TestNew_ReadFailureIsWrapped(t *testing.T) {
	f := newFloatFeature("Gain", 0, 0, 10)
	f.getErr = vimba.ErrorDeviceNotOpen
	_, err := NewDouble(f)
	if !errors.Is(err, vimba.ErrorDeviceNotOpen) {
		t.Errorf("err = %v, want DeviceNotOpen", err)
	}
}

// ---------- SetValue clamping ----------

func TestDouble_SetValueClamps(t *testing.T) {
	cases := []float64{-1e9, -1, 0, 0.5, 5, 9.99, 10, 11, 1e12, math.Inf(1), math.Inf(-1)}
	for _, v := range cases {
		f := newFloatFeature("Gain", 1, 0, 10)
		d, err := NewDouble(f)
		if err != nil {
			t.Fatalf("NewDouble: %v", err)
		}
		applied, err := d.SetValue(v)
		if err != nil {
			t.Fatalf("SetValue(%g): %v", v, err)
		}
		if applied < d.Min() || applied > d.Max() {
			t.Errorf("SetValue(%g) applied %g outside [%g, %g]", v, applied, d.Min(), d.Max())
		}
	}
}

func TestDouble_SetValueReturnsCoercedValue(t *testing.T) {
	f := newFloatFeature("AcquisitionFrameRateAbs", 30, 1, 60)
	f.coerce = func(v float64) float64 { return math.Floor(v) }
	d, _ := NewDouble(f)

	applied, err := d.SetValue(25.7)
	if err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if applied != 25 {
		t.Errorf("applied = %g, want 25 (camera rounding)", applied)
	}
	if d.Value() != 25 {
		t.Errorf("cached value = %g, want 25", d.Value())
	}
	if len(f.floatWrites) != 1 || f.floatWrites[0] != 25.7 {
		t.Errorf("writes = %v", f.floatWrites)
	}
}

func TestDouble_SetValueNaN(t *testing.T) {
	d, _ := NewDouble(newFloatFeature("Gain", 1, 0, 10))
	if _, err := d.SetValue(math.NaN()); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("err = %v, want ErrInvalidValue", err)
	}
}

func TestDouble_SetValueVendorError(t *testing.T) {
	f := newFloatFeature("Gain", 3, 0, 10)
	d, _ := NewDouble(f)
	f.setErr = vimba.ErrorInvalidAccess

	applied, err := d.SetValue(5)
	if !errors.Is(err, vimba.ErrorInvalidAccess) {
		t.Errorf("err = %v, want InvalidAccess", err)
	}
	if applied != 3 {
		t.Errorf("applied = %g, want previous value 3", applied)
	}
}

func TestInt_SetValueClampsAndAligns(t *testing.T) {
	cases := []struct {
		in, want int64
	}{
		{-5, 8},
		{8, 8},
		{9, 8},
		{15, 8},
		{16, 16},
		{1000, 1000},
		{1281, 1280},
		{99999, 1280},
	}
	for _, tc := range cases {
		f := newIntFeature("Width", 640, 8, 1280)
		f.inc = 8
		c, err := NewInt(f)
		if err != nil {
			t.Fatalf("NewInt: %v", err)
		}
		got, err := c.SetValue(tc.in)
		if err != nil {
			t.Fatalf("SetValue(%d): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("SetValue(%d) = %d, want %d", tc.in, got, tc.want)
		}
		if got < c.Min() || got > c.Max() {
			t.Errorf("SetValue(%d) = %d outside range", tc.in, got)
		}
	}
}

func TestInt_SetValueAlignsAcrossFullRange(t *testing.T) {
	cases := []struct {
		in, want int64
	}{
		{math.MaxInt64, math.MaxInt64 - 1},
		{101, 100},
		{-101, -102},
		{math.MinInt64 + 3, math.MinInt64 + 2},
	}
	for _, tc := range cases {
		f := newIntFeature("Offset", 0, math.MinInt64, math.MaxInt64)
		f.inc = 2
		c, err := NewInt(f)
		if err != nil {
			t.Fatalf("NewInt: %v", err)
		}
		got, err := c.SetValue(tc.in)
		if err != nil {
			t.Fatalf("SetValue(%d): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("SetValue(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

// ---------- Enum ----------

func TestEnum_IndexResolution(t *testing.T) {
	names := []string{"Mono8", "BayerRG8", "RGB8Packed", "BGR8Packed"}
	for want, current := range names {
		e, err := NewEnum(newEnumFeature("PixelFormat", current, names...))
		if err != nil {
			t.Fatalf("NewEnum(%s): %v", current, err)
		}
		if e.Index() != want {
			t.Errorf("current %s: Index = %d, want %d", current, e.Index(), want)
		}
		if e.Value() != current {
			t.Errorf("Value = %q, want %q", e.Value(), current)
		}
	}
}

func TestEnum_UnknownCurrentFailsConstruction(t *testing.T) {
	_, err := NewEnum(newEnumFeature("TriggerSource", "Line9", "Freerun", "Line1", "Software"))
	if !errors.Is(err, ErrUnknownEnumEntry) {
		t.Errorf("err = %v, want ErrUnknownEnumEntry", err)
	}
}

func TestEnum_UnknownCurrentOnRefreshKeepsPreviousIndex(t *testing.T) {
	f := newEnumFeature("TriggerSource", "Line1", "Freerun", "Line1", "Software")
	e, err := NewEnum(f)
	if err != nil {
		t.Fatalf("NewEnum: %v", err)
	}

	f.enum = "Line9"
	if err := e.Refresh(); !errors.Is(err, ErrUnknownEnumEntry) {
		t.Fatalf("Refresh err = %v, want ErrUnknownEnumEntry", err)
	}
	if e.Index() != 1 || e.Value() != "Line1" {
		t.Errorf("after unmatched refresh: index=%d value=%q, want 1/Line1", e.Index(), e.Value())
	}
}

func TestEnum_SetIndex(t *testing.T) {
	f := newEnumFeature("TriggerMode", "Off", "Off", "On")
	e, _ := NewEnum(f)

	got, err := e.SetIndex(1)
	if err != nil {
		t.Fatalf("SetIndex: %v", err)
	}
	if got != 1 || f.enum != "On" {
		t.Errorf("SetIndex(1) = %d, feature = %q", got, f.enum)
	}

	for _, bad := range []int{-1, 2, 100} {
		if _, err := e.SetIndex(bad); !errors.Is(err, ErrEnumIndex) {
			t.Errorf("SetIndex(%d) err = %v, want ErrEnumIndex", bad, err)
		}
	}
}

func TestEnum_SetValueByName(t *testing.T) {
	f := newEnumFeature("TriggerMode", "Off", "Off", "On")
	e, _ := NewEnum(f)

	got, err := e.SetValue("On")
	if err != nil || got != "On" {
		t.Errorf("SetValue(On) = %q, %v", got, err)
	}
	if _, err := e.SetValue("Maybe"); !errors.Is(err, ErrUnknownEnumEntry) {
		t.Errorf("SetValue(Maybe) err = %v", err)
	}
	if len(f.enumWrites) != 1 {
		t.Errorf("enum writes = %v, want exactly one", f.enumWrites)
	}
}

// ---------- polling ----------

func TestPollingInterval_Default(t *testing.T) {
	d, _ := NewDouble(newFloatFeature("Gain", 1, 0, 10))
	if d.Interval() != DefaultPollInterval {
		t.Errorf("Interval = %v, want %v", d.Interval(), DefaultPollInterval)
	}

	d, _ = NewDouble(newFloatFeature("Gain", 1, 0, 10), WithDefaultInterval(250*time.Millisecond))
	if d.Interval() != 250*time.Millisecond {
		t.Errorf("Interval = %v, want 250ms", d.Interval())
	}
}

func TestPollingInterval_FromVendor(t *testing.T) {
	f := newFloatFeature("DeviceTemperature", 40, -40, 100)
	f.pollMs = 5000
	d, _ := NewDouble(f)
	if d.Interval() != 5*time.Second {
		t.Errorf("Interval = %v, want 5s", d.Interval())
	}
}

func TestTick_RefreshesOnlyWhenDue(t *testing.T) {
	f := newFloatFeature("Gain", 1, 0, 10)
	f.pollMs = 100
	d, err := NewDouble(f, WithClock(fixedClock()))
	if err != nil {
		t.Fatalf("NewDouble: %v", err)
	}
	readsAfterInit := f.reads

	f.f = 7
	if err := d.Tick(epoch.Add(50 * time.Millisecond)); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if f.reads != readsAfterInit || d.Value() != 1 {
		t.Errorf("refreshed before deadline (reads=%d value=%g)", f.reads, d.Value())
	}

	if err := d.Tick(epoch.Add(100 * time.Millisecond)); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if d.Value() != 7 {
		t.Errorf("value = %g after due tick, want 7", d.Value())
	}

	reads := f.reads
	_ = d.Tick(epoch.Add(150 * time.Millisecond))
	if f.reads != reads {
		t.Error("refreshed again before next deadline")
	}
	_ = d.Tick(epoch.Add(200 * time.Millisecond))
	if f.reads == reads {
		t.Error("did not refresh at next deadline")
	}
}
