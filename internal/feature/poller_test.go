package feature

import (
	"errors"
	"testing"
	"time"

	"github.com/cjeanneret/GoVimba/internal/vimba"
)

func TestPoller_AddAndLookup(t *testing.T) {
	p := NewPoller()
	gain, _ := NewDouble(newFloatFeature("Gain", 1, 0, 10))
	width, _ := NewInt(newIntFeature("Width", 640, 8, 1280))
	p.Add(gain)
	p.Add(width)

	if p.Len() != 2 {
		t.Fatalf("Len = %d, want 2", p.Len())
	}
	c, ok := p.Lookup("Width")
	if !ok || c != Container(width) {
		t.Errorf("Lookup(Width) = %v, %v", c, ok)
	}
	if _, ok := p.Lookup("Height"); ok {
		t.Error("Lookup(Height) should miss")
	}

	gain2, _ := NewDouble(newFloatFeature("Gain", 2, 0, 10))
	p.Add(gain2)
	if p.Len() != 2 {
		t.Errorf("re-adding a name should replace, Len = %d", p.Len())
	}
	if got := p.Containers()[0]; got != Container(gain2) {
		t.Error("replacement should keep registration order")
	}
}

func TestPoller_TickContinuesPastFailures(t *testing.T) {
	bad := newFloatFeature("Gain", 1, 0, 10)
	good := newFloatFeature("ExposureTimeAbs", 100, 10, 1000)

	p := NewPoller()
	badC, _ := NewDouble(bad, WithClock(fixedClock()))
	goodC, _ := NewDouble(good, WithClock(fixedClock()))
	p.Add(badC)
	p.Add(goodC)

	bad.getErr = vimba.ErrorTimeout
	good.f = 500

	err := p.Tick(epoch.Add(2 * time.Second))
	if !errors.Is(err, vimba.ErrorTimeout) {
		t.Errorf("Tick err = %v, want Timeout joined", err)
	}
	if goodC.Value() != 500 {
		t.Errorf("healthy container not refreshed: %g", goodC.Value())
	}
}

func TestDescribe(t *testing.T) {
	f := newFloatFeature("Gain", 3, 0, 24)
	f.unit = "dB"
	d, _ := NewDouble(f)
	info := Describe(d)
	if info.Name != "Gain" || info.Unit != "dB" || info.Value != 3.0 || info.Max != 24.0 {
		t.Errorf("Describe(double) = %+v", info)
	}

	e, _ := NewEnum(newEnumFeature("TriggerMode", "On", "Off", "On"))
	info = Describe(e)
	if info.Value != "On" || info.Index == nil || *info.Index != 1 || len(info.Entries) != 2 {
		t.Errorf("Describe(enum) = %+v", info)
	}
}
