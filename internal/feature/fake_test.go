package feature

import (
	"github.com/cjeanneret/GoVimba/internal/vimba"
)

// fakeFeature is an in-memory feature that records writes and can be
// told to coerce or fail.
type fakeFeature struct {
	name    string
	typ     vimba.FeatureDataType
	pollMs  uint32
	unit    string
	f       float64
	fMin    float64
	fMax    float64
	i       int64
	iMin    int64
	iMax    int64
	inc     int64
	enum    string
	entries []vimba.EnumEntry

	// coerce, if set, is applied to float writes (firmware rounding).
	coerce func(float64) float64

	getErr   error
	setErr   error
	rangeErr error

	floatWrites []float64
	intWrites   []int64
	enumWrites  []string
	reads       int
}

func (f *fakeFeature) Name() (string, error)                    { return f.name, nil }
func (f *fakeFeature) DisplayName() (string, error)             { return f.name, nil }
func (f *fakeFeature) DataType() (vimba.FeatureDataType, error) { return f.typ, nil }
func (f *fakeFeature) PollingTime() (uint32, error)             { return f.pollMs, nil }
func (f *fakeFeature) Unit() (string, error)                    { return f.unit, nil }
func (f *fakeFeature) ToolTip() (string, error)                 { return "", nil }
func (f *fakeFeature) Description() (string, error)             { return "", nil }

func (f *fakeFeature) Float() (float64, error) {
	f.reads++
	if f.getErr != nil {
		return 0, f.getErr
	}
	if f.typ != vimba.FeatureDataFloat {
		return 0, vimba.ErrorWrongType
	}
	return f.f, nil
}

func (f *fakeFeature) SetFloat(v float64) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.floatWrites = append(f.floatWrites, v)
	if f.coerce != nil {
		v = f.coerce(v)
	}
	f.f = v
	return nil
}

func (f *fakeFeature) FloatRange() (float64, float64, error) {
	if f.rangeErr != nil {
		return 0, 0, f.rangeErr
	}
	return f.fMin, f.fMax, nil
}

func (f *fakeFeature) FloatIncrement() (float64, error) { return 0, vimba.ErrorNotSupported }

func (f *fakeFeature) Int() (int64, error) {
	f.reads++
	if f.getErr != nil {
		return 0, f.getErr
	}
	if f.typ != vimba.FeatureDataInt {
		return 0, vimba.ErrorWrongType
	}
	return f.i, nil
}

func (f *fakeFeature) SetInt(v int64) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.intWrites = append(f.intWrites, v)
	f.i = v
	return nil
}

func (f *fakeFeature) IntRange() (int64, int64, error) {
	if f.rangeErr != nil {
		return 0, 0, f.rangeErr
	}
	return f.iMin, f.iMax, nil
}

func (f *fakeFeature) IntIncrement() (int64, error) { return f.inc, nil }

func (f *fakeFeature) HasIncrement() (bool, error) {
	return f.typ == vimba.FeatureDataInt && f.inc > 0, nil
}

func (f *fakeFeature) Enum() (string, error) {
	f.reads++
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.enum, nil
}

func (f *fakeFeature) SetEnum(v string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.enumWrites = append(f.enumWrites, v)
	f.enum = v
	return nil
}

func (f *fakeFeature) EnumEntries() ([]vimba.EnumEntry, error) { return f.entries, nil }

func (f *fakeFeature) Str() (string, error)         { return "", vimba.ErrorWrongType }
func (f *fakeFeature) SetStr(string) error          { return vimba.ErrorWrongType }
func (f *fakeFeature) Bool() (bool, error)          { return false, vimba.ErrorWrongType }
func (f *fakeFeature) SetBool(bool) error           { return vimba.ErrorWrongType }
func (f *fakeFeature) RunCommand() error            { return vimba.ErrorWrongType }
func (f *fakeFeature) IsCommandDone() (bool, error) { return false, vimba.ErrorWrongType }

func newFloatFeature(name string, v, lo, hi float64) *fakeFeature {
	return &fakeFeature{name: name, typ: vimba.FeatureDataFloat, f: v, fMin: lo, fMax: hi}
}

func newIntFeature(name string, v, lo, hi int64) *fakeFeature {
	return &fakeFeature{name: name, typ: vimba.FeatureDataInt, i: v, iMin: lo, iMax: hi}
}

func newEnumFeature(name, current string, names ...string) *fakeFeature {
	f := &fakeFeature{name: name, typ: vimba.FeatureDataEnum, enum: current}
	for i, n := range names {
		f.entries = append(f.entries, vimba.EnumEntry{Name: n, DisplayName: n, Value: int64(i)})
	}
	return f
}
