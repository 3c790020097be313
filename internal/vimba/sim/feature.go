package sim

import (
	"math"
	"sync"

	"github.com/cjeanneret/GoVimba/internal/vimba"
)

// feature is an in-memory vendor feature. All access is serialized on mu;
// the camera's delivery goroutine reads Width, Height, PixelFormat and the
// frame rate through the same accessors as the host.
type feature struct {
	mu sync.Mutex

	name        string
	display     string
	typ         vimba.FeatureDataType
	pollMs      uint32
	unit        string
	tooltip     string
	description string
	readOnly    bool

	// locked reports whether writes are currently refused (streaming).
	locked func() bool

	f          float64
	fMin, fMax float64

	i          int64
	iMin, iMax int64
	inc        int64

	enum    string
	entries []vimba.EnumEntry

	s string
	b bool

	// onRead lets live values (temperature) move between reads.
	onRead func(f *feature)
	// onSet runs after a successful write, with mu released.
	onSet func()

	// run is called by RunCommand and returns how many IsCommandDone
	// polls report false before the command completes.
	run     func() int
	pending int
}

func (f *feature) Name() (string, error) { return f.name, nil }

func (f *feature) DisplayName() (string, error) {
	if f.display == "" {
		return f.name, nil
	}
	return f.display, nil
}

func (f *feature) DataType() (vimba.FeatureDataType, error) { return f.typ, nil }
func (f *feature) PollingTime() (uint32, error)             { return f.pollMs, nil }
func (f *feature) Unit() (string, error)                    { return f.unit, nil }
func (f *feature) ToolTip() (string, error)                 { return f.tooltip, nil }
func (f *feature) Description() (string, error)             { return f.description, nil }

func (f *feature) is(t vimba.FeatureDataType) error {
	if f.typ != t {
		return vimba.ErrorWrongType
	}
	return nil
}

func (f *feature) writable() error {
	if f.readOnly {
		return vimba.ErrorInvalidAccess
	}
	if f.locked != nil && f.locked() {
		return vimba.ErrorInvalidAccess
	}
	return nil
}

func (f *feature) changed() {
	if f.onSet != nil {
		f.onSet()
	}
}

func (f *feature) Float() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.is(vimba.FeatureDataFloat); err != nil {
		return 0, err
	}
	if f.onRead != nil {
		f.onRead(f)
	}
	return f.f, nil
}

func (f *feature) SetFloat(v float64) error {
	f.mu.Lock()
	if err := f.is(vimba.FeatureDataFloat); err != nil {
		f.mu.Unlock()
		return err
	}
	if err := f.writable(); err != nil {
		f.mu.Unlock()
		return err
	}
	if math.IsNaN(v) || v < f.fMin || v > f.fMax {
		f.mu.Unlock()
		return vimba.ErrorInvalidValue
	}
	f.f = v
	f.mu.Unlock()
	f.changed()
	return nil
}

func (f *feature) FloatRange() (float64, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.is(vimba.FeatureDataFloat); err != nil {
		return 0, 0, err
	}
	return f.fMin, f.fMax, nil
}

func (f *feature) FloatIncrement() (float64, error) {
	if err := f.is(vimba.FeatureDataFloat); err != nil {
		return 0, err
	}
	return 0, vimba.ErrorNotSupported
}

func (f *feature) Int() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.is(vimba.FeatureDataInt); err != nil {
		return 0, err
	}
	return f.i, nil
}

func (f *feature) SetInt(v int64) error {
	f.mu.Lock()
	if err := f.is(vimba.FeatureDataInt); err != nil {
		f.mu.Unlock()
		return err
	}
	if err := f.writable(); err != nil {
		f.mu.Unlock()
		return err
	}
	if v < f.iMin || v > f.iMax {
		f.mu.Unlock()
		return vimba.ErrorInvalidValue
	}
	if f.inc > 1 && (v-f.iMin)%f.inc != 0 {
		f.mu.Unlock()
		return vimba.ErrorInvalidValue
	}
	f.i = v
	f.mu.Unlock()
	f.changed()
	return nil
}

func (f *feature) IntRange() (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.is(vimba.FeatureDataInt); err != nil {
		return 0, 0, err
	}
	return f.iMin, f.iMax, nil
}

func (f *feature) IntIncrement() (int64, error) {
	if err := f.is(vimba.FeatureDataInt); err != nil {
		return 0, err
	}
	if f.inc <= 0 {
		return 1, nil
	}
	return f.inc, nil
}

func (f *feature) HasIncrement() (bool, error) {
	return f.typ == vimba.FeatureDataInt, nil
}

func (f *feature) Enum() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.is(vimba.FeatureDataEnum); err != nil {
		return "", err
	}
	return f.enum, nil
}

func (f *feature) SetEnum(v string) error {
	f.mu.Lock()
	if err := f.is(vimba.FeatureDataEnum); err != nil {
		f.mu.Unlock()
		return err
	}
	if err := f.writable(); err != nil {
		f.mu.Unlock()
		return err
	}
	found := false
	for _, e := range f.entries {
		if e.Name == v {
			found = true
			break
		}
	}
	if !found {
		f.mu.Unlock()
		return vimba.ErrorInvalidValue
	}
	f.enum = v
	f.mu.Unlock()
	f.changed()
	return nil
}

func (f *feature) EnumEntries() ([]vimba.EnumEntry, error) {
	if err := f.is(vimba.FeatureDataEnum); err != nil {
		return nil, err
	}
	out := make([]vimba.EnumEntry, len(f.entries))
	copy(out, f.entries)
	return out, nil
}

func (f *feature) Str() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.is(vimba.FeatureDataString); err != nil {
		return "", err
	}
	return f.s, nil
}

func (f *feature) SetStr(v string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.is(vimba.FeatureDataString); err != nil {
		return err
	}
	if err := f.writable(); err != nil {
		return err
	}
	f.s = v
	return nil
}

func (f *feature) Bool() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.is(vimba.FeatureDataBool); err != nil {
		return false, err
	}
	return f.b, nil
}

func (f *feature) SetBool(v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.is(vimba.FeatureDataBool); err != nil {
		return err
	}
	if err := f.writable(); err != nil {
		return err
	}
	f.b = v
	return nil
}

func (f *feature) RunCommand() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.is(vimba.FeatureDataCommand); err != nil {
		return err
	}
	if f.run != nil {
		f.pending = f.run()
	}
	return nil
}

func (f *feature) IsCommandDone() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.is(vimba.FeatureDataCommand); err != nil {
		return false, err
	}
	if f.pending > 0 {
		f.pending--
		return false, nil
	}
	return true, nil
}

// intValue and friends are used by the delivery goroutine.
func (f *feature) intValue() int64 {
	v, _ := f.Int()
	return v
}

func (f *feature) floatValue() float64 {
	v, _ := f.Float()
	return v
}

func (f *feature) enumValue() string {
	v, _ := f.Enum()
	return v
}

func entries(names ...string) []vimba.EnumEntry {
	out := make([]vimba.EnumEntry, len(names))
	for i, n := range names {
		out[i] = vimba.EnumEntry{Name: n, DisplayName: n, Value: int64(i)}
	}
	return out
}
