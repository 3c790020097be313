package feature

import (
	"fmt"
	"math"

	"github.com/cjeanneret/GoVimba/internal/vimba"
)

// Double is a container over a FLOAT64 feature.
type Double struct {
	*poll
	value  float64
	min    float64
	max    float64
	inc    float64
	hasInc bool
}

// NewDouble validates that f is a float feature and reads it immediately.
func NewDouble(f vimba.Feature, opts ...Option) (*Double, error) {
	p, o, err := newPoll(f, vimba.FeatureDataFloat, "NewDouble", opts)
	if err != nil {
		return nil, err
	}
	d := &Double{poll: p}
	p.refresh = d.Refresh
	if err := d.Refresh(); err != nil {
		return nil, fmt.Errorf("feature %s: %w", p.name, err)
	}
	p.next = o.now().Add(p.interval)
	return d, nil
}

func (d *Double) Value() float64     { return d.value }
func (d *Double) Min() float64       { return d.min }
func (d *Double) Max() float64       { return d.max }
func (d *Double) Increment() float64 { return d.inc }
func (d *Double) HasIncrement() bool { return d.hasInc }

// Refresh re-reads value and range.
func (d *Double) Refresh() error {
	v, err := GetValue[float64](d.feature)
	if err != nil {
		return err
	}
	lo, hi, err := Range[float64](d.feature)
	if err != nil {
		return err
	}
	d.value, d.min, d.max = v, lo, hi

	// most float features have no increment; a failure here is not fatal
	if has, err := HasIncrement(d.feature); err == nil && has {
		if inc, err := Increment[float64](d.feature); err == nil {
			d.inc, d.hasInc = inc, true
		}
	}
	return nil
}

// SetValue clamps v into [min, max], writes it and returns the value the
// camera actually applied.
func (d *Double) SetValue(v float64) (float64, error) {
	if math.IsNaN(v) {
		return d.value, fmt.Errorf("feature %s: %w: NaN", d.name, ErrInvalidValue)
	}
	v = clamp(v, d.min, d.max)
	if err := SetValue(d.feature, v); err != nil {
		return d.value, fmt.Errorf("feature %s: %w", d.name, err)
	}
	applied, err := GetValue[float64](d.feature)
	if err != nil {
		return v, fmt.Errorf("feature %s: %w", d.name, err)
	}
	d.value = applied
	return applied, nil
}

func clamp[T Number](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
