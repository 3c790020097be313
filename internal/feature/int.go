package feature

import (
	"fmt"

	"github.com/cjeanneret/GoVimba/internal/vimba"
)

// Int is a container over an INT feature.
type Int struct {
	*poll
	value int64
	min   int64
	max   int64
	inc   int64
}

// NewInt validates that f is an integer feature and reads it immediately.
func NewInt(f vimba.Feature, opts ...Option) (*Int, error) {
	p, o, err := newPoll(f, vimba.FeatureDataInt, "NewInt", opts)
	if err != nil {
		return nil, err
	}
	c := &Int{poll: p, inc: 1}
	p.refresh = c.Refresh
	if err := c.Refresh(); err != nil {
		return nil, fmt.Errorf("feature %s: %w", p.name, err)
	}
	p.next = o.now().Add(p.interval)
	return c, nil
}

func (c *Int) Value() int64     { return c.value }
func (c *Int) Min() int64       { return c.min }
func (c *Int) Max() int64       { return c.max }
func (c *Int) Increment() int64 { return c.inc }

// Refresh re-reads value, range and increment.
func (c *Int) Refresh() error {
	v, err := GetValue[int64](c.feature)
	if err != nil {
		return err
	}
	lo, hi, err := Range[int64](c.feature)
	if err != nil {
		return err
	}
	c.value, c.min, c.max = v, lo, hi

	c.inc = 1
	if has, err := HasIncrement(c.feature); err == nil && has {
		if inc, err := Increment[int64](c.feature); err == nil && inc > 0 {
			c.inc = inc
		}
	}
	return nil
}

// SetValue clamps v into [min, max], aligns it down to the increment
// grid anchored at min, writes it and returns the applied value.
func (c *Int) SetValue(v int64) (int64, error) {
	v = clamp(v, c.min, c.max)
	if c.inc > 1 {
		// the offset from min can exceed MaxInt64; unsigned arithmetic
		// wraps back to the right value.
		off := uint64(v) - uint64(c.min)
		off -= off % uint64(c.inc)
		v = c.min + int64(off)
	}
	if err := SetValue(c.feature, v); err != nil {
		return c.value, fmt.Errorf("feature %s: %w", c.name, err)
	}
	applied, err := GetValue[int64](c.feature)
	if err != nil {
		return v, fmt.Errorf("feature %s: %w", c.name, err)
	}
	c.value = applied
	return applied, nil
}
