// Package trigger fires camera exposures, either over a GPIO line wired to
// the camera's Line1 input or with the TriggerSoftware command.
package trigger

import (
	"fmt"
	"time"

	"github.com/cjeanneret/GoVimba/internal/debug"
	"github.com/cjeanneret/GoVimba/internal/feature"
	"github.com/cjeanneret/GoVimba/internal/hw/gpio"
	"github.com/cjeanneret/GoVimba/internal/vimba"
)

// Trigger fires one exposure.
type Trigger interface {
	Fire() error
}

// Trigger sources understood by Arm.
const (
	SourceSoftware = "Software"
	SourceLine1    = "Line1"
)

// FeatureSource looks up camera features by name. camera.Controller
// satisfies it.
type FeatureSource interface {
	FeatureByName(name string) (vimba.Feature, error)
}

// Arm switches the camera to triggered acquisition from source.
func Arm(cam FeatureSource, source string) error {
	if err := setEnum(cam, "TriggerSource", source); err != nil {
		return err
	}
	return setEnum(cam, "TriggerMode", "On")
}

// Disarm returns the camera to free running.
func Disarm(cam FeatureSource) error {
	return setEnum(cam, "TriggerMode", "Off")
}

func setEnum(cam FeatureSource, name, value string) error {
	f, err := cam.FeatureByName(name)
	if err != nil {
		return err
	}
	if err := feature.SetValue(f, value); err != nil {
		return fmt.Errorf("set %s=%s: %w", name, value, err)
	}
	return nil
}

// Line pulses a GPIO pin wired to the camera trigger input.
// The line idles low; the camera latches on the rising edge.
type Line struct {
	gpio  gpio.Driver
	pin   int
	pulse time.Duration // high time
	sleep func(time.Duration)
}

// NewLine configures pin as an output and drives it low.
func NewLine(g gpio.Driver, pin int, pulse time.Duration) (*Line, error) {
	if err := g.SetupPin(pin, gpio.Output); err != nil {
		return nil, fmt.Errorf("setup trigger pin %d: %w", pin, err)
	}
	if err := g.WritePin(pin, gpio.Low); err != nil {
		return nil, fmt.Errorf("idle trigger pin %d: %w", pin, err)
	}
	return &Line{gpio: g, pin: pin, pulse: pulse, sleep: time.Sleep}, nil
}

// Fire raises the line for the pulse width, then lowers it.
func (l *Line) Fire() error {
	debug.Trace("trigger: pulse pin %d for %v", l.pin, l.pulse)
	if err := l.gpio.WritePin(l.pin, gpio.High); err != nil {
		return err
	}
	l.sleep(l.pulse)
	return l.gpio.WritePin(l.pin, gpio.Low)
}

// Software runs the camera's TriggerSoftware command.
type Software struct {
	cmd vimba.Feature
}

// NewSoftware resolves the TriggerSoftware command on cam.
func NewSoftware(cam FeatureSource) (*Software, error) {
	f, err := cam.FeatureByName("TriggerSoftware")
	if err != nil {
		return nil, err
	}
	return &Software{cmd: f}, nil
}

func (s *Software) Fire() error {
	debug.Trace("trigger: software")
	return feature.RunCommand(s.cmd)
}

// Multi fires every trigger in turn and returns the first error.
type Multi []Trigger

func (m Multi) Fire() error {
	for _, t := range m {
		if err := t.Fire(); err != nil {
			return err
		}
	}
	return nil
}
