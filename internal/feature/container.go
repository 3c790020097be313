package feature

import (
	"errors"
	"time"

	"github.com/cjeanneret/GoVimba/internal/vimba"
)

// DefaultPollInterval is used when the vendor reports a zero polling time.
// Zero usually means the feature's freshness depends on another feature,
// not that it never changes.
const DefaultPollInterval = 1000 * time.Millisecond

var (
	// ErrEnumIndex is returned for an enum index outside the entry list.
	ErrEnumIndex = errors.New("enum index out of range")
	// ErrUnknownEnumEntry is returned when an enum name is not among the entries.
	ErrUnknownEnumEntry = errors.New("enum entry not found")
	// ErrInvalidValue is returned for values that cannot be clamped (NaN).
	ErrInvalidValue = errors.New("invalid feature value")
)

// Container is a cached, polled view over one feature.
type Container interface {
	Name() string
	Type() vimba.FeatureDataType
	Feature() vimba.Feature
	Interval() time.Duration
	// Refresh re-reads the feature unconditionally.
	Refresh() error
	// Tick refreshes the feature if its polling deadline has passed.
	Tick(now time.Time) error
}

// Option customizes a container.
type Option func(*options)

type options struct {
	defaultInterval time.Duration
	now             func() time.Time
}

// WithDefaultInterval replaces DefaultPollInterval for features reporting
// no polling time.
func WithDefaultInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.defaultInterval = d
		}
	}
}

// WithClock sets the clock used for the first polling deadline.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// poll holds what every container variant shares: the handle, the
// schedule and the variant's refresh.
type poll struct {
	feature  vimba.Feature
	name     string
	unit     string
	typ      vimba.FeatureDataType
	interval time.Duration
	next     time.Time
	refresh  func() error
}

func newPoll(f vimba.Feature, want vimba.FeatureDataType, op string, opts []Option) (*poll, *options, error) {
	o := &options{defaultInterval: DefaultPollInterval, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	name, err := Name(f)
	if err != nil {
		return nil, nil, vimba.Wrap(op, err)
	}
	typ, err := DataType(f)
	if err != nil {
		return nil, nil, vimba.Wrap(op, err)
	}
	if typ != want {
		return nil, nil, vimba.Errorf(op, vimba.ErrorWrongType,
			"Feature %s is of type %s, but expected type %s", name, typ, want)
	}

	ms, err := PollingTime(f)
	if err != nil {
		return nil, nil, vimba.Wrap(op, err)
	}
	interval := time.Duration(ms) * time.Millisecond
	if interval <= 0 {
		interval = o.defaultInterval
	}

	// unit is informational only
	unit, _ := f.Unit()

	return &poll{
		feature:  f,
		name:     name,
		unit:     unit,
		typ:      typ,
		interval: interval,
	}, o, nil
}

func (p *poll) Name() string                { return p.name }
func (p *poll) Unit() string                { return p.unit }
func (p *poll) Type() vimba.FeatureDataType { return p.typ }
func (p *poll) Feature() vimba.Feature      { return p.feature }
func (p *poll) Interval() time.Duration     { return p.interval }

func (p *poll) Tick(now time.Time) error {
	if now.Before(p.next) {
		return nil
	}
	p.next = now.Add(p.interval)
	return p.refresh()
}

// New builds the container matching the feature's declared type.
func New(f vimba.Feature, opts ...Option) (Container, error) {
	typ, err := DataType(f)
	if err != nil {
		return nil, vimba.Wrap("New", err)
	}
	switch typ {
	case vimba.FeatureDataFloat:
		return NewDouble(f, opts...)
	case vimba.FeatureDataInt:
		return NewInt(f, opts...)
	case vimba.FeatureDataEnum:
		return NewEnum(f, opts...)
	}
	name, _ := f.Name()
	return nil, vimba.Errorf("New", vimba.ErrorWrongType,
		"Feature %s has unsupported type %s", name, typ)
}
