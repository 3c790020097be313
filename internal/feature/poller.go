package feature

import (
	"errors"
	"fmt"
	"time"
)

// Poller ticks a set of containers from the host's update loop. It has no
// goroutine or timer of its own and is not safe for concurrent use.
type Poller struct {
	containers []Container
	byName     map[string]int
}

func NewPoller() *Poller {
	return &Poller{byName: make(map[string]int)}
}

// Add registers c, replacing any container with the same name.
func (p *Poller) Add(c Container) {
	if i, ok := p.byName[c.Name()]; ok {
		p.containers[i] = c
		return
	}
	p.byName[c.Name()] = len(p.containers)
	p.containers = append(p.containers, c)
}

// Lookup returns the container called name.
func (p *Poller) Lookup(name string) (Container, bool) {
	i, ok := p.byName[name]
	if !ok {
		return nil, false
	}
	return p.containers[i], true
}

// Containers returns the containers in registration order.
func (p *Poller) Containers() []Container {
	out := make([]Container, len(p.containers))
	copy(out, p.containers)
	return out
}

func (p *Poller) Len() int { return len(p.containers) }

// Tick gives every container a chance to refresh. A failing container
// does not stop the others; all failures are joined.
func (p *Poller) Tick(now time.Time) error {
	var errs []error
	for _, c := range p.containers {
		if err := c.Tick(now); err != nil {
			errs = append(errs, fmt.Errorf("feature %s: %w", c.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Info is a display snapshot of a container's cached state.
type Info struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Unit     string   `json:"unit,omitempty"`
	Value    any      `json:"value"`
	Min      any      `json:"min,omitempty"`
	Max      any      `json:"max,omitempty"`
	Entries  []string `json:"entries,omitempty"`
	Index    *int     `json:"index,omitempty"`
	Interval string   `json:"interval"`
}

// Describe snapshots a container without touching the camera.
func Describe(c Container) Info {
	info := Info{
		Name:     c.Name(),
		Type:     c.Type().String(),
		Interval: c.Interval().String(),
	}
	switch v := c.(type) {
	case *Double:
		info.Unit = v.Unit()
		info.Value, info.Min, info.Max = v.Value(), v.Min(), v.Max()
	case *Int:
		info.Unit = v.Unit()
		info.Value, info.Min, info.Max = v.Value(), v.Min(), v.Max()
	case *Enum:
		info.Value = v.Value()
		idx := v.Index()
		info.Index = &idx
		for _, e := range v.Entries() {
			info.Entries = append(info.Entries, e.Name)
		}
	}
	return info
}
