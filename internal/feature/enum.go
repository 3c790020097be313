package feature

import (
	"fmt"

	"github.com/cjeanneret/GoVimba/internal/vimba"
)

// Enum is a container over an ENUM feature. The vendor reports the active
// entry by name; Enum resolves it to an index into its entry list.
type Enum struct {
	*poll
	entries []vimba.EnumEntry
	index   int
}

// NewEnum validates that f is an enum feature and reads it immediately.
// Construction fails if the active entry is not among the listed ones.
func NewEnum(f vimba.Feature, opts ...Option) (*Enum, error) {
	p, o, err := newPoll(f, vimba.FeatureDataEnum, "NewEnum", opts)
	if err != nil {
		return nil, err
	}
	e := &Enum{poll: p, index: -1}
	p.refresh = e.Refresh
	if err := e.Refresh(); err != nil {
		return nil, fmt.Errorf("feature %s: %w", p.name, err)
	}
	p.next = o.now().Add(p.interval)
	return e, nil
}

// Index returns the active entry's position in Entries.
func (e *Enum) Index() int { return e.index }

// Value returns the active entry name.
func (e *Enum) Value() string {
	if e.index < 0 || e.index >= len(e.entries) {
		return ""
	}
	return e.entries[e.index].Name
}

// Entries returns a copy of the entry list.
func (e *Enum) Entries() []vimba.EnumEntry {
	out := make([]vimba.EnumEntry, len(e.entries))
	copy(out, e.entries)
	return out
}

// Refresh re-reads the entry list and the active entry. If the active
// name is not in the list, the previous entries and index are kept and
// ErrUnknownEnumEntry is returned.
func (e *Enum) Refresh() error {
	entries, err := EnumEntries(e.feature)
	if err != nil {
		return err
	}
	current, err := CurrentEnum(e.feature)
	if err != nil {
		return err
	}
	idx := indexOf(entries, current)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownEnumEntry, current)
	}
	e.entries, e.index = entries, idx
	return nil
}

// SetIndex activates the entry at i and returns the index the camera
// actually reports afterwards.
func (e *Enum) SetIndex(i int) (int, error) {
	if i < 0 || i >= len(e.entries) {
		return e.index, fmt.Errorf("feature %s: %w: %d (have %d entries)", e.name, ErrEnumIndex, i, len(e.entries))
	}
	if err := SetValue(e.feature, e.entries[i].Name); err != nil {
		return e.index, fmt.Errorf("feature %s: %w", e.name, err)
	}
	if err := e.Refresh(); err != nil {
		return e.index, fmt.Errorf("feature %s: %w", e.name, err)
	}
	return e.index, nil
}

// SetValue activates the entry called name and returns the applied name.
func (e *Enum) SetValue(name string) (string, error) {
	idx := indexOf(e.entries, name)
	if idx < 0 {
		return e.Value(), fmt.Errorf("feature %s: %w: %q", e.name, ErrUnknownEnumEntry, name)
	}
	if _, err := e.SetIndex(idx); err != nil {
		return e.Value(), err
	}
	return e.Value(), nil
}

func indexOf(entries []vimba.EnumEntry, name string) int {
	for i, entry := range entries {
		if entry.Name == name {
			return i
		}
	}
	return -1
}
