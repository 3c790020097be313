// Package feature gives typed access to vendor camera features and keeps
// polled, cached views over them.
//
// The accessor functions are pass-throughs: each calls the vendor method
// and translates a failure into a *vimba.Error naming the accessor.
package feature

import (
	"github.com/cjeanneret/GoVimba/internal/vimba"
)

// Scalar is a value type a feature can be read or written as.
type Scalar interface {
	int64 | float64 | bool | string
}

// Number is a feature type with a range and an increment.
type Number interface {
	int64 | float64
}

func get[T any](op string, fn func() (T, error)) (T, error) {
	v, err := fn()
	if err != nil {
		var zero T
		return zero, vimba.Wrap(op, err)
	}
	return v, nil
}

func set(op string, fn func() error) error {
	return vimba.Wrap(op, fn())
}

// GetValue reads the feature as T. Strings are read from string and enum
// features alike.
func GetValue[T Scalar](f vimba.Feature) (T, error) {
	var v T
	var err error
	switch p := any(&v).(type) {
	case *int64:
		*p, err = f.Int()
	case *float64:
		*p, err = f.Float()
	case *bool:
		*p, err = f.Bool()
	case *string:
		var typ vimba.FeatureDataType
		if typ, err = f.DataType(); err == nil {
			if typ == vimba.FeatureDataEnum {
				*p, err = f.Enum()
			} else {
				*p, err = f.Str()
			}
		}
	}
	if err != nil {
		var zero T
		return zero, vimba.Wrap("GetValue", err)
	}
	return v, nil
}

// SetValue writes v to the feature.
func SetValue[T Scalar](f vimba.Feature, v T) error {
	var err error
	switch x := any(v).(type) {
	case int64:
		err = f.SetInt(x)
	case float64:
		err = f.SetFloat(x)
	case bool:
		err = f.SetBool(x)
	case string:
		var typ vimba.FeatureDataType
		if typ, err = f.DataType(); err == nil {
			if typ == vimba.FeatureDataEnum {
				err = f.SetEnum(x)
			} else {
				err = f.SetStr(x)
			}
		}
	}
	return set("SetValue", func() error { return err })
}

// Range returns the feature's bounds.
func Range[T Number](f vimba.Feature) (min, max T, err error) {
	switch any(min).(type) {
	case int64:
		lo, hi, e := f.IntRange()
		min, max, err = T(lo), T(hi), e
	case float64:
		lo, hi, e := f.FloatRange()
		min, max, err = T(lo), T(hi), e
	}
	if err != nil {
		return 0, 0, vimba.Wrap("Range", err)
	}
	return min, max, nil
}

// Min returns the lower bound.
func Min[T Number](f vimba.Feature) (T, error) {
	lo, _, err := Range[T](f)
	return lo, err
}

// Max returns the upper bound.
func Max[T Number](f vimba.Feature) (T, error) {
	_, hi, err := Range[T](f)
	return hi, err
}

// HasIncrement reports whether the feature defines a step.
func HasIncrement(f vimba.Feature) (bool, error) {
	return get("HasIncrement", f.HasIncrement)
}

// Increment returns the step between valid values.
func Increment[T Number](f vimba.Feature) (T, error) {
	var inc T
	var err error
	switch p := any(&inc).(type) {
	case *int64:
		*p, err = f.IntIncrement()
	case *float64:
		*p, err = f.FloatIncrement()
	}
	if err != nil {
		return 0, vimba.Wrap("Increment", err)
	}
	return inc, nil
}

// RunCommand executes a command feature.
func RunCommand(f vimba.Feature) error {
	return set("RunCommand", f.RunCommand)
}

// IsCommandDone reports whether the last RunCommand finished.
func IsCommandDone(f vimba.Feature) (bool, error) {
	return get("IsCommandDone", f.IsCommandDone)
}

// Name returns the feature name.
func Name(f vimba.Feature) (string, error) {
	return get("Name", f.Name)
}

// DisplayName returns the feature's display name.
func DisplayName(f vimba.Feature) (string, error) {
	return get("DisplayName", f.DisplayName)
}

// DataType returns the declared data type.
func DataType(f vimba.Feature) (vimba.FeatureDataType, error) {
	return get("DataType", f.DataType)
}

// DataTypeString returns the declared data type as text.
func DataTypeString(f vimba.Feature) (string, error) {
	t, err := get("DataTypeString", f.DataType)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

// EnumEntries lists the entries of an enum feature.
func EnumEntries(f vimba.Feature) ([]vimba.EnumEntry, error) {
	return get("EnumEntries", f.EnumEntries)
}

// CurrentEnum returns the active entry name of an enum feature.
func CurrentEnum(f vimba.Feature) (string, error) {
	return get("CurrentEnum", f.Enum)
}

// PollingTime returns the vendor's suggested polling time in ms.
func PollingTime(f vimba.Feature) (uint32, error) {
	return get("PollingTime", f.PollingTime)
}

// Unit returns the feature's unit.
func Unit(f vimba.Feature) (string, error) {
	return get("Unit", f.Unit)
}

// ToolTip returns the feature's short help text.
func ToolTip(f vimba.Feature) (string, error) {
	return get("ToolTip", f.ToolTip)
}

// Description returns the feature's long help text.
func Description(f vimba.Feature) (string, error) {
	return get("Description", f.Description)
}
