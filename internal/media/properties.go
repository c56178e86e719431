// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"fmt"
	"sync"
)

// Kind is the value type of a declared property.
type Kind int

const (
	KindFloat Kind = iota
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	}
	return "unknown"
}

// PropertySpec declares one property of a PropertySet.
type PropertySpec struct {
	Name     string
	Kind     Kind
	Default  any
	Min, Max float64 // float range, ignored when both are zero
	ReadOnly bool
}

// PropertySet is a concurrency-safe typed property bag. Runtimes embed it to
// implement Properties and use Store/OnChange for their own bookkeeping.
type PropertySet struct {
	mu       sync.RWMutex
	specs    map[string]PropertySpec
	values   map[string]any
	onChange func(name string, v any)
}

// NewPropertySet declares specs with their default values.
func NewPropertySet(specs ...PropertySpec) *PropertySet {
	ps := &PropertySet{
		specs:  make(map[string]PropertySpec, len(specs)),
		values: make(map[string]any, len(specs)),
	}
	for _, s := range specs {
		ps.specs[s.Name] = s
		ps.values[s.Name] = s.Default
	}
	return ps
}

// DefaultProperties declares the property bag every pipeline exposes.
func DefaultProperties() *PropertySet {
	return NewPropertySet(
		PropertySpec{Name: PropVolume, Kind: KindFloat, Default: 1.0, Min: 0, Max: 10},
		PropertySpec{Name: PropMute, Kind: KindBool, Default: false},
		PropertySpec{Name: PropURI, Kind: KindString, Default: ""},
		PropertySpec{Name: PropCurrentURI, Kind: KindString, Default: "", ReadOnly: true},
		PropertySpec{Name: PropInstantURI, Kind: KindBool, Default: false},
	)
}

// OnChange installs a hook run after every successful external Set call.
// The hook runs without the set's lock held.
func (ps *PropertySet) OnChange(fn func(name string, v any)) {
	ps.mu.Lock()
	ps.onChange = fn
	ps.mu.Unlock()
}

func (ps *PropertySet) get(name string, kind Kind) (any, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	spec, ok := ps.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProperty, name)
	}
	if spec.Kind != kind {
		return nil, fmt.Errorf("%w: %q is %s, not %s", ErrPropertyType, name, spec.Kind, kind)
	}
	return ps.values[name], nil
}

func (ps *PropertySet) set(name string, kind Kind, v any) error {
	ps.mu.Lock()
	spec, ok := ps.specs[name]
	if !ok {
		ps.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownProperty, name)
	}
	if spec.Kind != kind {
		ps.mu.Unlock()
		return fmt.Errorf("%w: %q is %s, not %s", ErrPropertyType, name, spec.Kind, kind)
	}
	if spec.ReadOnly {
		ps.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrReadOnly, name)
	}
	if f, isFloat := v.(float64); isFloat && (spec.Min != 0 || spec.Max != 0) {
		if f < spec.Min || f > spec.Max {
			ps.mu.Unlock()
			return fmt.Errorf("property %q: value %g out of range [%g, %g]", name, f, spec.Min, spec.Max)
		}
	}
	ps.values[name] = v
	hook := ps.onChange
	ps.mu.Unlock()

	if hook != nil {
		hook(name, v)
	}
	return nil
}

// Store writes a value bypassing the read-only flag and the change hook.
// Runtimes use it to publish derived properties such as current-uri.
func (ps *PropertySet) Store(name string, v any) {
	ps.mu.Lock()
	ps.values[name] = v
	ps.mu.Unlock()
}

func (ps *PropertySet) Float(name string) (float64, error) {
	v, err := ps.get(name, KindFloat)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

func (ps *PropertySet) SetFloat(name string, v float64) error {
	return ps.set(name, KindFloat, v)
}

func (ps *PropertySet) Bool(name string) (bool, error) {
	v, err := ps.get(name, KindBool)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (ps *PropertySet) SetBool(name string, v bool) error {
	return ps.set(name, KindBool, v)
}

func (ps *PropertySet) String(name string) (string, error) {
	v, err := ps.get(name, KindString)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (ps *PropertySet) SetString(name string, v string) error {
	return ps.set(name, KindString, v)
}

var _ Properties = (*PropertySet)(nil)
