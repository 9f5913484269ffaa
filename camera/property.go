package camera

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrNoProperty is generated when a property does not exist
	ErrNoProperty = errors.New("no such property")

	// ErrPropertyExists is generated when a property is created twice
	ErrPropertyExists = errors.New("property already exists")

	// ErrReadOnly is generated when setting a read-only property
	ErrReadOnly = errors.New("property is read-only")

	// ErrInvalidValue is generated when a value does not parse as the
	// property's type or is not one of its allowed values
	ErrInvalidValue = errors.New("invalid property value")

	// ErrOutOfLimits is generated when a numeric value is outside the property's limits
	ErrOutOfLimits = errors.New("property value out of limits")
)

// PropertyType is the type of a property's value
type PropertyType int

const (
	// String properties hold free text
	String PropertyType = iota

	// Integer properties hold base 10 integers
	Integer

	// Float properties hold floating point numbers
	Float
)

func (t PropertyType) String() string {
	switch t {
	case String:
		return "String"
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	}
	return fmt.Sprintf("PropertyType(%d)", int(t))
}

// ActionType says when an Action is called
type ActionType int

const (
	// BeforeGet is called before the value is returned to the host, the
	// action refreshes it from the hardware
	BeforeGet ActionType = iota

	// AfterSet is called after the host stored a new value, the action
	// pushes it to the hardware
	AfterSet
)

// Action ties a property to the hardware
type Action func(p *Property, act ActionType) error

// Property is one named, typed setting of a device.  The value is held as
// text, the way the host exchanges it.
type Property struct {
	Name     string
	Type     PropertyType
	ReadOnly bool

	value   string
	lo, hi  float64
	limited bool
	allowed []string
	action  Action
}

// Value returns the stored value without calling the action
func (p *Property) Value() string {
	return p.value
}

// Int parses the stored value as an integer
func (p *Property) Int() (int64, error) {
	return strconv.ParseInt(p.value, 10, 64)
}

// Float parses the stored value as a float
func (p *Property) Float() (float64, error) {
	return strconv.ParseFloat(p.value, 64)
}

// Store replaces the stored value.  Actions use it to report what the
// hardware holds; no validation is done.
func (p *Property) Store(s string) {
	p.value = s
}

// StoreInt stores an integer value
func (p *Property) StoreInt(i int64) {
	p.value = strconv.FormatInt(i, 10)
}

// StoreFloat stores a float value
func (p *Property) StoreFloat(f float64) {
	p.value = strconv.FormatFloat(f, 'g', -1, 64)
}

// Limits returns the lower and upper limit, if the property has them
func (p *Property) Limits() (lo, hi float64, ok bool) {
	return p.lo, p.hi, p.limited
}

// Allowed returns the allowed values, nil if any value is allowed
func (p *Property) Allowed() []string {
	return append([]string(nil), p.allowed...)
}

func (p *Property) validate(s string) error {
	var f float64
	switch p.Type {
	case Integer:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s wants an integer, got %q", ErrInvalidValue, p.Name, s)
		}
		f = float64(i)
	case Float:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("%w: %s wants a number, got %q", ErrInvalidValue, p.Name, s)
		}
		f = v
	}
	if p.limited && p.Type != String && (f < p.lo || f > p.hi) {
		return fmt.Errorf("%w: %s must be within [%v, %v], got %s", ErrOutOfLimits, p.Name, p.lo, p.hi, s)
	}
	if len(p.allowed) > 0 {
		for _, a := range p.allowed {
			if a == s {
				return nil
			}
		}
		return fmt.Errorf("%w: %q is not an allowed value of %s", ErrInvalidValue, s, p.Name)
	}
	return nil
}

// PropertySet is the collection of properties one device publishes to the
// host.  It is not safe for concurrent use.
type PropertySet struct {
	props map[string]*Property
	order []string
}

// NewPropertySet returns an empty PropertySet
func NewPropertySet() *PropertySet {
	return &PropertySet{props: make(map[string]*Property)}
}

// Create adds a property.  act may be nil for a property the hardware does
// not back.
func (s *PropertySet) Create(name, value string, typ PropertyType, readOnly bool, act Action) error {
	if _, ok := s.props[name]; ok {
		return fmt.Errorf("%w: %s", ErrPropertyExists, name)
	}
	s.props[name] = &Property{Name: name, Type: typ, ReadOnly: readOnly, value: value, action: act}
	s.order = append(s.order, name)
	return nil
}

func (s *PropertySet) lookup(name string) (*Property, error) {
	p, ok := s.props[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProperty, name)
	}
	return p, nil
}

// Property returns a property by name
func (s *PropertySet) Property(name string) (*Property, bool) {
	p, ok := s.props[name]
	return p, ok
}

// Has is true if the property exists
func (s *PropertySet) Has(name string) bool {
	_, ok := s.props[name]
	return ok
}

// SetLimits bounds a numeric property
func (s *PropertySet) SetLimits(name string, lo, hi float64) error {
	p, err := s.lookup(name)
	if err != nil {
		return err
	}
	if p.Type == String {
		return fmt.Errorf("%w: %s is not numeric", ErrInvalidValue, name)
	}
	p.lo, p.hi, p.limited = lo, hi, true
	return nil
}

// SetAllowedValues replaces the allowed values of a property
func (s *PropertySet) SetAllowedValues(name string, values []string) error {
	p, err := s.lookup(name)
	if err != nil {
		return err
	}
	p.allowed = append([]string(nil), values...)
	return nil
}

// AddAllowedValue appends one allowed value
func (s *PropertySet) AddAllowedValue(name, value string) error {
	p, err := s.lookup(name)
	if err != nil {
		return err
	}
	p.allowed = append(p.allowed, value)
	return nil
}

// Get refreshes a property from the hardware and returns its value
func (s *PropertySet) Get(name string) (string, error) {
	p, err := s.lookup(name)
	if err != nil {
		return "", err
	}
	if p.action != nil {
		if err := p.action(p, BeforeGet); err != nil {
			return "", err
		}
	}
	return p.value, nil
}

// Set validates and stores a value, then pushes it to the hardware.
// If the hardware refuses it the previous value is restored.
func (s *PropertySet) Set(name, value string) error {
	p, err := s.lookup(name)
	if err != nil {
		return err
	}
	if p.ReadOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, name)
	}
	if err := p.validate(value); err != nil {
		return err
	}
	prev := p.value
	p.value = value
	if p.action != nil {
		if err := p.action(p, AfterSet); err != nil {
			p.value = prev
			return err
		}
	}
	return nil
}

// Names returns the property names in creation order
func (s *PropertySet) Names() []string {
	return append([]string(nil), s.order...)
}

// Len is the number of properties
func (s *PropertySet) Len() int {
	return len(s.order)
}
