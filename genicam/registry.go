package genicam

import (
	"fmt"

	"github.com/pion/logging"
)

// Registry owns one node per catalog feature for one open device.
// It is built in one pass and never fails as a whole; features the device
// lacks are present as unavailable nodes.
//
// A Registry is not safe for concurrent use.  Callers that share one across
// goroutines must serialize access, one mutex per device.
type Registry struct {
	ints    [numIntFeatures]*Node[int64]
	floats  [numFloatFeatures]*Node[float64]
	strings [numStringFeatures]*Node[string]

	log logging.LeveledLogger
}

type registryOptions struct {
	log     logging.LeveledLogger
	factory logging.LoggerFactory
}

// Option configures a Registry
type Option func(*registryOptions)

// WithLogger sets the logger probe warnings are written to
func WithLogger(l logging.LeveledLogger) Option {
	return func(o *registryOptions) { o.log = l }
}

// WithLoggerFactory sets the factory a "genicam" scoped logger is made from.
// WithLogger takes precedence when both are given.
func WithLoggerFactory(f logging.LoggerFactory) Option {
	return func(o *registryOptions) { o.factory = f }
}

// NewRegistry probes every feature in the catalog against sys
func NewRegistry(sys NodeSystem, opts ...Option) *Registry {
	o := registryOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		if o.factory == nil {
			o.factory = logging.NewDefaultLoggerFactory()
		}
		o.log = o.factory.NewLogger("genicam")
	}
	r := &Registry{log: o.log}
	for _, f := range AllIntFeatures() {
		r.ints[f] = NewNode[int64](f.String(), f.Names(), sys, IntCodec{}, o.log)
	}
	for _, f := range AllFloatFeatures() {
		r.floats[f] = NewNode[float64](f.String(), f.Names(), sys, FloatCodec{}, o.log)
	}
	for _, f := range AllStringFeatures() {
		r.strings[f] = NewNode[string](f.String(), f.Names(), sys, StringCodec{}, o.log)
	}
	return r
}

type enumNode interface {
	Info() NodeInfo
	EnumEntryCount() (uint32, error)
	EnumEntry(uint32) (string, error)
	EnumDisplayName(uint32) (string, error)
}

func (r *Registry) node(f Feature) enumNode {
	switch v := f.(type) {
	case IntFeature:
		return r.ints[v]
	case FloatFeature:
		return r.floats[v]
	case StringFeature:
		return r.strings[v]
	}
	panic(fmt.Sprintf("genicam: unknown feature type %T", f))
}

// Info returns the capability flags of a feature
func (r *Registry) Info(f Feature) NodeInfo {
	return r.node(f).Info()
}

// IsAvailable is true if the feature resolved on the device with the right
// type and an accessible mode
func (r *Registry) IsAvailable(f Feature) bool { return r.Info(f).Available }

// IsReadable is true if the feature can be read
func (r *Registry) IsReadable(f Feature) bool { return r.Info(f).Readable }

// IsWritable is true if the feature can be written
func (r *Registry) IsWritable(f Feature) bool { return r.Info(f).Writable }

// IsEnum is true if the feature is an enumeration node
func (r *Registry) IsEnum(f Feature) bool { return r.Info(f).IsEnumeration }

// GetInt reads an integer feature
func (r *Registry) GetInt(f IntFeature) (int64, error) { return r.ints[f].Get() }

// SetInt writes an integer feature
func (r *Registry) SetInt(f IntFeature, v int64) error { return r.ints[f].Set(v) }

// IntMin reads the minimum of an integer feature
func (r *Registry) IntMin(f IntFeature) (int64, error) { return r.ints[f].Min() }

// IntMax reads the maximum of an integer feature
func (r *Registry) IntMax(f IntFeature) (int64, error) { return r.ints[f].Max() }

// IntIncrement reads the increment of an integer feature
func (r *Registry) IntIncrement(f IntFeature) (int64, error) { return r.ints[f].Increment() }

// GetFloat reads a float feature
func (r *Registry) GetFloat(f FloatFeature) (float64, error) { return r.floats[f].Get() }

// SetFloat writes a float feature
func (r *Registry) SetFloat(f FloatFeature, v float64) error { return r.floats[f].Set(v) }

// FloatMin reads the minimum of a float feature
func (r *Registry) FloatMin(f FloatFeature) (float64, error) { return r.floats[f].Min() }

// FloatMax reads the maximum of a float feature
func (r *Registry) FloatMax(f FloatFeature) (float64, error) { return r.floats[f].Max() }

// FloatIncrement reads the increment of a float feature, if it has one
func (r *Registry) FloatIncrement(f FloatFeature) (float64, error) { return r.floats[f].Increment() }

// GetString reads a string feature.  For enumerations this is the symbolic
// name of the current entry.
func (r *Registry) GetString(f StringFeature) (string, error) { return r.strings[f].Get() }

// SetString writes a string feature
func (r *Registry) SetString(f StringFeature, v string) error { return r.strings[f].Set(v) }

// TryInt reads an integer feature into a Result
func (r *Registry) TryInt(f IntFeature) Result[int64] { return result(r.GetInt(f)) }

// TryFloat reads a float feature into a Result
func (r *Registry) TryFloat(f FloatFeature) Result[float64] { return result(r.GetFloat(f)) }

// TryString reads a string feature into a Result
func (r *Registry) TryString(f StringFeature) Result[string] { return result(r.GetString(f)) }

// EnumEntryCount returns the number of entries of an enumeration feature
func (r *Registry) EnumEntryCount(f Feature) (uint32, error) {
	return r.node(f).EnumEntryCount()
}

// EnumEntry returns the symbolic name of one entry of an enumeration feature
func (r *Registry) EnumEntry(f Feature, idx uint32) (string, error) {
	return r.node(f).EnumEntry(idx)
}

// EnumDisplayName returns the label of one entry of an enumeration feature
func (r *Registry) EnumDisplayName(f Feature, idx uint32) (string, error) {
	return r.node(f).EnumDisplayName(idx)
}

// EnumEntry is one entry of an enumeration
type EnumEntry struct {
	Name    string `json:"name"`
	Display string `json:"display"`
}

// EnumEntries lists every entry of an enumeration feature in device order
func (r *Registry) EnumEntries(f Feature) ([]EnumEntry, error) {
	n := r.node(f)
	count, err := n.EnumEntryCount()
	if err != nil {
		return nil, err
	}
	out := make([]EnumEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := n.EnumEntry(i)
		if err != nil {
			return nil, err
		}
		disp, err := n.EnumDisplayName(i)
		if err != nil {
			return nil, err
		}
		out = append(out, EnumEntry{Name: name, Display: disp})
	}
	return out, nil
}

// Snapshot holds the capability flags of every feature, keyed by feature name
type Snapshot map[string]NodeInfo

// Snapshot returns the flags of every node in the registry.  It does not
// touch the device.
func (r *Registry) Snapshot() Snapshot {
	s := make(Snapshot, len(r.ints)+len(r.floats)+len(r.strings))
	for _, f := range AllFeatures() {
		s[f.String()] = r.Info(f)
	}
	return s
}

// Available returns the features that resolved on the device, in catalog order
func (r *Registry) Available() []Feature {
	var out []Feature
	for _, f := range AllFeatures() {
		if r.IsAvailable(f) {
			out = append(out, f)
		}
	}
	return out
}

// LogNodes writes every available feature with its vendor name and access to
// the registry's logger at Info.  It is a debug aid for new cameras.
func (r *Registry) LogNodes() {
	for _, f := range AllFeatures() {
		i := r.Info(f)
		if !i.Available {
			continue
		}
		access := "RO"
		switch {
		case i.Readable && i.Writable:
			access = "RW"
		case i.Writable:
			access = "WO"
		}
		r.log.Infof("%s: node %s, %s %s, enum=%v", f, i.Name, f.Kind(), access, i.IsEnumeration)
	}
}

// Result is the outcome of a read that may not succeed, e.g. of a feature
// the device does not have.
//
//	if w, ok := reg.TryInt(genicam.Width).Get(); ok {
//		...
//	}
type Result[T Value] struct {
	Value T
	Err   error
}

func result[T Value](v T, err error) Result[T] {
	return Result[T]{Value: v, Err: err}
}

// OK is true if the read succeeded
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Get returns the value and whether it is valid
func (r Result[T]) Get() (T, bool) {
	return r.Value, r.Err == nil
}

// Or returns the value, or def if the read failed
func (r Result[T]) Or(def T) T {
	if r.Err != nil {
		return def
	}
	return r.Value
}
