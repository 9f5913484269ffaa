package genicam

// Value is the set of types a feature node can hold
type Value interface {
	~int64 | ~float64 | ~string
}

// Codec binds a value type to the vendor calls that move it.
// One implementation exists per value type; Node is generic over them.
type Codec[T Value] interface {
	// Accepts reports whether a node of vendor type t can be used as T
	Accepts(t NodeType) bool

	// Range reports which of min, max and increment the node has
	Range(sys NodeSystem, h NodeHandle) (hasMin, hasMax, hasInc bool, err error)

	Get(sys NodeSystem, h NodeHandle) (T, error)
	Set(sys NodeSystem, h NodeHandle, v T) error
	Min(sys NodeSystem, h NodeHandle) (T, error)
	Max(sys NodeSystem, h NodeHandle) (T, error)
	Increment(sys NodeSystem, h NodeHandle) (T, error)
}

// IntCodec moves int64 values.  Integer nodes always have a min, max and
// increment under the GenICam integer contract.
type IntCodec struct{}

func (IntCodec) Accepts(t NodeType) bool { return t == Integer || t == Enumeration }

func (IntCodec) Range(NodeSystem, NodeHandle) (bool, bool, bool, error) {
	return true, true, true, nil
}

func (IntCodec) Get(sys NodeSystem, h NodeHandle) (int64, error) { return sys.GetInt64(h) }
func (IntCodec) Set(sys NodeSystem, h NodeHandle, v int64) error { return sys.SetInt64(h, v) }
func (IntCodec) Min(sys NodeSystem, h NodeHandle) (int64, error) { return sys.Int64Min(h) }
func (IntCodec) Max(sys NodeSystem, h NodeHandle) (int64, error) { return sys.Int64Max(h) }
func (IntCodec) Increment(sys NodeSystem, h NodeHandle) (int64, error) { return sys.Int64Increment(h) }

// FloatCodec moves float64 values.  Float nodes always have a min and max,
// the increment is optional and asked of the device.
type FloatCodec struct{}

func (FloatCodec) Accepts(t NodeType) bool { return t == Float }

func (FloatCodec) Range(sys NodeSystem, h NodeHandle) (bool, bool, bool, error) {
	inc, err := sys.FloatHasIncrement(h)
	return true, true, inc, err
}

func (FloatCodec) Get(sys NodeSystem, h NodeHandle) (float64, error) { return sys.GetFloat64(h) }
func (FloatCodec) Set(sys NodeSystem, h NodeHandle, v float64) error { return sys.SetFloat64(h, v) }
func (FloatCodec) Min(sys NodeSystem, h NodeHandle) (float64, error) { return sys.Float64Min(h) }
func (FloatCodec) Max(sys NodeSystem, h NodeHandle) (float64, error) { return sys.Float64Max(h) }
func (FloatCodec) Increment(sys NodeSystem, h NodeHandle) (float64, error) { return sys.Float64Increment(h) }

// StringCodec moves string values.  Strings have no numeric range.
type StringCodec struct{}

func (StringCodec) Accepts(t NodeType) bool { return t == StringRegister || t == Enumeration }

func (StringCodec) Range(NodeSystem, NodeHandle) (bool, bool, bool, error) {
	return false, false, false, nil
}

func (StringCodec) Get(sys NodeSystem, h NodeHandle) (string, error) { return sys.GetString(h) }
func (StringCodec) Set(sys NodeSystem, h NodeHandle, v string) error { return sys.SetString(h, v) }

func (StringCodec) Min(NodeSystem, NodeHandle) (string, error) { return "", ErrNoSuchCapability }
func (StringCodec) Max(NodeSystem, NodeHandle) (string, error) { return "", ErrNoSuchCapability }
func (StringCodec) Increment(NodeSystem, NodeHandle) (string, error) { return "", ErrNoSuchCapability }
