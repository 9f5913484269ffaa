package genicam

import (
	"math"
	"sync"
)

// MockEntry is one entry of a mock enumeration
type MockEntry struct {
	// Value is the entry's symbolic name, e.g. Mono8.  The device reports it
	// with the vendor prefix, EnumEntry_<Node>_Mono8.
	Value string

	// Display is the human readable label
	Display string
}

type mockNode struct {
	name   string
	typ    NodeType
	access AccessMode

	i, imin, imax, iinc int64
	f, fmin, fmax, finc float64
	s                   string

	// enumerations: index of the current entry and the first entry handle
	cur     int
	entries []MockEntry
	first   int
}

// MockDevice is an in-memory NodeSystem.  It enforces access modes, ranges
// and increments the way a camera does, refusing out of range writes with
// StatusInvalidParameter.
type MockDevice struct {
	sync.Mutex
	nodes  []*mockNode
	byName map[string]int

	// entries maps an entry handle-1 to (node index, entry index)
	entries [][2]int

	fault Status
	calls int
}

// NewMockDevice returns an empty mock device
func NewMockDevice() *MockDevice {
	return &MockDevice{byName: make(map[string]int)}
}

func (m *MockDevice) add(n *mockNode) *MockDevice {
	m.Lock()
	defer m.Unlock()
	if idx, ok := m.byName[n.name]; ok {
		// entry handles of the replaced node go stale
		for i, ref := range m.entries {
			if ref[0] == idx {
				m.entries[i] = [2]int{-1, -1}
			}
		}
		m.nodes[idx] = n
	} else {
		m.byName[n.name] = len(m.nodes)
		m.nodes = append(m.nodes, n)
	}
	if n.typ == Enumeration {
		n.first = len(m.entries)
		for i := range n.entries {
			m.entries = append(m.entries, [2]int{m.byName[n.name], i})
		}
	}
	return m
}

// AddInt declares an Integer node
func (m *MockDevice) AddInt(name string, mode AccessMode, val, min, max, inc int64) *MockDevice {
	return m.add(&mockNode{name: name, typ: Integer, access: mode, i: val, imin: min, imax: max, iinc: inc})
}

// AddFloat declares a Float node.  An increment of zero means the node has none.
func (m *MockDevice) AddFloat(name string, mode AccessMode, val, min, max, inc float64) *MockDevice {
	return m.add(&mockNode{name: name, typ: Float, access: mode, f: val, fmin: min, fmax: max, finc: inc})
}

// AddString declares a StringReg node
func (m *MockDevice) AddString(name string, mode AccessMode, val string) *MockDevice {
	return m.add(&mockNode{name: name, typ: StringRegister, access: mode, s: val})
}

// AddEnum declares an Enumeration node whose current entry is entries[cur]
func (m *MockDevice) AddEnum(name string, mode AccessMode, cur int, entries ...MockEntry) *MockDevice {
	return m.add(&mockNode{name: name, typ: Enumeration, access: mode, cur: cur, entries: entries})
}

// AddNode declares a node of a type the accessors do not use, e.g. a Command
func (m *MockDevice) AddNode(name string, typ NodeType, mode AccessMode) *MockDevice {
	return m.add(&mockNode{name: name, typ: typ, access: mode})
}

// SetFault makes every following call fail with code.  StatusSuccess clears it.
func (m *MockDevice) SetFault(code Status) {
	m.Lock()
	defer m.Unlock()
	m.fault = code
}

// Calls returns the number of calls made into the device
func (m *MockDevice) Calls() int {
	m.Lock()
	defer m.Unlock()
	return m.calls
}

// enter counts the call and returns the injected fault, if any.
// The caller holds the lock.
func (m *MockDevice) enter(op string) error {
	m.calls++
	if m.fault != StatusSuccess {
		return &VendorError{Op: op, Code: m.fault}
	}
	return nil
}

func (m *MockDevice) lookup(op string, h NodeHandle) (*mockNode, error) {
	if err := m.enter(op); err != nil {
		return nil, err
	}
	idx := int(h) - 1
	if idx < 0 || idx >= len(m.nodes) {
		return nil, &VendorError{Op: op, Code: StatusInvalidHandle}
	}
	return m.nodes[idx], nil
}

func (m *MockDevice) readable(op string, h NodeHandle, types ...NodeType) (*mockNode, error) {
	n, err := m.lookup(op, h)
	if err != nil {
		return nil, err
	}
	if !typeIn(n.typ, types) {
		return nil, &VendorError{Op: op, Code: StatusGCError}
	}
	if n.access != ReadOnly && n.access != ReadWrite {
		return nil, &VendorError{Op: op, Code: StatusAccessDenied}
	}
	return n, nil
}

func (m *MockDevice) writable(op string, h NodeHandle, types ...NodeType) (*mockNode, error) {
	n, err := m.lookup(op, h)
	if err != nil {
		return nil, err
	}
	if !typeIn(n.typ, types) {
		return nil, &VendorError{Op: op, Code: StatusGCError}
	}
	if n.access != WriteOnly && n.access != ReadWrite {
		return nil, &VendorError{Op: op, Code: StatusAccessDenied}
	}
	return n, nil
}

func typeIn(t NodeType, types []NodeType) bool {
	for _, tt := range types {
		if t == tt {
			return true
		}
	}
	return false
}

func (n *mockNode) rawEntry(i int) string {
	return "EnumEntry_" + n.name + "_" + n.entries[i].Value
}

// ResolveNode looks a node up by name
func (m *MockDevice) ResolveNode(name string) (NodeHandle, error) {
	m.Lock()
	defer m.Unlock()
	if err := m.enter("GetNodeByName"); err != nil {
		return 0, err
	}
	idx, ok := m.byName[name]
	if !ok {
		return 0, ErrNodeNotFound
	}
	return NodeHandle(idx + 1), nil
}

// AccessMode returns the declared access mode of a node
func (m *MockDevice) AccessMode(h NodeHandle) (AccessMode, error) {
	m.Lock()
	defer m.Unlock()
	n, err := m.lookup("GetAccessMode", h)
	if err != nil {
		return 0, err
	}
	return n.access, nil
}

// NodeType returns the declared type of a node
func (m *MockDevice) NodeType(h NodeHandle) (NodeType, error) {
	m.Lock()
	defer m.Unlock()
	n, err := m.lookup("GetType", h)
	if err != nil {
		return 0, err
	}
	return n.typ, nil
}

// GetInt64 reads an integer, or the index of the current entry of an enumeration
func (m *MockDevice) GetInt64(h NodeHandle) (int64, error) {
	m.Lock()
	defer m.Unlock()
	n, err := m.readable("GetValueInt64", h, Integer, Enumeration)
	if err != nil {
		return 0, err
	}
	if n.typ == Enumeration {
		return int64(n.cur), nil
	}
	return n.i, nil
}

// SetInt64 writes an integer, enforcing range and increment
func (m *MockDevice) SetInt64(h NodeHandle, v int64) error {
	m.Lock()
	defer m.Unlock()
	const op = "SetValueInt64"
	n, err := m.writable(op, h, Integer, Enumeration)
	if err != nil {
		return err
	}
	if n.typ == Enumeration {
		if v < 0 || v >= int64(len(n.entries)) {
			return &VendorError{Op: op, Code: StatusInvalidParameter}
		}
		n.cur = int(v)
		return nil
	}
	if v < n.imin || v > n.imax || (n.iinc > 0 && (v-n.imin)%n.iinc != 0) {
		return &VendorError{Op: op, Code: StatusInvalidParameter}
	}
	n.i = v
	return nil
}

func (m *MockDevice) intRange(op string, h NodeHandle, pick func(*mockNode) int64) (int64, error) {
	m.Lock()
	defer m.Unlock()
	n, err := m.lookup(op, h)
	if err != nil {
		return 0, err
	}
	switch n.typ {
	case Integer:
		return pick(n), nil
	case Enumeration:
		// the entry indices 0..len-1
		e := &mockNode{imin: 0, imax: int64(len(n.entries) - 1), iinc: 1}
		return pick(e), nil
	}
	return 0, &VendorError{Op: op, Code: StatusGCError}
}

// Int64Min returns the minimum of an integer node
func (m *MockDevice) Int64Min(h NodeHandle) (int64, error) {
	return m.intRange("GetMinInt64", h, func(n *mockNode) int64 { return n.imin })
}

// Int64Max returns the maximum of an integer node
func (m *MockDevice) Int64Max(h NodeHandle) (int64, error) {
	return m.intRange("GetMaxInt64", h, func(n *mockNode) int64 { return n.imax })
}

// Int64Increment returns the increment of an integer node
func (m *MockDevice) Int64Increment(h NodeHandle) (int64, error) {
	return m.intRange("GetInc", h, func(n *mockNode) int64 { return n.iinc })
}

// GetFloat64 reads a float
func (m *MockDevice) GetFloat64(h NodeHandle) (float64, error) {
	m.Lock()
	defer m.Unlock()
	n, err := m.readable("GetValueDouble", h, Float)
	if err != nil {
		return 0, err
	}
	return n.f, nil
}

// SetFloat64 writes a float, enforcing range and, if the node has one, increment
func (m *MockDevice) SetFloat64(h NodeHandle, v float64) error {
	m.Lock()
	defer m.Unlock()
	const op = "SetValueDouble"
	n, err := m.writable(op, h, Float)
	if err != nil {
		return err
	}
	if math.IsNaN(v) || v < n.fmin || v > n.fmax {
		return &VendorError{Op: op, Code: StatusInvalidParameter}
	}
	if n.finc > 0 {
		steps := (v - n.fmin) / n.finc
		if math.Abs(steps-math.Round(steps)) > 1e-9 {
			return &VendorError{Op: op, Code: StatusInvalidParameter}
		}
	}
	n.f = v
	return nil
}

func (m *MockDevice) floatRange(op string, h NodeHandle, pick func(*mockNode) float64) (float64, error) {
	m.Lock()
	defer m.Unlock()
	n, err := m.lookup(op, h)
	if err != nil {
		return 0, err
	}
	if n.typ != Float {
		return 0, &VendorError{Op: op, Code: StatusGCError}
	}
	return pick(n), nil
}

// Float64Min returns the minimum of a float node
func (m *MockDevice) Float64Min(h NodeHandle) (float64, error) {
	return m.floatRange("GetMinDouble", h, func(n *mockNode) float64 { return n.fmin })
}

// Float64Max returns the maximum of a float node
func (m *MockDevice) Float64Max(h NodeHandle) (float64, error) {
	return m.floatRange("GetMaxDouble", h, func(n *mockNode) float64 { return n.fmax })
}

// Float64Increment returns the increment of a float node
func (m *MockDevice) Float64Increment(h NodeHandle) (float64, error) {
	return m.floatRange("GetIncDouble", h, func(n *mockNode) float64 { return n.finc })
}

// FloatHasIncrement is true if the float node was declared with an increment
func (m *MockDevice) FloatHasIncrement(h NodeHandle) (bool, error) {
	inc, err := m.floatRange("HasInc", h, func(n *mockNode) float64 { return n.finc })
	return inc > 0, err
}

// GetString reads a string register, or the symbolic name of the current
// entry of an enumeration
func (m *MockDevice) GetString(h NodeHandle) (string, error) {
	m.Lock()
	defer m.Unlock()
	n, err := m.readable("GetValueString", h, StringRegister, Enumeration)
	if err != nil {
		return "", err
	}
	if n.typ == Enumeration {
		return n.entries[n.cur].Value, nil
	}
	return n.s, nil
}

// SetString writes a string register, or selects an enumeration entry by
// its symbolic name
func (m *MockDevice) SetString(h NodeHandle, v string) error {
	m.Lock()
	defer m.Unlock()
	const op = "SetValueString"
	n, err := m.writable(op, h, StringRegister, Enumeration)
	if err != nil {
		return err
	}
	if n.typ == StringRegister {
		n.s = v
		return nil
	}
	for i, e := range n.entries {
		if e.Value == v {
			n.cur = i
			return nil
		}
	}
	return &VendorError{Op: op, Code: StatusInvalidParameter}
}

// EnumEntryCount returns the number of entries of an enumeration
func (m *MockDevice) EnumEntryCount(h NodeHandle) (uint32, error) {
	m.Lock()
	defer m.Unlock()
	const op = "GetNumEnumEntries"
	n, err := m.lookup(op, h)
	if err != nil {
		return 0, err
	}
	if n.typ != Enumeration {
		return 0, &VendorError{Op: op, Code: StatusGCError}
	}
	return uint32(len(n.entries)), nil
}

// EnumEntryByIndex returns the handle of entry idx of an enumeration
func (m *MockDevice) EnumEntryByIndex(h NodeHandle, idx uint32) (EnumEntryHandle, error) {
	m.Lock()
	defer m.Unlock()
	const op = "GetEnumEntryByIndex"
	n, err := m.lookup(op, h)
	if err != nil {
		return 0, err
	}
	if n.typ != Enumeration {
		return 0, &VendorError{Op: op, Code: StatusGCError}
	}
	if int(idx) >= len(n.entries) {
		return 0, &VendorError{Op: op, Code: StatusInvalidParameter}
	}
	return EnumEntryHandle(n.first + int(idx) + 1), nil
}

func (m *MockDevice) entry(op string, e EnumEntryHandle) (*mockNode, int, error) {
	if err := m.enter(op); err != nil {
		return nil, 0, err
	}
	idx := int(e) - 1
	if idx < 0 || idx >= len(m.entries) || m.entries[idx][0] < 0 {
		return nil, 0, &VendorError{Op: op, Code: StatusInvalidHandle}
	}
	ref := m.entries[idx]
	return m.nodes[ref[0]], ref[1], nil
}

// EnumEntryName returns the raw vendor name of an entry, EnumEntry_<Node>_<Value>
func (m *MockDevice) EnumEntryName(e EnumEntryHandle) (string, error) {
	m.Lock()
	defer m.Unlock()
	n, i, err := m.entry("GetName", e)
	if err != nil {
		return "", err
	}
	return n.rawEntry(i), nil
}

// EnumEntryDisplayName returns the label of an entry
func (m *MockDevice) EnumEntryDisplayName(e EnumEntryHandle) (string, error) {
	m.Lock()
	defer m.Unlock()
	n, i, err := m.entry("GetDisplayName", e)
	if err != nil {
		return "", err
	}
	return n.entries[i].Display, nil
}

// NewMockCamera returns a mock of a typical monochrome GigE camera with the
// quirks seen in the field: exposure only as a float ExposureTimeAbs, gain
// only as GainRaw, and the frame rate as an enumeration.
func NewMockCamera() *MockDevice {
	m := NewMockDevice()
	m.AddString("DeviceVendorName", ReadOnly, "Mock Vision").
		AddString("DeviceManufacturerInfo", ReadOnly, "simulated").
		AddString("DeviceModelName", ReadOnly, "MV-1280M").
		AddString("DeviceVersion", ReadOnly, "1.0").
		AddString("DeviceID", ReadOnly, "MV0001").
		AddString("DeviceFirmwareVersion", ReadOnly, "3.2.1").
		AddInt("GevVersionMajor", ReadOnly, 1, 1, 1, 1).
		AddInt("GevVersionMinor", ReadOnly, 2, 2, 2, 1).
		AddInt("SensorWidth", ReadOnly, 1280, 1280, 1280, 1).
		AddInt("SensorHeight", ReadOnly, 1024, 1024, 1024, 1).
		AddInt("WidthMax", ReadOnly, 1280, 1280, 1280, 1).
		AddInt("HeightMax", ReadOnly, 1024, 1024, 1024, 1).
		AddInt("Width", ReadWrite, 1280, 16, 1280, 16).
		AddInt("Height", ReadWrite, 1024, 16, 1024, 2).
		AddInt("OffsetX", ReadWrite, 0, 0, 1264, 16).
		AddInt("OffsetY", ReadWrite, 0, 0, 1008, 2).
		AddInt("BinningVertical", ReadWrite, 1, 1, 4, 1).
		AddInt("BinningHorizontal", ReadWrite, 1, 1, 2, 1).
		AddInt("PayloadSize", ReadOnly, 1280*1024, 0, 1280*1024*2, 1).
		AddInt("GainRaw", ReadWrite, 0, 0, 480, 1).
		AddFloat("ExposureTimeAbs", ReadWrite, 10000, 10, 1e7, 0).
		AddFloat("DeviceTemperature", ReadOnly, 38.5, -40, 125, 0).
		AddEnum("PixelFormat", ReadWrite, 0,
			MockEntry{"Mono8", "Mono 8"},
			MockEntry{"Mono10", "Mono 10"},
			MockEntry{"Mono10Packed", "Mono 10 Packed"},
			MockEntry{"Mono12", "Mono 12"},
			MockEntry{"Mono16", "Mono 16"},
			MockEntry{"BayerRG8", "Bayer RG 8"}).
		AddEnum("AcquisitionFrameRate", ReadWrite, 1,
			MockEntry{"FrameRate_15", "15 fps"},
			MockEntry{"FrameRate_30", "30 fps"},
			MockEntry{"FrameRate_60", "60 fps"}).
		AddEnum("ExposureMode", ReadWrite, 1,
			MockEntry{"Timed", "Timed"},
			MockEntry{"TriggerWidth", "Trigger Width"}).
		AddEnum("AcquisitionMode", ReadWrite, 0,
			MockEntry{"Continuous", "Continuous"},
			MockEntry{"SingleFrame", "Single Frame"}).
		AddNode("AcquisitionStart", Command, WriteOnly)
	return m
}
