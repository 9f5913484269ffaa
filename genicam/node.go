package genicam

import (
	"errors"
	"strings"

	"github.com/pion/logging"
)

// NodeInfo is the capability record of a node, fixed when the node is probed
type NodeInfo struct {
	// Name is the vendor node name the feature resolved to, empty if none did
	Name string `json:"name"`

	// Type is the vendor type of the resolved node
	Type NodeType `json:"-"`

	Available     bool `json:"available"`
	Readable      bool `json:"readable"`
	Writable      bool `json:"writable"`
	HasMinimum    bool `json:"hasMinimum"`
	HasMaximum    bool `json:"hasMaximum"`
	HasIncrement  bool `json:"hasIncrement"`
	IsEnumeration bool `json:"isEnumeration"`
}

// Node is one feature on one open device, typed by its value.
//
// A node probes the device once when built and never changes its flags
// afterwards.  Values, ranges and enum entries are not cached; every query is
// one round trip to the device.
type Node[T Value] struct {
	info    NodeInfo
	feature string
	handle  NodeHandle
	sys     NodeSystem
	codec   Codec[T]
}

// NewNode builds a node for feature by trying each candidate name in order.
// The first name that resolves to a node of a type T can hold is used; a
// candidate of the wrong type is logged and skipped.  A feature the device
// lacks produces an unavailable node, not an error.  log may be nil.
func NewNode[T Value](feature string, names []string, sys NodeSystem, codec Codec[T], log logging.LeveledLogger) *Node[T] {
	if log == nil {
		log = logging.NewDefaultLoggerFactory().NewLogger("genicam")
	}
	n := &Node[T]{feature: feature, sys: sys, codec: codec}
	for _, name := range names {
		h, err := sys.ResolveNode(name)
		if err != nil {
			if errors.Is(err, ErrNodeNotFound) {
				continue
			}
			log.Warnf("%s: resolving node %s: %v", feature, name, err)
			return n
		}
		n.info.Name = name
		n.handle = h
		if !n.probe(log) {
			return n
		}
	}
	if n.info.Name == "" {
		log.Debugf("%s: %v: none of %v resolved", feature, ErrFeatureNotFound, names)
	}
	return n
}

// probe fills the flags from the resolved node.  It returns true if the node
// had the wrong type and the next candidate should be tried.
func (n *Node[T]) probe(log logging.LeveledLogger) bool {
	mode, err := n.sys.AccessMode(n.handle)
	if err != nil {
		log.Warnf("%s: reading access mode of %s: %v", n.feature, n.info.Name, err)
		return false
	}
	typ, err := n.sys.NodeType(n.handle)
	if err != nil {
		log.Warnf("%s: reading type of %s: %v", n.feature, n.info.Name, err)
		return false
	}
	n.info.Type = typ
	if !n.codec.Accepts(typ) {
		log.Warnf("%s: %v: node %s is a %s", n.feature, ErrTypeMismatch, n.info.Name, typ)
		return true
	}
	avail, read, write := mode.flags()
	if !avail {
		log.Debugf("%s: node %s has access mode %s", n.feature, n.info.Name, mode)
		return false
	}
	hasMin, hasMax, hasInc, err := n.codec.Range(n.sys, n.handle)
	if err != nil {
		log.Warnf("%s: reading range capability of %s: %v", n.feature, n.info.Name, err)
		hasInc = false
	}
	n.info.Available = true
	n.info.Readable = read
	n.info.Writable = write
	n.info.HasMinimum = hasMin
	n.info.HasMaximum = hasMax
	n.info.HasIncrement = hasInc
	n.info.IsEnumeration = typ == Enumeration
	return false
}

// Info returns the capability flags of the node
func (n *Node[T]) Info() NodeInfo {
	return n.info
}

// Feature returns the catalog name of the node
func (n *Node[T]) Feature() string {
	return n.feature
}

func (n *Node[T]) fail(op string, kind, err error) error {
	return &FeatureError{Feature: n.feature, Node: n.info.Name, Op: op, Kind: kind, Err: err}
}

// Get reads the current value from the device
func (n *Node[T]) Get() (T, error) {
	var zero T
	if !n.info.Available {
		return zero, n.fail("get", ErrNotAvailable, nil)
	}
	if !n.info.Readable {
		return zero, n.fail("get", ErrNotReadable, nil)
	}
	v, err := n.codec.Get(n.sys, n.handle)
	if err != nil {
		return zero, n.fail("get", classify(err, false), err)
	}
	return v, nil
}

// Set writes a value to the device.  The device's refusal is final even if
// the value looks in range; ErrDeviceRejected is returned in that case.
func (n *Node[T]) Set(v T) error {
	if !n.info.Available {
		return n.fail("set", ErrNotAvailable, nil)
	}
	if !n.info.Writable {
		return n.fail("set", ErrNotWritable, nil)
	}
	if err := n.codec.Set(n.sys, n.handle, v); err != nil {
		return n.fail("set", classify(err, true), err)
	}
	return nil
}

func (n *Node[T]) rangeQuery(op string, has bool, q func(NodeSystem, NodeHandle) (T, error)) (T, error) {
	var zero T
	if !n.info.Available {
		return zero, n.fail(op, ErrNotAvailable, nil)
	}
	if !has {
		return zero, n.fail(op, ErrNoSuchCapability, nil)
	}
	v, err := q(n.sys, n.handle)
	if err != nil {
		return zero, n.fail(op, classify(err, false), err)
	}
	return v, nil
}

// Min reads the minimum from the device.  Ranges can depend on other
// features (e.g. width after binning) so they are never cached.
func (n *Node[T]) Min() (T, error) {
	return n.rangeQuery("minimum", n.info.HasMinimum, n.codec.Min)
}

// Max reads the maximum from the device
func (n *Node[T]) Max() (T, error) {
	return n.rangeQuery("maximum", n.info.HasMaximum, n.codec.Max)
}

// Increment reads the increment from the device
func (n *Node[T]) Increment() (T, error) {
	return n.rangeQuery("increment", n.info.HasIncrement, n.codec.Increment)
}

func (n *Node[T]) enumCheck(op string) error {
	if !n.info.Available {
		return n.fail(op, ErrNotAvailable, nil)
	}
	if !n.info.IsEnumeration {
		return n.fail(op, ErrNotEnumeration, nil)
	}
	return nil
}

// EnumEntryCount returns the number of entries of an enumeration
func (n *Node[T]) EnumEntryCount() (uint32, error) {
	if err := n.enumCheck("enum entry count"); err != nil {
		return 0, err
	}
	c, err := n.sys.EnumEntryCount(n.handle)
	if err != nil {
		return 0, n.fail("enum entry count", classify(err, false), err)
	}
	return c, nil
}

func (n *Node[T]) entry(op string, idx uint32) (EnumEntryHandle, error) {
	if err := n.enumCheck(op); err != nil {
		return 0, err
	}
	e, err := n.sys.EnumEntryByIndex(n.handle, idx)
	if err != nil {
		return 0, n.fail(op, classify(err, false), err)
	}
	return e, nil
}

// EnumEntry returns the symbolic name of entry idx, with the vendor's
// EnumEntry_<Feature>_ prefix removed
func (n *Node[T]) EnumEntry(idx uint32) (string, error) {
	e, err := n.entry("enum entry", idx)
	if err != nil {
		return "", err
	}
	s, err := n.sys.EnumEntryName(e)
	if err != nil {
		return "", n.fail("enum entry", classify(err, false), err)
	}
	return StripVendorPrefix(s), nil
}

// EnumDisplayName returns the human readable label of entry idx
func (n *Node[T]) EnumDisplayName(idx uint32) (string, error) {
	e, err := n.entry("enum display name", idx)
	if err != nil {
		return "", err
	}
	s, err := n.sys.EnumEntryDisplayName(e)
	if err != nil {
		return "", n.fail("enum display name", classify(err, false), err)
	}
	return s, nil
}

// StripVendorPrefix removes everything up to and including the second
// underscore of an enum entry name, so EnumEntry_PixelFormat_Mono8 becomes
// Mono8.  With one underscore only the text through it is removed; with none
// the name is returned unchanged.
func StripVendorPrefix(s string) string {
	for i := 0; i < 2; i++ {
		idx := strings.IndexByte(s, '_')
		if idx < 0 {
			break
		}
		s = s[idx+1:]
	}
	return s
}
