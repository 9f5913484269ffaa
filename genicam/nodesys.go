package genicam

import "fmt"

// NodeHandle is an opaque reference to a node inside a vendor node map.
// It is only meaningful to the NodeSystem that produced it.
type NodeHandle uintptr

// EnumEntryHandle is an opaque reference to one entry of an enumeration node.
type EnumEntryHandle uintptr

// AccessMode is the access mode a vendor reports for a node
type AccessMode int

const (
	// NotImplemented means the node exists in the XML but the device does not implement it
	NotImplemented AccessMode = iota

	// NotAvailable means the node is implemented but currently unavailable
	NotAvailable

	// WriteOnly nodes can be set but not read
	WriteOnly

	// ReadOnly nodes can be read but not set
	ReadOnly

	// ReadWrite nodes can be read and set
	ReadWrite

	// Undefined is reported by some SDKs when the access mode cannot be determined
	Undefined
)

var accessModeNames = map[AccessMode]string{
	NotImplemented: "NI",
	NotAvailable:   "NA",
	WriteOnly:      "WO",
	ReadOnly:       "RO",
	ReadWrite:      "RW",
	Undefined:      "undefined",
}

func (m AccessMode) String() string {
	if s, ok := accessModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("AccessMode(%d)", int(m))
}

// flags maps an access mode to (available, readable, writable)
func (m AccessMode) flags() (bool, bool, bool) {
	switch m {
	case WriteOnly:
		return true, false, true
	case ReadOnly:
		return true, true, false
	case ReadWrite:
		return true, true, true
	default:
		return false, false, false
	}
}

// NodeType is the interface type a vendor reports for a node.
// Only Integer, Float, StringRegister and Enumeration matter to
// the typed accessors; the rest exist so a vendor can report them.
type NodeType int

const (
	UnknownNode NodeType = iota
	Category
	Command
	Integer
	Float
	Boolean
	StringRegister
	Enumeration
	EnumEntryNode
	Register
)

var nodeTypeNames = map[NodeType]string{
	UnknownNode:    "Unknown",
	Category:       "Category",
	Command:        "Command",
	Integer:        "Integer",
	Float:          "Float",
	Boolean:        "Boolean",
	StringRegister: "StringReg",
	Enumeration:    "Enumeration",
	EnumEntryNode:  "EnumEntry",
	Register:       "Register",
}

func (t NodeType) String() string {
	if s, ok := nodeTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// NodeSystem is the vendor's node map for one opened device.
//
// ResolveNode must return an error satisfying errors.Is(err, ErrNodeNotFound)
// when the device has no node by that name.  Every other failure is either a
// *VendorError carrying the SDK's status code, or a communication error.
type NodeSystem interface {
	ResolveNode(name string) (NodeHandle, error)
	AccessMode(NodeHandle) (AccessMode, error)
	NodeType(NodeHandle) (NodeType, error)

	GetInt64(NodeHandle) (int64, error)
	SetInt64(NodeHandle, int64) error
	Int64Min(NodeHandle) (int64, error)
	Int64Max(NodeHandle) (int64, error)
	Int64Increment(NodeHandle) (int64, error)

	GetFloat64(NodeHandle) (float64, error)
	SetFloat64(NodeHandle, float64) error
	Float64Min(NodeHandle) (float64, error)
	Float64Max(NodeHandle) (float64, error)
	Float64Increment(NodeHandle) (float64, error)
	FloatHasIncrement(NodeHandle) (bool, error)

	GetString(NodeHandle) (string, error)
	SetString(NodeHandle, string) error

	EnumEntryCount(NodeHandle) (uint32, error)
	EnumEntryByIndex(NodeHandle, uint32) (EnumEntryHandle, error)
	EnumEntryName(EnumEntryHandle) (string, error)
	EnumEntryDisplayName(EnumEntryHandle) (string, error)
}
