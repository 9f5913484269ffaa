package genicam

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned by a NodeSystem when it has no node of the requested name
	ErrNodeNotFound = errors.New("node not found")

	// ErrFeatureNotFound is generated when none of a feature's candidate names
	// resolve on the device, or a feature name is not in the catalog
	ErrFeatureNotFound = errors.New("feature not found")

	// ErrTypeMismatch is generated when the vendor type of a node disagrees
	// with the value type of the feature
	ErrTypeMismatch = errors.New("node type does not match feature type")

	// ErrNotAvailable is generated for any operation on an unavailable feature
	ErrNotAvailable = errors.New("feature not available")

	// ErrNotReadable is generated when reading a feature that cannot be read
	ErrNotReadable = errors.New("feature not readable")

	// ErrNotWritable is generated when writing a feature that cannot be written
	ErrNotWritable = errors.New("feature not writable")

	// ErrNoSuchCapability is generated when asking for a min, max, or increment
	// the feature does not have
	ErrNoSuchCapability = errors.New("feature has no such capability")

	// ErrNotEnumeration is generated when asking for enum entries of a
	// feature that is not an enumeration
	ErrNotEnumeration = errors.New("feature is not an enumeration")

	// ErrDeviceRejected is generated when the device refused a value or operation
	ErrDeviceRejected = errors.New("device rejected operation")

	// ErrTransport is generated when the round trip to the device failed
	ErrTransport = errors.New("transport error")
)

// Status is a status code returned by the vendor SDK
type Status int

// status codes, named after the SDK's own
const (
	StatusSuccess           Status = 0
	StatusInvalidBufferSize Status = -1001
	StatusInvalidHandle     Status = -1002
	StatusInvalidID         Status = -1003
	StatusAccessDenied      Status = -1004
	StatusNoData            Status = -1005
	StatusError             Status = -1006
	StatusInvalidParameter  Status = -1007
	StatusTimeout           Status = -1008
	StatusGCError           Status = -1012
	StatusValidationError   Status = -1013
	StatusValidationWarning Status = -1014
	StatusResource          Status = -1015
	StatusNotImplemented    Status = -1017
)

// StatusCodes maps status codes to their SDK names
var StatusCodes = map[Status]string{
	StatusSuccess:           "ST_SUCCESS",
	StatusInvalidBufferSize: "ST_INVALID_BUFFER_SIZE",
	StatusInvalidHandle:     "ST_INVALID_HANDLE",
	StatusInvalidID:         "ST_INVALID_ID",
	StatusAccessDenied:      "ST_ACCESS_DENIED",
	StatusNoData:            "ST_NO_DATA",
	StatusError:             "ST_ERROR",
	StatusInvalidParameter:  "ST_INVALID_PARAMETER",
	StatusTimeout:           "ST_TIMEOUT",
	StatusGCError:           "ST_GC_ERROR",
	StatusValidationError:   "ST_VALIDATION_ERROR",
	StatusValidationWarning: "ST_VALIDATION_WARNING",
	StatusResource:          "ST_RESOURCE_OR_MEMORY_ERROR",
	StatusNotImplemented:    "ST_NOT_IMPLEMENTED",
}

func (s Status) String() string {
	if str, ok := StatusCodes[s]; ok {
		return fmt.Sprintf("%d - %s", int(s), str)
	}
	return fmt.Sprintf("%d - UNKNOWN_STATUS_CODE", int(s))
}

// transport reports whether the status describes a failed round trip
// rather than the device refusing a request
func (s Status) transport() bool {
	switch s {
	case StatusInvalidHandle, StatusNoData, StatusTimeout, StatusResource, StatusError:
		return true
	}
	return false
}

// VendorError is a non-success status from the vendor SDK
type VendorError struct {
	// Op is the SDK call that failed
	Op string

	// Code is the status code
	Code Status
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

// FeatureError describes a failed operation on a feature.
// errors.Is matches the Kind (one of the Err... sentinels in this package),
// errors.As reaches the vendor error, if any, through Unwrap.
type FeatureError struct {
	// Feature is the catalog name of the feature
	Feature string

	// Node is the vendor node name the feature resolved to, may be empty
	Node string

	// Op is the operation that failed, e.g. "get" or "increment"
	Op string

	// Kind is the class of failure
	Kind error

	// Err is the underlying vendor or communication error, may be nil
	Err error
}

func (e *FeatureError) Error() string {
	name := e.Feature
	if e.Node != "" && e.Node != e.Feature {
		name = fmt.Sprintf("%s (%s)", e.Feature, e.Node)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v: %v", e.Op, name, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, name, e.Kind)
}

// Is matches the failure class
func (e *FeatureError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying error
func (e *FeatureError) Unwrap() error {
	return e.Err
}

// classify sorts a failed vendor call into rejected or transport.
// Only writes can be rejected; a failed read is always a transport problem.
func classify(err error, write bool) error {
	var ve *VendorError
	if write && errors.As(err, &ve) && !ve.Code.transport() {
		return ErrDeviceRejected
	}
	return ErrTransport
}
