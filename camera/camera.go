/*Package camera describes a standard set of interfaces for control of cameras
and the host property system device adapters publish their settings through.

The Minimal type contains the basics, while Sci contains some extended features
typically found on scientific cameras.

*/
package camera

import "time"

// Frame is one image.  Pix holds Width*Height samples in row-major order;
// samples narrower than 16 bits are stored in the low bits.
type Frame struct {
	Width  int
	Height int

	// BitDepth is the number of significant bits per sample
	BitDepth int

	Pix []uint16
}

// ROI is a region of interest on the sensor, in unbinned pixels
type ROI struct {
	X, Y int
	W, H int
}

// Minimal describes a minimal camera interface with only the basics.
type Minimal interface {
	// Initialize initializes the camera.  For a GenICam device this probes
	// the node map and creates the host properties.
	Initialize() error

	// Finalize releases the camera.  The camera may not be used after.
	Finalize() error

	// GetRes gets the (H, W) associated with the data returned by GetFrame
	GetRes() ([2]int, error)

	// GetFrame acquires one frame
	GetFrame() (Frame, error)
}

// Sci describes an extended interface for scientific cameras
// we do not enforce this constraint, but a type which implements
// Sci will nearly always implement Minimal.
type Sci interface {
	// GetExposureTime gets the exposure time
	GetExposureTime() (time.Duration, error)

	// SetExposureTime sets the exposure time
	SetExposureTime(time.Duration) error

	// GetTemperature gets the current camera temperature in Celcius.
	// What the temperature is actually measured on (sensor, pcb, etc)
	// is implementation dependent.
	GetTemperature() (float64, error)
}

// Binner is a camera that bins pixels on the sensor
type Binner interface {
	GetBinning() (int, error)
	SetBinning(int) error
}

// Cropper is a camera with a region of interest
type Cropper interface {
	SetROI(ROI) error
	GetROI() (ROI, error)
	ClearROI() error
}
