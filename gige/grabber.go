package gige

import (
	"time"

	"github.com/nasa-jpl/mmadapters/camera"
)

// Grabber is a source of frames.  Streaming from the vendor SDK lives behind
// it; the adapter only needs one frame at a time.
type Grabber interface {
	Grab(width, height, bitDepth int, exposure time.Duration) (camera.Frame, error)
}

// TestPattern is a Grabber that produces a diagonal ramp whose brightness
// scales with the exposure time, saturating at 100 ms
type TestPattern struct{}

// Grab returns one frame of the ramp
func (TestPattern) Grab(width, height, bitDepth int, exposure time.Duration) (camera.Frame, error) {
	max := uint32(1)<<uint(bitDepth) - 1
	gain := float64(exposure) / float64(100*time.Millisecond)
	if gain > 1 || exposure == 0 {
		gain = 1
	}
	pix := make([]uint16, width*height)
	span := uint32(width + height)
	if span == 0 {
		span = 1
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := float64(uint32(x+y)*max/span) * gain
			pix[y*width+x] = uint16(v)
		}
	}
	return camera.Frame{Width: width, Height: height, BitDepth: bitDepth, Pix: pix}, nil
}
