// this file contains a few small image processing utilities
package camera

import (
	"image"
	"image/jpeg"
	"image/png"
	"io"

	cam "github.com/nasa-jpl/mmadapters/camera"
)

// KnownFormat is true for the image formats GetFrame can produce
func KnownFormat(f string) bool {
	switch f {
	case "jpg", "png", "fits":
		return true
	}
	return false
}

func contentType(f string) string {
	if f == "jpg" {
		return "jpeg"
	}
	return f
}

// Gray8 scales a frame to 8 bits
func Gray8(f cam.Frame) *image.Gray {
	shift := uint(0)
	if f.BitDepth > 8 {
		shift = uint(f.BitDepth - 8)
	}
	buf := make([]byte, len(f.Pix))
	for i, v := range f.Pix {
		buf[i] = byte(v >> shift)
	}
	return &image.Gray{Pix: buf, Stride: f.Width, Rect: image.Rect(0, 0, f.Width, f.Height)}
}

// Gray16 scales a frame to fill 16 bits
func Gray16(f cam.Frame) *image.Gray16 {
	shift := uint(0)
	if f.BitDepth < 16 {
		shift = uint(16 - f.BitDepth)
	}
	buf := make([]byte, 2*len(f.Pix))
	for i, v := range f.Pix {
		v <<= shift
		buf[2*i] = byte(v >> 8)
		buf[2*i+1] = byte(v)
	}
	return &image.Gray16{Pix: buf, Stride: 2 * f.Width, Rect: image.Rect(0, 0, f.Width, f.Height)}
}

// EncodeImage writes a frame as jpg (8 bit) or png (16 bit when the frame
// is deeper than 8 bits)
func EncodeImage(w io.Writer, f cam.Frame, format string) error {
	if format == "png" {
		if f.BitDepth > 8 {
			return png.Encode(w, Gray16(f))
		}
		return png.Encode(w, Gray8(f))
	}
	return jpeg.Encode(w, Gray8(f), nil)
}
