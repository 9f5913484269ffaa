package camera

import (
	"errors"
	"io"

	"github.com/astrogo/fitsio"
	cam "github.com/nasa-jpl/mmadapters/camera"
)

// ErrNoFrames is generated when WriteFits is given nothing to write
var ErrNoFrames = errors.New("no frames to write")

// WriteFits streams a fits file to w.  More than one frame makes a cube;
// the frames must share a shape.  Unsigned 16 bit data is stored with the
// standard BZERO offset.
func WriteFits(w io.Writer, metadata []fitsio.Card, frames []cam.Frame) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	metadata = append(metadata, fitsio.Card{Name: "BZERO", Value: 32768}, fitsio.Card{Name: "BSCALE", Value: 1.0})
	nframes := len(frames)
	width, height := frames[0].Width, frames[0].Height
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	dims := []int{width, height}
	if nframes > 1 {
		dims = append(dims, nframes)
	}
	im := fitsio.NewImage(16, dims)
	defer im.Close()
	err = im.Header().Append(metadata...)
	if err != nil {
		return err
	}

	ints := make([]int16, 0, width*height*nframes)
	for _, f := range frames {
		for _, v := range f.Pix {
			ints = append(ints, int16(int32(v)-32768))
		}
	}
	err = im.Write(ints)
	if err != nil {
		return err
	}
	return fits.Write(im)
}
