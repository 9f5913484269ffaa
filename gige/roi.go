package gige

import (
	"github.com/nasa-jpl/mmadapters/camera"
	"github.com/nasa-jpl/mmadapters/genicam"
)

// SetROI crops the sensor.  The offsets are zeroed first so the new width
// and height are always within range.
func (c *Camera) SetROI(roi camera.ROI) error {
	if c.reg == nil {
		return ErrNotInitialized
	}
	if err := c.setOffsets(0, 0); err != nil {
		return err
	}
	if err := c.reg.SetInt(genicam.Width, int64(roi.W)); err != nil {
		return err
	}
	if err := c.reg.SetInt(genicam.Height, int64(roi.H)); err != nil {
		return err
	}
	if err := c.setOffsets(roi.X, roi.Y); err != nil {
		return err
	}
	return c.ResizeImageBuffer()
}

func (c *Camera) setOffsets(x, y int) error {
	if c.reg.IsWritable(genicam.OffsetX) {
		if err := c.reg.SetInt(genicam.OffsetX, int64(x)); err != nil {
			return err
		}
	}
	if c.reg.IsWritable(genicam.OffsetY) {
		if err := c.reg.SetInt(genicam.OffsetY, int64(y)); err != nil {
			return err
		}
	}
	return nil
}

// GetROI returns the current crop.  Cameras without offsets report 0, 0.
func (c *Camera) GetROI() (camera.ROI, error) {
	res, err := c.GetRes()
	if err != nil {
		return camera.ROI{}, err
	}
	roi := camera.ROI{W: res[1], H: res[0]}
	roi.X = int(c.reg.TryInt(genicam.OffsetX).Or(0))
	roi.Y = int(c.reg.TryInt(genicam.OffsetY).Or(0))
	return roi, nil
}

// ClearROI restores the full frame
func (c *Camera) ClearROI() error {
	if c.reg == nil {
		return ErrNotInitialized
	}
	if err := c.setOffsets(0, 0); err != nil {
		return err
	}
	w, err := c.reg.IntMax(genicam.Width)
	if err != nil {
		return err
	}
	h, err := c.reg.IntMax(genicam.Height)
	if err != nil {
		return err
	}
	if err := c.reg.SetInt(genicam.Width, w); err != nil {
		return err
	}
	if err := c.reg.SetInt(genicam.Height, h); err != nil {
		return err
	}
	return c.ResizeImageBuffer()
}
