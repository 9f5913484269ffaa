package gige

import (
	"errors"
	"time"

	"github.com/nasa-jpl/mmadapters/camera"
	"github.com/nasa-jpl/mmadapters/genicam"
)

// ErrNoExposure is generated when the camera has no exposure node
var ErrNoExposure = errors.New("camera has no exposure time feature")

// exposureNode is whichever of the exposure features the camera has.
// Values are in µs, the GenICam unit.
type exposureNode struct {
	name     string
	get      func() (float64, error)
	set      func(float64) error
	min, max func() (float64, error)
	writable bool
}

func (e exposureNode) ok() bool {
	return e.get != nil
}

func floatExposure(reg *genicam.Registry, f genicam.FloatFeature) exposureNode {
	return exposureNode{
		name:     f.String(),
		get:      func() (float64, error) { return reg.GetFloat(f) },
		set:      func(v float64) error { return reg.SetFloat(f, v) },
		min:      func() (float64, error) { return reg.FloatMin(f) },
		max:      func() (float64, error) { return reg.FloatMax(f) },
		writable: reg.IsWritable(f),
	}
}

// intExposure adapts the integer ExposureTimeAbs of older firmware
func intExposure(reg *genicam.Registry, f genicam.IntFeature) exposureNode {
	wrap := func(g func(genicam.IntFeature) (int64, error)) func() (float64, error) {
		return func() (float64, error) {
			v, err := g(f)
			return float64(v), err
		}
	}
	return exposureNode{
		name:     f.String(),
		get:      wrap(reg.GetInt),
		set:      func(v float64) error { return reg.SetInt(f, int64(v+0.5)) },
		min:      wrap(reg.IntMin),
		max:      wrap(reg.IntMax),
		writable: reg.IsWritable(f),
	}
}

// pickExposure returns the first exposure feature the camera has, in the
// order ExposureTime, ExposureTimeAbs (float), ExposureTimeAbs (integer)
func pickExposure(reg *genicam.Registry) exposureNode {
	switch {
	case reg.IsAvailable(genicam.ExposureTime):
		return floatExposure(reg, genicam.ExposureTime)
	case reg.IsAvailable(genicam.ExposureTimeAbs):
		return floatExposure(reg, genicam.ExposureTimeAbs)
	case reg.IsAvailable(genicam.ExposureTimeAbsInt):
		return intExposure(reg, genicam.ExposureTimeAbsInt)
	}
	return exposureNode{}
}

// setupExposureMode puts the camera in timed exposure so the exposure time
// is honored.  Cameras without ExposureMode use ShutterMode instead.
func (c *Camera) setupExposureMode() error {
	if c.reg.IsWritable(genicam.ExposureMode) {
		if err := c.reg.SetString(genicam.ExposureMode, "Timed"); err != nil {
			c.log.Warnf("could not set ExposureMode to Timed: %v", err)
		}
		return nil
	}
	if c.reg.IsWritable(genicam.ShutterMode) {
		if err := c.reg.SetString(genicam.ShutterMode, "ExposureTimeAbs"); err != nil {
			c.log.Warnf("could not set ShutterMode to ExposureTimeAbs: %v", err)
		}
	}
	return nil
}

// createExposure makes the Exposure property, in ms
func (c *Camera) createExposure() error {
	c.exposure = pickExposure(c.reg)
	if !c.exposure.ok() {
		c.log.Warnf("%v", ErrNoExposure)
		return nil
	}
	c.log.Debugf("using %s for exposure", c.exposure.name)
	us, err := c.exposure.get()
	if err != nil {
		return err
	}
	act := func(p *camera.Property, a camera.ActionType) error {
		switch a {
		case camera.BeforeGet:
			us, err := c.exposure.get()
			if err != nil {
				return err
			}
			p.StoreFloat(us / 1000)
		case camera.AfterSet:
			ms, err := p.Float()
			if err != nil {
				return err
			}
			return c.exposure.set(ms * 1000)
		}
		return nil
	}
	if err := c.prop.Create(KeywordExposure, fmtFloat(us/1000), camera.Float, !c.exposure.writable, act); err != nil {
		return err
	}
	lo, err := c.exposure.min()
	if err != nil {
		return err
	}
	hi, err := c.exposure.max()
	if err != nil {
		return err
	}
	return c.prop.SetLimits(KeywordExposure, lo/1000, hi/1000)
}

// GetExposureTime returns the exposure time
func (c *Camera) GetExposureTime() (time.Duration, error) {
	if !c.exposure.ok() {
		return 0, ErrNoExposure
	}
	us, err := c.exposure.get()
	if err != nil {
		return 0, err
	}
	return durationFromMicros(us), nil
}

// SetExposureTime sets the exposure time.  It goes through the Exposure
// property so the property's limits apply.
func (c *Camera) SetExposureTime(d time.Duration) error {
	if !c.exposure.ok() {
		return ErrNoExposure
	}
	ms := float64(d) / float64(time.Millisecond)
	return c.prop.Set(KeywordExposure, fmtFloat(ms))
}
