// Package gige adapts a GenICam/GigE Vision camera to the host property
// system.  The camera's node map is probed once into a genicam.Registry;
// every optional feature the camera has becomes a host property.
package gige

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nasa-jpl/mmadapters/camera"
	"github.com/nasa-jpl/mmadapters/genicam"
	"github.com/pion/logging"
)

// DeviceName is the value of the Name property
const DeviceName = "GigE camera adapter"

// property names
const (
	KeywordName            = "Name"
	KeywordVendor          = "Camera Vendor"
	KeywordVendorInfo      = "Camera Vendor Info"
	KeywordModel           = "Camera Model"
	KeywordVersion         = "Camera Version"
	KeywordCameraID        = "CameraID"
	KeywordFirmware        = "Camera Firmware Version"
	KeywordGevMajor        = "GigE Vision Major Version Number"
	KeywordGevMinor        = "GigE Vision Minor Version Number"
	KeywordWidth           = "Image Width"
	KeywordHeight          = "Image Height"
	KeywordWidthMax        = "Image Width Max"
	KeywordHeightMax       = "Image Height Max"
	KeywordSensorWidth     = "Sensor Width"
	KeywordSensorHeight    = "Sensor Height"
	KeywordBinning         = "Binning"
	KeywordBinningVertical = "Binning Vertical"
	KeywordBinningHorizont = "Binning Horizontal"
	KeywordPixelType       = "PixelType"
	KeywordExposure        = "Exposure"
	KeywordGain            = "Gain"
	KeywordTemperature     = "CCDTemperature"
	KeywordFrameRate       = "Frame Rate"
	KeywordOffset          = "Offset"
)

// LargestPixelBytes is the widest pixel any supported format produces;
// the transfer buffer is sized for it
const LargestPixelBytes = 4

var (
	// ErrNotInitialized is generated when the camera is used before Initialize
	ErrNotInitialized = errors.New("camera not initialized")

	// ErrNoImageSize is generated when the camera has no readable Width or Height
	ErrNoImageSize = errors.New("camera does not report its image size")

	// ErrUnknownPixelType is generated when a pixel type is not one the camera offered
	ErrUnknownPixelType = errors.New("unknown pixel type")
)

// Option configures a Camera
type Option func(*Camera)

// WithLoggerFactory sets the factory the camera's and registry's loggers come from
func WithLoggerFactory(f logging.LoggerFactory) Option {
	return func(c *Camera) { c.logf = f }
}

// WithGrabber sets the frame source
func WithGrabber(g Grabber) Option {
	return func(c *Camera) { c.grab = g }
}

// Camera is a GigE camera adapter.  It is not safe for concurrent use; the
// HTTP layer serializes access with a locker.
type Camera struct {
	sys  genicam.NodeSystem
	reg  *genicam.Registry
	prop *camera.PropertySet
	grab Grabber

	logf logging.LoggerFactory
	log  logging.LeveledLogger

	// pixelFormats and frameRates map entry to display name and back
	pixelFormats map[string]string
	frameRates   map[string]string

	exposure exposureNode

	bytesPerPixel int
	bufferSize    int
	initialized   bool
}

// New returns a camera for an opened vendor node map.  Nothing is read from
// the device until Initialize.
func New(sys genicam.NodeSystem, opts ...Option) *Camera {
	c := &Camera{sys: sys, bytesPerPixel: 1}
	for _, opt := range opts {
		opt(c)
	}
	if c.logf == nil {
		c.logf = logging.NewDefaultLoggerFactory()
	}
	c.log = c.logf.NewLogger("gige")
	if c.grab == nil {
		c.grab = TestPattern{}
	}
	return c
}

// Registry returns the feature registry, nil before Initialize
func (c *Camera) Registry() *genicam.Registry {
	return c.reg
}

// Properties returns the host properties, nil before Initialize
func (c *Camera) Properties() *camera.PropertySet {
	return c.prop
}

// Initialize probes the node map and creates the host properties.
// It may be called again after Finalize.
func (c *Camera) Initialize() error {
	if c.initialized {
		return nil
	}
	c.reg = genicam.NewRegistry(c.sys, genicam.WithLoggerFactory(c.logf))
	c.prop = camera.NewPropertySet()
	c.pixelFormats = make(map[string]string)
	c.frameRates = make(map[string]string)
	c.reg.LogNodes()

	steps := []func() error{
		c.createInfo,
		c.createGeometry,
		c.createBinning,
		c.createPixelType,
		c.setupExposureMode,
		c.createExposure,
		c.createGain,
		c.createTemperature,
		c.createFrameRate,
		func() error { return c.prop.Create(KeywordOffset, "0", camera.Integer, false, nil) },
		c.ResizeImageBuffer,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	c.initialized = true
	return nil
}

// Finalize releases the camera.  If the node system is an io.Closer it is closed.
func (c *Camera) Finalize() error {
	c.initialized = false
	if cl, ok := c.sys.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

func (c *Camera) createString(name string, f genicam.StringFeature) error {
	s, ok := c.reg.TryString(f).Get()
	if !ok {
		return nil
	}
	var act camera.Action
	if c.reg.IsWritable(f) {
		act = func(p *camera.Property, a camera.ActionType) error {
			if a == camera.AfterSet {
				return c.reg.SetString(f, p.Value())
			}
			return nil
		}
	}
	return c.prop.Create(name, s, camera.String, !c.reg.IsWritable(f), act)
}

func (c *Camera) createInfo() error {
	if err := c.prop.Create(KeywordName, DeviceName, camera.String, true, nil); err != nil {
		return err
	}
	strs := []struct {
		name string
		f    genicam.StringFeature
	}{
		{KeywordVendor, genicam.DeviceVendorName},
		{KeywordVendorInfo, genicam.DeviceManufacturerInfo},
		{KeywordModel, genicam.DeviceModelName},
		{KeywordVersion, genicam.DeviceVersion},
		{KeywordCameraID, genicam.DeviceID},
		{KeywordFirmware, genicam.DeviceFirmwareVersion},
	}
	for _, s := range strs {
		if err := c.createString(s.name, s.f); err != nil {
			return err
		}
	}
	if err := c.createInt(KeywordGevMajor, genicam.GevVersionMajor, false, nil); err != nil {
		return err
	}
	return c.createInt(KeywordGevMinor, genicam.GevVersionMinor, false, nil)
}

// intAction ties an integer property to a feature.  after runs following a
// successful write.
func (c *Camera) intAction(f genicam.IntFeature, after func() error) camera.Action {
	return func(p *camera.Property, a camera.ActionType) error {
		switch a {
		case camera.BeforeGet:
			v, err := c.reg.GetInt(f)
			if err != nil {
				return err
			}
			p.StoreInt(v)
		case camera.AfterSet:
			v, err := p.Int()
			if err != nil {
				return err
			}
			if err := c.reg.SetInt(f, v); err != nil {
				return err
			}
			if after != nil {
				return after()
			}
		}
		return nil
	}
}

// createInt makes an integer property for f if the camera has it, with
// limits from the device when limits is true
func (c *Camera) createInt(name string, f genicam.IntFeature, limits bool, after func() error) error {
	v, ok := c.reg.TryInt(f).Get()
	if !ok {
		return nil
	}
	ro := !c.reg.IsWritable(f)
	if err := c.prop.Create(name, fmt.Sprint(v), camera.Integer, ro, c.intAction(f, after)); err != nil {
		return err
	}
	if limits {
		return c.refreshIntLimits(name, f)
	}
	return nil
}

func (c *Camera) refreshIntLimits(name string, f genicam.IntFeature) error {
	lo, err := c.reg.IntMin(f)
	if err != nil {
		return err
	}
	hi, err := c.reg.IntMax(f)
	if err != nil {
		return err
	}
	return c.prop.SetLimits(name, float64(lo), float64(hi))
}

func (c *Camera) createGeometry() error {
	if err := c.createInt(KeywordWidth, genicam.Width, true, c.ResizeImageBuffer); err != nil {
		return err
	}
	if err := c.createInt(KeywordHeight, genicam.Height, true, c.ResizeImageBuffer); err != nil {
		return err
	}
	for _, p := range []struct {
		name string
		f    genicam.IntFeature
	}{
		{KeywordWidthMax, genicam.WidthMax},
		{KeywordHeightMax, genicam.HeightMax},
		{KeywordSensorWidth, genicam.SensorWidth},
		{KeywordSensorHeight, genicam.SensorHeight},
	} {
		if err := c.createInt(p.name, p.f, false, nil); err != nil {
			return err
		}
	}
	return nil
}

// ResizeImageBuffer syncs the buffer size with the current width, height
// and pixel type
func (c *Camera) ResizeImageBuffer() error {
	w, err := c.reg.GetInt(genicam.Width)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoImageSize, err)
	}
	h, err := c.reg.GetInt(genicam.Height)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoImageSize, err)
	}
	c.bytesPerPixel = 1
	if px, ok := c.reg.TryString(genicam.PixelFormat).Get(); ok {
		c.bytesPerPixel = BytesPerPixel(px)
	}
	c.bufferSize = int(w * h * LargestPixelBytes)
	// the width and height ranges can move with binning and pixel format
	if c.prop.Has(KeywordWidth) {
		if err := c.refreshIntLimits(KeywordWidth, genicam.Width); err != nil {
			return err
		}
	}
	if c.prop.Has(KeywordHeight) {
		return c.refreshIntLimits(KeywordHeight, genicam.Height)
	}
	return nil
}

// BytesPerPixel returns the bytes one pixel of a GenICam pixel format takes
// in the image handed to the host
func BytesPerPixel(format string) int {
	switch format {
	case "Mono10", "Mono12", "Mono14", "Mono16":
		return 2
	}
	return 1
}

// BitDepth returns the significant bits of a GenICam pixel format
func BitDepth(format string) int {
	switch format {
	case "Mono10":
		return 10
	case "Mono12":
		return 12
	case "Mono14":
		return 14
	case "Mono16":
		return 16
	}
	return 8
}

// ImageBytesPerPixel is the bytes per pixel of the current pixel type
func (c *Camera) ImageBytesPerPixel() int {
	return c.bytesPerPixel
}

// ImageBufferSize is the size in bytes of the transfer buffer
func (c *Camera) ImageBufferSize() int {
	return c.bufferSize
}

func (c *Camera) createPixelType() error {
	if !c.reg.IsAvailable(genicam.PixelFormat) {
		return nil
	}
	entries, err := c.reg.EnumEntries(genicam.PixelFormat)
	if err != nil {
		return err
	}
	var values []string
	for _, e := range entries {
		if unsupportedFormat(e.Name) {
			continue
		}
		c.pixelFormats[e.Name] = e.Display
		c.pixelFormats[e.Display] = e.Name
		values = append(values, e.Display)
	}
	px, err := c.reg.GetString(genicam.PixelFormat)
	if err != nil {
		return err
	}
	dn, ok := c.pixelFormats[px]
	if !ok {
		dn = px
	}
	act := func(p *camera.Property, a camera.ActionType) error {
		switch a {
		case camera.BeforeGet:
			px, err := c.reg.GetString(genicam.PixelFormat)
			if err != nil {
				return err
			}
			if dn, ok := c.pixelFormats[px]; ok {
				px = dn
			}
			p.Store(px)
		case camera.AfterSet:
			entry, ok := c.pixelFormats[p.Value()]
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownPixelType, p.Value())
			}
			c.log.Debugf("setting pixel format to %s", entry)
			if err := c.reg.SetString(genicam.PixelFormat, entry); err != nil {
				return err
			}
			return c.ResizeImageBuffer()
		}
		return nil
	}
	if err := c.prop.Create(KeywordPixelType, dn, camera.String, !c.reg.IsWritable(genicam.PixelFormat), act); err != nil {
		return err
	}
	return c.prop.SetAllowedValues(KeywordPixelType, values)
}

// unsupportedFormat is true for pixel formats the adapter cannot unpack
func unsupportedFormat(entry string) bool {
	for _, s := range []string{"Packed", "Bayer", "Planar", "Device-specific"} {
		if strings.Contains(entry, s) {
			return true
		}
	}
	return false
}

func (c *Camera) createGain() error {
	if g, ok := c.reg.TryFloat(genicam.Gain).Get(); ok {
		act := c.floatAction(genicam.Gain, 1)
		if err := c.prop.Create(KeywordGain, fmtFloat(g), camera.Float, !c.reg.IsWritable(genicam.Gain), act); err != nil {
			return err
		}
		return c.floatLimits(KeywordGain, genicam.Gain, 1)
	}
	return c.createInt(KeywordGain, genicam.GainRaw, true, nil)
}

func (c *Camera) createTemperature() error {
	t, ok := c.reg.TryFloat(genicam.Temperature).Get()
	if !ok {
		return nil
	}
	act := c.floatAction(genicam.Temperature, 1)
	if err := c.prop.Create(KeywordTemperature, fmtFloat(t), camera.Float, !c.reg.IsWritable(genicam.Temperature), act); err != nil {
		return err
	}
	return c.floatLimits(KeywordTemperature, genicam.Temperature, 1)
}

// floatAction ties a float property to a feature; the device value is the
// property value times scale
func (c *Camera) floatAction(f genicam.FloatFeature, scale float64) camera.Action {
	return func(p *camera.Property, a camera.ActionType) error {
		switch a {
		case camera.BeforeGet:
			v, err := c.reg.GetFloat(f)
			if err != nil {
				return err
			}
			p.StoreFloat(v / scale)
		case camera.AfterSet:
			v, err := p.Float()
			if err != nil {
				return err
			}
			return c.reg.SetFloat(f, v*scale)
		}
		return nil
	}
}

func (c *Camera) floatLimits(name string, f genicam.FloatFeature, scale float64) error {
	lo, err := c.reg.FloatMin(f)
	if err != nil {
		return err
	}
	hi, err := c.reg.FloatMax(f)
	if err != nil {
		return err
	}
	return c.prop.SetLimits(name, lo/scale, hi/scale)
}

func (c *Camera) createFrameRate() error {
	if fr, ok := c.reg.TryFloat(genicam.AcquisitionFrameRate).Get(); ok {
		act := c.floatAction(genicam.AcquisitionFrameRate, 1)
		if err := c.prop.Create(KeywordFrameRate, fmtFloat(fr), camera.Float, !c.reg.IsWritable(genicam.AcquisitionFrameRate), act); err != nil {
			return err
		}
		return c.floatLimits(KeywordFrameRate, genicam.AcquisitionFrameRate, 1)
	}
	f := genicam.AcquisitionFrameRateStr
	fr, ok := c.reg.TryString(f).Get()
	if !ok {
		return nil
	}
	entries, err := c.reg.EnumEntries(f)
	if err != nil {
		return err
	}
	values := make([]string, 0, len(entries))
	for _, e := range entries {
		c.frameRates[e.Name] = e.Display
		c.frameRates[e.Display] = e.Name
		values = append(values, e.Display)
	}
	if dn, ok := c.frameRates[fr]; ok {
		fr = dn
	}
	act := func(p *camera.Property, a camera.ActionType) error {
		switch a {
		case camera.BeforeGet:
			v, err := c.reg.GetString(f)
			if err != nil {
				return err
			}
			if dn, ok := c.frameRates[v]; ok {
				v = dn
			}
			p.Store(v)
		case camera.AfterSet:
			entry, ok := c.frameRates[p.Value()]
			if !ok {
				entry = p.Value()
			}
			return c.reg.SetString(f, entry)
		}
		return nil
	}
	if err := c.prop.Create(KeywordFrameRate, fr, camera.String, !c.reg.IsWritable(f), act); err != nil {
		return err
	}
	return c.prop.SetAllowedValues(KeywordFrameRate, values)
}

// GetRes gets the (H, W) of the image
func (c *Camera) GetRes() ([2]int, error) {
	if c.reg == nil {
		return [2]int{}, ErrNotInitialized
	}
	w, err := c.reg.GetInt(genicam.Width)
	if err != nil {
		return [2]int{}, err
	}
	h, err := c.reg.GetInt(genicam.Height)
	if err != nil {
		return [2]int{}, err
	}
	return [2]int{int(h), int(w)}, nil
}

// GetFrame acquires one frame from the grabber at the current geometry
func (c *Camera) GetFrame() (camera.Frame, error) {
	if !c.initialized {
		return camera.Frame{}, ErrNotInitialized
	}
	res, err := c.GetRes()
	if err != nil {
		return camera.Frame{}, err
	}
	depth := 8
	if px, ok := c.reg.TryString(genicam.PixelFormat).Get(); ok {
		depth = BitDepth(px)
	}
	texp, err := c.GetExposureTime()
	if err != nil {
		// a camera without an exposure node still streams
		texp = 0
	}
	return c.grab.Grab(res[1], res[0], depth, texp)
}

// GetTemperature returns the camera temperature in Celcius
func (c *Camera) GetTemperature() (float64, error) {
	if c.reg == nil {
		return 0, ErrNotInitialized
	}
	return c.reg.GetFloat(genicam.Temperature)
}

// GetBinning returns the unified binning factor
func (c *Camera) GetBinning() (int, error) {
	if c.prop == nil {
		return 1, ErrNotInitialized
	}
	s, err := c.prop.Get(KeywordBinning)
	if err != nil {
		return 1, err
	}
	var b int
	_, err = fmt.Sscan(s, &b)
	return b, err
}

// SetBinning sets the unified binning factor
func (c *Camera) SetBinning(b int) error {
	if c.prop == nil {
		return ErrNotInitialized
	}
	return c.prop.Set(KeywordBinning, fmt.Sprint(b))
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// durationFromMicros converts a device exposure in µs to a duration
func durationFromMicros(us float64) time.Duration {
	return time.Duration(us * float64(time.Microsecond))
}
