package gige

import (
	"time"

	"github.com/astrogo/fitsio"

	"github.com/nasa-jpl/mmadapters/genicam"
)

// HeaderVersion is written to the HDRVER card of every FITS file
const HeaderVersion = "1"

// CollectHeaderMetadata produces the FITS cards describing the camera and
// its settings.  Cards for features the camera lacks are left out.
func (c *Camera) CollectHeaderMetadata() []fitsio.Card {
	cards := []fitsio.Card{
		{Name: "HDRVER", Value: HeaderVersion, Comment: "header version"},
		{Name: "DATE", Value: time.Now().UTC().Format(time.RFC3339), Comment: "image capture time, UTC"},
	}
	if c.reg == nil {
		return cards
	}
	strs := []struct {
		name, comment string
		f             genicam.StringFeature
	}{
		{"CAMVEND", "camera vendor", genicam.DeviceVendorName},
		{"CAMMODL", "camera model", genicam.DeviceModelName},
		{"CAMSN", "camera ID", genicam.DeviceID},
		{"CAMFW", "camera firmware version", genicam.DeviceFirmwareVersion},
		{"PIXFMT", "pixel format", genicam.PixelFormat},
	}
	for _, s := range strs {
		if v, ok := c.reg.TryString(s.f).Get(); ok {
			cards = append(cards, fitsio.Card{Name: s.name, Value: v, Comment: s.comment})
		}
	}
	if texp, err := c.GetExposureTime(); err == nil {
		cards = append(cards, fitsio.Card{Name: "EXPTIME", Value: texp.Seconds(), Comment: "exposure time, seconds"})
	}
	if t, ok := c.reg.TryFloat(genicam.Temperature).Get(); ok {
		cards = append(cards, fitsio.Card{Name: "CAMTEMP", Value: t, Comment: "camera temperature, C"})
	}
	if g, ok := c.reg.TryFloat(genicam.Gain).Get(); ok {
		cards = append(cards, fitsio.Card{Name: "GAIN", Value: g, Comment: "gain"})
	} else if g, ok := c.reg.TryInt(genicam.GainRaw).Get(); ok {
		cards = append(cards, fitsio.Card{Name: "GAIN", Value: int(g), Comment: "gain, raw counts"})
	}
	ints := []struct {
		name, comment string
		f             genicam.IntFeature
	}{
		{"BINV", "vertical binning", genicam.BinningVertical},
		{"BINH", "horizontal binning", genicam.BinningHorizontal},
		{"AOIX", "ROI offset x, 0-based", genicam.OffsetX},
		{"AOIY", "ROI offset y, 0-based", genicam.OffsetY},
	}
	for _, i := range ints {
		if v, ok := c.reg.TryInt(i.f).Get(); ok {
			cards = append(cards, fitsio.Card{Name: i.name, Value: int(v), Comment: i.comment})
		}
	}
	return cards
}
