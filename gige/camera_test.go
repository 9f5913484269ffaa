package gige_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nasa-jpl/mmadapters/camera"
	"github.com/nasa-jpl/mmadapters/genicam"
	"github.com/nasa-jpl/mmadapters/gige"
)

func setup(t *testing.T) (*gige.Camera, *genicam.MockDevice) {
	t.Helper()
	dev := genicam.NewMockCamera()
	c := gige.New(dev)
	if err := c.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return c, dev
}

func get(t *testing.T, c *gige.Camera, name string) string {
	t.Helper()
	v, err := c.Properties().Get(name)
	if err != nil {
		t.Fatalf("get %s: %v", name, err)
	}
	return v
}

func TestInitializeCreatesProperties(t *testing.T) {
	c, _ := setup(t)
	expected := map[string]string{
		gige.KeywordName:            gige.DeviceName,
		gige.KeywordVendor:          "Mock Vision",
		gige.KeywordModel:           "MV-1280M",
		gige.KeywordCameraID:        "MV0001",
		gige.KeywordFirmware:        "3.2.1",
		gige.KeywordGevMajor:        "1",
		gige.KeywordGevMinor:        "2",
		gige.KeywordWidth:           "1280",
		gige.KeywordHeight:          "1024",
		gige.KeywordSensorWidth:     "1280",
		gige.KeywordBinning:         "1",
		gige.KeywordBinningVertical: "1",
		gige.KeywordPixelType:       "Mono 8",
		gige.KeywordExposure:        "10",
		gige.KeywordGain:            "0",
		gige.KeywordTemperature:     "38.5",
		gige.KeywordFrameRate:       "30 fps",
		gige.KeywordOffset:          "0",
	}
	for name, want := range expected {
		if got := get(t, c, name); got != want {
			t.Errorf("%s: expected %q got %q", name, want, got)
		}
	}
}

func TestInitializeSelectsTimedExposure(t *testing.T) {
	c, _ := setup(t)
	mode, err := c.Registry().GetString(genicam.ExposureMode)
	if err != nil {
		t.Fatal(err)
	}
	if mode != "Timed" {
		t.Errorf("expected ExposureMode Timed, got %s", mode)
	}
}

func TestReadOnlyPropertiesFollowAccessMode(t *testing.T) {
	c, _ := setup(t)
	for _, name := range []string{gige.KeywordVendor, gige.KeywordTemperature, gige.KeywordSensorWidth} {
		err := c.Properties().Set(name, "1")
		if !errors.Is(err, camera.ErrReadOnly) {
			t.Errorf("%s: expected ErrReadOnly, got %v", name, err)
		}
	}
}

func TestExposureRoundTrip(t *testing.T) {
	c, _ := setup(t)
	if err := c.SetExposureTime(25 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	d, err := c.GetExposureTime()
	if err != nil {
		t.Fatal(err)
	}
	if d != 25*time.Millisecond {
		t.Errorf("expected 25ms got %v", d)
	}
	us, _ := c.Registry().GetFloat(genicam.ExposureTimeAbs)
	if us != 25000 {
		t.Errorf("expected device to hold 25000 µs, got %v", us)
	}
	if got := get(t, c, gige.KeywordExposure); got != "25" {
		t.Errorf("expected Exposure property 25, got %s", got)
	}
}

func TestExposureLimits(t *testing.T) {
	c, _ := setup(t)
	err := c.SetExposureTime(time.Hour)
	if !errors.Is(err, camera.ErrOutOfLimits) {
		t.Errorf("expected ErrOutOfLimits, got %v", err)
	}
	p, _ := c.Properties().Property(gige.KeywordExposure)
	lo, hi, ok := p.Limits()
	if !ok || lo != 0.01 || hi != 10000 {
		t.Errorf("expected limits [0.01, 10000], got [%v, %v] %v", lo, hi, ok)
	}
}

func TestIntegerExposureFallback(t *testing.T) {
	dev := genicam.NewMockDevice().
		AddInt("Width", genicam.ReadWrite, 64, 8, 64, 8).
		AddInt("Height", genicam.ReadWrite, 32, 8, 32, 8).
		AddInt("ExposureTimeAbs", genicam.ReadWrite, 5000, 100, 100000, 1)
	c := gige.New(dev)
	if err := c.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := c.SetExposureTime(1500 * time.Microsecond); err != nil {
		t.Fatal(err)
	}
	v, err := c.Registry().GetInt(genicam.ExposureTimeAbsInt)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1500 {
		t.Errorf("expected 1500 µs, got %d", v)
	}
}

func TestNoExposure(t *testing.T) {
	dev := genicam.NewMockDevice().
		AddInt("Width", genicam.ReadWrite, 64, 8, 64, 8).
		AddInt("Height", genicam.ReadWrite, 32, 8, 32, 8)
	c := gige.New(dev)
	if err := c.Initialize(); err != nil {
		t.Fatal(err)
	}
	if c.Properties().Has(gige.KeywordExposure) {
		t.Error("expected no Exposure property")
	}
	if _, err := c.GetExposureTime(); !errors.Is(err, gige.ErrNoExposure) {
		t.Errorf("expected ErrNoExposure, got %v", err)
	}
	if got := get(t, c, gige.KeywordBinning); got != "1" {
		t.Errorf("expected Binning 1 without binning nodes, got %s", got)
	}
	p, _ := c.Properties().Property(gige.KeywordBinning)
	if diff := cmp.Diff([]string{"1"}, p.Allowed()); diff != "" {
		t.Errorf("allowed binning (-want +got):\n%s", diff)
	}
}

func TestInitializeNeedsImageSize(t *testing.T) {
	c := gige.New(genicam.NewMockDevice())
	if err := c.Initialize(); !errors.Is(err, gige.ErrNoImageSize) {
		t.Errorf("expected ErrNoImageSize, got %v", err)
	}
}

func TestPixelTypeSkipsUnsupportedFormats(t *testing.T) {
	c, _ := setup(t)
	p, _ := c.Properties().Property(gige.KeywordPixelType)
	expected := []string{"Mono 8", "Mono 10", "Mono 12", "Mono 16"}
	if diff := cmp.Diff(expected, p.Allowed()); diff != "" {
		t.Errorf("allowed pixel types (-want +got):\n%s", diff)
	}
	err := c.Properties().Set(gige.KeywordPixelType, "Bayer RG 8")
	if !errors.Is(err, camera.ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
}

func TestPixelTypeResizesBuffer(t *testing.T) {
	c, _ := setup(t)
	if c.ImageBytesPerPixel() != 1 {
		t.Errorf("expected 1 byte per pixel, got %d", c.ImageBytesPerPixel())
	}
	if err := c.Properties().Set(gige.KeywordPixelType, "Mono 12"); err != nil {
		t.Fatal(err)
	}
	px, _ := c.Registry().GetString(genicam.PixelFormat)
	if px != "Mono12" {
		t.Errorf("expected PixelFormat Mono12, got %s", px)
	}
	if c.ImageBytesPerPixel() != 2 {
		t.Errorf("expected 2 bytes per pixel, got %d", c.ImageBytesPerPixel())
	}
	f, err := c.GetFrame()
	if err != nil {
		t.Fatal(err)
	}
	if f.BitDepth != 12 {
		t.Errorf("expected 12 bit frame, got %d", f.BitDepth)
	}
}

func TestWidthChangeResizesBuffer(t *testing.T) {
	c, _ := setup(t)
	if got := c.ImageBufferSize(); got != 1280*1024*gige.LargestPixelBytes {
		t.Errorf("unexpected initial buffer size %d", got)
	}
	if err := c.Properties().Set(gige.KeywordWidth, "640"); err != nil {
		t.Fatal(err)
	}
	if got := c.ImageBufferSize(); got != 640*1024*gige.LargestPixelBytes {
		t.Errorf("expected buffer for 640x1024, got %d", got)
	}
	res, err := c.GetRes()
	if err != nil {
		t.Fatal(err)
	}
	if res != [2]int{1024, 640} {
		t.Errorf("expected (H, W) (1024, 640), got %v", res)
	}
}

func TestWidthRejectedByDevice(t *testing.T) {
	c, _ := setup(t)
	// within the property limits but off the 16 pixel increment
	err := c.Properties().Set(gige.KeywordWidth, "650")
	if !errors.Is(err, genicam.ErrDeviceRejected) {
		t.Fatalf("expected ErrDeviceRejected, got %v", err)
	}
	if got := get(t, c, gige.KeywordWidth); got != "1280" {
		t.Errorf("expected width to stay 1280, got %s", got)
	}
}

func TestBinning(t *testing.T) {
	c, _ := setup(t)
	p, _ := c.Properties().Property(gige.KeywordBinning)
	if diff := cmp.Diff([]string{"1", "2", "3", "4"}, p.Allowed()); diff != "" {
		t.Errorf("allowed binning (-want +got):\n%s", diff)
	}
	if err := c.SetBinning(2); err != nil {
		t.Fatal(err)
	}
	for _, f := range []genicam.IntFeature{genicam.BinningVertical, genicam.BinningHorizontal} {
		if v, _ := c.Registry().GetInt(f); v != 2 {
			t.Errorf("expected %s 2, got %d", f, v)
		}
	}
	b, err := c.GetBinning()
	if err != nil {
		t.Fatal(err)
	}
	if b != 2 {
		t.Errorf("expected binning 2, got %d", b)
	}
}

func TestBinningRejectedByOneAxis(t *testing.T) {
	c, _ := setup(t)
	// the mock bins 1-4 vertically but only 1-2 horizontally
	if err := c.SetBinning(3); !errors.Is(err, genicam.ErrDeviceRejected) {
		t.Fatalf("expected ErrDeviceRejected, got %v", err)
	}
	for _, f := range []genicam.IntFeature{genicam.BinningVertical, genicam.BinningHorizontal} {
		if v, _ := c.Registry().GetInt(f); v != 1 {
			t.Errorf("expected %s back at 1, got %d", f, v)
		}
	}
	if b, err := c.GetBinning(); err != nil || b != 1 {
		t.Errorf("expected binning 1, got %d, %v", b, err)
	}
	if got, expected := c.ImageBufferSize(), 1280*1024*gige.LargestPixelBytes; got != expected {
		t.Errorf("expected buffer of %d bytes, got %d", expected, got)
	}
}

func TestBinningValuesAreBounded(t *testing.T) {
	cases := []struct {
		name     string
		max, inc int64
		expected []string
	}{
		{"near overflow", math.MaxInt64, math.MaxInt64 / 2, []string{"1", "4611686018427387904", "9223372036854775807"}},
		{"too many", 1e9, 1, []string{"1", "1000000000"}},
		{"small", 7, 3, []string{"1", "4", "7"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dev := genicam.NewMockDevice().
				AddInt("Width", genicam.ReadWrite, 64, 8, 64, 8).
				AddInt("Height", genicam.ReadWrite, 32, 8, 32, 8).
				AddInt("BinningVertical", genicam.ReadWrite, 1, 1, tc.max, tc.inc)
			c := gige.New(dev)
			done := make(chan error, 1)
			go func() { done <- c.Initialize() }()
			select {
			case err := <-done:
				if err != nil {
					t.Fatal(err)
				}
			case <-time.After(3 * time.Second):
				t.Fatal("Initialize did not return")
			}
			p, _ := c.Properties().Property(gige.KeywordBinningVertical)
			if diff := cmp.Diff(tc.expected, p.Allowed()); diff != "" {
				t.Errorf("allowed vertical binning (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAllowedBinning(t *testing.T) {
	cases := []struct {
		v, h, expected []string
	}{
		{nil, nil, []string{"1"}},
		{[]string{"1", "2"}, nil, []string{"1", "2"}},
		{[]string{"1", "2", "4"}, []string{"1", "3"}, []string{"1", "2", "3", "4"}},
	}
	for _, tc := range cases {
		got := gige.AllowedBinning(tc.v, tc.h)
		if diff := cmp.Diff(tc.expected, got); diff != "" {
			t.Errorf("AllowedBinning(%v, %v) (-want +got):\n%s", tc.v, tc.h, diff)
		}
	}
}

func TestROI(t *testing.T) {
	c, _ := setup(t)
	roi := camera.ROI{X: 32, Y: 10, W: 256, H: 128}
	if err := c.SetROI(roi); err != nil {
		t.Fatal(err)
	}
	got, err := c.GetROI()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(roi, got); diff != "" {
		t.Errorf("ROI (-want +got):\n%s", diff)
	}
	if err := c.ClearROI(); err != nil {
		t.Fatal(err)
	}
	got, _ = c.GetROI()
	if diff := cmp.Diff(camera.ROI{W: 1280, H: 1024}, got); diff != "" {
		t.Errorf("cleared ROI (-want +got):\n%s", diff)
	}
}

func TestFrameRateEnumeration(t *testing.T) {
	c, _ := setup(t)
	p, _ := c.Properties().Property(gige.KeywordFrameRate)
	if p.Type != camera.String {
		t.Errorf("expected a string frame rate, got %v", p.Type)
	}
	if err := c.Properties().Set(gige.KeywordFrameRate, "60 fps"); err != nil {
		t.Fatal(err)
	}
	v, _ := c.Registry().GetString(genicam.AcquisitionFrameRateStr)
	if v != "FrameRate_60" {
		t.Errorf("expected FrameRate_60, got %s", v)
	}
}

func TestGetFrame(t *testing.T) {
	c, _ := setup(t)
	if err := c.SetROI(camera.ROI{W: 64, H: 32}); err != nil {
		t.Fatal(err)
	}
	f, err := c.GetFrame()
	if err != nil {
		t.Fatal(err)
	}
	if f.Width != 64 || f.Height != 32 || len(f.Pix) != 64*32 {
		t.Errorf("unexpected frame shape %dx%d (%d samples)", f.Width, f.Height, len(f.Pix))
	}
}

func TestGetFrameBeforeInitialize(t *testing.T) {
	c := gige.New(genicam.NewMockCamera())
	if _, err := c.GetFrame(); !errors.Is(err, gige.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestTemperature(t *testing.T) {
	c, _ := setup(t)
	temp, err := c.GetTemperature()
	if err != nil {
		t.Fatal(err)
	}
	if temp != 38.5 {
		t.Errorf("expected 38.5 C got %v", temp)
	}
}

func TestHeaderMetadata(t *testing.T) {
	c, _ := setup(t)
	cards := c.CollectHeaderMetadata()
	got := make(map[string]interface{})
	for _, card := range cards {
		got[card.Name] = card.Value
	}
	expected := map[string]interface{}{
		"CAMMODL": "MV-1280M",
		"PIXFMT":  "Mono8",
		"EXPTIME": 0.01,
		"CAMTEMP": 38.5,
		"GAIN":    0,
		"BINV":    1,
	}
	for k, v := range expected {
		if !cmp.Equal(got[k], v) {
			t.Errorf("card %s: expected %v got %v", k, v, got[k])
		}
	}
}
