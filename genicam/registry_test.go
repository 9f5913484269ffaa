package genicam_test

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pion/logging"

	"github.com/nasa-jpl/mmadapters/genicam"
)

func TestWidthIncrementEnforced(t *testing.T) {
	dev := genicam.NewMockDevice().AddInt("Width", genicam.ReadWrite, 64, 64, 2048, 2)
	reg := genicam.NewRegistry(dev)
	if !reg.IsAvailable(genicam.Width) || !reg.IsWritable(genicam.Width) {
		t.Fatalf("Width should be available and writable, got %+v", reg.Info(genicam.Width))
	}
	max, err := reg.IntMax(genicam.Width)
	if err != nil || max != 2048 {
		t.Errorf("IntMax(Width) = %d, %v, want 2048", max, err)
	}
	if err := reg.SetInt(genicam.Width, 65); !errors.Is(err, genicam.ErrDeviceRejected) {
		t.Errorf("SetInt(Width, 65): expected ErrDeviceRejected, got %v", err)
	}
	if err := reg.SetInt(genicam.Width, 66); err != nil {
		t.Fatalf("SetInt(Width, 66): %v", err)
	}
	w, err := reg.GetInt(genicam.Width)
	if err != nil || w != 66 {
		t.Errorf("GetInt(Width) = %d, %v, want 66", w, err)
	}
}

func TestIntAliasOfFloatNodeUnavailable(t *testing.T) {
	dev := genicam.NewMockDevice().AddFloat("ExposureTimeAbs", genicam.ReadWrite, 1000, 10, 1e6, 0)
	reg := genicam.NewRegistry(dev)
	if reg.IsAvailable(genicam.ExposureTimeAbsInt) {
		t.Error("the integer ExposureTimeAbs should be unavailable on a float node")
	}
	if !reg.IsAvailable(genicam.ExposureTimeAbs) {
		t.Error("the float ExposureTimeAbs should be available")
	}
}

func TestPixelFormatEntriesStripped(t *testing.T) {
	dev := genicam.NewMockDevice().AddEnum("PixelFormat", genicam.ReadWrite, 0,
		genicam.MockEntry{Value: "Mono8", Display: "8-bit Mono"},
		genicam.MockEntry{Value: "RGB8", Display: "8-bit RGB"})
	reg := genicam.NewRegistry(dev)
	n, err := reg.EnumEntryCount(genicam.PixelFormat)
	if err != nil || n != 2 {
		t.Fatalf("EnumEntryCount = %d, %v, want 2", n, err)
	}
	e, err := reg.EnumEntry(genicam.PixelFormat, 0)
	if err != nil || e != "Mono8" {
		t.Errorf("EnumEntry(0) = %q, %v, want Mono8", e, err)
	}
	d, err := reg.EnumDisplayName(genicam.PixelFormat, 1)
	if err != nil || d != "8-bit RGB" {
		t.Errorf("EnumDisplayName(1) = %q, %v, want 8-bit RGB", d, err)
	}
	all, err := reg.EnumEntries(genicam.PixelFormat)
	if err != nil {
		t.Fatal(err)
	}
	want := []genicam.EnumEntry{{Name: "Mono8", Display: "8-bit Mono"}, {Name: "RGB8", Display: "8-bit RGB"}}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("EnumEntries mismatch (-want +got):\n%s", diff)
	}
}

// every feature declared with a type its value cannot hold, in every access mode
func TestTypeMismatchIsUnavailable(t *testing.T) {
	modes := []genicam.AccessMode{genicam.ReadOnly, genicam.WriteOnly, genicam.ReadWrite}
	for _, mode := range modes {
		ints := genicam.NewMockDevice()
		for _, f := range genicam.AllIntFeatures() {
			for _, name := range f.Names() {
				ints.AddString(name, mode, "x")
			}
		}
		reg := genicam.NewRegistry(ints)
		for _, f := range genicam.AllIntFeatures() {
			if reg.IsAvailable(f) {
				t.Errorf("%s on a StringReg node (%s) should be unavailable", f, mode)
			}
		}

		floats := genicam.NewMockDevice()
		for _, f := range genicam.AllFloatFeatures() {
			for _, name := range f.Names() {
				floats.AddEnum(name, mode, 0, genicam.MockEntry{Value: "A", Display: "A"})
			}
		}
		reg = genicam.NewRegistry(floats)
		for _, f := range genicam.AllFloatFeatures() {
			if reg.IsAvailable(f) {
				t.Errorf("%s on an Enumeration node (%s) should be unavailable", f, mode)
			}
		}

		strs := genicam.NewMockDevice()
		for _, f := range genicam.AllStringFeatures() {
			for _, name := range f.Names() {
				strs.AddInt(name, mode, 1, 0, 10, 1)
			}
		}
		reg = genicam.NewRegistry(strs)
		for _, f := range genicam.AllStringFeatures() {
			if reg.IsAvailable(f) {
				t.Errorf("%s on an Integer node (%s) should be unavailable", f, mode)
			}
		}
	}
}

func TestProbingIsIdempotent(t *testing.T) {
	a := genicam.NewRegistry(genicam.NewMockCamera()).Snapshot()
	b := genicam.NewRegistry(genicam.NewMockCamera()).Snapshot()
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("two probes of identical devices differ (-a +b):\n%s", diff)
	}
	if len(a) != len(genicam.AllFeatures()) {
		t.Errorf("snapshot has %d entries, catalog has %d", len(a), len(genicam.AllFeatures()))
	}
}

func TestRangeContract(t *testing.T) {
	reg := genicam.NewRegistry(genicam.NewMockCamera())
	for _, f := range genicam.AllIntFeatures() {
		i := reg.Info(f)
		if i.Available && !(i.HasMinimum && i.HasMaximum && i.HasIncrement) {
			t.Errorf("%s: integer node without full range: %+v", f, i)
		}
	}
	for _, f := range genicam.AllFloatFeatures() {
		i := reg.Info(f)
		if i.Available && !(i.HasMinimum && i.HasMaximum) {
			t.Errorf("%s: float node without min and max: %+v", f, i)
		}
	}
	for _, f := range genicam.AllStringFeatures() {
		i := reg.Info(f)
		if i.Available && (i.HasMinimum || i.HasMaximum || i.HasIncrement) {
			t.Errorf("%s: string node with a range: %+v", f, i)
		}
	}
}

func TestReadAfterWrite(t *testing.T) {
	reg := genicam.NewRegistry(genicam.NewMockCamera())
	for _, f := range genicam.AllIntFeatures() {
		if !reg.IsWritable(f) || !reg.IsReadable(f) {
			continue
		}
		min, err := reg.IntMin(f)
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		max, err := reg.IntMax(f)
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		inc, err := reg.IntIncrement(f)
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		values := []int64{max, min}
		if inc > 0 && max-min >= inc {
			values = append(values, min+inc)
		}
		for _, v := range values {
			if err := reg.SetInt(f, v); err != nil {
				t.Errorf("SetInt(%s, %d): %v", f, v, err)
				continue
			}
			if got, _ := reg.GetInt(f); got != v {
				t.Errorf("%s: wrote %d, read %d", f, v, got)
			}
		}
	}
	for _, f := range genicam.AllFloatFeatures() {
		if !reg.IsWritable(f) || !reg.IsReadable(f) {
			continue
		}
		min, err := reg.FloatMin(f)
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		max, err := reg.FloatMax(f)
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		interior := (min + max) / 2
		if reg.Info(f).HasIncrement {
			inc, err := reg.FloatIncrement(f)
			if err != nil {
				t.Fatalf("%s: %v", f, err)
			}
			interior = min + inc
		}
		for _, v := range []float64{max, interior, min} {
			if err := reg.SetFloat(f, v); err != nil {
				t.Errorf("SetFloat(%s, %v): %v", f, v, err)
				continue
			}
			if got, _ := reg.GetFloat(f); got != v {
				t.Errorf("%s: wrote %v, read %v", f, v, got)
			}
		}
	}
	for _, f := range genicam.AllStringFeatures() {
		if !reg.IsWritable(f) || !reg.IsReadable(f) || !reg.IsEnum(f) {
			continue
		}
		entries, err := reg.EnumEntries(f)
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		last := entries[len(entries)-1].Name
		if err := reg.SetString(f, last); err != nil {
			t.Errorf("SetString(%s, %s): %v", f, last, err)
			continue
		}
		if got, _ := reg.GetString(f); got != last {
			t.Errorf("%s: wrote %s, read %s", f, last, got)
		}
	}
}

func TestFloatIncrementCapability(t *testing.T) {
	dev := genicam.NewMockDevice().
		AddFloat("ExposureTime", genicam.ReadWrite, 100, 10, 1000, 10).
		AddFloat("Gain", genicam.ReadWrite, 1, 0, 24, 0)
	reg := genicam.NewRegistry(dev)
	inc, err := reg.FloatIncrement(genicam.ExposureTime)
	if err != nil || inc != 10 {
		t.Errorf("FloatIncrement(ExposureTime) = %v, %v, want 10", inc, err)
	}
	if _, err := reg.FloatIncrement(genicam.Gain); !errors.Is(err, genicam.ErrNoSuchCapability) {
		t.Errorf("FloatIncrement(Gain): expected ErrNoSuchCapability, got %v", err)
	}
	if err := reg.SetFloat(genicam.ExposureTime, 105); !errors.Is(err, genicam.ErrDeviceRejected) {
		t.Errorf("expected an off-increment exposure to be rejected, got %v", err)
	}
}

func TestNotEnumeration(t *testing.T) {
	reg := genicam.NewRegistry(genicam.NewMockCamera())
	if _, err := reg.EnumEntryCount(genicam.Width); !errors.Is(err, genicam.ErrNotEnumeration) {
		t.Errorf("expected ErrNotEnumeration, got %v", err)
	}
	if _, err := reg.EnumEntries(genicam.DeviceModelName); !errors.Is(err, genicam.ErrNotEnumeration) {
		t.Errorf("expected ErrNotEnumeration, got %v", err)
	}
}

func TestMockCameraQuirks(t *testing.T) {
	reg := genicam.NewRegistry(genicam.NewMockCamera())
	cases := map[genicam.Feature]bool{
		genicam.ExposureTime:            false,
		genicam.ExposureTimeAbs:         true,
		genicam.ExposureTimeAbsInt:      false,
		genicam.Gain:                    false,
		genicam.GainRaw:                 true,
		genicam.AcquisitionFrameRate:    false,
		genicam.AcquisitionFrameRateStr: true,
		genicam.Temperature:             true,
		genicam.ShutterMode:             false,
	}
	for f, want := range cases {
		if got := reg.IsAvailable(f); got != want {
			t.Errorf("IsAvailable(%s) = %v, want %v", f, got, want)
		}
	}
	if got := reg.Info(genicam.Temperature).Name; got != "DeviceTemperature" {
		t.Errorf("Temperature resolved to %s", got)
	}
	fr, err := reg.GetString(genicam.AcquisitionFrameRateStr)
	if err != nil || fr != "FrameRate_30" {
		t.Errorf("GetString(AcquisitionFrameRateStr) = %q, %v", fr, err)
	}
}

func TestResult(t *testing.T) {
	reg := genicam.NewRegistry(genicam.NewMockCamera())
	if w, ok := reg.TryInt(genicam.Width).Get(); !ok || w != 1280 {
		t.Errorf("TryInt(Width) = %d, %v", w, ok)
	}
	r := reg.TryFloat(genicam.Gain)
	if r.OK() {
		t.Error("Gain should not be readable on the mock camera")
	}
	if !errors.Is(r.Err, genicam.ErrNotAvailable) {
		t.Errorf("expected ErrNotAvailable, got %v", r.Err)
	}
	if v := r.Or(1.5); v != 1.5 {
		t.Errorf("Or(1.5) = %v", v)
	}
	if s := reg.TryString(genicam.DeviceModelName).Or(""); s != "MV-1280M" {
		t.Errorf("TryString(DeviceModelName) = %q", s)
	}
}

func TestAvailableIsCatalogOrdered(t *testing.T) {
	dev := genicam.NewMockDevice().
		AddString("DeviceModelName", genicam.ReadOnly, "m").
		AddInt("Height", genicam.ReadOnly, 10, 10, 10, 1).
		AddInt("Width", genicam.ReadOnly, 10, 10, 10, 1)
	got := genicam.NewRegistry(dev).Available()
	want := []genicam.Feature{genicam.Width, genicam.Height, genicam.DeviceModelName}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Available mismatch (-want +got):\n%s", diff)
	}
}

func TestReadAfterWriteInterior(t *testing.T) {
	dev := genicam.NewMockDevice().
		AddInt("Width", genicam.ReadWrite, 64, 64, 2048, 2).
		AddFloat("Gain", genicam.ReadWrite, 0, 0, 24, 0.5)
	reg := genicam.NewRegistry(dev)
	if err := reg.SetInt(genicam.Width, 1000); err != nil {
		t.Fatal(err)
	}
	if w, _ := reg.GetInt(genicam.Width); w != 1000 {
		t.Errorf("expected Width 1000, got %d", w)
	}
	if err := reg.SetFloat(genicam.Gain, 12.5); err != nil {
		t.Fatal(err)
	}
	if g, _ := reg.GetFloat(genicam.Gain); g != 12.5 {
		t.Errorf("expected Gain 12.5, got %v", g)
	}
}

// logRecorder keeps every line written at each level
type logRecorder struct {
	sync.Mutex
	lines map[string][]string
}

func (l *logRecorder) add(level, format string, args ...interface{}) {
	l.Lock()
	defer l.Unlock()
	if l.lines == nil {
		l.lines = map[string][]string{}
	}
	l.lines[level] = append(l.lines[level], fmt.Sprintf(format, args...))
}

func (l *logRecorder) get(level string) []string {
	l.Lock()
	defer l.Unlock()
	return append([]string(nil), l.lines[level]...)
}

func (l *logRecorder) Trace(msg string) { l.add("trace", "%s", msg) }
func (l *logRecorder) Tracef(format string, args ...interface{}) { l.add("trace", format, args...) }
func (l *logRecorder) Debug(msg string) { l.add("debug", "%s", msg) }
func (l *logRecorder) Debugf(format string, args ...interface{}) { l.add("debug", format, args...) }
func (l *logRecorder) Info(msg string) { l.add("info", "%s", msg) }
func (l *logRecorder) Infof(format string, args ...interface{}) { l.add("info", format, args...) }
func (l *logRecorder) Warn(msg string) { l.add("warn", "%s", msg) }
func (l *logRecorder) Warnf(format string, args ...interface{}) { l.add("warn", format, args...) }
func (l *logRecorder) Error(msg string) { l.add("error", "%s", msg) }
func (l *logRecorder) Errorf(format string, args ...interface{}) { l.add("error", format, args...) }

type recorderFactory struct {
	log    *logRecorder
	scopes []string
}

func (f *recorderFactory) NewLogger(scope string) logging.LeveledLogger {
	f.scopes = append(f.scopes, scope)
	return f.log
}

func TestTypeMismatchIsLogged(t *testing.T) {
	log := &logRecorder{}
	dev := genicam.NewMockDevice().AddFloat("ExposureTimeAbs", genicam.ReadWrite, 1000, 10, 1e6, 0)
	genicam.NewRegistry(dev, genicam.WithLogger(log))
	warns := log.get("warn")
	if len(warns) != 1 {
		t.Fatalf("expected one warning, got %q", warns)
	}
	if !strings.Contains(warns[0], genicam.ErrTypeMismatch.Error()) || !strings.Contains(warns[0], "ExposureTimeAbsInt") {
		t.Errorf("warning does not name the mismatch: %q", warns[0])
	}
	// Width and the rest are simply absent
	found := false
	for _, line := range log.get("debug") {
		if strings.HasPrefix(line, "Width:") && strings.Contains(line, genicam.ErrFeatureNotFound.Error()) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a debug line for the absent Width, got %q", log.get("debug"))
	}
}

func TestLoggerFactoryScope(t *testing.T) {
	f := &recorderFactory{log: &logRecorder{}}
	dev := genicam.NewMockDevice().AddFloat("ExposureTimeAbs", genicam.ReadWrite, 1000, 10, 1e6, 0)
	genicam.NewRegistry(dev, genicam.WithLoggerFactory(f))
	if diff := cmp.Diff([]string{"genicam"}, f.scopes); diff != "" {
		t.Errorf("logger scopes (-want +got):\n%s", diff)
	}
	if len(f.log.get("warn")) != 1 {
		t.Errorf("expected the mismatch warning through the factory logger, got %q", f.log.get("warn"))
	}
	// an explicit logger wins over the factory
	other := &logRecorder{}
	f.scopes = nil
	genicam.NewRegistry(dev, genicam.WithLoggerFactory(f), genicam.WithLogger(other))
	if len(f.scopes) != 0 || len(other.get("warn")) != 1 {
		t.Errorf("WithLogger should take precedence, scopes %v warnings %q", f.scopes, other.get("warn"))
	}
}

func TestRedeclaredEnumInvalidatesOldEntries(t *testing.T) {
	dev := genicam.NewMockDevice().AddEnum("PixelFormat", genicam.ReadWrite, 0,
		genicam.MockEntry{Value: "Mono8", Display: "8-bit Mono"},
		genicam.MockEntry{Value: "Mono12", Display: "12-bit Mono"},
		genicam.MockEntry{Value: "Mono16", Display: "16-bit Mono"})
	h, err := dev.ResolveNode("PixelFormat")
	if err != nil {
		t.Fatal(err)
	}
	stale, err := dev.EnumEntryByIndex(h, 2)
	if err != nil {
		t.Fatal(err)
	}
	dev.AddEnum("PixelFormat", genicam.ReadWrite, 0, genicam.MockEntry{Value: "Mono8", Display: "8-bit Mono"})
	var verr *genicam.VendorError
	if _, err := dev.EnumEntryName(stale); !errors.As(err, &verr) || verr.Code != genicam.StatusInvalidHandle {
		t.Errorf("expected an invalid handle error for a replaced entry, got %v", err)
	}
	if _, err := dev.EnumEntryDisplayName(stale); !errors.As(err, &verr) {
		t.Errorf("expected a vendor error, got %v", err)
	}
	reg := genicam.NewRegistry(dev)
	n, err := reg.EnumEntryCount(genicam.PixelFormat)
	if err != nil || n != 1 {
		t.Fatalf("EnumEntryCount = %d, %v, want 1", n, err)
	}
	if e, err := reg.EnumEntry(genicam.PixelFormat, 0); err != nil || e != "Mono8" {
		t.Errorf("EnumEntry(0) = %q, %v", e, err)
	}
}
