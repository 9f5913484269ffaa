package genicam

import (
	"fmt"
	"sort"
)

// Kind is the value type of a feature
type Kind int

const (
	// KindInt features hold int64 values
	KindInt Kind = iota

	// KindFloat features hold float64 values
	KindFloat

	// KindString features hold strings (string registers or enumerations)
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Feature is implemented by the three catalog enumerations
// IntFeature, FloatFeature and StringFeature
type Feature interface {
	fmt.Stringer

	// Names is the ordered list of vendor node names tried at probe time
	Names() []string

	// Kind is the value type of the feature
	Kind() Kind
}

// IntFeature identifies a feature with an int64 value
type IntFeature int

// FloatFeature identifies a feature with a float64 value
type FloatFeature int

// StringFeature identifies a feature with a string value
type StringFeature int

// integer features
const (
	Width IntFeature = iota
	Height
	WidthMax
	HeightMax
	SensorWidth
	SensorHeight
	OffsetX
	OffsetY
	BinningVertical
	BinningHorizontal
	GevVersionMajor
	GevVersionMinor

	// ExposureTimeAbsInt is the integer-typed ExposureTimeAbs older firmware exposes
	ExposureTimeAbsInt
	GainRaw
	PayloadSize

	numIntFeatures
)

// float features
const (
	ExposureTime FloatFeature = iota
	ExposureTimeAbs
	Gain
	Temperature
	AcquisitionFrameRate

	numFloatFeatures
)

// string features
const (
	DeviceVendorName StringFeature = iota
	DeviceManufacturerInfo
	DeviceModelName
	DeviceVersion
	DeviceID
	DeviceFirmwareVersion
	PixelFormat

	// AcquisitionFrameRateStr is the enumeration form of AcquisitionFrameRate
	// some cameras expose instead of a float
	AcquisitionFrameRateStr
	ExposureMode
	ShutterMode
	AcquisitionMode

	numStringFeatures
)

type featureDef struct {
	id    string
	names []string
}

var intDefs = [numIntFeatures]featureDef{
	Width:              {"Width", []string{"Width"}},
	Height:             {"Height", []string{"Height"}},
	WidthMax:           {"WidthMax", []string{"WidthMax"}},
	HeightMax:          {"HeightMax", []string{"HeightMax"}},
	SensorWidth:        {"SensorWidth", []string{"SensorWidth"}},
	SensorHeight:       {"SensorHeight", []string{"SensorHeight"}},
	OffsetX:            {"OffsetX", []string{"OffsetX"}},
	OffsetY:            {"OffsetY", []string{"OffsetY"}},
	BinningVertical:    {"BinningVertical", []string{"BinningVertical"}},
	BinningHorizontal:  {"BinningHorizontal", []string{"BinningHorizontal"}},
	GevVersionMajor:    {"GevVersionMajor", []string{"GevVersionMajor", "DeviceTLVersionMajor"}},
	GevVersionMinor:    {"GevVersionMinor", []string{"GevVersionMinor", "DeviceTLVersionMinor"}},
	ExposureTimeAbsInt: {"ExposureTimeAbsInt", []string{"ExposureTimeAbs"}},
	GainRaw:            {"GainRaw", []string{"GainRaw"}},
	PayloadSize:        {"PayloadSize", []string{"PayloadSize"}},
}

var floatDefs = [numFloatFeatures]featureDef{
	ExposureTime:         {"ExposureTime", []string{"ExposureTime"}},
	ExposureTimeAbs:      {"ExposureTimeAbs", []string{"ExposureTimeAbs"}},
	Gain:                 {"Gain", []string{"Gain", "GainAbs"}},
	Temperature:          {"Temperature", []string{"DeviceTemperature", "Temperature"}},
	AcquisitionFrameRate: {"AcquisitionFrameRate", []string{"AcquisitionFrameRate", "AcquisitionFrameRateAbs"}},
}

var stringDefs = [numStringFeatures]featureDef{
	DeviceVendorName:        {"DeviceVendorName", []string{"DeviceVendorName"}},
	DeviceManufacturerInfo:  {"DeviceManufacturerInfo", []string{"DeviceManufacturerInfo"}},
	DeviceModelName:         {"DeviceModelName", []string{"DeviceModelName"}},
	DeviceVersion:           {"DeviceVersion", []string{"DeviceVersion"}},
	DeviceID:                {"DeviceID", []string{"DeviceID", "DeviceSerialNumber"}},
	DeviceFirmwareVersion:   {"DeviceFirmwareVersion", []string{"DeviceFirmwareVersion"}},
	PixelFormat:             {"PixelFormat", []string{"PixelFormat"}},
	AcquisitionFrameRateStr: {"AcquisitionFrameRateStr", []string{"AcquisitionFrameRate"}},
	ExposureMode:            {"ExposureMode", []string{"ExposureMode"}},
	ShutterMode:             {"ShutterMode", []string{"ShutterMode"}},
	AcquisitionMode:         {"AcquisitionMode", []string{"AcquisitionMode"}},
}

// ids outside the catalog are a programming error, so indexing panics on them

func (f IntFeature) String() string { return intDefs[f].id }
func (f IntFeature) Names() []string { return append([]string(nil), intDefs[f].names...) }
func (f IntFeature) Kind() Kind { return KindInt }
func (f FloatFeature) String() string { return floatDefs[f].id }
func (f FloatFeature) Names() []string { return append([]string(nil), floatDefs[f].names...) }
func (f FloatFeature) Kind() Kind { return KindFloat }
func (f StringFeature) String() string { return stringDefs[f].id }
func (f StringFeature) Names() []string { return append([]string(nil), stringDefs[f].names...) }
func (f StringFeature) Kind() Kind { return KindString }

// AllIntFeatures returns every integer feature in the catalog
func AllIntFeatures() []IntFeature {
	out := make([]IntFeature, numIntFeatures)
	for i := range out {
		out[i] = IntFeature(i)
	}
	return out
}

// AllFloatFeatures returns every float feature in the catalog
func AllFloatFeatures() []FloatFeature {
	out := make([]FloatFeature, numFloatFeatures)
	for i := range out {
		out[i] = FloatFeature(i)
	}
	return out
}

// AllStringFeatures returns every string feature in the catalog
func AllStringFeatures() []StringFeature {
	out := make([]StringFeature, numStringFeatures)
	for i := range out {
		out[i] = StringFeature(i)
	}
	return out
}

// AllFeatures returns the whole catalog, ints then floats then strings
func AllFeatures() []Feature {
	out := make([]Feature, 0, int(numIntFeatures)+int(numFloatFeatures)+int(numStringFeatures))
	for _, f := range AllIntFeatures() {
		out = append(out, f)
	}
	for _, f := range AllFloatFeatures() {
		out = append(out, f)
	}
	for _, f := range AllStringFeatures() {
		out = append(out, f)
	}
	return out
}

var byName map[string]Feature

func init() {
	byName = make(map[string]Feature)
	for _, f := range AllFeatures() {
		byName[f.String()] = f
	}
}

// ParseFeature looks up a catalog feature by its id, e.g. "ExposureTimeAbs"
func ParseFeature(name string) (Feature, error) {
	if f, ok := byName[name]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s is not in the catalog", ErrFeatureNotFound, name)
}

// FeatureNames returns the sorted ids of every feature in the catalog
func FeatureNames() []string {
	out := make([]string, 0, len(byName))
	for k := range byName {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
