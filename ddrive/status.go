package ddrive

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/nasa-jpl/mmadapters/util"
)

// NumChannels is the number of amplifier slots in a dDrive hub
const NumChannels = 6

// Status is the status register of one channel, as returned by stat
type Status uint32

// status register bits
const (
	statusPlugged        = 0
	statusOpenLoopSystem = 4
	statusVoltageEnable  = 6
	statusClosedLoop     = 7
	statusNotch          = 12
	statusLowPass        = 13

	measureMask   = 0x0006
	generatorMask = 0x0e00
)

// Sensor is the kind of position sensor built into an actuator
type Sensor int

const (
	// NoSensor actuators can only run open loop
	NoSensor Sensor = iota
	// StrainGauge sensor
	StrainGauge
	// Capacitive sensor
	Capacitive
	// Inductive sensor
	Inductive
)

func (s Sensor) String() string {
	switch s {
	case StrainGauge:
		return "strain gauge"
	case Capacitive:
		return "capacitive"
	case Inductive:
		return "inductive"
	}
	return "none"
}

// Generator is the waveform the channel's function generator is producing
type Generator int

// Generator modes, in register order
const (
	GeneratorOff Generator = iota
	GeneratorSine
	GeneratorTriangle
	GeneratorRectangle
	GeneratorNoise
	GeneratorSweep
	ScanSine
	ScanTriangle
)

var generatorNames = [...]string{"off", "sine", "triangle", "rectangle", "noise", "sweep", "scan sine", "scan triangle"}

func (g Generator) String() string {
	if g < 0 || int(g) >= len(generatorNames) {
		return fmt.Sprintf("Generator(%d)", int(g))
	}
	return generatorNames[g]
}

// Plugged is true if an actuator is connected to the channel
func (s Status) Plugged() bool { return util.GetBit(uint32(s), statusPlugged) }

// Sensor returns the position sensor type
func (s Status) Sensor() Sensor { return Sensor((s & measureMask) >> 1) }

// OpenLoopSystem is true for actuators that have no closed loop capability
func (s Status) OpenLoopSystem() bool { return util.GetBit(uint32(s), statusOpenLoopSystem) }

// VoltageEnabled is true when the piezo voltage output is on
func (s Status) VoltageEnabled() bool { return util.GetBit(uint32(s), statusVoltageEnable) }

// ClosedLoop is true when the position loop is closed
func (s Status) ClosedLoop() bool { return util.GetBit(uint32(s), statusClosedLoop) }

// Generator returns the function generator mode
func (s Status) Generator() Generator { return Generator((s & generatorMask) >> 9) }

// NotchFilter is true when the notch filter is on
func (s Status) NotchFilter() bool { return util.GetBit(uint32(s), statusNotch) }

// LowPassFilter is true when the low pass filter is on
func (s Status) LowPassFilter() bool { return util.GetBit(uint32(s), statusLowPass) }

// StatusReport is the decoded form of a Status, for humans and JSON
type StatusReport struct {
	Raw            uint32 `json:"raw"`
	Plugged        bool   `json:"plugged"`
	Sensor         string `json:"sensor"`
	OpenLoopSystem bool   `json:"openLoopSystem"`
	VoltageEnabled bool   `json:"voltageEnabled"`
	ClosedLoop     bool   `json:"closedLoop"`
	Generator      string `json:"generator"`
	NotchFilter    bool   `json:"notchFilter"`
	LowPassFilter  bool   `json:"lowPassFilter"`
}

// Report decodes every field of the status register
func (s Status) Report() StatusReport {
	return StatusReport{
		Raw:            uint32(s),
		Plugged:        s.Plugged(),
		Sensor:         s.Sensor().String(),
		OpenLoopSystem: s.OpenLoopSystem(),
		VoltageEnabled: s.VoltageEnabled(),
		ClosedLoop:     s.ClosedLoop(),
		Generator:      s.Generator().String(),
		NotchFilter:    s.NotchFilter(),
		LowPassFilter:  s.LowPassFilter(),
	}
}

// ErrorBits is the per-channel error word of an ERROR reply
type ErrorBits uint32

// error word bits
const (
	ErrI2C         ErrorBits = 1
	ErrTemperature ErrorBits = 4
	ErrOverload    ErrorBits = 8
	ErrUnderload   ErrorBits = 16
	ErrCommDSP     ErrorBits = 32
	ErrNotReady    ErrorBits = 32768
)

var errorBitNames = []struct {
	bit  ErrorBits
	name string
}{
	{ErrI2C, "actuator missing (I2C)"},
	{ErrTemperature, "actuator over temperature"},
	{ErrOverload, "loop overload"},
	{ErrUnderload, "loop underload"},
	{ErrCommDSP, "DSP communication"},
	{ErrNotReady, "amplifier not ready"},
}

func (e ErrorBits) String() string {
	var names []string
	for _, n := range errorBitNames {
		if e&n.bit != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("error 0x%04x", uint32(e))
	}
	return strings.Join(names, ", ")
}

// DeviceError is an ERROR reply from the hub for one channel
type DeviceError struct {
	Channel int
	Bits    ErrorBits
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("ddrive channel %d: %s", e.Channel, e.Bits)
}

// StatusCode is 502, the amplifier refused the request
func (e *DeviceError) StatusCode() int { return http.StatusBadGateway }

// Error is a dDrive driver error
type Error struct {
	msg  string
	code int
}

func (e *Error) Error() string { return e.msg }

// StatusCode is the HTTP status the error maps to
func (e *Error) StatusCode() int { return e.code }

var (
	// ErrUnrecognizedAnswer is generated when the hub answers with something
	// other than the echo of the command or ERROR
	ErrUnrecognizedAnswer = &Error{"ddrive: unrecognized answer", http.StatusBadGateway}

	// ErrInvalidChannel is generated when an axis is not a channel number
	// in [0, NumChannels)
	ErrInvalidChannel = &Error{"ddrive: invalid channel", http.StatusBadRequest}

	// ErrNoActuator is generated when a channel has no actuator plugged in
	ErrNoActuator = &Error{"ddrive: no actuator on channel", http.StatusNotFound}

	// ErrOutOfRange is generated when a position is outside the actuator's travel
	ErrOutOfRange = &Error{"ddrive: position outside actuator travel", http.StatusBadRequest}
)
