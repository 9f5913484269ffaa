// Package thermal exposes thermometers and thermal controllers over HTTP
package thermal

import (
	"net/http"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/mmadapters/generichttp"
)

// Thermometer reads a single temperature in Celsius
type Thermometer interface {
	GetTemperature() (float64, error)
}

// Controller is a Thermometer with a setpoint
type Controller interface {
	Thermometer

	// GetTemperatureSetpoint gets the temperature setpoint in Celsius
	GetTemperatureSetpoint() (float64, error)

	// SetTemperatureSetpoint sets the temperature setpoint in Celsius
	SetTemperatureSetpoint(float64) error
}

// AxisThermometer reads the temperature of one of several axes, e.g. the
// actuators on a multi-channel piezo amplifier
type AxisThermometer interface {
	GetAxisTemperature(string) (float64, error)
}

// HTTPThermometer binds GET /temperature, and the setpoint routes if t is a
// Controller
func HTTPThermometer(t Thermometer, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/temperature"}] = generichttp.GetFloat(t.GetTemperature)
	if c, ok := t.(Controller); ok {
		table[generichttp.MethodPath{Method: http.MethodGet, Path: "/temperature-setpoint"}] = generichttp.GetFloat(c.GetTemperatureSetpoint)
		table[generichttp.MethodPath{Method: http.MethodPost, Path: "/temperature-setpoint"}] = generichttp.SetFloat(c.SetTemperatureSetpoint)
	}
}

// HTTPAxisThermometer binds GET /axis/{axis}/temperature
func HTTPAxisThermometer(t AxisThermometer, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/axis/{axis}/temperature"}] = GetAxisTemperature(t)
}

// GetAxisTemperature returns an HTTP handler func that returns the temperature
// of the {axis} as {"f64": value}
func GetAxisTemperature(t AxisThermometer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		generichttp.GetFloat(func() (float64, error) { return t.GetAxisTemperature(axis) })(w, r)
	}
}
