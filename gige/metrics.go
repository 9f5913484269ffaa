package gige

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nasa-jpl/mmadapters/genicam"
)

// Serializer runs f with exclusive access to the device
type Serializer interface {
	Do(f func())
}

// RegisterMetrics registers gauges for the camera's temperature, exposure
// time and frame rate.  Every read goes through s so scrapes never race with
// HTTP requests.  Gauges read NaN when the camera cannot answer.
func RegisterMetrics(r prometheus.Registerer, name string, c *Camera, s Serializer) error {
	labels := prometheus.Labels{"camera": name}
	read := func(f func() (float64, error)) func() float64 {
		return func() float64 {
			v := math.NaN()
			s.Do(func() {
				x, err := f()
				if err == nil {
					v = x
				}
			})
			return v
		}
	}
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Subsystem:   "gige",
			Name:        "temperature_celsius",
			Help:        "camera temperature",
			ConstLabels: labels,
		}, read(c.GetTemperature)),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Subsystem:   "gige",
			Name:        "exposure_seconds",
			Help:        "exposure time",
			ConstLabels: labels,
		}, read(func() (float64, error) {
			d, err := c.GetExposureTime()
			return d.Seconds(), err
		})),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Subsystem:   "gige",
			Name:        "frame_rate_hz",
			Help:        "acquisition frame rate, absent for cameras with enumerated rates",
			ConstLabels: labels,
		}, read(func() (float64, error) {
			if c.reg == nil {
				return 0, ErrNotInitialized
			}
			return c.reg.GetFloat(genicam.AcquisitionFrameRate)
		})),
	}
	for _, g := range gauges {
		if err := r.Register(g); err != nil {
			return err
		}
	}
	return nil
}
