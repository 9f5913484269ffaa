package ddrive

import (
	"math"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Serializer runs f with exclusive access to the device
type Serializer interface {
	Do(f func())
}

// RegisterMetrics registers position and actuator temperature gauges for
// every channel that had an actuator at the last Detect.  Reads go through
// s; a gauge reads NaN when the hub cannot answer.
func RegisterMetrics(r prometheus.Registerer, name string, h *Hub, s Serializer) error {
	read := func(f func(string) (float64, error), axis string) func() float64 {
		return func() float64 {
			v := math.NaN()
			s.Do(func() {
				x, err := f(axis)
				if err == nil {
					v = x
				}
			})
			return v
		}
	}
	for _, c := range h.Session().Plugged() {
		axis := strconv.Itoa(c.Number)
		labels := prometheus.Labels{"hub": name, "channel": axis, "actuator": c.Actuator}
		gauges := []prometheus.Collector{
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Subsystem:   "ddrive",
				Name:        "position",
				Help:        "actuator position, µm in closed loop and V in open loop",
				ConstLabels: labels,
			}, read(h.GetPos, axis)),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Subsystem:   "ddrive",
				Name:        "actuator_temperature_celsius",
				Help:        "actuator temperature",
				ConstLabels: labels,
			}, read(h.GetAxisTemperature, axis)),
		}
		for _, g := range gauges {
			if err := r.Register(g); err != nil {
				return err
			}
		}
	}
	return nil
}
