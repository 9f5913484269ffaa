package motion

import (
	"net/http"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/mmadapters/generichttp"
)

// Speeder is an axis with a velocity setpoint, in the controller's units.
// A piezo's slew rate counts.
type Speeder interface {
	SetVelocity(axis string, v float64) error
	GetVelocity(axis string) (float64, error)
}

// HTTPSpeed adds GET and POST /axis/{axis}/velocity to the table
func HTTPSpeed(s Speeder, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/axis/{axis}/velocity"}] = SetVelocity(s)
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/axis/{axis}/velocity"}] = GetVelocity(s)
}

// SetVelocity sets the velocity setpoint from {"f64": value}
func SetVelocity(s Speeder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		generichttp.SetFloat(func(v float64) error { return s.SetVelocity(axis, v) })(w, r)
	}
}

// GetVelocity replies {"f64": velocity setpoint}
func GetVelocity(s Speeder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		generichttp.GetFloat(func() (float64, error) { return s.GetVelocity(axis) })(w, r)
	}
}
