package motion

import (
	"net/http"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/mmadapters/generichttp"
)

// Enabler is an axis that can be switched on and off.
// For a piezo, enabled means the position loop is closed.
type Enabler interface {
	Enable(axis string) error
	Disable(axis string) error
	GetEnabled(axis string) (bool, error)
}

// HTTPEnable adds GET and POST /axis/{axis}/enabled to the table
func HTTPEnable(e Enabler, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/axis/{axis}/enabled"}] = GetEnabled(e)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/axis/{axis}/enabled"}] = SetEnabled(e)
}

// SetEnabled enables or disables the axis from {"bool": value}
func SetEnabled(e Enabler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		generichttp.SetBool(func(on bool) error {
			if on {
				return e.Enable(axis)
			}
			return e.Disable(axis)
		})(w, r)
	}
}

// GetEnabled replies {"bool": enabled}
func GetEnabled(e Enabler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		generichttp.GetBool(func() (bool, error) { return e.GetEnabled(axis) })(w, r)
	}
}
