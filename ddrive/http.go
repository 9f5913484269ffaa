package ddrive

import (
	"net/http"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/mmadapters/generichttp"
	"github.com/nasa-jpl/mmadapters/generichttp/ascii"
	"github.com/nasa-jpl/mmadapters/generichttp/motion"
	"github.com/nasa-jpl/mmadapters/generichttp/thermal"
	"github.com/nasa-jpl/mmadapters/util"
)

// HTTPWrapper provides HTTP bindings on top of a Hub
type HTTPWrapper struct {
	Hub *Hub

	// Limits are software limits on top of the actuator travel
	Limits *motion.LimitMiddleware

	generichttp.RouteTable
}

// NewHTTPWrapper returns a new HTTP wrapper with the route table pre-configured.
// limits may be nil.
func NewHTTPWrapper(h *Hub, limits map[string]util.Limiter) HTTPWrapper {
	w := HTTPWrapper{
		Hub:        h,
		Limits:     &motion.LimitMiddleware{Limits: limits, Mov: h},
		RouteTable: generichttp.RouteTable{},
	}
	rt := w.RouteTable
	motion.HTTPMove(h, rt)
	motion.HTTPEnable(h, rt)
	motion.HTTPSpeed(h, rt)
	thermal.HTTPAxisThermometer(h, rt)
	w.Limits.Inject(rt)
	ascii.InjectRawComm(rt, h)

	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/axis/{axis}/status"}] = w.GetStatus
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/axis/{axis}/actuator"}] = w.GetActuator
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/axis/{axis}/soft-start"}] = w.GetSoftStart
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/axis/{axis}/soft-start"}] = w.SetSoftStart
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/inventory"}] = w.GetInventory
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/inventory"}] = w.Redetect
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/version"}] = generichttp.GetString(h.Version)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/brightness"}] = generichttp.GetInt(h.GetBrightness)
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/brightness"}] = generichttp.SetInt(h.SetBrightness)
	return w
}

// Middleware is the software limit check, for use with chi's Use
func (w HTTPWrapper) Middleware() func(http.Handler) http.Handler {
	return w.Limits.Check
}

// GetStatus returns the decoded status register of an axis
func (w HTTPWrapper) GetStatus(rw http.ResponseWriter, r *http.Request) {
	st, err := w.Hub.GetStatus(chi.URLParam(r, "axis"))
	if err != nil {
		generichttp.Error(rw, err)
		return
	}
	generichttp.JSON(rw, st.Report())
}

// GetActuator returns the name, serial and travel of the actuator on an axis
func (w HTTPWrapper) GetActuator(rw http.ResponseWriter, r *http.Request) {
	c, err := w.Hub.Actuator(chi.URLParam(r, "axis"))
	if err != nil {
		generichttp.Error(rw, err)
		return
	}
	generichttp.JSON(rw, c)
}

// GetSoftStart returns {"bool": soft start enabled}
func (w HTTPWrapper) GetSoftStart(rw http.ResponseWriter, r *http.Request) {
	axis := chi.URLParam(r, "axis")
	generichttp.GetBool(func() (bool, error) { return w.Hub.GetSoftStart(axis) })(rw, r)
}

// SetSoftStart turns soft start on or off from {"bool": value}
func (w HTTPWrapper) SetSoftStart(rw http.ResponseWriter, r *http.Request) {
	axis := chi.URLParam(r, "axis")
	generichttp.SetBool(func(b bool) error { return w.Hub.SetSoftStart(axis, b) })(rw, r)
}

// GetInventory returns the session state
func (w HTTPWrapper) GetInventory(rw http.ResponseWriter, r *http.Request) {
	generichttp.JSON(rw, w.Hub.Session())
}

// Redetect scans the channels again, e.g. after an actuator was swapped,
// and returns the new session state
func (w HTTPWrapper) Redetect(rw http.ResponseWriter, r *http.Request) {
	if err := w.Hub.Detect(); err != nil {
		generichttp.Error(rw, err)
		return
	}
	generichttp.JSON(rw, w.Hub.Session())
}
