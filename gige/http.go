package gige

import (
	"encoding/json"
	"errors"
	"go/types"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/mmadapters/camera"
	"github.com/nasa-jpl/mmadapters/generichttp"
	camhttp "github.com/nasa-jpl/mmadapters/generichttp/camera"
	"github.com/nasa-jpl/mmadapters/genicam"
	"github.com/nasa-jpl/mmadapters/imgrec"
)

// HTTPWrapper provides HTTP bindings on top of a GigE camera
type HTTPWrapper struct {
	// Cam is the camera
	Cam *Camera

	// RouteTable maps methods and paths to handlers
	RouteTable generichttp.RouteTable
}

// NewHTTPWrapper returns a new HTTP wrapper with the route table pre-configured.
// The camera must be initialized.  rec may be nil.
func NewHTTPWrapper(c *Camera, rec *imgrec.Recorder) HTTPWrapper {
	w := HTTPWrapper{Cam: c, RouteTable: generichttp.RouteTable{}}
	rt := w.RouteTable
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/feature"}] = w.Features
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/feature/{feature}"}] = w.GetFeature
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/feature/{feature}"}] = w.SetFeature
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/feature/{feature}/range"}] = w.FeatureRange
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/feature/{feature}/options"}] = w.FeatureOptions
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/property"}] = w.Properties
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/property/{property}"}] = w.GetProperty
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/property/{property}"}] = w.SetProperty
	camhttp.HTTPPicture(c, rt, rec)
	return w
}

// RT satisfies generichttp.HTTPer
func (h HTTPWrapper) RT() generichttp.RouteTable {
	return h.RouteTable
}

// statusError attaches an HTTP status to an error
type statusError struct {
	error
	code int
}

func (e statusError) StatusCode() int { return e.code }
func (e statusError) Unwrap() error   { return e.error }

// httpError classifies err for generichttp.Error.  Asking for something the
// camera does not have or cannot do is the client's fault; a value the
// device refuses is unprocessable; everything else is on the server.
func httpError(err error) error {
	switch {
	case errors.Is(err, genicam.ErrFeatureNotFound),
		errors.Is(err, genicam.ErrNotAvailable),
		errors.Is(err, genicam.ErrNotReadable),
		errors.Is(err, genicam.ErrNotWritable),
		errors.Is(err, genicam.ErrNoSuchCapability),
		errors.Is(err, genicam.ErrNotEnumeration),
		errors.Is(err, camera.ErrNoProperty),
		errors.Is(err, camera.ErrReadOnly),
		errors.Is(err, ErrNoExposure),
		errors.Is(err, ErrNotInitialized):
		return statusError{err, http.StatusBadRequest}
	case errors.Is(err, genicam.ErrDeviceRejected),
		errors.Is(err, camera.ErrInvalidValue),
		errors.Is(err, camera.ErrOutOfLimits),
		errors.Is(err, ErrUnknownPixelType):
		return statusError{err, http.StatusUnprocessableEntity}
	}
	return err
}

func (h HTTPWrapper) feature(w http.ResponseWriter, r *http.Request) (genicam.Feature, bool) {
	f, err := genicam.ParseFeature(chi.URLParam(r, "feature"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	if h.Cam.Registry() == nil {
		generichttp.Error(w, httpError(ErrNotInitialized))
		return nil, false
	}
	return f, true
}

// Features returns the capability flags of every feature in the catalog
func (h HTTPWrapper) Features(w http.ResponseWriter, r *http.Request) {
	reg := h.Cam.Registry()
	if reg == nil {
		generichttp.Error(w, httpError(ErrNotInitialized))
		return
	}
	generichttp.JSON(w, reg.Snapshot())
}

// GetFeature reads one feature from the device, as {"int"}, {"f64"} or
// {"str"} depending on its kind
func (h HTTPWrapper) GetFeature(w http.ResponseWriter, r *http.Request) {
	f, ok := h.feature(w, r)
	if !ok {
		return
	}
	reg := h.Cam.Registry()
	var (
		hp  generichttp.HumanPayload
		err error
	)
	switch v := f.(type) {
	case genicam.IntFeature:
		var i int64
		i, err = reg.GetInt(v)
		hp = generichttp.HumanPayload{T: types.Int, Int: int(i)}
	case genicam.FloatFeature:
		hp.T = types.Float64
		hp.Float, err = reg.GetFloat(v)
	case genicam.StringFeature:
		hp.T = types.String
		hp.String, err = reg.GetString(v)
	}
	if err != nil {
		generichttp.Error(w, httpError(err))
		return
	}
	hp.EncodeAndRespond(w, r)
}

// SetFeature writes one feature on the device.  The body is {"int"}, {"f64"}
// or {"str"} to match the feature's kind.
func (h HTTPWrapper) SetFeature(w http.ResponseWriter, r *http.Request) {
	f, ok := h.feature(w, r)
	if !ok {
		return
	}
	reg := h.Cam.Registry()
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	var err error
	switch v := f.(type) {
	case genicam.IntFeature:
		in := generichttp.IntT{}
		if err := dec.Decode(&in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = reg.SetInt(v, int64(in.Int))
	case genicam.FloatFeature:
		in := generichttp.FloatT{}
		if err := dec.Decode(&in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = reg.SetFloat(v, in.F64)
	case genicam.StringFeature:
		in := generichttp.StrT{}
		if err := dec.Decode(&in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = reg.SetString(v, in.Str)
	}
	if err != nil {
		generichttp.Error(w, httpError(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Range is the limits of a numeric feature; absent limits are omitted
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
	Inc *float64 `json:"inc,omitempty"`
}

// FeatureRange returns the minimum, maximum and increment of a numeric feature
func (h HTTPWrapper) FeatureRange(w http.ResponseWriter, r *http.Request) {
	f, ok := h.feature(w, r)
	if !ok {
		return
	}
	reg := h.Cam.Registry()
	info := reg.Info(f)
	if !info.Available {
		generichttp.Error(w, httpError(genicam.ErrNotAvailable))
		return
	}
	var q [3]func() (float64, error)
	switch v := f.(type) {
	case genicam.IntFeature:
		conv := func(g func(genicam.IntFeature) (int64, error)) func() (float64, error) {
			return func() (float64, error) {
				i, err := g(v)
				return float64(i), err
			}
		}
		q = [3]func() (float64, error){conv(reg.IntMin), conv(reg.IntMax), conv(reg.IntIncrement)}
	case genicam.FloatFeature:
		q = [3]func() (float64, error){
			func() (float64, error) { return reg.FloatMin(v) },
			func() (float64, error) { return reg.FloatMax(v) },
			func() (float64, error) { return reg.FloatIncrement(v) },
		}
	default:
		generichttp.Error(w, httpError(genicam.ErrNoSuchCapability))
		return
	}
	has := [3]bool{info.HasMinimum, info.HasMaximum, info.HasIncrement}
	var out [3]*float64
	for i := range q {
		if !has[i] {
			continue
		}
		x, err := q[i]()
		if err != nil {
			generichttp.Error(w, httpError(err))
			return
		}
		out[i] = &x
	}
	generichttp.JSON(w, Range{Min: out[0], Max: out[1], Inc: out[2]})
}

// FeatureOptions returns the entries of an enumeration feature
func (h HTTPWrapper) FeatureOptions(w http.ResponseWriter, r *http.Request) {
	f, ok := h.feature(w, r)
	if !ok {
		return
	}
	entries, err := h.Cam.Registry().EnumEntries(f)
	if err != nil {
		generichttp.Error(w, httpError(err))
		return
	}
	generichttp.JSON(w, entries)
}

// PropertyInfo describes a host property over HTTP
type PropertyInfo struct {
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Value    string    `json:"value"`
	ReadOnly bool      `json:"readOnly"`
	Allowed  []string  `json:"allowed,omitempty"`
	Limits   []float64 `json:"limits,omitempty"`
}

// Properties lists every host property with its current value
func (h HTTPWrapper) Properties(w http.ResponseWriter, r *http.Request) {
	ps := h.Cam.Properties()
	if ps == nil {
		generichttp.Error(w, httpError(ErrNotInitialized))
		return
	}
	out := make([]PropertyInfo, 0, ps.Len())
	for _, name := range ps.Names() {
		val, err := ps.Get(name)
		if err != nil {
			generichttp.Error(w, httpError(err))
			return
		}
		p, _ := ps.Property(name)
		info := PropertyInfo{Name: name, Type: p.Type.String(), Value: val, ReadOnly: p.ReadOnly, Allowed: p.Allowed()}
		if lo, hi, ok := p.Limits(); ok {
			info.Limits = []float64{lo, hi}
		}
		out = append(out, info)
	}
	generichttp.JSON(w, out)
}

// GetProperty returns one property as {"str"}
func (h HTTPWrapper) GetProperty(w http.ResponseWriter, r *http.Request) {
	ps := h.Cam.Properties()
	if ps == nil {
		generichttp.Error(w, httpError(ErrNotInitialized))
		return
	}
	generichttp.GetString(func() (string, error) {
		s, err := ps.Get(chi.URLParam(r, "property"))
		return s, httpError(err)
	})(w, r)
}

// SetProperty sets one property from {"str"}
func (h HTTPWrapper) SetProperty(w http.ResponseWriter, r *http.Request) {
	ps := h.Cam.Properties()
	if ps == nil {
		generichttp.Error(w, httpError(ErrNotInitialized))
		return
	}
	generichttp.SetString(func(s string) error {
		return httpError(ps.Set(chi.URLParam(r, "property"), s))
	})(w, r)
}
