// Package camera provides a generic HTTP interface to a scientific camera
package camera

import (
	"encoding/json"
	"go/types"
	"io"
	"net/http"
	"time"

	"github.com/astrogo/fitsio"
	cam "github.com/nasa-jpl/mmadapters/camera"
	"github.com/nasa-jpl/mmadapters/generichttp"
	"github.com/nasa-jpl/mmadapters/generichttp/thermal"
	"github.com/nasa-jpl/mmadapters/imgrec"
	"github.com/nasa-jpl/mmadapters/util"
)

// PictureTaker describes an interface to a camera which can capture images
type PictureTaker interface {
	// GetFrame triggers capture of a frame
	GetFrame() (cam.Frame, error)

	// SetExposureTime sets the exposure time
	SetExposureTime(time.Duration) error

	// GetExposureTime gets the exposure time
	GetExposureTime() (time.Duration, error)
}

// MetadataMaker can produce an array of FITS cards
type MetadataMaker interface {
	// CollectHeaderMetadata produces an array of FITS cards
	CollectHeaderMetadata() []fitsio.Card
}

// HTTPPicture injects HTTP methods into a route table for a picture taker.
// Routes for binning, the ROI and the temperature are added when p
// implements camera.Binner, camera.Cropper or thermal.Thermometer.
// rec may be nil.
func HTTPPicture(p PictureTaker, table generichttp.RouteTable, rec *imgrec.Recorder) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/exposure-time"}] = GetExposureTime(p)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/exposure-time"}] = SetExposureTime(p)
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/image"}] = GetFrame(p, rec)
	if b, ok := p.(cam.Binner); ok {
		table[generichttp.MethodPath{Method: http.MethodGet, Path: "/binning"}] = generichttp.GetInt(b.GetBinning)
		table[generichttp.MethodPath{Method: http.MethodPost, Path: "/binning"}] = generichttp.SetInt(b.SetBinning)
	}
	if c, ok := p.(cam.Cropper); ok {
		table[generichttp.MethodPath{Method: http.MethodGet, Path: "/roi"}] = GetROI(c)
		table[generichttp.MethodPath{Method: http.MethodPost, Path: "/roi"}] = SetROI(c)
		table[generichttp.MethodPath{Method: http.MethodPost, Path: "/roi/reset"}] = ClearROI(c)
	}
	if t, ok := p.(thermal.Thermometer); ok {
		thermal.HTTPThermometer(t, table)
	}
	if rec != nil {
		imgrec.NewHTTPWrapper(rec).Inject(table)
	}
}

// SetExposureTime sets the exposure time on a POST request.
// it can be provided either as a query parameter exposureTime, formatted in a
// way that is parseable by golang/time.ParseDuration, or a json payload with
// key f64, holding the exposure time in seconds.
func SetExposureTime(p PictureTaker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		texp := q.Get("exposureTime")
		var d time.Duration
		var err error
		if texp == "" {
			f := generichttp.FloatT{}
			err = json.NewDecoder(r.Body).Decode(&f)
			defer r.Body.Close()
			d = util.SecsToDuration(f.F64)
		} else {
			d, err = parseExposure(texp)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = p.SetExposureTime(d)
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetExposureTime gets the exposure time on a GET request, in seconds
func GetExposureTime(p PictureTaker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := p.GetExposureTime()
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		hp := generichttp.HumanPayload{T: types.Float64, Float: f.Seconds()}
		hp.EncodeAndRespond(w, r)
	}
}

// parseExposure parses a duration; a bare number is seconds
func parseExposure(s string) (time.Duration, error) {
	if util.AllElementsNumbers(s) {
		s = s + "s"
	}
	return time.ParseDuration(s)
}

// GetFrame takes a picture and returns it on a GET request.
//
// the image format may be specified in a query parameter fmt, one of jpg,
// png or fits; default to jpg
//
// the exposure time may be specified as a query parameter in any time-looking
// format, such as "25ms" or "10us".  Strictly speaking, it must be a valid
// input to golang time.ParseDuration.
//
// if no unit is appended, an s (seconds) is added.
//
// if no exposure time is provided, it is not updated and the existing value is used.
//
// fits images are also written to rec if it is enabled.
func GetFrame(p PictureTaker, rec *imgrec.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if texp := q.Get("exposureTime"); texp != "" {
			T, err := parseExposure(texp)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			err = p.SetExposureTime(T)
			if err != nil {
				generichttp.Error(w, err)
				return
			}
		}
		format := q.Get("fmt")
		if format == "" {
			format = "jpg"
		}
		if !KnownFormat(format) {
			http.Error(w, "unknown image format "+format, http.StatusBadRequest)
			return
		}
		frame, err := p.GetFrame()
		if err != nil {
			generichttp.Error(w, err)
			return
		}

		switch format {
		case "jpg", "png":
			w.Header().Set("Content-Type", "image/"+contentType(format))
			w.WriteHeader(http.StatusOK)
			EncodeImage(w, frame, format)
		case "fits":
			var w2 io.Writer = w
			if rec != nil && rec.Enabled && rec.Root != "" {
				w2 = io.MultiWriter(w, rec)
				defer rec.Incr()
			}
			var cards []fitsio.Card
			if carder, ok := p.(MetadataMaker); ok {
				cards = carder.CollectHeaderMetadata()
			}
			hdr := w.Header()
			hdr.Set("Content-Type", "image/fits")
			hdr.Set("Content-Disposition", "attachment; filename=image.fits")
			err = WriteFits(w2, cards, []cam.Frame{frame})
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

// GetROI returns the region of interest as JSON
func GetROI(c cam.Cropper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roi, err := c.GetROI()
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		generichttp.JSON(w, roiJSON(roi))
	}
}

// SetROI sets the region of interest from a JSON body {"x", "y", "w", "h"}
func SetROI(c cam.Cropper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in roiT
		err := json.NewDecoder(r.Body).Decode(&in)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = c.SetROI(cam.ROI{X: in.X, Y: in.Y, W: in.W, H: in.H})
		if err != nil {
			generichttp.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// ClearROI restores the full frame on a POST request
func ClearROI(c cam.Cropper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := c.ClearROI(); err != nil {
			generichttp.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

type roiT struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func roiJSON(r cam.ROI) roiT {
	return roiT{X: r.X, Y: r.Y, W: r.W, H: r.H}
}
