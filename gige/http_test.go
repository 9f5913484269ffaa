package gige_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/google/go-cmp/cmp"

	"github.com/nasa-jpl/mmadapters/genicam"
	"github.com/nasa-jpl/mmadapters/gige"
)

func server(t *testing.T) (*httptest.Server, *genicam.MockDevice) {
	t.Helper()
	c, dev := setup(t)
	r := chi.NewRouter()
	gige.NewHTTPWrapper(c, nil).RT().Bind(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, dev
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestHTTPGetFeature(t *testing.T) {
	srv, _ := server(t)
	var i struct{ Int int }
	decode(t, do(t, srv, http.MethodGet, "/feature/Width", ""), &i)
	if i.Int != 1280 {
		t.Errorf("expected Width 1280, got %d", i.Int)
	}
	var f struct{ F64 float64 }
	decode(t, do(t, srv, http.MethodGet, "/feature/ExposureTimeAbs", ""), &f)
	if f.F64 != 10000 {
		t.Errorf("expected ExposureTimeAbs 10000, got %v", f.F64)
	}
	var s struct{ Str string }
	decode(t, do(t, srv, http.MethodGet, "/feature/PixelFormat", ""), &s)
	if s.Str != "Mono8" {
		t.Errorf("expected PixelFormat Mono8, got %s", s.Str)
	}
}

func TestHTTPSetFeature(t *testing.T) {
	srv, _ := server(t)
	resp := do(t, srv, http.MethodPost, "/feature/Height", `{"int": 512}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var i struct{ Int int }
	decode(t, do(t, srv, http.MethodGet, "/feature/Height", ""), &i)
	if i.Int != 512 {
		t.Errorf("expected Height 512, got %d", i.Int)
	}
}

func TestHTTPStatusCodes(t *testing.T) {
	srv, _ := server(t)
	cases := []struct {
		method, path, body string
		code               int
	}{
		{http.MethodGet, "/feature/NotAFeature", "", http.StatusNotFound},
		{http.MethodGet, "/feature/ExposureTime", "", http.StatusBadRequest},
		{http.MethodPost, "/feature/SensorWidth", `{"int": 640}`, http.StatusBadRequest},
		{http.MethodPost, "/feature/Width", `{"int": 650}`, http.StatusUnprocessableEntity},
		{http.MethodPost, "/feature/Width", `not json`, http.StatusBadRequest},
		{http.MethodGet, "/feature/Width/options", "", http.StatusBadRequest},
		{http.MethodGet, "/feature/DeviceModelName/range", "", http.StatusBadRequest},
		{http.MethodGet, "/property/NotAProperty", "", http.StatusBadRequest},
		{http.MethodPost, "/property/Gain", `{"str": "999"}`, http.StatusUnprocessableEntity},
		{http.MethodPost, "/property/Camera%20Model", `{"str": "x"}`, http.StatusBadRequest},
		{http.MethodGet, "/image?fmt=bmp", "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		resp := do(t, srv, tc.method, tc.path, tc.body)
		if resp.StatusCode != tc.code {
			t.Errorf("%s %s: expected %d got %d", tc.method, tc.path, tc.code, resp.StatusCode)
		}
	}
}

func TestHTTPTransportFault(t *testing.T) {
	srv, dev := server(t)
	dev.SetFault(genicam.StatusTimeout)
	resp := do(t, srv, http.MethodGet, "/feature/Width", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
	dev.SetFault(genicam.StatusSuccess)
	resp = do(t, srv, http.MethodGet, "/feature/Width", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected recovery, got %d", resp.StatusCode)
	}
}

func TestHTTPFeatureRange(t *testing.T) {
	srv, _ := server(t)
	var rng gige.Range
	decode(t, do(t, srv, http.MethodGet, "/feature/Width/range", ""), &rng)
	if rng.Min == nil || rng.Max == nil || rng.Inc == nil {
		t.Fatalf("expected a full integer range, got %+v", rng)
	}
	if *rng.Min != 16 || *rng.Max != 1280 || *rng.Inc != 16 {
		t.Errorf("expected [16, 1280] step 16, got [%v, %v] step %v", *rng.Min, *rng.Max, *rng.Inc)
	}
	rng = gige.Range{}
	decode(t, do(t, srv, http.MethodGet, "/feature/ExposureTimeAbs/range", ""), &rng)
	if rng.Inc != nil {
		t.Errorf("expected no increment on ExposureTimeAbs, got %v", *rng.Inc)
	}
}

func TestHTTPFeatureOptions(t *testing.T) {
	srv, _ := server(t)
	var entries []genicam.EnumEntry
	decode(t, do(t, srv, http.MethodGet, "/feature/AcquisitionFrameRateStr/options", ""), &entries)
	expected := []genicam.EnumEntry{
		{Name: "FrameRate_15", Display: "15 fps"},
		{Name: "FrameRate_30", Display: "30 fps"},
		{Name: "FrameRate_60", Display: "60 fps"},
	}
	if diff := cmp.Diff(expected, entries); diff != "" {
		t.Errorf("options (-want +got):\n%s", diff)
	}
}

func TestHTTPFeatureSnapshot(t *testing.T) {
	srv, _ := server(t)
	var snap map[string]genicam.NodeInfo
	decode(t, do(t, srv, http.MethodGet, "/feature", ""), &snap)
	if len(snap) != len(genicam.AllFeatures()) {
		t.Errorf("expected %d features, got %d", len(genicam.AllFeatures()), len(snap))
	}
	if !snap["Temperature"].Available || snap["Temperature"].Writable {
		t.Errorf("expected Temperature available and read-only, got %+v", snap["Temperature"])
	}
	if snap["ExposureTime"].Available {
		t.Error("expected ExposureTime unavailable")
	}
}

func TestHTTPProperties(t *testing.T) {
	srv, _ := server(t)
	resp := do(t, srv, http.MethodPost, "/property/Binning", `{"str": "2"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var props []gige.PropertyInfo
	decode(t, do(t, srv, http.MethodGet, "/property", ""), &props)
	byName := make(map[string]gige.PropertyInfo)
	for _, p := range props {
		byName[p.Name] = p
	}
	if byName[gige.KeywordBinningVertical].Value != "2" {
		t.Errorf("expected vertical binning 2, got %+v", byName[gige.KeywordBinningVertical])
	}
	if diff := cmp.Diff([]float64{0.01, 10000}, byName[gige.KeywordExposure].Limits); diff != "" {
		t.Errorf("exposure limits (-want +got):\n%s", diff)
	}
	if !byName[gige.KeywordModel].ReadOnly {
		t.Error("expected the model to be read-only")
	}
}

func TestHTTPImage(t *testing.T) {
	srv, _ := server(t)
	for format, ctype := range map[string]string{"jpg": "image/jpeg", "png": "image/png", "fits": "image/fits"} {
		resp := do(t, srv, http.MethodGet, "/image?fmt="+format+"&exposureTime=5ms", "")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200 got %d", format, resp.StatusCode)
		}
		if got := resp.Header.Get("Content-Type"); got != ctype {
			t.Errorf("%s: expected content type %s got %s", format, ctype, got)
		}
	}
	var f struct{ F64 float64 }
	decode(t, do(t, srv, http.MethodGet, "/exposure-time", ""), &f)
	if f.F64 != 0.005 {
		t.Errorf("expected exposure 0.005 s, got %v", f.F64)
	}
}

func TestHTTPROI(t *testing.T) {
	srv, _ := server(t)
	resp := do(t, srv, http.MethodPost, "/roi", `{"x": 16, "y": 0, "w": 128, "h": 64}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var roi struct{ X, Y, W, H int }
	decode(t, do(t, srv, http.MethodGet, "/roi", ""), &roi)
	if roi.X != 16 || roi.W != 128 || roi.H != 64 {
		t.Errorf("unexpected ROI %+v", roi)
	}
}
