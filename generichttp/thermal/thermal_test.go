package thermal_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/mmadapters/generichttp"
	"github.com/nasa-jpl/mmadapters/generichttp/thermal"
)

type probe float64

func (p probe) GetTemperature() (float64, error) { return float64(p), nil }

type tec struct {
	probe
	setpt float64
}

func (t *tec) GetTemperatureSetpoint() (float64, error) { return t.setpt, nil }
func (t *tec) SetTemperatureSetpoint(f float64) error  { t.setpt = f; return nil }

type amp map[string]float64

func (a amp) GetAxisTemperature(axis string) (float64, error) {
	v, ok := a[axis]
	if !ok {
		return 0, errors.New("no such axis")
	}
	return v, nil
}

func serve(rt generichttp.RouteTable, method, path, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	rt.Bind(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func TestThermometerHasNoSetpoint(t *testing.T) {
	rt := generichttp.RouteTable{}
	thermal.HTTPThermometer(probe(21.5), rt)
	if len(rt) != 1 {
		t.Errorf("expected only /temperature, got %v", rt.Endpoints())
	}
	w := serve(rt, http.MethodGet, "/temperature", "")
	if strings.TrimSpace(w.Body.String()) != `{"f64":21.5}` {
		t.Errorf("got %s", w.Body)
	}
}

func TestControllerSetpoint(t *testing.T) {
	c := &tec{probe: 20}
	rt := generichttp.RouteTable{}
	thermal.HTTPThermometer(c, rt)
	if w := serve(rt, http.MethodPost, "/temperature-setpoint", `{"f64": -10}`); w.Code != http.StatusOK {
		t.Fatalf("set: %d", w.Code)
	}
	if c.setpt != -10 {
		t.Errorf("setpoint not applied, got %v", c.setpt)
	}
}

func TestAxisTemperature(t *testing.T) {
	rt := generichttp.RouteTable{}
	thermal.HTTPAxisThermometer(amp{"2": 31}, rt)
	w := serve(rt, http.MethodGet, "/axis/2/temperature", "")
	if strings.TrimSpace(w.Body.String()) != `{"f64":31}` {
		t.Errorf("got %s", w.Body)
	}
	if w := serve(rt, http.MethodGet, "/axis/3/temperature", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}
