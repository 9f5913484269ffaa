package generichttp_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/google/go-cmp/cmp"
	"github.com/nasa-jpl/mmadapters/generichttp"
)

func ExampleSubMuxSanitize() {
	fmt.Println(generichttp.SubMuxSanitize("omc/nkt"))
	fmt.Println(generichttp.SubMuxSanitize("/omc/nkt/*"))
	// Output:
	// /omc/nkt
	// /omc/nkt
}

type teapot struct{}

func (teapot) Error() string   { return "short and stout" }
func (teapot) StatusCode() int { return http.StatusTeapot }

func TestRouteTableBind(t *testing.T) {
	val := 1.5
	rt := generichttp.RouteTable{
		{Method: http.MethodGet, Path: "/val"}:  generichttp.GetFloat(func() (float64, error) { return val, nil }),
		{Method: http.MethodPost, Path: "/val"}: generichttp.SetFloat(func(f float64) error { val = f; return nil }),
		{Method: http.MethodGet, Path: "/pot"}: generichttp.GetString(func() (string, error) {
			return "", fmt.Errorf("brewing: %w", teapot{})
		}),
	}
	r := chi.NewRouter()
	rt.Bind(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/val", strings.NewReader(`{"f64": 2.5}`)))
	if rec.Code != http.StatusOK || val != 2.5 {
		t.Fatalf("POST /val: %d, val=%v", rec.Code, val)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/val", nil))
	if got := strings.TrimSpace(rec.Body.String()); got != `{"f64":2.5}` {
		t.Errorf("GET /val = %s", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pot", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected the error's status code, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/val", strings.NewReader(`not json`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 on a bad body, got %d", rec.Code)
	}

	want := []string{"GET /pot", "GET /val", "POST /val"}
	if diff := cmp.Diff(want, rt.Endpoints()); diff != "" {
		t.Errorf("Endpoints mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorDefaultsTo500(t *testing.T) {
	rec := httptest.NewRecorder()
	generichttp.Error(rec, errors.New("boom"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("got %d", rec.Code)
	}
}
