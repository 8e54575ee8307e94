package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var res response
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return res
}

func TestHealthzAlwaysOK(t *testing.T) {
	t.Parallel()

	h := New(Check{Name: "broken", Probe: func(context.Context) error {
		return errors.New("down")
	}})

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if res := decode(t, rec); res.Status != "ok" {
		t.Errorf("body status = %q, want ok", res.Status)
	}
}

func TestReadyzAllChecksPass(t *testing.T) {
	t.Parallel()

	h := New(
		Check{Name: "store", Probe: func(context.Context) error { return nil }},
		Check{Name: "upstream", Probe: func(context.Context) error { return nil }},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	res := decode(t, rec)
	if res.Status != "ok" {
		t.Errorf("body status = %q, want ok", res.Status)
	}
	if res.Checks["store"] != "ok" || res.Checks["upstream"] != "ok" {
		t.Errorf("checks = %v", res.Checks)
	}
}

func TestReadyzFailingCheck(t *testing.T) {
	t.Parallel()

	h := New(
		Check{Name: "store", Probe: func(context.Context) error { return errors.New("connection refused") }},
		Check{Name: "upstream", Probe: func(context.Context) error { return nil }},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	res := decode(t, rec)
	if res.Status != "fail" {
		t.Errorf("body status = %q, want fail", res.Status)
	}
	if res.Checks["store"] != "fail: connection refused" {
		t.Errorf("checks[store] = %q", res.Checks["store"])
	}
	if res.Checks["upstream"] != "ok" {
		t.Errorf("checks[upstream] = %q", res.Checks["upstream"])
	}
}

func TestRegisterRoutes(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	New().Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}
