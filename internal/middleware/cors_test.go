package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveCORS(origins []string, method, origin string) *httptest.ResponseRecorder {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	req := httptest.NewRequest(method, "/poll", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rr := httptest.NewRecorder()
	CORS(origins, "X-Bridge-Error")(next).ServeHTTP(rr, req)
	return rr
}

func TestCORS_Wildcard(t *testing.T) {
	rr := serveCORS([]string{"*"}, http.MethodGet, "http://scratch.example.org")

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard origin, got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Expose-Headers"); got != "X-Bridge-Error" {
		t.Errorf("expected exposed header, got %q", got)
	}
	if rr.Code != http.StatusTeapot {
		t.Errorf("expected request to reach handler, got %d", rr.Code)
	}
}

func TestCORS_ExplicitOrigin(t *testing.T) {
	rr := serveCORS([]string{"http://localhost:8601"}, http.MethodGet, "http://localhost:8601")

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:8601" {
		t.Errorf("expected echoed origin, got %q", got)
	}
	if got := rr.Header().Get("Vary"); got != "Origin" {
		t.Errorf("expected Vary: Origin, got %q", got)
	}
}

func TestCORS_RejectedOrigin(t *testing.T) {
	rr := serveCORS([]string{"http://localhost:8601"}, http.MethodGet, "http://evil.example")

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header, got %q", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	rr := serveCORS([]string{"*"}, http.MethodOptions, "http://scratch.example.org")

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 for preflight, got %d", rr.Code)
	}
}
