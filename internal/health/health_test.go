package health

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestServer_Endpoints(t *testing.T) {
	s := NewServer(0, "test")
	s.RegisterCheck("ledger", func(context.Context) (bool, string) { return true, "" })

	var healthyFeed atomic.Bool
	healthyFeed.Store(true)
	s.RegisterCheck("oracle", func(context.Context) (bool, string) {
		if healthyFeed.Load() {
			return true, ""
		}
		return false, "feed returned 0"
	})

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(b)
	}

	if code, body := get("/health"); code != http.StatusOK || !strings.Contains(body, `"status":"ok"`) {
		t.Errorf("/health = %d %s", code, body)
	}

	healthyFeed.Store(false)

	code, body := get("/health")
	if code != http.StatusServiceUnavailable || !strings.Contains(body, "feed returned 0") {
		t.Errorf("/health degraded = %d %s", code, body)
	}
	if code, body := get("/ready"); code != http.StatusServiceUnavailable || !strings.Contains(body, "oracle") {
		t.Errorf("/ready = %d %s", code, body)
	}
	if code, _ := get("/live"); code != http.StatusOK {
		t.Errorf("/live = %d", code)
	}
}

func TestServer_Report(t *testing.T) {
	tests := []struct {
		name    string
		checks  map[string]bool
		status  string
		failing []string
	}{
		{"no checks", nil, "ok", nil},
		{"all healthy", map[string]bool{"a": true, "b": true}, "ok", nil},
		{"two failing", map[string]bool{"z": false, "a": false, "m": true}, "degraded", []string{"a", "z"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(0, "v1")
			for name, ok := range tt.checks {
				s.RegisterCheck(name, func(context.Context) (bool, string) { return ok, "" })
			}
			st := s.Report(context.Background())
			if st.Status != tt.status || st.Version != "v1" {
				t.Errorf("Report() = %+v", st)
			}
			if got := st.Failing(); strings.Join(got, ",") != strings.Join(tt.failing, ",") {
				t.Errorf("Failing() = %v, want %v", got, tt.failing)
			}
		})
	}
}
