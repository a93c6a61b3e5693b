// Package health serves liveness, readiness and per-component health.
package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const checkTimeout = 5 * time.Second

// CheckFunc reports whether a component is healthy, with an optional note.
type CheckFunc func(ctx context.Context) (bool, string)

// Check is one component's result.
type Check struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// Status is the /health body.
type Status struct {
	Status    string           `json:"status"`
	Checks    map[string]Check `json:"checks"`
	Version   string           `json:"version,omitempty"`
	Timestamp string           `json:"timestamp"`
}

// Failing lists unhealthy check names in order.
func (s Status) Failing() []string {
	var out []string
	for name, c := range s.Checks {
		if !c.Healthy {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Server exposes registered checks over HTTP. Modules register checks
// during startup; checks may be added while serving.
type Server struct {
	port    int
	version string

	mu     sync.RWMutex
	checks map[string]CheckFunc

	http *http.Server
}

func NewServer(port int, version string) *Server {
	return &Server{port: port, version: version, checks: map[string]CheckFunc{}}
}

// RegisterCheck adds or replaces the check called name.
func (s *Server) RegisterCheck(name string, fn CheckFunc) {
	s.mu.Lock()
	s.checks[name] = fn
	s.mu.Unlock()
}

// Report runs every check concurrently.
func (s *Server) Report(ctx context.Context) Status {
	s.mu.RLock()
	checks := make(map[string]CheckFunc, len(s.checks))
	for name, fn := range s.checks {
		checks[name] = fn
	}
	s.mu.RUnlock()

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]Check, len(checks))
	)
	for name, fn := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, msg := fn(ctx)
			mu.Lock()
			out[name] = Check{Healthy: ok, Message: msg}
			mu.Unlock()
		}()
	}
	wg.Wait()

	st := Status{
		Status:    "ok",
		Checks:    out,
		Version:   s.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if len(st.Failing()) > 0 {
		st.Status = "degraded"
	}
	return st
}

// Handler routes /health, /ready and /live.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.ready).Methods(http.MethodGet)
	r.HandleFunc("/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("alive"))
	}).Methods(http.MethodGet)
	return r
}

// Start binds the port before returning and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("health: listen: %w", err)
	}
	s.http = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return
		}
	}()
	return nil
}

// Stop shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	st := s.Report(ctx)
	code := http.StatusOK
	if st.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(st)
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	if failing := s.Report(ctx).Failing(); len(failing) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "not ready: %s", strings.Join(failing, ", "))
		return
	}
	w.Write([]byte("ready"))
}
