// Package httpapi exposes the engine to its operator over HTTP: risk
// parameters, simulation, execution, withdrawal and a WebSocket event feed.
package httpapi

import (
	"bufio"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultDeadline = 300 * time.Second

type Config struct {
	Port int
	// OwnerToken authenticates the owner. Empty disables owner routes.
	OwnerToken  string
	CORSOrigins []string
	// DefaultDeadline applies to trade requests without one.
	DefaultDeadline time.Duration
}

// Server routes operator requests to the engine.
type Server struct {
	cfg    Config
	engine *app.Engine
	owner  common.Address
	clock  func() time.Time
	log    logger.LoggerInterface

	router *mux.Router
	server *http.Server
}

func NewServer(cfg Config, engine *app.Engine, owner common.Address, clock func() time.Time, log logger.LoggerInterface) *Server {
	if cfg.DefaultDeadline <= 0 {
		cfg.DefaultDeadline = defaultDeadline
	}
	if clock == nil {
		clock = time.Now
	}
	s := &Server{
		cfg:    cfg,
		engine: engine,
		owner:  owner,
		clock:  clock,
		log:    log,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recovery, s.logging, s.cors, s.identity)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/params", s.getParams).Methods(http.MethodGet)
	v1.HandleFunc("/params", s.putParams).Methods(http.MethodPut)
	v1.HandleFunc("/simulate", s.simulate).Methods(http.MethodPost)
	v1.HandleFunc("/execute", s.execute).Methods(http.MethodPost)
	v1.HandleFunc("/withdraw", s.withdraw).Methods(http.MethodPost)
	v1.HandleFunc("/balances/{token}", s.balance).Methods(http.MethodGet)
	v1.HandleFunc("/events", s.events).Methods(http.MethodGet)
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

// Handler returns the routes without binding a port.
func (s *Server) Handler() http.Handler { return s.router }

// Start binds the port synchronously and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("httpapi: listen: %w", err)
	}
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error(context.Background(), "operator api stopped", "error", err)
		}
	}()
	s.log.Info(context.Background(), "operator api listening", "port", s.cfg.Port)
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type callerKey struct{}

// identity maps a matching bearer token to the owner. Everyone else is
// the zero address, which every owner-only operation rejects.
func (s *Server) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var caller common.Address
		if tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && s.cfg.OwnerToken != "" {
			if subtle.ConstantTimeCompare([]byte(tok), []byte(s.cfg.OwnerToken)) == 1 {
				caller = s.owner
			}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

func callerFrom(ctx context.Context) common.Address {
	c, _ := ctx.Value(callerKey{}).(common.Address)
	return c
}

func (s *Server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error(r.Context(), "handler panic", "panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
				writeError(w, apperror.New(apperror.CodeInternalError))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack passes WebSocket upgrades through to the underlying writer.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("httpapi: response writer cannot hijack")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(s.cfg.CORSOrigins))
	for _, o := range s.cfg.CORSOrigins {
		allowed[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && (allowed[origin] || allowed["*"]) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			h.Set("Vary", "Origin")
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorBody renders err as an AppError response; anything else is an
// internal error.
func errorBody(err error) (int, apperror.Response) {
	appErr := apperror.From(err)
	return appErr.StatusCode, appErr.ToResponse()
}

func writeError(w http.ResponseWriter, err error) {
	status, body := errorBody(err)
	writeJSON(w, status, body)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return invalidInput("body", err)
	}
	return nil
}
