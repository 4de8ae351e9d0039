// Package server exposes integral.Compute over HTTP.
//
//	POST /integrate  evaluate an integral, respond with a report
//	GET  /rules      list the quadrature rules
//	GET  /health     liveness check
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/njchilds90/goquad/integral"
	"github.com/njchilds90/goquad/internal/config"
	"github.com/njchilds90/goquad/internal/render"
	"github.com/njchilds90/goquad/quadrature"
)

// Request is the body of POST /integrate. Lower and Upper accept a JSON
// number or a constant expression string such as "pi/2". Zero or empty
// fields fall back to the server configuration.
type Request struct {
	Expr      string   `json:"expr"`
	Var       string   `json:"var,omitempty"`
	Lower     Bound    `json:"lower"`
	Upper     Bound    `json:"upper"`
	N         int      `json:"n,omitempty"`
	Rules     []string `json:"rules,omitempty"`
	Bounds    bool     `json:"bounds,omitempty"`
	Precision *int     `json:"precision,omitempty"`
}

// Bound is an integration limit in source form.
type Bound string

func (b *Bound) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*b = Bound(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("bound must be a number or a string: %w", err)
	}
	*b = Bound(n.String())
	return nil
}

// RuleInfo describes one rule for GET /rules.
type RuleInfo struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Order  int    `json:"order"`
	N      string `json:"n"`
}

type Server struct {
	cfg *config.Config
	log *zap.Logger
	mux *http.ServeMux
}

func New(cfg *config.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{cfg: cfg, log: log.Named("server"), mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /integrate", s.handleIntegrate)
	s.mux.HandleFunc("GET /rules", s.handleRules)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// Handler returns the routes wrapped in panic recovery.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic",
					zap.String("path", r.URL.Path),
					zap.Any("recovered", rec),
					zap.Stack("stack"))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		s.mux.ServeHTTP(w, r)
	})
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.Server.ReadTimeout.Duration,
		WriteTimeout:      s.cfg.Server.WriteTimeout.Duration,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleIntegrate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req Request
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	// Ensure there's no trailing junk.
	if dec.More() {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON: trailing data"))
		return
	}

	spec, err := integral.ParseSpec(req.Expr, req.Var, string(req.Lower), string(req.Upper))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	opts, n, precision, err := s.options(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	report, err := integral.Compute(r.Context(), spec, n, opts)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, render.NewView(spec, report, precision))
}

func (s *Server) options(req Request) (integral.Options, int, int, error) {
	opts := integral.Options{
		ExactTimeout:    s.cfg.Exact.Timeout.Duration,
		MaxSubintervals: s.cfg.Quadrature.MaxSubintervals,
		Bounds:          req.Bounds || s.cfg.Quadrature.Bounds,
		Logger:          s.log,
	}
	names := req.Rules
	if len(names) == 0 {
		names = s.cfg.Quadrature.Rules
	}
	for _, name := range names {
		rule, err := quadrature.ParseRule(name)
		if err != nil {
			return opts, 0, 0, err
		}
		opts.Rules = append(opts.Rules, rule)
	}
	n := req.N
	if n == 0 {
		n = s.cfg.Quadrature.Subintervals
	}
	if n > s.cfg.Quadrature.MaxSubintervals {
		return opts, 0, 0, fmt.Errorf("n = %d exceeds the limit of %d", n, s.cfg.Quadrature.MaxSubintervals)
	}
	precision := s.cfg.Output.Precision
	if req.Precision != nil {
		precision = *req.Precision
	}
	if precision < 0 || precision > config.MaxPrecision {
		return opts, 0, 0, fmt.Errorf("precision must be in [0, %d], got %d", config.MaxPrecision, precision)
	}
	return opts, n, precision, nil
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Rules())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Rules describes every quadrature rule.
func Rules() []RuleInfo {
	var out []RuleInfo
	for _, r := range quadrature.Rules() {
		info := RuleInfo{Name: r.String(), Symbol: r.Symbol(), Order: r.Order(), N: "n >= 1"}
		if r == quadrature.Simpson {
			info.N = "n >= 2, even"
		}
		out = append(out, info)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
