// Package server exposes provers over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prolog4go/prolog"
	"prolog4go/term"
)

const (
	DefaultLimit = 100
	maxBody      = 1 << 20
)

type SolveRequest struct {
	Prover string `json:"prover"`
	Goal   string `json:"goal"`
	Args   []any  `json:"args"`
	Limit  int    `json:"limit"`
}

type SolveResponse struct {
	Success   bool                `json:"success"`
	Solutions []map[string]string `json:"solutions"`
	Error     string              `json:"error,omitempty"`
}

type TheoryRequest struct {
	Prover string `json:"prover"`
	Text   string `json:"text"`
}

type TheoryResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type Server struct {
	factory *prolog.Factory
	log     *zap.Logger
	mux     *http.ServeMux
}

func New(f *prolog.Factory, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{factory: f, log: log, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /solve", s.solve)
	s.mux.HandleFunc("POST /theory", s.theory)
	s.mux.HandleFunc("GET /provers", s.provers)
	s.mux.HandleFunc("DELETE /provers/{name}", s.reset)
	s.mux.HandleFunc("GET /drivers", s.drivers)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Allow all origins
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) solve(w http.ResponseWriter, r *http.Request) {
	var req SolveRequest
	if err := decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	resp, err := s.runSolve(r.Context(), req)
	if err != nil {
		s.log.Debug("solve failed", zap.String("goal", req.Goal), zap.Error(err))
		resp = SolveResponse{Solutions: []map[string]string{}, Error: err.Error()}
		w.WriteHeader(statusOf(err))
	}
	s.encode(w, resp)
}

func (s *Server) runSolve(ctx context.Context, req SolveRequest) (SolveResponse, error) {
	p, err := s.factory.GetProver(ctx, proverName(req.Prover))
	if err != nil {
		return SolveResponse{}, err
	}
	args := make([]any, len(req.Args))
	for i, a := range req.Args {
		args[i] = normalize(a)
	}
	sol, err := p.Solve(ctx, req.Goal, args...)
	if err != nil {
		return SolveResponse{}, err
	}
	defer sol.Close()

	resp := SolveResponse{Success: sol.Success(), Solutions: []map[string]string{}}
	for len(resp.Solutions) < req.Limit && sol.Next() {
		row := make(map[string]string)
		for name, t := range sol.Bindings() {
			row[name] = term.Format(t)
		}
		resp.Solutions = append(resp.Solutions, row)
	}
	return resp, sol.Err()
}

func (s *Server) theory(w http.ResponseWriter, r *http.Request) {
	var req TheoryRequest
	if err := decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p, err := s.factory.GetProver(r.Context(), proverName(req.Prover))
	if err == nil {
		err = p.AddTheory(r.Context(), req.Text)
	}
	if err != nil {
		w.WriteHeader(statusOf(err))
		s.encode(w, TheoryResponse{Error: err.Error()})
		return
	}
	s.encode(w, TheoryResponse{OK: true})
}

func (s *Server) provers(w http.ResponseWriter, _ *http.Request) {
	s.encode(w, map[string][]string{"provers": s.factory.Provers()})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	if err := s.factory.Reset(r.PathValue("name")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) drivers(w http.ResponseWriter, _ *http.Request) {
	s.encode(w, map[string][]string{"drivers": prolog.Drivers()})
}

func (s *Server) encode(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func proverName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return "default"
	}
	return name
}

// normalize turns JSON numbers into int64 or float64 so they convert to
// Prolog integers and floats.
func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	}
	return v
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, prolog.ErrNoDriver), errors.Is(err, prolog.ErrAmbiguousDriver), errors.Is(err, prolog.ErrUnknownDriver):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusUnprocessableEntity
}
