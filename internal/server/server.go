// Package server adapts inbound HTTP traffic to the middleware pipeline.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/pipeline"
	"github.com/edforge/trellis/pkg/response"
)

const shutdownGrace = 10 * time.Second

// Server runs the HTTP frontend. Every request is translated to a
// FrontendRequest, run through the executor, and the terminal response
// is written back.
type Server struct {
	addr     string
	executor *pipeline.Executor
	logger   hclog.Logger
}

// New creates a server listening on addr.
func New(addr string, executor *pipeline.Executor, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Server{
		addr:     addr,
		executor: executor,
		logger:   logger.Named("server"),
	}
}

// Handler returns the HTTP handler backed by the pipeline.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handle)
}

// ListenAndServe serves until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown did not complete cleanly", "error", err)
		}
	}()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	traceID := r.Header.Get("correlation-id")
	if traceID == "" {
		traceID = uuid.NewString()
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error("failed to read request body", "trace_id", traceID, "error", err)
		s.writeInternal(w, traceID)
		return
	}

	requestInfo := pipeline.NewRequestInfo(&pipeline.FrontendRequest{
		Method:          r.Method,
		Path:            r.URL.Path,
		Body:            string(body),
		Headers:         flattenHeaders(r.Header),
		QueryParameters: flattenQuery(r.URL.Query()),
		TraceID:         traceID,
	})

	if err := s.executor.Run(r.Context(), requestInfo); err != nil {
		s.logger.Error("pipeline fault", "trace_id", traceID, "error", err)
		s.writeInternal(w, traceID)
		return
	}

	resp := requestInfo.Response()
	if resp == nil {
		s.logger.Error("pipeline produced no response", "trace_id", traceID)
		s.writeInternal(w, traceID)
		return
	}

	for name, value := range resp.Headers {
		w.Header().Set(name, value)
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}

func (s *Server) writeInternal(w http.ResponseWriter, traceID string) {
	w.Header().Set("Content-Type", response.ContentTypeProblemJSON)
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write(response.Marshal(response.Internal(traceID)))
}

// flattenHeaders keeps the first value per header name. The pipeline's
// header lookups are case-insensitive, so names pass through untouched.
func flattenHeaders(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for name, values := range header {
		if len(values) > 0 {
			flat[name] = values[0]
		}
	}
	return flat
}

func flattenQuery(values map[string][]string) map[string]string {
	flat := make(map[string]string, len(values))
	for name, vs := range values {
		if len(vs) > 0 {
			flat[name] = vs[0]
		}
	}
	return flat
}
