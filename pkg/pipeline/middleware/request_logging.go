package middleware

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/pipeline"
)

// RequestLogging records one line per request with the trace id, method,
// path, resulting status, and duration. It runs first so every outcome,
// including early short-circuits, is covered.
type RequestLogging struct {
	logger hclog.Logger
}

// NewRequestLogging creates the request logging step.
func NewRequestLogging(logger hclog.Logger) *RequestLogging {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &RequestLogging{logger: logger.Named("request-logging")}
}

// Name implements pipeline.Step.
func (s *RequestLogging) Name() string { return "request-logging" }

// Execute implements pipeline.Step.
func (s *RequestLogging) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	start := time.Now()
	err := next(ctx)

	status := 0
	if resp := requestInfo.Response(); resp != nil {
		status = resp.StatusCode
	}
	s.logger.Info("request",
		"trace_id", requestInfo.TraceID(),
		"method", requestInfo.Method,
		"path", requestInfo.FrontendRequest.Path,
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return err
}
