package middleware

import (
	"context"
	"strings"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/pipeline"
	"github.com/edforge/trellis/pkg/response"
)

// ParseBody parses the raw request body into the envelope's mutable JSON
// tree. Numbers decode as json.Number so later validation sees the exact
// digits the client sent. Duplicate JSON keys are rejected during a token
// scan before the tree is built.
type ParseBody struct {
	logger hclog.Logger
}

// NewParseBody creates the body parsing step.
func NewParseBody(logger hclog.Logger) *ParseBody {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ParseBody{logger: logger.Named("parse-body")}
}

// Name implements pipeline.Step.
func (s *ParseBody) Name() string { return "parse-body" }

// Execute implements pipeline.Step.
func (s *ParseBody) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	if !writesBody(requestInfo.Method) {
		return next(ctx)
	}

	body := requestInfo.FrontendRequest.Body
	if strings.TrimSpace(body) == "" {
		failWith(requestInfo,
			response.BadRequest(requestInfo.TraceID(), "A non-empty request body is required"),
			response.ContentTypeJSON)
		return nil
	}

	if path, found := findDuplicateKey(body); found {
		failValidation(requestInfo, map[string][]string{
			path: {"An item with the same key has already been added."},
		})
		return nil
	}

	decoder := json.NewDecoder(strings.NewReader(body))
	decoder.UseNumber()
	var parsed any
	if err := decoder.Decode(&parsed); err != nil {
		s.logger.Debug("body parse failed", "trace_id", requestInfo.TraceID(), "error", err)
		failValidation(requestInfo, nil)
		return nil
	}

	document, ok := parsed.(map[string]any)
	if !ok {
		failValidation(requestInfo, map[string][]string{
			"$": {"A JSON object is required."},
		})
		return nil
	}

	requestInfo.ParsedBody = document
	// The raw body is consumed; it cannot be parsed twice.
	requestInfo.FrontendRequest.Body = ""
	return next(ctx)
}
